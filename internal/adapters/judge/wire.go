package judge

import (
	"encoding/json"
	"time"

	"github.com/okian/podium/internal/domain/model"
)

type envelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

type apiProblem struct {
	ContestID int64   `json:"contestId"`
	Index     string  `json:"index"`
	Name      string  `json:"name"`
	Points    float64 `json:"points"`
	Rating    int     `json:"rating"`
}

type apiMember struct {
	Handle string `json:"handle"`
}

type apiParty struct {
	Members         []apiMember `json:"members"`
	ParticipantType string      `json:"participantType"`
}

type apiSubmission struct {
	ID                  int64      `json:"id"`
	ContestID           int64      `json:"contestId"`
	CreationTimeSeconds int64      `json:"creationTimeSeconds"`
	RelativeTimeSeconds int64      `json:"relativeTimeSeconds"`
	Problem             apiProblem `json:"problem"`
	Author              apiParty   `json:"author"`
	// Verdict is absent while a submission is still in the queue.
	Verdict string `json:"verdict"`
}

type apiContest struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Phase            string `json:"phase"`
	DurationSeconds  int64  `json:"durationSeconds"`
	StartTimeSeconds int64  `json:"startTimeSeconds"`
}

type apiStandings struct {
	Contest  apiContest   `json:"contest"`
	Problems []apiProblem `json:"problems"`
}

func toSubmissions(raw []apiSubmission) []model.Submission {
	out := make([]model.Submission, 0, len(raw))
	for _, s := range raw {
		handles := make([]string, 0, len(s.Author.Members))
		for _, m := range s.Author.Members {
			if m.Handle != "" {
				handles = append(handles, m.Handle)
			}
		}
		out = append(out, model.Submission{
			ID:              s.ID,
			ContestID:       s.ContestID,
			ProblemIndex:    s.Problem.Index,
			Verdict:         model.Verdict(s.Verdict),
			Handles:         handles,
			CreatedAt:       time.Unix(s.CreationTimeSeconds, 0).UTC(),
			RelativeSeconds: s.RelativeTimeSeconds,
		})
	}
	return out
}
