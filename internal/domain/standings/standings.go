// Package standings turns a participant's judge submissions into an
// ICPC-style solve record: a per-problem status string, a score and a time
// penalty.
//
// Aggregate is a pure function. It never mutates its inputs and is safe to
// call concurrently for different participants.
package standings

import (
	"slices"
	"strconv"
	"strings"

	"github.com/okian/podium/internal/domain/model"
)

// Scoring constants.
const (
	// WrongAttemptPenalty is the penalty in minutes for each rejected
	// submission on a problem that is eventually solved.
	WrongAttemptPenalty = 20

	// Separator joins per-problem status tokens.
	Separator = ":"

	secondsPerMinute = 60
)

type problemState struct {
	solved     bool
	wrong      int
	acceptedAt int
}

// Aggregate computes the standing of one participant. Submissions that
// reference a problem index absent from problems are ignored.
func Aggregate(subs []model.Submission, problems []model.Problem) model.Standing {
	state := make(map[string]*problemState, len(problems))
	for _, p := range problems {
		state[p.Index] = &problemState{}
	}

	ordered := slices.Clone(subs)
	slices.SortStableFunc(ordered, func(a, b model.Submission) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})

	for _, sub := range ordered {
		st, ok := state[sub.ProblemIndex]
		if !ok || st.solved {
			continue
		}
		if sub.Verdict.Accepted() {
			st.solved = true
			st.acceptedAt = minutes(sub.RelativeSeconds)
			continue
		}
		st.wrong++
	}

	var (
		out    model.Standing
		tokens = make([]string, 0, len(problems))
	)
	for _, p := range problems {
		st := state[p.Index]
		tokens = append(tokens, token(st))
		if st.solved {
			out.Score += p.Points
			out.Penalty += st.acceptedAt + st.wrong*WrongAttemptPenalty
		}
	}
	out.Status = strings.Join(tokens, Separator)
	return out
}

// Empty returns the standing of a participant with no submissions.
func Empty(problemCount int) model.Standing {
	tokens := make([]string, problemCount)
	for i := range tokens {
		tokens[i] = "0"
	}
	return model.Standing{Status: strings.Join(tokens, Separator)}
}

func token(st *problemState) string {
	switch {
	case st.solved && st.wrong == 0:
		return "+"
	case st.solved:
		return "+" + strconv.Itoa(st.wrong)
	case st.wrong > 0:
		return "-" + strconv.Itoa(st.wrong)
	default:
		return "0"
	}
}

// minutes floors elapsed seconds to whole minutes. Negative values clamp to 0.
func minutes(seconds int64) int {
	if seconds <= 0 {
		return 0
	}
	return int(seconds / secondsPerMinute)
}
