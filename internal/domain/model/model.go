// Package model holds the contest, participant and submission types shared
// by the aggregator, the live updater and the rating engine.
package model

import (
	"strconv"
	"time"
)

// DefaultRating is the rating a profile starts with.
const DefaultRating = 1500

// Contest is a timed contest mirrored from the judge.
type Contest struct {
	ID            int64
	Name          string
	StartTime     time.Time
	EndTime       time.Time
	RatingApplied bool
}

// Active reports whether now falls inside the half-open window [start, end).
func (c Contest) Active(now time.Time) bool {
	return !now.Before(c.StartTime) && now.Before(c.EndTime)
}

// Finished reports whether the contest window has closed at now.
func (c Contest) Finished(now time.Time) bool {
	return !now.Before(c.EndTime)
}

// Problem belongs to one contest; Index is unique within it.
type Problem struct {
	ContestID int64
	Index     string
	Name      string
	Points    float64
	Rating    int
	URL       string
}

// Participant is a (user, contest) registration and its derived standing.
type Participant struct {
	ID            int64
	UserID        int64
	ContestID     int64
	Handle        string
	ProblemStatus string
	TotalScore    float64
	Penalty       int
}

// Standing returns the participant's current derived state.
func (p Participant) Standing() Standing {
	return Standing{Status: p.ProblemStatus, Score: p.TotalScore, Penalty: p.Penalty}
}

// WithStanding returns a copy of p carrying s.
func (p Participant) WithStanding(s Standing) Participant {
	p.ProblemStatus = s.Status
	p.TotalScore = s.Score
	p.Penalty = s.Penalty
	return p
}

// Verdict is the judge's outcome for one submission.
type Verdict string

// VerdictOK is the only verdict counted as accepted.
const VerdictOK Verdict = "OK"

// Accepted reports whether v counts as a solve.
func (v Verdict) Accepted() bool { return v == VerdictOK }

// Submission is one judge verdict record.
type Submission struct {
	ID              int64
	ContestID       int64
	ProblemIndex    string
	Verdict         Verdict
	Handles         []string
	CreatedAt       time.Time
	RelativeSeconds int64
}

// Standing is the aggregated solve record of one participant.
type Standing struct {
	Status  string
	Score   float64
	Penalty int
}

// Equal reports whether two standings carry the same derived values.
func (s Standing) Equal(o Standing) bool {
	return s.Status == o.Status && s.Score == o.Score && s.Penalty == o.Penalty
}

// Profile is the rated identity behind a participant.
type Profile struct {
	UserID int64
	Handle string
	Rating int
}

// RatingChange is one participant's rating transition.
type RatingChange struct {
	UserID int64
	Old    int
	New    int
	Delta  float64
}

// ResyncRequest asks for a manual resync of one contest, or of a single
// user in it when UserID is non-zero.
type ResyncRequest struct {
	RequestID string
	ContestID int64
	UserID    int64
	Requested time.Time
}

// Key identifies the resync target for coalescing duplicate requests.
func (r ResyncRequest) Key() string {
	key := "contest:" + strconv.FormatInt(r.ContestID, 10)
	if r.UserID != 0 {
		key += ":user:" + strconv.FormatInt(r.UserID, 10)
	}
	return key
}
