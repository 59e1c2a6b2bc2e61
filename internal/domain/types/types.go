// Package types contains the read shapes returned by the HTTP API.
package types

import (
	"time"

	"github.com/okian/podium/internal/domain/standings"
)

// ProblemHeader describes one standings column.
type ProblemHeader struct {
	Index  string  `json:"index"`
	Name   string  `json:"name,omitempty"`
	Points float64 `json:"points"`
	Rating int     `json:"rating,omitempty"`
	URL    string  `json:"url,omitempty"`
}

// Row is one ranked participant.
type Row struct {
	Rank       int              `json:"rank"`
	UserID     int64            `json:"user_id"`
	Handle     string           `json:"handle"`
	Status     string           `json:"problem_status"`
	Cells      []standings.Cell `json:"cells"`
	TotalScore float64          `json:"total_score"`
	Penalty    int              `json:"penalty"`
	// Rating is the user's current rating; 0 when the user has no profile.
	Rating int `json:"rating,omitempty"`
}

// Standings is the scoreboard of one contest.
type Standings struct {
	ContestID     int64           `json:"contest_id"`
	Name          string          `json:"name"`
	StartTime     time.Time       `json:"start_time"`
	EndTime       time.Time       `json:"end_time"`
	RatingApplied bool            `json:"rating_applied"`
	Problems      []ProblemHeader `json:"problems"`
	Rows          []Row           `json:"rows"`
}

// RatingChange is one participant's rating transition.
type RatingChange struct {
	UserID int64   `json:"user_id"`
	Old    int     `json:"old"`
	New    int     `json:"new"`
	Delta  float64 `json:"delta"`
}

// RatingResult reports a rating application attempt.
type RatingResult struct {
	ContestID int64          `json:"contest_id"`
	Applied   bool           `json:"applied"`
	Reason    string         `json:"reason"`
	Message   string         `json:"message"`
	Changes   []RatingChange `json:"changes,omitempty"`
}

// ResyncAck acknowledges a queued manual resync.
type ResyncAck struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id,omitempty"`
	Duplicate bool   `json:"duplicate"`
}
