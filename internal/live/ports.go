package live

import (
	"context"
	"time"

	"github.com/okian/podium/internal/adapters/lock"
	"github.com/okian/podium/internal/domain/model"
)

// Judge is the submission feed.
type Judge interface {
	// RecentSubmissions returns up to maxCount of the newest submissions.
	RecentSubmissions(ctx context.Context, contestID int64, maxCount int) ([]model.Submission, error)

	// HandleSubmissions returns every submission of one handle.
	HandleSubmissions(ctx context.Context, contestID int64, handle string) ([]model.Submission, error)
}

// Store is the contest directory, problem directory and participant store.
type Store interface {
	Contest(ctx context.Context, id int64) (model.Contest, error)
	Problems(ctx context.Context, contestID int64) ([]model.Problem, error)
	Participants(ctx context.Context, contestID int64) ([]model.Participant, error)
	UpdateStandings(ctx context.Context, participants []model.Participant) error
}

// ContestLister finds the contests a cycle must update.
type ContestLister interface {
	ActiveContests(ctx context.Context, now time.Time) ([]model.Contest, error)
}

// ContestUpdater refreshes one contest.
type ContestUpdater interface {
	UpdateContest(ctx context.Context, contest model.Contest) (Report, error)
}

// Locker serializes writers of one contest.
type Locker = lock.Locker
