// Package rating applies pairwise Elo adjustments to the participants of a
// finished contest, at most once per contest.
package rating

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/podium/internal/adapters/lock"
	"github.com/okian/podium/internal/adapters/repository"
	"github.com/okian/podium/internal/domain/elo"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Reason classifies the outcome of Apply.
type Reason string

// Apply outcomes, in the order the preconditions are checked.
const (
	ReasonNotFound              Reason = "not_found"
	ReasonAlreadyApplied        Reason = "already_applied"
	ReasonNotEnoughParticipants Reason = "not_enough_participants"
	ReasonStorageError          Reason = "storage_error"
	ReasonApplied               Reason = "applied"
)

// MinParticipants is the smallest field that can be rated.
const MinParticipants = 2

// Store is what the engine reads and commits.
type Store interface {
	Contest(ctx context.Context, id int64) (model.Contest, error)
	Participants(ctx context.Context, contestID int64) ([]model.Participant, error)
	// CommitRating marks the contest rated, reads the users' ratings and
	// writes what rate returns, atomically and with the rating rows locked
	// against other commits. It returns model.ErrAlreadyApplied when the
	// contest was already marked.
	CommitRating(ctx context.Context, contestID int64, userIDs []int64, rate repository.RateFunc) ([]model.RatingChange, error)
}

// Result reports one Apply call.
type Result struct {
	ContestID int64
	Applied   bool
	Reason    Reason
	Message   string
	Changes   []model.RatingChange
	// Err is set for ReasonStorageError.
	Err error
}

// Engine rates finished contests.
type Engine struct {
	store         Store
	locker        lock.Locker
	defaultRating int
	tracer        trace.Tracer
	logger        logger.Logger
}

// NewEngine creates a rating engine.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:         store,
		locker:        lock.NewMemory(),
		defaultRating: model.DefaultRating,
		tracer:        otel.Tracer("podium/rating"),
		logger:        logger.Get().Named("rating"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Apply rates every participant of the contest from its final ranking and
// marks the contest rated. Precondition failures are reported in the Result,
// never as partial writes.
func (e *Engine) Apply(ctx context.Context, contestID int64) (res Result) {
	ctx, span := e.tracer.Start(ctx, "rating.Apply", trace.WithAttributes(attribute.Int64("contest.id", contestID)))
	res.ContestID = contestID
	defer func() {
		span.SetAttributes(
			attribute.String("rating.reason", string(res.Reason)),
			attribute.Int("rating.changes", len(res.Changes)),
		)
		if res.Err != nil {
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
		}
		span.End()
		metrics.RecordRatingApplication(string(res.Reason))

		log := e.logger.With(logger.Int64("contest_id", contestID), logger.String("reason", string(res.Reason)))
		switch {
		case res.Applied:
			log.Info(ctx, "ratings applied", logger.Int("participants", len(res.Changes)))
		case res.Err != nil:
			log.Error(ctx, "rating application failed", logger.Error(res.Err))
		default:
			log.Warn(ctx, "rating not applied", logger.String("message", res.Message))
		}
	}()

	unlock, err := e.locker.Lock(ctx, lock.ContestKey(contestID))
	if err != nil {
		return storageError(res, fmt.Errorf("lock contest %d: %w", contestID, err))
	}
	defer func() {
		if err := unlock(context.WithoutCancel(ctx)); err != nil {
			e.logger.Warn(ctx, "releasing contest lock failed", logger.Int64("contest_id", contestID), logger.Error(err))
		}
	}()

	contest, err := e.store.Contest(ctx, contestID)
	switch {
	case errors.Is(err, model.ErrNotFound):
		return notFound(res)
	case err != nil:
		return storageError(res, err)
	case contest.RatingApplied:
		return alreadyApplied(res)
	}

	participants, err := e.store.Participants(ctx, contestID)
	if err != nil {
		return storageError(res, err)
	}
	if len(participants) < MinParticipants {
		res.Reason = ReasonNotEnoughParticipants
		res.Message = "Not enough participants to calculate rating"
		return res
	}

	ids := make([]int64, len(participants))
	for i, p := range participants {
		ids[i] = p.UserID
	}
	changes, err := e.store.CommitRating(ctx, contestID, ids, func(ratings map[int64]int) []model.RatingChange {
		for _, id := range ids {
			if _, ok := ratings[id]; !ok {
				ratings[id] = e.defaultRating
			}
		}
		return elo.Changes(participants, ratings)
	})
	if err != nil {
		switch {
		case errors.Is(err, model.ErrAlreadyApplied):
			return alreadyApplied(res)
		case errors.Is(err, model.ErrNotFound):
			return notFound(res)
		}
		return storageError(res, err)
	}

	res.Applied = true
	res.Reason = ReasonApplied
	res.Changes = changes
	res.Message = fmt.Sprintf("Successfully applied ratings for %d participants", len(changes))
	return res
}

func notFound(res Result) Result {
	res.Reason = ReasonNotFound
	res.Message = fmt.Sprintf("Contest %d not found", res.ContestID)
	return res
}

func alreadyApplied(res Result) Result {
	res.Reason = ReasonAlreadyApplied
	res.Message = fmt.Sprintf("Rating already applied for contest %d", res.ContestID)
	return res
}

func storageError(res Result, err error) Result {
	res.Reason = ReasonStorageError
	res.Message = fmt.Sprintf("Storage error: %v", err)
	res.Err = err
	return res
}
