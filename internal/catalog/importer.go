// Package catalog imports contest metadata and problem sets from the judge
// into the contest and problem directories.
package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
)

// Source describes contests on the judge.
type Source interface {
	Contest(ctx context.Context, contestID int64) (model.Contest, []model.Problem, error)
}

// Store receives imported contests.
type Store interface {
	ContestIDs(ctx context.Context) ([]int64, error)
	UpsertContest(ctx context.Context, contest model.Contest, problems []model.Problem) error
}

// Result is the outcome of importing one contest.
type Result struct {
	ContestID int64
	Name      string
	Problems  int
	Err       error
}

// Importer copies contests from the judge.
type Importer struct {
	source   Source
	store    Store
	cooldown time.Duration
	logger   logger.Logger
}

// Option applies a configuration option to the Importer.
type Option func(*Importer)

// WithCooldown sets the pause between consecutive judge calls.
func WithCooldown(d time.Duration) Option {
	return func(i *Importer) {
		if d >= 0 {
			i.cooldown = d
		}
	}
}

// WithLogger sets a custom logger for the importer.
func WithLogger(l logger.Logger) Option {
	return func(i *Importer) {
		if l != nil {
			i.logger = l
		}
	}
}

// New creates an importer.
func New(source Source, store Store, opts ...Option) *Importer {
	i := &Importer{
		source: source,
		store:  store,
		logger: logger.Get().Named("catalog"),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import fetches and stores the given contests. With no ids every contest
// already in the store is refreshed. A failure on one contest does not stop
// the others; the returned error only covers listing stored contests.
func (i *Importer) Import(ctx context.Context, ids ...int64) ([]Result, error) {
	if len(ids) == 0 {
		stored, err := i.store.ContestIDs(ctx)
		if err != nil {
			return nil, fmt.Errorf("list contests: %w", err)
		}
		ids = stored
	}

	results := make([]Result, 0, len(ids))
	for n, id := range ids {
		if n > 0 && i.cooldown > 0 {
			select {
			case <-ctx.Done():
				return results, ctx.Err()
			case <-time.After(i.cooldown):
			}
		}
		results = append(results, i.importOne(ctx, id))
	}
	return results, nil
}

func (i *Importer) importOne(ctx context.Context, id int64) Result {
	res := Result{ContestID: id}
	contest, problems, err := i.source.Contest(ctx, id)
	if err != nil {
		res.Err = fmt.Errorf("fetch contest %d: %w", id, err)
		i.logger.Warn(ctx, "contest import failed", logger.Int64("contest_id", id), logger.Error(err))
		return res
	}
	if err := i.store.UpsertContest(ctx, contest, problems); err != nil {
		res.Err = fmt.Errorf("store contest %d: %w", id, err)
		i.logger.Error(ctx, "contest import failed", logger.Int64("contest_id", id), logger.Error(err))
		return res
	}
	res.Name = contest.Name
	res.Problems = len(problems)
	i.logger.Info(ctx, "contest imported",
		logger.Int64("contest_id", id),
		logger.String("name", contest.Name),
		logger.Int("problems", len(problems)),
	)
	return res
}
