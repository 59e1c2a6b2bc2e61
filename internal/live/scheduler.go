package live

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// DefaultInterval is the pause between scheduler cycles.
const DefaultInterval = 60 * time.Second

// CycleReport summarizes one scheduler cycle.
type CycleReport struct {
	ID        string
	StartedAt time.Time
	Duration  time.Duration
	Active    int
	// Processed counts contests whose update ran to an outcome.
	Processed    int
	Participants int
	Failed       int
	Skipped      int
	Truncated    int
	// Cancelled is set when cancellation stopped the cycle before every
	// active contest was started.
	Cancelled bool
	Err       error
	Contests  []Report
}

// Scheduler periodically updates every active contest.
type Scheduler struct {
	contests    ContestLister
	updater     ContestUpdater
	interval    time.Duration
	concurrency int
	now         func() time.Time
	tracer      trace.Tracer
	logger      logger.Logger

	cycles  atomic.Int64
	running atomic.Bool
	mu      sync.RWMutex
	last    CycleReport
}

// NewScheduler creates a scheduler. Contests are updated one at a time
// unless WithConcurrency says otherwise.
func NewScheduler(contests ContestLister, updater ContestUpdater, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		contests:    contests,
		updater:     updater,
		interval:    DefaultInterval,
		concurrency: 1,
		now:         time.Now,
		tracer:      otel.Tracer("podium/live"),
		logger:      logger.Get().Named("scheduler"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run executes cycles until ctx is cancelled. Cancellation is honoured
// between cycles and before each contest starts; contest updates already in
// flight run to completion.
func (s *Scheduler) Run(ctx context.Context) {
	s.running.Store(true)
	defer s.running.Store(false)

	s.logger.Info(ctx, "starting contest updater", logger.Duration("interval", s.interval))
	for {
		if ctx.Err() != nil {
			break
		}
		s.RunCycle(ctx)
		if err := sleep(ctx, s.interval); err != nil {
			break
		}
	}
	s.logger.Info(context.WithoutCancel(ctx), "contest updater stopped", logger.Int64("cycles", s.cycles.Load()))
}

// RunCycle performs one pass over the active contests and returns its
// summary. A failure in one contest never stops the others.
func (s *Scheduler) RunCycle(ctx context.Context) CycleReport {
	start := time.Now()
	rep := CycleReport{ID: uuid.NewString(), StartedAt: s.now()}

	ctx, span := s.tracer.Start(ctx, "live.Cycle", trace.WithAttributes(attribute.String("cycle.id", rep.ID)))
	log := s.logger.With(logger.String("cycle_id", rep.ID))
	defer func() {
		rep.Duration = time.Since(start)
		span.SetAttributes(
			attribute.Int("cycle.active", rep.Active),
			attribute.Int("cycle.failed", rep.Failed),
			attribute.Int("cycle.participants", rep.Participants),
		)
		span.End()
		s.finish(rep)
	}()

	contests, err := s.contests.ActiveContests(ctx, rep.StartedAt)
	if err != nil {
		rep.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error(ctx, "listing active contests failed", logger.Error(err))
		return rep
	}
	rep.Active = len(contests)
	metrics.UpdateActiveContests(len(contests))
	if len(contests) == 0 {
		log.Debug(ctx, "no active contests")
		return rep
	}
	log.Info(ctx, "found active contests", logger.Int("active", len(contests)))

	// Started updates must not be cut short by cancellation.
	work := context.WithoutCancel(ctx)

	reports := make([]Report, len(contests))
	started := make([]bool, len(contests))
	var cancelled atomic.Bool
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, c := range contests {
		if ctx.Err() != nil {
			cancelled.Store(true)
			break
		}
		g.Go(func() error {
			// g.Go may have waited for a slot past cancellation.
			if ctx.Err() != nil {
				cancelled.Store(true)
				return nil
			}
			started[i] = true
			reports[i] = s.updateOne(work, c, log)
			return nil
		})
	}
	_ = g.Wait()
	rep.Cancelled = cancelled.Load()

	for i, r := range reports {
		if !started[i] {
			continue
		}
		rep.Contests = append(rep.Contests, r)
		rep.Processed++
		rep.Participants += r.Updated
		if r.Truncated {
			rep.Truncated++
		}
		switch r.Outcome {
		case OutcomeFailed:
			rep.Failed++
		case OutcomeSkipped:
			rep.Skipped++
		}
	}
	return rep
}

// updateOne isolates one contest: errors and panics become a failed report.
func (s *Scheduler) updateOne(ctx context.Context, c model.Contest, log logger.Logger) (rep Report) {
	defer func() {
		if r := recover(); r != nil {
			rep = Report{ContestID: c.ID, Outcome: OutcomeFailed}
			metrics.RecordContestUpdate(string(OutcomeFailed))
			log.Error(ctx, "contest update panicked", logger.Int64("contest_id", c.ID), logger.Any("panic", r))
		}
	}()

	r, err := s.updater.UpdateContest(ctx, c)
	if err != nil {
		r.ContestID = c.ID
		r.Outcome = OutcomeFailed
		log.Error(ctx, "contest update failed", logger.Int64("contest_id", c.ID), logger.Error(err))
	}
	return r
}

func (s *Scheduler) finish(rep CycleReport) {
	s.cycles.Add(1)
	s.mu.Lock()
	s.last = rep
	s.mu.Unlock()

	metrics.RecordCycle(float64(rep.Duration.Milliseconds()))
	if rep.Active == 0 && rep.Err == nil {
		return
	}
	s.logger.Info(context.Background(), "cycle finished",
		logger.String("cycle_id", rep.ID),
		logger.Int("active", rep.Active),
		logger.Int("processed", rep.Processed),
		logger.Int("participants_updated", rep.Participants),
		logger.Int("skipped", rep.Skipped),
		logger.Int("failed", rep.Failed),
		logger.Int("truncated", rep.Truncated),
		logger.Bool("cancelled", rep.Cancelled),
		logger.Duration("took", rep.Duration),
	)
}

// LastCycle returns the summary of the most recent cycle.
func (s *Scheduler) LastCycle() CycleReport {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// Stats reports scheduler state for the ops API.
func (s *Scheduler) Stats() map[string]any {
	last := s.LastCycle()
	stats := map[string]any{
		"running":          s.running.Load(),
		"cycles":           s.cycles.Load(),
		"interval_seconds": s.interval.Seconds(),
		"concurrency":      s.concurrency,
	}
	if last.ID != "" {
		stats["last_cycle"] = map[string]any{
			"id":                   last.ID,
			"started_at":           last.StartedAt,
			"duration_ms":          last.Duration.Milliseconds(),
			"active":               last.Active,
			"processed":            last.Processed,
			"participants_updated": last.Participants,
			"skipped":              last.Skipped,
			"failed":               last.Failed,
			"truncated":            last.Truncated,
		}
	}
	return stats
}
