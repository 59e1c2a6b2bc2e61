// Package live keeps participant standings of running contests in step with
// the judge: a periodic scheduler fans out over active contests and an
// updater refreshes one contest at a time under a per-contest lock.
package live

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/podium/internal/adapters/lock"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/standings"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	// DefaultWindowCap is how many recent submissions one poll fetches.
	DefaultWindowCap = 1000

	// DefaultCooldown is the courtesy wait before each judge fetch.
	DefaultCooldown = 500 * time.Millisecond
)

// Outcome classifies one contest update.
type Outcome string

// Contest update outcomes.
const (
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeFailed    Outcome = "failed"
)

// Skip reasons.
const (
	SkipNoParticipants = "no_participants"
	SkipFetchFailed    = "fetch_failed"
	SkipNoSubmissions  = "no_submissions"
	SkipNoProblems     = "no_problems"
)

// Report summarizes one contest update.
type Report struct {
	ContestID    int64
	Outcome      Outcome
	SkipReason   string
	Participants int
	Fetched      int
	Matched      int
	Updated      int
	// Truncated is set when the fetch filled the whole window; older
	// submissions may be missing from this pass.
	Truncated bool
}

// Updater refreshes the standings of one contest at a time.
type Updater struct {
	judge     Judge
	store     Store
	locker    Locker
	windowCap int
	cooldown  time.Duration
	tracer    trace.Tracer
	logger    logger.Logger
}

// NewUpdater creates an updater. Without WithLocker it uses an in-process
// lock, which only serializes writers inside this process.
func NewUpdater(judge Judge, store Store, opts ...Option) *Updater {
	u := &Updater{
		judge:     judge,
		store:     store,
		locker:    lock.NewMemory(),
		windowCap: DefaultWindowCap,
		cooldown:  DefaultCooldown,
		tracer:    otel.Tracer("podium/live"),
		logger:    logger.Get().Named("live-updater"),
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// UpdateContest fetches the contest's recent submissions, re-aggregates
// every participant that appears in them and writes the changed ones back
// as one batch. Participants absent from the fetch are left as they are.
// Empty or failed fetches are skips, not errors.
func (u *Updater) UpdateContest(ctx context.Context, contest model.Contest) (rep Report, err error) {
	ctx, span := u.tracer.Start(ctx, "live.UpdateContest",
		trace.WithAttributes(attribute.Int64("contest.id", contest.ID)))
	rep = Report{ContestID: contest.ID}
	defer func() {
		if err != nil {
			rep.Outcome = OutcomeFailed
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.SetAttributes(
			attribute.String("update.outcome", string(rep.Outcome)),
			attribute.Int("update.fetched", rep.Fetched),
			attribute.Int("update.updated", rep.Updated),
			attribute.Bool("update.truncated", rep.Truncated),
		)
		span.End()
		metrics.RecordContestUpdate(string(rep.Outcome))
	}()

	unlock, err := u.locker.Lock(ctx, lock.ContestKey(contest.ID))
	if err != nil {
		return rep, fmt.Errorf("lock contest %d: %w", contest.ID, err)
	}
	defer u.release(ctx, unlock, contest.ID)

	return u.update(ctx, contest, rep)
}

func (u *Updater) update(ctx context.Context, contest model.Contest, rep Report) (Report, error) {
	log := u.logger.With(logger.Int64("contest_id", contest.ID), logger.String("contest", contest.Name))

	participants, err := u.store.Participants(ctx, contest.ID)
	if err != nil {
		return rep, fmt.Errorf("participants of %d: %w", contest.ID, err)
	}
	rep.Participants = len(participants)
	if len(participants) == 0 {
		log.Debug(ctx, "no participants")
		return skip(rep, SkipNoParticipants), nil
	}
	log.Info(ctx, "updating participants", logger.Int("participants", len(participants)))

	if err := sleep(ctx, u.cooldown); err != nil {
		return rep, err
	}
	subs, err := u.judge.RecentSubmissions(ctx, contest.ID, u.windowCap)
	if err != nil {
		log.Warn(ctx, "submission fetch failed; skipping contest", logger.Error(err))
		return skip(rep, SkipFetchFailed), nil
	}
	rep.Fetched = len(subs)
	if len(subs) == 0 {
		log.Info(ctx, "no submissions fetched")
		return skip(rep, SkipNoSubmissions), nil
	}
	if len(subs) >= u.windowCap {
		rep.Truncated = true
		metrics.RecordTruncationWarning()
		log.Warn(ctx, "fetched a full submission window; older submissions may be missing",
			logger.Int("window_cap", u.windowCap))
	}

	byHandle := partition(subs, participants)

	problems, err := u.store.Problems(ctx, contest.ID)
	if err != nil {
		return rep, fmt.Errorf("problems of %d: %w", contest.ID, err)
	}
	if len(problems) == 0 {
		log.Warn(ctx, "contest has no problems")
		return skip(rep, SkipNoProblems), nil
	}

	var changed []model.Participant
	for _, p := range participants {
		mine, ok := byHandle[p.Handle]
		if !ok {
			continue
		}
		rep.Matched++
		next := standings.Aggregate(mine, problems)
		if next.Equal(p.Standing()) {
			continue
		}
		changed = append(changed, p.WithStanding(next))
	}

	if len(changed) == 0 {
		rep.Outcome = OutcomeUnchanged
		log.Info(ctx, "no updates needed", logger.Int("matched", rep.Matched))
		return rep, nil
	}
	if err := u.store.UpdateStandings(ctx, changed); err != nil {
		return rep, fmt.Errorf("persist standings of %d: %w", contest.ID, err)
	}
	rep.Updated = len(changed)
	rep.Outcome = OutcomeUpdated
	metrics.RecordParticipantsUpdated(len(changed))
	log.Info(ctx, "participants updated", logger.Int("updated", len(changed)), logger.Int("matched", rep.Matched))
	return rep, nil
}

// partition groups submissions by the registered handles of their authors.
// Every member of a team submission is credited.
func partition(subs []model.Submission, participants []model.Participant) map[string][]model.Submission {
	registered := make(map[string]struct{}, len(participants))
	for _, p := range participants {
		if p.Handle != "" {
			registered[p.Handle] = struct{}{}
		}
	}
	out := make(map[string][]model.Submission, len(registered))
	for _, s := range subs {
		for _, h := range s.Handles {
			if _, ok := registered[h]; ok {
				out[h] = append(out[h], s)
			}
		}
	}
	return out
}

// ResyncResult is the outcome of a manual resync for one participant.
type ResyncResult struct {
	UserID   int64
	Handle   string
	Standing model.Standing
	Updated  bool
	Err      error
}

// Resync recomputes participants of one contest, or only userID when it is
// non-zero, from each handle's full submission list. It takes the same
// contest lock as the scheduled path, so the two never interleave.
func (u *Updater) Resync(ctx context.Context, contestID, userID int64) (_ []ResyncResult, err error) {
	ctx, span := u.tracer.Start(ctx, "live.Resync", trace.WithAttributes(
		attribute.Int64("contest.id", contestID),
		attribute.Int64("user.id", userID),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	unlock, err := u.locker.Lock(ctx, lock.ContestKey(contestID))
	if err != nil {
		return nil, fmt.Errorf("lock contest %d: %w", contestID, err)
	}
	defer u.release(ctx, unlock, contestID)

	if _, err := u.store.Contest(ctx, contestID); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("%w: %d", ErrContestNotFound, contestID)
		}
		return nil, fmt.Errorf("load contest %d: %w", contestID, err)
	}

	all, err := u.store.Participants(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("participants of %d: %w", contestID, err)
	}
	participants := all[:0:0]
	for _, p := range all {
		if userID == 0 || p.UserID == userID {
			participants = append(participants, p)
		}
	}
	if len(participants) == 0 {
		return nil, fmt.Errorf("%w: contest %d", ErrNoParticipants, contestID)
	}

	problems, err := u.store.Problems(ctx, contestID)
	if err != nil {
		return nil, fmt.Errorf("problems of %d: %w", contestID, err)
	}
	if len(problems) == 0 {
		return nil, fmt.Errorf("%w: contest %d", ErrNoProblems, contestID)
	}

	results := make([]ResyncResult, 0, len(participants))
	var changed []model.Participant
	for _, p := range participants {
		res := ResyncResult{UserID: p.UserID, Handle: p.Handle}
		if p.Handle == "" {
			res.Err = ErrNoHandle
			u.logger.Warn(ctx, "participant has no judge handle; skipping", logger.Int64("user_id", p.UserID))
			results = append(results, res)
			continue
		}
		if err := sleep(ctx, u.cooldown); err != nil {
			return results, err
		}
		subs, err := u.judge.HandleSubmissions(ctx, contestID, p.Handle)
		if err != nil {
			res.Err = fmt.Errorf("fetch %s: %w", p.Handle, err)
			results = append(results, res)
			continue
		}
		res.Standing = standings.Aggregate(subs, problems)
		if !res.Standing.Equal(p.Standing()) {
			res.Updated = true
			changed = append(changed, p.WithStanding(res.Standing))
		}
		results = append(results, res)
	}

	if err := u.store.UpdateStandings(ctx, changed); err != nil {
		return results, fmt.Errorf("persist standings of %d: %w", contestID, err)
	}
	metrics.RecordParticipantsUpdated(len(changed))
	u.logger.Info(ctx, "resync finished",
		logger.Int64("contest_id", contestID),
		logger.Int("participants", len(participants)),
		logger.Int("updated", len(changed)),
	)
	return results, nil
}

// ResyncRequest runs Resync for a queued request; any per-participant
// failure is reported as an error.
func (u *Updater) ResyncRequest(ctx context.Context, r model.ResyncRequest) error {
	results, err := u.Resync(ctx, r.ContestID, r.UserID)
	if err != nil {
		return err
	}
	var errs []error
	for _, res := range results {
		if res.Err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", res.UserID, res.Err))
		}
	}
	return errors.Join(errs...)
}

func (u *Updater) release(ctx context.Context, unlock lock.Unlock, contestID int64) {
	if err := unlock(context.WithoutCancel(ctx)); err != nil {
		u.logger.Warn(ctx, "releasing contest lock failed", logger.Int64("contest_id", contestID), logger.Error(err))
	}
}

func skip(rep Report, reason string) Report {
	rep.Outcome = OutcomeSkipped
	rep.SkipReason = reason
	return rep
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
