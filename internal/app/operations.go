package service

import (
	"context"

	"github.com/okian/podium/internal/catalog"
	"github.com/okian/podium/internal/domain/elo"
	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/internal/domain/standings"
	"github.com/okian/podium/internal/domain/types"
	"github.com/okian/podium/internal/live"
	"github.com/okian/podium/internal/rating"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
)

func (s *Service) ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.opened {
		return ErrNotOpen
	}
	return nil
}

// RunCycle runs one scheduler cycle in the caller's goroutine.
func (s *Service) RunCycle(ctx context.Context) (live.CycleReport, error) {
	if err := s.ready(); err != nil {
		return live.CycleReport{}, err
	}
	return s.scheduler.RunCycle(ctx), nil
}

// Resync recomputes one contest, or one user in it, synchronously.
func (s *Service) Resync(ctx context.Context, contestID, userID int64) ([]live.ResyncResult, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.updater.Resync(ctx, contestID, userID)
}

// Import pulls contest metadata and problems from the judge.
func (s *Service) Import(ctx context.Context, ids ...int64) ([]catalog.Result, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	return s.importer.Import(ctx, ids...)
}

// Rate applies ratings for a finished contest.
func (s *Service) Rate(ctx context.Context, contestID int64) (rating.Result, error) {
	if err := s.ready(); err != nil {
		return rating.Result{}, err
	}
	return s.engine.Apply(ctx, contestID), nil
}

// Register records a user's judge handle, when given, and adds the user to
// a contest.
func (s *Service) Register(ctx context.Context, contestID, userID int64, handle string) (model.Participant, error) {
	if err := s.ready(); err != nil {
		return model.Participant{}, err
	}
	if handle != "" {
		if err := s.store.SaveProfile(ctx, model.Profile{UserID: userID, Handle: handle}); err != nil {
			return model.Participant{}, err
		}
	}
	return s.store.Register(ctx, contestID, userID)
}

// ApplyRating implements the API rating dependency.
func (s *Service) ApplyRating(ctx context.Context, contestID int64) types.RatingResult {
	res, err := s.Rate(ctx, contestID)
	if err != nil {
		return types.RatingResult{ContestID: contestID, Reason: string(rating.ReasonStorageError), Message: err.Error()}
	}
	out := types.RatingResult{
		ContestID: res.ContestID,
		Applied:   res.Applied,
		Reason:    string(res.Reason),
		Message:   res.Message,
	}
	for _, c := range res.Changes {
		out.Changes = append(out.Changes, types.RatingChange{UserID: c.UserID, Old: c.Old, New: c.New, Delta: c.Delta})
	}
	return out
}

// Standings returns the ranked scoreboard of a contest. Participants with
// equal score and penalty share a rank.
func (s *Service) Standings(ctx context.Context, contestID int64) (types.Standings, error) {
	if err := s.ready(); err != nil {
		return types.Standings{}, err
	}
	contest, err := s.store.Contest(ctx, contestID)
	if err != nil {
		return types.Standings{}, err
	}
	problems, err := s.store.Problems(ctx, contestID)
	if err != nil {
		return types.Standings{}, err
	}
	participants, err := s.store.Participants(ctx, contestID)
	if err != nil {
		return types.Standings{}, err
	}

	board := types.Standings{
		ContestID:     contest.ID,
		Name:          contest.Name,
		StartTime:     contest.StartTime,
		EndTime:       contest.EndTime,
		RatingApplied: contest.RatingApplied,
		Problems:      make([]types.ProblemHeader, 0, len(problems)),
		Rows:          make([]types.Row, 0, len(participants)),
	}
	for _, p := range problems {
		board.Problems = append(board.Problems, types.ProblemHeader{
			Index: p.Index, Name: p.Name, Points: p.Points, Rating: p.Rating, URL: p.URL,
		})
	}

	ids := make([]int64, len(participants))
	for i, p := range participants {
		ids[i] = p.UserID
	}
	ratings, err := s.store.Ratings(ctx, ids)
	if err != nil {
		return types.Standings{}, err
	}

	ranked := elo.Rank(participants)
	for i, p := range ranked {
		rank := i + 1
		if i > 0 {
			prev := board.Rows[i-1]
			if prev.TotalScore == p.TotalScore && prev.Penalty == p.Penalty {
				rank = prev.Rank
			}
		}
		cells, err := standings.ParseStatus(p.ProblemStatus)
		if err != nil {
			s.logger.Warn(ctx, "unreadable problem status",
				logger.Int64("contest_id", contestID),
				logger.Int64("user_id", p.UserID),
				logger.Error(err),
			)
		}
		board.Rows = append(board.Rows, types.Row{
			Rank:       rank,
			UserID:     p.UserID,
			Handle:     p.Handle,
			Status:     p.ProblemStatus,
			Cells:      cells,
			TotalScore: p.TotalScore,
			Penalty:    p.Penalty,
			Rating:     ratings[p.UserID],
		})
	}
	return board, nil
}

// SeenAndRecord reports whether a resync target is already pending and
// marks it pending otherwise.
func (s *Service) SeenAndRecord(ctx context.Context, key string) bool {
	seen := s.deduper.SeenAndRecord(ctx, key)
	if seen {
		metrics.RecordResyncRejected("duplicate")
	}
	return seen
}

// Unrecord clears a pending resync target.
func (s *Service) Unrecord(ctx context.Context, key string) {
	s.deduper.Unrecord(ctx, key)
}

// Size returns the number of pending resync targets.
func (s *Service) Size() int64 {
	if s.deduper == nil {
		return 0
	}
	return s.deduper.Size()
}

// Enqueue submits a resync request for asynchronous processing.
func (s *Service) Enqueue(ctx context.Context, r model.ResyncRequest) bool {
	ok := s.queue.Enqueue(ctx, r)
	if ok {
		s.logger.Info(ctx, "resync queued",
			logger.String("request_id", r.RequestID),
			logger.Int64("contest_id", r.ContestID),
			logger.Int64("user_id", r.UserID),
		)
	}
	return ok
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]any{
		"started":      s.started,
		"lock_backend": s.cfg.LockBackend,
		"db_driver":    s.cfg.DBDriver,
	}
	if !s.opened {
		return stats
	}

	ctx := context.Background()
	queueLen := s.queue.Len(ctx)
	stats["scheduler"] = s.scheduler.Stats()
	stats["resync"] = map[string]any{
		"workers":      s.pool.Size(),
		"queue_length": queueLen,
		"queue_size":   s.cfg.ResyncQueueSize,
		"pending":      s.deduper.Size(),
		"processed":    s.pool.Processed(),
		"failed":       s.pool.Failed(),
	}
	metrics.UpdateResyncQueueSize(queueLen)
	return stats
}
