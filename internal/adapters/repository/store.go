// Package repository persists contests, problems, participants and profiles
// with gorm. It is the contest directory, problem directory, participant
// store and rating store consumed by the live updater and the rating engine.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/okian/podium/internal/domain/model"
	"github.com/okian/podium/pkg/logger"
	"github.com/okian/podium/pkg/metrics"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store is a gorm-backed repository. It is safe for concurrent use.
type Store struct {
	db            *gorm.DB
	defaultRating int
	logger        logger.Logger
}

// New wraps an open database.
func New(db *gorm.DB, opts ...Option) *Store {
	s := &Store{
		db:            db,
		defaultRating: model.DefaultRating,
		logger:        logger.Get().Named("repository"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&contestRow{}, &problemRow{}, &participantRow{}, &profileRow{}); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// observe records latency and outcome of one store operation.
func observe(op string, start time.Time, err error) {
	outcome := "ok"
	switch {
	case err == nil:
	case errors.Is(err, ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, ErrAlreadyApplied):
		outcome = "already_applied"
	default:
		outcome = "error"
	}
	metrics.RecordRepositoryQuery(op, outcome, float64(time.Since(start).Milliseconds()))
}

// Contest returns one contest or ErrNotFound.
func (s *Store) Contest(ctx context.Context, id int64) (_ model.Contest, err error) {
	defer func(start time.Time) { observe("contest", start, err) }(time.Now())

	var row contestRow
	if err := s.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return model.Contest{}, fmt.Errorf("contest %d: %w", id, ErrNotFound)
		}
		return model.Contest{}, fmt.Errorf("load contest %d: %w", id, err)
	}
	return row.toModel(), nil
}

// ContestIDs lists every stored contest id in ascending order.
func (s *Store) ContestIDs(ctx context.Context) (_ []int64, err error) {
	defer func(start time.Time) { observe("contest_ids", start, err) }(time.Now())

	var ids []int64
	if err := s.db.WithContext(ctx).Model(&contestRow{}).Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("list contest ids: %w", err)
	}
	return ids, nil
}

// ActiveContests returns contests whose window contains now, bounds included.
func (s *Store) ActiveContests(ctx context.Context, now time.Time) (_ []model.Contest, err error) {
	defer func(start time.Time) { observe("active_contests", start, err) }(time.Now())

	now = now.UTC()
	var rows []contestRow
	if err := s.db.WithContext(ctx).
		Where("start_time <= ? AND end_time > ?", now, now).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list active contests: %w", err)
	}
	out := make([]model.Contest, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// Problems returns a contest's problems ordered by index.
func (s *Store) Problems(ctx context.Context, contestID int64) (_ []model.Problem, err error) {
	defer func(start time.Time) { observe("problems", start, err) }(time.Now())

	var rows []problemRow
	if err := s.db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Order("problem_index").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list problems of %d: %w", contestID, err)
	}
	out := make([]model.Problem, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

// Participants returns a contest's participants with their profile handles,
// in registration order. Users without a profile get an empty handle.
func (s *Store) Participants(ctx context.Context, contestID int64) (_ []model.Participant, err error) {
	defer func(start time.Time) { observe("participants", start, err) }(time.Now())

	var rows []participantRow
	if err := s.db.WithContext(ctx).
		Where("contest_id = ?", contestID).
		Order("id").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list participants of %d: %w", contestID, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}

	userIDs := make([]int64, len(rows))
	for i, r := range rows {
		userIDs[i] = r.UserID
	}
	var profiles []profileRow
	if err := s.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&profiles).Error; err != nil {
		return nil, fmt.Errorf("load profiles of %d: %w", contestID, err)
	}
	handles := make(map[int64]string, len(profiles))
	for _, p := range profiles {
		handles[p.UserID] = p.Handle
	}

	out := make([]model.Participant, len(rows))
	for i, r := range rows {
		out[i] = r.toModel(handles[r.UserID])
	}
	return out, nil
}

// UpdateStandings overwrites status, score and penalty of every given
// participant in one transaction.
func (s *Store) UpdateStandings(ctx context.Context, participants []model.Participant) (err error) {
	if len(participants) == 0 {
		return nil
	}
	defer func(start time.Time) { observe("update_standings", start, err) }(time.Now())

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, p := range participants {
			res := tx.Model(&participantRow{}).Where("id = ?", p.ID).Updates(map[string]any{
				"problem_status": p.ProblemStatus,
				"total_score":    p.TotalScore,
				"penalty":        p.Penalty,
			})
			if res.Error != nil {
				return fmt.Errorf("update participant %d: %w", p.ID, res.Error)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Debug(ctx, "standings persisted", logger.Int("participants", len(participants)))
	return nil
}

// Ratings returns the rating of each user. Users without a profile are
// absent from the map.
func (s *Store) Ratings(ctx context.Context, userIDs []int64) (_ map[int64]int, err error) {
	defer func(start time.Time) { observe("ratings", start, err) }(time.Now())

	out := make(map[int64]int, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []profileRow
	if err := s.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load ratings: %w", err)
	}
	for _, r := range rows {
		out[r.UserID] = r.Rating
	}
	return out, nil
}

// RateFunc turns the current ratings of a contest's users into their
// rating changes. Users without a profile are absent from old.
type RateFunc func(old map[int64]int) []model.RatingChange

// CommitRating flips the contest's rating_applied flag, reads the current
// ratings of userIDs with their rows locked, hands them to rate and writes
// the result, all in one transaction. The flag flip is a conditional update;
// when it matches no row the transaction rolls back and ErrAlreadyApplied
// (or ErrNotFound) is returned, so a contest is rated at most once. The row
// locks keep contests that share users from overwriting each other.
func (s *Store) CommitRating(ctx context.Context, contestID int64, userIDs []int64, rate RateFunc) (_ []model.RatingChange, err error) {
	defer func(start time.Time) { observe("commit_rating", start, err) }(time.Now())

	var changes []model.RatingChange
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&contestRow{}).
			Where("id = ? AND rating_applied = ?", contestID, false).
			Update("rating_applied", true)
		if res.Error != nil {
			return fmt.Errorf("flag contest %d: %w", contestID, res.Error)
		}
		if res.RowsAffected == 0 {
			var n int64
			if err := tx.Model(&contestRow{}).Where("id = ?", contestID).Count(&n).Error; err != nil {
				return fmt.Errorf("check contest %d: %w", contestID, err)
			}
			if n == 0 {
				return fmt.Errorf("contest %d: %w", contestID, ErrNotFound)
			}
			return fmt.Errorf("contest %d: %w", contestID, ErrAlreadyApplied)
		}

		old := make(map[int64]int, len(userIDs))
		if len(userIDs) > 0 {
			var rows []profileRow
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("user_id IN ?", userIDs).
				Order("user_id").
				Find(&rows).Error; err != nil {
				return fmt.Errorf("lock ratings of %d: %w", contestID, err)
			}
			for _, r := range rows {
				old[r.UserID] = r.Rating
			}
		}

		changes = rate(old)
		for _, c := range changes {
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "user_id"}},
				DoUpdates: clause.AssignmentColumns([]string{"rating"}),
			}).Create(&profileRow{UserID: c.UserID, Rating: c.New}).Error; err != nil {
				return fmt.Errorf("rate user %d: %w", c.UserID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return changes, nil
}

// UpsertContest stores contest metadata and problems imported from the
// judge. The rating flag and participant rows are never touched.
func (s *Store) UpsertContest(ctx context.Context, contest model.Contest, problems []model.Problem) (err error) {
	defer func(start time.Time) { observe("upsert_contest", start, err) }(time.Now())

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := contestRow{
			ID:        contest.ID,
			Name:      contest.Name,
			StartTime: contest.StartTime.UTC(),
			EndTime:   contest.EndTime.UTC(),
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "start_time", "end_time"}),
		}).Create(&row).Error; err != nil {
			return fmt.Errorf("upsert contest %d: %w", contest.ID, err)
		}

		if len(problems) == 0 {
			return nil
		}
		rows := make([]problemRow, len(problems))
		for i, p := range problems {
			rows[i] = problemRow{
				ContestID: contest.ID,
				Index:     p.Index,
				Name:      p.Name,
				Points:    p.Points,
				Rating:    p.Rating,
				URL:       p.URL,
			}
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "contest_id"}, {Name: "problem_index"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "points", "rating", "url"}),
		}).Create(&rows).Error; err != nil {
			return fmt.Errorf("upsert problems of %d: %w", contest.ID, err)
		}
		return nil
	})
}

// SaveProfile creates or updates a user's handle. A new profile starts at
// the default rating unless p.Rating is set; an existing rating is kept.
func (s *Store) SaveProfile(ctx context.Context, p model.Profile) (err error) {
	defer func(start time.Time) { observe("save_profile", start, err) }(time.Now())

	rating := p.Rating
	if rating <= 0 {
		rating = s.defaultRating
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"handle"}),
	}).Create(&profileRow{UserID: p.UserID, Handle: p.Handle, Rating: rating}).Error; err != nil {
		return fmt.Errorf("save profile %d: %w", p.UserID, err)
	}
	return nil
}

// Register adds a user to a contest. Registering twice is a no-op that
// returns the existing participant.
func (s *Store) Register(ctx context.Context, contestID, userID int64) (_ model.Participant, err error) {
	defer func(start time.Time) { observe("register", start, err) }(time.Now())

	if _, err := s.Contest(ctx, contestID); err != nil {
		return model.Participant{}, err
	}
	row := participantRow{ContestID: contestID, UserID: userID}
	if err := s.db.WithContext(ctx).
		Where(participantRow{ContestID: contestID, UserID: userID}).
		FirstOrCreate(&row).Error; err != nil {
		return model.Participant{}, fmt.Errorf("register user %d in %d: %w", userID, contestID, err)
	}

	var profile profileRow
	handle := ""
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Limit(1).Find(&profile).Error; err == nil {
		handle = profile.Handle
	}
	return row.toModel(handle), nil
}
