package repository

import (
	"time"

	"github.com/okian/podium/internal/domain/model"
)

// contestRow mirrors a judge contest; the id is the judge's contest id.
type contestRow struct {
	ID            int64     `gorm:"primaryKey;autoIncrement:false"`
	Name          string    `gorm:"size:100"`
	StartTime     time.Time `gorm:"index:idx_contest_window,priority:1"`
	EndTime       time.Time `gorm:"index:idx_contest_window,priority:2"`
	RatingApplied bool      `gorm:"not null;default:false"`
}

func (contestRow) TableName() string { return "contests" }

func (r contestRow) toModel() model.Contest {
	return model.Contest{
		ID:            r.ID,
		Name:          r.Name,
		StartTime:     r.StartTime.UTC(),
		EndTime:       r.EndTime.UTC(),
		RatingApplied: r.RatingApplied,
	}
}

type problemRow struct {
	ID        int64   `gorm:"primaryKey"`
	ContestID int64   `gorm:"not null;uniqueIndex:idx_problem_contest_index,priority:1"`
	Index     string  `gorm:"column:problem_index;size:10;not null;uniqueIndex:idx_problem_contest_index,priority:2"`
	Name      string  `gorm:"size:255"`
	Points    float64 `gorm:"not null;default:0"`
	Rating    int     `gorm:"not null;default:0"`
	URL       string  `gorm:"size:200"`
}

func (problemRow) TableName() string { return "problems" }

func (r problemRow) toModel() model.Problem {
	return model.Problem{
		ContestID: r.ContestID,
		Index:     r.Index,
		Name:      r.Name,
		Points:    r.Points,
		Rating:    r.Rating,
		URL:       r.URL,
	}
}

type participantRow struct {
	ID            int64   `gorm:"primaryKey"`
	UserID        int64   `gorm:"not null;uniqueIndex:idx_participant_user_contest,priority:1"`
	ContestID     int64   `gorm:"not null;uniqueIndex:idx_participant_user_contest,priority:2;index"`
	ProblemStatus string  `gorm:"size:255;not null;default:''"`
	TotalScore    float64 `gorm:"not null;default:0"`
	Penalty       int     `gorm:"not null;default:0"`
}

func (participantRow) TableName() string { return "participants" }

func (r participantRow) toModel(handle string) model.Participant {
	return model.Participant{
		ID:            r.ID,
		UserID:        r.UserID,
		ContestID:     r.ContestID,
		Handle:        handle,
		ProblemStatus: r.ProblemStatus,
		TotalScore:    r.TotalScore,
		Penalty:       r.Penalty,
	}
}

// profileRow carries the judge handle and rating of a user.
type profileRow struct {
	UserID int64  `gorm:"primaryKey;autoIncrement:false"`
	Handle string `gorm:"size:64;index"`
	Rating int    `gorm:"not null"`
}

func (profileRow) TableName() string { return "profiles" }
