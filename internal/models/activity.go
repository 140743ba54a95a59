package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/jgirmay/alif24/internal/common/database"
)

type ProgressStatus string

const (
	StatusNotStarted ProgressStatus = "not_started"
	StatusInProgress ProgressStatus = "in_progress"
	StatusCompleted  ProgressStatus = "completed"
)

// ProgressTable names the progress table; upserts reference it in SQL.
const ProgressTable = "progress"

// Progress is the single record of one student's work on one lesson.
type Progress struct {
	database.BaseModel
	StudentID    uuid.UUID      `gorm:"uniqueIndex:idx_progress_student_lesson;not null" json:"studentId"`
	LessonID     uuid.UUID      `gorm:"uniqueIndex:idx_progress_student_lesson;not null;index" json:"lessonId"`
	Status       ProgressStatus `gorm:"size:20;not null;default:not_started" json:"status"`
	Score        float64        `gorm:"not null;default:0" json:"score"`
	PointsEarned int            `gorm:"not null;default:0" json:"pointsEarned"`
	TimeSpent    int            `gorm:"not null;default:0" json:"timeSpent"` // seconds, cumulative
	Attempts     int            `gorm:"not null;default:0" json:"attempts"`
	CompletedAt  *time.Time     `json:"completedAt,omitempty"`
	Answers      datatypes.JSON `json:"answers"`
	Feedback     string         `json:"feedback,omitempty"`
	Lesson       *Lesson        `gorm:"foreignKey:LessonID" json:"lesson,omitempty"`
}

func (Progress) TableName() string {
	return ProgressTable
}

// GameSession is one play attempt. A student may have many per game.
type GameSession struct {
	database.BaseModel
	StudentID    uuid.UUID      `gorm:"not null;index" json:"studentId"`
	GameID       uuid.UUID      `gorm:"not null;index" json:"gameId"`
	Score        int            `gorm:"not null;default:0" json:"score"`
	PointsEarned int            `gorm:"not null;default:0" json:"pointsEarned"`
	TimeSpent    int            `gorm:"not null;default:0" json:"timeSpent"`
	Level        int            `gorm:"not null;default:1" json:"level"`
	IsCompleted  bool           `gorm:"not null;default:false" json:"isCompleted"`
	GameData     datatypes.JSON `json:"gameData"`
	StartedAt    time.Time      `gorm:"not null" json:"startedAt"`
	EndedAt      *time.Time     `json:"endedAt,omitempty"`
	Game         *Game          `gorm:"foreignKey:GameID" json:"game,omitempty"`
}
