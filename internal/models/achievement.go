package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/jgirmay/alif24/internal/common/database"
)

type AchievementType string

const (
	AchievementBadge       AchievementType = "badge"
	AchievementTrophy      AchievementType = "trophy"
	AchievementCertificate AchievementType = "certificate"
	AchievementMilestone   AchievementType = "milestone"
)

type AchievementCategory string

const (
	CategoryLearning AchievementCategory = "learning"
	CategoryStreak   AchievementCategory = "streak"
	CategorySocial   AchievementCategory = "social"
	CategoryGame     AchievementCategory = "game"
	CategorySpecial  AchievementCategory = "special"
)

// Criteria is the predicate an achievement's evaluator checks. Zero fields are
// ignored; an achievement with no populated field never matches.
type Criteria struct {
	LessonsCompleted int     `json:"lessonsCompleted,omitempty"`
	GamesPlayed      int     `json:"gamesPlayed,omitempty"`
	StreakDays       int     `json:"streakDays,omitempty"`
	TotalPoints      int     `json:"totalPoints,omitempty"`
	AverageScore     float64 `json:"averageScore,omitempty"`
	Level            int     `json:"level,omitempty"`
	PerfectScore     bool    `json:"perfectScore,omitempty"`
	SubjectCompleted string  `json:"subjectCompleted,omitempty"`
}

type Achievement struct {
	database.BaseModel
	Name          string                       `gorm:"size:100;not null" json:"name"`
	NameUz        string                       `gorm:"size:100;not null" json:"nameUz"`
	NameRu        string                       `gorm:"size:100;not null" json:"nameRu"`
	Description   string                       `json:"description,omitempty"`
	DescriptionUz string                       `json:"descriptionUz,omitempty"`
	DescriptionRu string                       `json:"descriptionRu,omitempty"`
	Icon          string                       `gorm:"size:500" json:"icon,omitempty"`
	Type          AchievementType              `gorm:"size:20;not null;default:badge" json:"type"`
	Category      AchievementCategory          `gorm:"size:20;not null;default:learning" json:"category"`
	Criteria      datatypes.JSONType[Criteria] `json:"criteria"`
	PointsReward  int                          `gorm:"not null;default:50" json:"pointsReward"`
	IsActive      bool                         `gorm:"not null" json:"isActive"`
	Order         int                          `gorm:"column:sort_order;not null;default:0" json:"order"`
}

// StudentAchievement records that a student earned an achievement. The pair is unique.
type StudentAchievement struct {
	database.BaseModel
	StudentID     uuid.UUID      `gorm:"uniqueIndex:idx_student_achievement;not null" json:"studentId"`
	AchievementID uuid.UUID      `gorm:"uniqueIndex:idx_student_achievement;not null" json:"achievementId"`
	EarnedAt      time.Time      `gorm:"not null" json:"earnedAt"`
	Progress      datatypes.JSON `json:"progress,omitempty"`
	Achievement   *Achievement   `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
}
