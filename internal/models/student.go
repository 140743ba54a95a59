package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/jgirmay/alif24/internal/common/database"
)

type StudentPreferences struct {
	FavoriteSubjects  []string `json:"favoriteSubjects"`
	LearningStyle     string   `json:"learningStyle"`
	SoundEnabled      bool     `json:"soundEnabled"`
	AnimationsEnabled bool     `json:"animationsEnabled"`
}

func DefaultStudentPreferences() StudentPreferences {
	return StudentPreferences{
		FavoriteSubjects:  []string{},
		LearningStyle:     "visual",
		SoundEnabled:      true,
		AnimationsEnabled: true,
	}
}

// StudentProfile holds a student's learning aggregates. The reward engine is
// the only writer of the stat fields; Version guards those writes.
type StudentProfile struct {
	database.BaseModel
	UserID                uuid.UUID                              `gorm:"uniqueIndex;not null" json:"userId"`
	DateOfBirth           time.Time                              `gorm:"not null" json:"dateOfBirth"`
	Grade                 string                                 `gorm:"size:50" json:"grade,omitempty"`
	Level                 int                                    `gorm:"not null;default:1" json:"level"`
	TotalPoints           int                                    `gorm:"not null;default:0" json:"totalPoints"`
	TotalLessonsCompleted int                                    `gorm:"not null;default:0" json:"totalLessonsCompleted"`
	TotalGamesPlayed      int                                    `gorm:"not null;default:0" json:"totalGamesPlayed"`
	AverageScore          float64                                `gorm:"not null;default:0" json:"averageScore"`
	CurrentStreak         int                                    `gorm:"not null;default:0" json:"currentStreak"`
	LongestStreak         int                                    `gorm:"not null;default:0" json:"longestStreak"`
	LastActivityAt        *time.Time                             `json:"lastActivityAt,omitempty"`
	Preferences           datatypes.JSONType[StudentPreferences] `json:"preferences"`
	Version               int                                    `gorm:"not null;default:0" json:"-"`
	User                  *User                                  `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

// ActivityCount is the number of scored activities folded into AverageScore.
func (s *StudentProfile) ActivityCount() int {
	return s.TotalLessonsCompleted + s.TotalGamesPlayed
}

// Age returns the student's age in whole years at the given instant.
func (s *StudentProfile) Age(now time.Time) int {
	age := now.Year() - s.DateOfBirth.Year()
	dob := s.DateOfBirth
	if now.Month() < dob.Month() || (now.Month() == dob.Month() && now.Day() < dob.Day()) {
		age--
	}
	return age
}

// DefaultDateOfBirth is used when a student registers without one.
var DefaultDateOfBirth = time.Date(2019, time.January, 1, 0, 0, 0, 0, time.UTC)
