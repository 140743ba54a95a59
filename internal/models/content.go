package models

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/jgirmay/alif24/internal/common/database"
)

const (
	MinAge   = 4
	MaxAge   = 7
	MinLevel = 1
	MaxLevel = 10

	DefaultLessonPoints      = 10
	DefaultGamePoints        = 5
	DefaultAchievementPoints = 50
)

type AgeRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

type Subject struct {
	database.BaseModel
	Name          string                       `gorm:"size:100;not null" json:"name"`
	NameUz        string                       `gorm:"size:100;not null" json:"nameUz"`
	NameRu        string                       `gorm:"size:100;not null" json:"nameRu"`
	Description   string                       `json:"description,omitempty"`
	DescriptionUz string                       `json:"descriptionUz,omitempty"`
	DescriptionRu string                       `json:"descriptionRu,omitempty"`
	Icon          string                       `gorm:"size:500" json:"icon,omitempty"`
	Color         string                       `gorm:"size:20;not null;default:'#4A90A4'" json:"color"`
	Order         int                          `gorm:"column:sort_order;not null;default:0" json:"order"`
	IsActive      bool                         `gorm:"not null;index" json:"isActive"`
	AgeRange      datatypes.JSONType[AgeRange] `json:"ageRange"`
}

type LessonType string

const (
	LessonVideo       LessonType = "video"
	LessonInteractive LessonType = "interactive"
	LessonReading     LessonType = "reading"
	LessonQuiz        LessonType = "quiz"
	LessonActivity    LessonType = "activity"
)

// Lesson is authored content. TotalCompletions and AverageRating are maintained
// by the reward engine.
type Lesson struct {
	database.BaseModel
	SubjectID        uuid.UUID      `gorm:"not null;index" json:"subjectId"`
	TeacherID        *uuid.UUID     `gorm:"index" json:"teacherId,omitempty"`
	Title            string         `gorm:"size:200;not null" json:"title"`
	TitleUz          string         `gorm:"size:200;not null" json:"titleUz"`
	TitleRu          string         `gorm:"size:200;not null" json:"titleRu"`
	Description      string         `json:"description,omitempty"`
	DescriptionUz    string         `json:"descriptionUz,omitempty"`
	DescriptionRu    string         `json:"descriptionRu,omitempty"`
	Content          datatypes.JSON `json:"content"`
	Type             LessonType     `gorm:"size:20;not null;default:interactive;index" json:"type"`
	Level            int            `gorm:"not null;default:1;index" json:"level"`
	AgeMin           int            `gorm:"not null;default:4" json:"ageMin"`
	AgeMax           int            `gorm:"not null;default:7" json:"ageMax"`
	Duration         int            `gorm:"not null;default:15" json:"duration"` // minutes
	PointsReward     int            `gorm:"not null;default:10" json:"pointsReward"`
	Thumbnail        string         `gorm:"size:500" json:"thumbnail,omitempty"`
	VideoURL         string         `gorm:"size:500" json:"videoUrl,omitempty"`
	Order            int            `gorm:"column:sort_order;not null;default:0" json:"order"`
	IsActive         bool           `gorm:"not null;index" json:"isActive"`
	IsAIGenerated    bool           `gorm:"column:is_ai_generated;not null;default:false" json:"isAiGenerated"`
	TotalCompletions int            `gorm:"not null;default:0" json:"totalCompletions"`
	AverageRating    float64        `gorm:"not null;default:0" json:"averageRating"`
	Subject          *Subject       `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
}

type GameType string

const (
	GamePuzzle    GameType = "puzzle"
	GameMemory    GameType = "memory"
	GameMatching  GameType = "matching"
	GameQuiz      GameType = "quiz"
	GameAdventure GameType = "adventure"
	GameCounting  GameType = "counting"
	GameSpelling  GameType = "spelling"
)

// Game is playable content. TotalPlays and AverageScore are maintained by the
// reward engine.
type Game struct {
	database.BaseModel
	SubjectID     *uuid.UUID     `gorm:"index" json:"subjectId,omitempty"`
	Name          string         `gorm:"size:200;not null" json:"name"`
	NameUz        string         `gorm:"size:200;not null" json:"nameUz"`
	NameRu        string         `gorm:"size:200;not null" json:"nameRu"`
	Description   string         `json:"description,omitempty"`
	DescriptionUz string         `json:"descriptionUz,omitempty"`
	DescriptionRu string         `json:"descriptionRu,omitempty"`
	Type          GameType       `gorm:"size:20;not null;default:puzzle;index" json:"type"`
	Level         int            `gorm:"not null;default:1;index" json:"level"`
	AgeMin        int            `gorm:"not null;default:4" json:"ageMin"`
	AgeMax        int            `gorm:"not null;default:7" json:"ageMax"`
	Config        datatypes.JSON `json:"config"`
	Thumbnail     string         `gorm:"size:500" json:"thumbnail,omitempty"`
	PointsReward  int            `gorm:"not null;default:5" json:"pointsReward"`
	TimeLimit     int            `gorm:"not null;default:0" json:"timeLimit"` // seconds, 0 = no limit
	IsActive      bool           `gorm:"not null;index" json:"isActive"`
	TotalPlays    int            `gorm:"not null;default:0" json:"totalPlays"`
	AverageScore  float64        `gorm:"not null;default:0" json:"averageScore"`
	Subject       *Subject       `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
}
