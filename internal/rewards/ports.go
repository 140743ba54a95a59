package rewards

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/jgirmay/alif24/internal/models"
)

// ErrStaleStats is returned by SaveStats when the student row moved since it was read.
var ErrStaleStats = stderrors.New("student statistics were modified concurrently")

// ErrSessionEnded is returned by FinishGameSession when the session is already completed.
var ErrSessionEnded = stderrors.New("game session already ended")

// ContentLookup reads lessons and games and folds activity results into their
// aggregate columns.
type ContentLookup interface {
	Lesson(ctx context.Context, id uuid.UUID) (*models.Lesson, error)
	Game(ctx context.Context, id uuid.UUID) (*models.Game, error)
	RecordLessonCompletion(ctx context.Context, lessonID uuid.UUID, score float64) error
	RecordGamePlay(ctx context.Context, gameID uuid.UUID, score float64) error
}

// StudentStatsStore reads and version-checks writes of student aggregates.
type StudentStatsStore interface {
	Student(ctx context.Context, id uuid.UUID) (*models.StudentProfile, error)
	SaveStats(ctx context.Context, student *models.StudentProfile) error
}

// ProgressCompletion is one lesson completion to merge into the student's
// progress row.
type ProgressCompletion struct {
	StudentID   uuid.UUID
	LessonID    uuid.UUID
	Score       float64
	TimeSpent   int
	Points      int
	Answers     datatypes.JSON
	CompletedAt time.Time
}

// ActivityLog persists progress rows and game sessions.
type ActivityLog interface {
	StartProgress(ctx context.Context, studentID, lessonID uuid.UUID) (*models.Progress, error)
	MergeCompletion(ctx context.Context, c ProgressCompletion) (*models.Progress, error)
	CreateGameSession(ctx context.Context, session *models.GameSession) error
	GameSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error)
	FinishGameSession(ctx context.Context, session *models.GameSession) error
}

// AchievementStore reads achievements and records awards.
type AchievementStore interface {
	Achievement(ctx context.Context, id uuid.UUID) (*models.Achievement, error)
	// FindOrCreateAward reports created=false when the pair already existed.
	FindOrCreateAward(ctx context.Context, studentID, achievementID uuid.UUID, earnedAt time.Time) (*models.StudentAchievement, bool, error)
}

// Store is everything the engine persists through. Calls made with the
// context handed to InTx's fn join that transaction.
type Store interface {
	ContentLookup
	StudentStatsStore
	ActivityLog
	AchievementStore
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Events receives committed reward mutations. Implementations must not fail
// the caller; they log their own errors.
type Events interface {
	StatsChanged(ctx context.Context, student *models.StudentProfile)
	AchievementAwarded(ctx context.Context, student *models.StudentProfile, achievement *models.Achievement)
}

// FanOut delivers every event to each listener in order.
type FanOut []Events

func (f FanOut) StatsChanged(ctx context.Context, student *models.StudentProfile) {
	for _, e := range f {
		e.StatsChanged(ctx, student)
	}
}

func (f FanOut) AchievementAwarded(ctx context.Context, student *models.StudentProfile, achievement *models.Achievement) {
	for _, e := range f {
		e.AchievementAwarded(ctx, student, achievement)
	}
}
