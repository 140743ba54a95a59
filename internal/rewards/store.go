package rewards

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/repository"
	"github.com/jgirmay/alif24/internal/models"
)

// GormStore implements Store on gorm.
type GormStore struct {
	db           *gorm.DB
	lessons      *repository.Store[models.Lesson]
	games        *repository.Store[models.Game]
	students     *repository.Store[models.StudentProfile]
	progress     *repository.Store[models.Progress]
	sessions     *repository.Store[models.GameSession]
	achievements *repository.Store[models.Achievement]
	awards       *repository.Store[models.StudentAchievement]
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{
		db:           db,
		lessons:      repository.NewStore[models.Lesson](db, "Lesson", repository.TombstoneOn("is_active")),
		games:        repository.NewStore[models.Game](db, "Game", repository.Hard),
		students:     repository.NewStore[models.StudentProfile](db, "Student", repository.Hard),
		progress:     repository.NewStore[models.Progress](db, "Progress", repository.Hard),
		sessions:     repository.NewStore[models.GameSession](db, "Game session", repository.Hard),
		achievements: repository.NewStore[models.Achievement](db, "Achievement", repository.TombstoneOn("is_active")),
		awards:       repository.NewStore[models.StudentAchievement](db, "Student achievement", repository.Hard),
	}
}

func (s *GormStore) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return database.InTx(ctx, s.db, fn)
}

func (s *GormStore) Lesson(ctx context.Context, id uuid.UUID) (*models.Lesson, error) {
	return s.lessons.FindByID(ctx, id)
}

func (s *GormStore) Game(ctx context.Context, id uuid.UUID) (*models.Game, error) {
	return s.games.FindByID(ctx, id)
}

// RecordLessonCompletion folds score into the lesson's rating. Both columns are
// computed from the row's current values in one statement.
func (s *GormStore) RecordLessonCompletion(ctx context.Context, lessonID uuid.UUID, score float64) error {
	return s.bumpAggregate(ctx, &models.Lesson{}, s.lessons.Resource(), lessonID, "total_completions", "average_rating", score)
}

func (s *GormStore) RecordGamePlay(ctx context.Context, gameID uuid.UUID, score float64) error {
	return s.bumpAggregate(ctx, &models.Game{}, s.games.Resource(), gameID, "total_plays", "average_score", score)
}

func (s *GormStore) bumpAggregate(ctx context.Context, model interface{}, resource string, id uuid.UUID, countCol, avgCol string, score float64) error {
	mean := gorm.Expr(
		"CASE WHEN "+countCol+" <= 0 THEN ? ELSE ("+avgCol+" * "+countCol+" + ?) / ("+countCol+" + 1) END",
		score, score,
	)
	result := database.Conn(ctx, s.db).Model(model).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			avgCol:   mean,
			countCol: gorm.Expr(countCol + " + 1"),
		})
	if result.Error != nil {
		return errors.FromGorm(result.Error, resource)
	}
	if result.RowsAffected == 0 {
		return errors.NotFound(resource)
	}
	return nil
}

func (s *GormStore) Student(ctx context.Context, id uuid.UUID) (*models.StudentProfile, error) {
	return s.students.FindByID(ctx, id)
}

// SaveStats writes the aggregate fields only if the row still carries the
// version that was read, and bumps it.
func (s *GormStore) SaveStats(ctx context.Context, st *models.StudentProfile) error {
	result := s.students.Conn(ctx).Model(&models.StudentProfile{}).
		Where("id = ? AND version = ?", st.ID, st.Version).
		Updates(map[string]interface{}{
			"level":                   st.Level,
			"total_points":            st.TotalPoints,
			"total_lessons_completed": st.TotalLessonsCompleted,
			"total_games_played":      st.TotalGamesPlayed,
			"average_score":           st.AverageScore,
			"current_streak":          st.CurrentStreak,
			"longest_streak":          st.LongestStreak,
			"last_activity_at":        st.LastActivityAt,
			"version":                 gorm.Expr("version + 1"),
		})
	if result.Error != nil {
		return errors.FromGorm(result.Error, s.students.Resource())
	}
	if result.RowsAffected == 0 {
		return ErrStaleStats
	}
	st.Version++
	return nil
}

var progressKey = []clause.Column{{Name: "student_id"}, {Name: "lesson_id"}}

func (s *GormStore) findProgress(ctx context.Context, studentID, lessonID uuid.UUID) (*models.Progress, error) {
	return s.progress.FindOne(ctx,
		repository.Where("student_id = ? AND lesson_id = ?", studentID, lessonID),
	)
}

// StartProgress creates an in_progress row if none exists and promotes a
// not_started one. Completed rows are left alone.
func (s *GormStore) StartProgress(ctx context.Context, studentID, lessonID uuid.UUID) (*models.Progress, error) {
	conn := s.progress.Conn(ctx)

	p := models.Progress{StudentID: studentID, LessonID: lessonID, Status: models.StatusInProgress}
	err := conn.Clauses(clause.OnConflict{Columns: progressKey, DoNothing: true}).Create(&p).Error
	if err != nil {
		return nil, errors.FromGorm(err, s.progress.Resource())
	}

	err = conn.Model(&models.Progress{}).
		Where("student_id = ? AND lesson_id = ? AND status = ?", studentID, lessonID, models.StatusNotStarted).
		Update("status", models.StatusInProgress).Error
	if err != nil {
		return nil, errors.FromGorm(err, s.progress.Resource())
	}
	return s.findProgress(ctx, studentID, lessonID)
}

// MergeCompletion upserts the (student, lesson) row: a fresh row starts at one
// attempt; an existing one accumulates time, attempts and points while score
// and answers are replaced.
func (s *GormStore) MergeCompletion(ctx context.Context, c ProgressCompletion) (*models.Progress, error) {
	at := c.CompletedAt
	p := models.Progress{
		StudentID:    c.StudentID,
		LessonID:     c.LessonID,
		Status:       models.StatusCompleted,
		Score:        c.Score,
		PointsEarned: c.Points,
		TimeSpent:    c.TimeSpent,
		Attempts:     1,
		CompletedAt:  &at,
		Answers:      c.Answers,
	}

	existing := models.ProgressTable + "."
	err := s.progress.Conn(ctx).Clauses(clause.OnConflict{
		Columns: progressKey,
		DoUpdates: clause.Assignments(map[string]interface{}{
			"status":        models.StatusCompleted,
			"score":         c.Score,
			"time_spent":    gorm.Expr(existing+"time_spent + ?", c.TimeSpent),
			"attempts":      gorm.Expr(existing + "attempts + 1"),
			"points_earned": gorm.Expr(existing+"points_earned + ?", c.Points),
			"answers":       c.Answers,
			"completed_at":  at,
			"updated_at":    at,
		}),
	}).Create(&p).Error
	if err != nil {
		return nil, errors.FromGorm(err, s.progress.Resource())
	}
	return s.findProgress(ctx, c.StudentID, c.LessonID)
}

func (s *GormStore) CreateGameSession(ctx context.Context, session *models.GameSession) error {
	return s.sessions.Create(ctx, session)
}

func (s *GormStore) GameSession(ctx context.Context, id uuid.UUID) (*models.GameSession, error) {
	return s.sessions.FindByID(ctx, id)
}

// FinishGameSession records the result on a session that is still open.
func (s *GormStore) FinishGameSession(ctx context.Context, session *models.GameSession) error {
	result := s.sessions.Conn(ctx).Model(&models.GameSession{}).
		Where("id = ? AND is_completed = ?", session.ID, false).
		Updates(map[string]interface{}{
			"score":         session.Score,
			"points_earned": session.PointsEarned,
			"time_spent":    session.TimeSpent,
			"game_data":     session.GameData,
			"is_completed":  true,
			"ended_at":      session.EndedAt,
		})
	if result.Error != nil {
		return errors.FromGorm(result.Error, s.sessions.Resource())
	}
	if result.RowsAffected == 0 {
		return ErrSessionEnded
	}
	return nil
}

func (s *GormStore) Achievement(ctx context.Context, id uuid.UUID) (*models.Achievement, error) {
	return s.achievements.FindByID(ctx, id)
}

func (s *GormStore) FindOrCreateAward(ctx context.Context, studentID, achievementID uuid.UUID, earnedAt time.Time) (*models.StudentAchievement, bool, error) {
	award := models.StudentAchievement{
		StudentID:     studentID,
		AchievementID: achievementID,
		EarnedAt:      earnedAt,
	}
	result := s.awards.Conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "achievement_id"}},
		DoNothing: true,
	}).Create(&award)
	if result.Error != nil {
		return nil, false, errors.FromGorm(result.Error, s.awards.Resource())
	}

	stored, err := s.awards.FindOne(ctx,
		repository.Where("student_id = ? AND achievement_id = ?", studentID, achievementID),
		repository.Preload("Achievement"),
	)
	if err != nil {
		return nil, false, err
	}
	return stored, result.RowsAffected > 0, nil
}
