// Package rewards turns learning activity into student statistics: points,
// running averages, streaks, levels and achievement awards.
package rewards

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/metrics"
	"github.com/jgirmay/alif24/internal/common/validation"
	"github.com/jgirmay/alif24/internal/models"
)

const defaultRetries = 3

// LessonResult is what a student submits when finishing a lesson.
type LessonResult struct {
	Score     float64        `json:"score" validate:"gte=0,lte=100"`
	TimeSpent int            `json:"timeSpent" validate:"gte=0"`
	Answers   datatypes.JSON `json:"answers"`
}

// GameResult is what the client reports when a game session ends.
type GameResult struct {
	Score     int            `json:"score" validate:"gte=0"`
	TimeSpent int            `json:"timeSpent" validate:"gte=0"`
	GameData  datatypes.JSON `json:"gameData"`
}

// LessonOutcome is the committed result of CompleteLesson.
type LessonOutcome struct {
	Progress     *models.Progress       `json:"progress"`
	Student      *models.StudentProfile `json:"student"`
	PointsEarned int                    `json:"pointsEarned"`
}

// GameOutcome is the committed result of EndGameSession.
type GameOutcome struct {
	Session *models.GameSession    `json:"session"`
	Student *models.StudentProfile `json:"student"`
}

// Award is the committed result of AwardAchievement.
type Award struct {
	StudentAchievement *models.StudentAchievement `json:"studentAchievement"`
	Created            bool                       `json:"created"`
}

type Engine struct {
	store   Store
	log     *zap.Logger
	metrics *metrics.Metrics
	events  Events
	now     func() time.Time
	retries int
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithEvents(events Events) Option {
	return func(e *Engine) { e.events = events }
}

// WithRetries bounds how many times a unit of work is attempted when the
// student row changes underneath it.
func WithRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.retries = n
		}
	}
}

func NewEngine(store Store, log *zap.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		log:     log,
		events:  FanOut(nil),
		now:     time.Now,
		retries: defaultRetries,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// atomically runs fn in a transaction, rerunning it from scratch when the
// student version check fails.
func (e *Engine) atomically(ctx context.Context, op string, subject zap.Field, fn func(ctx context.Context) error) error {
	for attempt := 1; ; attempt++ {
		err := e.store.InTx(ctx, fn)
		if !stderrors.Is(err, ErrStaleStats) {
			return err
		}

		e.metrics.StaleWrite()
		e.log.Warn("Stale student statistics, retrying",
			zap.String("operation", op),
			subject,
			zap.Int("attempt", attempt),
		)
		if attempt >= e.retries {
			return errors.Conflict("Student statistics changed concurrently, please retry")
		}
	}
}

// recordActivity folds one scored activity into the student's aggregates.
// The average uses the activity count from before this activity.
func recordActivity(st *models.StudentProfile, score float64, points int, now time.Time) {
	st.AverageScore = RunningMean(st.AverageScore, st.ActivityCount(), score)
	st.TotalPoints += points

	streak := NextStreak(Streak{
		Current:        st.CurrentStreak,
		Longest:        st.LongestStreak,
		LastActivityAt: st.LastActivityAt,
	}, now)
	st.CurrentStreak = streak.Current
	st.LongestStreak = streak.Longest
	st.LastActivityAt = streak.LastActivityAt
}

// StartLesson marks the lesson as in progress for the student.
func (e *Engine) StartLesson(ctx context.Context, studentID, lessonID uuid.UUID) (*models.Progress, error) {
	lesson, err := e.store.Lesson(ctx, lessonID)
	if err != nil {
		return nil, err
	}
	if !lesson.IsActive {
		return nil, errors.NotFound("Lesson")
	}
	if _, err := e.store.Student(ctx, studentID); err != nil {
		return nil, err
	}
	return e.store.StartProgress(ctx, studentID, lessonID)
}

// CompleteLesson records a lesson completion and credits the student.
func (e *Engine) CompleteLesson(ctx context.Context, studentID, lessonID uuid.UUID, in LessonResult) (*LessonOutcome, error) {
	if err := validation.Check(in); err != nil {
		return nil, err
	}

	var out *LessonOutcome
	err := e.atomically(ctx, "complete_lesson", zap.String("student_id", studentID.String()), func(ctx context.Context) error {
		lesson, err := e.store.Lesson(ctx, lessonID)
		if err != nil {
			return err
		}
		if !lesson.IsActive {
			return errors.NotFound("Lesson")
		}
		student, err := e.store.Student(ctx, studentID)
		if err != nil {
			return err
		}

		now := e.now()
		progress, err := e.store.MergeCompletion(ctx, ProgressCompletion{
			StudentID:   studentID,
			LessonID:    lessonID,
			Score:       in.Score,
			TimeSpent:   in.TimeSpent,
			Points:      lesson.PointsReward,
			Answers:     in.Answers,
			CompletedAt: now,
		})
		if err != nil {
			return err
		}

		recordActivity(student, in.Score, lesson.PointsReward, now)
		student.TotalLessonsCompleted++
		if err := e.store.SaveStats(ctx, student); err != nil {
			return err
		}
		if err := e.store.RecordLessonCompletion(ctx, lessonID, in.Score); err != nil {
			return err
		}

		out = &LessonOutcome{Progress: progress, Student: student, PointsEarned: lesson.PointsReward}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.metrics.LessonCompleted(out.PointsEarned)
	e.log.Info("Lesson completed",
		zap.String("student_id", studentID.String()),
		zap.String("lesson_id", lessonID.String()),
		zap.Float64("score", in.Score),
		zap.Int("points", out.PointsEarned),
		zap.Int("streak", out.Student.CurrentStreak),
	)
	e.events.StatsChanged(ctx, out.Student)
	return out, nil
}

// StartGameSession opens a session on an active game. Level 0 means level 1.
func (e *Engine) StartGameSession(ctx context.Context, studentID, gameID uuid.UUID, level int) (*models.GameSession, error) {
	if level == 0 {
		level = models.MinLevel
	}
	if err := validation.ValidateIntRange(level, models.MinLevel, models.MaxLevel); err != nil {
		return nil, errors.Validation("Invalid level", []validation.ValidationError{{Field: "level", Message: err.Error()}})
	}

	game, err := e.store.Game(ctx, gameID)
	if err != nil {
		return nil, err
	}
	if !game.IsActive {
		return nil, errors.NotFound("Game")
	}
	if _, err := e.store.Student(ctx, studentID); err != nil {
		return nil, err
	}

	session := &models.GameSession{
		StudentID: studentID,
		GameID:    gameID,
		Level:     level,
		StartedAt: e.now(),
	}
	if err := e.store.CreateGameSession(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

// EndGameSession closes an open session and credits the student with the
// game's reward.
func (e *Engine) EndGameSession(ctx context.Context, sessionID uuid.UUID, in GameResult) (*GameOutcome, error) {
	if err := validation.Check(in); err != nil {
		return nil, err
	}

	var (
		out       *GameOutcome
		studentID uuid.UUID
	)
	err := e.atomically(ctx, "end_game_session", zap.String("session_id", sessionID.String()), func(ctx context.Context) error {
		session, err := e.store.GameSession(ctx, sessionID)
		if err != nil {
			return err
		}
		if session.IsCompleted {
			return errors.Conflict("Game session already ended")
		}
		studentID = session.StudentID

		game, err := e.store.Game(ctx, session.GameID)
		if err != nil {
			return err
		}
		if !game.IsActive {
			return errors.NotFound("Game")
		}
		student, err := e.store.Student(ctx, session.StudentID)
		if err != nil {
			return err
		}

		now := e.now()
		session.Score = in.Score
		session.TimeSpent = in.TimeSpent
		session.GameData = in.GameData
		session.PointsEarned = game.PointsReward
		session.IsCompleted = true
		session.EndedAt = &now
		if err := e.store.FinishGameSession(ctx, session); err != nil {
			if stderrors.Is(err, ErrSessionEnded) {
				return errors.Conflict("Game session already ended")
			}
			return err
		}

		recordActivity(student, float64(in.Score), game.PointsReward, now)
		student.TotalGamesPlayed++
		if err := e.store.SaveStats(ctx, student); err != nil {
			return err
		}
		if err := e.store.RecordGamePlay(ctx, game.ID, float64(in.Score)); err != nil {
			return err
		}

		out = &GameOutcome{Session: session, Student: student}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.metrics.GameEnded(out.Session.PointsEarned)
	e.log.Info("Game session ended",
		zap.String("session_id", sessionID.String()),
		zap.String("student_id", studentID.String()),
		zap.Int("score", in.Score),
		zap.Int("points", out.Session.PointsEarned),
	)
	e.events.StatsChanged(ctx, out.Student)
	return out, nil
}

// AwardAchievement grants an achievement once. Repeated awards return the
// existing record and credit nothing.
func (e *Engine) AwardAchievement(ctx context.Context, studentID, achievementID uuid.UUID) (*Award, error) {
	var (
		out         *Award
		student     *models.StudentProfile
		achievement *models.Achievement
	)
	err := e.atomically(ctx, "award_achievement", zap.String("student_id", studentID.String()), func(ctx context.Context) error {
		var err error
		achievement, err = e.store.Achievement(ctx, achievementID)
		if err != nil {
			return err
		}
		student, err = e.store.Student(ctx, studentID)
		if err != nil {
			return err
		}

		award, created, err := e.store.FindOrCreateAward(ctx, studentID, achievementID, e.now())
		if err != nil {
			return err
		}
		if created {
			student.TotalPoints += achievement.PointsReward
			if err := e.store.SaveStats(ctx, student); err != nil {
				return err
			}
		}

		out = &Award{StudentAchievement: award, Created: created}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if out.Created {
		e.metrics.AchievementAwarded(achievement.PointsReward)
		e.log.Info("Achievement awarded",
			zap.String("student_id", studentID.String()),
			zap.String("achievement", achievement.Name),
			zap.Int("points", achievement.PointsReward),
		)
		e.events.AchievementAwarded(ctx, student, achievement)
		e.events.StatsChanged(ctx, student)
	}
	return out, nil
}

// RecalculateLevel derives the level from the current statistics and
// persists it when it changed.
func (e *Engine) RecalculateLevel(ctx context.Context, studentID uuid.UUID) (*models.StudentProfile, error) {
	var student *models.StudentProfile
	changed := false
	err := e.atomically(ctx, "recalculate_level", zap.String("student_id", studentID.String()), func(ctx context.Context) error {
		var err error
		student, err = e.store.Student(ctx, studentID)
		if err != nil {
			return err
		}

		level := LevelFor(student.AverageScore, student.TotalLessonsCompleted)
		changed = level != student.Level
		if !changed {
			return nil
		}
		student.Level = level
		return e.store.SaveStats(ctx, student)
	})
	if err != nil {
		return nil, err
	}

	if changed {
		e.log.Info("Student level changed",
			zap.String("student_id", studentID.String()),
			zap.Int("level", student.Level),
		)
		e.events.StatsChanged(ctx, student)
	}
	return student, nil
}
