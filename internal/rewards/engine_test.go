package rewards

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/models"
	"github.com/jgirmay/alif24/internal/testutil"
)

type fixture struct {
	db          *gorm.DB
	store       *GormStore
	engine      *Engine
	now         time.Time
	student     *models.StudentProfile
	lesson      *models.Lesson
	game        *models.Game
	achievement *models.Achievement
	events      *recordedEvents
}

type recordedEvents struct {
	stats  []models.StudentProfile
	awards []string
}

func (r *recordedEvents) StatsChanged(_ context.Context, s *models.StudentProfile) {
	r.stats = append(r.stats, *s)
}

func (r *recordedEvents) AchievementAwarded(_ context.Context, _ *models.StudentProfile, a *models.Achievement) {
	r.awards = append(r.awards, a.Name)
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewDB(t)

	f := &fixture{
		db:     db,
		store:  NewGormStore(db),
		now:    time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC),
		events: &recordedEvents{},
	}
	f.engine = NewEngine(f.store, zap.NewNop(),
		WithClock(func() time.Time { return f.now }),
		WithEvents(f.events),
	)

	user := &models.User{Email: "kid@example.com", FirstName: "Ali", LastName: "Valiyev", Role: models.RoleStudent, IsActive: true}
	require.NoError(t, db.Create(user).Error)
	f.student = &models.StudentProfile{UserID: user.ID, DateOfBirth: models.DefaultDateOfBirth, Level: 1}
	require.NoError(t, db.Create(f.student).Error)

	subject := &models.Subject{Name: "Math", NameUz: "Matematika", NameRu: "Математика", IsActive: true}
	require.NoError(t, db.Create(subject).Error)
	f.lesson = &models.Lesson{SubjectID: subject.ID, Title: "Counting", TitleUz: "Sanash", TitleRu: "Счёт", PointsReward: 10, IsActive: true}
	require.NoError(t, db.Create(f.lesson).Error)
	f.game = &models.Game{Name: "Memory", NameUz: "Xotira", NameRu: "Память", PointsReward: 5, IsActive: true}
	require.NoError(t, db.Create(f.game).Error)
	f.achievement = &models.Achievement{Name: "First Lesson", NameUz: "Birinchi dars", NameRu: "Первый урок", PointsReward: 50, IsActive: true}
	require.NoError(t, db.Create(f.achievement).Error)

	return f
}

func (f *fixture) reload(t *testing.T) *models.StudentProfile {
	t.Helper()
	var s models.StudentProfile
	require.NoError(t, f.db.First(&s, "id = ?", f.student.ID).Error)
	return &s
}

func (f *fixture) complete(t *testing.T, score float64, timeSpent int) *LessonOutcome {
	t.Helper()
	out, err := f.engine.CompleteLesson(context.Background(), f.student.ID, f.lesson.ID, LessonResult{Score: score, TimeSpent: timeSpent})
	require.NoError(t, err)
	return out
}

func TestCompleteLessonFreshStudent(t *testing.T) {
	f := newFixture(t)

	out := f.complete(t, 80, 120)

	assert.Equal(t, 10, out.PointsEarned)
	assert.Equal(t, models.StatusCompleted, out.Progress.Status)
	assert.Equal(t, 1, out.Progress.Attempts)
	assert.Equal(t, 120, out.Progress.TimeSpent)
	assert.Equal(t, 10, out.Progress.PointsEarned)

	s := f.reload(t)
	assert.Equal(t, 80.0, s.AverageScore)
	assert.Equal(t, 1, s.TotalLessonsCompleted)
	assert.Equal(t, 10, s.TotalPoints)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.Equal(t, 1, s.LongestStreak)
	require.NotNil(t, s.LastActivityAt)
	assert.True(t, s.LastActivityAt.Equal(f.now))
	assert.Equal(t, 1, s.Version)

	var lesson models.Lesson
	require.NoError(t, f.db.First(&lesson, "id = ?", f.lesson.ID).Error)
	assert.Equal(t, 1, lesson.TotalCompletions)
	assert.Equal(t, 80.0, lesson.AverageRating)

	require.Len(t, f.events.stats, 1)
	assert.Equal(t, 10, f.events.stats[0].TotalPoints)
}

func TestCompleteLessonAgainAccumulates(t *testing.T) {
	f := newFixture(t)

	f.complete(t, 80, 120)
	out := f.complete(t, 60, 30)

	assert.Equal(t, 2, out.Progress.Attempts)
	assert.Equal(t, 150, out.Progress.TimeSpent)
	assert.Equal(t, 60.0, out.Progress.Score)
	assert.Equal(t, 20, out.Progress.PointsEarned)

	var rows int64
	f.db.Model(&models.Progress{}).Count(&rows)
	assert.Equal(t, int64(1), rows)

	s := f.reload(t)
	assert.Equal(t, 70.0, s.AverageScore)
	assert.Equal(t, 2, s.TotalLessonsCompleted)
	assert.Equal(t, 20, s.TotalPoints)

	var lesson models.Lesson
	require.NoError(t, f.db.First(&lesson, "id = ?", f.lesson.ID).Error)
	assert.Equal(t, 2, lesson.TotalCompletions)
	assert.InDelta(t, 70.0, lesson.AverageRating, 1e-9)
}

func TestCompleteLessonExtendsStreakNextDay(t *testing.T) {
	f := newFixture(t)
	last := f.now.Add(-26 * time.Hour)
	require.NoError(t, f.db.Model(&models.StudentProfile{}).Where("id = ?", f.student.ID).
		Updates(map[string]interface{}{"current_streak": 3, "longest_streak": 3, "last_activity_at": last}).Error)

	f.complete(t, 90, 10)

	s := f.reload(t)
	assert.Equal(t, 4, s.CurrentStreak)
	assert.Equal(t, 4, s.LongestStreak)
}

func TestCompleteLessonSameDayKeepsStreak(t *testing.T) {
	f := newFixture(t)

	f.complete(t, 90, 10)
	f.now = f.now.Add(5 * time.Hour)
	f.complete(t, 70, 10)

	s := f.reload(t)
	assert.Equal(t, 1, s.CurrentStreak)
	assert.True(t, s.LastActivityAt.Equal(f.now))
}

func TestCompleteLessonRejectsBadInput(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.CompleteLesson(ctx, f.student.ID, f.lesson.ID, LessonResult{Score: 101})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = f.engine.CompleteLesson(ctx, f.student.ID, f.lesson.ID, LessonResult{Score: 50, TimeSpent: -1})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = f.engine.CompleteLesson(ctx, f.student.ID, uuid.New(), LessonResult{Score: 50})
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	_, err = f.engine.CompleteLesson(ctx, uuid.New(), f.lesson.ID, LessonResult{Score: 50})
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	s := f.reload(t)
	assert.Zero(t, s.TotalLessonsCompleted)
	assert.Zero(t, s.TotalPoints)
	assert.Nil(t, s.LastActivityAt)

	var rows int64
	f.db.Model(&models.Progress{}).Count(&rows)
	assert.Zero(t, rows)
}

func TestAverageCoversLessonsAndGames(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.complete(t, 80, 10)

	session, err := f.engine.StartGameSession(ctx, f.student.ID, f.game.ID, 2)
	require.NoError(t, err)
	_, err = f.engine.EndGameSession(ctx, session.ID, GameResult{Score: 50})
	require.NoError(t, err)

	f.complete(t, 100, 10)

	s := f.reload(t)
	assert.InDelta(t, (80.0+50+100)/3, s.AverageScore, 1e-9)
	assert.Equal(t, 2, s.TotalLessonsCompleted)
	assert.Equal(t, 1, s.TotalGamesPlayed)
	assert.Equal(t, 25, s.TotalPoints)
}

func TestGameSessionLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	session, err := f.engine.StartGameSession(ctx, f.student.ID, f.game.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, session.Level)
	assert.False(t, session.IsCompleted)

	f.now = f.now.Add(3 * time.Minute)
	out, err := f.engine.EndGameSession(ctx, session.ID, GameResult{Score: 90, TimeSpent: 180})
	require.NoError(t, err)
	assert.True(t, out.Session.IsCompleted)
	assert.Equal(t, 5, out.Session.PointsEarned)
	require.NotNil(t, out.Session.EndedAt)
	assert.Equal(t, 5, out.Student.TotalPoints)
	assert.Equal(t, 90.0, out.Student.AverageScore)

	var game models.Game
	require.NoError(t, f.db.First(&game, "id = ?", f.game.ID).Error)
	assert.Equal(t, 1, game.TotalPlays)
	assert.Equal(t, 90.0, game.AverageScore)

	_, err = f.engine.EndGameSession(ctx, session.ID, GameResult{Score: 10})
	assert.True(t, errors.Is(err, errors.CodeConflict))
	assert.Equal(t, 5, f.reload(t).TotalPoints)
}

func TestStartGameSessionValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.StartGameSession(ctx, f.student.ID, f.game.ID, 11)
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = f.engine.StartGameSession(ctx, f.student.ID, uuid.New(), 1)
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	require.NoError(t, f.db.Model(f.game).Update("is_active", false).Error)
	_, err = f.engine.StartGameSession(ctx, f.student.ID, f.game.ID, 1)
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	_, err = f.engine.EndGameSession(ctx, uuid.New(), GameResult{Score: 1})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestAwardAchievementIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.engine.AwardAchievement(ctx, f.student.ID, f.achievement.ID)
	require.NoError(t, err)
	assert.True(t, first.Created)
	require.NotNil(t, first.StudentAchievement.Achievement)
	assert.Equal(t, "First Lesson", first.StudentAchievement.Achievement.Name)

	second, err := f.engine.AwardAchievement(ctx, f.student.ID, f.achievement.ID)
	require.NoError(t, err)
	assert.False(t, second.Created)
	assert.Equal(t, first.StudentAchievement.ID, second.StudentAchievement.ID)

	assert.Equal(t, 50, f.reload(t).TotalPoints)
	assert.Equal(t, []string{"First Lesson"}, f.events.awards)

	_, err = f.engine.AwardAchievement(ctx, f.student.ID, uuid.New())
	assert.True(t, errors.Is(err, errors.CodeNotFound))
	_, err = f.engine.AwardAchievement(ctx, uuid.New(), f.achievement.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestRecalculateLevel(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.db.Model(&models.StudentProfile{}).Where("id = ?", f.student.ID).
		Updates(map[string]interface{}{"average_score": 85, "total_lessons_completed": 16}).Error)

	s, err := f.engine.RecalculateLevel(context.Background(), f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, s.Level)

	again, err := f.engine.RecalculateLevel(context.Background(), f.student.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, again.Level)
	assert.Equal(t, 8, f.reload(t).Level)
	assert.Len(t, f.events.stats, 1)
}

func TestStartLesson(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.engine.StartLesson(ctx, f.student.ID, f.lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, p.Status)

	again, err := f.engine.StartLesson(ctx, f.student.ID, f.lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, again.ID)

	f.complete(t, 70, 5)
	done, err := f.engine.StartLesson(ctx, f.student.ID, f.lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, done.Status)
	assert.Equal(t, p.ID, done.ID)
}

func TestRetiredLessonEarnsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	require.NoError(t, f.db.Model(f.lesson).Update("is_active", false).Error)

	_, err := f.engine.StartLesson(ctx, f.student.ID, f.lesson.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	_, err = f.engine.CompleteLesson(ctx, f.student.ID, f.lesson.ID, LessonResult{Score: 90, TimeSpent: 30})
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	s := f.reload(t)
	assert.Zero(t, s.TotalPoints)
	assert.Zero(t, s.TotalLessonsCompleted)
	var count int64
	require.NoError(t, f.db.Model(&models.Progress{}).Where("lesson_id = ?", f.lesson.ID).Count(&count).Error)
	assert.Zero(t, count)
	assert.Empty(t, f.events.stats)
}

func TestRetiredGameEndsNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	session, err := f.engine.StartGameSession(ctx, f.student.ID, f.game.ID, 1)
	require.NoError(t, err)
	require.NoError(t, f.db.Model(f.game).Update("is_active", false).Error)

	_, err = f.engine.EndGameSession(ctx, session.ID, GameResult{Score: 40})
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	s := f.reload(t)
	assert.Zero(t, s.TotalPoints)
	assert.Zero(t, s.TotalGamesPlayed)
	var stored models.GameSession
	require.NoError(t, f.db.First(&stored, "id = ?", session.ID).Error)
	assert.False(t, stored.IsCompleted)
}

// staleStore fails the first n stats writes as if another writer got there first.
type staleStore struct {
	*GormStore
	failures int
}

func (s *staleStore) SaveStats(ctx context.Context, st *models.StudentProfile) error {
	if s.failures > 0 {
		s.failures--
		return ErrStaleStats
	}
	return s.GormStore.SaveStats(ctx, st)
}

func TestStaleWriteIsRetriedFromScratch(t *testing.T) {
	f := newFixture(t)
	store := &staleStore{GormStore: f.store, failures: 2}
	engine := NewEngine(store, zap.NewNop(), WithClock(func() time.Time { return f.now }))

	out, err := engine.CompleteLesson(context.Background(), f.student.ID, f.lesson.ID, LessonResult{Score: 80, TimeSpent: 10})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Progress.Attempts)

	s := f.reload(t)
	assert.Equal(t, 1, s.TotalLessonsCompleted)
	assert.Equal(t, 10, s.TotalPoints)

	var lesson models.Lesson
	require.NoError(t, f.db.First(&lesson, "id = ?", f.lesson.ID).Error)
	assert.Equal(t, 1, lesson.TotalCompletions)
}

func TestStaleWriteGivesUpWithConflict(t *testing.T) {
	f := newFixture(t)
	store := &staleStore{GormStore: f.store, failures: 10}
	engine := NewEngine(store, zap.NewNop(), WithRetries(3))

	_, err := engine.CompleteLesson(context.Background(), f.student.ID, f.lesson.ID, LessonResult{Score: 80})
	assert.True(t, errors.Is(err, errors.CodeConflict))
	assert.Equal(t, 7, store.failures)

	var rows int64
	f.db.Model(&models.Progress{}).Count(&rows)
	assert.Zero(t, rows)
	assert.Zero(t, f.reload(t).TotalLessonsCompleted)
}

func TestSaveStatsDetectsConcurrentWriter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a, err := f.store.Student(ctx, f.student.ID)
	require.NoError(t, err)
	b, err := f.store.Student(ctx, f.student.ID)
	require.NoError(t, err)

	a.TotalPoints = 10
	require.NoError(t, f.store.SaveStats(ctx, a))
	assert.Equal(t, 1, a.Version)

	b.TotalPoints = 99
	assert.ErrorIs(t, f.store.SaveStats(ctx, b), ErrStaleStats)
	assert.Equal(t, 10, f.reload(t).TotalPoints)
}
