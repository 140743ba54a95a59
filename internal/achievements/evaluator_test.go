package achievements

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/models"
	"github.com/jgirmay/alif24/internal/rewards"
	"github.com/jgirmay/alif24/internal/testutil"
)

func score(v float64) *float64 { return &v }

func TestMatches(t *testing.T) {
	st := &models.StudentProfile{
		TotalLessonsCompleted: 10,
		TotalGamesPlayed:      3,
		CurrentStreak:         7,
		TotalPoints:           400,
		AverageScore:          88,
		Level:                 6,
	}

	tests := []struct {
		name     string
		criteria models.Criteria
		signal   Signal
		want     bool
	}{
		{"empty never matches", models.Criteria{}, Signal{}, false},
		{"lessons met", models.Criteria{LessonsCompleted: 10}, Signal{}, true},
		{"lessons not met", models.Criteria{LessonsCompleted: 11}, Signal{}, false},
		{"games", models.Criteria{GamesPlayed: 20}, Signal{}, false},
		{"streak", models.Criteria{StreakDays: 7}, Signal{}, true},
		{"points", models.Criteria{TotalPoints: 500}, Signal{}, false},
		{"average", models.Criteria{AverageScore: 85}, Signal{}, true},
		{"level", models.Criteria{Level: 6}, Signal{}, true},
		{"perfect without score", models.Criteria{PerfectScore: true}, Signal{}, false},
		{"perfect with 99", models.Criteria{PerfectScore: true}, Signal{LastScore: score(99)}, false},
		{"perfect with 100", models.Criteria{PerfectScore: true}, Signal{LastScore: score(100)}, true},
		{"all must hold", models.Criteria{LessonsCompleted: 1, GamesPlayed: 50}, Signal{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Matches(tt.criteria, Facts{Student: st, Signal: tt.signal})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

type evalFixture struct {
	db        *gorm.DB
	engine    *rewards.Engine
	evaluator *Evaluator
	student   *models.StudentProfile
	math      *models.Subject
}

func newEvalFixture(t *testing.T) *evalFixture {
	t.Helper()
	db := testutil.NewDB(t)
	engine := rewards.NewEngine(rewards.NewGormStore(db), zap.NewNop(),
		rewards.WithClock(func() time.Time { return time.Date(2026, 2, 2, 9, 0, 0, 0, time.UTC) }))
	_, student := testutil.CreateStudent(t, db, "kid@example.com")

	return &evalFixture{
		db:        db,
		engine:    engine,
		evaluator: NewEvaluator(db, NewService(db, zap.NewNop()), engine, zap.NewNop()),
		student:   student,
		math:      testutil.CreateSubject(t, db, "Mathematics"),
	}
}

func TestEvaluateAwardsOnce(t *testing.T) {
	f := newEvalFixture(t)
	ctx := context.Background()
	first := testutil.CreateAchievement(t, f.db, "First Steps", 50, models.Criteria{LessonsCompleted: 1})
	testutil.CreateAchievement(t, f.db, "Curious Explorer", 100, models.Criteria{LessonsCompleted: 10})
	perfect := testutil.CreateAchievement(t, f.db, "Super Learner", 150, models.Criteria{PerfectScore: true})

	lesson := testutil.CreateLesson(t, f.db, f.math, "Counting", 1)
	_, err := f.engine.CompleteLesson(ctx, f.student.ID, lesson.ID, rewards.LessonResult{Score: 100})
	require.NoError(t, err)

	awarded, err := f.evaluator.Evaluate(ctx, f.student.ID, Signal{LastScore: score(100)})
	require.NoError(t, err)
	names := []string{}
	for _, a := range awarded {
		names = append(names, a.Name)
	}
	assert.ElementsMatch(t, []string{first.Name, perfect.Name}, names)

	var st models.StudentProfile
	require.NoError(t, f.db.First(&st, "id = ?", f.student.ID).Error)
	assert.Equal(t, 10+50+150, st.TotalPoints)

	again, err := f.evaluator.Evaluate(ctx, f.student.ID, Signal{LastScore: score(100)})
	require.NoError(t, err)
	assert.Empty(t, again)
}

func TestEvaluateCountsPointsFromEarlierAwards(t *testing.T) {
	f := newEvalFixture(t)
	ctx := context.Background()
	collector := testutil.CreateAchievement(t, f.db, "Collector", 20, models.Criteria{TotalPoints: 60})
	first := testutil.CreateAchievement(t, f.db, "First Steps", 50, models.Criteria{LessonsCompleted: 1})
	require.NoError(t, f.db.Model(collector).Update("sort_order", 1).Error)
	require.NoError(t, f.db.Model(first).Update("sort_order", 2).Error)

	lesson := testutil.CreateLesson(t, f.db, f.math, "Counting", 1)
	_, err := f.engine.CompleteLesson(ctx, f.student.ID, lesson.ID, rewards.LessonResult{Score: 70})
	require.NoError(t, err)

	awarded, err := f.evaluator.Evaluate(ctx, f.student.ID, Signal{LastScore: score(70)})
	require.NoError(t, err)
	require.Len(t, awarded, 2)
	assert.Equal(t, first.Name, awarded[0].Name)
	assert.Equal(t, collector.Name, awarded[1].Name)

	var st models.StudentProfile
	require.NoError(t, f.db.First(&st, "id = ?", f.student.ID).Error)
	assert.Equal(t, 10+50+20, st.TotalPoints)
}

func TestEvaluateSkipsInactiveAchievements(t *testing.T) {
	f := newEvalFixture(t)
	a := testutil.CreateAchievement(t, f.db, "Retired", 10, models.Criteria{LessonsCompleted: 1})
	require.NoError(t, f.db.Model(a).Update("is_active", false).Error)
	require.NoError(t, f.db.Model(f.student).Update("total_lessons_completed", 5).Error)

	awarded, err := f.evaluator.Evaluate(context.Background(), f.student.ID, Signal{})
	require.NoError(t, err)
	assert.Empty(t, awarded)
}

func TestSubjectCompleted(t *testing.T) {
	f := newEvalFixture(t)
	ctx := context.Background()
	wizard := testutil.CreateAchievement(t, f.db, "Math Wizard", 500, models.Criteria{SubjectCompleted: "Mathematics"})

	l1 := testutil.CreateLesson(t, f.db, f.math, "One", 1)
	l2 := testutil.CreateLesson(t, f.db, f.math, "Two", 1)
	retired := testutil.CreateLesson(t, f.db, f.math, "Retired", 1)
	require.NoError(t, f.db.Model(retired).Update("is_active", false).Error)

	_, err := f.engine.CompleteLesson(ctx, f.student.ID, l1.ID, rewards.LessonResult{Score: 70})
	require.NoError(t, err)
	awarded, err := f.evaluator.Evaluate(ctx, f.student.ID, Signal{})
	require.NoError(t, err)
	assert.Empty(t, awarded)

	_, err = f.engine.CompleteLesson(ctx, f.student.ID, l2.ID, rewards.LessonResult{Score: 70})
	require.NoError(t, err)
	awarded, err = f.evaluator.Evaluate(ctx, f.student.ID, Signal{})
	require.NoError(t, err)
	require.Len(t, awarded, 1)
	assert.Equal(t, wizard.ID, awarded[0].ID)
}
