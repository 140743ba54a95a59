package students

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/achievements"
	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/middleware"
	"github.com/jgirmay/alif24/internal/models"
	"github.com/jgirmay/alif24/internal/testutil"
	"github.com/jgirmay/alif24/internal/users"
)

func newService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db := testutil.NewDB(t)
	return NewService(db, achievements.NewService(db, zap.NewNop()), users.NewService(db, zap.NewNop()), zap.NewNop()), db
}

func TestAuthorize(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()

	kidUser, kid := testutil.CreateStudent(t, db, "kid@example.com")
	otherUser, _ := testutil.CreateStudent(t, db, "other@example.com")
	parentUser, _ := testutil.CreateParent(t, db, "mum@example.com")
	strangerParent, _ := testutil.CreateParent(t, db, "stranger@example.com")
	teacher := testutil.CreateUser(t, db, "teacher@example.com", models.RoleTeacher)
	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)

	_, err := users.NewService(db, zap.NewNop()).LinkChild(ctx, parentUser.ID, users.LinkChildInput{StudentID: kid.ID})
	require.NoError(t, err)

	allowed := []*middleware.Principal{
		{UserID: admin.ID, Role: models.RoleAdmin},
		{UserID: kidUser.ID, Role: models.RoleStudent},
		{UserID: parentUser.ID, Role: models.RoleParent},
	}
	for _, p := range allowed {
		assert.NoError(t, svc.Authorize(ctx, p, kid.ID), "role %s", p.Role)
	}

	denied := []*middleware.Principal{
		{UserID: otherUser.ID, Role: models.RoleStudent},
		{UserID: strangerParent.ID, Role: models.RoleParent},
		{UserID: teacher.ID, Role: models.RoleTeacher},
	}
	for _, p := range denied {
		err := svc.Authorize(ctx, p, kid.ID)
		assert.True(t, errors.Is(err, errors.CodeForbidden), "role %s", p.Role)
	}
}

func TestUpsertCreatesThenUpdates(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	user := testutil.CreateUser(t, db, "kid@example.com", models.RoleStudent)

	grade := "Kindergarten"
	profile, err := svc.Upsert(ctx, user.ID, ProfileInput{Grade: &grade})
	require.NoError(t, err)
	assert.Equal(t, "Kindergarten", profile.Grade)
	assert.True(t, profile.DateOfBirth.Equal(models.DefaultDateOfBirth))
	require.NotNil(t, profile.User)

	dob := time.Date(2020, 3, 1, 0, 0, 0, 0, time.UTC)
	prefs := models.DefaultStudentPreferences()
	prefs.SoundEnabled = false
	again, err := svc.Upsert(ctx, user.ID, ProfileInput{DateOfBirth: &dob, Preferences: &prefs})
	require.NoError(t, err)
	assert.Equal(t, profile.ID, again.ID)
	assert.Equal(t, "Kindergarten", again.Grade)
	assert.True(t, again.DateOfBirth.Equal(dob))
	assert.False(t, again.Preferences.Data().SoundEnabled)
}

func TestStatistics(t *testing.T) {
	svc, db := newService(t)
	ctx := context.Background()
	_, kid := testutil.CreateStudent(t, db, "kid@example.com")
	subject := testutil.CreateSubject(t, db, "Alphabet")
	l1 := testutil.CreateLesson(t, db, subject, "A", 1)
	l2 := testutil.CreateLesson(t, db, subject, "B", 1)
	a := testutil.CreateAchievement(t, db, "First Steps", 50, models.Criteria{LessonsCompleted: 1})

	require.NoError(t, db.Create(&models.Progress{StudentID: kid.ID, LessonID: l1.ID, Status: models.StatusCompleted}).Error)
	require.NoError(t, db.Create(&models.Progress{StudentID: kid.ID, LessonID: l2.ID, Status: models.StatusInProgress}).Error)
	require.NoError(t, db.Create(&models.StudentAchievement{StudentID: kid.ID, AchievementID: a.ID, EarnedAt: time.Now()}).Error)
	require.NoError(t, db.Model(kid).Updates(map[string]interface{}{"total_points": 60, "level": 2}).Error)

	stats, err := svc.Statistics(ctx, kid.ID)
	require.NoError(t, err)
	assert.Equal(t, 60, stats.TotalPoints)
	assert.Equal(t, 2, stats.Level)
	assert.Equal(t, int64(1), stats.AchievementsCount)
	assert.Equal(t, int64(1), stats.CompletedLessons)
	assert.Equal(t, int64(1), stats.InProgressLessons)

	page, err := svc.Progress(ctx, kid.ID, databasePage())
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}
