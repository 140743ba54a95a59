package content

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/middleware"
	"github.com/jgirmay/alif24/internal/models"
	"github.com/jgirmay/alif24/internal/testutil"
)

// fiveYearsOld is a clock at which a default student is five.
var fiveYearsOld = models.DefaultDateOfBirth.AddDate(5, 1, 0)

func lessonsOf(t *testing.T, data interface{}) []models.Lesson {
	t.Helper()
	lessons, ok := data.([]models.Lesson)
	require.True(t, ok, "unexpected page data %T", data)
	return lessons
}

func TestSubjectLifecycle(t *testing.T) {
	ctx := context.Background()
	svc := NewService(testutil.NewDB(t), zap.NewNop())

	subject, err := svc.CreateSubject(ctx, SubjectInput{Name: "Music", NameUz: "Musiqa", NameRu: "Музыка"})
	require.NoError(t, err)
	assert.Equal(t, "#4A90A4", subject.Color)
	assert.Equal(t, models.AgeRange{Min: models.MinAge, Max: models.MaxAge}, subject.AgeRange.Data())

	_, err = svc.CreateSubject(ctx, SubjectInput{Name: "Art", NameUz: "San'at", NameRu: "Искусство", AgeRange: &models.AgeRange{Min: 7, Max: 4}})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	name := "Songs"
	updated, err := svc.UpdateSubject(ctx, subject.ID, SubjectUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Songs", updated.Name)
	assert.Equal(t, "Musiqa", updated.NameUz)

	require.NoError(t, svc.DeleteSubject(ctx, subject.ID))
	list, err := svc.Subjects(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
	_, err = svc.Subject(ctx, subject.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestLessonFilters(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewService(db, zap.NewNop())

	math := testutil.CreateSubject(t, db, "Mathematics")
	nature := testutil.CreateSubject(t, db, "Nature")
	testutil.CreateLesson(t, db, math, "Counting to ten", 1)
	testutil.CreateLesson(t, db, math, "Adding apples", 2)
	testutil.CreateLesson(t, db, nature, "Forest animals", 5)
	retired := testutil.CreateLesson(t, db, nature, "Old lesson", 1)
	require.NoError(t, db.Model(retired).Update("is_active", false).Error)

	tests := []struct {
		name   string
		filter Filter
		titles []string
	}{
		{"everything live", Filter{}, []string{"Counting to ten", "Adding apples", "Forest animals"}},
		{"by subject", Filter{SubjectID: nature.ID.String()}, []string{"Forest animals"}},
		{"by level", Filter{Level: 2}, []string{"Adding apples"}},
		{"search is case blind", Filter{Q: "APPLE"}, []string{"Adding apples"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := svc.Lessons(ctx, tt.filter)
			require.NoError(t, err)
			var titles []string
			for _, l := range lessonsOf(t, page.Data) {
				titles = append(titles, l.Title)
			}
			assert.ElementsMatch(t, tt.titles, titles)
			assert.Equal(t, int64(len(tt.titles)), page.Total)
		})
	}
}

func TestLessonsForStudent(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewService(db, zap.NewNop())
	_, student := testutil.CreateStudent(t, db, "kid@example.com")
	require.NoError(t, db.Model(student).Update("level", 3).Error)
	student.Level = 3

	math := testutil.CreateSubject(t, db, "Mathematics")
	testutil.CreateLesson(t, db, math, "Too easy", 1)
	testutil.CreateLesson(t, db, math, "Just right", 3)
	testutil.CreateLesson(t, db, math, "A stretch", 4)
	older := testutil.CreateLesson(t, db, math, "For older kids", 3)
	require.NoError(t, db.Model(older).Update("age_min", 7).Error)

	page, err := svc.LessonsFor(ctx, student, Filter{}, fiveYearsOld)
	require.NoError(t, err)
	var titles []string
	for _, l := range lessonsOf(t, page.Data) {
		titles = append(titles, l.Title)
	}
	assert.Equal(t, []string{"Just right", "A stretch"}, titles)

	page, err = svc.LessonsFor(ctx, student, Filter{Level: 1}, fiveYearsOld)
	require.NoError(t, err)
	require.Len(t, lessonsOf(t, page.Data), 1)
	assert.Equal(t, "Too easy", lessonsOf(t, page.Data)[0].Title)
}

func TestLessonAuthorship(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewService(db, zap.NewNop())
	subject := testutil.CreateSubject(t, db, "Alphabet")

	owner := &middleware.Principal{UserID: testutil.CreateUser(t, db, "owner@example.com", models.RoleTeacher).ID, Role: models.RoleTeacher}
	other := &middleware.Principal{UserID: testutil.CreateUser(t, db, "other@example.com", models.RoleTeacher).ID, Role: models.RoleTeacher}
	admin := &middleware.Principal{UserID: testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin).ID, Role: models.RoleAdmin}

	lesson, err := svc.CreateLesson(ctx, owner, LessonInput{SubjectID: subject.ID, Title: "Letter A", TitleUz: "A harfi", TitleRu: "Буква А"})
	require.NoError(t, err)
	require.NotNil(t, lesson.TeacherID)
	assert.Equal(t, owner.UserID, *lesson.TeacherID)
	assert.Equal(t, models.LessonInteractive, lesson.Type)
	assert.Equal(t, models.DefaultLessonPoints, lesson.PointsReward)
	assert.Equal(t, 15, lesson.Duration)

	title := "Letter A and B"
	_, err = svc.UpdateLesson(ctx, other, lesson.ID, LessonUpdate{Title: &title})
	assert.True(t, errors.Is(err, errors.CodeForbidden))

	updated, err := svc.UpdateLesson(ctx, admin, lesson.ID, LessonUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, title, updated.Title)
	require.NotNil(t, updated.Subject)

	ageMin := 7
	ageMax := 5
	_, err = svc.UpdateLesson(ctx, owner, lesson.ID, LessonUpdate{AgeMin: &ageMin, AgeMax: &ageMax})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	_, err = svc.CreateLesson(ctx, owner, LessonInput{SubjectID: subject.ID, Title: "Bad", TitleUz: "Bad", TitleRu: "Bad", AgeMin: 6, AgeMax: 5})
	assert.True(t, errors.Is(err, errors.CodeValidation))

	require.NoError(t, svc.DeleteSubject(ctx, subject.ID))
	_, err = svc.CreateLesson(ctx, owner, LessonInput{SubjectID: subject.ID, Title: "Orphan", TitleUz: "Orphan", TitleRu: "Orphan"})
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestDeleteLessonRetires(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewService(db, zap.NewNop())
	lesson := testutil.CreateLesson(t, db, testutil.CreateSubject(t, db, "Colors"), "Red and blue", 1)
	teacher := &middleware.Principal{UserID: testutil.CreateUser(t, db, "t@example.com", models.RoleTeacher).ID, Role: models.RoleTeacher}
	admin := &middleware.Principal{Role: models.RoleAdmin}

	assert.True(t, errors.Is(svc.DeleteLesson(ctx, teacher, lesson.ID), errors.CodeForbidden))
	require.NoError(t, svc.DeleteLesson(ctx, admin, lesson.ID))

	_, err := svc.Lesson(ctx, nil, lesson.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
	found, err := svc.Lesson(ctx, teacher, lesson.ID)
	require.NoError(t, err)
	assert.False(t, found.IsActive)
}

func TestLessonProgressDefaultsToNotStarted(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewService(db, zap.NewNop())
	_, student := testutil.CreateStudent(t, db, "kid@example.com")
	lesson := testutil.CreateLesson(t, db, testutil.CreateSubject(t, db, "Nature"), "Leaves", 1)

	p, err := svc.LessonProgress(ctx, student.ID, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusNotStarted, p.Status)
	assert.Zero(t, p.Attempts)

	require.NoError(t, db.Create(&models.Progress{StudentID: student.ID, LessonID: lesson.ID, Status: models.StatusInProgress, Attempts: 1}).Error)
	p, err = svc.LessonProgress(ctx, student.ID, lesson.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusInProgress, p.Status)

	_, err = svc.LessonProgress(ctx, student.ID, testutil.CreateSubject(t, db, "Other").ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
}

func TestGameLifecycle(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewService(db, zap.NewNop())
	_, student := testutil.CreateStudent(t, db, "kid@example.com")

	game, err := svc.CreateGame(ctx, GameInput{Name: "Memory cards", NameUz: "Xotira", NameRu: "Память"})
	require.NoError(t, err)
	assert.Equal(t, models.GamePuzzle, game.Type)
	assert.Equal(t, models.DefaultGamePoints, game.PointsReward)

	zero := 0
	updated, err := svc.UpdateGame(ctx, game.ID, GameUpdate{PointsReward: &zero})
	require.NoError(t, err)
	assert.Zero(t, updated.PointsReward)

	for i := 0; i < 2; i++ {
		require.NoError(t, db.Create(&models.GameSession{StudentID: student.ID, GameID: game.ID, Level: 1, StartedAt: time.Now()}).Error)
	}
	page, err := svc.SessionsFor(ctx, student.ID, database.NewPagination(1, 20))
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	require.NoError(t, svc.DeleteGame(ctx, game.ID))
	var left int64
	require.NoError(t, db.Model(&models.GameSession{}).Where("game_id = ?", game.ID).Count(&left).Error)
	assert.Zero(t, left)
	_, err = svc.Game(ctx, &middleware.Principal{Role: models.RoleAdmin}, game.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))
	assert.True(t, errors.Is(svc.DeleteGame(ctx, game.ID), errors.CodeNotFound))
}
