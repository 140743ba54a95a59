package content

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/achievements"
	"github.com/jgirmay/alif24/internal/models"
	"github.com/jgirmay/alif24/internal/rewards"
	"github.com/jgirmay/alif24/internal/students"
	"github.com/jgirmay/alif24/internal/testutil"
	"github.com/jgirmay/alif24/internal/users"
)

type harness struct {
	db     *gorm.DB
	auth   *testutil.StaticAuth
	router *gin.Engine
}

func newHarness(t *testing.T) harness {
	t.Helper()
	db := testutil.NewDB(t)
	auth := testutil.NewStaticAuth()
	log := zap.NewNop()

	catalog := achievements.NewService(db, log)
	engine := rewards.NewEngine(rewards.NewGormStore(db), log)
	evaluator := achievements.NewEvaluator(db, catalog, engine, log)
	profiles := students.NewService(db, catalog, users.NewService(db, log), log)

	h := NewHandler(NewService(db, log), engine, evaluator, profiles, log)
	h.now = func() time.Time { return fiveYearsOld }

	r := gin.New()
	h.RegisterRoutes(r.Group("/api/v1"), testutil.Guards(auth))
	return harness{db: db, auth: auth, router: r}
}

func TestCatalogRoutes(t *testing.T) {
	h := newHarness(t)
	subject := testutil.CreateSubject(t, h.db, "Mathematics")
	teacher := testutil.CreateUser(t, h.db, "teacher@example.com", models.RoleTeacher)
	kid, _ := testutil.CreateStudent(t, h.db, "kid@example.com")
	teacherToken := h.auth.Login(teacher.ID, models.RoleTeacher)
	kidToken := h.auth.Login(kid.ID, models.RoleStudent)

	lesson := gin.H{"subjectId": subject.ID, "title": "Shapes", "titleUz": "Shakllar", "titleRu": "Фигуры", "level": 2}
	w := testutil.Do(h.router, http.MethodPost, "/api/v1/lessons", kidToken, lesson)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.Do(h.router, http.MethodPost, "/api/v1/lessons", teacherToken, gin.H{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(h.router, http.MethodPost, "/api/v1/lessons", teacherToken, lesson)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Lesson
	testutil.Decode(t, w, &created)

	w = testutil.Do(h.router, http.MethodGet, "/api/v1/lessons?level=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := testutil.Decode(t, w, nil)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(1), env.Pagination.Total)

	w = testutil.Do(h.router, http.MethodGet, "/api/v1/lessons?subjectId=nope", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(h.router, http.MethodGet, "/api/v1/lessons/"+created.ID.String(), "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.Do(h.router, http.MethodGet, "/api/v1/lessons/for-me", kidToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	env = testutil.Decode(t, w, nil)
	assert.Equal(t, int64(1), env.Pagination.Total)

	w = testutil.Do(h.router, http.MethodPost, "/api/v1/subjects", teacherToken, gin.H{"name": "Art", "nameUz": "San'at", "nameRu": "Искусство"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.Do(h.router, http.MethodGet, "/api/v1/subjects", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var subjects []models.Subject
	testutil.Decode(t, w, &subjects)
	assert.Len(t, subjects, 1)

	w = testutil.Do(h.router, http.MethodPost, "/api/v1/games", teacherToken, gin.H{"name": "Count the stars", "nameUz": "Yulduzlar", "nameRu": "Звёзды", "type": "counting"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var game models.Game
	testutil.Decode(t, w, &game)
	assert.Equal(t, models.GameCounting, game.Type)

	w = testutil.Do(h.router, http.MethodDelete, "/api/v1/games/"+game.ID.String(), teacherToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = testutil.Do(h.router, http.MethodGet, "/api/v1/games/"+game.ID.String(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestLessonActivityAwardsAchievements(t *testing.T) {
	h := newHarness(t)
	lesson := testutil.CreateLesson(t, h.db, testutil.CreateSubject(t, h.db, "Alphabet"), "Letter B", 1)
	testutil.CreateAchievement(t, h.db, "First Steps", 50, models.Criteria{LessonsCompleted: 1})
	testutil.CreateAchievement(t, h.db, "Super Learner", 150, models.Criteria{PerfectScore: true})
	kid, profile := testutil.CreateStudent(t, h.db, "kid@example.com")
	token := h.auth.Login(kid.ID, models.RoleStudent)
	base := "/api/v1/lessons/" + lesson.ID.String()

	w := testutil.Do(h.router, http.MethodGet, base+"/progress", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var progress models.Progress
	testutil.Decode(t, w, &progress)
	assert.Equal(t, models.StatusNotStarted, progress.Status)

	w = testutil.Do(h.router, http.MethodPost, base+"/start", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = testutil.Do(h.router, http.MethodPost, base+"/complete", token, gin.H{"score": 120})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(h.router, http.MethodPost, base+"/complete", token, gin.H{"score": 100, "timeSpent": 90})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var done struct {
		PointsEarned    int                   `json:"pointsEarned"`
		Student         models.StudentProfile `json:"student"`
		Progress        models.Progress       `json:"progress"`
		NewAchievements []models.Achievement  `json:"newAchievements"`
	}
	testutil.Decode(t, w, &done)
	assert.Equal(t, models.DefaultLessonPoints, done.PointsEarned)
	assert.Equal(t, models.StatusCompleted, done.Progress.Status)
	assert.Len(t, done.NewAchievements, 2)

	var stored models.StudentProfile
	require.NoError(t, h.db.First(&stored, "id = ?", profile.ID).Error)
	assert.Equal(t, models.DefaultLessonPoints+50+150, stored.TotalPoints)
	assert.Equal(t, 1, stored.TotalLessonsCompleted)

	teacher := testutil.CreateUser(t, h.db, "teacher@example.com", models.RoleTeacher)
	w = testutil.Do(h.router, http.MethodPost, base+"/start", h.auth.Login(teacher.ID, models.RoleTeacher), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestGameSessionRoutes(t *testing.T) {
	h := newHarness(t)
	game := testutil.CreateGame(t, h.db, "Pairs", 1)
	kid, profile := testutil.CreateStudent(t, h.db, "kid@example.com")
	other, _ := testutil.CreateStudent(t, h.db, "other@example.com")
	admin := testutil.CreateUser(t, h.db, "admin@example.com", models.RoleAdmin)
	kidToken := h.auth.Login(kid.ID, models.RoleStudent)
	otherToken := h.auth.Login(other.ID, models.RoleStudent)
	adminToken := h.auth.Login(admin.ID, models.RoleAdmin)

	w := testutil.Do(h.router, http.MethodPost, "/api/v1/games/"+game.ID.String()+"/start", kidToken, gin.H{"level": 11})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(h.router, http.MethodPost, "/api/v1/games/"+game.ID.String()+"/start", kidToken, gin.H{"level": 2})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var session models.GameSession
	testutil.Decode(t, w, &session)
	assert.Equal(t, 2, session.Level)
	assert.Equal(t, profile.ID, session.StudentID)

	sessionPath := "/api/v1/games/sessions/" + session.ID.String()

	w = testutil.Do(h.router, http.MethodGet, sessionPath, otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = testutil.Do(h.router, http.MethodGet, sessionPath, adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.Do(h.router, http.MethodPost, sessionPath+"/end", otherToken, gin.H{"score": 80})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.Do(h.router, http.MethodPost, sessionPath+"/end", kidToken, gin.H{"score": 80, "timeSpent": 45})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var ended GameCompletion
	testutil.Decode(t, w, &ended)
	assert.True(t, ended.Session.IsCompleted)
	assert.Equal(t, models.DefaultGamePoints, ended.Session.PointsEarned)
	assert.Equal(t, 1, ended.Student.TotalGamesPlayed)
	assert.Empty(t, ended.NewAchievements)

	w = testutil.Do(h.router, http.MethodPost, sessionPath+"/end", kidToken, gin.H{"score": 80})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = testutil.Do(h.router, http.MethodGet, "/api/v1/games/my-sessions", kidToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := testutil.Decode(t, w, nil)
	assert.Equal(t, int64(1), env.Pagination.Total)

	w = testutil.Do(h.router, http.MethodGet, "/api/v1/games/my-sessions", otherToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	env = testutil.Decode(t, w, nil)
	assert.Zero(t, env.Pagination.Total)
}
