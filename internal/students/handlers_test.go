package students

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jgirmay/alif24/internal/achievements"
	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/models"
	"github.com/jgirmay/alif24/internal/rewards"
	"github.com/jgirmay/alif24/internal/testutil"
	"github.com/jgirmay/alif24/internal/users"
)

func databasePage() database.Pagination {
	return database.NewPagination(1, 20)
}

func TestStudentRoutes(t *testing.T) {
	db := testutil.NewDB(t)
	auth := testutil.NewStaticAuth()
	catalog := achievements.NewService(db, zap.NewNop())
	engine := rewards.NewEngine(rewards.NewGormStore(db), zap.NewNop())
	svc := NewService(db, catalog, users.NewService(db, zap.NewNop()), zap.NewNop())

	r := gin.New()
	NewHandler(svc, engine, achievements.NewEvaluator(db, catalog, engine, zap.NewNop())).
		RegisterRoutes(r.Group("/api/v1"), testutil.Guards(auth))

	kidUser, kid := testutil.CreateStudent(t, db, "kid@example.com")
	otherUser, _ := testutil.CreateStudent(t, db, "other@example.com")
	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	badge := testutil.CreateAchievement(t, db, "Helper", 30, models.Criteria{})

	kidToken := auth.Login(kidUser.ID, models.RoleStudent)
	otherToken := auth.Login(otherUser.ID, models.RoleStudent)
	adminToken := auth.Login(admin.ID, models.RoleAdmin)
	base := "/api/v1/students/" + kid.ID.String()

	w := testutil.Do(r, http.MethodGet, "/api/v1/students/me", kidToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var me models.StudentProfile
	testutil.Decode(t, w, &me)
	assert.Equal(t, kid.ID, me.ID)

	w = testutil.Do(r, http.MethodGet, base+"/statistics", otherToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.Do(r, http.MethodPost, base+"/achievements", kidToken, gin.H{"achievementId": badge.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.Do(r, http.MethodPost, base+"/achievements", adminToken, gin.H{"achievementId": badge.ID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = testutil.Do(r, http.MethodPost, base+"/achievements", adminToken, gin.H{"achievementId": badge.ID})
	require.Equal(t, http.StatusOK, w.Code)

	w = testutil.Do(r, http.MethodGet, base+"/statistics", kidToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats Statistics
	testutil.Decode(t, w, &stats)
	assert.Equal(t, 30, stats.TotalPoints)
	assert.Equal(t, int64(1), stats.AchievementsCount)

	require.NoError(t, db.Model(&models.StudentProfile{}).Where("id = ?", kid.ID).
		Updates(map[string]interface{}{"average_score": 85, "total_lessons_completed": 16}).Error)
	w = testutil.Do(r, http.MethodPost, base+"/recalculate-level", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var level struct {
		Level int `json:"level"`
	}
	testutil.Decode(t, w, &level)
	assert.Equal(t, 8, level.Level)

	w = testutil.Do(r, http.MethodGet, base+"/achievements", kidToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var earned []models.StudentAchievement
	testutil.Decode(t, w, &earned)
	require.Len(t, earned, 1)
	assert.Equal(t, "Helper", earned[0].Achievement.Name)
}
