package achievements

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jgirmay/alif24/internal/models"
	"github.com/jgirmay/alif24/internal/testutil"
)

func TestCatalogRoutes(t *testing.T) {
	db := testutil.NewDB(t)
	auth := testutil.NewStaticAuth()
	r := gin.New()
	NewHandler(NewService(db, zap.NewNop())).RegisterRoutes(r.Group("/api/v1"), testutil.Guards(auth))

	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	teacher := testutil.CreateUser(t, db, "teacher@example.com", models.RoleTeacher)
	adminToken := auth.Login(admin.ID, models.RoleAdmin)

	body := gin.H{"name": "Week Warrior", "nameUz": "Haftalik jangchi", "nameRu": "Недельный воин", "category": "streak", "criteria": gin.H{"streakDays": 7}, "pointsReward": 200}
	w := testutil.Do(r, http.MethodPost, "/api/v1/achievements", auth.Login(teacher.ID, models.RoleTeacher), body)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.Do(r, http.MethodPost, "/api/v1/achievements", adminToken, body)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created models.Achievement
	testutil.Decode(t, w, &created)
	assert.Equal(t, 7, created.Criteria.Data().StreakDays)
	assert.Equal(t, 200, created.PointsReward)
	assert.True(t, created.IsActive)

	w = testutil.Do(r, http.MethodPut, "/api/v1/achievements/"+created.ID.String(), adminToken, gin.H{"pointsReward": 250})
	require.Equal(t, http.StatusOK, w.Code)

	w = testutil.Do(r, http.MethodDelete, "/api/v1/achievements/"+created.ID.String(), adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = testutil.Do(r, http.MethodGet, "/api/v1/achievements", "", nil)
	var list []models.Achievement
	testutil.Decode(t, w, &list)
	assert.Empty(t, list)

	w = testutil.Do(r, http.MethodGet, "/api/v1/achievements?includeInactive=true", adminToken, nil)
	testutil.Decode(t, w, &list)
	require.Len(t, list, 1)
	assert.Equal(t, 250, list[0].PointsReward)
	assert.False(t, list[0].IsActive)
}
