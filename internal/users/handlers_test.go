package users

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

func TestUserRoutesEnforceRoles(t *testing.T) {
	db := testutil.NewDB(t)
	auth := testutil.NewStaticAuth()
	r := gin.New()
	NewHandler(NewService(db, zap.NewNop())).RegisterRoutes(r.Group("/api/v1"), testutil.Guards(auth))

	admin := testutil.CreateUser(t, db, "admin@example.com", models.RoleAdmin)
	kid, _ := testutil.CreateStudent(t, db, "kid@example.com")
	other := testutil.CreateUser(t, db, "teacher@example.com", models.RoleTeacher)
	adminToken := auth.Login(admin.ID, models.RoleAdmin)
	kidToken := auth.Login(kid.ID, models.RoleStudent)

	w := testutil.Do(r, http.MethodGet, "/api/v1/users?role=student", kidToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = testutil.Do(r, http.MethodGet, "/api/v1/users?role=student", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	env := testutil.Decode(t, w, nil)
	require.NotNil(t, env.Pagination)
	assert.Equal(t, int64(1), env.Pagination.Total)

	w = testutil.Do(r, http.MethodGet, "/api/v1/users/"+kid.ID.String(), kidToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = testutil.Do(r, http.MethodGet, "/api/v1/users/"+other.ID.String(), kidToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = testutil.Do(r, http.MethodGet, "/api/v1/users/not-a-uuid", adminToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = testutil.Do(r, http.MethodPut, "/api/v1/users/"+other.ID.String()+"/deactivate", adminToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = testutil.Do(r, http.MethodPut, "/api/v1/users/me", kidToken, gin.H{"language": "fr"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestParentChildrenRoutes(t *testing.T) {
	db := testutil.NewDB(t)
	auth := testutil.NewStaticAuth()
	r := gin.New()
	NewHandler(NewService(db, zap.NewNop())).RegisterRoutes(r.Group("/api/v1"), testutil.Guards(auth))

	parent, _ := testutil.CreateParent(t, db, "dad@example.com")
	_, student := testutil.CreateStudent(t, db, "kid@example.com")
	token := auth.Login(parent.ID, models.RoleParent)

	w := testutil.Do(r, http.MethodPost, "/api/v1/users/parents/me/children", token, gin.H{
		"studentId": student.ID, "relationship": "father",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = testutil.Do(r, http.MethodGet, "/api/v1/users/parents/me/children", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var links []models.ParentStudent
	testutil.Decode(t, w, &links)
	require.Len(t, links, 1)
	assert.Equal(t, models.RelationshipFather, links[0].Relationship)

	w = testutil.Do(r, http.MethodDelete, "/api/v1/users/parents/me/children/"+student.ID.String(), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
