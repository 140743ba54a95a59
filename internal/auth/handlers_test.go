package auth

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jgirmay/alif24/internal/testutil"
)

func newTestRouter(t *testing.T) *gin.Engine {
	t.Helper()
	svc, _ := newTestService(t)
	r := gin.New()
	NewHandler(svc).RegisterRoutes(r.Group("/api/v1"), testutil.Guards(svc))
	return r
}

func TestRegisterLoginMeFlow(t *testing.T) {
	r := newTestRouter(t)

	w := testutil.Do(r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "kid@example.com", "password": "Secret123", "firstName": "Ali", "lastName": "Valiyev",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var session Session
	env := testutil.Decode(t, w, &session)
	assert.True(t, env.Success)
	assert.NotEmpty(t, session.AccessToken)
	assert.NotContains(t, w.Body.String(), "passwordHash")

	w = testutil.Do(r, http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": "kid@example.com", "password": "Secret123"})
	require.Equal(t, http.StatusOK, w.Code)
	testutil.Decode(t, w, &session)

	w = testutil.Do(r, http.MethodGet, "/api/v1/auth/me", session.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var account Account
	testutil.Decode(t, w, &account)
	assert.Equal(t, "kid@example.com", account.User.Email)
	assert.NotNil(t, account.Student)
}

func TestRegisterValidation(t *testing.T) {
	r := newTestRouter(t)

	w := testutil.Do(r, http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"email": "kid@example.com", "password": "alllowercase1", "firstName": "Ali", "lastName": "Valiyev",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	env := testutil.Decode(t, w, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, "VALIDATION_ERROR", env.Error.Code)
	assert.Contains(t, string(env.Error.Details), "password")
}

func TestMeRequiresToken(t *testing.T) {
	r := newTestRouter(t)

	w := testutil.Do(r, http.MethodGet, "/api/v1/auth/me", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = testutil.Do(r, http.MethodGet, "/api/v1/auth/me", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
