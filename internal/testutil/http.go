package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/middleware"
	"github.com/jgirmay/alif24/internal/common/response"
	"github.com/jgirmay/alif24/internal/models"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Envelope mirrors response.Envelope with the payload left raw.
type Envelope struct {
	Success    bool                 `json:"success"`
	Message    string               `json:"message"`
	Data       json.RawMessage      `json:"data"`
	Pagination *response.Pagination `json:"pagination"`
	Error      *struct {
		Code    string          `json:"code"`
		Message string          `json:"message"`
		Details json.RawMessage `json:"details"`
	} `json:"error"`
}

// Do sends a JSON request with an optional bearer token.
func Do(h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

// Decode parses the envelope and, when out is non-nil, its data payload.
func Decode(t testing.TB, w *httptest.ResponseRecorder, out interface{}) Envelope {
	t.Helper()
	var env Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("invalid envelope %q: %v", w.Body.String(), err)
	}
	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			t.Fatalf("invalid data %s: %v", env.Data, err)
		}
	}
	return env
}

// StaticAuth accepts tokens registered with Login.
type StaticAuth struct {
	principals map[string]*middleware.Principal
}

func NewStaticAuth() *StaticAuth {
	return &StaticAuth{principals: map[string]*middleware.Principal{}}
}

// Login returns a token that authenticates as the given user.
func (a *StaticAuth) Login(userID uuid.UUID, role models.Role) string {
	token := "token-" + userID.String()
	a.principals[token] = &middleware.Principal{UserID: userID, Role: role, Email: userID.String() + "@example.com"}
	return token
}

func (a *StaticAuth) Authenticate(_ context.Context, token string) (*middleware.Principal, error) {
	if p, ok := a.principals[token]; ok {
		return p, nil
	}
	return nil, errors.Unauthorized("Invalid token")
}

// Guards builds route guards around auth with rate limiting disabled.
func Guards(auth middleware.Authenticator) middleware.Guards {
	pass := func(c *gin.Context) { c.Next() }
	return middleware.NewGuards(auth, middleware.RateLimits{General: pass, Auth: pass, Register: pass, Game: pass})
}
