package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/response"
	"github.com/jgirmay/alif24/internal/models"
)

const (
	userIDKey    = "user_id"
	userRoleKey  = "user_role"
	principalKey = "principal"
)

// Principal is the authenticated caller.
type Principal struct {
	UserID uuid.UUID
	Email  string
	Role   models.Role
}

func (p *Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// Authenticator resolves a bearer token to an active user.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Principal, error)
}

// AuthRequired middleware rejects requests without a valid bearer token
func AuthRequired(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			response.Error(c, errors.Unauthorized("No token provided"))
			return
		}

		principal, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}

		setPrincipal(c, principal)
		c.Next()
	}
}

// OptionalAuth attaches the caller when a valid token is present and
// otherwise lets the request through anonymously.
func OptionalAuth(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := bearerToken(c); token != "" {
			if principal, err := auth.Authenticate(c.Request.Context(), token); err == nil {
				setPrincipal(c, principal)
			}
		}
		c.Next()
	}
}

// CurrentPrincipal returns the caller attached by AuthRequired.
func CurrentPrincipal(c *gin.Context) (*Principal, error) {
	value, exists := c.Get(principalKey)
	if !exists {
		return nil, errors.Unauthorized("Authentication required")
	}
	principal, ok := value.(*Principal)
	if !ok {
		return nil, errors.Unauthorized("Authentication required")
	}
	return principal, nil
}

// CurrentUserID returns the id of the authenticated caller.
func CurrentUserID(c *gin.Context) (uuid.UUID, error) {
	principal, err := CurrentPrincipal(c)
	if err != nil {
		return uuid.Nil, err
	}
	return principal.UserID, nil
}

// ParamUUID parses a UUID path parameter.
func ParamUUID(c *gin.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, errors.BadRequest("invalid " + name)
	}
	return id, nil
}

func setPrincipal(c *gin.Context, p *Principal) {
	c.Set(principalKey, p)
	c.Set(userIDKey, p.UserID.String())
	c.Set(userRoleKey, string(p.Role))
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	return ""
}

// TokenFromQuery lets clients that cannot set headers, such as browser
// websockets, pass the bearer token as ?token=.
func TokenFromQuery() gin.HandlerFunc {
	return func(c *gin.Context) {
		if bearerToken(c) == "" {
			if token := c.Query("token"); token != "" {
				c.Request.Header.Set("Authorization", "Bearer "+token)
			}
		}
		c.Next()
	}
}
