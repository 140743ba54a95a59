package middleware

import "github.com/gin-gonic/gin"

// Guards are the per-route middleware feature handlers mount.
type Guards struct {
	Auth     gin.HandlerFunc
	Optional gin.HandlerFunc
	Limits   RateLimits
}

func NewGuards(auth Authenticator, limits RateLimits) Guards {
	return Guards{
		Auth:     AuthRequired(auth),
		Optional: OptionalAuth(auth),
		Limits:   limits,
	}
}
