package middleware

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/response"
)

// ErrorHandler middleware catches panics and converts them to proper error responses
func ErrorHandler(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic recovered",
					zap.Any("panic", r),
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Stack("stack"),
				)
				response.Error(c, errors.Internal("Internal server error", nil))
			}
		}()
		c.Next()
	}
}

// NotFoundHandler renders unknown routes with the error envelope.
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		response.Error(c, errors.NotFound("Route "+c.Request.Method+" "+c.Request.URL.Path))
	}
}
