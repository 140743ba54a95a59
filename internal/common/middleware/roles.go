package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/response"
	"github.com/jgirmay/alif24/internal/models"
)

// RequireRoles lets the request through only for the listed roles.
// It must run after AuthRequired.
func RequireRoles(roles ...models.Role) gin.HandlerFunc {
	allowed := make(map[models.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}

	return func(c *gin.Context) {
		principal, err := CurrentPrincipal(c)
		if err != nil {
			response.Error(c, err)
			return
		}
		if !allowed[principal.Role] {
			response.Error(c, errors.Forbidden("You do not have permission to perform this action"))
			return
		}
		c.Next()
	}
}

func AdminOnly() gin.HandlerFunc {
	return RequireRoles(models.RoleAdmin)
}

func TeacherOrAdmin() gin.HandlerFunc {
	return RequireRoles(models.RoleTeacher, models.RoleAdmin)
}

func StudentOnly() gin.HandlerFunc {
	return RequireRoles(models.RoleStudent)
}

func ParentOnly() gin.HandlerFunc {
	return RequireRoles(models.RoleParent)
}
