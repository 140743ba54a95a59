package users

import (
	"github.com/gin-gonic/gin"

	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/middleware"
	"github.com/jgirmay/alif24/internal/common/response"
	"github.com/jgirmay/alif24/internal/common/validation"
	"github.com/jgirmay/alif24/internal/models"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter, g middleware.Guards) {
	users := r.Group("/users", g.Auth)
	users.GET("", middleware.AdminOnly(), h.Search)
	users.PUT("/me", h.UpdateMe)
	users.GET("/role/:role", middleware.AdminOnly(), h.ByRole)

	children := users.Group("/parents/me/children", middleware.ParentOnly())
	children.GET("", h.Children)
	children.POST("", h.LinkChild)
	children.DELETE("/:studentId", h.UnlinkChild)

	users.GET("/:id", h.Get)
	users.PUT("/:id/deactivate", middleware.AdminOnly(), h.Deactivate)
	users.PUT("/:id/activate", middleware.AdminOnly(), h.Activate)
}

// GET /users
func (h *Handler) Search(c *gin.Context) {
	var q SearchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}
	page, err := h.service.Search(c.Request.Context(), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, "", page)
}

// Get returns a user to themselves or an admin
// GET /users/:id
func (h *Handler) Get(c *gin.Context) {
	principal, err := middleware.CurrentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if id != principal.UserID && !principal.IsAdmin() {
		response.Error(c, errors.Forbidden("Access denied"))
		return
	}

	user, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", user)
}

// PUT /users/me
func (h *Handler) UpdateMe(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req UpdateProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}

	user, err := h.service.UpdateProfile(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Profile updated", user)
}

// GET /users/role/:role
func (h *Handler) ByRole(c *gin.Context) {
	var q struct {
		Page  int `form:"page" binding:"omitempty,min=1"`
		Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}

	page, err := h.service.ByRole(c.Request.Context(), models.Role(c.Param("role")), database.NewPagination(q.Page, q.Limit))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, "", page)
}

// PUT /users/:id/deactivate
func (h *Handler) Deactivate(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Deactivate(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "User deactivated", nil)
}

// PUT /users/:id/activate
func (h *Handler) Activate(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Activate(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "User activated", nil)
}

// GET /users/parents/me/children
func (h *Handler) Children(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	children, err := h.service.Children(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", children)
}

// POST /users/parents/me/children
func (h *Handler) LinkChild(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req LinkChildInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}

	link, err := h.service.LinkChild(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Child linked", link)
}

// DELETE /users/parents/me/children/:studentId
func (h *Handler) UnlinkChild(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	studentID, err := middleware.ParamUUID(c, "studentId")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.UnlinkChild(c.Request.Context(), userID, studentID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Child unlinked", nil)
}
