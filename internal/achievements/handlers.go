package achievements

import (
	"github.com/gin-gonic/gin"

	"github.com/jgirmay/alif24/internal/common/middleware"
	"github.com/jgirmay/alif24/internal/common/response"
	"github.com/jgirmay/alif24/internal/common/validation"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter, g middleware.Guards) {
	achievements := r.Group("/achievements")
	achievements.GET("", g.Optional, h.List)
	achievements.GET("/:id", h.Get)

	admin := achievements.Group("", g.Auth, middleware.AdminOnly())
	admin.POST("", h.Create)
	admin.PUT("/:id", h.Update)
	admin.DELETE("/:id", h.Delete)
}

// List returns the catalog; admins may pass includeInactive=true
// GET /achievements
func (h *Handler) List(c *gin.Context) {
	includeInactive := false
	if p, err := middleware.CurrentPrincipal(c); err == nil && p.IsAdmin() {
		includeInactive = c.Query("includeInactive") == "true"
	}

	list, err := h.service.List(c.Request.Context(), includeInactive)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", list)
}

// GET /achievements/:id
func (h *Handler) Get(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	a, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", a)
}

// POST /achievements
func (h *Handler) Create(c *gin.Context) {
	var req CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}
	a, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Achievement created", a)
}

// PUT /achievements/:id
func (h *Handler) Update(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}
	a, err := h.service.Update(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Achievement updated", a)
}

// DELETE /achievements/:id
func (h *Handler) Delete(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Achievement deleted", nil)
}
