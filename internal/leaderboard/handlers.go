package leaderboard

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
	board := r.Group("/leaderboard", g.Auth)
	board.GET("", h.Top)
	board.GET("/me", middleware.StudentOnly(), h.Me)
}

// Top lists the highest scoring students
// GET /leaderboard?limit=10
func (h *Handler) Top(c *gin.Context) {
	var q struct {
		Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}

	entries, err := h.service.Top(c.Request.Context(), q.Limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", entries)
}

// GET /leaderboard/me
func (h *Handler) Me(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	standing, err := h.service.Me(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", standing)
}
