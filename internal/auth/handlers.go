package auth

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

// RegisterRoutes mounts /auth.
func (h *Handler) RegisterRoutes(r gin.IRouter, g middleware.Guards) {
	auth := r.Group("/auth")
	auth.POST("/register", g.Limits.Register, h.Register)
	auth.POST("/login", g.Limits.Auth, h.Login)
	auth.POST("/refresh", g.Limits.Auth, h.Refresh)
	auth.POST("/logout", g.Auth, h.Logout)
	auth.GET("/me", g.Auth, h.Me)
	auth.PUT("/change-password", g.Auth, h.ChangePassword)
}

// Register creates an account
// POST /auth/register
func (h *Handler) Register(c *gin.Context) {
	var req RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}

	session, err := h.service.Register(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Registration successful", session)
}

// Login authenticates with email and password
// POST /auth/login
func (h *Handler) Login(c *gin.Context) {
	var req LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}

	session, err := h.service.Login(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Login successful", session)
}

// Refresh rotates the token pair
// POST /auth/refresh
func (h *Handler) Refresh(c *gin.Context) {
	var req RefreshInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}

	session, err := h.service.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Token refreshed", session)
}

// POST /auth/logout
func (h *Handler) Logout(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.Logout(c.Request.Context(), userID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Logged out successfully", nil)
}

// GET /auth/me
func (h *Handler) Me(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	account, err := h.service.Me(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", account)
}

// PUT /auth/change-password
func (h *Handler) ChangePassword(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	var req ChangePasswordInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}
	if err := h.service.ChangePassword(c.Request.Context(), userID, req); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Password changed successfully", nil)
}
