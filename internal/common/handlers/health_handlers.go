package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jgirmay/alif24/internal/common/health"
)

// HealthHandler manages health check endpoints
type HealthHandler struct {
	checker *health.HealthChecker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(checker *health.HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// RegisterRoutes mounts the health endpoints under /health.
func (h *HealthHandler) RegisterRoutes(r gin.IRouter) {
	g := r.Group("/health")
	g.GET("", h.Health)
	g.GET("/ready", h.Readiness)
	g.GET("/live", h.Liveness)
	g.GET("/detailed", h.Detailed)
}

// Health returns the overall status
// GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	status := h.checker.Check(c.Request.Context())
	code := http.StatusOK
	if status.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"success":   status.Status != health.StatusUnhealthy,
		"status":    status.Status,
		"timestamp": status.Timestamp,
		"version":   status.Version,
	})
}

// Readiness returns readiness status
// GET /health/ready
func (h *HealthHandler) Readiness(c *gin.Context) {
	if h.checker.IsReady(c.Request.Context()) {
		c.JSON(http.StatusOK, gin.H{"ready": true})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{"ready": false})
}

// Liveness returns liveness status
// GET /health/live
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"alive": h.checker.IsAlive()})
}

// Detailed returns every component check plus runtime metrics
// GET /health/detailed
func (h *HealthHandler) Detailed(c *gin.Context) {
	status := h.checker.Check(c.Request.Context())
	code := http.StatusOK
	if status.Status == health.StatusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":     status.Status,
		"timestamp":  status.Timestamp,
		"version":    status.Version,
		"checks":     status.Checks,
		"metrics":    h.checker.GetMetrics(),
		"durationMs": status.Duration,
	})
}
