package students

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jgirmay/alif24/internal/achievements"
	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/common/middleware"
	"github.com/jgirmay/alif24/internal/common/response"
	"github.com/jgirmay/alif24/internal/common/validation"
	"github.com/jgirmay/alif24/internal/rewards"
)

type Handler struct {
	service   *Service
	engine    *rewards.Engine
	evaluator *achievements.Evaluator
}

func NewHandler(service *Service, engine *rewards.Engine, evaluator *achievements.Evaluator) *Handler {
	return &Handler{service: service, engine: engine, evaluator: evaluator}
}

func (h *Handler) RegisterRoutes(r gin.IRouter, g middleware.Guards) {
	students := r.Group("/students", g.Auth)

	me := students.Group("/me", middleware.StudentOnly())
	me.GET("", h.Me)
	me.POST("", h.UpsertMe)
	me.PUT("", h.UpdateMe)

	students.GET("/:id", h.Get)
	students.GET("/:id/progress", h.Progress)
	students.GET("/:id/achievements", h.Achievements)
	students.GET("/:id/statistics", h.Statistics)

	admin := students.Group("/:id", middleware.AdminOnly())
	admin.POST("/achievements", h.Award)
	admin.POST("/achievements/evaluate", h.Evaluate)
	admin.POST("/recalculate-level", h.RecalculateLevel)
}

// authorized resolves :id and checks the caller may read that student.
func (h *Handler) authorized(c *gin.Context) (uuid.UUID, bool) {
	principal, err := middleware.CurrentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return uuid.Nil, false
	}
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return uuid.Nil, false
	}
	if err := h.service.Authorize(c.Request.Context(), principal, id); err != nil {
		response.Error(c, err)
		return uuid.Nil, false
	}
	return id, true
}

// GET /students/me
func (h *Handler) Me(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	profile, err := h.service.ForUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", profile)
}

// POST /students/me
func (h *Handler) UpsertMe(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}
	profile, err := h.service.Upsert(c.Request.Context(), userID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Profile saved", profile)
}

// PUT /students/me
func (h *Handler) UpdateMe(c *gin.Context) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	var req ProfileInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}

	ctx := c.Request.Context()
	id, err := h.service.IDForUser(ctx, userID)
	if err != nil {
		response.Error(c, err)
		return
	}
	profile, err := h.service.Update(ctx, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Profile updated", profile)
}

// GET /students/:id
func (h *Handler) Get(c *gin.Context) {
	id, ok := h.authorized(c)
	if !ok {
		return
	}
	profile, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", profile)
}

// GET /students/:id/progress
func (h *Handler) Progress(c *gin.Context) {
	id, ok := h.authorized(c)
	if !ok {
		return
	}
	var q struct {
		Page  int `form:"page" binding:"omitempty,min=1"`
		Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}

	page, err := h.service.Progress(c.Request.Context(), id, database.NewPagination(q.Page, q.Limit))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, "", page)
}

// GET /students/:id/achievements
func (h *Handler) Achievements(c *gin.Context) {
	id, ok := h.authorized(c)
	if !ok {
		return
	}
	list, err := h.service.Achievements(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", list)
}

// GET /students/:id/statistics
func (h *Handler) Statistics(c *gin.Context) {
	id, ok := h.authorized(c)
	if !ok {
		return
	}
	stats, err := h.service.Statistics(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", stats)
}

// Award grants an achievement by hand
// POST /students/:id/achievements
func (h *Handler) Award(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req struct {
		AchievementID uuid.UUID `json:"achievementId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}

	award, err := h.engine.AwardAchievement(c.Request.Context(), id, req.AchievementID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if award.Created {
		response.Created(c, "Achievement awarded", award.StudentAchievement)
		return
	}
	response.OK(c, "Achievement already earned", award.StudentAchievement)
}

// POST /students/:id/achievements/evaluate
func (h *Handler) Evaluate(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	awarded, err := h.evaluator.Evaluate(c.Request.Context(), id, achievements.Signal{})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Achievements evaluated", awarded)
}

// POST /students/:id/recalculate-level
func (h *Handler) RecalculateLevel(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	student, err := h.engine.RecalculateLevel(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Level recalculated", gin.H{"level": student.Level})
}
