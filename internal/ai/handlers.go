package ai

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
	authors := []gin.HandlerFunc{g.Auth, middleware.TeacherOrAdmin()}

	ai := r.Group("/ai", authors...)
	ai.POST("/quiz", h.GenerateQuiz)
	ai.POST("/students/:id/analysis", h.AnalyzeStudent)

	r.POST("/lessons/generate", append(authors, h.GenerateLesson)...)
}

// GenerateLesson drafts lesson content for review; the author saves it through POST /lessons
// POST /lessons/generate
func (h *Handler) GenerateLesson(c *gin.Context) {
	var req LessonRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}

	draft, err := h.service.GenerateLesson(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Lesson content generated", draft)
}

// POST /ai/quiz
func (h *Handler) GenerateQuiz(c *gin.Context) {
	var req QuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}

	questions, err := h.service.GenerateQuiz(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", gin.H{"questions": questions})
}

// POST /ai/students/:id/analysis
func (h *Handler) AnalyzeStudent(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	analysis, err := h.service.AnalyzePerformance(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", analysis)
}
