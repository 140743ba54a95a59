package content

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jgirmay/alif24/internal/achievements"
	"github.com/jgirmay/alif24/internal/common/middleware"
	"github.com/jgirmay/alif24/internal/common/response"
	"github.com/jgirmay/alif24/internal/common/validation"
	"github.com/jgirmay/alif24/internal/models"
	"github.com/jgirmay/alif24/internal/rewards"
)

// StudentResolver maps an account to its student profile.
type StudentResolver interface {
	ForUser(ctx context.Context, userID uuid.UUID) (*models.StudentProfile, error)
}

// Evaluator checks achievement criteria after an activity.
type Evaluator interface {
	Evaluate(ctx context.Context, studentID uuid.UUID, sig achievements.Signal) ([]models.Achievement, error)
}

type Handler struct {
	service   *Service
	engine    *rewards.Engine
	evaluator Evaluator
	students  StudentResolver
	now       func() time.Time
	log       *zap.Logger
}

func NewHandler(service *Service, engine *rewards.Engine, evaluator Evaluator, students StudentResolver, log *zap.Logger) *Handler {
	return &Handler{
		service:   service,
		engine:    engine,
		evaluator: evaluator,
		students:  students,
		now:       time.Now,
		log:       log,
	}
}

func (h *Handler) RegisterRoutes(r gin.IRouter, g middleware.Guards) {
	subjects := r.Group("/subjects")
	subjects.GET("", h.ListSubjects)
	subjects.GET("/:id", h.GetSubject)
	subjectAdmin := subjects.Group("", g.Auth, middleware.AdminOnly())
	subjectAdmin.POST("", h.CreateSubject)
	subjectAdmin.PUT("/:id", h.UpdateSubject)
	subjectAdmin.DELETE("/:id", h.DeleteSubject)

	lessons := r.Group("/lessons")
	lessons.GET("", h.ListLessons)
	lessons.GET("/for-me", g.Auth, middleware.StudentOnly(), h.LessonsForMe)
	lessons.GET("/:id", g.Optional, h.GetLesson)
	lessonAuthors := lessons.Group("", g.Auth, middleware.TeacherOrAdmin())
	lessonAuthors.POST("", h.CreateLesson)
	lessonAuthors.PUT("/:id", h.UpdateLesson)
	lessonAuthors.DELETE("/:id", h.DeleteLesson)
	lessonWork := lessons.Group("/:id", g.Auth, middleware.StudentOnly())
	lessonWork.POST("/start", h.StartLesson)
	lessonWork.POST("/complete", h.CompleteLesson)
	lessonWork.GET("/progress", h.LessonProgress)

	games := r.Group("/games")
	games.GET("", h.ListGames)
	games.GET("/for-me", g.Auth, middleware.StudentOnly(), h.GamesForMe)
	games.GET("/my-sessions", g.Auth, middleware.StudentOnly(), h.MySessions)
	games.GET("/sessions/:sessionId", g.Auth, h.GetSession)
	games.POST("/sessions/:sessionId/end", g.Auth, middleware.StudentOnly(), h.EndGame)
	games.GET("/:id", g.Optional, h.GetGame)
	games.POST("/:id/start", g.Auth, middleware.StudentOnly(), g.Limits.Game, h.StartGame)
	gameAuthors := games.Group("", g.Auth, middleware.TeacherOrAdmin())
	gameAuthors.POST("", h.CreateGame)
	gameAuthors.PUT("/:id", h.UpdateGame)
	gameAuthors.DELETE("/:id", h.DeleteGame)
}

// viewer returns the caller when one is authenticated.
func viewer(c *gin.Context) *middleware.Principal {
	p, err := middleware.CurrentPrincipal(c)
	if err != nil {
		return nil
	}
	return p
}

func bindFilter(c *gin.Context) (Filter, bool) {
	var f Filter
	if err := c.ShouldBindQuery(&f); err != nil {
		response.Error(c, validation.FromBindError(err))
		return f, false
	}
	return f, true
}

// GET /subjects
func (h *Handler) ListSubjects(c *gin.Context) {
	list, err := h.service.Subjects(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", list)
}

// GET /subjects/:id
func (h *Handler) GetSubject(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	subject, err := h.service.Subject(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", subject)
}

// POST /subjects
func (h *Handler) CreateSubject(c *gin.Context) {
	var req SubjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}
	subject, err := h.service.CreateSubject(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Subject created", subject)
}

// PUT /subjects/:id
func (h *Handler) UpdateSubject(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req SubjectUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}
	subject, err := h.service.UpdateSubject(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Subject updated", subject)
}

// DELETE /subjects/:id
func (h *Handler) DeleteSubject(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.DeleteSubject(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Subject deleted", nil)
}

// GET /lessons
func (h *Handler) ListLessons(c *gin.Context) {
	f, ok := bindFilter(c)
	if !ok {
		return
	}
	page, err := h.service.Lessons(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, "", page)
}

// LessonsForMe recommends lessons for the calling student
// GET /lessons/for-me
func (h *Handler) LessonsForMe(c *gin.Context) {
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}
	f, ok := bindFilter(c)
	if !ok {
		return
	}
	page, err := h.service.LessonsFor(c.Request.Context(), student, f, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, "", page)
}

// GET /lessons/:id
func (h *Handler) GetLesson(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	lesson, err := h.service.Lesson(c.Request.Context(), viewer(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", lesson)
}

// POST /lessons
func (h *Handler) CreateLesson(c *gin.Context) {
	var req LessonInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}
	lesson, err := h.service.CreateLesson(c.Request.Context(), viewer(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Lesson created", lesson)
}

// PUT /lessons/:id
func (h *Handler) UpdateLesson(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req LessonUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}
	lesson, err := h.service.UpdateLesson(c.Request.Context(), viewer(c), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Lesson updated", lesson)
}

// DELETE /lessons/:id
func (h *Handler) DeleteLesson(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.DeleteLesson(c.Request.Context(), viewer(c), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Lesson deleted", nil)
}

// GET /games
func (h *Handler) ListGames(c *gin.Context) {
	f, ok := bindFilter(c)
	if !ok {
		return
	}
	page, err := h.service.Games(c.Request.Context(), f)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, "", page)
}

// GET /games/for-me
func (h *Handler) GamesForMe(c *gin.Context) {
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}
	f, ok := bindFilter(c)
	if !ok {
		return
	}
	page, err := h.service.GamesFor(c.Request.Context(), student, f, h.now())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, "", page)
}

// GET /games/:id
func (h *Handler) GetGame(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	game, err := h.service.Game(c.Request.Context(), viewer(c), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", game)
}

// POST /games
func (h *Handler) CreateGame(c *gin.Context) {
	var req GameInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}
	game, err := h.service.CreateGame(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Game created", game)
}

// PUT /games/:id
func (h *Handler) UpdateGame(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req GameUpdate
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}
	game, err := h.service.UpdateGame(c.Request.Context(), id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Game updated", game)
}

// DELETE /games/:id
func (h *Handler) DeleteGame(c *gin.Context) {
	id, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.service.DeleteGame(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Game deleted", nil)
}
