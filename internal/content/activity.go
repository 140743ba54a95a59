package content

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/jgirmay/alif24/internal/achievements"
	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/middleware"
	"github.com/jgirmay/alif24/internal/common/response"
	"github.com/jgirmay/alif24/internal/common/validation"
	"github.com/jgirmay/alif24/internal/models"
	"github.com/jgirmay/alif24/internal/rewards"
)

// LessonCompletion is the reply to a lesson completion.
type LessonCompletion struct {
	*rewards.LessonOutcome
	NewAchievements []models.Achievement `json:"newAchievements"`
}

// GameCompletion is the reply to a game session end.
type GameCompletion struct {
	*rewards.GameOutcome
	NewAchievements []models.Achievement `json:"newAchievements"`
}

type startGameRequest struct {
	Level int `json:"level" binding:"omitempty,min=1,max=10"`
}

func (h *Handler) currentStudent(c *gin.Context) (*models.StudentProfile, bool) {
	userID, err := middleware.CurrentUserID(c)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	student, err := h.students.ForUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, err)
		return nil, false
	}
	return student, true
}

// evaluate runs the achievement check after committed rewards. A failure
// here does not undo the activity, so it is logged and swallowed.
func (h *Handler) evaluate(ctx context.Context, studentID uuid.UUID, sig achievements.Signal) []models.Achievement {
	awarded, err := h.evaluator.Evaluate(ctx, studentID, sig)
	if err != nil {
		h.log.Error("Achievement evaluation failed", zap.String("student_id", studentID.String()), zap.Error(err))
		return []models.Achievement{}
	}
	if awarded == nil {
		return []models.Achievement{}
	}
	return awarded
}

// POST /lessons/:id/start
func (h *Handler) StartLesson(c *gin.Context) {
	lessonID, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}
	progress, err := h.engine.StartLesson(c.Request.Context(), student.ID, lessonID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Lesson started", progress)
}

// POST /lessons/:id/complete
func (h *Handler) CompleteLesson(c *gin.Context) {
	lessonID, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req rewards.LessonResult
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	outcome, err := h.engine.CompleteLesson(ctx, student.ID, lessonID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	score := req.Score
	response.OK(c, "Lesson completed", LessonCompletion{
		LessonOutcome:   outcome,
		NewAchievements: h.evaluate(ctx, student.ID, achievements.Signal{LastScore: &score}),
	})
}

// GET /lessons/:id/progress
func (h *Handler) LessonProgress(c *gin.Context) {
	lessonID, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}
	progress, err := h.service.LessonProgress(c.Request.Context(), student.ID, lessonID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "", progress)
}

// StartGame opens a session; the body may pick a level
// POST /games/:id/start
func (h *Handler) StartGame(c *gin.Context) {
	gameID, err := middleware.ParamUUID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req startGameRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, validation.FromBindError(err))
			return
		}
	}
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}
	session, err := h.engine.StartGameSession(c.Request.Context(), student.ID, gameID, req.Level)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, "Game session started", session)
}

// POST /games/sessions/:sessionId/end
func (h *Handler) EndGame(c *gin.Context) {
	sessionID, err := middleware.ParamUUID(c, "sessionId")
	if err != nil {
		response.Error(c, err)
		return
	}
	var req rewards.GameResult
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	session, err := h.service.Session(ctx, sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if session.StudentID != student.ID {
		response.Error(c, errors.Forbidden("Game session belongs to another student"))
		return
	}

	outcome, err := h.engine.EndGameSession(ctx, sessionID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, "Game session ended", GameCompletion{
		GameOutcome:     outcome,
		NewAchievements: h.evaluate(ctx, student.ID, achievements.Signal{}),
	})
}

// GetSession is visible to the owning student and to admins
// GET /games/sessions/:sessionId
func (h *Handler) GetSession(c *gin.Context) {
	sessionID, err := middleware.ParamUUID(c, "sessionId")
	if err != nil {
		response.Error(c, err)
		return
	}
	principal, err := middleware.CurrentPrincipal(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	ctx := c.Request.Context()
	session, err := h.service.Session(ctx, sessionID)
	if err != nil {
		response.Error(c, err)
		return
	}
	if !principal.IsAdmin() {
		student, err := h.students.ForUser(ctx, principal.UserID)
		if err != nil || student.ID != session.StudentID {
			response.Error(c, errors.Forbidden("Access denied"))
			return
		}
	}
	response.OK(c, "", session)
}

// GET /games/my-sessions
func (h *Handler) MySessions(c *gin.Context) {
	var q struct {
		Page  int `form:"page" binding:"omitempty,min=1"`
		Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
	}
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error(c, validation.FromBindError(err))
		return
	}
	student, ok := h.currentStudent(c)
	if !ok {
		return
	}
	page, err := h.service.SessionsFor(c.Request.Context(), student.ID, database.NewPagination(q.Page, q.Limit))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, "", page)
}
