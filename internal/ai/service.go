// Package ai generates lesson drafts, quizzes and performance advice with a
// chat completion model.
package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/repository"
	"github.com/jgirmay/alif24/internal/models"
)

const CodeDisabled = "AI_DISABLED"

// ErrDisabled is returned by every operation when no completer is configured.
var ErrDisabled = &errors.AppError{
	Code:    CodeDisabled,
	Message: "AI assistance is not configured",
	Status:  http.StatusServiceUnavailable,
}

const (
	recentScoreLimit = 20
	weakTopicScore   = 60.0
)

type LessonRequest struct {
	Topic     string          `json:"topic" binding:"required,min=2,max=200"`
	SubjectID uuid.UUID       `json:"subjectId" binding:"required"`
	Level     int             `json:"level" binding:"required,min=1,max=10"`
	Language  models.Language `json:"language" binding:"omitempty,oneof=uz ru"`
	Age       int             `json:"age" binding:"required,min=4,max=7"`
}

// LessonDraft is generated content shaped like a lesson create request.
type LessonDraft struct {
	SubjectID     uuid.UUID         `json:"subjectId"`
	Title         string            `json:"title"`
	Type          models.LessonType `json:"type"`
	Level         int               `json:"level"`
	AgeMin        int               `json:"ageMin"`
	AgeMax        int               `json:"ageMax"`
	Language      models.Language   `json:"language"`
	Content       datatypes.JSON    `json:"content"`
	IsAIGenerated bool              `json:"isAiGenerated"`
}

type QuizRequest struct {
	Topic    string          `json:"topic" binding:"required,min=2,max=200"`
	Level    int             `json:"level" binding:"required,min=1,max=10"`
	Count    int             `json:"count" binding:"omitempty,min=1,max=20"`
	Language models.Language `json:"language" binding:"omitempty,oneof=uz ru"`
}

type QuizQuestion struct {
	Question     string   `json:"question"`
	Options      []string `json:"options"`
	CorrectIndex int      `json:"correctIndex"`
	Hint         string   `json:"hint,omitempty"`
}

type ScoredLesson struct {
	Lesson  string  `json:"lesson"`
	Subject string  `json:"subject"`
	Score   float64 `json:"score"`
}

type Analysis struct {
	StudentID       uuid.UUID      `json:"studentId"`
	CurrentLevel    int            `json:"currentLevel"`
	RecentScores    []ScoredLesson `json:"recentScores"`
	WeakTopics      []string       `json:"weakTopics"`
	Recommendations datatypes.JSON `json:"recommendations"`
}

type Service struct {
	completer Completer
	db        *gorm.DB
	students  *repository.Store[models.StudentProfile]
	subjects  *repository.Store[models.Subject]
	log       *zap.Logger
}

// NewService builds the service. A nil completer disables every operation.
func NewService(db *gorm.DB, completer Completer, log *zap.Logger) *Service {
	return &Service{
		completer: completer,
		db:        db,
		students:  repository.NewStore[models.StudentProfile](db, "Student", repository.Hard),
		subjects:  repository.NewStore[models.Subject](db, "Subject", repository.TombstoneOn("is_active")),
		log:       log,
	}
}

func (s *Service) Enabled() bool {
	return s.completer != nil
}

func languageName(l models.Language) string {
	if l == models.LanguageRu {
		return "Russian"
	}
	return "Uzbek"
}

// GenerateLesson drafts lesson content for an author to review. Nothing is stored.
func (s *Service) GenerateLesson(ctx context.Context, in LessonRequest) (*LessonDraft, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	if in.Language == "" {
		in.Language = models.LanguageUz
	}
	if _, err := s.subjects.FindByID(ctx, in.SubjectID, s.subjects.Live()); err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf(`Generate an educational lesson for a %d-year-old child about "%s".
The content should be at level %d/10 difficulty.
Language: %s

Include:
1. A simple explanation suitable for the age
2. 3 interactive questions
3. A fun fact
4. Suggested activities

Format as JSON with keys: explanation, questions (array), funFact, activities (array)`,
		in.Age, in.Topic, in.Level, languageName(in.Language))

	raw, err := s.complete(ctx, "generate_lesson",
		"You are an expert children's educator creating engaging content for kids aged 4-7.", prompt)
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(raw)) || !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return nil, errors.Unprocessable("AI returned malformed lesson content", nil)
	}

	return &LessonDraft{
		SubjectID:     in.SubjectID,
		Title:         in.Topic,
		Type:          models.LessonInteractive,
		Level:         in.Level,
		AgeMin:        in.Age,
		AgeMax:        in.Age,
		Language:      in.Language,
		Content:       datatypes.JSON(raw),
		IsAIGenerated: true,
	}, nil
}

// GenerateQuiz returns multiple-choice questions with four options each.
func (s *Service) GenerateQuiz(ctx context.Context, in QuizRequest) ([]QuizQuestion, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	if in.Count == 0 {
		in.Count = 5
	}
	if in.Language == "" {
		in.Language = models.LanguageUz
	}

	prompt := fmt.Sprintf(`Generate %d multiple-choice quiz questions about "%s" for young children.
Difficulty level: %d/10
Language: %s

Each question should have 4 options with one correct answer.
Format as a JSON object {"questions": [...]} where each item has: question, options (array of 4), correctIndex (0-3), hint`,
		in.Count, in.Topic, in.Level, languageName(in.Language))

	raw, err := s.complete(ctx, "generate_quiz",
		"You are an expert in creating educational content for children aged 4-7.", prompt)
	if err != nil {
		return nil, err
	}
	return parseQuiz(raw)
}

// parseQuiz accepts either {"questions": [...]} or a bare array and drops
// questions that are not answerable.
func parseQuiz(raw string) ([]QuizQuestion, error) {
	var questions []QuizQuestion
	var wrapped struct {
		Questions []QuizQuestion `json:"questions"`
	}
	if err := json.Unmarshal([]byte(raw), &wrapped); err == nil && wrapped.Questions != nil {
		questions = wrapped.Questions
	} else if err := json.Unmarshal([]byte(raw), &questions); err != nil {
		return nil, errors.Unprocessable("AI returned malformed quiz content", nil)
	}

	valid := make([]QuizQuestion, 0, len(questions))
	for _, q := range questions {
		if q.Question == "" || len(q.Options) < 2 || q.CorrectIndex < 0 || q.CorrectIndex >= len(q.Options) {
			continue
		}
		valid = append(valid, q)
	}
	if len(valid) == 0 {
		return nil, errors.Unprocessable("AI returned no usable questions", nil)
	}
	return valid, nil
}

// AnalyzePerformance asks for advice based on the student's recent completed lessons.
func (s *Service) AnalyzePerformance(ctx context.Context, studentID uuid.UUID) (*Analysis, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	var scores []ScoredLesson
	err = database.Conn(ctx, s.db).
		Table(models.ProgressTable).
		Select("lessons.title AS lesson, subjects.name AS subject, progress.score").
		Joins("JOIN lessons ON lessons.id = progress.lesson_id").
		Joins("JOIN subjects ON subjects.id = lessons.subject_id").
		Where("progress.student_id = ? AND progress.status = ?", studentID, models.StatusCompleted).
		Order("progress.completed_at DESC").
		Limit(recentScoreLimit).
		Scan(&scores).Error
	if err != nil {
		return nil, errors.FromGorm(err, "Progress")
	}
	if scores == nil {
		scores = []ScoredLesson{}
	}

	analysis := &Analysis{
		StudentID:    studentID,
		CurrentLevel: student.Level,
		RecentScores: scores,
		WeakTopics:   weakTopics(scores),
	}

	recent, _ := json.Marshal(scores)
	weak, _ := json.Marshal(analysis.WeakTopics)
	prompt := fmt.Sprintf(`Analyze a young student's learning performance:
Recent scores: %s
Topics needing improvement: %s
Current level: %d/10

Provide recommendations including:
1. Suggested topics to review
2. Recommended difficulty adjustment
3. Encouragement message for the child
4. Tips for parents

Format as JSON with keys: reviewTopics (array), difficultyAdjustment, encouragement, parentTips (array)`,
		recent, weak, student.Level)

	raw, err := s.complete(ctx, "analyze_performance",
		"You are an educational advisor specializing in early childhood education.", prompt)
	if err != nil {
		return nil, err
	}
	if !json.Valid([]byte(raw)) {
		return nil, errors.Unprocessable("AI returned malformed analysis", nil)
	}
	analysis.Recommendations = datatypes.JSON(raw)
	return analysis, nil
}

// weakTopics lists subjects whose mean score is below the weak threshold, in
// first-seen order.
func weakTopics(scores []ScoredLesson) []string {
	type tally struct {
		sum   float64
		count int
	}
	order := []string{}
	totals := map[string]*tally{}
	for _, sc := range scores {
		t, ok := totals[sc.Subject]
		if !ok {
			t = &tally{}
			totals[sc.Subject] = t
			order = append(order, sc.Subject)
		}
		t.sum += sc.Score
		t.count++
	}

	weak := []string{}
	for _, subject := range order {
		t := totals[subject]
		if t.sum/float64(t.count) < weakTopicScore {
			weak = append(weak, subject)
		}
	}
	return weak
}

func (s *Service) complete(ctx context.Context, op, system, prompt string) (string, error) {
	raw, err := s.completer.CompleteJSON(ctx, system, prompt)
	if err != nil {
		s.log.Error("AI request failed", zap.String("operation", op), zap.Error(err))
		return "", errors.Internal("AI request failed", nil)
	}
	return raw, nil
}
