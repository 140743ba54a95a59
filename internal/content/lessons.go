package content

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/middleware"
	"github.com/jgirmay/alif24/internal/common/repository"
	"github.com/jgirmay/alif24/internal/models"
)

type LessonInput struct {
	SubjectID     uuid.UUID         `json:"subjectId" binding:"required"`
	Title         string            `json:"title" binding:"required,min=3,max=200"`
	TitleUz       string            `json:"titleUz" binding:"required,min=3,max=200"`
	TitleRu       string            `json:"titleRu" binding:"required,min=3,max=200"`
	Description   string            `json:"description"`
	DescriptionUz string            `json:"descriptionUz"`
	DescriptionRu string            `json:"descriptionRu"`
	Content       datatypes.JSON    `json:"content"`
	Type          models.LessonType `json:"type" binding:"omitempty,oneof=video interactive reading quiz activity"`
	Level         int               `json:"level" binding:"omitempty,min=1,max=10"`
	AgeMin        int               `json:"ageMin" binding:"omitempty,min=4,max=7"`
	AgeMax        int               `json:"ageMax" binding:"omitempty,min=4,max=7"`
	Duration      int               `json:"duration" binding:"omitempty,min=1"`
	PointsReward  *int              `json:"pointsReward" binding:"omitempty,min=0"`
	Thumbnail     string            `json:"thumbnail" binding:"omitempty,url,max=500"`
	VideoURL      string            `json:"videoUrl" binding:"omitempty,url,max=500"`
	Order         int               `json:"order"`
	IsAIGenerated bool              `json:"isAiGenerated"`
}

type LessonUpdate struct {
	SubjectID     *uuid.UUID         `json:"subjectId"`
	Title         *string            `json:"title" binding:"omitempty,min=3,max=200"`
	TitleUz       *string            `json:"titleUz" binding:"omitempty,min=3,max=200"`
	TitleRu       *string            `json:"titleRu" binding:"omitempty,min=3,max=200"`
	Description   *string            `json:"description"`
	DescriptionUz *string            `json:"descriptionUz"`
	DescriptionRu *string            `json:"descriptionRu"`
	Content       datatypes.JSON     `json:"content"`
	Type          *models.LessonType `json:"type" binding:"omitempty,oneof=video interactive reading quiz activity"`
	Level         *int               `json:"level" binding:"omitempty,min=1,max=10"`
	AgeMin        *int               `json:"ageMin" binding:"omitempty,min=4,max=7"`
	AgeMax        *int               `json:"ageMax" binding:"omitempty,min=4,max=7"`
	Duration      *int               `json:"duration" binding:"omitempty,min=1"`
	PointsReward  *int               `json:"pointsReward" binding:"omitempty,min=0"`
	Thumbnail     *string            `json:"thumbnail" binding:"omitempty,url,max=500"`
	VideoURL      *string            `json:"videoUrl" binding:"omitempty,url,max=500"`
	Order         *int               `json:"order"`
	IsActive      *bool              `json:"isActive"`
}

var lessonTitles = []string{"title", "title_uz", "title_ru"}

// Lessons lists active lessons matching the filter.
func (s *Service) Lessons(ctx context.Context, f Filter) (*database.PaginatedResult, error) {
	scopes := append(f.scopes(lessonTitles...),
		s.lessons.Live(),
		repository.Preload("Subject"),
		repository.OrderBy("sort_order ASC, created_at ASC"),
	)
	return s.lessons.Paginate(ctx, database.NewPagination(f.Page, f.Limit), scopes...)
}

// LessonsFor recommends active lessons near the student's level and suited to their age.
// An explicit level in the filter replaces the level window.
func (s *Service) LessonsFor(ctx context.Context, student *models.StudentProfile, f Filter, now time.Time) (*database.PaginatedResult, error) {
	scopes := append(f.scopes(lessonTitles...), ageFits(student.Age(now)))
	if f.Level == 0 {
		scopes = append(scopes, levelNear(student.Level))
	}
	scopes = append(scopes,
		s.lessons.Live(),
		repository.Preload("Subject"),
		repository.OrderBy("level ASC, sort_order ASC"),
	)
	return s.lessons.Paginate(ctx, database.NewPagination(f.Page, f.Limit), scopes...)
}

// Lesson returns an active lesson; teachers and admins also see retired ones.
func (s *Service) Lesson(ctx context.Context, viewer *middleware.Principal, id uuid.UUID) (*models.Lesson, error) {
	scopes := []repository.Scope{repository.Preload("Subject")}
	if !seesDrafts(viewer) {
		scopes = append(scopes, s.lessons.Live())
	}
	return s.lessons.FindByID(ctx, id, scopes...)
}

func (s *Service) CreateLesson(ctx context.Context, author *middleware.Principal, in LessonInput) (*models.Lesson, error) {
	lesson := &models.Lesson{
		SubjectID:     in.SubjectID,
		Title:         in.Title,
		TitleUz:       in.TitleUz,
		TitleRu:       in.TitleRu,
		Description:   in.Description,
		DescriptionUz: in.DescriptionUz,
		DescriptionRu: in.DescriptionRu,
		Content:       in.Content,
		Type:          in.Type,
		Level:         in.Level,
		AgeMin:        in.AgeMin,
		AgeMax:        in.AgeMax,
		Duration:      in.Duration,
		PointsReward:  models.DefaultLessonPoints,
		Thumbnail:     in.Thumbnail,
		VideoURL:      in.VideoURL,
		Order:         in.Order,
		IsActive:      true,
		IsAIGenerated: in.IsAIGenerated,
	}
	if lesson.Type == "" {
		lesson.Type = models.LessonInteractive
	}
	if lesson.Level == 0 {
		lesson.Level = models.MinLevel
	}
	if lesson.AgeMin == 0 {
		lesson.AgeMin = models.MinAge
	}
	if lesson.AgeMax == 0 {
		lesson.AgeMax = models.MaxAge
	}
	if lesson.Duration == 0 {
		lesson.Duration = 15
	}
	if in.PointsReward != nil {
		lesson.PointsReward = *in.PointsReward
	}
	if author.Role == models.RoleTeacher {
		lesson.TeacherID = &author.UserID
	}

	if err := checkAgeRange(lesson.AgeMin, lesson.AgeMax); err != nil {
		return nil, err
	}
	if err := s.liveSubject(ctx, lesson.SubjectID); err != nil {
		return nil, err
	}
	if err := s.lessons.Create(ctx, lesson); err != nil {
		return nil, err
	}

	s.log.Info("Lesson created",
		zap.String("lesson_id", lesson.ID.String()),
		zap.String("author_id", author.UserID.String()),
		zap.Bool("ai_generated", lesson.IsAIGenerated),
	)
	return lesson, nil
}

func (s *Service) UpdateLesson(ctx context.Context, editor *middleware.Principal, id uuid.UUID, in LessonUpdate) (*models.Lesson, error) {
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canAuthor(editor, lesson.TeacherID); err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	texts := map[string]*string{
		"title":          in.Title,
		"title_uz":       in.TitleUz,
		"title_ru":       in.TitleRu,
		"description":    in.Description,
		"description_uz": in.DescriptionUz,
		"description_ru": in.DescriptionRu,
		"thumbnail":      in.Thumbnail,
		"video_url":      in.VideoURL,
	}
	for column, value := range texts {
		if value != nil {
			updates[column] = *value
		}
	}
	ints := map[string]*int{
		"level":         in.Level,
		"age_min":       in.AgeMin,
		"age_max":       in.AgeMax,
		"duration":      in.Duration,
		"points_reward": in.PointsReward,
		"sort_order":    in.Order,
	}
	for column, value := range ints {
		if value != nil {
			updates[column] = *value
		}
	}
	if in.Content != nil {
		updates["content"] = in.Content
	}
	if in.Type != nil {
		updates["type"] = *in.Type
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}
	if in.SubjectID != nil {
		if err := s.liveSubject(ctx, *in.SubjectID); err != nil {
			return nil, err
		}
		updates["subject_id"] = *in.SubjectID
	}

	ageMin, ageMax := lesson.AgeMin, lesson.AgeMax
	if in.AgeMin != nil {
		ageMin = *in.AgeMin
	}
	if in.AgeMax != nil {
		ageMax = *in.AgeMax
	}
	if err := checkAgeRange(ageMin, ageMax); err != nil {
		return nil, err
	}

	if len(updates) > 0 {
		if err := s.lessons.Update(ctx, id, updates); err != nil {
			return nil, err
		}
	}
	return s.lessons.FindByID(ctx, id, repository.Preload("Subject"))
}

// DeleteLesson retires the lesson. Progress rows keep pointing at it.
func (s *Service) DeleteLesson(ctx context.Context, editor *middleware.Principal, id uuid.UUID) error {
	lesson, err := s.lessons.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := canAuthor(editor, lesson.TeacherID); err != nil {
		return err
	}
	if err := s.lessons.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Lesson retired", zap.String("lesson_id", id.String()))
	return nil
}

// LessonProgress returns the student's record for the lesson, or an unsaved
// not_started record when there is none.
func (s *Service) LessonProgress(ctx context.Context, studentID, lessonID uuid.UUID) (*models.Progress, error) {
	p, err := s.progress.FindOne(ctx,
		repository.Where("student_id = ? AND lesson_id = ?", studentID, lessonID),
	)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, errors.CodeNotFound) {
		return nil, err
	}
	if _, err := s.lessons.FindByID(ctx, lessonID); err != nil {
		return nil, err
	}
	return &models.Progress{StudentID: studentID, LessonID: lessonID, Status: models.StatusNotStarted}, nil
}
