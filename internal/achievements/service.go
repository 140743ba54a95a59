// Package achievements manages the achievement catalog and decides which
// achievements a student has earned.
package achievements

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/common/repository"
	"github.com/jgirmay/alif24/internal/models"
)

type CreateInput struct {
	Name          string                     `json:"name" binding:"required,max=100"`
	NameUz        string                     `json:"nameUz" binding:"required,max=100"`
	NameRu        string                     `json:"nameRu" binding:"required,max=100"`
	Description   string                     `json:"description"`
	DescriptionUz string                     `json:"descriptionUz"`
	DescriptionRu string                     `json:"descriptionRu"`
	Icon          string                     `json:"icon" binding:"omitempty,max=500"`
	Type          models.AchievementType     `json:"type" binding:"omitempty,oneof=badge trophy certificate milestone"`
	Category      models.AchievementCategory `json:"category" binding:"omitempty,oneof=learning streak social game special"`
	Criteria      models.Criteria            `json:"criteria"`
	PointsReward  *int                       `json:"pointsReward" binding:"omitempty,min=0"`
	Order         int                        `json:"order"`
}

type UpdateInput struct {
	Name          *string                     `json:"name" binding:"omitempty,max=100"`
	NameUz        *string                     `json:"nameUz" binding:"omitempty,max=100"`
	NameRu        *string                     `json:"nameRu" binding:"omitempty,max=100"`
	Description   *string                     `json:"description"`
	DescriptionUz *string                     `json:"descriptionUz"`
	DescriptionRu *string                     `json:"descriptionRu"`
	Icon          *string                     `json:"icon" binding:"omitempty,max=500"`
	Type          *models.AchievementType     `json:"type" binding:"omitempty,oneof=badge trophy certificate milestone"`
	Category      *models.AchievementCategory `json:"category" binding:"omitempty,oneof=learning streak social game special"`
	Criteria      *models.Criteria            `json:"criteria"`
	PointsReward  *int                        `json:"pointsReward" binding:"omitempty,min=0"`
	Order         *int                        `json:"order"`
	IsActive      *bool                       `json:"isActive"`
}

// Service is the achievement catalog plus read access to awards.
type Service struct {
	achievements *repository.Store[models.Achievement]
	awards       *repository.Store[models.StudentAchievement]
	log          *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{
		achievements: repository.NewStore[models.Achievement](db, "Achievement", repository.TombstoneOn("is_active")),
		awards:       repository.NewStore[models.StudentAchievement](db, "Student achievement", repository.Hard),
		log:          log,
	}
}

// List returns the catalog in display order; inactive entries only on request.
func (s *Service) List(ctx context.Context, includeInactive bool) ([]models.Achievement, error) {
	scopes := []repository.Scope{repository.OrderBy("sort_order ASC, created_at ASC")}
	if !includeInactive {
		scopes = append(scopes, s.achievements.Live())
	}
	return s.achievements.Find(ctx, scopes...)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.Achievement, error) {
	return s.achievements.FindByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Achievement, error) {
	a := &models.Achievement{
		Name:          in.Name,
		NameUz:        in.NameUz,
		NameRu:        in.NameRu,
		Description:   in.Description,
		DescriptionUz: in.DescriptionUz,
		DescriptionRu: in.DescriptionRu,
		Icon:          in.Icon,
		Type:          in.Type,
		Category:      in.Category,
		Criteria:      datatypes.NewJSONType(in.Criteria),
		PointsReward:  models.DefaultAchievementPoints,
		IsActive:      true,
		Order:         in.Order,
	}
	if a.Type == "" {
		a.Type = models.AchievementBadge
	}
	if a.Category == "" {
		a.Category = models.CategoryLearning
	}
	if in.PointsReward != nil {
		a.PointsReward = *in.PointsReward
	}

	if err := s.achievements.Create(ctx, a); err != nil {
		return nil, err
	}
	s.log.Info("Achievement created", zap.String("achievement_id", a.ID.String()), zap.String("name", a.Name))
	return a, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, in UpdateInput) (*models.Achievement, error) {
	updates := map[string]interface{}{}
	texts := map[string]*string{
		"name":           in.Name,
		"name_uz":        in.NameUz,
		"name_ru":        in.NameRu,
		"description":    in.Description,
		"description_uz": in.DescriptionUz,
		"description_ru": in.DescriptionRu,
		"icon":           in.Icon,
	}
	for column, value := range texts {
		if value != nil {
			updates[column] = *value
		}
	}
	if in.Type != nil {
		updates["type"] = *in.Type
	}
	if in.Category != nil {
		updates["category"] = *in.Category
	}
	if in.Criteria != nil {
		updates["criteria"] = datatypes.NewJSONType(*in.Criteria)
	}
	if in.PointsReward != nil {
		updates["points_reward"] = *in.PointsReward
	}
	if in.Order != nil {
		updates["sort_order"] = *in.Order
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}

	if len(updates) > 0 {
		if err := s.achievements.Update(ctx, id, updates); err != nil {
			return nil, err
		}
	}
	return s.achievements.FindByID(ctx, id)
}

// Delete retires the achievement. Awards already earned are kept.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.achievements.Delete(ctx, id)
}

// ForStudent lists a student's awards, most recent first.
func (s *Service) ForStudent(ctx context.Context, studentID uuid.UUID) ([]models.StudentAchievement, error) {
	return s.awards.Find(ctx,
		repository.Where("student_id = ?", studentID),
		repository.Preload("Achievement"),
		repository.OrderBy("earned_at DESC"),
	)
}

func (s *Service) CountForStudent(ctx context.Context, studentID uuid.UUID) (int64, error) {
	return s.awards.Count(ctx, repository.Where("student_id = ?", studentID))
}

func (s *Service) earnedIDs(ctx context.Context, studentID uuid.UUID) (map[uuid.UUID]bool, error) {
	awards, err := s.awards.Find(ctx, repository.Where("student_id = ?", studentID))
	if err != nil {
		return nil, err
	}
	earned := make(map[uuid.UUID]bool, len(awards))
	for _, a := range awards {
		earned[a.AchievementID] = true
	}
	return earned, nil
}
