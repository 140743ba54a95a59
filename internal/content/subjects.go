package content

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/jgirmay/alif24/internal/common/repository"
	"github.com/jgirmay/alif24/internal/models"
)

type SubjectInput struct {
	Name          string           `json:"name" binding:"required,min=2,max=100"`
	NameUz        string           `json:"nameUz" binding:"required,min=2,max=100"`
	NameRu        string           `json:"nameRu" binding:"required,min=2,max=100"`
	Description   string           `json:"description"`
	DescriptionUz string           `json:"descriptionUz"`
	DescriptionRu string           `json:"descriptionRu"`
	Icon          string           `json:"icon" binding:"omitempty,max=500"`
	Color         string           `json:"color" binding:"omitempty,max=20"`
	Order         int              `json:"order"`
	AgeRange      *models.AgeRange `json:"ageRange"`
}

type SubjectUpdate struct {
	Name          *string          `json:"name" binding:"omitempty,min=2,max=100"`
	NameUz        *string          `json:"nameUz" binding:"omitempty,min=2,max=100"`
	NameRu        *string          `json:"nameRu" binding:"omitempty,min=2,max=100"`
	Description   *string          `json:"description"`
	DescriptionUz *string          `json:"descriptionUz"`
	DescriptionRu *string          `json:"descriptionRu"`
	Icon          *string          `json:"icon" binding:"omitempty,max=500"`
	Color         *string          `json:"color" binding:"omitempty,max=20"`
	Order         *int             `json:"order"`
	AgeRange      *models.AgeRange `json:"ageRange"`
	IsActive      *bool            `json:"isActive"`
}

// Subjects lists active subjects in display order.
func (s *Service) Subjects(ctx context.Context) ([]models.Subject, error) {
	return s.subjects.Find(ctx, s.subjects.Live(), repository.OrderBy("sort_order ASC, name ASC"))
}

func (s *Service) Subject(ctx context.Context, id uuid.UUID) (*models.Subject, error) {
	return s.subjects.FindByID(ctx, id, s.subjects.Live())
}

func (s *Service) CreateSubject(ctx context.Context, in SubjectInput) (*models.Subject, error) {
	ages := models.AgeRange{Min: models.MinAge, Max: models.MaxAge}
	if in.AgeRange != nil {
		if err := checkAgeRange(in.AgeRange.Min, in.AgeRange.Max); err != nil {
			return nil, err
		}
		ages = *in.AgeRange
	}

	subject := &models.Subject{
		Name:          in.Name,
		NameUz:        in.NameUz,
		NameRu:        in.NameRu,
		Description:   in.Description,
		DescriptionUz: in.DescriptionUz,
		DescriptionRu: in.DescriptionRu,
		Icon:          in.Icon,
		Color:         in.Color,
		Order:         in.Order,
		IsActive:      true,
		AgeRange:      datatypes.NewJSONType(ages),
	}
	if subject.Color == "" {
		subject.Color = "#4A90A4"
	}
	if err := s.subjects.Create(ctx, subject); err != nil {
		return nil, err
	}
	s.log.Info("Subject created", zap.String("subject_id", subject.ID.String()), zap.String("name", subject.Name))
	return subject, nil
}

func (s *Service) UpdateSubject(ctx context.Context, id uuid.UUID, in SubjectUpdate) (*models.Subject, error) {
	updates := map[string]interface{}{}
	texts := map[string]*string{
		"name":           in.Name,
		"name_uz":        in.NameUz,
		"name_ru":        in.NameRu,
		"description":    in.Description,
		"description_uz": in.DescriptionUz,
		"description_ru": in.DescriptionRu,
		"icon":           in.Icon,
		"color":          in.Color,
	}
	for column, value := range texts {
		if value != nil {
			updates[column] = *value
		}
	}
	if in.Order != nil {
		updates["sort_order"] = *in.Order
	}
	if in.AgeRange != nil {
		if err := checkAgeRange(in.AgeRange.Min, in.AgeRange.Max); err != nil {
			return nil, err
		}
		updates["age_range"] = datatypes.NewJSONType(*in.AgeRange)
	}
	if in.IsActive != nil {
		updates["is_active"] = *in.IsActive
	}

	if len(updates) > 0 {
		if err := s.subjects.Update(ctx, id, updates); err != nil {
			return nil, err
		}
	}
	return s.subjects.FindByID(ctx, id)
}

// DeleteSubject retires the subject; its lessons stay reachable by id.
func (s *Service) DeleteSubject(ctx context.Context, id uuid.UUID) error {
	return s.subjects.Delete(ctx, id)
}
