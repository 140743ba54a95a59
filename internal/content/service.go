// Package content serves the learning catalog: subjects, lessons and games,
// plus the activity endpoints that feed the reward engine.
package content

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/middleware"
	"github.com/jgirmay/alif24/internal/common/repository"
	"github.com/jgirmay/alif24/internal/common/validation"
	"github.com/jgirmay/alif24/internal/models"
)

// Filter narrows lesson and game listings.
type Filter struct {
	SubjectID string `form:"subjectId" binding:"omitempty,uuid"`
	Type      string `form:"type"`
	Level     int    `form:"level" binding:"omitempty,min=1,max=10"`
	AgeMin    int    `form:"ageMin" binding:"omitempty,min=4,max=7"`
	AgeMax    int    `form:"ageMax" binding:"omitempty,min=4,max=7"`
	Q         string `form:"q" binding:"omitempty,max=100"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

// scopes turns the filter into query scopes. titleColumns are searched by Q.
func (f Filter) scopes(titleColumns ...string) []repository.Scope {
	var scopes []repository.Scope
	if f.SubjectID != "" {
		scopes = append(scopes, repository.Where("subject_id = ?", f.SubjectID))
	}
	if f.Type != "" {
		scopes = append(scopes, repository.Where("type = ?", f.Type))
	}
	if f.Level != 0 {
		scopes = append(scopes, repository.Where("level = ?", f.Level))
	}
	if f.AgeMin != 0 {
		scopes = append(scopes, repository.Where("age_max >= ?", f.AgeMin))
	}
	if f.AgeMax != 0 {
		scopes = append(scopes, repository.Where("age_min <= ?", f.AgeMax))
	}
	if term := strings.TrimSpace(f.Q); term != "" && len(titleColumns) > 0 {
		like := "%" + strings.ToLower(term) + "%"
		clauses := make([]string, len(titleColumns))
		args := make([]interface{}, len(titleColumns))
		for i, col := range titleColumns {
			clauses[i] = "LOWER(" + col + ") LIKE ?"
			args[i] = like
		}
		scopes = append(scopes, repository.Where("("+strings.Join(clauses, " OR ")+")", args...))
	}
	return scopes
}

// levelNear keeps content within one level of the given one.
func levelNear(level int) repository.Scope {
	return repository.Where("level BETWEEN ? AND ?", level-1, level+1)
}

// ageFits keeps content whose age range covers age.
func ageFits(age int) repository.Scope {
	return repository.Where("age_min <= ? AND age_max >= ?", age, age)
}

func checkAgeRange(min, max int) error {
	if min > max {
		return errors.Validation("Validation failed", []validation.ValidationError{
			{Field: "ageMin", Message: "ageMin must not exceed ageMax"},
		})
	}
	return nil
}

// Service owns the catalog stores.
type Service struct {
	db       *gorm.DB
	subjects *repository.Store[models.Subject]
	lessons  *repository.Store[models.Lesson]
	games    *repository.Store[models.Game]
	sessions *repository.Store[models.GameSession]
	progress *repository.Store[models.Progress]
	log      *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{
		db:       db,
		subjects: repository.NewStore[models.Subject](db, "Subject", repository.TombstoneOn("is_active")),
		lessons:  repository.NewStore[models.Lesson](db, "Lesson", repository.TombstoneOn("is_active")),
		games:    repository.NewStore[models.Game](db, "Game", repository.Hard),
		sessions: repository.NewStore[models.GameSession](db, "Game session", repository.Hard),
		progress: repository.NewStore[models.Progress](db, "Progress", repository.Hard),
		log:      log,
	}
}

// canAuthor reports whether the caller may change content created by authorID.
// Admins may change anything; teachers only their own.
func canAuthor(p *middleware.Principal, authorID *uuid.UUID) error {
	if p.IsAdmin() {
		return nil
	}
	if authorID != nil && *authorID == p.UserID {
		return nil
	}
	return errors.Forbidden("Only the author or an admin can change this content")
}

// seesDrafts reports whether the caller may read inactive content.
func seesDrafts(p *middleware.Principal) bool {
	return p != nil && (p.Role == models.RoleAdmin || p.Role == models.RoleTeacher)
}

func (s *Service) liveSubject(ctx context.Context, id uuid.UUID) error {
	_, err := s.subjects.FindByID(ctx, id, s.subjects.Live())
	return err
}
