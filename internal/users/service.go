// Package users administers accounts and parent/child links.
package users

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/repository"
	"github.com/jgirmay/alif24/internal/models"
)

type SearchQuery struct {
	Q        string      `form:"q"`
	Role     models.Role `form:"role" binding:"omitempty,oneof=student teacher parent admin"`
	IsActive *bool       `form:"isActive"`
	Page     int         `form:"page" binding:"omitempty,min=1"`
	Limit    int         `form:"limit" binding:"omitempty,min=1,max=100"`
}

// UpdateProfileInput carries the fields a user may change on their own account.
type UpdateProfileInput struct {
	FirstName *string          `json:"firstName" binding:"omitempty,min=1,max=100"`
	LastName  *string          `json:"lastName" binding:"omitempty,min=1,max=100"`
	Phone     *string          `json:"phone" binding:"omitempty,max=20"`
	Avatar    *string          `json:"avatar" binding:"omitempty,max=500"`
	Language  *models.Language `json:"language" binding:"omitempty,oneof=uz ru"`
}

type LinkChildInput struct {
	StudentID    uuid.UUID           `json:"studentId" binding:"required"`
	Relationship models.Relationship `json:"relationship" binding:"omitempty,oneof=mother father guardian other"`
	IsPrimary    bool                `json:"isPrimary"`
}

// StatusListener hears about accounts switched on or off after the change commits.
type StatusListener interface {
	AccountDeactivated(ctx context.Context, userID uuid.UUID)
	AccountActivated(ctx context.Context, userID uuid.UUID)
}

type Service struct {
	db        *gorm.DB
	users     *repository.Store[models.User]
	parents   *repository.Store[models.ParentProfile]
	students  *repository.Store[models.StudentProfile]
	links     *repository.Store[models.ParentStudent]
	listeners []StatusListener
	log       *zap.Logger
}

func NewService(db *gorm.DB, log *zap.Logger) *Service {
	return &Service{
		db:       db,
		users:    repository.NewStore[models.User](db, "User", repository.TombstoneOn("is_active")),
		parents:  repository.NewStore[models.ParentProfile](db, "Parent profile", repository.Hard),
		students: repository.NewStore[models.StudentProfile](db, "Student", repository.Hard),
		links:    repository.NewStore[models.ParentStudent](db, "Child link", repository.Hard),
		log:      log,
	}
}

// Observe registers l for account status changes.
func (s *Service) Observe(l StatusListener) {
	s.listeners = append(s.listeners, l)
}

// Search lists users matching the query, newest first.
func (s *Service) Search(ctx context.Context, q SearchQuery) (*database.PaginatedResult, error) {
	scopes := []repository.Scope{repository.OrderBy("created_at DESC")}
	if term := strings.TrimSpace(q.Q); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		scopes = append(scopes, repository.Where(
			"(LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ?)", like, like, like,
		))
	}
	if q.Role != "" {
		scopes = append(scopes, repository.Where("role = ?", q.Role))
	}
	if q.IsActive != nil {
		scopes = append(scopes, repository.Where("is_active = ?", *q.IsActive))
	}
	return s.users.Paginate(ctx, database.NewPagination(q.Page, q.Limit), scopes...)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return s.users.FindByID(ctx, id)
}

// ByRole lists active users with the given role.
func (s *Service) ByRole(ctx context.Context, role models.Role, page database.Pagination) (*database.PaginatedResult, error) {
	if !role.Valid() {
		return nil, errors.BadRequest("Invalid role")
	}
	return s.users.Paginate(ctx, page,
		s.users.Live(),
		repository.Where("role = ?", role),
		repository.OrderBy("first_name ASC"),
	)
}

func (s *Service) UpdateProfile(ctx context.Context, id uuid.UUID, in UpdateProfileInput) (*models.User, error) {
	updates := map[string]interface{}{}
	if in.FirstName != nil {
		updates["first_name"] = strings.TrimSpace(*in.FirstName)
	}
	if in.LastName != nil {
		updates["last_name"] = strings.TrimSpace(*in.LastName)
	}
	if in.Phone != nil {
		updates["phone"] = *in.Phone
	}
	if in.Avatar != nil {
		updates["avatar"] = *in.Avatar
	}
	if in.Language != nil {
		updates["language"] = *in.Language
	}
	if len(updates) > 0 {
		if err := s.users.Update(ctx, id, updates); err != nil {
			return nil, err
		}
	}
	return s.users.FindByID(ctx, id)
}

// Deactivate tombstones the account and revokes its refresh token.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID) error {
	err := database.InTx(ctx, s.db, func(ctx context.Context) error {
		if err := s.users.Delete(ctx, id); err != nil {
			return err
		}
		return s.users.Update(ctx, id, map[string]interface{}{"refresh_token_hash": ""})
	})
	if err != nil {
		return err
	}
	for _, l := range s.listeners {
		l.AccountDeactivated(ctx, id)
	}
	s.log.Info("User deactivated", zap.String("user_id", id.String()))
	return nil
}

func (s *Service) Activate(ctx context.Context, id uuid.UUID) error {
	if err := s.users.Restore(ctx, id); err != nil {
		return err
	}
	for _, l := range s.listeners {
		l.AccountActivated(ctx, id)
	}
	s.log.Info("User activated", zap.String("user_id", id.String()))
	return nil
}

func (s *Service) parentProfile(ctx context.Context, parentUserID uuid.UUID) (*models.ParentProfile, error) {
	return s.parents.FindOne(ctx, repository.Where("user_id = ?", parentUserID))
}

// LinkChild attaches a student profile to the calling parent.
func (s *Service) LinkChild(ctx context.Context, parentUserID uuid.UUID, in LinkChildInput) (*models.ParentStudent, error) {
	parent, err := s.parentProfile(ctx, parentUserID)
	if err != nil {
		return nil, err
	}
	if _, err := s.students.FindByID(ctx, in.StudentID); err != nil {
		return nil, err
	}
	if in.Relationship == "" {
		in.Relationship = models.RelationshipGuardian
	}

	link := &models.ParentStudent{
		ParentID:     parent.ID,
		StudentID:    in.StudentID,
		Relationship: in.Relationship,
		IsPrimary:    in.IsPrimary,
	}
	if err := s.links.Create(ctx, link); err != nil {
		if errors.Is(err, errors.CodeConflict) {
			return nil, errors.Conflict("Student is already linked to this parent")
		}
		return nil, err
	}
	return link, nil
}

// Children lists the parent's linked students with their accounts.
func (s *Service) Children(ctx context.Context, parentUserID uuid.UUID) ([]models.ParentStudent, error) {
	parent, err := s.parentProfile(ctx, parentUserID)
	if err != nil {
		return nil, err
	}
	return s.links.Find(ctx,
		repository.Where("parent_id = ?", parent.ID),
		repository.Preload("Student.User"),
		repository.OrderBy("is_primary DESC, created_at ASC"),
	)
}

func (s *Service) UnlinkChild(ctx context.Context, parentUserID, studentID uuid.UUID) error {
	parent, err := s.parentProfile(ctx, parentUserID)
	if err != nil {
		return err
	}
	link, err := s.links.FindOne(ctx, repository.Where("parent_id = ? AND student_id = ?", parent.ID, studentID))
	if err != nil {
		return err
	}
	return s.links.Delete(ctx, link.ID)
}

// IsLinkedParent reports whether the user is a parent of the student profile.
func (s *Service) IsLinkedParent(ctx context.Context, parentUserID, studentID uuid.UUID) (bool, error) {
	parent, err := s.parentProfile(ctx, parentUserID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return false, nil
		}
		return false, err
	}
	n, err := s.links.Count(ctx, repository.Where("parent_id = ? AND student_id = ?", parent.ID, studentID))
	return n > 0, err
}
