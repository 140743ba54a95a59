// Package auth registers accounts, issues token pairs and resolves bearer
// tokens to principals.
package auth

import (
	"context"
	"crypto/subtle"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/middleware"
	"github.com/jgirmay/alif24/internal/common/repository"
	"github.com/jgirmay/alif24/internal/models"
)

type RegisterInput struct {
	Email       string          `json:"email" binding:"required,email,max=255"`
	Password    string          `json:"password" binding:"required,min=8,max=72,password"`
	FirstName   string          `json:"firstName" binding:"required,min=1,max=100"`
	LastName    string          `json:"lastName" binding:"required,min=1,max=100"`
	Role        models.Role     `json:"role" binding:"omitempty,oneof=student teacher parent"`
	Language    models.Language `json:"language" binding:"omitempty,oneof=uz ru"`
	Phone       string          `json:"phone" binding:"omitempty,max=20"`
	DateOfBirth *time.Time      `json:"dateOfBirth"`
}

type LoginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type RefreshInput struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

type ChangePasswordInput struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required,min=8,max=72,password"`
}

// Session is what a successful register, login or refresh returns.
type Session struct {
	User *models.User `json:"user"`
	TokenPair
}

// Account is a user together with the profile that matches their role.
type Account struct {
	User    *models.User           `json:"user"`
	Student *models.StudentProfile `json:"studentProfile,omitempty"`
	Teacher *models.TeacherProfile `json:"teacherProfile,omitempty"`
	Parent  *models.ParentProfile  `json:"parentProfile,omitempty"`
}

type Service struct {
	db        *gorm.DB
	users     *repository.Store[models.User]
	students  *repository.Store[models.StudentProfile]
	teachers  *repository.Store[models.TeacherProfile]
	parents   *repository.Store[models.ParentProfile]
	tokens    *TokenManager
	passwords *PasswordHasher
	log       *zap.Logger
	now       func() time.Time
}

func NewService(db *gorm.DB, tokens *TokenManager, passwords *PasswordHasher, log *zap.Logger) *Service {
	return &Service{
		db:        db,
		users:     repository.NewStore[models.User](db, "User", repository.TombstoneOn("is_active")),
		students:  repository.NewStore[models.StudentProfile](db, "Student profile", repository.Hard),
		teachers:  repository.NewStore[models.TeacherProfile](db, "Teacher profile", repository.Hard),
		parents:   repository.NewStore[models.ParentProfile](db, "Parent profile", repository.Hard),
		tokens:    tokens,
		passwords: passwords,
		log:       log,
		now:       time.Now,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *Service) findByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.users.FindOne(ctx, repository.Where("email = ?", normalizeEmail(email)))
}

// Register creates the account and its role profile in one transaction.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*Session, error) {
	if in.Role == "" {
		in.Role = models.RoleStudent
	}
	if in.Role == models.RoleAdmin {
		return nil, errors.Forbidden("Admin accounts cannot be self-registered")
	}
	if in.Language == "" {
		in.Language = models.LanguageUz
	}

	_, err := s.findByEmail(ctx, in.Email)
	switch {
	case err == nil:
		return nil, errors.Conflict("User with this email already exists")
	case !errors.Is(err, errors.CodeNotFound):
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, errors.Internal("Failed to register user", nil)
	}

	user := &models.User{
		Email:        normalizeEmail(in.Email),
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Phone:        in.Phone,
		Role:         in.Role,
		Language:     in.Language,
		IsActive:     true,
	}

	var session *Session
	err = database.InTx(ctx, s.db, func(ctx context.Context) error {
		if err := s.users.Create(ctx, user); err != nil {
			if errors.Is(err, errors.CodeConflict) {
				return errors.Conflict("User with this email already exists")
			}
			return err
		}
		if err := s.createProfile(ctx, user, in); err != nil {
			return err
		}

		var err error
		session, err = s.startSession(ctx, user)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("role", string(user.Role)),
	)
	return session, nil
}

func (s *Service) createProfile(ctx context.Context, user *models.User, in RegisterInput) error {
	switch user.Role {
	case models.RoleStudent:
		dob := models.DefaultDateOfBirth
		if in.DateOfBirth != nil {
			dob = *in.DateOfBirth
		}
		return s.students.Create(ctx, &models.StudentProfile{
			UserID:      user.ID,
			DateOfBirth: dob,
			Level:       models.MinLevel,
			Preferences: datatypes.NewJSONType(models.DefaultStudentPreferences()),
		})
	case models.RoleTeacher:
		return s.teachers.Create(ctx, &models.TeacherProfile{UserID: user.ID, Subjects: []string{}})
	case models.RoleParent:
		return s.parents.Create(ctx, &models.ParentProfile{
			UserID:                  user.ID,
			NotificationPreferences: models.DefaultNotificationPreferences(),
			ScreenTimeLimit:         60,
		})
	}
	return nil
}

// startSession issues a pair and stores the refresh token's fingerprint,
// revoking whichever refresh token was outstanding.
func (s *Service) startSession(ctx context.Context, user *models.User) (*Session, error) {
	pair, err := s.tokens.Issue(user)
	if err != nil {
		return nil, errors.Internal("Failed to issue tokens", nil)
	}
	user.RefreshTokenHash = fingerprint(pair.RefreshToken)
	if err := s.users.Update(ctx, user.ID, map[string]interface{}{"refresh_token_hash": user.RefreshTokenHash}); err != nil {
		return nil, err
	}
	return &Session{User: user, TokenPair: *pair}, nil
}

func (s *Service) Login(ctx context.Context, in LoginInput) (*Session, error) {
	user, err := s.findByEmail(ctx, in.Email)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, errors.Unauthorized("Invalid email or password")
		}
		return nil, err
	}
	if !s.passwords.Verify(user.PasswordHash, in.Password) {
		s.log.Warn("Failed login attempt", zap.String("user_id", user.ID.String()))
		return nil, errors.Unauthorized("Invalid email or password")
	}
	if !user.IsActive {
		return nil, errors.Unauthorized("Account is deactivated")
	}

	now := s.now()
	user.LastLoginAt = &now
	if err := s.users.Update(ctx, user.ID, map[string]interface{}{"last_login_at": now}); err != nil {
		return nil, err
	}

	session, err := s.startSession(ctx, user)
	if err != nil {
		return nil, err
	}
	s.log.Info("User logged in", zap.String("user_id", user.ID.String()))
	return session, nil
}

// Refresh exchanges the outstanding refresh token for a new pair. A token that
// was already rotated out is rejected.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Session, error) {
	claims, err := s.tokens.ParseRefresh(refreshToken)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserUUID()
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, errors.Unauthorized("Invalid refresh token")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, errors.Unauthorized("Account is deactivated")
	}
	stored, presented := []byte(user.RefreshTokenHash), []byte(fingerprint(refreshToken))
	if user.RefreshTokenHash == "" || subtle.ConstantTimeCompare(stored, presented) != 1 {
		return nil, errors.Unauthorized("Invalid refresh token")
	}

	return s.startSession(ctx, user)
}

// Logout revokes the user's refresh token. Access tokens expire on their own.
func (s *Service) Logout(ctx context.Context, userID uuid.UUID) error {
	return s.users.Update(ctx, userID, map[string]interface{}{"refresh_token_hash": ""})
}

func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, in ChangePasswordInput) error {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.passwords.Verify(user.PasswordHash, in.CurrentPassword) {
		return errors.BadRequest("Current password is incorrect")
	}

	hash, err := s.passwords.Hash(in.NewPassword)
	if err != nil {
		return errors.Internal("Failed to change password", nil)
	}
	err = s.users.Update(ctx, userID, map[string]interface{}{
		"password_hash":      hash,
		"refresh_token_hash": "",
	})
	if err != nil {
		return err
	}
	s.log.Info("Password changed", zap.String("user_id", userID.String()))
	return nil
}

// Me loads the caller with their role profile.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*Account, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	account := &Account{User: user}
	byUser := repository.Where("user_id = ?", userID)
	switch user.Role {
	case models.RoleStudent:
		account.Student, err = s.students.FindOne(ctx, byUser)
	case models.RoleTeacher:
		account.Teacher, err = s.teachers.FindOne(ctx, byUser)
	case models.RoleParent:
		account.Parent, err = s.parents.FindOne(ctx, byUser)
	}
	if err != nil && !errors.Is(err, errors.CodeNotFound) {
		return nil, err
	}
	return account, nil
}

// Authenticate resolves an access token to an active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*middleware.Principal, error) {
	claims, err := s.tokens.ParseAccess(token)
	if err != nil {
		return nil, err
	}
	userID, err := claims.UserUUID()
	if err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errors.CodeNotFound) {
			return nil, errors.Unauthorized("User not found")
		}
		return nil, err
	}
	if !user.IsActive {
		return nil, errors.Unauthorized("Account is deactivated")
	}
	return &middleware.Principal{UserID: user.ID, Email: user.Email, Role: user.Role}, nil
}
