// Package students serves student profiles, their progress and statistics.
package students

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/achievements"
	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/middleware"
	"github.com/jgirmay/alif24/internal/common/repository"
	"github.com/jgirmay/alif24/internal/models"
)

// ParentLinks answers whether a parent may see a student.
type ParentLinks interface {
	IsLinkedParent(ctx context.Context, parentUserID, studentID uuid.UUID) (bool, error)
}

type ProfileInput struct {
	DateOfBirth *time.Time                 `json:"dateOfBirth"`
	Grade       *string                    `json:"grade" binding:"omitempty,max=50"`
	Preferences *models.StudentPreferences `json:"preferences"`
}

// Statistics is the dashboard summary for one student.
type Statistics struct {
	Level                 int        `json:"level"`
	TotalPoints           int        `json:"totalPoints"`
	TotalLessonsCompleted int        `json:"totalLessonsCompleted"`
	TotalGamesPlayed      int        `json:"totalGamesPlayed"`
	AverageScore          float64    `json:"averageScore"`
	CurrentStreak         int        `json:"currentStreak"`
	LongestStreak         int        `json:"longestStreak"`
	LastActivityAt        *time.Time `json:"lastActivityAt,omitempty"`
	AchievementsCount     int64      `json:"achievementsCount"`
	CompletedLessons      int64      `json:"completedLessons"`
	InProgressLessons     int64      `json:"inProgressLessons"`
}

type Service struct {
	students     *repository.Store[models.StudentProfile]
	progress     *repository.Store[models.Progress]
	achievements *achievements.Service
	parents      ParentLinks
	log          *zap.Logger
}

func NewService(db *gorm.DB, catalog *achievements.Service, parents ParentLinks, log *zap.Logger) *Service {
	return &Service{
		students:     repository.NewStore[models.StudentProfile](db, "Student", repository.Hard),
		progress:     repository.NewStore[models.Progress](db, "Progress", repository.Hard),
		achievements: catalog,
		parents:      parents,
		log:          log,
	}
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*models.StudentProfile, error) {
	return s.students.FindByID(ctx, id, repository.Preload("User"))
}

// ForUser returns the profile owned by the user.
func (s *Service) ForUser(ctx context.Context, userID uuid.UUID) (*models.StudentProfile, error) {
	return s.students.FindOne(ctx, repository.Where("user_id = ?", userID), repository.Preload("User"))
}

// IDForUser resolves the caller's student profile id.
func (s *Service) IDForUser(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	profile, err := s.students.FindOne(ctx, repository.Where("user_id = ?", userID))
	if err != nil {
		return uuid.Nil, err
	}
	return profile.ID, nil
}

// Upsert creates the user's profile or updates the given fields of an existing one.
func (s *Service) Upsert(ctx context.Context, userID uuid.UUID, in ProfileInput) (*models.StudentProfile, error) {
	existing, err := s.students.FindOne(ctx, repository.Where("user_id = ?", userID))
	switch {
	case err == nil:
		return s.Update(ctx, existing.ID, in)
	case !errors.Is(err, errors.CodeNotFound):
		return nil, err
	}

	profile := &models.StudentProfile{
		UserID:      userID,
		DateOfBirth: models.DefaultDateOfBirth,
		Level:       models.MinLevel,
		Preferences: datatypes.NewJSONType(models.DefaultStudentPreferences()),
	}
	if in.DateOfBirth != nil {
		profile.DateOfBirth = *in.DateOfBirth
	}
	if in.Grade != nil {
		profile.Grade = *in.Grade
	}
	if in.Preferences != nil {
		profile.Preferences = datatypes.NewJSONType(*in.Preferences)
	}
	if err := s.students.Create(ctx, profile); err != nil {
		return nil, err
	}
	s.log.Info("Student profile created", zap.String("user_id", userID.String()))
	return s.Get(ctx, profile.ID)
}

// Update changes descriptive fields only; statistics belong to the reward engine.
func (s *Service) Update(ctx context.Context, id uuid.UUID, in ProfileInput) (*models.StudentProfile, error) {
	updates := map[string]interface{}{}
	if in.DateOfBirth != nil {
		updates["date_of_birth"] = *in.DateOfBirth
	}
	if in.Grade != nil {
		updates["grade"] = *in.Grade
	}
	if in.Preferences != nil {
		updates["preferences"] = datatypes.NewJSONType(*in.Preferences)
	}
	if len(updates) > 0 {
		if err := s.students.Update(ctx, id, updates); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, id)
}

// Authorize allows admins, the student themselves and linked parents.
func (s *Service) Authorize(ctx context.Context, p *middleware.Principal, studentID uuid.UUID) error {
	if p.IsAdmin() {
		return nil
	}

	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return err
	}
	if student.UserID == p.UserID {
		return nil
	}
	if p.Role == models.RoleParent {
		linked, err := s.parents.IsLinkedParent(ctx, p.UserID, studentID)
		if err != nil {
			return err
		}
		if linked {
			return nil
		}
	}
	return errors.Forbidden("Access denied")
}

// Progress lists the student's lesson progress, most recently touched first.
func (s *Service) Progress(ctx context.Context, studentID uuid.UUID, page database.Pagination) (*database.PaginatedResult, error) {
	return s.progress.Paginate(ctx, page,
		repository.Where("student_id = ?", studentID),
		repository.Preload("Lesson"),
		repository.OrderBy("updated_at DESC"),
	)
}

func (s *Service) Achievements(ctx context.Context, studentID uuid.UUID) ([]models.StudentAchievement, error) {
	if _, err := s.students.FindByID(ctx, studentID); err != nil {
		return nil, err
	}
	return s.achievements.ForStudent(ctx, studentID)
}

func (s *Service) Statistics(ctx context.Context, studentID uuid.UUID) (*Statistics, error) {
	student, err := s.students.FindByID(ctx, studentID)
	if err != nil {
		return nil, err
	}

	earned, err := s.achievements.CountForStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	completed, err := s.progress.Count(ctx, repository.Where("student_id = ? AND status = ?", studentID, models.StatusCompleted))
	if err != nil {
		return nil, err
	}
	inProgress, err := s.progress.Count(ctx, repository.Where("student_id = ? AND status = ?", studentID, models.StatusInProgress))
	if err != nil {
		return nil, err
	}

	return &Statistics{
		Level:                 student.Level,
		TotalPoints:           student.TotalPoints,
		TotalLessonsCompleted: student.TotalLessonsCompleted,
		TotalGamesPlayed:      student.TotalGamesPlayed,
		AverageScore:          student.AverageScore,
		CurrentStreak:         student.CurrentStreak,
		LongestStreak:         student.LongestStreak,
		LastActivityAt:        student.LastActivityAt,
		AchievementsCount:     earned,
		CompletedLessons:      completed,
		InProgressLessons:     inProgress,
	}, nil
}
