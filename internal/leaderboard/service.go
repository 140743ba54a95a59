// Package leaderboard ranks students by total points.
package leaderboard

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/common/database"
	apperrors "github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/models"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

type Entry struct {
	Rank        int64     `json:"rank"`
	StudentID   uuid.UUID `json:"studentId"`
	FirstName   string    `json:"firstName"`
	LastName    string    `json:"lastName"`
	Avatar      string    `json:"avatar,omitempty"`
	Level       int       `json:"level"`
	TotalPoints int       `json:"totalPoints"`
}

type Standing struct {
	Entry
	TotalStudents int64 `json:"totalStudents"`
}

// Service reads rankings from SQL, or from the Redis cache when one is set.
// It also listens for reward events to keep the cache current.
type Service struct {
	db    *gorm.DB
	cache *Cache
	log   *zap.Logger
}

// NewService builds the service. cache may be nil.
func NewService(db *gorm.DB, cache *Cache, log *zap.Logger) *Service {
	return &Service{db: db, cache: cache, log: log}
}

// ranked is every student with an active account.
func (s *Service) ranked(ctx context.Context) *gorm.DB {
	return database.Conn(ctx, s.db).
		Table("student_profiles").
		Joins("JOIN users ON users.id = student_profiles.user_id").
		Where("users.is_active = ?", true)
}

func (s *Service) base(ctx context.Context) *gorm.DB {
	return s.ranked(ctx).Select("student_profiles.id AS student_id, users.first_name, users.last_name, users.avatar, student_profiles.level, student_profiles.total_points")
}

// Top returns up to limit students ordered by points.
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	if s.cache != nil {
		entries, err := s.cache.Top(ctx, limit)
		if err == nil {
			return entries, nil
		}
		if !errors.Is(err, ErrCacheMiss) {
			s.log.Warn("leaderboard cache read failed", zap.Error(err))
		} else if err := s.Warm(ctx); err != nil {
			s.log.Warn("leaderboard cache rebuild failed", zap.Error(err))
		}
	}

	return s.query(ctx, limit)
}

func (s *Service) query(ctx context.Context, limit int) ([]Entry, error) {
	var entries []Entry
	q := s.base(ctx).Order("student_profiles.total_points DESC").Order("student_profiles.created_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(&entries).Error; err != nil {
		return nil, apperrors.FromGorm(err, "Leaderboard")
	}
	if entries == nil {
		entries = []Entry{}
	}
	assignRanks(entries)
	return entries, nil
}

// Me returns the caller's standing.
func (s *Service) Me(ctx context.Context, userID uuid.UUID) (*Standing, error) {
	var standing Standing
	err := s.base(ctx).Where("student_profiles.user_id = ?", userID).Take(&standing.Entry).Error
	if err != nil {
		return nil, apperrors.FromGorm(err, "Student")
	}

	if s.cache != nil {
		rank, err := s.cache.Rank(ctx, standing.StudentID.String())
		total, countErr := s.cache.Count(ctx)
		if err == nil && countErr == nil {
			standing.Rank, standing.TotalStudents = rank, total
			return &standing, nil
		}
		s.log.Debug("leaderboard cache miss for rank", zap.String("student_id", standing.StudentID.String()))
	}

	var above int64
	if err := s.ranked(ctx).Where("student_profiles.total_points > ?", standing.TotalPoints).Count(&above).Error; err != nil {
		return nil, apperrors.FromGorm(err, "Leaderboard")
	}
	if err := s.ranked(ctx).Count(&standing.TotalStudents).Error; err != nil {
		return nil, apperrors.FromGorm(err, "Leaderboard")
	}
	standing.Rank = above + 1
	return &standing, nil
}

// Warm loads every ranked student into the cache.
func (s *Service) Warm(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	entries, err := s.query(ctx, 0)
	if err != nil {
		return err
	}
	if err := s.cache.Rebuild(ctx, entries); err != nil {
		return err
	}
	s.log.Info("leaderboard cache warmed", zap.Int("students", len(entries)))
	return nil
}

// StatsChanged moves the student in the cache.
func (s *Service) StatsChanged(ctx context.Context, student *models.StudentProfile) {
	if s.cache == nil {
		return
	}

	var e Entry
	err := s.base(ctx).Where("student_profiles.id = ?", student.ID).Take(&e).Error
	if err != nil {
		s.log.Warn("leaderboard entry lookup failed", zap.String("student_id", student.ID.String()), zap.Error(err))
		return
	}
	if err := s.cache.Put(ctx, e); err != nil {
		s.log.Warn("leaderboard cache update failed", zap.String("student_id", student.ID.String()), zap.Error(err))
	}
}

func (s *Service) AchievementAwarded(context.Context, *models.StudentProfile, *models.Achievement) {}

// AccountDeactivated evicts the account's student entry, if any.
func (s *Service) AccountDeactivated(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	var profile models.StudentProfile
	err := database.Conn(ctx, s.db).Select("id").Where("user_id = ?", userID).Take(&profile).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	if err != nil {
		s.log.Warn("leaderboard entry lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	if err := s.cache.Remove(ctx, profile.ID.String()); err != nil {
		s.log.Warn("leaderboard cache eviction failed", zap.String("student_id", profile.ID.String()), zap.Error(err))
	}
}

// AccountActivated puts a restored student back in the ranking.
func (s *Service) AccountActivated(ctx context.Context, userID uuid.UUID) {
	if s.cache == nil {
		return
	}
	var e Entry
	err := s.base(ctx).Where("student_profiles.user_id = ?", userID).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return
	}
	if err != nil {
		s.log.Warn("leaderboard entry lookup failed", zap.String("user_id", userID.String()), zap.Error(err))
		return
	}
	if err := s.cache.Put(ctx, e); err != nil {
		s.log.Warn("leaderboard cache update failed", zap.String("student_id", e.StudentID.String()), zap.Error(err))
	}
}

// assignRanks numbers entries already sorted by points; ties share a rank.
func assignRanks(entries []Entry) {
	for i := range entries {
		switch {
		case i == 0:
			entries[i].Rank = 1
		case entries[i].TotalPoints == entries[i-1].TotalPoints:
			entries[i].Rank = entries[i-1].Rank
		default:
			entries[i].Rank = int64(i + 1)
		}
	}
}
