// Package notifications stores per-user notifications and pushes new ones to
// connected websocket sessions.
package notifications

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/jgirmay/alif24/internal/common/database"
	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/common/repository"
	"github.com/jgirmay/alif24/internal/models"
)

type ListQuery struct {
	UnreadOnly bool `form:"unreadOnly"`
	Page       int  `form:"page" binding:"omitempty,min=1"`
	Limit      int  `form:"limit" binding:"omitempty,min=1,max=100"`
}

// Pusher delivers a message to every open session of a user.
type Pusher interface {
	SendToUser(userID uuid.UUID, msg Message) bool
}

type Service struct {
	store  *repository.Store[models.Notification]
	pusher Pusher
	now    func() time.Time
	log    *zap.Logger
}

// NewService builds the service. pusher may be nil when realtime delivery is off.
func NewService(db *gorm.DB, pusher Pusher, log *zap.Logger) *Service {
	return &Service{
		store:  repository.NewStore[models.Notification](db, "Notification", repository.Hard),
		pusher: pusher,
		now:    time.Now,
		log:    log,
	}
}

func ownedBy(userID uuid.UUID) repository.Scope {
	return repository.Where("user_id = ?", userID)
}

// List returns the user's notifications, newest first.
func (s *Service) List(ctx context.Context, userID uuid.UUID, q ListQuery) (*database.PaginatedResult, error) {
	scopes := []repository.Scope{ownedBy(userID), repository.OrderBy("created_at DESC")}
	if q.UnreadOnly {
		scopes = append(scopes, repository.Where("is_read = ?", false))
	}
	return s.store.Paginate(ctx, database.NewPagination(q.Page, q.Limit), scopes...)
}

func (s *Service) UnreadCount(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.store.Count(ctx, ownedBy(userID), repository.Where("is_read = ?", false))
}

// Create stores the notification and pushes it to the user's live sessions.
func (s *Service) Create(ctx context.Context, n *models.Notification) error {
	if n.Type == "" {
		n.Type = models.NotificationUpdate
	}
	if err := s.store.Create(ctx, n); err != nil {
		return err
	}

	if s.pusher != nil {
		delivered := s.pusher.SendToUser(n.UserID, Message{
			Type:      MessageNotification,
			Timestamp: n.CreatedAt,
			Data:      n,
		})
		s.log.Debug("notification created",
			zap.String("user_id", n.UserID.String()),
			zap.String("type", string(n.Type)),
			zap.Bool("pushed", delivered),
		)
	}
	return nil
}

// MarkRead flags one of the user's notifications as read.
func (s *Service) MarkRead(ctx context.Context, userID, id uuid.UUID) (*models.Notification, error) {
	result := s.store.Conn(ctx).Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Updates(map[string]interface{}{"is_read": true, "read_at": s.now()})
	if result.Error != nil {
		return nil, errors.FromGorm(result.Error, s.store.Resource())
	}
	if result.RowsAffected == 0 {
		return nil, errors.NotFound(s.store.Resource())
	}
	return s.store.FindByID(ctx, id)
}

// MarkAllRead returns how many notifications changed.
func (s *Service) MarkAllRead(ctx context.Context, userID uuid.UUID) (int64, error) {
	result := s.store.Conn(ctx).Model(&models.Notification{}).
		Where("user_id = ? AND is_read = ?", userID, false).
		Updates(map[string]interface{}{"is_read": true, "read_at": s.now()})
	if result.Error != nil {
		return 0, errors.FromGorm(result.Error, s.store.Resource())
	}
	return result.RowsAffected, nil
}

func (s *Service) Delete(ctx context.Context, userID, id uuid.UUID) error {
	result := s.store.Conn(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if result.Error != nil {
		return errors.FromGorm(result.Error, s.store.Resource())
	}
	if result.RowsAffected == 0 {
		return errors.NotFound(s.store.Resource())
	}
	return nil
}
