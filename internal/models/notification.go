package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/jgirmay/alif24/internal/common/database"
)

type NotificationType string

const (
	NotificationAchievement NotificationType = "achievement"
	NotificationReminder    NotificationType = "reminder"
	NotificationUpdate      NotificationType = "update"
	NotificationAlert       NotificationType = "alert"
	NotificationMessage     NotificationType = "message"
)

type Notification struct {
	database.BaseModel
	UserID    uuid.UUID        `gorm:"not null;index" json:"userId"`
	Type      NotificationType `gorm:"size:20;not null;default:update" json:"type"`
	Title     string           `gorm:"size:200;not null" json:"title"`
	TitleUz   string           `gorm:"size:200" json:"titleUz,omitempty"`
	TitleRu   string           `gorm:"size:200" json:"titleRu,omitempty"`
	Message   string           `gorm:"not null" json:"message"`
	MessageUz string           `json:"messageUz,omitempty"`
	MessageRu string           `json:"messageRu,omitempty"`
	Data      datatypes.JSON   `json:"data,omitempty"`
	IsRead    bool             `gorm:"not null;default:false;index" json:"isRead"`
	ReadAt    *time.Time       `json:"readAt,omitempty"`
}
