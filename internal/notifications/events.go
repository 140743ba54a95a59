package notifications

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/jgirmay/alif24/internal/models"
)

// RewardListener turns reward events into notifications for the student.
type RewardListener struct {
	service *Service
	log     *zap.Logger
}

func NewRewardListener(service *Service, log *zap.Logger) *RewardListener {
	return &RewardListener{service: service, log: log}
}

func (l *RewardListener) StatsChanged(context.Context, *models.StudentProfile) {}

func (l *RewardListener) AchievementAwarded(ctx context.Context, student *models.StudentProfile, achievement *models.Achievement) {
	data, _ := json.Marshal(map[string]interface{}{
		"studentId":     student.ID,
		"achievementId": achievement.ID,
		"pointsReward":  achievement.PointsReward,
		"icon":          achievement.Icon,
	})

	n := &models.Notification{
		UserID:    student.UserID,
		Type:      models.NotificationAchievement,
		Title:     "Achievement unlocked!",
		TitleUz:   "Yangi yutuq!",
		TitleRu:   "Новое достижение!",
		Message:   fmt.Sprintf("You earned \"%s\" and %d points.", achievement.Name, achievement.PointsReward),
		MessageUz: fmt.Sprintf("Siz \"%s\" yutug'ini va %d ball oldingiz.", nameOr(achievement.NameUz, achievement.Name), achievement.PointsReward),
		MessageRu: fmt.Sprintf("Вы получили \"%s\" и %d очков.", nameOr(achievement.NameRu, achievement.Name), achievement.PointsReward),
		Data:      data,
	}
	if err := l.service.Create(ctx, n); err != nil {
		l.log.Error("failed to create achievement notification",
			zap.String("student_id", student.ID.String()),
			zap.String("achievement_id", achievement.ID.String()),
			zap.Error(err),
		)
	}
}

func nameOr(localized, fallback string) string {
	if localized == "" {
		return fallback
	}
	return localized
}
