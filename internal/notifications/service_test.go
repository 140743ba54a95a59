package notifications

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jgirmay/alif24/internal/common/errors"
	"github.com/jgirmay/alif24/internal/models"
	"github.com/jgirmay/alif24/internal/testutil"
)

type recordingPusher struct {
	sent []Message
}

func (p *recordingPusher) SendToUser(_ uuid.UUID, msg Message) bool {
	p.sent = append(p.sent, msg)
	return true
}

func notify(t *testing.T, svc *Service, userID uuid.UUID, title string) *models.Notification {
	t.Helper()
	n := &models.Notification{UserID: userID, Title: title, Message: title}
	require.NoError(t, svc.Create(context.Background(), n))
	return n
}

func TestServiceLifecycle(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	pusher := &recordingPusher{}
	svc := NewService(db, pusher, zap.NewNop())

	owner := testutil.CreateUser(t, db, "owner@example.com", models.RoleParent)
	stranger := testutil.CreateUser(t, db, "stranger@example.com", models.RoleParent)

	first := notify(t, svc, owner.ID, "first")
	notify(t, svc, owner.ID, "second")
	notify(t, svc, stranger.ID, "elsewhere")

	assert.Equal(t, models.NotificationUpdate, first.Type)
	require.Len(t, pusher.sent, 3)
	assert.Equal(t, MessageNotification, pusher.sent[0].Type)

	count, err := svc.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 2, count)

	_, err = svc.MarkRead(ctx, stranger.ID, first.ID)
	assert.True(t, errors.Is(err, errors.CodeNotFound))

	read, err := svc.MarkRead(ctx, owner.ID, first.ID)
	require.NoError(t, err)
	assert.True(t, read.IsRead)
	assert.NotNil(t, read.ReadAt)

	page, err := svc.List(ctx, owner.ID, ListQuery{UnreadOnly: true})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)

	updated, err := svc.MarkAllRead(ctx, owner.ID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, updated)

	count, err = svc.UnreadCount(ctx, owner.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	assert.True(t, errors.Is(svc.Delete(ctx, stranger.ID, first.ID), errors.CodeNotFound))
	require.NoError(t, svc.Delete(ctx, owner.ID, first.ID))

	page, err = svc.List(ctx, owner.ID, ListQuery{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
}

func TestRewardListenerCreatesAchievementNotification(t *testing.T) {
	ctx := context.Background()
	db := testutil.NewDB(t)
	svc := NewService(db, nil, zap.NewNop())
	listener := NewRewardListener(svc, zap.NewNop())

	user, student := testutil.CreateStudent(t, db, "kid@example.com")
	badge := testutil.CreateAchievement(t, db, "First Steps", 50, models.Criteria{LessonsCompleted: 1})

	listener.StatsChanged(ctx, student)
	listener.AchievementAwarded(ctx, student, badge)

	page, err := svc.List(ctx, user.ID, ListQuery{})
	require.NoError(t, err)
	require.EqualValues(t, 1, page.Total)

	items := page.Data.([]models.Notification)
	assert.Equal(t, models.NotificationAchievement, items[0].Type)
	assert.Contains(t, items[0].Message, "First Steps")
	assert.Contains(t, string(items[0].Data), badge.ID.String())
}
