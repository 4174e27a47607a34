package service

import (
	"context"
	"testing"

	"legal-assistant-be/internal/model"
	"legal-assistant-be/internal/pkg/logger"
	"legal-assistant-be/internal/repository/implementation"
	"legal-assistant-be/pkg/events"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fakeDelivery struct {
	sent []model.Notification
}

func (d *fakeDelivery) Send(userID uuid.UUID, notification model.Notification) {
	d.sent = append(d.sent, notification)
}

func seedNotificationType(t *testing.T, db *gorm.DB, code, template string, active bool) {
	t.Helper()
	require.NoError(t, db.Create(&model.NotificationType{
		Code:        code,
		DisplayName: code,
		Template:    template,
		IsActive:    active,
	}).Error)
}

func TestHandleEventCreatesNotification(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := implementation.NewNotificationRepository(db)
	delivery := &fakeDelivery{}
	svc := NewNotificationService(repo, nil, delivery, logger.NewNop())

	seedNotificationType(t, db, events.TypeCreditsPurchased, "Your purchase added {credits_added} credits.", true)

	userID := uuid.New()
	event := events.NewEvent(events.TypeCreditsPurchased, map[string]interface{}{
		"user_id":       userID.String(),
		"credits_added": 25,
	})
	require.NoError(t, svc.handleEvent(ctx, event))

	notifications, total, err := repo.GetNotificationsByUserID(ctx, userID, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, notifications, 1)
	assert.Equal(t, events.TypeCreditsPurchased, notifications[0].TypeCode)
	assert.Equal(t, "Credits added", notifications[0].Title)
	assert.Equal(t, "Your purchase added 25 credits.", notifications[0].Message)

	require.Len(t, delivery.sent, 1)
	assert.Equal(t, notifications[0].ID, delivery.sent[0].ID)
}

func TestHandleEventSkipsInactiveType(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := implementation.NewNotificationRepository(db)
	delivery := &fakeDelivery{}
	svc := NewNotificationService(repo, nil, delivery, logger.NewNop())

	seedNotificationType(t, db, events.TypeDocumentGenerated, "Document {title} ready.", false)

	userID := uuid.New()
	event := events.NewEvent(events.TypeDocumentGenerated, map[string]interface{}{
		"user_id": userID.String(),
		"title":   "Contrato",
	})
	require.NoError(t, svc.handleEvent(ctx, event))

	count, err := repo.GetUnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, delivery.sent)
}

func TestHandleEventUnknownTypeIsIgnored(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := implementation.NewNotificationRepository(db)
	svc := NewNotificationService(repo, nil, &fakeDelivery{}, logger.NewNop())

	event := events.NewEvent("SOMETHING_ELSE", map[string]interface{}{"user_id": uuid.New().String()})
	assert.NoError(t, svc.handleEvent(ctx, event))
}

func TestHandleEventRequiresUserID(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := implementation.NewNotificationRepository(db)
	svc := NewNotificationService(repo, nil, &fakeDelivery{}, logger.NewNop())

	seedNotificationType(t, db, events.TypeCreditsExhausted, "No credits left.", true)

	event := events.NewEvent(events.TypeCreditsExhausted, map[string]interface{}{})
	assert.NoError(t, svc.handleEvent(ctx, event))
}

func TestMarkAsRead(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := implementation.NewNotificationRepository(db)
	svc := NewNotificationService(repo, nil, nil, logger.NewNop())

	userID := uuid.New()
	notification := &model.Notification{
		ID:       uuid.New(),
		UserID:   userID,
		TypeCode: "LOW_BALANCE",
		Title:    "Low credit balance",
		Message:  "Running low.",
	}
	require.NoError(t, repo.CreateNotification(ctx, notification))

	count, err := svc.GetUnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)

	require.NoError(t, svc.MarkAsRead(ctx, notification.ID))

	count, err = svc.GetUnreadCount(ctx, userID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Marking a missing notification is an error.
	assert.Error(t, svc.MarkAsRead(ctx, uuid.New()))
}

func TestDeactivatedTypeStaysDeactivated(t *testing.T) {
	db := newTestDB(t)
	repo := implementation.NewNotificationRepository(db)

	seedNotificationType(t, db, "RETIRED_EVENT", "unused", false)

	stored, err := repo.GetNotificationTypeByCode(context.Background(), "RETIRED_EVENT")
	require.NoError(t, err)
	assert.False(t, stored.IsActive)
}
