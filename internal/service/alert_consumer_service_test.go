package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/pkg/logger"
	"legal-assistant-be/internal/repository/implementation"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAlertConsumerPersistsNotification(t *testing.T) {
	ctx := context.Background()
	factory, db := newTestFactory(t)
	user := seedUser(t, factory, 100)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	notifRepo := implementation.NewNotificationRepository(db)
	mail := &fakeMailer{}

	consumer := NewAlertConsumerService(pubSub, "LOW_BALANCE_ALERT", factory, notifRepo, mail, logger.NewNop())
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService("LOW_BALANCE_ALERT", pubSub)
	payload, err := json.Marshal(dto.LowBalanceAlert{UserId: user.Id, Balance: 5, Threshold: 10})
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(ctx, payload))

	require.Eventually(t, func() bool {
		count, err := notifRepo.GetUnreadCount(ctx, user.Id)
		return err == nil && count == 1
	}, 2*time.Second, 10*time.Millisecond)

	notifications, total, err := notifRepo.GetNotificationsByUserID(ctx, user.Id, 10, 0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, notifications, 1)
	assert.Equal(t, "LOW_BALANCE", notifications[0].TypeCode)
	assert.Equal(t, user.Id, notifications[0].UserID)
}

func TestAlertConsumerDropsMalformedPayload(t *testing.T) {
	ctx := context.Background()
	factory, db := newTestFactory(t)
	user := seedUser(t, factory, 100)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	notifRepo := implementation.NewNotificationRepository(db)

	consumer := NewAlertConsumerService(pubSub, "LOW_BALANCE_ALERT", factory, notifRepo, &fakeMailer{}, logger.NewNop())
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService("LOW_BALANCE_ALERT", pubSub)
	require.NoError(t, publisher.Publish(ctx, []byte("not json")))

	// A valid alert after the garbage still gets through.
	payload, err := json.Marshal(dto.LowBalanceAlert{UserId: user.Id, Balance: 0, Threshold: 10})
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(ctx, payload))

	require.Eventually(t, func() bool {
		count, err := notifRepo.GetUnreadCount(ctx, user.Id)
		return err == nil && count == 1
	}, 2*time.Second, 10*time.Millisecond)
}

func TestAlertConsumerIgnoresUnknownUser(t *testing.T) {
	ctx := context.Background()
	factory, db := newTestFactory(t)

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NewStdLogger(false, false))
	notifRepo := implementation.NewNotificationRepository(db)

	consumer := NewAlertConsumerService(pubSub, "LOW_BALANCE_ALERT", factory, notifRepo, &fakeMailer{}, logger.NewNop())
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService("LOW_BALANCE_ALERT", pubSub)
	ghost := uuid.New()
	payload, err := json.Marshal(dto.LowBalanceAlert{UserId: ghost, Balance: 5, Threshold: 10})
	require.NoError(t, err)
	require.NoError(t, publisher.Publish(ctx, payload))

	time.Sleep(100 * time.Millisecond)
	count, err := notifRepo.GetUnreadCount(ctx, ghost)
	require.NoError(t, err)
	assert.Zero(t, count)
}
