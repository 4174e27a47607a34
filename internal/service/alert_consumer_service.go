package service

import (
	"context"
	"encoding/json"
	"time"

	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/model"
	"legal-assistant-be/internal/pkg/logger"
	"legal-assistant-be/internal/pkg/mailer"
	"legal-assistant-be/internal/repository"
	"legal-assistant-be/internal/repository/specification"
	"legal-assistant-be/internal/repository/unitofwork"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const lowBalanceTypeCode = "LOW_BALANCE"

// IAlertConsumerService drains the in-process low-balance topic,
// emailing the user and persisting an in-app notification.
type IAlertConsumerService interface {
	Consume(ctx context.Context) error
}

type alertConsumerService struct {
	pubSub           *gochannel.GoChannel
	topicName        string
	uowFactory       unitofwork.RepositoryFactory
	notificationRepo repository.NotificationRepository
	emailService     mailer.IEmailService
	logger           logger.ILogger
}

func NewAlertConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	notificationRepo repository.NotificationRepository,
	emailService mailer.IEmailService,
	log logger.ILogger,
) IAlertConsumerService {
	return &alertConsumerService{
		pubSub:           pubSub,
		topicName:        topicName,
		uowFactory:       uowFactory,
		notificationRepo: notificationRepo,
		emailService:     emailService,
		logger:           log,
	}
}

func (cs *alertConsumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *alertConsumerService) processMessage(ctx context.Context, msg *message.Message) {
	var alert dto.LowBalanceAlert
	if err := json.Unmarshal(msg.Payload, &alert); err != nil {
		cs.logger.Error("AlertConsumer", "Failed to unmarshal alert", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Malformed payloads never become valid; drop them.
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: alert.UserId})
	if err != nil {
		cs.logger.Error("AlertConsumer", "Failed to load user", map[string]interface{}{
			"user_id": alert.UserId.String(),
			"error":   err.Error(),
		})
		msg.Nack()
		return
	}
	if user == nil {
		msg.Ack()
		return
	}

	metaJSON, _ := json.Marshal(alert)
	notification := model.Notification{
		ID:        uuid.New(),
		UserID:    user.Id,
		TypeCode:  lowBalanceTypeCode,
		Title:     "Low credit balance",
		Message:   lowBalanceMessage(alert.Balance),
		Metadata:  datatypes.JSON(metaJSON),
		IsRead:    false,
		CreatedAt: time.Now(),
	}
	if err := cs.notificationRepo.CreateNotification(ctx, &notification); err != nil {
		cs.logger.Error("AlertConsumer", "Failed to persist low balance notification", map[string]interface{}{
			"user_id": user.Id.String(),
			"error":   err.Error(),
		})
		msg.Nack()
		return
	}

	if err := cs.emailService.SendLowBalanceAlert(user.Email, alert.Balance); err != nil {
		// Notification is already stored; email failure is not retried.
		cs.logger.Warn("AlertConsumer", "Failed to send low balance email", map[string]interface{}{
			"user_id": user.Id.String(),
			"error":   err.Error(),
		})
	}

	msg.Ack()
}

func lowBalanceMessage(balance int) string {
	if balance == 0 {
		return "You have no credits left. Top up to keep using the assistant."
	}
	return "Your credit balance is running low. Top up to avoid interruption."
}
