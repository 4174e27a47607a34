package bootstrap

import (
	"context"
	"log"
	"time"

	"legal-assistant-be/internal/config"
	"legal-assistant-be/internal/controller"
	"legal-assistant-be/internal/handler"
	"legal-assistant-be/internal/pkg/logger"
	"legal-assistant-be/internal/pkg/mailer"
	"legal-assistant-be/internal/repository/implementation"
	"legal-assistant-be/internal/repository/unitofwork"
	"legal-assistant-be/internal/service"
	"legal-assistant-be/internal/websocket"
	"legal-assistant-be/pkg/ai"
	"legal-assistant-be/pkg/ai/factory"

	pktNats "legal-assistant-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type Container struct {
	// Controllers
	AuthController     controller.IAuthController
	UserController     controller.IUserController
	ChatController     controller.IChatController
	UsageController    controller.IUsageController
	DocumentController controller.IDocumentController

	// Background Services (Exposed for main.go to run)
	AlertConsumerService service.IAlertConsumerService

	// WebSockets & Notification
	NotificationHandler *handler.NotificationHandler
	WebSocketHub        *websocket.Hub
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.Email,
		cfg.SMTP.SenderName,
	)

	// 2. Event Bus
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{},
		watermillLogger,
	)

	// 2.5 Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(context.Background()).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v", err)
	}

	// WebSocket Hub
	wsLogger := logger.NewIsolatedLogger("logs/notification.log")
	wsHub := websocket.NewHub(rdb, wsLogger)
	go wsHub.Run()

	// In-process stats cache
	statsCache := gocache.New(5*time.Minute, 10*time.Minute)

	// 3. AI Providers
	aiCfg := factory.Config{
		OpenAIKey:     cfg.Keys.OpenAI,
		OpenAIModel:   cfg.Ai.OpenAIModel,
		AnthropicKey:  cfg.Keys.Anthropic,
		ClaudeModel:   cfg.Ai.ClaudeModel,
		DeepSeekKey:   cfg.Keys.DeepSeek,
		DeepSeekModel: cfg.Ai.DeepSeekModel,
	}
	fallbackChain, err := factory.NewFallbackChain(aiCfg, cfg.Ai.DefaultProvider)
	if err != nil {
		log.Fatalf("[FATAL] Failed to initialize AI providers: %v", err)
	}
	providers := ai.NewRegistry(fallbackChain)
	for _, name := range []string{"openai", "claude", "deepseek"} {
		if p, err := factory.NewProvider(name, aiCfg); err == nil {
			providers.Register(p)
		}
	}
	log.Printf("[INFO] Using AI Provider chain (preferred: %s)", cfg.Ai.DefaultProvider)

	// 4. Services
	alertPublisher := service.NewPublisherService(cfg.Credit.LowBalanceAlertTopic, pubSub)

	ledgerService := service.NewLedgerService(
		uowFactory,
		cfg.Credit,
		natsPub,
		alertPublisher,
		statsCache,
		sysLogger,
	)
	authService := service.NewAuthService(uowFactory, emailService, natsPub, cfg.App.JWTSecret, cfg.Credit)
	chatService := service.NewChatService(uowFactory, providers, ledgerService, cfg.Ai.MaxTokens, sysLogger)
	documentService := service.NewDocumentService(
		uowFactory,
		providers,
		ledgerService,
		natsPub,
		cfg.Ai.MaxTokens,
		sysLogger,
	)

	// 4.5 Notification System
	notifRepo := implementation.NewNotificationRepository(db)
	notifService := service.NewNotificationService(notifRepo, natsSub, wsHub, wsLogger) // Hub implements NotificationDelivery

	// Start Service (Worker)
	if natsSub != nil {
		go notifService.Start()
	}

	alertConsumerService := service.NewAlertConsumerService(
		pubSub,
		cfg.Credit.LowBalanceAlertTopic,
		uowFactory,
		notifRepo,
		emailService,
		sysLogger,
	)

	// Handler
	notifHandler := handler.NewNotificationHandler(notifService, wsHub, wsLogger)

	// 5. Controllers
	return &Container{
		NotificationHandler: notifHandler,
		WebSocketHub:        wsHub,
		AuthController:      controller.NewAuthController(authService),
		UserController:      controller.NewUserController(authService),
		ChatController:      controller.NewChatController(chatService),
		UsageController:     controller.NewUsageController(ledgerService),
		DocumentController:  controller.NewDocumentController(documentService),

		AlertConsumerService: alertConsumerService,
	}
}
