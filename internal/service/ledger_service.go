// FILE: internal/service/ledger_service.go
package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"legal-assistant-be/internal/config"
	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/pkg/logger"
	"legal-assistant-be/internal/repository/specification"
	"legal-assistant-be/internal/repository/unitofwork"
	"legal-assistant-be/pkg/events"
	pktNats "legal-assistant-be/pkg/nats"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
)

const (
	ChargePolicyReject = "reject"
	ChargePolicyClamp  = "clamp"

	ServiceChat     = "chat"
	ServiceDocument = "document"
)

// ChargeDetail describes what a deduction was for, feeding both the
// audit trail and the bounded usage history on the usage record.
type ChargeDetail struct {
	Service   string // ServiceChat or ServiceDocument
	RelatedId *uuid.UUID
	Title     string // session title or document type
	Provider  string
}

type ILedgerService interface {
	// Charge deducts credits for tokensUsed AI tokens. A zero token
	// count never charges. Returns ErrInsufficientCredits under the
	// reject policy when the balance cannot cover the cost.
	Charge(ctx context.Context, userId uuid.UUID, tokensUsed int, detail ChargeDetail) (*dto.ChargeResult, error)

	// EffectiveTotalTokens returns the lifetime token consumption,
	// reconciling from message rows when the cached counter was never
	// initialized.
	EffectiveTotalTokens(ctx context.Context, userId uuid.UUID) (int, error)

	AddCredits(ctx context.Context, userId uuid.UUID, req *dto.AddCreditsRequest) (*dto.AddCreditsResponse, error)
	GetUsageStats(ctx context.Context, userId uuid.UUID) (*dto.UsageStatsResponse, error)
}

type ledgerService struct {
	uowFactory     unitofwork.RepositoryFactory
	creditCfg      config.CreditConfig
	eventPublisher *pktNats.Publisher
	alertPublisher IPublisherService
	statsCache     *gocache.Cache
	logger         logger.ILogger
}

func NewLedgerService(
	uowFactory unitofwork.RepositoryFactory,
	creditCfg config.CreditConfig,
	eventPublisher *pktNats.Publisher,
	alertPublisher IPublisherService,
	statsCache *gocache.Cache,
	log logger.ILogger,
) ILedgerService {
	return &ledgerService{
		uowFactory:     uowFactory,
		creditCfg:      creditCfg,
		eventPublisher: eventPublisher,
		alertPublisher: alertPublisher,
		statsCache:     statsCache,
		logger:         log,
	}
}

// creditsForTokens converts a token count to a credit cost.
// Any non-zero consumption costs at least one credit.
func (s *ledgerService) creditsForTokens(tokens int) int {
	if tokens <= 0 {
		return 0
	}
	credits := tokens / s.creditCfg.TokensPerCredit
	if credits < 1 {
		credits = 1
	}
	return credits
}

func (s *ledgerService) Charge(ctx context.Context, userId uuid.UUID, tokensUsed int, detail ChargeDetail) (*dto.ChargeResult, error) {
	cost := s.creditsForTokens(tokensUsed)
	if cost == 0 {
		// Providers that do not report usage consume nothing.
		uow := s.uowFactory.NewUnitOfWork(ctx)
		user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
		if err != nil {
			return nil, err
		}
		if user == nil {
			return nil, ErrUserNotFound
		}
		return &dto.ChargeResult{CreditsCharged: 0, CreditsRemaining: user.Credits}, nil
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId}, specification.ForUpdate{})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	clamped := false
	if user.Credits < cost {
		switch s.creditCfg.ChargePolicy {
		case ChargePolicyClamp:
			cost = user.Credits
			clamped = true
		default:
			return nil, fmt.Errorf("%w: need %d, have %d", ErrInsufficientCredits, cost, user.Credits)
		}
	}

	newBalance := user.Credits - cost
	if err := uow.UserRepository().UpdateCredits(ctx, userId, newBalance); err != nil {
		return nil, err
	}

	usage, err := uow.UsageRepository().GetOrCreate(ctx, userId)
	if err != nil {
		return nil, err
	}
	usage.TotalTokens += tokensUsed
	usage.TotalsInitialized = true
	usage.AvailableTokens = newBalance * s.creditCfg.TokensPerCredit
	s.appendHistory(usage, tokensUsed, detail)
	if err := uow.UsageRepository().Update(ctx, usage); err != nil {
		return nil, err
	}

	// A fully clamped charge deducts nothing; the audit trail only
	// records actual movements.
	if cost > 0 {
		serviceUsed := detail.Service
		if err := uow.PaymentRepository().CreateTransaction(ctx, &entity.CreditTransaction{
			UserId:          userId,
			TransactionType: entity.CreditTransactionDebit,
			Amount:          cost,
			ServiceUsed:     &serviceUsed,
			RelatedId:       detail.RelatedId,
		}); err != nil {
			return nil, err
		}
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.statsCache.Delete(statsCacheKey(userId))
	s.notifyBalance(ctx, userId, newBalance)

	return &dto.ChargeResult{
		CreditsCharged:   cost,
		CreditsRemaining: newBalance,
		Clamped:          clamped,
	}, nil
}

func (s *ledgerService) appendHistory(usage *entity.Usage, tokensUsed int, detail ChargeDetail) {
	limit := s.creditCfg.UsageHistoryLimit
	now := time.Now()

	switch detail.Service {
	case ServiceDocument:
		item := entity.DocumentHistoryItem{
			Id:           uuid.New(),
			DocumentType: detail.Title,
			TokensUsed:   tokensUsed,
			CreatedAt:    now,
		}
		usage.DocumentHistory = append([]entity.DocumentHistoryItem{item}, usage.DocumentHistory...)
		if len(usage.DocumentHistory) > limit {
			usage.DocumentHistory = usage.DocumentHistory[:limit]
		}
	default:
		item := entity.ChatHistoryItem{
			Id:           uuid.New(),
			SessionTitle: detail.Title,
			Provider:     detail.Provider,
			TokensUsed:   tokensUsed,
			CreatedAt:    now,
		}
		usage.ChatHistory = append([]entity.ChatHistoryItem{item}, usage.ChatHistory...)
		if len(usage.ChatHistory) > limit {
			usage.ChatHistory = usage.ChatHistory[:limit]
		}
	}
}

// notifyBalance emits best-effort signals after a committed charge.
// Failures are logged, never propagated; the charge already happened.
func (s *ledgerService) notifyBalance(ctx context.Context, userId uuid.UUID, balance int) {
	if balance <= s.creditCfg.LowBalanceThreshold && s.alertPublisher != nil {
		payload, _ := json.Marshal(dto.LowBalanceAlert{
			UserId:    userId,
			Balance:   balance,
			Threshold: s.creditCfg.LowBalanceThreshold,
		})
		if err := s.alertPublisher.Publish(ctx, payload); err != nil {
			s.logger.Warn("LedgerService", "Failed to publish low balance alert", map[string]interface{}{
				"user_id": userId.String(),
				"error":   err.Error(),
			})
		}
	}

	if balance == 0 && s.eventPublisher != nil {
		evt := events.NewEvent(events.TypeCreditsExhausted, map[string]interface{}{
			"user_id": userId.String(),
		})
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("LedgerService", "Failed to publish credits exhausted event", map[string]interface{}{
				"user_id": userId.String(),
				"error":   err.Error(),
			})
		}
	}
}

func (s *ledgerService) EffectiveTotalTokens(ctx context.Context, userId uuid.UUID) (int, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	usage, err := uow.UsageRepository().GetOrCreate(ctx, userId)
	if err != nil {
		return 0, err
	}
	if usage.TotalsInitialized {
		return usage.TotalTokens, nil
	}

	// Counter never populated; reconcile from the message rows and
	// persist so the scan runs once.
	total, err := uow.UsageRepository().SumAssistantTokens(ctx, userId)
	if err != nil {
		// Degraded read: serve the last stored counter and leave the
		// initialization flag unset so the next call retries the scan.
		s.logger.Warn("LedgerService", "Token reconciliation failed, serving stored counter", map[string]interface{}{
			"user_id": userId.String(),
			"error":   err.Error(),
		})
		return usage.TotalTokens, nil
	}

	usage.TotalTokens = total
	usage.TotalsInitialized = true
	if err := uow.UsageRepository().Update(ctx, usage); err != nil {
		return 0, err
	}

	return total, nil
}

func (s *ledgerService) AddCredits(ctx context.Context, userId uuid.UUID, req *dto.AddCreditsRequest) (*dto.AddCreditsResponse, error) {
	if req.Amount < s.creditCfg.MinPurchaseAmount {
		return nil, fmt.Errorf("%w: minimum is %.2f", ErrAmountBelowMinimum, s.creditCfg.MinPurchaseAmount)
	}

	creditsAdded := int(math.Floor(req.Amount))
	tokensAdded := creditsAdded * s.creditCfg.TokensPerCredit

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId}, specification.ForUpdate{})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	newBalance := user.Credits + creditsAdded
	if err := uow.UserRepository().UpdateCredits(ctx, userId, newBalance); err != nil {
		return nil, err
	}

	// The gateway is simulated: purchases settle instantly.
	payment := &entity.Payment{
		UserId:         userId,
		Amount:         req.Amount,
		PaymentMethod:  req.PaymentMethod,
		Status:         entity.PaymentStatusCompleted,
		TokensAdded:    tokensAdded,
		CardLastDigits: cardLastDigits(req.CardData),
	}
	if err := uow.PaymentRepository().Create(ctx, payment); err != nil {
		return nil, err
	}

	notes := fmt.Sprintf("purchase of %d credits", creditsAdded)
	if err := uow.PaymentRepository().CreateTransaction(ctx, &entity.CreditTransaction{
		UserId:          userId,
		TransactionType: entity.CreditTransactionCredit,
		Amount:          creditsAdded,
		RelatedId:       &payment.Id,
		Notes:           &notes,
	}); err != nil {
		return nil, err
	}

	usage, err := uow.UsageRepository().GetOrCreate(ctx, userId)
	if err != nil {
		return nil, err
	}
	usage.AvailableTokens = newBalance * s.creditCfg.TokensPerCredit
	if err := uow.UsageRepository().Update(ctx, usage); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	s.statsCache.Delete(statsCacheKey(userId))

	if s.eventPublisher != nil {
		evt := events.NewEvent(events.TypeCreditsPurchased, map[string]interface{}{
			"user_id":       userId.String(),
			"credits_added": creditsAdded,
			"amount":        req.Amount,
		})
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("LedgerService", "Failed to publish credits purchased event", map[string]interface{}{
				"user_id": userId.String(),
				"error":   err.Error(),
			})
		}
	}

	return &dto.AddCreditsResponse{
		PaymentId:     payment.Id,
		Status:        payment.Status,
		CreditsAdded:  creditsAdded,
		TokensAdded:   tokensAdded,
		CreditBalance: newBalance,
	}, nil
}

func (s *ledgerService) GetUsageStats(ctx context.Context, userId uuid.UUID) (*dto.UsageStatsResponse, error) {
	key := statsCacheKey(userId)
	if cached, found := s.statsCache.Get(key); found {
		if stats, ok := cached.(*dto.UsageStatsResponse); ok {
			return stats, nil
		}
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	totalTokens, err := s.EffectiveTotalTokens(ctx, userId)
	if err != nil {
		return nil, err
	}

	usage, err := uow.UsageRepository().GetOrCreate(ctx, userId)
	if err != nil {
		return nil, err
	}

	payments, err := uow.PaymentRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
		specification.Pagination{Limit: s.creditCfg.UsageHistoryLimit},
	)
	if err != nil {
		return nil, err
	}

	paymentHistory := make([]dto.PaymentDTO, 0, len(payments))
	for _, p := range payments {
		paymentHistory = append(paymentHistory, dto.PaymentDTO{
			Id:             p.Id,
			Amount:         p.Amount,
			PaymentMethod:  p.PaymentMethod,
			Status:         p.Status,
			TokensAdded:    p.TokensAdded,
			CardLastDigits: p.CardLastDigits,
			Description:    p.Description,
			CreatedAt:      p.CreatedAt,
		})
	}

	stats := &dto.UsageStatsResponse{
		AvailableCredits: user.Credits,
		AvailableTokens:  user.Credits * s.creditCfg.TokensPerCredit,
		TotalTokens:      totalTokens,
		TotalDocuments:   usage.TotalDocuments,
		TokensPerCredit:  s.creditCfg.TokensPerCredit,
		Plan:             user.Plan,
		ChatHistory:      usage.ChatHistory,
		DocumentHistory:  usage.DocumentHistory,
		PaymentHistory:   paymentHistory,
	}

	s.statsCache.Set(key, stats, gocache.DefaultExpiration)
	return stats, nil
}

func statsCacheKey(userId uuid.UUID) string {
	return "usage_stats:" + userId.String()
}

func cardLastDigits(card *dto.CardData) *string {
	if card == nil || len(card.Number) < 4 {
		return nil
	}
	digits := card.Number[len(card.Number)-4:]
	return &digits
}
