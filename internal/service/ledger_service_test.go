package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"legal-assistant-be/internal/config"
	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/pkg/logger"
	"legal-assistant-be/internal/repository/contract"
	"legal-assistant-be/internal/repository/specification"
	"legal-assistant-be/internal/repository/unitofwork"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturingPublisher struct {
	mu       sync.Mutex
	payloads [][]byte
}

func (p *capturingPublisher) Publish(ctx context.Context, payload []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.payloads = append(p.payloads, payload)
	return nil
}

func (p *capturingPublisher) all() [][]byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([][]byte(nil), p.payloads...)
}

func newTestLedger(t *testing.T, cfg config.CreditConfig) (ILedgerService, unitofwork.RepositoryFactory, *capturingPublisher) {
	t.Helper()
	factory, _ := newTestFactory(t)
	alerts := &capturingPublisher{}
	svc := NewLedgerService(factory, cfg, nil, alerts, gocache.New(time.Minute, time.Minute), logger.NewNop())
	return svc, factory, alerts
}

func TestCreditsForTokens(t *testing.T) {
	s := &ledgerService{creditCfg: testCreditConfig()}

	tests := []struct {
		tokens int
		want   int
	}{
		{0, 0},
		{1, 1},
		{19, 1},
		{20, 1},
		{21, 1},
		{39, 1},
		{40, 2},
		{100, 5},
		{1000, 50},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.creditsForTokens(tt.tokens), "tokens=%d", tt.tokens)
	}
}

func TestChargeZeroTokensNeverCharges(t *testing.T) {
	ctx := context.Background()
	svc, factory, _ := newTestLedger(t, testCreditConfig())
	user := seedUser(t, factory, 50)

	result, err := svc.Charge(ctx, user.Id, 0, ChargeDetail{Service: ServiceChat})
	require.NoError(t, err)
	assert.Equal(t, 0, result.CreditsCharged)
	assert.Equal(t, 50, result.CreditsRemaining)

	uow := factory.NewUnitOfWork(ctx)
	txs, err := uow.PaymentRepository().FindAllTransactions(ctx, specification.UserOwnedBy{UserID: user.Id})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestChargeDeductsAndRecords(t *testing.T) {
	ctx := context.Background()
	svc, factory, _ := newTestLedger(t, testCreditConfig())
	user := seedUser(t, factory, 100)

	sessionId := uuid.New()
	result, err := svc.Charge(ctx, user.Id, 100, ChargeDetail{
		Service:   ServiceChat,
		RelatedId: &sessionId,
		Title:     "Rescisão de contrato",
		Provider:  "openai",
	})
	require.NoError(t, err)
	assert.Equal(t, 5, result.CreditsCharged)
	assert.Equal(t, 95, result.CreditsRemaining)
	assert.False(t, result.Clamped)

	uow := factory.NewUnitOfWork(ctx)
	stored, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: user.Id})
	require.NoError(t, err)
	assert.Equal(t, 95, stored.Credits)

	usage, err := uow.UsageRepository().GetOrCreate(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, 100, usage.TotalTokens)
	assert.True(t, usage.TotalsInitialized)
	assert.Equal(t, 95*20, usage.AvailableTokens)
	require.Len(t, usage.ChatHistory, 1)
	assert.Equal(t, "Rescisão de contrato", usage.ChatHistory[0].SessionTitle)
	assert.Equal(t, "openai", usage.ChatHistory[0].Provider)
	assert.Equal(t, 100, usage.ChatHistory[0].TokensUsed)

	txs, err := uow.PaymentRepository().FindAllTransactions(ctx, specification.UserOwnedBy{UserID: user.Id})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, entity.CreditTransactionDebit, txs[0].TransactionType)
	assert.Equal(t, 5, txs[0].Amount)
	require.NotNil(t, txs[0].ServiceUsed)
	assert.Equal(t, ServiceChat, *txs[0].ServiceUsed)
}

func TestChargeInsufficientBalanceRejects(t *testing.T) {
	ctx := context.Background()
	svc, factory, _ := newTestLedger(t, testCreditConfig())
	user := seedUser(t, factory, 2)

	_, err := svc.Charge(ctx, user.Id, 100, ChargeDetail{Service: ServiceChat})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientCredits))

	// Rejected charge leaves the balance untouched.
	uow := factory.NewUnitOfWork(ctx)
	stored, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: user.Id})
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Credits)
}

func TestChargeClampPolicy(t *testing.T) {
	ctx := context.Background()
	cfg := testCreditConfig()
	cfg.ChargePolicy = ChargePolicyClamp
	svc, factory, _ := newTestLedger(t, cfg)
	user := seedUser(t, factory, 2)

	result, err := svc.Charge(ctx, user.Id, 100, ChargeDetail{Service: ServiceChat})
	require.NoError(t, err)
	assert.Equal(t, 2, result.CreditsCharged)
	assert.Equal(t, 0, result.CreditsRemaining)
	assert.True(t, result.Clamped)

	uow := factory.NewUnitOfWork(ctx)
	stored, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: user.Id})
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Credits)
}

func TestChargePublishesLowBalanceAlert(t *testing.T) {
	ctx := context.Background()
	svc, factory, alerts := newTestLedger(t, testCreditConfig())
	user := seedUser(t, factory, 11)

	// Cost is 1 credit; balance drops to 10, which hits the threshold.
	_, err := svc.Charge(ctx, user.Id, 20, ChargeDetail{Service: ServiceChat})
	require.NoError(t, err)

	payloads := alerts.all()
	require.Len(t, payloads, 1)
	var alert dto.LowBalanceAlert
	require.NoError(t, json.Unmarshal(payloads[0], &alert))
	assert.Equal(t, user.Id, alert.UserId)
	assert.Equal(t, 10, alert.Balance)
	assert.Equal(t, 10, alert.Threshold)
}

func TestChargeAboveThresholdStaysSilent(t *testing.T) {
	ctx := context.Background()
	svc, factory, alerts := newTestLedger(t, testCreditConfig())
	user := seedUser(t, factory, 100)

	_, err := svc.Charge(ctx, user.Id, 20, ChargeDetail{Service: ServiceChat})
	require.NoError(t, err)
	assert.Empty(t, alerts.all())
}

func TestChargeHistoryIsBounded(t *testing.T) {
	ctx := context.Background()
	cfg := testCreditConfig()
	cfg.UsageHistoryLimit = 3
	cfg.LowBalanceThreshold = 0
	svc, factory, _ := newTestLedger(t, cfg)
	user := seedUser(t, factory, 100)

	titles := []string{"one", "two", "three", "four", "five"}
	for _, title := range titles {
		_, err := svc.Charge(ctx, user.Id, 20, ChargeDetail{Service: ServiceChat, Title: title})
		require.NoError(t, err)
	}

	uow := factory.NewUnitOfWork(ctx)
	usage, err := uow.UsageRepository().GetOrCreate(ctx, user.Id)
	require.NoError(t, err)
	require.Len(t, usage.ChatHistory, 3)
	// Newest first.
	assert.Equal(t, "five", usage.ChatHistory[0].SessionTitle)
	assert.Equal(t, "four", usage.ChatHistory[1].SessionTitle)
	assert.Equal(t, "three", usage.ChatHistory[2].SessionTitle)
}

func TestEffectiveTotalTokensReconciliation(t *testing.T) {
	ctx := context.Background()
	svc, factory, _ := newTestLedger(t, testCreditConfig())
	user := seedUser(t, factory, 100)

	uow := factory.NewUnitOfWork(ctx)
	session := &entity.ChatSession{UserId: user.Id, Title: "Consulta"}
	require.NoError(t, uow.ChatSessionRepository().Create(ctx, session))

	for _, msg := range []entity.ChatMessage{
		{ChatSessionId: session.Id, Role: entity.ChatMessageRoleAssistant, Content: "a", TokensUsed: 120},
		{ChatSessionId: session.Id, Role: entity.ChatMessageRoleAssistant, Content: "b", TokensUsed: 80},
		{ChatSessionId: session.Id, Role: entity.ChatMessageRoleUser, Content: "c", TokensUsed: 50},
	} {
		m := msg
		require.NoError(t, uow.ChatMessageRepository().Create(ctx, &m))
	}

	// Counter was never initialized, so the first read reconciles from
	// the message rows. User-role tokens do not count.
	total, err := svc.EffectiveTotalTokens(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, 200, total)

	// The write-back makes the reconciliation one-shot: new rows added
	// outside the ledger do not change the answer.
	late := &entity.ChatMessage{ChatSessionId: session.Id, Role: entity.ChatMessageRoleAssistant, Content: "d", TokensUsed: 999}
	require.NoError(t, uow.ChatMessageRepository().Create(ctx, late))

	total, err = svc.EffectiveTotalTokens(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, 200, total)
}

func TestEffectiveTotalTokensEmptyHistory(t *testing.T) {
	ctx := context.Background()
	svc, factory, _ := newTestLedger(t, testCreditConfig())
	user := seedUser(t, factory, 100)

	total, err := svc.EffectiveTotalTokens(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, 0, total)

	uow := factory.NewUnitOfWork(ctx)
	usage, err := uow.UsageRepository().GetOrCreate(ctx, user.Id)
	require.NoError(t, err)
	assert.True(t, usage.TotalsInitialized)
}

func TestAddCreditsBelowMinimum(t *testing.T) {
	ctx := context.Background()
	svc, factory, _ := newTestLedger(t, testCreditConfig())
	user := seedUser(t, factory, 25)

	_, err := svc.AddCredits(ctx, user.Id, &dto.AddCreditsRequest{Amount: 9.99, PaymentMethod: entity.PaymentMethodPix})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAmountBelowMinimum))
}

func TestAddCreditsAtMinimumBoundary(t *testing.T) {
	ctx := context.Background()
	svc, factory, _ := newTestLedger(t, testCreditConfig())
	user := seedUser(t, factory, 0)

	resp, err := svc.AddCredits(ctx, user.Id, &dto.AddCreditsRequest{Amount: 10.0, PaymentMethod: entity.PaymentMethodPix})
	require.NoError(t, err)
	assert.Equal(t, 10, resp.CreditsAdded)
	assert.Equal(t, 200, resp.TokensAdded)
	assert.Equal(t, 10, resp.CreditBalance)
}

func TestAddCreditsSettlesInstantly(t *testing.T) {
	ctx := context.Background()
	svc, factory, _ := newTestLedger(t, testCreditConfig())
	user := seedUser(t, factory, 25)

	resp, err := svc.AddCredits(ctx, user.Id, &dto.AddCreditsRequest{
		Amount:        25.75,
		PaymentMethod: entity.PaymentMethodCreditCard,
		CardData:      &dto.CardData{Number: "4111111111111111", Holder: "Test Advogado", Expiry: "12/29"},
	})
	require.NoError(t, err)
	// Fractional amounts floor to whole credits.
	assert.Equal(t, 25, resp.CreditsAdded)
	assert.Equal(t, 500, resp.TokensAdded)
	assert.Equal(t, 50, resp.CreditBalance)
	assert.Equal(t, entity.PaymentStatusCompleted, resp.Status)

	uow := factory.NewUnitOfWork(ctx)
	payments, err := uow.PaymentRepository().FindAll(ctx, specification.UserOwnedBy{UserID: user.Id})
	require.NoError(t, err)
	require.Len(t, payments, 1)
	assert.Equal(t, entity.PaymentStatusCompleted, payments[0].Status)
	require.NotNil(t, payments[0].CardLastDigits)
	assert.Equal(t, "1111", *payments[0].CardLastDigits)

	txs, err := uow.PaymentRepository().FindAllTransactions(ctx, specification.UserOwnedBy{UserID: user.Id})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, entity.CreditTransactionCredit, txs[0].TransactionType)
	assert.Equal(t, 25, txs[0].Amount)
	require.NotNil(t, txs[0].RelatedId)
	assert.Equal(t, payments[0].Id, *txs[0].RelatedId)
}

func TestGetUsageStatsInvalidation(t *testing.T) {
	ctx := context.Background()
	svc, factory, _ := newTestLedger(t, testCreditConfig())
	user := seedUser(t, factory, 100)

	stats, err := svc.GetUsageStats(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, 100, stats.AvailableCredits)
	assert.Equal(t, 2000, stats.AvailableTokens)
	assert.Equal(t, 20, stats.TokensPerCredit)
	assert.Equal(t, entity.PlanFree, stats.Plan)

	// A charge invalidates the cached snapshot.
	_, err = svc.Charge(ctx, user.Id, 40, ChargeDetail{Service: ServiceChat, Title: "Consulta"})
	require.NoError(t, err)

	stats, err = svc.GetUsageStats(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, 98, stats.AvailableCredits)
	assert.Equal(t, 40, stats.TotalTokens)
	require.Len(t, stats.ChatHistory, 1)
}

func TestChargeConcurrentAccounting(t *testing.T) {
	ctx := context.Background()
	svc, factory, _ := newTestLedger(t, testCreditConfig())
	user := seedUser(t, factory, 100)

	const workers = 40
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Charge(ctx, user.Id, 20, ChargeDetail{Service: ServiceChat, Title: "parallel", Provider: "openai"})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	uow := factory.NewUnitOfWork(ctx)
	stored, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: user.Id})
	require.NoError(t, err)
	assert.Equal(t, 100-workers, stored.Credits)

	usage, err := uow.UsageRepository().GetOrCreate(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, workers*20, usage.TotalTokens)

	txs, err := uow.PaymentRepository().FindAllTransactions(ctx, specification.UserOwnedBy{UserID: user.Id})
	require.NoError(t, err)
	assert.Len(t, txs, workers)
}

type failingSumUsageRepo struct {
	contract.UsageRepository
}

func (r failingSumUsageRepo) SumAssistantTokens(ctx context.Context, userId uuid.UUID) (int, error) {
	return 0, errors.New("aggregate timeout")
}

type failingSumUnitOfWork struct {
	unitofwork.UnitOfWork
}

func (u failingSumUnitOfWork) UsageRepository() contract.UsageRepository {
	return failingSumUsageRepo{u.UnitOfWork.UsageRepository()}
}

type failingSumFactory struct {
	inner unitofwork.RepositoryFactory
}

func (f failingSumFactory) NewUnitOfWork(ctx context.Context) unitofwork.UnitOfWork {
	return failingSumUnitOfWork{f.inner.NewUnitOfWork(ctx)}
}

func TestEffectiveTotalTokensDegradedRead(t *testing.T) {
	ctx := context.Background()
	factory, _ := newTestFactory(t)
	user := seedUser(t, factory, 100)

	// Stored counter exists but was never reconciled.
	uow := factory.NewUnitOfWork(ctx)
	usage, err := uow.UsageRepository().GetOrCreate(ctx, user.Id)
	require.NoError(t, err)
	usage.TotalTokens = 77
	usage.TotalsInitialized = false
	require.NoError(t, uow.UsageRepository().Update(ctx, usage))

	svc := NewLedgerService(failingSumFactory{inner: factory}, testCreditConfig(), nil, &capturingPublisher{}, gocache.New(time.Minute, time.Minute), logger.NewNop())

	total, err := svc.EffectiveTotalTokens(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, 77, total)

	// Flag stays unset so a later call retries the scan.
	after, err := uow.UsageRepository().GetOrCreate(ctx, user.Id)
	require.NoError(t, err)
	assert.False(t, after.TotalsInitialized)
	assert.Equal(t, 77, after.TotalTokens)
}

func TestChargeClampAtZeroBalance(t *testing.T) {
	ctx := context.Background()
	cfg := testCreditConfig()
	cfg.ChargePolicy = ChargePolicyClamp
	svc, factory, _ := newTestLedger(t, cfg)
	user := seedUser(t, factory, 0)

	result, err := svc.Charge(ctx, user.Id, 100, ChargeDetail{Service: ServiceChat})
	require.NoError(t, err)
	assert.Equal(t, 0, result.CreditsCharged)
	assert.Equal(t, 0, result.CreditsRemaining)
	assert.True(t, result.Clamped)

	uow := factory.NewUnitOfWork(ctx)
	stored, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: user.Id})
	require.NoError(t, err)
	assert.Equal(t, 0, stored.Credits)

	// Nothing moved, so the audit trail stays empty.
	txs, err := uow.PaymentRepository().FindAllTransactions(ctx, specification.UserOwnedBy{UserID: user.Id})
	require.NoError(t, err)
	assert.Empty(t, txs)
}

func TestGetUsageStatsCapsPaymentHistory(t *testing.T) {
	ctx := context.Background()
	cfg := testCreditConfig()
	cfg.UsageHistoryLimit = 2
	svc, factory, _ := newTestLedger(t, cfg)
	user := seedUser(t, factory, 0)

	for i := 0; i < 3; i++ {
		_, err := svc.AddCredits(ctx, user.Id, &dto.AddCreditsRequest{
			Amount:        10,
			PaymentMethod: entity.PaymentMethodPix,
		})
		require.NoError(t, err)
	}

	stats, err := svc.GetUsageStats(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, 30, stats.AvailableCredits)
	assert.Len(t, stats.PaymentHistory, 2)
}
