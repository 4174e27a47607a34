package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/pkg/logger"
	"legal-assistant-be/internal/repository/specification"
	"legal-assistant-be/internal/repository/unitofwork"
	"legal-assistant-be/pkg/ai"

	"github.com/google/uuid"
	gocache "github.com/patrickmn/go-cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const contractTemplate = "SERVICE AGREEMENT between {{CLIENT_NAME}} and {{PROVIDER_NAME}}.\n" +
	"Value: {{CONTRACT_VALUE}}. Signed by {{CLIENT_NAME}}."

func newTestDocuments(t *testing.T, provider ai.Provider) (IDocumentService, unitofwork.RepositoryFactory) {
	t.Helper()
	factory, _ := newTestFactory(t)
	ledger := NewLedgerService(factory, testCreditConfig(), nil, nil, gocache.New(time.Minute, time.Minute), logger.NewNop())
	registry := ai.NewRegistry(provider)
	svc := NewDocumentService(factory, registry, ledger, nil, 1000, logger.NewNop())
	return svc, factory
}

func seedTemplate(t *testing.T, svc IDocumentService) *dto.TemplateDetailResponse {
	t.Helper()
	template, err := svc.CreateTemplate(context.Background(), &dto.CreateTemplateRequest{
		Name:     "Service Agreement",
		Category: "contracts",
		Content:  contractTemplate,
	})
	require.NoError(t, err)
	return template
}

func TestExtractVariables(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    []string
	}{
		{"none", "plain text", []string{}},
		{"single", "Hello {{NAME}}", []string{"NAME"}},
		{"order of first appearance", "{{B}} then {{A}} then {{B}}", []string{"B", "A"}},
		{"underscores and digits", "{{CLAUSE_2}} {{PARTY_1}}", []string{"CLAUSE_2", "PARTY_1"}},
		{"lowercase is not a placeholder", "{{name}} {{NAME}}", []string{"NAME"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractVariables(tt.content))
		})
	}
}

func TestFillTemplate(t *testing.T) {
	values := map[string]string{
		"CLIENT_NAME":    "Maria Silva",
		"PROVIDER_NAME":  "Acme Ltda",
		"CONTRACT_VALUE": "R$ 10.000",
	}
	filled, err := FillTemplate(contractTemplate, values)
	require.NoError(t, err)
	assert.NotContains(t, filled, "{{")
	assert.Contains(t, filled, "Maria Silva and Acme Ltda")
	assert.Contains(t, filled, "Signed by Maria Silva")
}

func TestFillTemplateReportsAllMissing(t *testing.T) {
	_, err := FillTemplate(contractTemplate, map[string]string{"CLIENT_NAME": "Maria"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROVIDER_NAME")
	assert.Contains(t, err.Error(), "CONTRACT_VALUE")
}

func TestGenerateDocument(t *testing.T) {
	ctx := context.Background()
	svc, factory := newTestDocuments(t, metered("openai", 0))
	user := seedUser(t, factory, 100)
	template := seedTemplate(t, svc)

	doc, err := svc.GenerateDocument(ctx, user.Id, &dto.GenerateDocumentRequest{
		TemplateId: template.Id,
		Title:      "Contrato Maria",
		Variables: map[string]string{
			"CLIENT_NAME":    "Maria Silva",
			"PROVIDER_NAME":  "Acme Ltda",
			"CONTRACT_VALUE": "R$ 10.000",
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Contrato Maria", doc.Title)
	assert.Contains(t, doc.Content, "Maria Silva")
	assert.NotContains(t, doc.Content, "{{")

	uow := factory.NewUnitOfWork(ctx)
	usage, err := uow.UsageRepository().GetOrCreate(ctx, user.Id)
	require.NoError(t, err)
	assert.Equal(t, 1, usage.TotalDocuments)
}

func TestGenerateDocumentMissingVariable(t *testing.T) {
	ctx := context.Background()
	svc, factory := newTestDocuments(t, metered("openai", 0))
	user := seedUser(t, factory, 100)
	template := seedTemplate(t, svc)

	_, err := svc.GenerateDocument(ctx, user.Id, &dto.GenerateDocumentRequest{
		TemplateId: template.Id,
		Title:      "Contrato",
		Variables:  map[string]string{"CLIENT_NAME": "Maria"},
	})
	require.Error(t, err)

	// Failed generation leaves the counter alone.
	uow := factory.NewUnitOfWork(ctx)
	usage, err := uow.UsageRepository().GetOrCreate(ctx, user.Id)
	require.NoError(t, err)
	assert.Zero(t, usage.TotalDocuments)
}

func TestGenerateDocumentUnknownTemplate(t *testing.T) {
	ctx := context.Background()
	svc, factory := newTestDocuments(t, metered("openai", 0))
	user := seedUser(t, factory, 100)

	_, err := svc.GenerateDocument(ctx, user.Id, &dto.GenerateDocumentRequest{
		TemplateId: uuid.New(),
		Title:      "Contrato",
		Variables:  map[string]string{},
	})
	assert.True(t, errors.Is(err, ErrTemplateNotFound))
}

func TestAiAssistChargesForSuggestion(t *testing.T) {
	ctx := context.Background()
	provider := metered("openai", 40)
	svc, factory := newTestDocuments(t, provider)
	user := seedUser(t, factory, 100)
	template := seedTemplate(t, svc)

	doc, err := svc.GenerateDocument(ctx, user.Id, &dto.GenerateDocumentRequest{
		TemplateId: template.Id,
		Title:      "Contrato Maria",
		Variables: map[string]string{
			"CLIENT_NAME":    "Maria Silva",
			"PROVIDER_NAME":  "Acme Ltda",
			"CONTRACT_VALUE": "R$ 10.000",
		},
	})
	require.NoError(t, err)

	resp, err := svc.AiAssist(ctx, user.Id, &dto.AiAssistRequest{
		DocumentId:  doc.Id,
		Instruction: "Add a confidentiality clause",
	})
	require.NoError(t, err)
	assert.Equal(t, 40, resp.TokensUsed)
	assert.Equal(t, 2, resp.CreditsCharged)
	assert.Equal(t, 98, resp.CreditsRemaining)
	assert.Contains(t, provider.lastPrompt, "Add a confidentiality clause")
	assert.Contains(t, provider.lastPrompt, "Maria Silva")

	uow := factory.NewUnitOfWork(ctx)
	txs, err := uow.PaymentRepository().FindAllTransactions(ctx, specification.UserOwnedBy{UserID: user.Id})
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, entity.CreditTransactionDebit, txs[0].TransactionType)
	require.NotNil(t, txs[0].ServiceUsed)
	assert.Equal(t, ServiceDocument, *txs[0].ServiceUsed)
}

func TestAiAssistRequiresCredits(t *testing.T) {
	ctx := context.Background()
	provider := metered("openai", 40)
	svc, factory := newTestDocuments(t, provider)
	user := seedUser(t, factory, 1)
	template := seedTemplate(t, svc)

	doc, err := svc.GenerateDocument(ctx, user.Id, &dto.GenerateDocumentRequest{
		TemplateId: template.Id,
		Title:      "Contrato",
		Variables: map[string]string{
			"CLIENT_NAME":    "Maria Silva",
			"PROVIDER_NAME":  "Acme Ltda",
			"CONTRACT_VALUE": "R$ 10.000",
		},
	})
	require.NoError(t, err)

	// Drain the balance, then ask for help.
	uow := factory.NewUnitOfWork(ctx)
	require.NoError(t, uow.UserRepository().UpdateCredits(ctx, user.Id, 0))

	calls := provider.calls
	_, err = svc.AiAssist(ctx, user.Id, &dto.AiAssistRequest{
		DocumentId:  doc.Id,
		Instruction: "Add a clause",
	})
	assert.True(t, errors.Is(err, ErrInsufficientCredits))
	assert.Equal(t, calls, provider.calls)
}

func TestDocumentOwnership(t *testing.T) {
	ctx := context.Background()
	svc, factory := newTestDocuments(t, metered("openai", 0))
	owner := seedUser(t, factory, 100)
	intruder := seedUser(t, factory, 100)
	template := seedTemplate(t, svc)

	doc, err := svc.GenerateDocument(ctx, owner.Id, &dto.GenerateDocumentRequest{
		TemplateId: template.Id,
		Title:      "Contrato",
		Variables: map[string]string{
			"CLIENT_NAME":    "Maria Silva",
			"PROVIDER_NAME":  "Acme Ltda",
			"CONTRACT_VALUE": "R$ 10.000",
		},
	})
	require.NoError(t, err)

	_, err = svc.GetDocument(ctx, intruder.Id, doc.Id)
	assert.True(t, errors.Is(err, ErrDocumentNotFound))

	err = svc.DeleteDocument(ctx, intruder.Id, doc.Id)
	assert.True(t, errors.Is(err, ErrDocumentNotFound))
}

func TestDeleteDocument(t *testing.T) {
	ctx := context.Background()
	svc, factory := newTestDocuments(t, metered("openai", 0))
	user := seedUser(t, factory, 100)
	template := seedTemplate(t, svc)

	doc, err := svc.GenerateDocument(ctx, user.Id, &dto.GenerateDocumentRequest{
		TemplateId: template.Id,
		Title:      "Contrato",
		Variables: map[string]string{
			"CLIENT_NAME":    "Maria Silva",
			"PROVIDER_NAME":  "Acme Ltda",
			"CONTRACT_VALUE": "R$ 10.000",
		},
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteDocument(ctx, user.Id, doc.Id))

	_, err = svc.GetDocument(ctx, user.Id, doc.Id)
	assert.True(t, errors.Is(err, ErrDocumentNotFound))
}

func TestGetTemplatesListsVariables(t *testing.T) {
	ctx := context.Background()
	svc, factory := newTestDocuments(t, metered("openai", 0))
	_ = factory
	seedTemplate(t, svc)

	templates, err := svc.GetTemplates(ctx, "")
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.Equal(t, []string{"CLIENT_NAME", "PROVIDER_NAME", "CONTRACT_VALUE"}, templates[0].Variables)
}

func TestGetTemplatesFiltersByCategory(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestDocuments(t, metered("openai", 0))
	seedTemplate(t, svc)
	_, err := svc.CreateTemplate(ctx, &dto.CreateTemplateRequest{
		Name:     "Power of Attorney",
		Category: "procurations",
		Content:  "I, {{GRANTOR_NAME}}, appoint {{AGENT_NAME}}.",
	})
	require.NoError(t, err)

	contracts, err := svc.GetTemplates(ctx, "contracts")
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	assert.Equal(t, "Service Agreement", contracts[0].Name)

	all, err := svc.GetTemplates(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
