package service

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/pkg/logger"
	"legal-assistant-be/internal/repository/specification"
	"legal-assistant-be/internal/repository/unitofwork"
	"legal-assistant-be/pkg/ai"
	"legal-assistant-be/pkg/events"
	pktNats "legal-assistant-be/pkg/nats"

	"github.com/google/uuid"
)

// Template placeholders look like {{CLIENT_NAME}}.
var templateVarPattern = regexp.MustCompile(`\{\{([A-Z0-9_]+)\}\}`)

type IDocumentService interface {
	CreateTemplate(ctx context.Context, req *dto.CreateTemplateRequest) (*dto.TemplateDetailResponse, error)
	GetTemplates(ctx context.Context, category string) ([]*dto.TemplateResponse, error)
	GetTemplate(ctx context.Context, templateId uuid.UUID) (*dto.TemplateDetailResponse, error)

	GenerateDocument(ctx context.Context, userId uuid.UUID, req *dto.GenerateDocumentRequest) (*dto.GeneratedDocumentResponse, error)
	GetDocuments(ctx context.Context, userId uuid.UUID) ([]*dto.GeneratedDocumentResponse, error)
	GetDocument(ctx context.Context, userId uuid.UUID, documentId uuid.UUID) (*dto.GeneratedDocumentResponse, error)
	DeleteDocument(ctx context.Context, userId uuid.UUID, documentId uuid.UUID) error

	AiAssist(ctx context.Context, userId uuid.UUID, req *dto.AiAssistRequest) (*dto.AiAssistResponse, error)
}

type documentService struct {
	uowFactory     unitofwork.RepositoryFactory
	providers      *ai.Registry
	ledger         ILedgerService
	eventPublisher *pktNats.Publisher
	maxTokens      int
	logger         logger.ILogger
}

func NewDocumentService(
	uowFactory unitofwork.RepositoryFactory,
	providers *ai.Registry,
	ledger ILedgerService,
	eventPublisher *pktNats.Publisher,
	maxTokens int,
	log logger.ILogger,
) IDocumentService {
	return &documentService{
		uowFactory:     uowFactory,
		providers:      providers,
		ledger:         ledger,
		eventPublisher: eventPublisher,
		maxTokens:      maxTokens,
		logger:         log,
	}
}

func (s *documentService) CreateTemplate(ctx context.Context, req *dto.CreateTemplateRequest) (*dto.TemplateDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	template := &entity.DocumentTemplate{
		Name:     req.Name,
		Category: req.Category,
		Content:  req.Content,
	}
	if err := uow.DocumentRepository().CreateTemplate(ctx, template); err != nil {
		return nil, err
	}

	return templateDetail(template), nil
}

func (s *documentService) GetTemplates(ctx context.Context, category string) ([]*dto.TemplateResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	specs := []specification.Specification{
		specification.OrderBy{Field: "name"},
	}
	if category != "" {
		specs = append(specs, specification.Filter("category", category))
	}
	templates, err := uow.DocumentRepository().FindAllTemplates(ctx, specs...)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.TemplateResponse, 0, len(templates))
	for _, t := range templates {
		res = append(res, &dto.TemplateResponse{
			Id:        t.Id,
			Name:      t.Name,
			Category:  t.Category,
			Variables: ExtractVariables(t.Content),
		})
	}
	return res, nil
}

func (s *documentService) GetTemplate(ctx context.Context, templateId uuid.UUID) (*dto.TemplateDetailResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	template, err := uow.DocumentRepository().FindOneTemplate(ctx, specification.ByID{ID: templateId})
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, ErrTemplateNotFound
	}

	return templateDetail(template), nil
}

func (s *documentService) GenerateDocument(ctx context.Context, userId uuid.UUID, req *dto.GenerateDocumentRequest) (*dto.GeneratedDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	template, err := uow.DocumentRepository().FindOneTemplate(ctx, specification.ByID{ID: req.TemplateId})
	if err != nil {
		return nil, err
	}
	if template == nil {
		return nil, ErrTemplateNotFound
	}

	content, err := FillTemplate(template.Content, req.Variables)
	if err != nil {
		return nil, err
	}

	doc := &entity.GeneratedDocument{
		UserId:     userId,
		TemplateId: template.Id,
		Title:      req.Title,
		Content:    content,
		TokensUsed: 0,
	}
	if err := uow.DocumentRepository().CreateDocument(ctx, doc); err != nil {
		return nil, err
	}

	usage, err := uow.UsageRepository().GetOrCreate(ctx, userId)
	if err != nil {
		return nil, err
	}
	usage.TotalDocuments++
	if err := uow.UsageRepository().Update(ctx, usage); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	if s.eventPublisher != nil {
		evt := events.NewEvent(events.TypeDocumentGenerated, map[string]interface{}{
			"user_id":     userId.String(),
			"document_id": doc.Id.String(),
			"template":    template.Name,
		})
		if err := s.eventPublisher.Publish(ctx, evt); err != nil {
			s.logger.Warn("DocumentService", "Failed to publish document generated event", map[string]interface{}{
				"document_id": doc.Id.String(),
				"error":       err.Error(),
			})
		}
	}

	return documentResponse(doc), nil
}

func (s *documentService) GetDocuments(ctx context.Context, userId uuid.UUID) ([]*dto.GeneratedDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	docs, err := uow.DocumentRepository().FindAllDocuments(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "created_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.GeneratedDocumentResponse, 0, len(docs))
	for _, d := range docs {
		res = append(res, documentResponse(d))
	}
	return res, nil
}

func (s *documentService) findOwnedDocument(ctx context.Context, uow unitofwork.UnitOfWork, userId, documentId uuid.UUID) (*entity.GeneratedDocument, error) {
	doc, err := uow.DocumentRepository().FindOneDocument(ctx,
		specification.ByID{ID: documentId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, ErrDocumentNotFound
	}
	return doc, nil
}

func (s *documentService) GetDocument(ctx context.Context, userId uuid.UUID, documentId uuid.UUID) (*dto.GeneratedDocumentResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	doc, err := s.findOwnedDocument(ctx, uow, userId, documentId)
	if err != nil {
		return nil, err
	}
	return documentResponse(doc), nil
}

func (s *documentService) DeleteDocument(ctx context.Context, userId uuid.UUID, documentId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	doc, err := s.findOwnedDocument(ctx, uow, userId, documentId)
	if err != nil {
		return err
	}
	return uow.DocumentRepository().DeleteDocument(ctx, doc.Id)
}

func (s *documentService) AiAssist(ctx context.Context, userId uuid.UUID, req *dto.AiAssistRequest) (*dto.AiAssistResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	doc, err := s.findOwnedDocument(ctx, uow, userId, req.DocumentId)
	if err != nil {
		return nil, err
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if user.Credits <= 0 {
		return nil, ErrInsufficientCredits
	}

	prompt := fmt.Sprintf(
		"You are reviewing a legal document. Apply the following instruction and return only the suggested revision.\n\nInstruction: %s\n\nDocument:\n%s",
		req.Instruction, doc.Content,
	)

	provider := s.providers.Get(req.Provider)
	completion, err := provider.Generate(ctx, prompt, ai.WithMaxTokens(s.maxTokens))
	if err != nil {
		s.logger.Error("DocumentService", "AI assist failed", map[string]interface{}{
			"document_id": doc.Id.String(),
			"error":       err.Error(),
		})
		return nil, ErrProviderUnavailable
	}

	var charge *dto.ChargeResult
	if completion.TokensUsed > 0 {
		docId := doc.Id
		charge, err = s.ledger.Charge(ctx, userId, completion.TokensUsed, ChargeDetail{
			Service:   ServiceDocument,
			RelatedId: &docId,
			Title:     doc.Title,
			Provider:  completion.Provider,
		})
		if err != nil {
			return nil, err
		}
	} else {
		charge = &dto.ChargeResult{CreditsCharged: 0, CreditsRemaining: user.Credits}
	}

	return &dto.AiAssistResponse{
		DocumentId:       doc.Id,
		Suggestion:       completion.Text,
		Provider:         completion.Provider,
		TokensUsed:       completion.TokensUsed,
		CreditsCharged:   charge.CreditsCharged,
		CreditsRemaining: charge.CreditsRemaining,
	}, nil
}

// ExtractVariables lists placeholder names in order of first
// appearance, deduplicated.
func ExtractVariables(content string) []string {
	matches := templateVarPattern.FindAllStringSubmatch(content, -1)
	seen := make(map[string]bool)
	vars := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m[1]] {
			seen[m[1]] = true
			vars = append(vars, m[1])
		}
	}
	return vars
}

// FillTemplate substitutes every placeholder. All variables must be
// provided; missing ones are reported together.
func FillTemplate(content string, values map[string]string) (string, error) {
	var missing []string
	for _, name := range ExtractVariables(content) {
		if _, ok := values[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return "", fmt.Errorf("missing template variables: %s", strings.Join(missing, ", "))
	}

	result := templateVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		name := templateVarPattern.FindStringSubmatch(match)[1]
		return values[name]
	})
	return result, nil
}

func templateDetail(t *entity.DocumentTemplate) *dto.TemplateDetailResponse {
	return &dto.TemplateDetailResponse{
		Id:        t.Id,
		Name:      t.Name,
		Category:  t.Category,
		Content:   t.Content,
		Variables: ExtractVariables(t.Content),
	}
}

func documentResponse(d *entity.GeneratedDocument) *dto.GeneratedDocumentResponse {
	return &dto.GeneratedDocumentResponse{
		Id:         d.Id,
		Title:      d.Title,
		Content:    d.Content,
		TokensUsed: d.TokensUsed,
		CreatedAt:  d.CreatedAt,
	}
}
