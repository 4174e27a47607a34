package service

import (
	"context"

	"legal-assistant-be/internal/dto"
	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/pkg/logger"
	"legal-assistant-be/internal/repository/specification"
	"legal-assistant-be/internal/repository/unitofwork"
	"legal-assistant-be/pkg/ai"

	"github.com/google/uuid"
)

const (
	defaultSessionTitle = "New conversation"
	sessionTitleMaxLen  = 30

	welcomeMessage = "Hello! I am your legal assistant. I can help you with legal questions, case analysis and document drafting. How can I help you today?"

	legalSystemPrompt = "You are an experienced legal assistant for practicing lawyers. " +
		"Answer precisely, cite the relevant statutes when applicable and flag " +
		"any point that requires human review. Never invent case law."
)

type IChatService interface {
	CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error)
	GetSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error)
	GetHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error)
	SendMessage(ctx context.Context, userId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error)
	RenameSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.RenameSessionRequest) error
	DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error
}

type chatService struct {
	uowFactory unitofwork.RepositoryFactory
	providers  *ai.Registry
	ledger     ILedgerService
	maxTokens  int
	logger     logger.ILogger
}

func NewChatService(
	uowFactory unitofwork.RepositoryFactory,
	providers *ai.Registry,
	ledger ILedgerService,
	maxTokens int,
	log logger.ILogger,
) IChatService {
	return &chatService{
		uowFactory: uowFactory,
		providers:  providers,
		ledger:     ledger,
		maxTokens:  maxTokens,
		logger:     log,
	}
}

func (s *chatService) CreateSession(ctx context.Context, userId uuid.UUID, req *dto.CreateSessionRequest) (*dto.CreateSessionResponse, error) {
	title := defaultSessionTitle
	if req != nil && req.Title != "" {
		title = req.Title
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return nil, err
	}
	defer uow.Rollback()

	session := &entity.ChatSession{
		UserId: userId,
		Title:  title,
	}
	if err := uow.ChatSessionRepository().Create(ctx, session); err != nil {
		return nil, err
	}

	// Every session opens with an assistant greeting. It costs nothing.
	welcome := &entity.ChatMessage{
		ChatSessionId: session.Id,
		Role:          entity.ChatMessageRoleAssistant,
		Content:       welcomeMessage,
		TokensUsed:    0,
	}
	if err := uow.ChatMessageRepository().Create(ctx, welcome); err != nil {
		return nil, err
	}

	if err := uow.Commit(); err != nil {
		return nil, err
	}

	return &dto.CreateSessionResponse{
		Id:    session.Id,
		Title: session.Title,
	}, nil
}

func (s *chatService) GetSessions(ctx context.Context, userId uuid.UUID) ([]*dto.GetAllSessionsResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	sessions, err := uow.ChatSessionRepository().FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.OrderBy{Field: "updated_at", Desc: true},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.GetAllSessionsResponse, 0, len(sessions))
	for _, sess := range sessions {
		res = append(res, &dto.GetAllSessionsResponse{
			Id:        sess.Id,
			Title:     sess.Title,
			CreatedAt: sess.CreatedAt,
			UpdatedAt: sess.UpdatedAt,
		})
	}
	return res, nil
}

func (s *chatService) findOwnedSession(ctx context.Context, uow unitofwork.UnitOfWork, userId, sessionId uuid.UUID) (*entity.ChatSession, error) {
	session, err := uow.ChatSessionRepository().FindOne(ctx,
		specification.ByID{ID: sessionId},
		specification.UserOwnedBy{UserID: userId},
	)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

func (s *chatService) GetHistory(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) ([]*dto.GetChatHistoryResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	if _, err := s.findOwnedSession(ctx, uow, userId, sessionId); err != nil {
		return nil, err
	}

	messages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: sessionId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	res := make([]*dto.GetChatHistoryResponse, 0, len(messages))
	for _, msg := range messages {
		res = append(res, &dto.GetChatHistoryResponse{
			Id:        msg.Id,
			Role:      msg.Role,
			Content:   msg.Content,
			Provider:  msg.Provider,
			CreatedAt: msg.CreatedAt,
		})
	}
	return res, nil
}

func (s *chatService) SendMessage(ctx context.Context, userId uuid.UUID, req *dto.SendChatRequest) (*dto.SendChatResponse, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := s.findOwnedSession(ctx, uow, userId, req.ChatSessionId)
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

	priorMessages, err := uow.ChatMessageRepository().FindAll(ctx,
		specification.ByChatSessionID{ChatSessionID: req.ChatSessionId},
		specification.OrderBy{Field: "created_at"},
	)
	if err != nil {
		return nil, err
	}

	userMsg := &entity.ChatMessage{
		ChatSessionId: session.Id,
		Role:          entity.ChatMessageRoleUser,
		Content:       req.Content,
		TokensUsed:    0,
	}
	if err := uow.ChatMessageRepository().Create(ctx, userMsg); err != nil {
		return nil, err
	}

	// First user message renames a still-untitled session.
	if session.Title == defaultSessionTitle && !hasUserMessage(priorMessages) {
		session.Title = deriveSessionTitle(req.Content)
		if err := uow.ChatSessionRepository().Update(ctx, session); err != nil {
			return nil, err
		}
	}

	history := buildChatHistory(priorMessages, req.Content)

	provider := s.providers.Get(req.Provider)
	completion, err := provider.Chat(ctx, history, ai.WithMaxTokens(s.maxTokens))
	if err != nil {
		s.logger.Error("ChatService", "AI completion failed", map[string]interface{}{
			"session_id": session.Id.String(),
			"error":      err.Error(),
		})
		return nil, ErrProviderUnavailable
	}

	assistantMsg := &entity.ChatMessage{
		ChatSessionId: session.Id,
		Role:          entity.ChatMessageRoleAssistant,
		Content:       completion.Text,
		TokensUsed:    completion.TokensUsed,
		Provider:      completion.Provider,
	}
	if err := uow.ChatMessageRepository().Create(ctx, assistantMsg); err != nil {
		return nil, err
	}

	var charge *dto.ChargeResult
	if completion.TokensUsed > 0 {
		sessionId := session.Id
		charge, err = s.ledger.Charge(ctx, userId, completion.TokensUsed, ChargeDetail{
			Service:   ServiceChat,
			RelatedId: &sessionId,
			Title:     session.Title,
			Provider:  completion.Provider,
		})
		if err != nil {
			return nil, err
		}
	} else {
		charge = &dto.ChargeResult{CreditsCharged: 0, CreditsRemaining: user.Credits}
	}

	return &dto.SendChatResponse{
		ChatSessionId:    session.Id,
		ChatSessionTitle: session.Title,
		Sent: &dto.SendChatResponseMessage{
			Id:        userMsg.Id,
			Role:      userMsg.Role,
			Content:   userMsg.Content,
			CreatedAt: userMsg.CreatedAt,
		},
		Reply: &dto.SendChatResponseMessage{
			Id:        assistantMsg.Id,
			Role:      assistantMsg.Role,
			Content:   assistantMsg.Content,
			CreatedAt: assistantMsg.CreatedAt,
		},
		Provider:         completion.Provider,
		TokensUsed:       completion.TokensUsed,
		CreditsCharged:   charge.CreditsCharged,
		CreditsRemaining: charge.CreditsRemaining,
	}, nil
}

func (s *chatService) RenameSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID, req *dto.RenameSessionRequest) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	session, err := s.findOwnedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return err
	}

	session.Title = req.Title
	return uow.ChatSessionRepository().Update(ctx, session)
}

func (s *chatService) DeleteSession(ctx context.Context, userId uuid.UUID, sessionId uuid.UUID) error {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return err
	}
	defer uow.Rollback()

	session, err := s.findOwnedSession(ctx, uow, userId, sessionId)
	if err != nil {
		return err
	}

	if err := uow.ChatMessageRepository().DeleteBySessionId(ctx, session.Id); err != nil {
		return err
	}
	if err := uow.ChatSessionRepository().Delete(ctx, session.Id); err != nil {
		return err
	}

	return uow.Commit()
}

// deriveSessionTitle truncates the first user message to 30 characters,
// appending an ellipsis when it was longer.
func deriveSessionTitle(content string) string {
	runes := []rune(content)
	if len(runes) <= sessionTitleMaxLen {
		return content
	}
	return string(runes[:sessionTitleMaxLen]) + "..."
}

func hasUserMessage(messages []*entity.ChatMessage) bool {
	for _, msg := range messages {
		if msg.Role == entity.ChatMessageRoleUser {
			return true
		}
	}
	return false
}

func buildChatHistory(prior []*entity.ChatMessage, current string) []ai.Message {
	history := make([]ai.Message, 0, len(prior)+2)
	history = append(history, ai.Message{Role: "system", Content: legalSystemPrompt})
	for _, msg := range prior {
		history = append(history, ai.Message{Role: msg.Role, Content: msg.Content})
	}
	history = append(history, ai.Message{Role: "user", Content: current})
	return history
}
