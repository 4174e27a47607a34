package dto

import (
	"time"

	"github.com/google/uuid"
)

type CreateSessionRequest struct {
	Title string `json:"title" validate:"omitempty,max=120"`
}

type CreateSessionResponse struct {
	Id    uuid.UUID `json:"id"`
	Title string    `json:"title"`
}

type GetAllSessionsResponse struct {
	Id        uuid.UUID  `json:"id"`
	Title     string     `json:"title"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at"`
}

type GetChatHistoryResponse struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Provider  string    `json:"provider,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type SendChatRequest struct {
	ChatSessionId uuid.UUID `json:"chat_session_id" validate:"required"`
	Content       string    `json:"content" validate:"required"`
	Provider      string    `json:"provider" validate:"omitempty,oneof=openai claude deepseek"`
}

type SendChatResponseMessage struct {
	Id        uuid.UUID `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type SendChatResponse struct {
	ChatSessionId    uuid.UUID                `json:"chat_session_id"`
	ChatSessionTitle string                   `json:"title"`
	Sent             *SendChatResponseMessage `json:"sent"`
	Reply            *SendChatResponseMessage `json:"reply"`
	Provider         string                   `json:"provider"`
	TokensUsed       int                      `json:"tokens_used"`
	CreditsCharged   int                      `json:"credits_charged"`
	CreditsRemaining int                      `json:"credits_remaining"`
}

type RenameSessionRequest struct {
	Title string `json:"title" validate:"required,max=120"`
}
