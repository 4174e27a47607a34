package dto

import (
	"time"

	"github.com/google/uuid"
)

type TemplateResponse struct {
	Id        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Variables []string  `json:"variables"`
}

type TemplateDetailResponse struct {
	Id        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	Variables []string  `json:"variables"`
}

type CreateTemplateRequest struct {
	Name     string `json:"name" validate:"required,min=3"`
	Category string `json:"category" validate:"required"`
	Content  string `json:"content" validate:"required"`
}

type GenerateDocumentRequest struct {
	TemplateId uuid.UUID         `json:"template_id" validate:"required"`
	Title      string            `json:"title" validate:"required,max=200"`
	Variables  map[string]string `json:"variables" validate:"required"`
}

type GeneratedDocumentResponse struct {
	Id         uuid.UUID `json:"id"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	TokensUsed int       `json:"tokens_used"`
	CreatedAt  time.Time `json:"created_at"`
}

type AiAssistRequest struct {
	DocumentId  uuid.UUID `json:"document_id" validate:"required"`
	Instruction string    `json:"instruction" validate:"required"`
	Provider    string    `json:"provider" validate:"omitempty,oneof=openai claude deepseek"`
}

type AiAssistResponse struct {
	DocumentId       uuid.UUID `json:"document_id"`
	Suggestion       string    `json:"suggestion"`
	Provider         string    `json:"provider"`
	TokensUsed       int       `json:"tokens_used"`
	CreditsCharged   int       `json:"credits_charged"`
	CreditsRemaining int       `json:"credits_remaining"`
}
