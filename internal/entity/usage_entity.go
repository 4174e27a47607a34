package entity

import (
	"time"

	"github.com/google/uuid"
)

// ChatHistoryItem is a bounded, informational snapshot kept on the
// usage record. Message rows remain the ground truth.
type ChatHistoryItem struct {
	Id           uuid.UUID `json:"id"`
	SessionTitle string    `json:"session_title"`
	Provider     string    `json:"provider"`
	TokensUsed   int       `json:"tokens_used"`
	CreatedAt    time.Time `json:"created_at"`
}

type DocumentHistoryItem struct {
	Id           uuid.UUID `json:"id"`
	DocumentType string    `json:"document_type"`
	TokensUsed   int       `json:"tokens_used"`
	CreatedAt    time.Time `json:"created_at"`
}

// Usage is the per-user cached aggregate of token and document
// consumption. At most one record exists per user.
//
// TotalsInitialized distinguishes "counters never populated" from a
// genuine zero so the reconciliation fallback only runs once.
type Usage struct {
	Id                uuid.UUID
	UserId            uuid.UUID
	TotalTokens       int
	TotalDocuments    int
	AvailableTokens   int
	TotalsInitialized bool
	ChatHistory       []ChatHistoryItem
	DocumentHistory   []DocumentHistoryItem
	CreatedAt         time.Time
	UpdatedAt         *time.Time
}
