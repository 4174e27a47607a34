// DTOs for the credit ledger: usage stats, top-ups and charge receipts.
package dto

import (
	"time"

	"github.com/google/uuid"

	"legal-assistant-be/internal/entity"
)

// UsageStatsResponse is returned by GET /api/usage.
type UsageStatsResponse struct {
	AvailableCredits int     `json:"available_credits"`
	AvailableTokens  int     `json:"available_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	TotalDocuments   int     `json:"total_documents"`
	TokensPerCredit  int     `json:"tokens_per_credit"`
	Plan             string  `json:"plan"`

	ChatHistory     []entity.ChatHistoryItem     `json:"chat_history"`
	DocumentHistory []entity.DocumentHistoryItem `json:"document_history"`
	PaymentHistory  []PaymentDTO                 `json:"payment_history"`
}

type PaymentDTO struct {
	Id             uuid.UUID `json:"id"`
	Amount         float64   `json:"amount"`
	PaymentMethod  string    `json:"payment_method"`
	Status         string    `json:"status"`
	TokensAdded    int       `json:"tokens_added"`
	CardLastDigits *string   `json:"card_last_digits,omitempty"`
	Description    *string   `json:"description,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type CardData struct {
	Number string `json:"number" validate:"required,min=12,max=19"`
	Holder string `json:"holder" validate:"required"`
	Expiry string `json:"expiry" validate:"required"`
}

type AddCreditsRequest struct {
	Amount        float64   `json:"amount" validate:"required,gt=0"`
	PaymentMethod string    `json:"payment_method" validate:"required,oneof=credit_card pix"`
	CardData      *CardData `json:"card_data" validate:"omitempty"`
}

// AddCreditsResponse is the receipt for a completed top-up.
type AddCreditsResponse struct {
	PaymentId     uuid.UUID `json:"payment_id"`
	Status        string    `json:"status"`
	CreditsAdded  int       `json:"credits_added"`
	TokensAdded   int       `json:"tokens_added"`
	CreditBalance int       `json:"credit_balance"`
}

// ChargeResult reports the outcome of a single metered deduction.
type ChargeResult struct {
	CreditsCharged   int  `json:"credits_charged"`
	CreditsRemaining int  `json:"credits_remaining"`
	Clamped          bool `json:"clamped"`
}
