package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	PaymentStatusCompleted = "completed"
	PaymentStatusPending   = "pending"
	PaymentStatusFailed    = "failed"

	PaymentMethodCreditCard = "credit_card"
	PaymentMethodPix        = "pix"
)

type Payment struct {
	Id             uuid.UUID
	UserId         uuid.UUID
	Amount         float64
	PaymentMethod  string
	Status         string
	TokensAdded    int
	CardLastDigits *string
	Description    *string
	CreatedAt      time.Time
	UpdatedAt      *time.Time
}

// CreditTransaction is an append-only audit row for every balance
// mutation, debit or credit.
type CreditTransaction struct {
	Id              uuid.UUID
	UserId          uuid.UUID
	TransactionType string // "debit" or "credit"
	Amount          int
	ServiceUsed     *string
	RelatedId       *uuid.UUID
	Notes           *string
	CreatedAt       time.Time
}

const (
	CreditTransactionDebit  = "debit"
	CreditTransactionCredit = "credit"
)
