package contract

import (
	"context"

	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/repository/specification"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Payment, error)

	CreateTransaction(ctx context.Context, tx *entity.CreditTransaction) error
	FindAllTransactions(ctx context.Context, specs ...specification.Specification) ([]*entity.CreditTransaction, error)
}
