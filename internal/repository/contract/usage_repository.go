package contract

import (
	"context"

	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
)

type UsageRepository interface {
	// GetOrCreate returns the single usage record for the user,
	// inserting a zero-valued one when absent. The unique constraint
	// on user_id guards the upsert.
	GetOrCreate(ctx context.Context, userId uuid.UUID) (*entity.Usage, error)
	Update(ctx context.Context, usage *entity.Usage) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Usage, error)

	// SumAssistantTokens aggregates tokens_used over assistant-role
	// messages in sessions owned by the user. Ground truth for the
	// reconciliation fallback.
	SumAssistantTokens(ctx context.Context, userId uuid.UUID) (int, error)
}
