package contract

import (
	"context"

	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
)

type DocumentRepository interface {
	CreateTemplate(ctx context.Context, template *entity.DocumentTemplate) error
	FindOneTemplate(ctx context.Context, specs ...specification.Specification) (*entity.DocumentTemplate, error)
	FindAllTemplates(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentTemplate, error)

	CreateDocument(ctx context.Context, doc *entity.GeneratedDocument) error
	FindOneDocument(ctx context.Context, specs ...specification.Specification) (*entity.GeneratedDocument, error)
	FindAllDocuments(ctx context.Context, specs ...specification.Specification) ([]*entity.GeneratedDocument, error)
	DeleteDocument(ctx context.Context, id uuid.UUID) error
}
