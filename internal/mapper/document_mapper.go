package mapper

import (
	"time"

	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/model"

	"gorm.io/gorm"
)

type DocumentMapper struct{}

func NewDocumentMapper() *DocumentMapper {
	return &DocumentMapper{}
}

func (m *DocumentMapper) TemplateToEntity(t *model.DocumentTemplate) *entity.DocumentTemplate {
	if t == nil {
		return nil
	}

	var updatedAt *time.Time
	if !t.UpdatedAt.IsZero() {
		u := t.UpdatedAt
		updatedAt = &u
	}

	return &entity.DocumentTemplate{
		Id:        t.Id,
		Name:      t.Name,
		Category:  t.Category,
		Content:   t.Content,
		CreatedAt: t.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *DocumentMapper) TemplateToModel(t *entity.DocumentTemplate) *model.DocumentTemplate {
	if t == nil {
		return nil
	}

	var updatedAt time.Time
	if t.UpdatedAt != nil {
		updatedAt = *t.UpdatedAt
	}

	return &model.DocumentTemplate{
		Id:        t.Id,
		Name:      t.Name,
		Category:  t.Category,
		Content:   t.Content,
		CreatedAt: t.CreatedAt,
		UpdatedAt: updatedAt,
	}
}

func (m *DocumentMapper) TemplatesToEntities(templates []*model.DocumentTemplate) []*entity.DocumentTemplate {
	out := make([]*entity.DocumentTemplate, 0, len(templates))
	for _, t := range templates {
		out = append(out, m.TemplateToEntity(t))
	}
	return out
}

func (m *DocumentMapper) DocumentToEntity(d *model.GeneratedDocument) *entity.GeneratedDocument {
	if d == nil {
		return nil
	}

	var deletedAt *time.Time
	if d.DeletedAt.Valid {
		t := d.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !d.UpdatedAt.IsZero() {
		t := d.UpdatedAt
		updatedAt = &t
	}

	return &entity.GeneratedDocument{
		Id:         d.Id,
		UserId:     d.UserId,
		TemplateId: d.TemplateId,
		Title:      d.Title,
		Content:    d.Content,
		TokensUsed: d.TokensUsed,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  deletedAt,
		IsDeleted:  d.DeletedAt.Valid,
	}
}

func (m *DocumentMapper) DocumentToModel(d *entity.GeneratedDocument) *model.GeneratedDocument {
	if d == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if d.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *d.DeletedAt, Valid: true}
	} else if d.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if d.UpdatedAt != nil {
		updatedAt = *d.UpdatedAt
	}

	return &model.GeneratedDocument{
		Id:         d.Id,
		UserId:     d.UserId,
		TemplateId: d.TemplateId,
		Title:      d.Title,
		Content:    d.Content,
		TokensUsed: d.TokensUsed,
		CreatedAt:  d.CreatedAt,
		UpdatedAt:  updatedAt,
		DeletedAt:  deletedAt,
	}
}

func (m *DocumentMapper) DocumentsToEntities(docs []*model.GeneratedDocument) []*entity.GeneratedDocument {
	out := make([]*entity.GeneratedDocument, 0, len(docs))
	for _, d := range docs {
		out = append(out, m.DocumentToEntity(d))
	}
	return out
}
