package implementation

import (
	"context"
	"errors"

	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/mapper"
	"legal-assistant-be/internal/model"
	"legal-assistant-be/internal/repository/contract"
	"legal-assistant-be/internal/repository/specification"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type UsageRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.UsageMapper
}

func NewUsageRepository(db *gorm.DB) contract.UsageRepository {
	return &UsageRepositoryImpl{
		db:     db,
		mapper: mapper.NewUsageMapper(),
	}
}

func (r *UsageRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *UsageRepositoryImpl) GetOrCreate(ctx context.Context, userId uuid.UUID) (*entity.Usage, error) {
	// Insert-if-absent guarded by the unique index on user_id, then
	// read back. Two racing callers both end up with the same row.
	blank := &model.Usage{
		Id:              uuid.New(),
		UserId:          userId,
		ChatHistory:     []byte("[]"),
		DocumentHistory: []byte("[]"),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoNothing: true,
		}).
		Create(blank).Error
	if err != nil {
		return nil, err
	}

	var m model.Usage
	if err := r.db.WithContext(ctx).Where("user_id = ?", userId).First(&m).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *UsageRepositoryImpl) Update(ctx context.Context, usage *entity.Usage) error {
	m := r.mapper.ToModel(usage)
	if err := r.db.WithContext(ctx).Save(m).Error; err != nil {
		return err
	}
	*usage = *r.mapper.ToEntity(m)
	return nil
}

func (r *UsageRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.Usage, error) {
	var m model.Usage
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *UsageRepositoryImpl) SumAssistantTokens(ctx context.Context, userId uuid.UUID) (int, error) {
	var total *int
	err := r.db.WithContext(ctx).
		Model(&model.ChatMessage{}).
		Select("SUM(chat_messages.tokens_used)").
		Joins("JOIN chat_sessions ON chat_messages.chat_session_id = chat_sessions.id").
		Where("chat_sessions.user_id = ?", userId).
		Where("chat_messages.role = ?", entity.ChatMessageRoleAssistant).
		Where("chat_messages.tokens_used > 0").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}
	if total == nil {
		return 0, nil
	}
	return *total, nil
}
