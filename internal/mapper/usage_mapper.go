package mapper

import (
	"encoding/json"
	"time"

	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/model"

	"gorm.io/datatypes"
)

type UsageMapper struct{}

func NewUsageMapper() *UsageMapper {
	return &UsageMapper{}
}

func (m *UsageMapper) ToEntity(u *model.Usage) *entity.Usage {
	if u == nil {
		return nil
	}

	var updatedAt *time.Time
	if !u.UpdatedAt.IsZero() {
		t := u.UpdatedAt
		updatedAt = &t
	}

	var chatHistory []entity.ChatHistoryItem
	if len(u.ChatHistory) > 0 {
		// Malformed history is informational only, never fatal.
		_ = json.Unmarshal(u.ChatHistory, &chatHistory)
	}

	var docHistory []entity.DocumentHistoryItem
	if len(u.DocumentHistory) > 0 {
		_ = json.Unmarshal(u.DocumentHistory, &docHistory)
	}

	return &entity.Usage{
		Id:                u.Id,
		UserId:            u.UserId,
		TotalTokens:       u.TotalTokens,
		TotalDocuments:    u.TotalDocuments,
		AvailableTokens:   u.AvailableTokens,
		TotalsInitialized: u.TotalsInitialized,
		ChatHistory:       chatHistory,
		DocumentHistory:   docHistory,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         updatedAt,
	}
}

func (m *UsageMapper) ToModel(u *entity.Usage) *model.Usage {
	if u == nil {
		return nil
	}

	var updatedAt time.Time
	if u.UpdatedAt != nil {
		updatedAt = *u.UpdatedAt
	}

	chatHistory, _ := json.Marshal(u.ChatHistory)
	if u.ChatHistory == nil {
		chatHistory = []byte("[]")
	}
	docHistory, _ := json.Marshal(u.DocumentHistory)
	if u.DocumentHistory == nil {
		docHistory = []byte("[]")
	}

	return &model.Usage{
		Id:                u.Id,
		UserId:            u.UserId,
		TotalTokens:       u.TotalTokens,
		TotalDocuments:    u.TotalDocuments,
		AvailableTokens:   u.AvailableTokens,
		TotalsInitialized: u.TotalsInitialized,
		ChatHistory:       datatypes.JSON(chatHistory),
		DocumentHistory:   datatypes.JSON(docHistory),
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         updatedAt,
	}
}
