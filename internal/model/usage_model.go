package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Usage keeps one row per user. The unique index on user_id backs the
// get-or-create upsert in the repository.
type Usage struct {
	Id                uuid.UUID      `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	UserId            uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex"`
	TotalTokens       int            `gorm:"not null;default:0"`
	TotalDocuments    int            `gorm:"not null;default:0"`
	AvailableTokens   int            `gorm:"not null;default:0"`
	TotalsInitialized bool           `gorm:"not null;default:false"`
	ChatHistory       datatypes.JSON `gorm:"type:jsonb;default:'[]'"`
	DocumentHistory   datatypes.JSON `gorm:"type:jsonb;default:'[]'"`
	CreatedAt         time.Time      `gorm:"autoCreateTime"`
	UpdatedAt         time.Time      `gorm:"autoUpdateTime"`
}

func (Usage) TableName() string {
	return "usage_records"
}
