package entity

import (
	"time"

	"github.com/google/uuid"
)

type DocumentTemplate struct {
	Id        uuid.UUID
	Name      string
	Category  string
	Content   string // body with {{VARIABLE}} placeholders
	CreatedAt time.Time
	UpdatedAt *time.Time
}

type GeneratedDocument struct {
	Id         uuid.UUID
	UserId     uuid.UUID
	TemplateId uuid.UUID
	Title      string
	Content    string
	TokensUsed int
	CreatedAt  time.Time
	UpdatedAt  *time.Time
	DeletedAt  *time.Time
	IsDeleted  bool
}
