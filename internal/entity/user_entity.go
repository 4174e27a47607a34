package entity

import (
	"time"

	"github.com/google/uuid"
)

const (
	UserRoleUser  = "user"
	UserRoleAdmin = "admin"

	UserStatusActive  = "active"
	UserStatusBlocked = "blocked"

	PlanFree    = "free"
	PlanBasic   = "basic"
	PlanPremium = "premium"
)

type User struct {
	Id           uuid.UUID
	Email        string
	FullName     string
	PasswordHash *string
	OabNumber    *string
	OabVerified  bool
	Role         string
	Status       string
	Plan         string
	Credits      int
	CreatedAt    time.Time
	UpdatedAt    *time.Time
	DeletedAt    *time.Time
	IsDeleted    bool
}
