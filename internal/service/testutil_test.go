package service

import (
	"context"
	"testing"

	"legal-assistant-be/internal/config"
	"legal-assistant-be/internal/entity"
	"legal-assistant-be/internal/repository/unitofwork"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// The production schema leans on Postgres defaults (gen_random_uuid,
// jsonb). SQLite has neither, so tests create the tables directly.
var testSchema = []string{
	`CREATE TABLE users (
		id TEXT PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		full_name TEXT NOT NULL,
		password_hash TEXT,
		oab_number TEXT,
		oab_verified BOOLEAN NOT NULL DEFAULT 0,
		role TEXT NOT NULL DEFAULT 'user',
		status TEXT NOT NULL DEFAULT 'active',
		plan TEXT NOT NULL DEFAULT 'free',
		credits INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE usage_records (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL UNIQUE,
		total_tokens INTEGER NOT NULL DEFAULT 0,
		total_documents INTEGER NOT NULL DEFAULT 0,
		available_tokens INTEGER NOT NULL DEFAULT 0,
		totals_initialized BOOLEAN NOT NULL DEFAULT 0,
		chat_history TEXT NOT NULL DEFAULT '[]',
		document_history TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE payments (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		amount REAL NOT NULL,
		payment_method TEXT NOT NULL,
		status TEXT NOT NULL,
		tokens_added INTEGER NOT NULL DEFAULT 0,
		card_last_digits TEXT,
		description TEXT,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE credit_transactions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		transaction_type TEXT NOT NULL,
		amount INTEGER NOT NULL,
		service_used TEXT,
		related_id TEXT,
		notes TEXT,
		created_at DATETIME
	)`,
	`CREATE TABLE chat_sessions (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		title TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE chat_messages (
		id TEXT PRIMARY KEY,
		chat_session_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL,
		tokens_used INTEGER NOT NULL DEFAULT 0,
		provider TEXT,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE document_templates (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		category TEXT NOT NULL,
		content TEXT NOT NULL,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE generated_documents (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		template_id TEXT NOT NULL,
		title TEXT NOT NULL,
		content TEXT NOT NULL,
		tokens_used INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME,
		updated_at DATETIME,
		deleted_at DATETIME
	)`,
	`CREATE TABLE notification_types (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		code TEXT NOT NULL UNIQUE,
		display_name TEXT NOT NULL,
		template TEXT NOT NULL,
		channels TEXT,
		is_active BOOLEAN NOT NULL DEFAULT 1,
		created_at DATETIME,
		updated_at DATETIME
	)`,
	`CREATE TABLE notifications (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		type_code TEXT NOT NULL,
		title TEXT NOT NULL,
		message TEXT NOT NULL,
		metadata TEXT,
		is_read BOOLEAN NOT NULL DEFAULT 0,
		read_at DATETIME,
		created_at DATETIME
	)`,
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	// One connection so every session sees the same in-memory database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	for _, stmt := range testSchema {
		require.NoError(t, db.Exec(stmt).Error)
	}
	return db
}

func newTestFactory(t *testing.T) (unitofwork.RepositoryFactory, *gorm.DB) {
	t.Helper()
	db := newTestDB(t)
	return unitofwork.NewRepositoryFactory(db), db
}

func testCreditConfig() config.CreditConfig {
	return config.CreditConfig{
		TokensPerCredit:      20,
		MinPurchaseAmount:    10.0,
		DefaultCredits:       100,
		LowBalanceThreshold:  10,
		ChargePolicy:         ChargePolicyReject,
		UsageHistoryLimit:    50,
		LowBalanceAlertTopic: "LOW_BALANCE_ALERT",
	}
}

func seedUser(t *testing.T, factory unitofwork.RepositoryFactory, credits int) *entity.User {
	t.Helper()

	user := &entity.User{
		Id:       uuid.New(),
		Email:    uuid.New().String() + "@example.com",
		FullName: "Test Advogado",
		Role:     entity.UserRoleUser,
		Status:   entity.UserStatusActive,
		Plan:     entity.PlanFree,
		Credits:  credits,
	}
	uow := factory.NewUnitOfWork(context.Background())
	require.NoError(t, uow.UserRepository().Create(context.Background(), user))
	return user
}
