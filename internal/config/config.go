package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	SMTP     SMTPConfig
	Keys     APIKeys
	Ai       AIConfig
	Credit   CreditConfig
}

type AppConfig struct {
	Port               string
	BaseURL            string
	ClientURL          string
	Environment        string
	LogFilePath        string
	CorsAllowedOrigins string
	NatsURL            string
	RedisURL           string
	JWTSecret          string
}

type DatabaseConfig struct {
	Connection string
}

type SMTPConfig struct {
	Host       string
	Port       int
	Email      string
	Password   string
	SenderName string
}

type APIKeys struct {
	OpenAI    string
	Anthropic string
	DeepSeek  string
}

type AIConfig struct {
	DefaultProvider string // "openai", "claude" or "deepseek"
	OpenAIModel     string
	ClaudeModel     string
	DeepSeekModel   string
	MaxTokens       int
}

// CreditConfig is the single source of truth for credit accounting.
// TokensPerCredit must not be redefined at call sites; the ledger
// receives this struct at construction time.
type CreditConfig struct {
	TokensPerCredit      int
	MinPurchaseAmount    float64
	DefaultCredits       int
	LowBalanceThreshold  int
	ChargePolicy         string // "reject" or "clamp"
	UsageHistoryLimit    int
	LowBalanceAlertTopic string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, using system environment")
	}

	return &Config{
		App: AppConfig{
			Port:               getEnv("APP_PORT", "3000"),
			BaseURL:            getEnv("APP_BASE_URL", "http://localhost:3000"),
			ClientURL:          getEnv("CLIENT_URL", "http://localhost:5173"),
			Environment:        getEnv("GO_ENV", "development"),
			LogFilePath:        getEnv("LOG_FILE_PATH", "logs/app.log"),
			CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
			NatsURL:            getEnv("NATS_URL", "nats://localhost:4222"),
			RedisURL:           getEnv("REDIS_URL", "redis://localhost:6379"),
			JWTSecret:          getEnv("JWT_SECRET", "default_secret"),
		},
		Database: DatabaseConfig{
			Connection: getEnv("DB_CONNECTION_STRING", ""),
		},
		SMTP: SMTPConfig{
			Host:       getEnv("SMTP_HOST", ""),
			Port:       getEnvAsInt("SMTP_PORT", 587),
			Email:      getEnv("SMTP_EMAIL", ""),
			Password:   getEnv("SMTP_PASSWORD", ""),
			SenderName: getEnv("SMTP_SENDER_NAME", "Advocate Assistant"),
		},
		Keys: APIKeys{
			OpenAI:    getEnv("OPENAI_API_KEY", ""),
			Anthropic: getEnv("ANTHROPIC_API_KEY", ""),
			DeepSeek:  getEnv("DEEPSEEK_API_KEY", ""),
		},
		Ai: AIConfig{
			DefaultProvider: getEnv("AI_PROVIDER", "openai"),
			OpenAIModel:     getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			ClaudeModel:     getEnv("CLAUDE_MODEL", "claude-3-sonnet-20240229"),
			DeepSeekModel:   getEnv("DEEPSEEK_MODEL", "deepseek-chat"),
			MaxTokens:       getEnvAsInt("AI_MAX_TOKENS", 1000),
		},
		Credit: CreditConfig{
			TokensPerCredit:      getEnvAsInt("TOKENS_PER_CREDIT", 20),
			MinPurchaseAmount:    getEnvAsFloat("MIN_PURCHASE_AMOUNT", 10.0),
			DefaultCredits:       getEnvAsInt("DEFAULT_CREDITS", 100),
			LowBalanceThreshold:  getEnvAsInt("LOW_BALANCE_THRESHOLD", 10),
			ChargePolicy:         getEnv("CREDIT_CHARGE_POLICY", "reject"),
			UsageHistoryLimit:    getEnvAsInt("USAGE_HISTORY_LIMIT", 50),
			LowBalanceAlertTopic: getEnv("LOW_BALANCE_ALERT_TOPIC", "LOW_BALANCE_ALERT"),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}
