package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Conflict resolution strategy names accepted in CONFLICT_STRATEGY
const (
	StrategyLastWriteWins = "last-write-wins"
	StrategyServerWins    = "server-wins"
	StrategyManual        = "manual"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string

	// Database: sqlite file path or postgres URL
	DatabaseURL string

	// Remote backend
	RemoteURL      string
	RemoteAPIToken string

	// JWT (local API surface)
	JWTSecret string

	// Sync engine
	SyncInterval     time.Duration
	SyncDebounce     time.Duration
	SyncBatchSize    int
	SyncMaxRetries   int
	SyncRetryDelay   time.Duration
	SyncRetention    time.Duration
	ConflictStrategy string

	// Background Workers
	WorkerCount int

	// Sentry
	SentryDSN string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:             getEnv("PORT", "8080"),
		Environment:      getEnv("ENVIRONMENT", "development"),
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		RemoteURL:        getEnv("REMOTE_URL", ""),
		RemoteAPIToken:   getEnv("REMOTE_API_TOKEN", ""),
		JWTSecret:        getEnv("JWT_SECRET", ""),
		SyncInterval:     time.Duration(getEnvAsInt("SYNC_INTERVAL_SECONDS", 300)) * time.Second,
		SyncDebounce:     time.Duration(getEnvAsInt("SYNC_DEBOUNCE_SECONDS", 5)) * time.Second,
		SyncBatchSize:    getEnvAsInt("SYNC_BATCH_SIZE", 100),
		SyncMaxRetries:   getEnvAsInt("SYNC_MAX_RETRIES", 3),
		SyncRetryDelay:   time.Duration(getEnvAsInt("SYNC_RETRY_DELAY_SECONDS", 30)) * time.Second,
		SyncRetention:    time.Duration(getEnvAsInt("SYNC_RETENTION_DAYS", 7)) * 24 * time.Hour,
		ConflictStrategy: getEnv("CONFLICT_STRATEGY", StrategyLastWriteWins),
		WorkerCount:      getEnvAsInt("WORKER_COUNT", 2),
		SentryDSN:        getEnv("SENTRY_DSN", ""),
	}

	// Validate required configuration
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	switch cfg.ConflictStrategy {
	case StrategyLastWriteWins, StrategyServerWins, StrategyManual:
	default:
		return nil, fmt.Errorf("invalid CONFLICT_STRATEGY: %s", cfg.ConflictStrategy)
	}

	if cfg.JWTSecret == "" && cfg.Environment == "production" {
		return nil, fmt.Errorf("JWT_SECRET is required in production")
	}

	// Set default JWT secret for development
	if cfg.JWTSecret == "" {
		cfg.JWTSecret = "dev-secret-change-in-production"
	}

	return cfg, nil
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// getEnvAsInt reads an environment variable as integer
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
