package internal

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Config is the process configuration, loaded from the environment with an
// optional .env overlay for development.
type Config struct {
	Env      string
	LogLevel string
	Port     uint16

	// StoreBackend selects the storage implementation: "postgres" or "memory".
	StoreBackend string
	DatabaseUrl  string

	// NATSUrl enables change-event publishing when set.
	NATSUrl string
	// RedisAddr enables read-cache invalidation when set.
	RedisAddr string
}

// NewConfig loads configuration from the environment.
func NewConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Default().Debug(".env file not found, using environment variables and defaults")
	}

	cfg := &Config{
		Env:          getEnv("ENV", "dev"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		Port:         getEnvInt("PORT", 3000),
		StoreBackend: getEnv("STORE_BACKEND", "memory"),
		DatabaseUrl:  getEnv("DATABASE_URL", ""),
		NATSUrl:      getEnv("NATS_URL", ""),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
	}

	validEnv := cfg.Env == "dev" || cfg.Env == "prod"
	if !validEnv {
		slog.Default().Warn("Invalid environment. Using default: prod", slog.String("env", cfg.Env))
		cfg.Env = "prod"
	}

	validLevel := cfg.LogLevel == "info" || cfg.LogLevel == "debug" || cfg.LogLevel == "warn" || cfg.LogLevel == "error"
	if !validLevel {
		slog.Default().Warn("Invalid log level. Using default: info", slog.String("value", cfg.LogLevel))
		cfg.LogLevel = "info"
	}

	switch cfg.StoreBackend {
	case "memory":
	case "postgres":
		if cfg.DatabaseUrl == "" {
			return nil, fmt.Errorf("DATABASE_URL required when STORE_BACKEND=postgres")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: must be postgres or memory", cfg.StoreBackend)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue uint16) uint16 {
	if value := os.Getenv(key); value != "" {
		var intValue uint16
		if _, err := fmt.Sscanf(value, "%d", &intValue); err == nil {
			return intValue
		}
	}
	return defaultValue
}
