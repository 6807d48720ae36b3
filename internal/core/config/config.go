package config

import (
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	Port          string
	Env           string
	StorageDriver string // "memory" or "postgres"
	DatabaseURL   string
	WebhookURL    string
	WebhookSecret string
}

// LoadConfig reads .env and returns a Config struct.
func LoadConfig() *Config {
	// .env may not exist in production, which is fine.
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file found, relying on system env variables")
	}

	return &Config{
		Port:          getEnv("PORT", "3000"),
		Env:           getEnv("ENV", "development"),
		StorageDriver: getEnv("STORAGE_DRIVER", "memory"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		WebhookURL:    getEnv("WEBHOOK_URL", ""),
		WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
	}
}

// Helper to get env with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
