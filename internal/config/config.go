package config

import (
	"fmt"
	"os"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	DatabaseURL     string
	Port            string
	LogLevel        string
	BaseURL         string
	DefaultLanguage string
	SessionTTL      time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:            getEnvOrDefault("PORT", "8080"),
		LogLevel:        getEnvOrDefault("LOG_LEVEL", "info"),
		BaseURL:         getEnvOrDefault("BASE_URL", "http://localhost:8080"),
		DefaultLanguage: getEnvOrDefault("DEFAULT_LANGUAGE", "en"),
	}

	// Required environment variables
	if cfg.DatabaseURL = os.Getenv("DATABASE_URL"); cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL environment variable is required")
	}

	ttl := getEnvOrDefault("SESSION_TTL", "720h")
	d, err := time.ParseDuration(ttl)
	if err != nil {
		return nil, fmt.Errorf("SESSION_TTL is not a valid duration: %w", err)
	}
	cfg.SessionTTL = d

	if cfg.DefaultLanguage != "en" && cfg.DefaultLanguage != "es" {
		return nil, fmt.Errorf("DEFAULT_LANGUAGE must be one of: en, es")
	}

	return cfg, nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
