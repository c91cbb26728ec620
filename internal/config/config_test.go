package config

import (
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/vistalista?sslmode=disable")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Port != "8080" {
			t.Errorf("Port = %q, want 8080", cfg.Port)
		}
		if cfg.LogLevel != "info" {
			t.Errorf("LogLevel = %q, want info", cfg.LogLevel)
		}
		if cfg.DefaultLanguage != "en" {
			t.Errorf("DefaultLanguage = %q, want en", cfg.DefaultLanguage)
		}
		if cfg.SessionTTL != 720*time.Hour {
			t.Errorf("SessionTTL = %v, want 720h", cfg.SessionTTL)
		}
	})

	t.Run("reads overrides", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/vistalista?sslmode=disable")
		t.Setenv("PORT", "9090")
		t.Setenv("BASE_URL", "https://lista.example")
		t.Setenv("DEFAULT_LANGUAGE", "es")
		t.Setenv("SESSION_TTL", "24h")

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.Port != "9090" {
			t.Errorf("Port = %q, want 9090", cfg.Port)
		}
		if cfg.BaseURL != "https://lista.example" {
			t.Errorf("BaseURL = %q, want https://lista.example", cfg.BaseURL)
		}
		if cfg.DefaultLanguage != "es" {
			t.Errorf("DefaultLanguage = %q, want es", cfg.DefaultLanguage)
		}
		if cfg.SessionTTL != 24*time.Hour {
			t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
		}
	})

	t.Run("requires DATABASE_URL", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "")
		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want missing DATABASE_URL error")
		}
	})

	t.Run("rejects a bad session TTL", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/vistalista?sslmode=disable")
		t.Setenv("SESSION_TTL", "soon")
		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want invalid duration error")
		}
	})

	t.Run("rejects an unsupported language", func(t *testing.T) {
		t.Setenv("DATABASE_URL", "postgres://localhost/vistalista?sslmode=disable")
		t.Setenv("DEFAULT_LANGUAGE", "pt")
		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want unsupported language error")
		}
	})
}
