package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	// Set required SESSION_SECRET
	os.Setenv("SESSION_SECRET", "test-secret-key")
	defer os.Unsetenv("SESSION_SECRET")

	// Clear any other env vars that might interfere
	envVars := []string{"ENVIRONMENT", "SERVER_ADDR", "SERVER_PORT", "DB_HOST", "DB_PORT",
		"DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "SESSION_TTL", "RESET_TOKEN_TTL",
		"APP_BASE_URL", "ALLOWED_ORIGINS"}
	for _, v := range envVars {
		os.Unsetenv(v)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// Check defaults
	if cfg.Environment != "development" {
		t.Errorf("Environment = %q, want %q", cfg.Environment, "development")
	}
	if cfg.IsProduction() {
		t.Error("IsProduction() = true in development mode")
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 8080)
	}
	if cfg.DBHost != "localhost" {
		t.Errorf("DBHost = %q, want %q", cfg.DBHost, "localhost")
	}
	if cfg.DBSSLMode != "disable" {
		t.Errorf("DBSSLMode = %q, want %q", cfg.DBSSLMode, "disable")
	}
	if cfg.SessionTTL != 7*24*time.Hour {
		t.Errorf("SessionTTL = %v, want %v", cfg.SessionTTL, 7*24*time.Hour)
	}
	if cfg.ResetTokenTTL != 15*time.Minute {
		t.Errorf("ResetTokenTTL = %v, want %v", cfg.ResetTokenTTL, 15*time.Minute)
	}
	if cfg.AppBaseURL != "http://localhost:5173" {
		t.Errorf("AppBaseURL = %q, want %q", cfg.AppBaseURL, "http://localhost:5173")
	}
	if cfg.HasSMTP() {
		t.Error("HasSMTP() = true with no SMTP configured")
	}
	if !cfg.RateLimit.Enabled {
		t.Error("rate limiting should default to enabled")
	}
}

func TestLoad_RequiredSessionSecret(t *testing.T) {
	os.Unsetenv("SESSION_SECRET")

	_, err := Load()
	if err == nil {
		t.Error("Load should fail when SESSION_SECRET is not set")
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Setenv("SESSION_SECRET", "custom-secret")
	os.Setenv("ENVIRONMENT", "production")
	os.Setenv("SERVER_PORT", "9090")
	os.Setenv("SESSION_TTL", "24h")
	os.Setenv("ALLOWED_ORIGINS", "https://elegantsuperstore.com, https://www.elegantsuperstore.com")
	defer func() {
		for _, v := range []string{"SESSION_SECRET", "ENVIRONMENT", "SERVER_PORT", "SESSION_TTL", "ALLOWED_ORIGINS"} {
			os.Unsetenv(v)
		}
	}()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.IsProduction() {
		t.Error("IsProduction() = false, want true")
	}
	if cfg.ServerPort != 9090 {
		t.Errorf("ServerPort = %d, want %d", cfg.ServerPort, 9090)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want %v", cfg.SessionTTL, 24*time.Hour)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[0] != "https://elegantsuperstore.com" {
		t.Errorf("AllowedOrigins = %v", cfg.AllowedOrigins)
	}
}
