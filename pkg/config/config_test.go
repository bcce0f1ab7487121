package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerPort != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.ServerPort)
	}
	if cfg.TokenTTL != 12*time.Hour {
		t.Errorf("expected 12h token TTL, got %v", cfg.TokenTTL)
	}
	if cfg.AggregateCacheTTL != 30*time.Second {
		t.Errorf("expected 30s aggregate cache TTL, got %v", cfg.AggregateCacheTTL)
	}
	if cfg.RateLimitPerMinute != 120 {
		t.Errorf("expected default rate limit 120, got %d", cfg.RateLimitPerMinute)
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		t.Error("expected default CORS origins")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("OVERDUE_CHECK_INTERVAL_MINUTES", "5")
	t.Setenv("BUSINESS_NAME", "Sunrise Rooms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ServerPort != 9090 {
		t.Errorf("port override not applied: %d", cfg.ServerPort)
	}
	if cfg.OverdueCheckInterval != 5*time.Minute {
		t.Errorf("interval override not applied: %v", cfg.OverdueCheckInterval)
	}
	if cfg.BusinessName != "Sunrise Rooms" {
		t.Errorf("business name override not applied: %q", cfg.BusinessName)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Errorf("CSV origins not parsed: %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadRejectsMalformedNumbers(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-port")
	if _, err := Load(); err == nil {
		t.Error("expected error for malformed SERVER_PORT")
	}
}
