package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 10*time.Second {
		t.Errorf("expected default read timeout 10s, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.WriteTimeout != 30*time.Second {
		t.Errorf("expected default write timeout 30s, got %s", cfg.Server.WriteTimeout)
	}
	if cfg.Server.RateLimit != 100 {
		t.Errorf("expected default rate limit 100, got %d", cfg.Server.RateLimit)
	}
	if cfg.Database.URL == "" {
		t.Error("expected a default database URL")
	}
	if !cfg.Database.Migrate {
		t.Error("expected migrations enabled by default")
	}
	if cfg.RabbitMQ.Enabled {
		t.Error("expected RabbitMQ disabled by default")
	}
	if cfg.Redis.Enabled {
		t.Error("expected Redis disabled by default")
	}
	if cfg.Log.Level != "info" {
		t.Errorf("expected default log level info, got %q", cfg.Log.Level)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("API_PORT", "9090")
	t.Setenv("API_RATE_LIMIT", "5")
	t.Setenv("REDIS_ENABLED", "true")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.RateLimit != 5 {
		t.Errorf("expected rate limit 5, got %d", cfg.Server.RateLimit)
	}
	if !cfg.Redis.Enabled {
		t.Error("expected Redis enabled")
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("expected log level debug, got %q", cfg.Log.Level)
	}
}
