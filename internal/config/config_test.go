package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "secret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":8080" {
		t.Errorf("expected default listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.RegistrationLimit != 10 || cfg.RegistrationWindow != 10*time.Minute {
		t.Errorf("unexpected registration defaults: %d/%s", cfg.RegistrationLimit, cfg.RegistrationWindow)
	}
	if cfg.APILimit != 60 || cfg.APIWindow != time.Minute {
		t.Errorf("unexpected api defaults: %d/%s", cfg.APILimit, cfg.APIWindow)
	}
	if cfg.RedisAddr != "" {
		t.Errorf("expected cache disabled by default, got %q", cfg.RedisAddr)
	}
}

func TestLoadRequiresAdminToken(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error when ADMIN_TOKEN is unset")
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "secret")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("REGISTRATION_RATE_LIMIT", "3")
	t.Setenv("REGISTRATION_RATE_WINDOW", "30s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.ListenAddr != ":9090" {
		t.Errorf("expected override listen addr, got %q", cfg.ListenAddr)
	}
	if cfg.RedisAddr != "localhost:6379" {
		t.Errorf("expected redis addr override, got %q", cfg.RedisAddr)
	}
	if cfg.RegistrationLimit != 3 || cfg.RegistrationWindow != 30*time.Second {
		t.Errorf("unexpected registration overrides: %d/%s", cfg.RegistrationLimit, cfg.RegistrationWindow)
	}
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("ADMIN_TOKEN", "secret")
	t.Setenv("API_RATE_LIMIT", "not-a-number")
	t.Setenv("API_RATE_WINDOW", "soon")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.APILimit != 60 || cfg.APIWindow != time.Minute {
		t.Errorf("malformed values should fall back to defaults: %d/%s", cfg.APILimit, cfg.APIWindow)
	}
}
