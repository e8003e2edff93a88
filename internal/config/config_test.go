package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HTTP_ADDR", "")
	t.Setenv("AUTH_BCRYPT_COST", "")
	t.Setenv("AUTH_SESSION_TTL_SEC", "")
	t.Setenv("AUTH_SESSION_COOKIE", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.HTTP.Addr != ":5000" {
		t.Fatalf("expected default addr :5000, got %q", cfg.HTTP.Addr)
	}
	if cfg.Auth.BcryptCost != 10 {
		t.Fatalf("expected default bcrypt cost 10, got %d", cfg.Auth.BcryptCost)
	}
	if cfg.Auth.SessionTTL != time.Hour {
		t.Fatalf("expected default session TTL 1h, got %s", cfg.Auth.SessionTTL)
	}
	if cfg.Auth.SessionCookie != "session_token" {
		t.Fatalf("expected default cookie name session_token, got %q", cfg.Auth.SessionCookie)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("AUTH_BCRYPT_COST", "12")
	t.Setenv("AUTH_SESSION_TTL_SEC", "120")
	t.Setenv("DATABASE_URL", "postgres://localhost/portal")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.HTTP.Addr != ":9999" {
		t.Fatalf("expected addr :9999, got %q", cfg.HTTP.Addr)
	}
	if cfg.Auth.BcryptCost != 12 {
		t.Fatalf("expected bcrypt cost 12, got %d", cfg.Auth.BcryptCost)
	}
	if cfg.Auth.SessionTTL != 2*time.Minute {
		t.Fatalf("expected session TTL 2m, got %s", cfg.Auth.SessionTTL)
	}
	if cfg.DatabaseURL != "postgres://localhost/portal" {
		t.Fatalf("unexpected database url %q", cfg.DatabaseURL)
	}
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("AUTH_SESSION_TTL_SEC", "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Auth.SessionTTL != time.Hour {
		t.Fatalf("expected fallback TTL 1h, got %s", cfg.Auth.SessionTTL)
	}
}

func TestLoadRejectsBadBcryptCost(t *testing.T) {
	t.Setenv("AUTH_BCRYPT_COST", "99")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error for out-of-range bcrypt cost")
	}
}
