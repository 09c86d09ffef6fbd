package config

import (
	"testing"
	"time"
)

type sample struct {
	Port     string        `mapstructure:"SAMPLE_PORT"`
	Cooldown time.Duration `mapstructure:"SAMPLE_COOLDOWN"`
	Burst    int           `mapstructure:"SAMPLE_BURST"`
}

func TestLoad_DefaultsAndEnv(t *testing.T) {
	t.Setenv("SAMPLE_COOLDOWN", "3s")

	var cfg sample
	err := Load(&cfg, map[string]any{
		"SAMPLE_PORT":     "8090",
		"SAMPLE_COOLDOWN": "2s",
		"SAMPLE_BURST":    2,
	})
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8090" {
		t.Fatalf("expected default port, got %q", cfg.Port)
	}
	if cfg.Cooldown != 3*time.Second {
		t.Fatalf("expected env override 3s, got %s", cfg.Cooldown)
	}
	if cfg.Burst != 2 {
		t.Fatalf("expected burst 2, got %d", cfg.Burst)
	}
}

func TestPort(t *testing.T) {
	if _, err := Port("PORT", "0"); err == nil {
		t.Fatalf("expected error for port 0")
	}
	if _, err := Port("PORT", "abc"); err == nil {
		t.Fatalf("expected error for non-numeric port")
	}
	if p, err := Port("PORT", "8080"); err != nil || p != "8080" {
		t.Fatalf("unexpected result %q %v", p, err)
	}
}

func TestOneOf(t *testing.T) {
	got, err := OneOf("STORAGE_BACKEND", "Postgres", "postgres", "mongo")
	if err != nil || got != "postgres" {
		t.Fatalf("unexpected result %q %v", got, err)
	}
	if _, err := OneOf("STORAGE_BACKEND", "sqlite", "postgres", "mongo"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestRequiredString(t *testing.T) {
	if _, err := RequiredString("DATABASE_URL", ""); err == nil {
		t.Fatalf("expected error")
	}
}
