package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/availability")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Port != "8086" || cfg.StorageBackend != BackendPostgres {
		t.Fatalf("unexpected defaults %+v", cfg)
	}
	if cfg.FetchCooldown != 2*time.Second {
		t.Fatalf("expected 2s cooldown, got %s", cfg.FetchCooldown)
	}
	if cfg.Otel.ServiceName != "availability-service" {
		t.Fatalf("expected service name from squashed otel config, got %q", cfg.Otel.ServiceName)
	}
	rules, err := cfg.Rules()
	if err != nil || rules.Open() != "08:00" || rules.Close() != "19:00" {
		t.Fatalf("unexpected rules %v %v", rules, err)
	}
	coord := cfg.Coordinator()
	if coord.SaveBurst != 3 || coord.Location != time.UTC {
		t.Fatalf("unexpected coordinator config %+v", coord)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "Mongo")
	t.Setenv("MONGO_URL", "mongodb://localhost:27017")
	t.Setenv("FETCH_COOLDOWN", "5s")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092, kafka-2:9092")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.StorageBackend != BackendMongo {
		t.Fatalf("expected mongo backend, got %q", cfg.StorageBackend)
	}
	if cfg.FetchCooldown != 5*time.Second {
		t.Fatalf("expected 5s cooldown, got %s", cfg.FetchCooldown)
	}
	if b := cfg.Brokers(); len(b) != 2 || b[1] != "kafka-2:9092" {
		t.Fatalf("unexpected brokers %v", b)
	}
}

func TestLoad_Rejects(t *testing.T) {
	cases := map[string]map[string]string{
		"missing database url": {"DATABASE_URL": ""},
		"bad port":             {"DATABASE_URL": "postgres://x", "PORT": "99999"},
		"unknown backend":      {"STORAGE_BACKEND": "sqlite"},
		"inverted hours":       {"DATABASE_URL": "postgres://x", "OPERATIONAL_OPEN": "19:00", "OPERATIONAL_CLOSE": "08:00"},
		"bad timezone":         {"DATABASE_URL": "postgres://x", "PROVIDER_TIMEZONE": "Mars/Olympus"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			if _, err := Load(); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
