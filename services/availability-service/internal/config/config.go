// Package config loads availability-service settings from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/time/rate"

	libconfig "github.com/md-rashed-zaman/sitteravail/libs/config"
	"github.com/md-rashed-zaman/sitteravail/libs/kafkax"
	otelx "github.com/md-rashed-zaman/sitteravail/libs/otel"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/availability"
	"github.com/md-rashed-zaman/sitteravail/services/availability-service/internal/schedule"
)

const (
	BackendPostgres = "postgres"
	BackendMongo    = "mongo"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	StorageBackend string `mapstructure:"STORAGE_BACKEND"`
	DatabaseURL    string `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32  `mapstructure:"DB_MAX_CONNS"`
	MongoURL       string `mapstructure:"MONGO_URL"`
	MongoDatabase  string `mapstructure:"MONGO_DATABASE"`

	RedisAddr       string `mapstructure:"REDIS_ADDR"`
	RedisPassword   string `mapstructure:"REDIS_PASSWORD"`
	RedisDB         int    `mapstructure:"REDIS_DB"`
	RateLimitPerMin int    `mapstructure:"RATE_LIMIT_PER_MIN"`

	KafkaBrokers       string        `mapstructure:"KAFKA_BROKERS"`
	OutboxPollInterval time.Duration `mapstructure:"OUTBOX_POLL_INTERVAL"`
	OutboxBatchSize    int           `mapstructure:"OUTBOX_BATCH_SIZE"`

	OperationalOpen  string        `mapstructure:"OPERATIONAL_OPEN"`
	OperationalClose string        `mapstructure:"OPERATIONAL_CLOSE"`
	FetchCooldown    time.Duration `mapstructure:"FETCH_COOLDOWN"`
	SaveRatePerSec   float64       `mapstructure:"SAVE_RATE_PER_SEC"`
	SaveBurst        int           `mapstructure:"SAVE_BURST"`
	ProviderTimezone string        `mapstructure:"PROVIDER_TIMEZONE"`

	Otel otelx.Config `mapstructure:",squash"`
}

func defaults() map[string]any {
	d := map[string]any{
		"SERVICE_NAME":         "availability-service",
		"PORT":                 "8086",
		"LOG_LEVEL":            "info",
		"STORAGE_BACKEND":      BackendPostgres,
		"DATABASE_URL":         "",
		"DB_MAX_CONNS":         10,
		"MONGO_URL":            "",
		"MONGO_DATABASE":       "availability",
		"REDIS_ADDR":           "",
		"REDIS_PASSWORD":       "",
		"REDIS_DB":             0,
		"RATE_LIMIT_PER_MIN":   120,
		"KAFKA_BROKERS":        "",
		"OUTBOX_POLL_INTERVAL": "1s",
		"OUTBOX_BATCH_SIZE":    50,
		"OPERATIONAL_OPEN":     "08:00",
		"OPERATIONAL_CLOSE":    "19:00",
		"FETCH_COOLDOWN":       "2s",
		"SAVE_RATE_PER_SEC":    1.0,
		"SAVE_BURST":           3,
		"PROVIDER_TIMEZONE":    "UTC",
	}
	for k, v := range otelx.Defaults() {
		d[k] = v
	}
	return d
}

// Load reads the environment, applies defaults and validates the result.
func Load() (Config, error) {
	var cfg Config
	if err := libconfig.Load(&cfg, defaults()); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var err error
	if c.Port, err = libconfig.Port("PORT", c.Port); err != nil {
		return err
	}
	if c.StorageBackend, err = libconfig.OneOf("STORAGE_BACKEND", c.StorageBackend, BackendPostgres, BackendMongo); err != nil {
		return err
	}
	switch c.StorageBackend {
	case BackendPostgres:
		if _, err = libconfig.RequiredString("DATABASE_URL", c.DatabaseURL); err != nil {
			return err
		}
	case BackendMongo:
		if _, err = libconfig.RequiredString("MONGO_URL", c.MongoURL); err != nil {
			return err
		}
	}
	if _, err = c.Rules(); err != nil {
		return err
	}
	if _, err = c.Location(); err != nil {
		return err
	}
	if c.SaveRatePerSec <= 0 || c.SaveBurst <= 0 {
		return fmt.Errorf("SAVE_RATE_PER_SEC and SAVE_BURST must be positive")
	}
	if c.RateLimitPerMin <= 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MIN must be positive (got %d)", c.RateLimitPerMin)
	}
	return nil
}

// Rules builds the operational window.
func (c Config) Rules() (schedule.Rules, error) {
	r, err := schedule.NewRules(c.OperationalOpen, c.OperationalClose)
	if err != nil {
		return schedule.Rules{}, fmt.Errorf("OPERATIONAL_OPEN/OPERATIONAL_CLOSE: %w", err)
	}
	return r, nil
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(strings.TrimSpace(c.ProviderTimezone))
	if err != nil {
		return nil, fmt.Errorf("PROVIDER_TIMEZONE: %w", err)
	}
	return loc, nil
}

// Coordinator maps the settings onto availability.Config.
func (c Config) Coordinator() availability.Config {
	loc, err := c.Location()
	if err != nil {
		loc = time.UTC
	}
	return availability.Config{
		Cooldown:  c.FetchCooldown,
		SaveRate:  rate.Limit(c.SaveRatePerSec),
		SaveBurst: c.SaveBurst,
		Location:  loc,
	}
}

func (c Config) Brokers() []string {
	return kafkax.SplitBrokers(c.KafkaBrokers)
}
