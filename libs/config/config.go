package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/viper"
)

// New returns a viper instance that resolves keys from the environment and
// falls back to the given defaults. Keys are the environment variable names.
func New(defaults map[string]any) *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	return v
}

// Load decodes every known key into out using its mapstructure tags.
func Load(out any, defaults map[string]any) error {
	v := New(defaults)
	if err := v.Unmarshal(out); err != nil {
		return fmt.Errorf("decode config: %w", err)
	}
	return nil
}

func RequiredString(key, value string) (string, error) {
	if strings.TrimSpace(value) == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return value, nil
}

func Port(key, value string) (string, error) {
	p, err := strconv.Atoi(value)
	if err != nil || p < 1 || p > 65535 {
		return "", fmt.Errorf("%s must be a valid TCP port (got %q)", key, value)
	}
	return value, nil
}

// OneOf reports an error unless value is one of allowed.
func OneOf(key, value string, allowed ...string) (string, error) {
	for _, a := range allowed {
		if strings.EqualFold(value, a) {
			return strings.ToLower(a), nil
		}
	}
	return "", fmt.Errorf("%s must be one of %s (got %q)", key, strings.Join(allowed, ", "), value)
}
