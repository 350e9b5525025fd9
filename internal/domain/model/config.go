package model

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ConfigKey names a queue-wide integer setting stored alongside the jobs.
type ConfigKey string

const (
	// ConfigMaxRetries is the default retry budget applied to new jobs.
	ConfigMaxRetries ConfigKey = "max_retries"
	// ConfigBackoffBase is the exponent base for retry delays, in seconds.
	ConfigBackoffBase ConfigKey = "backoff_base"
)

// Default values seeded by the migrations.
const (
	DefaultMaxRetries  = 3
	DefaultBackoffBase = 2
)

var (
	// ErrInvalidConfigKey is returned for unknown configuration keys.
	ErrInvalidConfigKey = errors.New("invalid config key")
	// ErrInvalidConfigValue is returned for non-integer or out-of-range configuration values.
	ErrInvalidConfigValue = errors.New("invalid config value")
)

// ConfigKeys lists the supported keys in display order.
var ConfigKeys = []ConfigKey{ConfigMaxRetries, ConfigBackoffBase}

// ParseConfigKey accepts both the stored spelling (max_retries) and the CLI spelling (max-retries).
func ParseConfigKey(raw string) (ConfigKey, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(raw)), "-", "_")
	key := ConfigKey(normalized)
	if !key.Valid() {
		return "", fmt.Errorf("%w: %q (available: max-retries, backoff-base)", ErrInvalidConfigKey, raw)
	}
	return key, nil
}

// Valid returns true if the key is supported.
func (k ConfigKey) Valid() bool {
	return k == ConfigMaxRetries || k == ConfigBackoffBase
}

// Flag returns the dashed spelling used on the command line.
func (k ConfigKey) Flag() string {
	return strings.ReplaceAll(string(k), "_", "-")
}

// Default returns the seeded value for the key.
func (k ConfigKey) Default() int {
	switch k {
	case ConfigMaxRetries:
		return DefaultMaxRetries
	case ConfigBackoffBase:
		return DefaultBackoffBase
	default:
		return 0
	}
}

// ValidateValue checks the range for a key: max_retries >= 0, backoff_base >= 1.
func (k ConfigKey) ValidateValue(value int) error {
	switch k {
	case ConfigMaxRetries:
		if value < 0 {
			return fmt.Errorf("%w: %s must be >= 0, got %d", ErrInvalidConfigValue, k.Flag(), value)
		}
	case ConfigBackoffBase:
		if value < 1 {
			return fmt.Errorf("%w: %s must be >= 1, got %d", ErrInvalidConfigValue, k.Flag(), value)
		}
	default:
		return fmt.Errorf("%w: %q", ErrInvalidConfigKey, string(k))
	}
	return nil
}

// ParseConfigValue parses and range-checks a raw value for the key.
func (k ConfigKey) ParseConfigValue(raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%w: value must be an integer, got %q", ErrInvalidConfigValue, raw)
	}
	if err := k.ValidateValue(value); err != nil {
		return 0, err
	}
	return value, nil
}
