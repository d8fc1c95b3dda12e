// Package cliconfig resolves CLI configuration from defaults, a TOML file,
// LOGSHIP_* environment variables and command-line flags, in ascending
// precedence.
package cliconfig

import (
	"fmt"
	"strconv"
	"time"

	"github.com/bft-labs/logship/internal/client"
	"github.com/bft-labs/logship/pkg/batch"
	"github.com/bft-labs/logship/pkg/retry"
)

// DefaultServiceURL is the default backend endpoint.
const DefaultServiceURL = "http://localhost:5080"

// Config holds CLI configuration for logship.
type Config struct {
	ServiceURL string
	Org        string

	Token    string
	Username string
	Password string

	HTTPTimeout time.Duration

	MaxAttempts     int
	RetryBaseDelay  time.Duration
	RetryMaxDelay   time.Duration
	RetryMultiplier float64
	RetryJitter     float64

	FlushBytes int
	Linger     time.Duration

	NoCompression bool
	NoBatching    bool

	// Fields is the per-stream field whitelist for correlation queries.
	Fields map[string][]string
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		ServiceURL:      DefaultServiceURL,
		Org:             client.DefaultOrg,
		HTTPTimeout:     client.DefaultTimeout,
		MaxAttempts:     retry.DefaultMaxAttempts,
		RetryBaseDelay:  retry.DefaultBaseDelay,
		RetryMaxDelay:   retry.DefaultMaxDelay,
		RetryMultiplier: retry.DefaultMultiplier,
		RetryJitter:     retry.DefaultJitter,
		FlushBytes:      batch.DefaultFlushBytes,
		Linger:          batch.DefaultLinger,
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.ServiceURL == "" {
		return fmt.Errorf("service URL is required")
	}
	if c.Token == "" && c.Username == "" {
		return fmt.Errorf("either a token or a username/password is required")
	}
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("http timeout must be positive")
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1")
	}
	return nil
}

// ClientConfig converts the CLI configuration into a client configuration.
func (c *Config) ClientConfig() client.Config {
	return client.Config{
		BaseURL:            c.ServiceURL,
		Org:                c.Org,
		Token:              c.Token,
		Username:           c.Username,
		Password:           c.Password,
		Timeout:            c.HTTPTimeout,
		DisableCompression: c.NoCompression,
		DisableBatching:    c.NoBatching,
		Retry: retry.Policy{
			MaxAttempts: c.MaxAttempts,
			BaseDelay:   c.RetryBaseDelay,
			Multiplier:  c.RetryMultiplier,
			MaxDelay:    c.RetryMaxDelay,
			Jitter:      c.RetryJitter,
		},
		Batch: batch.Config{
			FlushBytes: c.FlushBytes,
			Linger:     c.Linger,
		},
	}
}

// configSetter helps apply configuration values while respecting flag
// precedence. It only applies values if the corresponding flag hasn't been
// explicitly set.
type configSetter struct {
	changed map[string]bool
}

func newConfigSetter(changed map[string]bool) *configSetter {
	return &configSetter{changed: changed}
}

// setString sets a string value if not empty and flag not changed.
func (s *configSetter) setString(flag, value string, dst *string) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value
}

// setInt sets an int value if positive and flag not changed.
func (s *configSetter) setInt(flag string, value int, dst *int) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setFloat sets a float64 value if positive and flag not changed.
func (s *configSetter) setFloat(flag string, value float64, dst *float64) {
	if value <= 0 || s.changed[flag] {
		return
	}
	*dst = value
}

// setDuration parses and sets a duration from string if valid and flag not changed.
func (s *configSetter) setDuration(flag, value string, dst *time.Duration) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	*dst = d
	return nil
}

// setBool sets a bool value from a pointer if not nil and flag not changed.
func (s *configSetter) setBool(flag string, value *bool, dst *bool) {
	if value == nil || s.changed[flag] {
		return
	}
	*dst = *value
}

// setIntFromString parses a string to int and sets the destination if valid.
// Used for environment variables that come as strings.
func (s *configSetter) setIntFromString(flag, value string, dst *int) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	i, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if i <= 0 {
		return nil
	}
	*dst = i
	return nil
}

// setFloatFromString parses a string to float64 and sets the destination if valid.
func (s *configSetter) setFloatFromString(flag, value string, dst *float64) error {
	if value == "" || s.changed[flag] {
		return nil
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("parse %s: %w", flag, err)
	}
	if f <= 0 {
		return nil
	}
	*dst = f
	return nil
}

// setBoolFromString parses a string to bool and sets the destination.
// Accepts "true", "1" as true, anything else as false.
func (s *configSetter) setBoolFromString(flag, value string, dst *bool) {
	if value == "" || s.changed[flag] {
		return
	}
	*dst = value == "true" || value == "1"
}
