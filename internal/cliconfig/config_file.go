package cliconfig

import (
	"fmt"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// FileConfig mirrors Config but uses strings for durations to make TOML
// friendly.
type FileConfig struct {
	ServiceURL string `toml:"service_url"`
	Org        string `toml:"org"`

	Token    string `toml:"token"`
	Username string `toml:"username"`
	Password string `toml:"password"`

	HTTPTimeout string `toml:"http_timeout"`

	MaxAttempts     int     `toml:"max_attempts"`
	RetryBaseDelay  string  `toml:"retry_base_delay"`
	RetryMaxDelay   string  `toml:"retry_max_delay"`
	RetryMultiplier float64 `toml:"retry_multiplier"`
	RetryJitter     float64 `toml:"retry_jitter"`

	FlushBytes int    `toml:"flush_bytes"`
	Linger     string `toml:"linger"`

	NoCompression *bool `toml:"no_compression"`
	NoBatching    *bool `toml:"no_batching"`

	Fields map[string][]string `toml:"fields"`
}

// LoadFileConfig reads and parses a TOML config file from the given path.
func LoadFileConfig(path string) (FileConfig, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		return fc, err
	}
	if err := toml.Unmarshal(b, &fc); err != nil {
		return fc, err
	}
	return fc, nil
}

// DefaultConfigPath returns the default configuration file path.
// Returns ~/.logship/config.toml if user home directory is accessible.
func DefaultConfigPath() string {
	if h, err := os.UserHomeDir(); err == nil {
		return filepath.Join(h, ".logship", "config.toml")
	}
	return ""
}

// ApplyFileConfig applies configuration from a file to the Config struct.
// It respects flags that have been explicitly set (changed map).
func ApplyFileConfig(cfg *Config, fc FileConfig, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("url", fc.ServiceURL, &cfg.ServiceURL)
	s.setString("org", fc.Org, &cfg.Org)
	s.setString("token", fc.Token, &cfg.Token)
	s.setString("username", fc.Username, &cfg.Username)
	s.setString("password", fc.Password, &cfg.Password)

	if err := s.setDuration("timeout", fc.HTTPTimeout, &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("retry-base-delay", fc.RetryBaseDelay, &cfg.RetryBaseDelay); err != nil {
		return err
	}
	if err := s.setDuration("retry-max-delay", fc.RetryMaxDelay, &cfg.RetryMaxDelay); err != nil {
		return err
	}
	if err := s.setDuration("linger", fc.Linger, &cfg.Linger); err != nil {
		return err
	}

	s.setInt("max-attempts", fc.MaxAttempts, &cfg.MaxAttempts)
	s.setInt("flush-bytes", fc.FlushBytes, &cfg.FlushBytes)
	s.setFloat("retry-multiplier", fc.RetryMultiplier, &cfg.RetryMultiplier)
	s.setFloat("retry-jitter", fc.RetryJitter, &cfg.RetryJitter)

	s.setBool("no-compression", fc.NoCompression, &cfg.NoCompression)
	s.setBool("no-batching", fc.NoBatching, &cfg.NoBatching)

	if len(fc.Fields) > 0 && cfg.Fields == nil {
		cfg.Fields = fc.Fields
	}
	return nil
}

const starterConfig = `# logship configuration
service_url = "http://localhost:5080"
org = "default"
token = ""
# username = ""
# password = ""

# http_timeout = "30s"
# max_attempts = 3
# retry_base_delay = "500ms"
# retry_max_delay = "10s"
# retry_multiplier = 2.0
# retry_jitter = 0.2

# flush_bytes = 1048576
# linger = "5s"
# no_compression = false
# no_batching = false

# Per-stream field whitelist for correlation queries.
# [fields]
# app = ["trace_id", "span_id"]
`

// WriteStarterConfig writes a commented starter config at path, creating
// parent directories as needed. An existing file is left untouched.
func WriteStarterConfig(path string) error {
	if FileExists(path) {
		return fmt.Errorf("%s already exists", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(starterConfig), 0o600)
}

// FileExists checks if a file exists at the given path.
func FileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}
