package client

import (
	"fmt"
	"net/url"
	"time"

	"github.com/bft-labs/logship/pkg/batch"
	"github.com/bft-labs/logship/pkg/query"
	"github.com/bft-labs/logship/pkg/retry"
)

// DefaultTimeout bounds a single HTTP attempt.
const DefaultTimeout = 30 * time.Second

// DefaultOrg is the backend organization used when none is configured.
const DefaultOrg = "default"

// Config holds client configuration. Use DefaultConfig for sensible
// defaults; at minimum BaseURL must be set before New.
type Config struct {
	// BaseURL is the backend root URL, e.g. "https://obs.example.com".
	BaseURL string

	// Org is the organization/namespace addressed by API paths.
	Org string

	// Token is a bearer token. When empty, Username/Password are used.
	Token    string
	Username string
	Password string

	// Timeout bounds each HTTP attempt (not the whole retried call).
	Timeout time.Duration

	// DisableCompression turns off gzip for ingest payloads.
	DisableCompression bool

	// DisableBatching makes Ingest submit synchronously per call.
	DisableBatching bool

	// MaxLimit caps query result limits. Zero means query.DefaultMaxLimit.
	MaxLimit int

	// Retry is the backoff policy for every remote call.
	Retry retry.Policy

	// Batch tunes the per-stream queues.
	Batch batch.Config
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Org:     DefaultOrg,
		Timeout: DefaultTimeout,
		Retry:   retry.DefaultPolicy(),
		Batch:   batch.DefaultConfig(),
	}
}

// SetDefaults fills zero values with defaults.
func (c *Config) SetDefaults() {
	if c.Org == "" {
		c.Org = DefaultOrg
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxLimit <= 0 {
		c.MaxLimit = query.DefaultMaxLimit
	}
	if c.Retry == (retry.Policy{}) {
		c.Retry = retry.DefaultPolicy()
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.BaseURL == "" {
		return fmt.Errorf("base URL is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("base URL %q is not a valid absolute URL", c.BaseURL)
	}
	if err := c.Retry.Validate(); err != nil {
		return err
	}
	return nil
}
