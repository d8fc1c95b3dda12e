package cliconfig

import "os"

// ApplyEnvConfig applies configuration from environment variables (LOGSHIP_*).
// It respects flags that have been explicitly set (changed map).
// Returns an error if any environment variable has an invalid format.
func ApplyEnvConfig(cfg *Config, changed map[string]bool) error {
	s := newConfigSetter(changed)

	s.setString("url", os.Getenv("LOGSHIP_URL"), &cfg.ServiceURL)
	s.setString("org", os.Getenv("LOGSHIP_ORG"), &cfg.Org)
	s.setString("token", os.Getenv("LOGSHIP_TOKEN"), &cfg.Token)
	s.setString("username", os.Getenv("LOGSHIP_USERNAME"), &cfg.Username)
	s.setString("password", os.Getenv("LOGSHIP_PASSWORD"), &cfg.Password)

	if err := s.setDuration("timeout", os.Getenv("LOGSHIP_HTTP_TIMEOUT"), &cfg.HTTPTimeout); err != nil {
		return err
	}
	if err := s.setDuration("retry-base-delay", os.Getenv("LOGSHIP_RETRY_BASE_DELAY"), &cfg.RetryBaseDelay); err != nil {
		return err
	}
	if err := s.setDuration("retry-max-delay", os.Getenv("LOGSHIP_RETRY_MAX_DELAY"), &cfg.RetryMaxDelay); err != nil {
		return err
	}
	if err := s.setDuration("linger", os.Getenv("LOGSHIP_LINGER"), &cfg.Linger); err != nil {
		return err
	}

	if err := s.setIntFromString("max-attempts", os.Getenv("LOGSHIP_MAX_ATTEMPTS"), &cfg.MaxAttempts); err != nil {
		return err
	}
	if err := s.setIntFromString("flush-bytes", os.Getenv("LOGSHIP_FLUSH_BYTES"), &cfg.FlushBytes); err != nil {
		return err
	}
	if err := s.setFloatFromString("retry-multiplier", os.Getenv("LOGSHIP_RETRY_MULTIPLIER"), &cfg.RetryMultiplier); err != nil {
		return err
	}
	if err := s.setFloatFromString("retry-jitter", os.Getenv("LOGSHIP_RETRY_JITTER"), &cfg.RetryJitter); err != nil {
		return err
	}

	s.setBoolFromString("no-compression", os.Getenv("LOGSHIP_NO_COMPRESSION"), &cfg.NoCompression)
	s.setBoolFromString("no-batching", os.Getenv("LOGSHIP_NO_BATCHING"), &cfg.NoBatching)

	return nil
}
