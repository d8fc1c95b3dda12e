package cliconfig

import (
	"testing"
	"time"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "valid with token",
			mutate: func(c *Config) { c.Token = "tok" },
		},
		{
			name: "valid with basic auth",
			mutate: func(c *Config) {
				c.Token = ""
				c.Username = "root"
				c.Password = "pw"
			},
		},
		{
			name:    "missing credentials",
			mutate:  func(c *Config) { c.Token = "" },
			wantErr: true,
		},
		{
			name: "missing url",
			mutate: func(c *Config) {
				c.Token = "tok"
				c.ServiceURL = ""
			},
			wantErr: true,
		},
		{
			name: "bad attempts",
			mutate: func(c *Config) {
				c.Token = "tok"
				c.MaxAttempts = 0
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.Token = ""
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClientConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ServiceURL = "https://obs.example.com"
	cfg.Org = "prod"
	cfg.Token = "tok"
	cfg.MaxAttempts = 5
	cfg.RetryBaseDelay = 250 * time.Millisecond
	cfg.NoBatching = true

	cc := cfg.ClientConfig()
	if cc.BaseURL != "https://obs.example.com" || cc.Org != "prod" {
		t.Errorf("client config = %+v", cc)
	}
	if cc.Retry.MaxAttempts != 5 || cc.Retry.BaseDelay != 250*time.Millisecond {
		t.Errorf("retry policy = %+v", cc.Retry)
	}
	if !cc.DisableBatching {
		t.Error("DisableBatching not carried over")
	}
	if err := cc.Validate(); err != nil {
		t.Errorf("converted config invalid: %v", err)
	}
}

func TestApplyEnvConfig(t *testing.T) {
	t.Setenv("LOGSHIP_URL", "https://env.example.com")
	t.Setenv("LOGSHIP_ORG", "envorg")
	t.Setenv("LOGSHIP_TOKEN", "envtok")
	t.Setenv("LOGSHIP_MAX_ATTEMPTS", "7")
	t.Setenv("LOGSHIP_LINGER", "2s")
	t.Setenv("LOGSHIP_NO_BATCHING", "true")

	cfg := DefaultConfig()
	if cfg.Token != "" {
		t.Errorf("DefaultConfig Token = %q, env must only apply through ApplyEnvConfig", cfg.Token)
	}
	if err := ApplyEnvConfig(&cfg, map[string]bool{}); err != nil {
		t.Fatal(err)
	}
	if cfg.ServiceURL != "https://env.example.com" || cfg.Org != "envorg" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.Token != "envtok" {
		t.Errorf("Token = %q, want envtok", cfg.Token)
	}
	if cfg.MaxAttempts != 7 {
		t.Errorf("MaxAttempts = %d", cfg.MaxAttempts)
	}
	if cfg.Linger != 2*time.Second {
		t.Errorf("Linger = %v", cfg.Linger)
	}
	if !cfg.NoBatching {
		t.Error("NoBatching not applied")
	}
}

func TestApplyEnvConfigRespectsFlags(t *testing.T) {
	t.Setenv("LOGSHIP_ORG", "envorg")
	t.Setenv("LOGSHIP_TOKEN", "envtok")

	cfg := DefaultConfig()
	cfg.Org = "flagorg"
	cfg.Token = "flagtok"
	if err := ApplyEnvConfig(&cfg, map[string]bool{"org": true, "token": true}); err != nil {
		t.Fatal(err)
	}
	if cfg.Org != "flagorg" {
		t.Errorf("Org = %q, flag should win over env", cfg.Org)
	}
	if cfg.Token != "flagtok" {
		t.Errorf("Token = %q, flag should win over env", cfg.Token)
	}
}

func TestApplyEnvConfigBadDuration(t *testing.T) {
	t.Setenv("LOGSHIP_HTTP_TIMEOUT", "soon")

	cfg := DefaultConfig()
	if err := ApplyEnvConfig(&cfg, map[string]bool{}); err == nil {
		t.Error("expected parse error")
	}
}
