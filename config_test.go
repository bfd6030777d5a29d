package authcore

import (
	"testing"
	"time"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestConfig_ValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero access TTL", func(c *Config) { c.JWT.AccessTTL = 0 }},
		{"access TTL not shorter than refresh", func(c *Config) { c.JWT.AccessTTL = c.JWT.RefreshTTL }},
		{"zero key lifetime", func(c *Config) { c.Keys.Lifetime = 0 }},
		{"rotate-after at 1", func(c *Config) { c.Keys.RotateAfter = 1 }},
		{"negative rotate-after", func(c *Config) { c.Keys.RotateAfter = -0.5 }},
		{"zero rate attempts", func(c *Config) { c.RateLimit.MaxAttempts = 0 }},
		{"zero lockout threshold", func(c *Config) { c.Lockout.Threshold = 0 }},
		{"zero maintenance interval", func(c *Config) { c.Maintenance.Interval = 0 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(&cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestFillDefaults_PreservesOverrides(t *testing.T) {
	cfg := fillDefaults(Config{
		JWT:     JWTConfig{AccessTTL: 5 * time.Minute},
		Lockout: LockoutConfig{Threshold: 7},
	})

	if cfg.JWT.AccessTTL != 5*time.Minute {
		t.Fatalf("override lost: %v", cfg.JWT.AccessTTL)
	}
	if cfg.Lockout.Threshold != 7 {
		t.Fatalf("override lost: %d", cfg.Lockout.Threshold)
	}

	d := DefaultConfig()
	if cfg.JWT.RefreshTTL != d.JWT.RefreshTTL {
		t.Fatalf("refresh TTL not defaulted: %v", cfg.JWT.RefreshTTL)
	}
	if cfg.Session.Prefix != d.Session.Prefix {
		t.Fatalf("prefix not defaulted: %q", cfg.Session.Prefix)
	}
	if cfg.Keys.RotateAfter != d.Keys.RotateAfter {
		t.Fatalf("rotate-after not defaulted: %v", cfg.Keys.RotateAfter)
	}
}

func TestBuilder_RequiresRedisAndDirectory(t *testing.T) {
	if _, err := New().Build(); err == nil {
		t.Fatal("expected error without redis")
	}
}
