package authcore

import (
	"errors"
	"time"
)

// JWTConfig controls token issuance.
type JWTConfig struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Audience   string
}

// KeyConfig controls signing-key rotation and at-rest sealing.
type KeyConfig struct {
	// Lifetime is how long a key verifies tokens after creation. The
	// signing role ends earlier, at Lifetime*RotateAfter, so tokens
	// signed just before a rotation stay verifiable.
	Lifetime time.Duration

	// RotateAfter is the fraction of Lifetime after which the active key
	// is considered due for rotation. Must be in (0, 1).
	RotateAfter float64

	// MasterSecret seals private key material before it reaches the
	// default Redis-backed store. Required unless a custom key store is
	// supplied through the builder.
	MasterSecret []byte
}

// SessionConfig controls session storage.
type SessionConfig struct {
	// Prefix namespaces all Redis keys. Defaults to "as".
	Prefix string
}

// RateLimitConfig controls the per-identity attempt window.
type RateLimitConfig struct {
	MaxAttempts      int
	Window           time.Duration
	EnableIPThrottle bool
}

// LockoutConfig controls consecutive-failure lockout.
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull makes Emit discard events under backpressure instead of
	// blocking the auth operation. Drops are counted.
	DropIfFull bool
}

// MaintenanceConfig controls the background sweep/rotation loop started by
// StartMaintenance.
type MaintenanceConfig struct {
	Interval time.Duration
}

// Config is the complete engine configuration. Zero values are filled from
// DefaultConfig by the builder, so embedders only set what they change.
type Config struct {
	JWT         JWTConfig
	Keys        KeyConfig
	Session     SessionConfig
	RateLimit   RateLimitConfig
	Lockout     LockoutConfig
	Audit       AuditConfig
	Maintenance MaintenanceConfig

	// MetricsEnabled toggles the in-process counters behind Engine.Metrics.
	MetricsEnabled bool
}

// DefaultConfig returns the tuning the engine ships with. Every field can
// be overridden before Build.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:  15 * time.Minute,
			RefreshTTL: 8 * time.Hour,
			Issuer:     "authcore",
			Audience:   "authcore",
		},
		Keys: KeyConfig{
			Lifetime:    24 * time.Hour,
			RotateAfter: 0.75,
		},
		Session: SessionConfig{
			Prefix: "as",
		},
		RateLimit: RateLimitConfig{
			MaxAttempts: 5,
			Window:      15 * time.Minute,
		},
		Lockout: LockoutConfig{
			Threshold: 5,
			Duration:  30 * time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Maintenance: MaintenanceConfig{
			Interval: time.Minute,
		},
		MetricsEnabled: true,
	}
}

// Validate rejects configurations the engine cannot run with. Called by
// Build after defaults are applied.
func (c Config) Validate() error {
	if c.JWT.AccessTTL <= 0 || c.JWT.RefreshTTL <= 0 {
		return errors.New("authcore: token TTLs must be positive")
	}
	if c.JWT.AccessTTL >= c.JWT.RefreshTTL {
		return errors.New("authcore: access TTL must be shorter than refresh TTL")
	}
	if c.Keys.Lifetime <= 0 {
		return errors.New("authcore: key lifetime must be positive")
	}
	if c.Keys.RotateAfter <= 0 || c.Keys.RotateAfter >= 1 {
		return errors.New("authcore: key rotate-after must be in (0, 1)")
	}
	if c.RateLimit.MaxAttempts <= 0 || c.RateLimit.Window <= 0 {
		return errors.New("authcore: rate limit attempts and window must be positive")
	}
	if c.Lockout.Threshold <= 0 || c.Lockout.Duration <= 0 {
		return errors.New("authcore: lockout threshold and duration must be positive")
	}
	if c.Maintenance.Interval <= 0 {
		return errors.New("authcore: maintenance interval must be positive")
	}
	return nil
}

func fillDefaults(c Config) Config {
	d := DefaultConfig()
	if c.JWT.AccessTTL == 0 {
		c.JWT.AccessTTL = d.JWT.AccessTTL
	}
	if c.JWT.RefreshTTL == 0 {
		c.JWT.RefreshTTL = d.JWT.RefreshTTL
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = d.JWT.Issuer
	}
	if c.JWT.Audience == "" {
		c.JWT.Audience = d.JWT.Audience
	}
	if c.Keys.Lifetime == 0 {
		c.Keys.Lifetime = d.Keys.Lifetime
	}
	if c.Keys.RotateAfter == 0 {
		c.Keys.RotateAfter = d.Keys.RotateAfter
	}
	if c.Session.Prefix == "" {
		c.Session.Prefix = d.Session.Prefix
	}
	if c.RateLimit.MaxAttempts == 0 {
		c.RateLimit.MaxAttempts = d.RateLimit.MaxAttempts
	}
	if c.RateLimit.Window == 0 {
		c.RateLimit.Window = d.RateLimit.Window
	}
	if c.Lockout.Threshold == 0 {
		c.Lockout.Threshold = d.Lockout.Threshold
	}
	if c.Lockout.Duration == 0 {
		c.Lockout.Duration = d.Lockout.Duration
	}
	if c.Audit.BufferSize == 0 {
		c.Audit.BufferSize = d.Audit.BufferSize
	}
	if c.Maintenance.Interval == 0 {
		c.Maintenance.Interval = d.Maintenance.Interval
	}
	return c
}
