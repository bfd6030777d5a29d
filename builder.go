package authcore

import (
	"errors"
	"log"

	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"

	"github.com/halcyondev/authcore/internal/audit"
	"github.com/halcyondev/authcore/internal/lockout"
	"github.com/halcyondev/authcore/internal/rate"
	"github.com/halcyondev/authcore/keys"
	"github.com/halcyondev/authcore/password"
	"github.com/halcyondev/authcore/session"
	"github.com/halcyondev/authcore/token"
)

// Builder assembles an Engine. Required inputs are a Redis client and a
// UserDirectory; everything else has a default.
type Builder struct {
	cfg      Config
	cfgSet   bool
	rdb      redis.UniversalClient
	dir      UserDirectory
	verifier CredentialVerifier
	keyStore keys.Store
	sink     AuditSink
	clock    clockwork.Clock
	warn     func(format string, args ...any)
}

// New starts a builder with default configuration.
func New() *Builder {
	return &Builder{}
}

// WithConfig replaces the configuration. Zero fields are filled from
// DefaultConfig during Build.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.cfg = cfg
	b.cfgSet = true
	return b
}

// WithRedis sets the Redis client backing sessions, rate limiting and the
// default key store.
func (b *Builder) WithRedis(rdb redis.UniversalClient) *Builder {
	b.rdb = rdb
	return b
}

// WithUserDirectory sets the application's account lookup.
func (b *Builder) WithUserDirectory(dir UserDirectory) *Builder {
	b.dir = dir
	return b
}

// WithCredentialVerifier replaces the default argon2id verifier.
func (b *Builder) WithCredentialVerifier(v CredentialVerifier) *Builder {
	b.verifier = v
	return b
}

// WithKeyStore replaces the default sealed Redis key store. Useful for
// KMS-backed or file-backed deployments.
func (b *Builder) WithKeyStore(store keys.Store) *Builder {
	b.keyStore = store
	return b
}

// WithAuditSink sets the destination for audit events. Without a sink,
// enabled auditing goes to a no-op.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.sink = sink
	return b
}

// WithClock injects a clock. Tests use clockwork.NewFakeClock to drive
// expiry and rotation deterministically.
func (b *Builder) WithClock(clock clockwork.Clock) *Builder {
	b.clock = clock
	return b
}

// WithWarnLogger sets the sink for non-fatal internal warnings (failed key
// demotions, token validation rejections). Defaults to log.Printf.
func (b *Builder) WithWarnLogger(warn func(format string, args ...any)) *Builder {
	b.warn = warn
	return b
}

// Build wires the engine. It validates configuration and constructs every
// subsystem; no network calls happen until the engine is used.
func (b *Builder) Build() (*Engine, error) {
	cfg := b.cfg
	if !b.cfgSet {
		cfg = DefaultConfig()
	}
	cfg = fillDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.rdb == nil {
		return nil, errors.New("authcore: redis client is required")
	}
	if b.dir == nil {
		return nil, errors.New("authcore: user directory is required")
	}

	clock := b.clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	warn := b.warn
	if warn == nil {
		warn = log.Printf
	}
	verifier := b.verifier
	if verifier == nil {
		verifier = password.NewDefault()
	}

	keyStore := b.keyStore
	if keyStore == nil {
		var err error
		keyStore, err = keys.NewRedisStore(b.rdb, cfg.Session.Prefix, cfg.Keys.MasterSecret)
		if err != nil {
			return nil, err
		}
	}

	keyManager, err := keys.NewManager(keyStore, keys.Config{
		Lifetime:    cfg.Keys.Lifetime,
		RotateAfter: cfg.Keys.RotateAfter,
	}, clock, warn)
	if err != nil {
		return nil, err
	}

	issuer, err := token.NewIssuer(keyManager, token.Config{
		AccessTTL:  cfg.JWT.AccessTTL,
		RefreshTTL: cfg.JWT.RefreshTTL,
		Issuer:     cfg.JWT.Issuer,
		Audience:   cfg.JWT.Audience,
	}, clock, warn)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		stop:     make(chan struct{}),
		cfg:      cfg,
		clock:    clock,
		warn:     warn,
		dir:      b.dir,
		verifier: verifier,
		keys:     keyManager,
		issuer:   issuer,
		sessions: session.NewStore(b.rdb, cfg.Session.Prefix, clock),
		limiter: rate.New(b.rdb, rate.Config{
			MaxAttempts:      cfg.RateLimit.MaxAttempts,
			Window:           cfg.RateLimit.Window,
			EnableIPThrottle: cfg.RateLimit.EnableIPThrottle,
		}, clock),
		audit: audit.NewDispatcher(audit.Config{
			Enabled:    cfg.Audit.Enabled,
			BufferSize: cfg.Audit.BufferSize,
			DropIfFull: cfg.Audit.DropIfFull,
		}, b.sink),
	}
	e.guard = lockout.NewGuard(&lockDirectory{dir: b.dir}, lockout.Config{
		Threshold: cfg.Lockout.Threshold,
		Duration:  cfg.Lockout.Duration,
	}, clock)
	if cfg.MetricsEnabled {
		e.metrics = newMetrics()
	}
	e.ready.Store(true)
	return e, nil
}
