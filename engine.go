package authcore

import (
	"context"
	"sync/atomic"

	"github.com/jonboulle/clockwork"

	"github.com/halcyondev/authcore/internal/audit"
	"github.com/halcyondev/authcore/internal/lockout"
	"github.com/halcyondev/authcore/internal/rate"
	"github.com/halcyondev/authcore/keys"
	"github.com/halcyondev/authcore/session"
	"github.com/halcyondev/authcore/token"
)

// Engine is the authentication core. Build one with the Builder and share
// it; all methods are safe for concurrent use.
type Engine struct {
	cfg      Config
	clock    clockwork.Clock
	warn     func(format string, args ...any)
	dir      UserDirectory
	verifier CredentialVerifier
	keys     *keys.Manager
	issuer   *token.Issuer
	sessions *session.Store
	limiter  *rate.Limiter
	guard    *lockout.Guard
	audit    *audit.Dispatcher
	metrics  *metrics

	ready       atomic.Bool
	maintenance atomic.Bool
	stop        chan struct{}
}

// Config returns the effective configuration after defaults were applied.
func (e *Engine) Config() Config { return e.cfg }

// Close stops background maintenance and drains the audit dispatcher.
// The engine rejects further calls with ErrEngineNotReady.
func (e *Engine) Close() {
	if !e.ready.CompareAndSwap(true, false) {
		return
	}
	close(e.stop)
	e.audit.Close()
}

func (e *Engine) checkReady() error {
	if e == nil || !e.ready.Load() {
		return ErrEngineNotReady
	}
	return nil
}

func (e *Engine) emit(ctx context.Context, event AuditEvent) {
	event.Timestamp = e.clock.Now()
	e.audit.Emit(ctx, event)
}

// AuditDropped reports how many audit events were discarded under
// backpressure since Build.
func (e *Engine) AuditDropped() uint64 { return e.audit.Dropped() }

// lockDirectory adapts the application's UserDirectory to the lockout
// guard's narrow persistence interface.
type lockDirectory struct {
	dir UserDirectory
}

func (d *lockDirectory) LockState(ctx context.Context, userID string) (lockout.State, error) {
	user, err := d.dir.FindByID(ctx, userID)
	if err != nil {
		return lockout.State{}, err
	}
	return lockStateOf(user), nil
}

func (d *lockDirectory) StoreLockState(ctx context.Context, userID string, state lockout.State) error {
	return d.dir.SaveLockState(ctx, userID, LockState{
		FailedAttempts: state.FailedAttempts,
		LastAttemptAt:  state.LastAttemptAt,
		IsLocked:       state.IsLocked,
		LockoutEnd:     state.LockoutEnd,
	})
}

func lockStateOf(user *UserRecord) lockout.State {
	return lockout.State{
		FailedAttempts: user.FailedAttempts,
		LastAttemptAt:  user.LastAttemptAt,
		IsLocked:       user.IsLocked,
		LockoutEnd:     user.LockoutEnd,
	}
}

func subjectOf(user *UserRecord) token.Subject {
	return token.Subject{
		UserID: user.ID,
		Name:   user.DisplayName,
		Email:  user.Email,
		Roles:  user.Roles,
	}
}
