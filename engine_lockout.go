package authcore

import (
	"context"
	"time"
)

// LockAccount places an administrative lock for the given duration and
// revokes the user's sessions so live refresh tokens die with the lock.
// A zero duration uses the configured lockout duration.
func (e *Engine) LockAccount(ctx context.Context, userID string, d time.Duration) error {
	if err := e.checkReady(); err != nil {
		return err
	}
	if d <= 0 {
		d = e.cfg.Lockout.Duration
	}
	if _, err := e.dir.FindByID(ctx, userID); err != nil {
		return err
	}
	if err := e.guard.Lock(ctx, userID, d); err != nil {
		return err
	}
	if _, err := e.sessions.RevokeAll(ctx, userID); err != nil {
		return mapBackendErr(err)
	}
	e.emit(ctx, AuditEvent{EventType: AuditAccountLock, UserID: userID, Success: true})
	return nil
}

// UnlockAccount clears any lock and resets the failure counter.
func (e *Engine) UnlockAccount(ctx context.Context, userID string) error {
	if err := e.checkReady(); err != nil {
		return err
	}
	if _, err := e.dir.FindByID(ctx, userID); err != nil {
		return err
	}
	if err := e.guard.Unlock(ctx, userID); err != nil {
		return err
	}
	e.emit(ctx, AuditEvent{EventType: AuditAccountUnlock, UserID: userID, Success: true})
	return nil
}

// AccountLocked reports whether the user is currently locked and, if so,
// when the lock expires.
func (e *Engine) AccountLocked(ctx context.Context, userID string) (bool, time.Time, error) {
	if err := e.checkReady(); err != nil {
		return false, time.Time{}, err
	}
	user, err := e.dir.FindByID(ctx, userID)
	if err != nil {
		return false, time.Time{}, err
	}
	locked, until := e.guard.Locked(lockStateOf(user))
	return locked, until, nil
}
