package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/halcyondev/authcore/internal/rate"
	"github.com/halcyondev/authcore/keys"
	"github.com/halcyondev/authcore/session"
)

// Login runs the full credential flow: rate window, account lookup,
// lockout check, password verification, lockout bookkeeping, and finally
// token issuance with a session row keyed by the refresh token's jti.
//
// Unknown identities and wrong passwords both come back as
// ErrInvalidCredentials. A lockout triggered by this very attempt is
// reported as *LockedError rather than ErrInvalidCredentials so callers
// can tell the user what happened.
func (e *Engine) Login(ctx context.Context, identity, secret string) (*LoginResult, error) {
	if err := e.checkReady(); err != nil {
		return nil, err
	}
	ip := clientIP(ctx)

	allowed, err := e.limiter.Allowed(ctx, identity, ip)
	if err != nil {
		// Fail open. A dead limiter backend must not take login down;
		// the lockout guard still bounds brute force per account.
		e.warn("authcore: rate limiter unavailable, failing open: %v", err)
		allowed = true
	}
	if !allowed {
		e.metrics.inc(MetricLoginRateLimited)
		e.emit(ctx, AuditEvent{EventType: AuditLoginRateLimit, Identity: identity, IP: ip})
		return nil, &RateLimitedError{}
	}

	user, err := e.dir.FindByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.recordAttempt(ctx, identity, ip, false)
			e.metrics.inc(MetricLoginFailure)
			e.emit(ctx, AuditEvent{EventType: AuditLoginFailure, Identity: identity, IP: ip, Error: "unknown identity"})
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if locked, until := e.guard.Locked(lockStateOf(user)); locked {
		e.recordAttempt(ctx, identity, ip, false)
		e.metrics.inc(MetricLoginLocked)
		e.emit(ctx, AuditEvent{EventType: AuditLoginLocked, UserID: user.ID, Identity: identity, IP: ip})
		return nil, &LockedError{Until: until}
	}

	ok, err := e.verifier.Verify(secret, user.PasswordHash)
	if err != nil {
		e.warn("authcore: credential verify error for user %s: %v", user.ID, err)
		ok = false
	}
	if !ok {
		e.recordAttempt(ctx, identity, ip, false)
		state, lockedNow, gerr := e.guard.OnFailure(ctx, user.ID, lockStateOf(user))
		if gerr != nil {
			e.warn("authcore: lockout update failed for user %s: %v", user.ID, gerr)
		}
		if lockedNow {
			e.metrics.inc(MetricLoginLocked)
			e.emit(ctx, AuditEvent{EventType: AuditLoginLocked, UserID: user.ID, Identity: identity, IP: ip, Error: "threshold reached"})
			return nil, &LockedError{Until: state.LockoutEnd}
		}
		e.metrics.inc(MetricLoginFailure)
		e.emit(ctx, AuditEvent{EventType: AuditLoginFailure, UserID: user.ID, Identity: identity, IP: ip, Error: "bad password"})
		return nil, ErrInvalidCredentials
	}

	e.recordAttempt(ctx, identity, ip, true)
	if err := e.guard.OnSuccess(ctx, user.ID, lockStateOf(user)); err != nil {
		e.warn("authcore: lockout reset failed for user %s: %v", user.ID, err)
	}

	if user.MFAEnabled {
		e.metrics.inc(MetricMFAChallenges)
		e.emit(ctx, AuditEvent{EventType: AuditMFAChallenge, UserID: user.ID, Identity: identity, IP: ip, Success: true})
		return &LoginResult{MFARequired: true}, nil
	}

	pair, jti, err := e.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	e.metrics.inc(MetricLoginSuccess)
	e.emit(ctx, AuditEvent{EventType: AuditLoginSuccess, UserID: user.ID, Identity: identity, SessionID: jti, IP: ip, Success: true})
	return &LoginResult{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken}, nil
}

// issueTokens mints an access/refresh pair and creates the session row for
// the refresh jti. Shared by Login and Refresh.
func (e *Engine) issueTokens(ctx context.Context, user *UserRecord) (*TokenPair, string, error) {
	access, _, err := e.issuer.IssueAccess(ctx, subjectOf(user))
	if err != nil {
		return nil, "", mapBackendErr(err)
	}
	refresh, jti, err := e.issuer.IssueRefresh(ctx, user.ID)
	if err != nil {
		return nil, "", mapBackendErr(err)
	}
	if _, err := e.sessions.Create(ctx, user.ID, jti, deviceInfo(ctx), clientIP(ctx), e.cfg.JWT.RefreshTTL); err != nil {
		return nil, "", mapBackendErr(err)
	}
	return &TokenPair{AccessToken: access, RefreshToken: refresh}, jti, nil
}

// RemainingAttempts reports how many login attempts the identity has left
// in the current rate window. Zero means the next Login is rejected with
// RateLimitedError until the window slides.
func (e *Engine) RemainingAttempts(ctx context.Context, identity string) (int, error) {
	if err := e.checkReady(); err != nil {
		return 0, err
	}
	remaining, err := e.limiter.Remaining(ctx, identity)
	if err != nil {
		return 0, mapBackendErr(err)
	}
	return remaining, nil
}

// recordAttempt feeds the rate window. Best effort; a write failure is a
// warning, not a login failure.
func (e *Engine) recordAttempt(ctx context.Context, identity, ip string, success bool) {
	if err := e.limiter.Record(ctx, identity, ip, success); err != nil {
		e.warn("authcore: rate limiter record failed: %v", err)
	}
}

func mapBackendErr(err error) error {
	switch {
	case errors.Is(err, session.ErrRedisUnavailable),
		errors.Is(err, keys.ErrStoreUnavailable),
		errors.Is(err, rate.ErrRedisUnavailable):
		return fmt.Errorf("%w: %v", ErrBackendUnavailable, err)
	}
	return err
}
