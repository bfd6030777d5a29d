package authcore

import (
	"context"
	"errors"

	"github.com/halcyondev/authcore/session"
	"github.com/halcyondev/authcore/token"
)

// Refresh exchanges a live refresh token for a brand-new pair. The
// presented token is single use: its session row is atomically spent
// before the replacement is created, so replaying it, serially or from
// concurrent callers, yields ErrSessionNotFound for all but one winner.
//
// Unlike access validation, Refresh distinguishes ErrTokenMalformed and
// ErrTokenExpired so clients know whether re-login is needed.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	if err := e.checkReady(); err != nil {
		return nil, err
	}
	ip := clientIP(ctx)

	claims, err := e.issuer.Validate(ctx, refreshToken)
	if err != nil {
		e.metrics.inc(MetricRefreshRejected)
		switch {
		case errors.Is(err, token.ErrMalformed):
			return nil, ErrTokenMalformed
		case errors.Is(err, token.ErrExpired):
			return nil, ErrTokenExpired
		default:
			return nil, ErrTokenInvalid
		}
	}
	if !claims.IsRefresh() {
		e.metrics.inc(MetricRefreshRejected)
		return nil, ErrTokenInvalid
	}
	jti := claims.ID

	sess, err := e.sessions.GetByJTI(ctx, jti)
	if err != nil {
		if errors.Is(err, session.ErrNotFound) {
			// Valid signature but no row: the token was already spent or
			// revoked. Worth an audit trail entry.
			e.metrics.inc(MetricRefreshRejected)
			e.emit(ctx, AuditEvent{EventType: AuditRefreshReuse, UserID: claims.Subject, SessionID: jti, IP: ip, Error: "refresh token reuse"})
			return nil, ErrSessionNotFound
		}
		return nil, mapBackendErr(err)
	}
	if !sess.Active(e.clock.Now()) {
		e.revokeQuietly(ctx, jti)
		e.metrics.inc(MetricRefreshRejected)
		return nil, ErrSessionNotFound
	}

	user, err := e.dir.FindByID(ctx, sess.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			// Account deleted out from under the session.
			e.revokeQuietly(ctx, jti)
			e.metrics.inc(MetricRefreshRejected)
			return nil, ErrSessionNotFound
		}
		return nil, err
	}

	if locked, until := e.guard.Locked(lockStateOf(user)); locked {
		e.revokeQuietly(ctx, jti)
		e.metrics.inc(MetricRefreshRejected)
		e.emit(ctx, AuditEvent{EventType: AuditLoginLocked, UserID: user.ID, SessionID: jti, IP: ip, Error: "refresh while locked"})
		return nil, &LockedError{Until: until}
	}

	// Spend the old token before minting the replacement. The delete is
	// atomic, so concurrent redemptions of one jti have exactly one
	// winner; the losers surface as reuse. If issuance fails after this
	// point the client re-authenticates, which is safer than ever having
	// two live tokens from one grant.
	spent, err := e.sessions.Spend(ctx, sess.UserID, jti)
	if err != nil {
		return nil, mapBackendErr(err)
	}
	if !spent {
		e.metrics.inc(MetricRefreshRejected)
		e.emit(ctx, AuditEvent{EventType: AuditRefreshReuse, UserID: user.ID, SessionID: jti, IP: ip, Error: "refresh token reuse"})
		return nil, ErrSessionNotFound
	}

	pair, newJTI, err := e.issueTokens(ctx, user)
	if err != nil {
		return nil, err
	}
	e.metrics.inc(MetricRefreshSuccess)
	e.emit(ctx, AuditEvent{
		EventType: AuditRefreshSuccess,
		UserID:    user.ID,
		SessionID: newJTI,
		IP:        ip,
		Success:   true,
		Metadata:  map[string]string{"replaced": jti},
	})
	return pair, nil
}

func (e *Engine) revokeQuietly(ctx context.Context, jti string) {
	if err := e.sessions.Revoke(ctx, jti); err != nil {
		e.warn("authcore: session revoke failed for %s: %v", jti, err)
	}
}
