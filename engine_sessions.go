package authcore

import (
	"context"
	"strconv"

	"github.com/halcyondev/authcore/token"
)

// Logout revokes the session identified by jti. Revoking a session that is
// already gone is a no-op, so logout is safe to retry.
func (e *Engine) Logout(ctx context.Context, jti string) error {
	if err := e.checkReady(); err != nil {
		return err
	}
	if err := e.sessions.Revoke(ctx, jti); err != nil {
		return mapBackendErr(err)
	}
	e.metrics.inc(MetricSessionsRevoked)
	e.emit(ctx, AuditEvent{EventType: AuditLogout, SessionID: jti, IP: clientIP(ctx), Success: true})
	return nil
}

// LogoutToken revokes the session behind a refresh token without requiring
// the caller to parse it. The token's signature is not checked; possession
// of the token only ever shortens its own life.
func (e *Engine) LogoutToken(ctx context.Context, refreshToken string) error {
	jti := token.ExtractJTI(refreshToken)
	if jti == "" {
		return ErrTokenMalformed
	}
	return e.Logout(ctx, jti)
}

// LogoutAll revokes every session of a user and returns how many were
// removed. Used for password changes and account compromise response.
func (e *Engine) LogoutAll(ctx context.Context, userID string) (int, error) {
	if err := e.checkReady(); err != nil {
		return 0, err
	}
	n, err := e.sessions.RevokeAll(ctx, userID)
	if err != nil {
		return 0, mapBackendErr(err)
	}
	e.metrics.add(MetricSessionsRevoked, uint64(n))
	e.emit(ctx, AuditEvent{EventType: AuditLogoutAll, UserID: userID, IP: clientIP(ctx), Success: true})
	return n, nil
}

// ListSessions returns the user's live sessions, newest first.
func (e *Engine) ListSessions(ctx context.Context, userID string) ([]*SessionInfo, error) {
	if err := e.checkReady(); err != nil {
		return nil, err
	}
	out, err := e.sessions.ListActive(ctx, userID)
	if err != nil {
		return nil, mapBackendErr(err)
	}
	return out, nil
}

// SweepExpiredSessions removes rows whose expiry has passed and returns the
// count. StartMaintenance runs this on a timer; it is exported for
// deployments that schedule their own sweeps.
func (e *Engine) SweepExpiredSessions(ctx context.Context) (int, error) {
	if err := e.checkReady(); err != nil {
		return 0, err
	}
	n, err := e.sessions.SweepExpired(ctx)
	if err != nil {
		return n, mapBackendErr(err)
	}
	if n > 0 {
		e.metrics.add(MetricSessionsSwept, uint64(n))
		e.emit(ctx, AuditEvent{EventType: AuditSessionSweep, Success: true, Metadata: map[string]string{"swept": strconv.Itoa(n)}})
	}
	return n, nil
}
