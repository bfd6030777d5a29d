package authcore

import (
	"context"
)

// ValidateAccessToken checks signature, expiry, issuer, audience and token
// type, and returns the embedded claims. Every rejection reason collapses
// into ErrTokenInvalid: callers of the access path get a yes or a no,
// nothing that helps an attacker distinguish forgeries from stale tokens.
func (e *Engine) ValidateAccessToken(ctx context.Context, accessToken string) (*Claims, error) {
	if err := e.checkReady(); err != nil {
		return nil, err
	}
	claims, err := e.issuer.Validate(ctx, accessToken)
	if err != nil {
		e.metrics.inc(MetricTokensRejected)
		return nil, ErrTokenInvalid
	}
	if claims.IsRefresh() {
		// A refresh token must never pass as an access token.
		e.metrics.inc(MetricTokensRejected)
		return nil, ErrTokenInvalid
	}
	e.metrics.inc(MetricTokensValidated)
	return claims, nil
}

// RotateSigningKey forces an immediate key rotation and returns the new
// key ID. Tokens signed by the previous key keep verifying until that
// key's own expiry.
func (e *Engine) RotateSigningKey(ctx context.Context) (string, error) {
	if err := e.checkReady(); err != nil {
		return "", err
	}
	kid, err := e.keys.Rotate(ctx)
	if err != nil {
		return "", mapBackendErr(err)
	}
	e.metrics.inc(MetricKeysRotated)
	e.emit(ctx, AuditEvent{EventType: AuditKeyRotated, Success: true, Metadata: map[string]string{"kid": kid}})
	return kid, nil
}

// RotateSigningKeyIfNeeded rotates only when the active key has passed its
// rotation point. Returns the active key ID and whether a rotation
// happened. The maintenance loop calls this every tick.
func (e *Engine) RotateSigningKeyIfNeeded(ctx context.Context) (string, bool, error) {
	if err := e.checkReady(); err != nil {
		return "", false, err
	}
	kid, rotated, err := e.keys.RotateIfNeeded(ctx)
	if err != nil {
		return "", false, mapBackendErr(err)
	}
	if rotated {
		e.metrics.inc(MetricKeysRotated)
		e.emit(ctx, AuditEvent{EventType: AuditKeyRotated, Success: true, Metadata: map[string]string{"kid": kid}})
	}
	return kid, rotated, nil
}
