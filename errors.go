package authcore

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by the engine. Callers should match them with
// errors.Is; some carry typed wrappers (LockedError, RateLimitedError)
// that expose detail via errors.As.
var (
	// ErrInvalidCredentials is returned when the identity is unknown or
	// the password does not match. The two cases are deliberately
	// indistinguishable to callers.
	ErrInvalidCredentials = errors.New("authcore: invalid credentials")

	// ErrAccountLocked is returned when the account is under an active
	// lockout. Use errors.As with *LockedError to read the expiry.
	ErrAccountLocked = errors.New("authcore: account locked")

	// ErrRateLimited is returned when the identity (or client IP) has
	// exhausted its attempt window. Use errors.As with *RateLimitedError.
	ErrRateLimited = errors.New("authcore: rate limited")

	// ErrTokenInvalid covers any access token that fails validation:
	// bad signature, unknown key, wrong issuer or audience, wrong type.
	ErrTokenInvalid = errors.New("authcore: token invalid")

	// ErrTokenExpired is returned by Refresh for a structurally valid,
	// correctly signed refresh token whose expiry has passed.
	ErrTokenExpired = errors.New("authcore: token expired")

	// ErrTokenMalformed is returned by Refresh when the presented string
	// is not a parseable JWT at all.
	ErrTokenMalformed = errors.New("authcore: token malformed")

	// ErrSessionNotFound is returned when a session row does not exist,
	// typically because it was revoked or already swept.
	ErrSessionNotFound = errors.New("authcore: session not found")

	// ErrUserNotFound is returned by directory-backed admin operations
	// for an unknown user ID. Login never returns it.
	ErrUserNotFound = errors.New("authcore: user not found")

	// ErrEngineNotReady is returned when the engine is used before Build
	// completed or after Close.
	ErrEngineNotReady = errors.New("authcore: engine not ready")

	// ErrBackendUnavailable is returned when Redis or the key store
	// cannot be reached.
	ErrBackendUnavailable = errors.New("authcore: backend unavailable")

	// ErrMFARequired is carried inside LoginResult rather than returned;
	// exported for callers that prefer error-style signaling.
	ErrMFARequired = errors.New("authcore: mfa required")
)

// LockedError reports an active lockout and when it ends.
// It matches ErrAccountLocked under errors.Is.
type LockedError struct {
	Until time.Time
}

func (e *LockedError) Error() string {
	return fmt.Sprintf("authcore: account locked until %s", e.Until.UTC().Format(time.RFC3339))
}

func (e *LockedError) Is(target error) bool { return target == ErrAccountLocked }

// RateLimitedError reports an exhausted attempt window.
// It matches ErrRateLimited under errors.Is.
type RateLimitedError struct {
	// Remaining attempts left in the window, zero when Login rejects.
	// [Engine.RemainingAttempts] reports the live value ahead of time.
	Remaining int
}

func (e *RateLimitedError) Error() string { return "authcore: rate limited" }

func (e *RateLimitedError) Is(target error) bool { return target == ErrRateLimited }
