package authcore

import (
	"context"
	"time"

	"github.com/halcyondev/authcore/internal/audit"
	"github.com/halcyondev/authcore/session"
	"github.com/halcyondev/authcore/token"
)

// UserRecord is the engine's view of a stored account. The embedding
// application owns persistence; the engine only reads credential and
// lockout fields and writes lockout fields back through SaveLockState.
type UserRecord struct {
	ID          string
	Identity    string
	DisplayName string
	Email       string

	// PasswordHash is whatever encoding the configured CredentialVerifier
	// understands. The default verifier expects an argon2id PHC string.
	PasswordHash string

	Roles      []string
	MFAEnabled bool

	// Lockout state. Managed by the engine; applications should treat
	// these as opaque and persist them verbatim.
	FailedAttempts int
	LastAttemptAt  time.Time
	IsLocked       bool
	LockoutEnd     time.Time
}

// LockState is the slice of UserRecord the engine writes back after a
// login attempt or an admin lock operation.
type LockState struct {
	FailedAttempts int
	LastAttemptAt  time.Time
	IsLocked       bool
	LockoutEnd     time.Time
}

// UserDirectory is the application-provided account lookup. FindByIdentity
// must return ErrUserNotFound (or any error matching it via errors.Is) for
// an unknown identity; the engine translates that to ErrInvalidCredentials
// before it reaches a caller.
type UserDirectory interface {
	FindByIdentity(ctx context.Context, identity string) (*UserRecord, error)
	FindByID(ctx context.Context, userID string) (*UserRecord, error)
	SaveLockState(ctx context.Context, userID string, state LockState) error
}

// CredentialVerifier checks a presented secret against a stored hash.
// Implementations must be constant-time with respect to the hash.
// *password.Argon2 satisfies this and is the default.
type CredentialVerifier interface {
	Verify(secret string, encodedHash string) (bool, error)
}

// TokenPair is an access/refresh token pair produced by Login or Refresh.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// LoginResult is the outcome of a successful credential check. When the
// account has MFA enabled, MFARequired is true and both tokens are empty;
// the caller is expected to run its second factor and call Login-level
// issuance through its own MFA flow.
type LoginResult struct {
	AccessToken  string
	RefreshToken string
	MFARequired  bool
}

// SessionInfo describes one live session, keyed by the refresh token's jti.
type SessionInfo = session.Session

// Claims is the validated claim set of an access token.
type Claims = token.Claims

// Subject re-exports the identity snapshot embedded in issued tokens.
type Subject = token.Subject

// AuditEvent and AuditSink re-export the audit surface so embedders can
// supply sinks without importing internal packages.
type (
	AuditEvent = audit.Event
	AuditSink  = audit.Sink
)

// Audit action names emitted by the engine.
const (
	AuditLoginSuccess   = "login.success"
	AuditLoginFailure   = "login.failure"
	AuditLoginLocked    = "login.locked"
	AuditLoginRateLimit = "login.rate_limited"
	AuditMFAChallenge   = "login.mfa_challenge"
	AuditRefreshSuccess = "refresh.success"
	AuditRefreshReuse   = "refresh.reuse"
	AuditLogout         = "session.logout"
	AuditLogoutAll      = "session.logout_all"
	AuditSessionSweep   = "session.sweep"
	AuditKeyRotated     = "keys.rotated"
	AuditAccountLock    = "account.lock"
	AuditAccountUnlock  = "account.unlock"
)
