// Package authcore provides an embeddable authentication core with RS256
// JWT access tokens, single-use rotating refresh tokens, Redis-backed
// sessions, live signing-key rotation, per-identity rate limiting and
// consecutive-failure lockout.
//
// The package is designed for concurrent server workloads: Engine methods
// are safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// and value types (UserRecord, TokenPair, SessionInfo). Rate limiting,
// lockout bookkeeping and audit dispatch live under internal/ and are never
// exported; token issuance, key management, sessions and password hashing
// live in importable subpackages for embedders that need only a slice of
// the engine.
//
// # What this package must NOT do
//
//   - Own account storage. Users live in the embedding application, reached
//     through [UserDirectory]; the engine writes back only lockout state.
//   - Distinguish unknown identities from wrong passwords in any
//     caller-visible way.
//   - Let audit or metrics failures propagate into auth operations.
//
// # Liveness contract
//
// The session table is the single source of truth for refresh-token
// liveness. A refresh token whose row is gone is dead regardless of its
// signature or expiry; JWT validation alone never grants a refresh.
package authcore
