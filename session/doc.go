// Package session provides Redis-backed persistence for refresh-token
// sessions, keyed by the refresh token's jti.
//
// A refresh token is valid iff a non-expired session row exists under its
// jti; the session table is the single source of truth for refresh-token
// liveness, independent of the token's own embedded expiry claim.
//
// # Redis layout
//
//   - <prefix>:sess:<jti>: JSON row, TTL bound to the refresh lifetime
//   - <prefix>:usr:<uid>: ZSET of the user's jtis scored by creation time
//   - <prefix>:exp: ZSET of all jtis scored by expiry, drives sweeps
//
// # What this package must NOT do
//
//   - Interpret JWTs or enforce authentication policy.
//   - Import the authcore root package (no upward imports).
package session
