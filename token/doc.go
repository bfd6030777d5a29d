// Package token builds and checks the two JWT kinds the engine issues:
// short-lived RS256 access tokens and longer-lived refresh tokens.
//
// # Claims policy
//
// Access tokens carry subject, display name, email, and roles. Refresh tokens
// carry the subject and a token_type=refresh marker only, keeping the blast
// radius small if one leaks. Both embed the signing key id in the `kid`
// header so verification survives key rotation.
//
// # Validation posture
//
// Validate pins the algorithm to RS256, enforces issuer and audience, and
// applies zero clock-skew tolerance. Every failure collapses to one of two
// sentinels ([ErrExpired], [ErrInvalid]); the concrete reason is reported
// through the warn hook only. The Extract helpers read claims without
// verifying the signature and never fail; they exist for audit and
// diagnostics on tokens that may be garbage.
//
// # What this package must NOT do
//
//   - Decide session liveness (the session store is the source of truth for
//     refresh tokens).
//   - Import the authcore root package.
package token
