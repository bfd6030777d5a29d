// Package keys owns the signing-key lifecycle for the authentication engine:
// durable encrypted key storage, lazy bootstrap, and live rotation.
//
// # Components
//
//   - [SigningKey]: keypair record with kid, PEM material, and lifetime window.
//   - [Store]: durable persistence interface ([RedisStore], [MemoryStore]).
//   - [Manager]: active-key cache, rotation policy, rotation mutual exclusion.
//
// # Rotation model
//
// Exactly one key is active for new signatures at any time. Rotation creates
// a new active key and demotes the previous one to verification-only; demoted
// keys keep verifying tokens until their own expiry, which gives in-flight
// tokens a grace window instead of forcing immediate re-authentication.
//
// # What this package must NOT do
//
//   - Build or parse JWTs (that responsibility belongs to package token).
//   - Expose decrypted private material outside [Manager] signing calls.
//   - Import the authcore root package (no upward imports).
package keys
