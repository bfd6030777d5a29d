// Package lockout implements the durable per-account failed-attempt counter
// and lock state that backs the hard defense layer of the login flow.
//
// Lock state lives on the caller's user record, reached through the narrow
// [Directory] interface, so it survives restarts with the user store rather
// than with this process.
//
// # Lazy expiry
//
// A lock is only meaningful while its end lies in the future; past that point
// the account is implicitly unlocked with no background job required. Stale
// lock fields are cleared opportunistically on the next state write.
//
// # What this package must NOT do
//
//   - Compare credentials or decide what counts as a failed attempt.
//   - Import the authcore root package.
package lockout
