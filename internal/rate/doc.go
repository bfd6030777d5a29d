// Package rate implements the ephemeral per-identity attempt limiter that
// gates login admission.
//
// # Window semantics
//
// Sliding window over a Redis ZSET: each attempt is one member scored by its
// timestamp; pruning of entries older than the window happens lazily on read,
// never on a schedule. Key prefixes:
//
//   - rl: attempts per identity
//   - rli: attempts per client IP (optional second dimension)
//
// # Consistency contract
//
// Best-effort only. Concurrent read-modify-write races that under- or
// over-count by an attempt are tolerated; this layer is a speed bump against
// rapid automated attempts, not a hard guarantee. The durable lockout guard
// is the hard layer.
//
// # What this package must NOT do
//
//   - Persist anything beyond a TTL slightly longer than the window.
//   - Be imported outside the authcore module.
package rate
