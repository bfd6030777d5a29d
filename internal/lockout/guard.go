package lockout

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	defaultThreshold = 5
	defaultDuration  = 30 * time.Minute
)

// State is the lock bookkeeping persisted on a user record.
type State struct {
	FailedAttempts int
	LastAttemptAt  time.Time
	IsLocked       bool
	LockoutEnd     time.Time
}

// Directory is the persistence boundary for lock state. The engine adapts
// its user directory to this interface.
type Directory interface {
	LockState(ctx context.Context, userID string) (State, error)
	StoreLockState(ctx context.Context, userID string, state State) error
}

// Config holds lockout tuning.
type Config struct {
	Threshold int
	Duration  time.Duration
}

// Guard mutates lock state on every credential-check outcome. Counter
// updates are plain read-modify-write against the durable record; a lost
// update under heavy concurrent failures for one account is an accepted
// race, bounded by the lock itself triggering under that load anyway.
type Guard struct {
	dir   Directory
	cfg   Config
	clock clockwork.Clock
}

// NewGuard creates a Guard. Zero config fields fall back to 5 attempts and
// a 30 minute lock.
func NewGuard(dir Directory, cfg Config, clock clockwork.Clock) *Guard {
	if cfg.Threshold <= 0 {
		cfg.Threshold = defaultThreshold
	}
	if cfg.Duration <= 0 {
		cfg.Duration = defaultDuration
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Guard{dir: dir, cfg: cfg, clock: clock}
}

// Locked evaluates lock state lazily against the clock: a lock whose end has
// passed reads as unlocked without any unlock write.
func (g *Guard) Locked(state State) (bool, time.Time) {
	if state.IsLocked && state.LockoutEnd.After(g.clock.Now()) {
		return true, state.LockoutEnd
	}
	return false, time.Time{}
}

// OnFailure increments the failure counter and locks the account when the
// counter reaches the threshold. It returns the persisted state and whether
// this failure is the one that locked the account.
func (g *Guard) OnFailure(ctx context.Context, userID string, state State) (State, bool, error) {
	now := g.clock.Now()

	// An expired lock is implicitly over; restart the count instead of
	// stacking new failures on a window that already served its sentence.
	if state.IsLocked && !state.LockoutEnd.After(now) {
		state = State{}
	}

	state.FailedAttempts++
	state.LastAttemptAt = now

	lockedNow := false
	if !state.IsLocked && state.FailedAttempts >= g.cfg.Threshold {
		state.IsLocked = true
		state.LockoutEnd = now.Add(g.cfg.Duration)
		lockedNow = true
	}

	if err := g.dir.StoreLockState(ctx, userID, state); err != nil {
		return state, false, err
	}
	return state, lockedNow, nil
}

// OnSuccess clears the counter and any lock fields. Writing is skipped when
// the state is already clean, keeping the happy path write-free.
func (g *Guard) OnSuccess(ctx context.Context, userID string, state State) error {
	if state.FailedAttempts == 0 && !state.IsLocked {
		return nil
	}
	return g.dir.StoreLockState(ctx, userID, State{LastAttemptAt: state.LastAttemptAt})
}

// Lock imposes an explicit lock for the given duration, independent of the
// failure-counting path. A non-positive duration uses the configured one.
func (g *Guard) Lock(ctx context.Context, userID string, d time.Duration) error {
	if d <= 0 {
		d = g.cfg.Duration
	}

	state, err := g.dir.LockState(ctx, userID)
	if err != nil {
		return err
	}
	state.IsLocked = true
	state.LockoutEnd = g.clock.Now().Add(d)
	return g.dir.StoreLockState(ctx, userID, state)
}

// Unlock clears lock fields and the failure counter.
func (g *Guard) Unlock(ctx context.Context, userID string) error {
	return g.dir.StoreLockState(ctx, userID, State{})
}
