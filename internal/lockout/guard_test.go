package lockout

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
)

type memoryDirectory struct {
	mu     sync.Mutex
	states map[string]State
}

func newMemoryDirectory() *memoryDirectory {
	return &memoryDirectory{states: make(map[string]State)}
}

func (d *memoryDirectory) LockState(_ context.Context, userID string) (State, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.states[userID], nil
}

func (d *memoryDirectory) StoreLockState(_ context.Context, userID string, state State) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.states[userID] = state
	return nil
}

func newTestGuard(cfg Config) (*Guard, *memoryDirectory, *clockwork.FakeClock) {
	dir := newMemoryDirectory()
	clock := clockwork.NewFakeClock()
	return NewGuard(dir, cfg, clock), dir, clock
}

func TestGuard_LocksAtThreshold(t *testing.T) {
	guard, dir, clock := newTestGuard(Config{Threshold: 3, Duration: 30 * time.Minute})
	ctx := context.Background()

	var state State
	for i := 0; i < 2; i++ {
		next, lockedNow, err := guard.OnFailure(ctx, "user-1", state)
		if err != nil {
			t.Fatalf("OnFailure: %v", err)
		}
		if lockedNow {
			t.Fatalf("failure %d should not lock", i+1)
		}
		state = next
	}

	state, lockedNow, err := guard.OnFailure(ctx, "user-1", state)
	if err != nil {
		t.Fatalf("OnFailure: %v", err)
	}
	if !lockedNow {
		t.Fatal("third failure should lock")
	}
	if want := clock.Now().Add(30 * time.Minute); !state.LockoutEnd.Equal(want) {
		t.Fatalf("lockout end = %v, want %v", state.LockoutEnd, want)
	}

	persisted, _ := dir.LockState(ctx, "user-1")
	if !persisted.IsLocked || persisted.FailedAttempts != 3 {
		t.Fatalf("persisted state wrong: %+v", persisted)
	}

	locked, until := guard.Locked(persisted)
	if !locked || !until.Equal(state.LockoutEnd) {
		t.Fatalf("Locked = %v until %v", locked, until)
	}
}

func TestGuard_LockExpiresLazily(t *testing.T) {
	guard, dir, clock := newTestGuard(Config{Threshold: 1, Duration: 10 * time.Minute})
	ctx := context.Background()

	if _, lockedNow, err := guard.OnFailure(ctx, "user-1", State{}); err != nil || !lockedNow {
		t.Fatalf("expected immediate lock, got lockedNow=%v err=%v", lockedNow, err)
	}

	state, _ := dir.LockState(ctx, "user-1")
	if locked, _ := guard.Locked(state); !locked {
		t.Fatal("should be locked")
	}

	// No unlock write happens; the expired lock just reads as unlocked.
	clock.Advance(10*time.Minute + time.Second)
	if locked, _ := guard.Locked(state); locked {
		t.Fatal("expired lock should read as unlocked")
	}
}

func TestGuard_StaleLockResetsCounter(t *testing.T) {
	guard, dir, clock := newTestGuard(Config{Threshold: 3, Duration: 10 * time.Minute})
	ctx := context.Background()

	stale := State{
		FailedAttempts: 3,
		IsLocked:       true,
		LockoutEnd:     clock.Now().Add(-time.Minute),
	}

	// A failure against an expired lock starts a fresh count instead of
	// stacking onto the old one.
	state, lockedNow, err := guard.OnFailure(ctx, "user-1", stale)
	if err != nil {
		t.Fatalf("OnFailure: %v", err)
	}
	if lockedNow {
		t.Fatal("first failure after lock expiry must not re-lock")
	}
	if state.FailedAttempts != 1 || state.IsLocked {
		t.Fatalf("counter not reset: %+v", state)
	}

	persisted, _ := dir.LockState(ctx, "user-1")
	if persisted.FailedAttempts != 1 {
		t.Fatalf("persisted counter = %d, want 1", persisted.FailedAttempts)
	}
}

func TestGuard_OnSuccessClearsState(t *testing.T) {
	guard, dir, _ := newTestGuard(Config{Threshold: 5, Duration: time.Minute})
	ctx := context.Background()

	state, _, err := guard.OnFailure(ctx, "user-1", State{})
	if err != nil {
		t.Fatalf("OnFailure: %v", err)
	}
	if err := guard.OnSuccess(ctx, "user-1", state); err != nil {
		t.Fatalf("OnSuccess: %v", err)
	}

	persisted, _ := dir.LockState(ctx, "user-1")
	if persisted.FailedAttempts != 0 || persisted.IsLocked {
		t.Fatalf("state not cleared: %+v", persisted)
	}
}

func TestGuard_ExplicitLockAndUnlock(t *testing.T) {
	guard, dir, clock := newTestGuard(Config{})
	ctx := context.Background()

	if err := guard.Lock(ctx, "user-1", time.Hour); err != nil {
		t.Fatalf("Lock: %v", err)
	}
	state, _ := dir.LockState(ctx, "user-1")
	locked, until := guard.Locked(state)
	if !locked {
		t.Fatal("explicit lock not effective")
	}
	if want := clock.Now().Add(time.Hour); !until.Equal(want) {
		t.Fatalf("lock until %v, want %v", until, want)
	}

	if err := guard.Unlock(ctx, "user-1"); err != nil {
		t.Fatalf("Unlock: %v", err)
	}
	state, _ = dir.LockState(ctx, "user-1")
	if locked, _ := guard.Locked(state); locked {
		t.Fatal("unlock not effective")
	}
	if state.FailedAttempts != 0 {
		t.Fatalf("unlock should clear the counter, got %d", state.FailedAttempts)
	}
}
