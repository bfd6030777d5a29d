package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, cfg Config) (*Limiter, *clockwork.FakeClock) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	clock := clockwork.NewFakeClock()
	return New(rdb, cfg, clock), clock
}

func TestLimiter_BudgetExhaustion(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{MaxAttempts: 5, Window: 15 * time.Minute})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		allowed, err := limiter.Allowed(ctx, "alice", "")
		if err != nil {
			t.Fatalf("Allowed: %v", err)
		}
		if !allowed {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
		if err := limiter.Record(ctx, "alice", "", false); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	allowed, err := limiter.Allowed(ctx, "alice", "")
	if err != nil {
		t.Fatalf("Allowed: %v", err)
	}
	if allowed {
		t.Fatal("sixth attempt inside the window should be rejected")
	}

	// A different identity has its own budget.
	allowed, err = limiter.Allowed(ctx, "bob", "")
	if err != nil {
		t.Fatalf("Allowed: %v", err)
	}
	if !allowed {
		t.Fatal("unrelated identity should not be throttled")
	}
}

func TestLimiter_WindowSlides(t *testing.T) {
	limiter, clock := newTestLimiter(t, Config{MaxAttempts: 2, Window: 15 * time.Minute})
	ctx := context.Background()

	if err := limiter.Record(ctx, "alice", "", false); err != nil {
		t.Fatalf("Record: %v", err)
	}
	clock.Advance(10 * time.Minute)
	if err := limiter.Record(ctx, "alice", "", false); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if allowed, _ := limiter.Allowed(ctx, "alice", ""); allowed {
		t.Fatal("budget should be exhausted")
	}

	// Six more minutes and the first attempt falls out of the window.
	clock.Advance(6 * time.Minute)
	if allowed, _ := limiter.Allowed(ctx, "alice", ""); !allowed {
		t.Fatal("attempt should be allowed once the oldest entry expired")
	}

	remaining, err := limiter.Remaining(ctx, "alice")
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 1 {
		t.Fatalf("remaining = %d, want 1", remaining)
	}
}

func TestLimiter_Remaining(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{MaxAttempts: 3, Window: time.Minute})
	ctx := context.Background()

	remaining, err := limiter.Remaining(ctx, "alice")
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 3 {
		t.Fatalf("remaining = %d, want 3", remaining)
	}

	for i := 0; i < 4; i++ {
		if err := limiter.Record(ctx, "alice", "", false); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}
	remaining, err = limiter.Remaining(ctx, "alice")
	if err != nil {
		t.Fatalf("Remaining: %v", err)
	}
	if remaining != 0 {
		t.Fatalf("remaining = %d, want 0 (never negative)", remaining)
	}
}

func TestLimiter_IPThrottle(t *testing.T) {
	limiter, _ := newTestLimiter(t, Config{MaxAttempts: 3, Window: time.Minute, EnableIPThrottle: true})
	ctx := context.Background()

	// Three different identities from one address exhaust the IP budget.
	for _, identity := range []string{"a", "b", "c"} {
		if err := limiter.Record(ctx, identity, "10.0.0.9", false); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	allowed, err := limiter.Allowed(ctx, "d", "10.0.0.9")
	if err != nil {
		t.Fatalf("Allowed: %v", err)
	}
	if allowed {
		t.Fatal("fourth identity from a saturated IP should be rejected")
	}

	// Same identity from a clean address is fine.
	allowed, err = limiter.Allowed(ctx, "d", "10.0.0.10")
	if err != nil {
		t.Fatalf("Allowed: %v", err)
	}
	if !allowed {
		t.Fatal("clean IP should be allowed")
	}
}
