package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLogout_RevokesAndIsIdempotent(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()
	first := login(t, engine)

	if err := engine.LogoutToken(ctx, first.RefreshToken); err != nil {
		t.Fatalf("LogoutToken: %v", err)
	}

	sessions, err := engine.ListSessions(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("got %d sessions after logout, want 0", len(sessions))
	}

	// Logging out again is fine.
	if err := engine.LogoutToken(ctx, first.RefreshToken); err != nil {
		t.Fatalf("repeat LogoutToken: %v", err)
	}

	// Access tokens are stateless; logout does not recall them.
	if _, err := engine.ValidateAccessToken(ctx, first.AccessToken); err != nil {
		t.Fatalf("access token after logout: %v", err)
	}
}

func TestLogoutToken_Garbage(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	if err := engine.LogoutToken(context.Background(), "not-a-jwt"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("got %v, want ErrTokenMalformed", err)
	}
}

func TestLogoutAll(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	login(t, engine)
	login(t, engine)
	login(t, engine)

	n, err := engine.LogoutAll(ctx, "user-1")
	if err != nil {
		t.Fatalf("LogoutAll: %v", err)
	}
	if n != 3 {
		t.Fatalf("revoked %d sessions, want 3", n)
	}

	sessions, err := engine.ListSessions(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("got %d sessions, want 0", len(sessions))
	}
}

func TestSweepExpiredSessions(t *testing.T) {
	engine, _, clock := newTestEngine(t, nil)
	ctx := context.Background()

	first := login(t, engine)
	clock.Advance(4 * time.Hour)
	second := login(t, engine)

	// First session (8h TTL) expires; the second is 4h old.
	clock.Advance(4*time.Hour + time.Second)

	n, err := engine.SweepExpiredSessions(ctx)
	if err != nil {
		t.Fatalf("SweepExpiredSessions: %v", err)
	}
	if n != 1 {
		t.Fatalf("swept %d sessions, want 1", n)
	}

	if _, err := engine.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("swept token: got %v, want ErrTokenExpired", err)
	}
	if _, err := engine.Refresh(ctx, second.RefreshToken); err != nil {
		t.Fatalf("live token rejected: %v", err)
	}
}

func TestLockAccount_RevokesSessions(t *testing.T) {
	engine, _, clock := newTestEngine(t, nil)
	ctx := context.Background()
	first := login(t, engine)

	if err := engine.LockAccount(ctx, "user-1", time.Hour); err != nil {
		t.Fatalf("LockAccount: %v", err)
	}

	locked, until, err := engine.AccountLocked(ctx, "user-1")
	if err != nil {
		t.Fatalf("AccountLocked: %v", err)
	}
	if !locked {
		t.Fatal("account should be locked")
	}
	if want := clock.Now().Add(time.Hour); !until.Equal(want) {
		t.Fatalf("locked until %v, want %v", until, want)
	}

	// Sessions died with the lock.
	if _, err := engine.Refresh(ctx, first.RefreshToken); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("got %v, want ErrSessionNotFound", err)
	}
	if _, err := engine.Login(ctx, "alice", "correct-horse"); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("got %v, want ErrAccountLocked", err)
	}

	if err := engine.UnlockAccount(ctx, "user-1"); err != nil {
		t.Fatalf("UnlockAccount: %v", err)
	}
	if _, err := engine.Login(ctx, "alice", "correct-horse"); err != nil {
		t.Fatalf("login after unlock: %v", err)
	}
}

func TestLockAccount_UnknownUser(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	if err := engine.LockAccount(context.Background(), "ghost", time.Hour); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("got %v, want ErrUserNotFound", err)
	}
	if err := engine.UnlockAccount(context.Background(), "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("got %v, want ErrUserNotFound", err)
	}
}
