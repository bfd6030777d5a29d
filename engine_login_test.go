package authcore

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLogin_Success(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := context.Background()

	result, err := engine.Login(ctx, "alice", "correct-horse")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if result.AccessToken == "" || result.RefreshToken == "" {
		t.Fatal("missing tokens")
	}
	if result.MFARequired {
		t.Fatal("unexpected MFA requirement")
	}

	claims, err := engine.ValidateAccessToken(ctx, result.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken: %v", err)
	}
	if claims.Subject != "user-1" || claims.Name != "Alice" {
		t.Fatalf("wrong claims: %+v", claims)
	}

	sessions, err := engine.ListSessions(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}

	if got := engine.Metrics()[MetricLoginSuccess]; got != 1 {
		t.Fatalf("login success counter = %d, want 1", got)
	}
}

func TestLogin_SuccessResetsFailureCounter(t *testing.T) {
	engine, dir, _ := newTestEngine(t, nil)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := engine.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("expected ErrInvalidCredentials, got %v", err)
		}
	}
	if got := dir.get("user-1").FailedAttempts; got != 2 {
		t.Fatalf("failed attempts = %d, want 2", got)
	}

	if _, err := engine.Login(ctx, "alice", "correct-horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}
	if got := dir.get("user-1").FailedAttempts; got != 0 {
		t.Fatalf("failed attempts after success = %d, want 0", got)
	}
}

func TestLogin_UnknownIdentity(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)

	_, err := engine.Login(context.Background(), "nobody", "whatever")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("got %v, want ErrInvalidCredentials", err)
	}
}

func TestLogin_LockoutAtThreshold(t *testing.T) {
	engine, _, clock := newTestEngine(t, func(cfg *Config) {
		cfg.Lockout.Threshold = 3
		cfg.Lockout.Duration = 30 * time.Minute
		cfg.RateLimit.MaxAttempts = 100 // keep the limiter out of this test
	})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, err := engine.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v, want ErrInvalidCredentials", i+1, err)
		}
	}

	// The failure that reaches the threshold reports the lock, not a
	// generic credential error.
	_, err := engine.Login(ctx, "alice", "wrong")
	if !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("threshold attempt: got %v, want ErrAccountLocked", err)
	}
	var locked *LockedError
	if !errors.As(err, &locked) {
		t.Fatalf("expected *LockedError, got %T", err)
	}
	if want := clock.Now().Add(30 * time.Minute); !locked.Until.Equal(want) {
		t.Fatalf("locked until %v, want %v", locked.Until, want)
	}

	// Correct credentials do not bypass an active lock.
	if _, err := engine.Login(ctx, "alice", "correct-horse"); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("got %v, want ErrAccountLocked", err)
	}

	// The lock expires on its own.
	clock.Advance(30*time.Minute + time.Second)
	if _, err := engine.Login(ctx, "alice", "correct-horse"); err != nil {
		t.Fatalf("login after lock expiry: %v", err)
	}
}

func TestLogin_RateLimited(t *testing.T) {
	engine, _, clock := newTestEngine(t, func(cfg *Config) {
		cfg.RateLimit.MaxAttempts = 3
		cfg.RateLimit.Window = 15 * time.Minute
		cfg.Lockout.Threshold = 100 // keep lockout out of this test
	})
	ctx := context.Background()

	if got, err := engine.RemainingAttempts(ctx, "alice"); err != nil || got != 3 {
		t.Fatalf("RemainingAttempts before any attempt = %d, %v; want 3", got, err)
	}

	for i := 0; i < 3; i++ {
		if _, err := engine.Login(ctx, "alice", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: got %v", i+1, err)
		}
	}

	// Budget exhausted: even correct credentials are refused.
	_, err := engine.Login(ctx, "alice", "correct-horse")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("got %v, want ErrRateLimited", err)
	}
	var limited *RateLimitedError
	if !errors.As(err, &limited) {
		t.Fatalf("expected *RateLimitedError, got %T", err)
	}
	if limited.Remaining != 0 {
		t.Fatalf("Remaining on rejection = %d, want 0", limited.Remaining)
	}
	if got, err := engine.RemainingAttempts(ctx, "alice"); err != nil || got != 0 {
		t.Fatalf("RemainingAttempts when exhausted = %d, %v; want 0", got, err)
	}

	clock.Advance(15*time.Minute + time.Second)
	if got, err := engine.RemainingAttempts(ctx, "alice"); err != nil || got != 3 {
		t.Fatalf("RemainingAttempts after window = %d, %v; want 3", got, err)
	}
	if _, err := engine.Login(ctx, "alice", "correct-horse"); err != nil {
		t.Fatalf("login after window: %v", err)
	}
}

func TestLogin_MFADefersTokenIssuance(t *testing.T) {
	engine, dir, _ := newTestEngine(t, nil)
	dir.put(&UserRecord{
		ID:           "user-2",
		Identity:     "bob",
		PasswordHash: "hunter2",
		MFAEnabled:   true,
	})
	ctx := context.Background()

	result, err := engine.Login(ctx, "bob", "hunter2")
	if err != nil {
		t.Fatalf("Login: %v", err)
	}
	if !result.MFARequired {
		t.Fatal("expected MFA requirement")
	}
	if result.AccessToken != "" || result.RefreshToken != "" {
		t.Fatal("tokens must not be issued before the second factor")
	}

	sessions, err := engine.ListSessions(ctx, "user-2")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 0 {
		t.Fatalf("got %d sessions before MFA, want 0", len(sessions))
	}
}

func TestLogin_SessionCapturesContext(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	ctx := WithDeviceInfo(WithClientIP(context.Background(), "10.1.2.3"), "cli/2.0")

	if _, err := engine.Login(ctx, "alice", "correct-horse"); err != nil {
		t.Fatalf("Login: %v", err)
	}

	sessions, err := engine.ListSessions(ctx, "user-1")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("got %d sessions, want 1", len(sessions))
	}
	if sessions[0].IP != "10.1.2.3" || sessions[0].DeviceInfo != "cli/2.0" {
		t.Fatalf("context not captured: %+v", sessions[0])
	}
}

func TestEngine_ClosedRejectsCalls(t *testing.T) {
	engine, _, _ := newTestEngine(t, nil)
	engine.Close()

	if _, err := engine.Login(context.Background(), "alice", "correct-horse"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("got %v, want ErrEngineNotReady", err)
	}
	if _, err := engine.Refresh(context.Background(), "x"); !errors.Is(err, ErrEngineNotReady) {
		t.Fatalf("got %v, want ErrEngineNotReady", err)
	}
}
