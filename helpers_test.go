package authcore

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/jonboulle/clockwork"
	"github.com/redis/go-redis/v9"
)

// testDirectory is an in-memory UserDirectory seeded per test.
type testDirectory struct {
	mu    sync.Mutex
	users map[string]*UserRecord // by ID
}

func newTestDirectory() *testDirectory {
	return &testDirectory{users: make(map[string]*UserRecord)}
}

func (d *testDirectory) put(user *UserRecord) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[user.ID] = user
}

func (d *testDirectory) get(userID string) UserRecord {
	d.mu.Lock()
	defer d.mu.Unlock()
	return *d.users[userID]
}

func (d *testDirectory) FindByIdentity(_ context.Context, identity string) (*UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, user := range d.users {
		if user.Identity == identity {
			copy := *user
			return &copy, nil
		}
	}
	return nil, ErrUserNotFound
}

func (d *testDirectory) FindByID(_ context.Context, userID string) (*UserRecord, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	copy := *user
	return &copy, nil
}

func (d *testDirectory) SaveLockState(_ context.Context, userID string, state LockState) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	user, ok := d.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	user.FailedAttempts = state.FailedAttempts
	user.LastAttemptAt = state.LastAttemptAt
	user.IsLocked = state.IsLocked
	user.LockoutEnd = state.LockoutEnd
	return nil
}

// plainVerifier compares secrets directly so engine tests stay fast; the
// argon2 path has its own tests.
type plainVerifier struct{}

func (plainVerifier) Verify(secret, encodedHash string) (bool, error) {
	return secret == encodedHash, nil
}

func newTestEngine(t *testing.T, mutate func(*Config)) (*Engine, *testDirectory, *clockwork.FakeClock) {
	t.Helper()

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	cfg := DefaultConfig()
	cfg.Keys.MasterSecret = []byte("unit-test-master-secret")
	cfg.Audit.Enabled = false
	if mutate != nil {
		mutate(&cfg)
	}

	dir := newTestDirectory()
	dir.put(&UserRecord{
		ID:           "user-1",
		Identity:     "alice",
		DisplayName:  "Alice",
		Email:        "alice@example.com",
		PasswordHash: "correct-horse",
		Roles:        []string{"admin"},
	})

	clock := clockwork.NewFakeClock()
	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserDirectory(dir).
		WithCredentialVerifier(plainVerifier{}).
		WithClock(clock).
		WithWarnLogger(func(string, ...any) {}).
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine, dir, clock
}
