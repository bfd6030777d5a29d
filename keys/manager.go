package keys

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

const (
	rsaKeyBits         = 2048
	defaultLifetime    = 24 * time.Hour
	defaultRotateAfter = 0.75
)

// Config holds key lifecycle tuning.
type Config struct {
	// Lifetime is how long a key stays verification-eligible after creation.
	Lifetime time.Duration
	// RotateAfter is the fraction of Lifetime after which ShouldRotate
	// reports true for the active key. Must be in (0, 1).
	RotateAfter float64
}

type activeKey struct {
	kid       string
	signer    *rsa.PrivateKey
	createdAt time.Time
	expiresAt time.Time
}

// Manager owns the active signing key and the verification key set.
//
// Reads (CurrentSigningKey, VerificationKey) are lock-cheap cache hits;
// rotation is the single critical section and is serialized so that
// concurrent Rotate calls collapse into one actual rotation.
type Manager struct {
	store Store
	clock clockwork.Clock
	cfg   Config
	warn  func(format string, args ...any)

	// rotateMu serializes rotation and bootstrap. pending is the in-flight
	// rotation, if any; callers arriving while it runs join it and share
	// its result instead of producing a second key.
	rotateMu sync.Mutex
	pendMu   sync.Mutex
	pending  *rotationResult

	mu     sync.RWMutex
	active *activeKey
	verify map[string]*SigningKey
}

// rotationResult is one in-flight rotation. done is closed once kid and err
// are set.
type rotationResult struct {
	done chan struct{}
	kid  string
	err  error
}

// NewManager creates a Manager over the given store. A nil clock defaults to
// the real clock; a nil warn hook discards diagnostics.
func NewManager(store Store, cfg Config, clock clockwork.Clock, warn func(string, ...any)) (*Manager, error) {
	if store == nil {
		return nil, errors.New("key store required")
	}
	if cfg.Lifetime <= 0 {
		cfg.Lifetime = defaultLifetime
	}
	if cfg.RotateAfter == 0 {
		cfg.RotateAfter = defaultRotateAfter
	}
	if cfg.RotateAfter <= 0 || cfg.RotateAfter >= 1 {
		return nil, errors.New("rotate-after fraction must be in (0, 1)")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if warn == nil {
		warn = func(string, ...any) {}
	}
	return &Manager{
		store:  store,
		clock:  clock,
		cfg:    cfg,
		warn:   warn,
		verify: make(map[string]*SigningKey),
	}, nil
}

// CurrentSigningKey returns the active private key and its kid, bootstrapping
// a first key if none exists yet.
func (m *Manager) CurrentSigningKey(ctx context.Context) (*rsa.PrivateKey, string, error) {
	if a := m.snapshotActive(); a != nil && m.clock.Now().Before(a.expiresAt) {
		return a.signer, a.kid, nil
	}

	m.rotateMu.Lock()
	defer m.rotateMu.Unlock()

	// A concurrent bootstrap or rotation may have installed a key while we
	// waited for the lock.
	if a := m.snapshotActive(); a != nil && m.clock.Now().Before(a.expiresAt) {
		return a.signer, a.kid, nil
	}

	a, err := m.loadActiveLocked(ctx)
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return nil, "", err
	}
	if a == nil {
		if _, err := m.rotateLocked(ctx); err != nil {
			return nil, "", err
		}
		a = m.snapshotActive()
	}
	return a.signer, a.kid, nil
}

// VerificationKey returns the public key stored under kid if the key has not
// expired, ErrKeyNotFound otherwise. Demoted keys stay resolvable here until
// their own expiry.
func (m *Manager) VerificationKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	now := m.clock.Now()

	m.mu.RLock()
	cached, ok := m.verify[kid]
	m.mu.RUnlock()

	if !ok {
		loaded, err := m.store.Get(ctx, kid)
		if err != nil {
			return nil, err
		}
		m.mu.Lock()
		m.verify[kid] = loaded
		m.mu.Unlock()
		cached = loaded
	}

	if cached.Expired(now) {
		return nil, ErrKeyNotFound
	}
	return parsePublicPEM(cached.PublicPEM)
}

// ShouldRotate reports whether no usable active key exists, or the active key
// has passed the configured fraction of its lifetime.
func (m *Manager) ShouldRotate(ctx context.Context) bool {
	a := m.snapshotActive()
	if a == nil {
		m.rotateMu.Lock()
		due := m.dueLocked(ctx)
		m.rotateMu.Unlock()
		return due
	}
	return m.due(a)
}

func (m *Manager) due(a *activeKey) bool {
	now := m.clock.Now()
	if !now.Before(a.expiresAt) {
		return true
	}
	threshold := time.Duration(float64(m.cfg.Lifetime) * m.cfg.RotateAfter)
	return now.Sub(a.createdAt) > threshold
}

// dueLocked requires rotateMu. A missing or unreadable active key counts as
// due so the caller bootstraps one.
func (m *Manager) dueLocked(ctx context.Context) bool {
	a, err := m.loadActiveLocked(ctx)
	if err != nil || a == nil {
		return true
	}
	return m.due(a)
}

// Rotate generates a new keypair, persists it as active, and demotes the
// previous active key. Concurrent callers collapse into one rotation: anyone
// queued behind an in-flight rotation observes its result instead of
// producing a second key.
func (m *Manager) Rotate(ctx context.Context) (string, error) {
	r, leader := m.joinRotation()
	if !leader {
		select {
		case <-r.done:
			return r.kid, r.err
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.rotateMu.Lock()
	kid, err := m.rotateLocked(ctx)
	m.rotateMu.Unlock()

	m.finishRotation(r, kid, err)
	return kid, err
}

// RotateIfNeeded rotates only when ShouldRotate holds, re-checking under the
// rotation lock. It returns the active kid and whether a rotation happened.
func (m *Manager) RotateIfNeeded(ctx context.Context) (string, bool, error) {
	if !m.ShouldRotate(ctx) {
		a := m.snapshotActive()
		return a.kid, false, nil
	}

	r, leader := m.joinRotation()
	if !leader {
		select {
		case <-r.done:
			return r.kid, false, r.err
		case <-ctx.Done():
			return "", false, ctx.Err()
		}
	}

	m.rotateMu.Lock()
	if !m.dueLocked(ctx) {
		a := m.snapshotActive()
		m.rotateMu.Unlock()
		m.finishRotation(r, a.kid, nil)
		return a.kid, false, nil
	}
	kid, err := m.rotateLocked(ctx)
	m.rotateMu.Unlock()

	m.finishRotation(r, kid, err)
	return kid, err == nil, err
}

// joinRotation registers the caller in the current rotation round. The first
// caller becomes the leader and must call finishRotation; later callers get
// leader == false and wait on r.done.
func (m *Manager) joinRotation() (r *rotationResult, leader bool) {
	m.pendMu.Lock()
	defer m.pendMu.Unlock()
	if m.pending != nil {
		return m.pending, false
	}
	m.pending = &rotationResult{done: make(chan struct{})}
	return m.pending, true
}

func (m *Manager) finishRotation(r *rotationResult, kid string, err error) {
	r.kid, r.err = kid, err
	m.pendMu.Lock()
	m.pending = nil
	m.pendMu.Unlock()
	close(r.done)
}

func (m *Manager) snapshotActive() *activeKey {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.active
}

// rotateLocked requires rotateMu. Write order is new-key-then-demote: once
// the new active key is persisted the rotation is committed, so a crash can
// strand a stale active flag but never leave zero active keys. loadActiveLocked
// resolves duplicate flags newest-first.
func (m *Manager) rotateLocked(ctx context.Context) (string, error) {
	prev, err := m.loadActiveLocked(ctx)
	if err != nil && !errors.Is(err, ErrKeyNotFound) {
		return "", err
	}

	signer, err := rsa.GenerateKey(rand.Reader, rsaKeyBits)
	if err != nil {
		return "", fmt.Errorf("generate signing key: %w", err)
	}

	now := m.clock.Now()
	record := &SigningKey{
		KID:        uuid.NewString(),
		Algorithm:  Algorithm,
		PublicPEM:  marshalPublicPEM(&signer.PublicKey),
		PrivatePEM: marshalPrivatePEM(signer),
		IsActive:   true,
		CreatedAt:  now,
		ExpiresAt:  now.Add(m.cfg.Lifetime),
	}
	if err := m.store.Put(ctx, record); err != nil {
		return "", fmt.Errorf("persist signing key: %w", err)
	}

	m.mu.Lock()
	m.active = &activeKey{
		kid:       record.KID,
		signer:    signer,
		createdAt: record.CreatedAt,
		expiresAt: record.ExpiresAt,
	}
	m.verify[record.KID] = record
	m.mu.Unlock()

	if prev != nil && prev.kid != record.KID {
		demoted, err := m.store.Get(ctx, prev.kid)
		if err == nil {
			demoted.IsActive = false
			if err := m.store.Put(ctx, demoted); err != nil {
				m.warn("authcore: demote of signing key %s failed: %v", prev.kid, err)
			} else {
				m.mu.Lock()
				m.verify[demoted.KID] = demoted
				m.mu.Unlock()
			}
		} else {
			m.warn("authcore: demote read of signing key %s failed: %v", prev.kid, err)
		}
	}

	return record.KID, nil
}

// loadActiveLocked requires rotateMu. Finds the newest unexpired active key
// in the store, installs it in the cache, and returns it. Returns nil when no
// usable key exists.
func (m *Manager) loadActiveLocked(ctx context.Context) (*activeKey, error) {
	if a := m.snapshotActive(); a != nil && m.clock.Now().Before(a.expiresAt) {
		return a, nil
	}

	stored, err := m.store.List(ctx)
	if err != nil {
		return nil, err
	}

	now := m.clock.Now()
	var newest *SigningKey
	for _, key := range stored {
		if !key.IsActive || key.Expired(now) {
			continue
		}
		if newest == nil || key.CreatedAt.After(newest.CreatedAt) {
			newest = key
		}
	}
	if newest == nil {
		return nil, nil
	}

	signer, err := parsePrivatePEM(newest.PrivatePEM)
	if err != nil {
		return nil, fmt.Errorf("parse stored signing key %s: %w", newest.KID, err)
	}

	a := &activeKey{
		kid:       newest.KID,
		signer:    signer,
		createdAt: newest.CreatedAt,
		expiresAt: newest.ExpiresAt,
	}
	m.mu.Lock()
	m.active = a
	m.verify[newest.KID] = newest
	m.mu.Unlock()
	return a, nil
}

func marshalPrivatePEM(key *rsa.PrivateKey) []byte {
	der, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		// MarshalPKCS8 cannot fail for an *rsa.PrivateKey we just generated.
		panic(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
}

func marshalPublicPEM(key *rsa.PublicKey) []byte {
	der, err := x509.MarshalPKIXPublicKey(key)
	if err != nil {
		panic(err)
	}
	return pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der})
}

func parsePrivatePEM(data []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block in private material")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, errors.New("private material is not an RSA key")
	}
	return key, nil
}

func parsePublicPEM(data []byte) (*rsa.PublicKey, error) {
	block, _ := pem.Decode(data)
	if block == nil {
		return nil, errors.New("no PEM block in public material")
	}
	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PublicKey)
	if !ok {
		return nil, errors.New("public material is not an RSA key")
	}
	return key, nil
}
