package keys

import (
	"context"
	"errors"
)

// ErrKeyNotFound is returned by [Store.Get] when no key exists under the kid.
var ErrKeyNotFound = errors.New("signing key not found")

// ErrStoreUnavailable indicates the key storage backend is unreachable.
var ErrStoreUnavailable = errors.New("key store unavailable")

// ErrSealedMaterial indicates stored private material failed authenticated
// decryption (wrong master secret or tampered record).
var ErrSealedMaterial = errors.New("sealed key material invalid")

// Store is the durable persistence boundary for signing keys. Implementations
// are responsible for encrypting private material at rest; callers always see
// plaintext PEM on both sides of the interface, so the concrete mechanism
// (Redis, secret manager, HSM) is swappable without touching Manager logic.
type Store interface {
	// Put persists the key record, overwriting any record with the same kid.
	Put(ctx context.Context, key *SigningKey) error

	// Get returns the key stored under kid, or ErrKeyNotFound.
	Get(ctx context.Context, kid string) (*SigningKey, error)

	// List returns every stored key, expired ones included. Order is not
	// defined; callers filter and sort.
	List(ctx context.Context) ([]*SigningKey, error)
}
