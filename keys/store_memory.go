package keys

import (
	"context"
	"sync"
)

// MemoryStore is an in-process [Store] for tests and single-node setups that
// accept losing keys on restart. It applies no encryption: material never
// leaves the process.
type MemoryStore struct {
	mu   sync.RWMutex
	keys map[string]*SigningKey
}

// NewMemoryStore creates an empty in-memory key store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{keys: make(map[string]*SigningKey)}
}

// Put stores a copy of the key record.
func (s *MemoryStore) Put(_ context.Context, key *SigningKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys[key.KID] = key.clone()
	return nil
}

// Get returns a copy of the record under kid, or ErrKeyNotFound.
func (s *MemoryStore) Get(_ context.Context, kid string) (*SigningKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	key, ok := s.keys[kid]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return key.clone(), nil
}

// List returns copies of all stored records.
func (s *MemoryStore) List(_ context.Context) ([]*SigningKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*SigningKey, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, key.clone())
	}
	return out, nil
}
