package keys

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/hkdf"
)

const (
	sealedKeySize = 32 // AES-256
	minMasterLen  = 16
)

// RedisStore persists signing keys in Redis with the private PEM sealed by
// AES-256-GCM. The per-key sealing key is derived from the configured master
// secret and the kid via HKDF-SHA256, so two records never share a cipher key
// and a record cannot be replayed under another kid.
type RedisStore struct {
	rdb    redis.UniversalClient
	prefix string
	master []byte
}

type sealedRecord struct {
	KID       string `json:"kid"`
	Algorithm string `json:"alg"`
	PublicPEM []byte `json:"public_pem"`
	Sealed    []byte `json:"sealed"` // nonce || AES-GCM(private_pem)
	IsActive  bool   `json:"is_active"`
	CreatedAt int64  `json:"created_at"`
	ExpiresAt int64  `json:"expires_at"`
}

// NewRedisStore creates a Redis-backed key store. The master secret must be
// at least 16 bytes; it is stretched per key, never used directly.
func NewRedisStore(rdb redis.UniversalClient, prefix string, master []byte) (*RedisStore, error) {
	if rdb == nil {
		return nil, errors.New("redis client required")
	}
	if len(master) < minMasterLen {
		return nil, fmt.Errorf("master secret must be at least %d bytes", minMasterLen)
	}
	if prefix == "" {
		prefix = "ak"
	}
	return &RedisStore{
		rdb:    rdb,
		prefix: prefix,
		master: append([]byte(nil), master...),
	}, nil
}

func (s *RedisStore) keyName(kid string) string {
	return s.prefix + ":key:" + kid
}

func (s *RedisStore) indexName() string {
	return s.prefix + ":kids"
}

// Put seals the private PEM and writes the record plus an index entry.
func (s *RedisStore) Put(ctx context.Context, key *SigningKey) error {
	sealed, err := s.seal(key.KID, key.PrivatePEM)
	if err != nil {
		return err
	}

	rec := sealedRecord{
		KID:       key.KID,
		Algorithm: key.Algorithm,
		PublicPEM: key.PublicPEM,
		Sealed:    sealed,
		IsActive:  key.IsActive,
		CreatedAt: key.CreatedAt.Unix(),
		ExpiresAt: key.ExpiresAt.Unix(),
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, s.keyName(key.KID), data, 0)
	pipe.SAdd(ctx, s.indexName(), key.KID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Get reads and unseals the record stored under kid.
func (s *RedisStore) Get(ctx context.Context, kid string) (*SigningKey, error) {
	data, err := s.rdb.Get(ctx, s.keyName(kid)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return s.decode(kid, data)
}

// List returns every indexed key. Index entries whose record has vanished are
// skipped rather than treated as errors.
func (s *RedisStore) List(ctx context.Context) ([]*SigningKey, error) {
	kids, err := s.rdb.SMembers(ctx, s.indexName()).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	out := make([]*SigningKey, 0, len(kids))
	for _, kid := range kids {
		key, err := s.Get(ctx, kid)
		if err != nil {
			if errors.Is(err, ErrKeyNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, key)
	}
	return out, nil
}

func (s *RedisStore) decode(kid string, data []byte) (*SigningKey, error) {
	var rec sealedRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSealedMaterial, err)
	}
	if rec.KID != kid {
		return nil, ErrSealedMaterial
	}

	privatePEM, err := s.open(kid, rec.Sealed)
	if err != nil {
		return nil, err
	}

	return &SigningKey{
		KID:        rec.KID,
		Algorithm:  rec.Algorithm,
		PublicPEM:  rec.PublicPEM,
		PrivatePEM: privatePEM,
		IsActive:   rec.IsActive,
		CreatedAt:  unixTime(rec.CreatedAt),
		ExpiresAt:  unixTime(rec.ExpiresAt),
	}, nil
}

func (s *RedisStore) seal(kid string, plaintext []byte) ([]byte, error) {
	gcm, err := s.cipherFor(kid)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return gcm.Seal(nonce, nonce, plaintext, []byte(kid)), nil
}

func (s *RedisStore) open(kid string, sealed []byte) ([]byte, error) {
	gcm, err := s.cipherFor(kid)
	if err != nil {
		return nil, err
	}
	if len(sealed) < gcm.NonceSize() {
		return nil, ErrSealedMaterial
	}

	nonce, ciphertext := sealed[:gcm.NonceSize()], sealed[gcm.NonceSize():]
	plaintext, err := gcm.Open(nil, nonce, ciphertext, []byte(kid))
	if err != nil {
		return nil, ErrSealedMaterial
	}
	return plaintext, nil
}

func (s *RedisStore) cipherFor(kid string) (cipher.AEAD, error) {
	derived := make([]byte, sealedKeySize)
	kdf := hkdf.New(sha256.New, s.master, nil, []byte("authcore/signing-key/"+kid))
	if _, err := io.ReadFull(kdf, derived); err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(derived)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
