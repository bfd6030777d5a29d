package keys

import "time"

// Algorithm identifies the only signature scheme this engine issues.
const Algorithm = "RS256"

// SigningKey is a single RSA keypair record. PublicPEM is stored as given;
// PrivatePEM is sealed by Store implementations before it touches durable
// storage, so a SigningKey read back from a [Store] always carries the
// decrypted PEM.
//
// A key record is never mutated after creation except the IsActive flip
// performed during rotation.
type SigningKey struct {
	KID        string    `json:"kid"`
	Algorithm  string    `json:"alg"`
	PublicPEM  []byte    `json:"public_pem"`
	PrivatePEM []byte    `json:"private_pem"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Expired reports whether the key has passed its own expiry and is no longer
// usable, even for verification.
func (k *SigningKey) Expired(now time.Time) bool {
	return !now.Before(k.ExpiresAt)
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0).UTC()
}

func (k *SigningKey) clone() *SigningKey {
	c := *k
	c.PublicPEM = append([]byte(nil), k.PublicPEM...)
	c.PrivatePEM = append([]byte(nil), k.PrivatePEM...)
	return &c
}
