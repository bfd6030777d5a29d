package token

import (
	"context"
	"crypto/rsa"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
)

var (
	// ErrInvalid is the uniform validation failure: bad signature, unknown
	// kid, wrong issuer or audience, malformed input. Callers are not told
	// which; the reason goes to the warn hook.
	ErrInvalid = errors.New("invalid token")

	// ErrExpired is returned when the token parsed and verified but its exp
	// has passed.
	ErrExpired = errors.New("token expired")

	// ErrMalformed is returned when the input is not a parseable compact JWT
	// at all.
	ErrMalformed = errors.New("malformed token")
)

// minTTL is the floor applied to every issued token so a misconfigured
// zero-minute TTL cannot produce an already-expired token.
const minTTL = time.Second

// KeySource resolves signing and verification keys. *keys.Manager satisfies
// it; a nil KeySource makes the Issuer fall back to the static keypair in
// Config.
type KeySource interface {
	CurrentSigningKey(ctx context.Context) (*rsa.PrivateKey, string, error)
	VerificationKey(ctx context.Context, kid string) (*rsa.PublicKey, error)
}

// Config holds token issuance parameters.
type Config struct {
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	Issuer     string
	Audience   string

	// Fallback keypair used only when no KeySource is configured
	// (single-key deployments without a key-management backend).
	FallbackKID     string
	FallbackSigning *rsa.PrivateKey
	FallbackVerify  *rsa.PublicKey
}

// Subject carries the identity claims embedded in an access token.
type Subject struct {
	UserID string
	Name   string
	Email  string
	Roles  []string
}

// Issuer builds and validates signed tokens. Safe for concurrent use.
type Issuer struct {
	keys  KeySource
	cfg   Config
	clock clockwork.Clock
	warn  func(format string, args ...any)
}

// NewIssuer creates an Issuer. Either a KeySource or a fallback keypair must
// be present.
func NewIssuer(keys KeySource, cfg Config, clock clockwork.Clock, warn func(string, ...any)) (*Issuer, error) {
	if cfg.AccessTTL < 0 || cfg.RefreshTTL < 0 {
		return nil, errors.New("negative token TTL")
	}
	if keys == nil && (cfg.FallbackSigning == nil || cfg.FallbackVerify == nil) {
		return nil, errors.New("key source or fallback keypair required")
	}
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if warn == nil {
		warn = func(string, ...any) {}
	}
	return &Issuer{keys: keys, cfg: cfg, clock: clock, warn: warn}, nil
}

// IssueAccess signs a new access token for the subject and returns the
// compact string together with its jti.
func (i *Issuer) IssueAccess(ctx context.Context, sub Subject) (string, string, error) {
	claims := &Claims{
		Name:  sub.Name,
		Email: sub.Email,
		Roles: sub.Roles,
	}
	return i.sign(ctx, sub.UserID, claims, i.cfg.AccessTTL)
}

// IssueRefresh signs a new refresh token for the user. Identity claims are
// deliberately omitted.
func (i *Issuer) IssueRefresh(ctx context.Context, userID string) (string, string, error) {
	claims := &Claims{TokenType: TypeRefresh}
	return i.sign(ctx, userID, claims, i.cfg.RefreshTTL)
}

func (i *Issuer) sign(ctx context.Context, subject string, claims *Claims, ttl time.Duration) (string, string, error) {
	if ttl < minTTL {
		ttl = minTTL
	}

	now := i.clock.Now()
	jti := uuid.NewString()
	claims.RegisteredClaims = jwt.RegisteredClaims{
		Subject:   subject,
		ID:        jti,
		Issuer:    i.cfg.Issuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	if i.cfg.Audience != "" {
		claims.Audience = jwt.ClaimStrings{i.cfg.Audience}
	}

	signer, kid, err := i.signingKey(ctx)
	if err != nil {
		return "", "", err
	}

	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	if kid != "" {
		tok.Header["kid"] = kid
	}

	compact, err := tok.SignedString(signer)
	if err != nil {
		return "", "", err
	}
	return compact, jti, nil
}

func (i *Issuer) signingKey(ctx context.Context) (*rsa.PrivateKey, string, error) {
	if i.keys != nil {
		return i.keys.CurrentSigningKey(ctx)
	}
	return i.cfg.FallbackSigning, i.cfg.FallbackKID, nil
}

// Validate checks signature, issuer, audience, and expiry with zero skew and
// returns the claims. Failures map to ErrMalformed, ErrExpired, or ErrInvalid
// without further detail; the underlying reason is only warned.
func (i *Issuer) Validate(ctx context.Context, compact string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithTimeFunc(i.clock.Now),
		jwt.WithExpirationRequired(),
	}
	if i.cfg.Issuer != "" {
		options = append(options, jwt.WithIssuer(i.cfg.Issuer))
	}
	if i.cfg.Audience != "" {
		options = append(options, jwt.WithAudience(i.cfg.Audience))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(compact, &Claims{}, func(t *jwt.Token) (any, error) {
		return i.verificationKey(ctx, t)
	})
	if err != nil {
		i.warn("authcore: token validation failed: %v", err)
		switch {
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, ErrMalformed
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, ErrExpired
		default:
			return nil, ErrInvalid
		}
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalid
	}
	return claims, nil
}

func (i *Issuer) verificationKey(ctx context.Context, t *jwt.Token) (*rsa.PublicKey, error) {
	kid, _ := t.Header["kid"].(string)

	if i.keys != nil {
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		return i.keys.VerificationKey(ctx, kid)
	}

	if i.cfg.FallbackKID != "" && kid != "" && kid != i.cfg.FallbackKID {
		return nil, errors.New("unknown kid")
	}
	return i.cfg.FallbackVerify, nil
}
