package token

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// unverifiedClaims parses the payload without checking the signature or any
// registered claim. Diagnostic use only.
func unverifiedClaims(compact string) *Claims {
	claims := &Claims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(compact, claims); err != nil {
		return nil
	}
	return claims
}

// ExtractSubject returns the sub claim of a token without verifying it.
// Malformed input yields the empty string, never an error.
func ExtractSubject(compact string) string {
	claims := unverifiedClaims(compact)
	if claims == nil {
		return ""
	}
	return claims.Subject
}

// ExtractJTI returns the jti claim of a token without verifying it.
func ExtractJTI(compact string) string {
	claims := unverifiedClaims(compact)
	if claims == nil {
		return ""
	}
	return claims.ID
}

// ExtractExpiry returns the exp claim of a token without verifying it.
// Malformed input or a missing exp yields the zero time.
func ExtractExpiry(compact string) time.Time {
	claims := unverifiedClaims(compact)
	if claims == nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
