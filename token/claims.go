package token

import "github.com/golang-jwt/jwt/v5"

// TypeRefresh is the token_type claim value carried by refresh tokens.
// Access tokens omit the claim entirely.
const TypeRefresh = "refresh"

// Claims is the payload shape shared by access and refresh tokens.
type Claims struct {
	Name      string   `json:"name,omitempty"`
	Email     string   `json:"email,omitempty"`
	Roles     []string `json:"roles,omitempty"`
	TokenType string   `json:"token_type,omitempty"`
	jwt.RegisteredClaims
}

// IsRefresh reports whether the claims belong to a refresh token.
func (c *Claims) IsRefresh() bool {
	return c.TokenType == TypeRefresh
}
