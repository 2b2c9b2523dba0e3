package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AuthClaims is the verified content of an access token.
type AuthClaims interface {
	Subject() string
	Issuer() string
	IssuedAt() time.Time
	Expires() time.Time
}

// JWTClaims is the concrete claim set carried by every token this
// layer issues: issuer, subject, issued-at, expiry. Authorization
// state (role, status) is deliberately not embedded; the resolver
// re-reads the principal so permissions never go stale with the token.
type JWTClaims struct {
	jwt.RegisteredClaims
}

var _ AuthClaims = (*JWTClaims)(nil)

// Subject returns the principal id the token asserts.
func (c *JWTClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Issuer returns the issuer claim.
func (c *JWTClaims) Issuer() string {
	return c.RegisteredClaims.Issuer
}

// IssuedAt returns the issuance instant.
func (c *JWTClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// Expires returns the expiry instant.
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}
