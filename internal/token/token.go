// Package token decodes access tokens issued by the gamefeed identity API.
//
// Tokens are decoded without signature verification: the server is the
// authority on token validity, and the client only inspects claims to derive
// the signed-in user for display and role gating. Nothing in this package is
// a trust boundary.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrMalformedToken is returned when a token cannot be parsed into the
// expected three-part structure or its payload is not valid JSON.
var ErrMalformedToken = errors.New("malformed token")

// Claims is the decoded payload of a gamefeed access token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
	Role  string `json:"role,omitempty"`
	Name  string `json:"name,omitempty"`
}

// Decode parses a compact JWT without verifying its signature.
func Decode(tokenString string) (*Claims, error) {
	claims := &Claims{}

	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}

	return claims, nil
}

// Expired reports whether the claims have expired at the given instant.
// A missing exp claim is treated as expired, matching the `exp * 1000 <= now`
// check the web client performs.
func (c *Claims) Expired(now time.Time) bool {
	if c.ExpiresAt == nil {
		return true
	}
	return !c.ExpiresAt.Time.After(now)
}

// UserID returns the subject claim, or empty when absent.
func (c *Claims) UserID() string {
	return c.RegisteredClaims.Subject
}
