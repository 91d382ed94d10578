package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrExpired      = errors.New("jwtx: token expired")
	ErrIssuer       = errors.New("jwtx: issuer mismatch")
	ErrInvalidClaim = errors.New("jwtx: invalid claims")
)

// Claims carries the registered JWT claims plus the fields shadowgate
// cares about: OAuth-style scopes on session tokens and the active profile
// on minted profile tokens.
type Claims struct {
	jwt.RegisteredClaims

	// Scopes granted to the caller (space-separated "scope" claim style,
	// stored as a list here).
	Scopes []string `json:"scope,omitempty"`

	// Profile is the active profile ("real" or "shadow") asserted by a
	// profile token. Empty on session tokens.
	Profile string `json:"profile,omitempty"`

	// SessionID binds a token to a device session.
	SessionID string `json:"sid,omitempty"`
}

// NewClaims builds minimally-correct claims for a token issued now.
func NewClaims(issuer, subject string, ttl time.Duration) Claims {
	now := time.Now()
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

// ValidateIssuer checks the iss claim against the expected issuer.
// An empty expected issuer means "don't care".
func (c *Claims) ValidateIssuer(expected string) error {
	if expected == "" {
		return nil
	}
	if c.Issuer != expected {
		return ErrIssuer
	}
	return nil
}

// ValidateExpiry checks exp/nbf against the current time.
func (c *Claims) ValidateExpiry() error {
	now := time.Now()
	if c.ExpiresAt == nil || now.After(c.ExpiresAt.Time) {
		return ErrExpired
	}
	if c.NotBefore != nil && now.Before(c.NotBefore.Time) {
		return ErrInvalidClaim
	}
	return nil
}
