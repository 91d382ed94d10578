package domain

import "time"

// ShadowCredential guards a user's shadow profile. At most one exists per
// user; its absence means the user has no shadow profile and can never be
// targeted by the switch gate.
//
// PINHash is a PHC-encoded Argon2id string; the per-credential salt is
// embedded in it. The raw PIN is never stored or logged anywhere.
type ShadowCredential struct {
	UserID           string
	PINHash          string
	BiometricEnabled bool
	BiometricKind    BiometricKind

	// TOTPSecret is set on enrollment but only honoured once
	// TOTPActivatedAt is non-nil (the user proved possession of the
	// authenticator with a first valid code).
	TOTPSecret      *string
	TOTPActivatedAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TOTPActive reports whether TOTP is a usable verification method for this
// credential.
func (c ShadowCredential) TOTPActive() bool {
	return c.TOTPSecret != nil && *c.TOTPSecret != "" && c.TOTPActivatedAt != nil
}
