package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumora/shadowgate/internal/gate/domain"
	"github.com/lumora/shadowgate/internal/gate/store"
	"github.com/lumora/shadowgate/pkg/cryptox"

	"github.com/pquerna/otp/totp"
)

var (
	ErrInvalidPIN       = errors.New("service: pin must be 4 to 6 digits")
	ErrPINMismatch      = errors.New("service: pin mismatch")
	ErrNoCredential     = errors.New("service: no shadow credential")
	ErrCredentialExists = errors.New("service: shadow credential already exists")
	ErrTOTPNotPending   = errors.New("service: no pending totp enrollment")
	ErrTOTPCodeInvalid  = errors.New("service: totp code invalid")
	ErrInvalidBiometric = errors.New("service: invalid biometric kind")
)

// TOTPEnrollment is handed to the client once, at enrollment time. The
// secret is never returned again afterwards.
type TOTPEnrollment struct {
	Secret string
	URL    string
}

// CredentialService manages the shadow credential lifecycle. Verification
// during a switch lives in GateService; this service only provisions and
// mutates credentials.
type CredentialService struct {
	Store store.Store
	Log   *slog.Logger

	// RateLimit clears a user's PIN failure window after a PIN change
	// proves the current PIN. Optional.
	RateLimit *RateLimitService

	// TOTPIssuer is the issuer label shown in authenticator apps.
	TOTPIssuer string

	// Now is the clock, swappable in tests.
	Now func() time.Time
}

func (s *CredentialService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func validatePIN(pin string) error {
	if len(pin) < 4 || len(pin) > 6 {
		return ErrInvalidPIN
	}
	for _, r := range pin {
		if r < '0' || r > '9' {
			return ErrInvalidPIN
		}
	}
	return nil
}

// Provision creates the shadow credential for a user, establishing the PIN
// as the always-available verification method.
func (s *CredentialService) Provision(ctx context.Context, userID, pin string) (domain.ShadowCredential, error) {
	if err := validatePIN(pin); err != nil {
		return domain.ShadowCredential{}, err
	}

	hash, err := cryptox.HashSecret(pin)
	if err != nil {
		return domain.ShadowCredential{}, fmt.Errorf("hash pin: %w", err)
	}

	now := s.now()
	cred := domain.ShadowCredential{
		UserID:        userID,
		PINHash:       hash,
		BiometricKind: domain.BiometricNone,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	if err := s.Store.Credentials().Create(ctx, cred); err != nil {
		if errors.Is(err, store.ErrAlreadyExists) {
			return domain.ShadowCredential{}, ErrCredentialExists
		}
		return domain.ShadowCredential{}, fmt.Errorf("create credential: %w", err)
	}

	if s.Log != nil {
		s.Log.Info("shadow credential provisioned", "user_id", userID)
	}
	return cred, nil
}

// Get returns a user's credential, mapping absence to ErrNoCredential.
func (s *CredentialService) Get(ctx context.Context, userID string) (domain.ShadowCredential, error) {
	cred, err := s.Store.Credentials().GetByUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ShadowCredential{}, ErrNoCredential
	}
	if err != nil {
		return domain.ShadowCredential{}, fmt.Errorf("load credential: %w", err)
	}
	return cred, nil
}

// ChangePIN replaces the PIN after proving knowledge of the current one.
// Mismatches here are deliberate verification failures and count against
// the PIN rate limit at the gate layer, not here.
func (s *CredentialService) ChangePIN(ctx context.Context, userID, currentPIN, newPIN string) error {
	if err := validatePIN(newPIN); err != nil {
		return err
	}

	cred, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}

	if err := cryptox.VerifySecret(currentPIN, cred.PINHash); err != nil {
		if errors.Is(err, cryptox.ErrHashMismatch) {
			return ErrPINMismatch
		}
		return fmt.Errorf("verify current pin: %w", err)
	}

	hash, err := cryptox.HashSecret(newPIN)
	if err != nil {
		return fmt.Errorf("hash pin: %w", err)
	}
	if err := s.Store.Credentials().UpdatePINHash(ctx, userID, hash); err != nil {
		return fmt.Errorf("store pin hash: %w", err)
	}

	// Proving the current PIN is a successful verification; stale failure
	// counts do not outlive it.
	if s.RateLimit != nil {
		if err := s.RateLimit.RecordSuccess(ctx, userID, domain.MethodPIN); err != nil {
			if s.Log != nil {
				s.Log.Error("reset pin window after change", "user_id", userID, "error", err)
			}
		}
	}

	if s.Log != nil {
		s.Log.Info("shadow pin changed", "user_id", userID)
	}
	return nil
}

// SetBiometric toggles the biometric method. Enabling requires a concrete
// modality; disabling resets it to none.
func (s *CredentialService) SetBiometric(ctx context.Context, userID string, enabled bool, kind domain.BiometricKind) error {
	if enabled {
		if !kind.Valid() || kind == domain.BiometricNone {
			return ErrInvalidBiometric
		}
	} else {
		kind = domain.BiometricNone
	}

	err := s.Store.Credentials().SetBiometric(ctx, userID, enabled, kind)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoCredential
	}
	return err
}

// EnrollTOTP generates a fresh secret and stores it pending activation.
// The method only becomes usable once ActivateTOTP proves the user's
// authenticator produces matching codes.
func (s *CredentialService) EnrollTOTP(ctx context.Context, userID string) (TOTPEnrollment, error) {
	if _, err := s.Get(ctx, userID); err != nil {
		return TOTPEnrollment{}, err
	}

	issuer := s.TOTPIssuer
	if issuer == "" {
		issuer = "shadowgate"
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      issuer,
		AccountName: userID,
	})
	if err != nil {
		return TOTPEnrollment{}, fmt.Errorf("generate totp secret: %w", err)
	}

	if err := s.Store.Credentials().SetTOTPSecret(ctx, userID, key.Secret()); err != nil {
		return TOTPEnrollment{}, fmt.Errorf("store totp secret: %w", err)
	}
	return TOTPEnrollment{Secret: key.Secret(), URL: key.URL()}, nil
}

// ActivateTOTP validates a first code against the pending secret and, on a
// match, marks the method active.
func (s *CredentialService) ActivateTOTP(ctx context.Context, userID, code string) error {
	cred, err := s.Get(ctx, userID)
	if err != nil {
		return err
	}
	if cred.TOTPSecret == nil || *cred.TOTPSecret == "" {
		return ErrTOTPNotPending
	}

	if !totp.Validate(code, *cred.TOTPSecret) {
		return ErrTOTPCodeInvalid
	}

	if err := s.Store.Credentials().ActivateTOTP(ctx, userID); err != nil {
		return fmt.Errorf("activate totp: %w", err)
	}

	if s.Log != nil {
		s.Log.Info("totp activated", "user_id", userID)
	}
	return nil
}

// RemoveTOTP drops the secret whether pending or active.
func (s *CredentialService) RemoveTOTP(ctx context.Context, userID string) error {
	err := s.Store.Credentials().ClearTOTP(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoCredential
	}
	return err
}

// Remove deletes the credential and the user's rate limit windows in one
// transaction. The audit trail stays; it is append-only by contract.
func (s *CredentialService) Remove(ctx context.Context, userID string) error {
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Credentials().Delete(ctx, userID); err != nil {
			return err
		}
		return tx.Windows().DeleteByUser(ctx, userID)
	})
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoCredential
	}
	if err != nil {
		return fmt.Errorf("remove credential: %w", err)
	}

	if s.Log != nil {
		s.Log.Info("shadow credential removed", "user_id", userID)
	}
	return nil
}
