package service

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/lumora/shadowgate/internal/gate/domain"
	"github.com/lumora/shadowgate/internal/gate/store"
	"github.com/lumora/shadowgate/pkg/jwtx"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/require"
)

func TestSwitchWithPIN(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")

	res, err := env.pinSwitch("user-1", "4821")
	require.NoError(t, err)
	require.Equal(t, domain.ProfileShadow, res.ActiveProfile)
	require.Equal(t, domain.OutcomeSuccess, res.Outcome)
	require.NotEmpty(t, res.ProfileToken)

	profile, err := env.gate.ActiveProfile(context.Background(), "sess-user-1")
	require.NoError(t, err)
	require.Equal(t, domain.ProfileShadow, profile)

	entries, err := env.audit.Timeline(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, domain.OutcomeSuccess, entries[0].Outcome)
	require.Equal(t, domain.MethodPIN, entries[0].Method)
	require.EqualValues(t, 1, entries[0].Seq)
}

func TestSwitchIsSymmetric(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")

	// Real to shadow.
	res, err := env.pinSwitch("user-1", "4821")
	require.NoError(t, err)
	require.Equal(t, domain.ProfileShadow, res.ActiveProfile)

	// Shadow back to real takes the same verification.
	res, err = env.pinSwitch("user-1", "4821")
	require.NoError(t, err)
	require.Equal(t, domain.ProfileReal, res.ActiveProfile)

	res, err = env.pinSwitch("user-1", "4821")
	require.NoError(t, err)
	require.Equal(t, domain.ProfileShadow, res.ActiveProfile)
}

func TestSwitchProfileTokenClaims(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")

	res, err := env.pinSwitch("user-1", "4821")
	require.NoError(t, err)

	verifier := jwtx.NewEdDSAVerifier(env.signer.Public(), "shadowgate-test")
	claims, err := verifier.Verify(res.ProfileToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.Subject)
	require.Equal(t, "shadow", claims.Profile)
	require.Equal(t, "sess-user-1", claims.SessionID)
}

func TestSwitchWrongPINLocksOut(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")

	// Five wrong PINs: each a completed failure, each denied (never
	// "locked"), including the one that trips the lockout.
	for i := 0; i < 5; i++ {
		res, err := env.pinSwitch("user-1", "0000")
		require.ErrorIs(t, err, ErrVerificationDenied)
		require.Equal(t, domain.OutcomePINMismatch, res.Outcome)
		require.NotNil(t, res.Remaining)
		require.Equal(t, 4-i, *res.Remaining)
	}

	// The sixth attempt is rejected up front, right PIN or not.
	res, err := env.pinSwitch("user-1", "4821")
	require.ErrorIs(t, err, ErrLockedOut)
	require.Equal(t, domain.OutcomeLockedOut, res.Outcome)
	require.Greater(t, res.RetryAfter, time.Duration(0))
	require.LessOrEqual(t, res.RetryAfter, 30*time.Minute)

	// The pointer never moved.
	profile, err := env.gate.ActiveProfile(context.Background(), "sess-user-1")
	require.NoError(t, err)
	require.Equal(t, domain.ProfileReal, profile)

	// 31 minutes later the lockout has lapsed and the right PIN works.
	env.clock.Advance(31 * time.Minute)
	okRes, err := env.pinSwitch("user-1", "4821")
	require.NoError(t, err)
	require.Equal(t, domain.ProfileShadow, okRes.ActiveProfile)

	// Trail: 5 mismatches, 1 locked_out rejection, 1 success, in order.
	entries, err := env.audit.Timeline(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 7)
	for i := 0; i < 5; i++ {
		require.Equal(t, domain.OutcomePINMismatch, entries[i].Outcome)
	}
	require.Equal(t, domain.OutcomeLockedOut, entries[5].Outcome)
	require.Equal(t, domain.OutcomeSuccess, entries[6].Outcome)
	for i, e := range entries {
		require.EqualValues(t, i+1, e.Seq)
	}
}

func TestSwitchWindowExpiryResetsCount(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")

	for i := 0; i < 4; i++ {
		_, err := env.pinSwitch("user-1", "0000")
		require.ErrorIs(t, err, ErrVerificationDenied)
	}

	// Past the 15 minute window the stale count no longer binds.
	env.clock.Advance(16 * time.Minute)

	res, err := env.pinSwitch("user-1", "0000")
	require.ErrorIs(t, err, ErrVerificationDenied)
	require.NotNil(t, res.Remaining)
	require.Equal(t, 4, *res.Remaining)
}

func TestSwitchNoCredential(t *testing.T) {
	env := newTestEnv(t)

	// Attempts against a user with no shadow profile never consume rate
	// limit attempts, so they can never lock anything either.
	for i := 0; i < 10; i++ {
		res, err := env.pinSwitch("ghost", "4821")
		require.ErrorIs(t, err, ErrNoCredential)
		require.Equal(t, domain.OutcomeNoCredential, res.Outcome)
	}

	_, err := env.store.Windows().Get(context.Background(), "ghost", domain.MethodPIN)
	require.ErrorIs(t, err, store.ErrNotFound)

	entries, err := env.audit.Timeline(context.Background(), "ghost", 0)
	require.NoError(t, err)
	require.Len(t, entries, 10)
	for _, e := range entries {
		require.Equal(t, domain.OutcomeNoCredential, e.Outcome)
	}
}

func TestSwitchSuccessResetsCounter(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")

	for i := 0; i < 4; i++ {
		_, err := env.pinSwitch("user-1", "0000")
		require.ErrorIs(t, err, ErrVerificationDenied)
	}

	_, err := env.pinSwitch("user-1", "4821")
	require.NoError(t, err)

	// The counter restarted; four fresh failures still leave one
	// attempt standing.
	for i := 0; i < 4; i++ {
		res, err := env.pinSwitch("user-1", "0000")
		require.ErrorIs(t, err, ErrVerificationDenied)
		require.NotNil(t, res.Remaining)
		require.Equal(t, 4-i, *res.Remaining)
	}
}

func TestSwitchBiometricSuccess(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")
	require.NoError(t, env.credentials.SetBiometric(context.Background(), "user-1", true, domain.BiometricFace))

	stub := &promptStub{outcome: domain.BiometricSuccess}
	res, err := env.gate.Switch(context.Background(), SwitchRequest{
		SessionID: "sess-1",
		UserID:    "user-1",
		Method:    domain.MethodBiometric,
		Biometric: stub,
	})
	require.NoError(t, err)
	require.Equal(t, domain.ProfileShadow, res.ActiveProfile)
	require.Equal(t, 1, stub.calls)
}

func TestSwitchBiometricCancelledIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")
	require.NoError(t, env.credentials.SetBiometric(context.Background(), "user-1", true, domain.BiometricFingerprint))

	// A cancelled prompt is not an attempt. A hundred of them leave no
	// trace anywhere.
	stub := &promptStub{outcome: domain.BiometricCancelled}
	for i := 0; i < 100; i++ {
		_, err := env.gate.Switch(context.Background(), SwitchRequest{
			SessionID: "sess-1",
			UserID:    "user-1",
			Method:    domain.MethodBiometric,
			Biometric: stub,
		})
		require.ErrorIs(t, err, ErrBiometricCancelled)
	}

	_, err := env.store.Windows().Get(context.Background(), "user-1", domain.MethodBiometric)
	require.ErrorIs(t, err, store.ErrNotFound)

	entries, err := env.audit.Timeline(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSwitchBiometricDeniedConsumesAttempt(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")
	require.NoError(t, env.credentials.SetBiometric(context.Background(), "user-1", true, domain.BiometricFace))

	stub := &promptStub{outcome: domain.BiometricDenied}
	res, err := env.gate.Switch(context.Background(), SwitchRequest{
		SessionID: "sess-1",
		UserID:    "user-1",
		Method:    domain.MethodBiometric,
		Biometric: stub,
	})
	require.ErrorIs(t, err, ErrVerificationDenied)
	require.Equal(t, domain.OutcomeBiometricDenied, res.Outcome)
	require.NotNil(t, res.Remaining)
	require.Equal(t, 4, *res.Remaining)

	// Windows are per method: the biometric failure leaves the PIN
	// budget whole.
	ok, err := env.pinSwitch("user-1", "4821")
	require.NoError(t, err)
	require.Equal(t, domain.ProfileShadow, ok.ActiveProfile)
}

func TestSwitchBiometricUnavailableFallsBackToPIN(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")
	require.NoError(t, env.credentials.SetBiometric(context.Background(), "user-1", true, domain.BiometricFace))

	stub := &promptStub{outcome: domain.BiometricUnavailable}
	res, err := env.gate.Switch(context.Background(), SwitchRequest{
		SessionID: "sess-1",
		UserID:    "user-1",
		Method:    domain.MethodBiometric,
		PIN:       "4821",
		Biometric: stub,
	})
	require.NoError(t, err)
	require.Equal(t, domain.ProfileShadow, res.ActiveProfile)

	// The failed prompt consumed nothing from the biometric budget; the
	// attempt was booked under PIN.
	_, err = env.store.Windows().Get(context.Background(), "user-1", domain.MethodBiometric)
	require.ErrorIs(t, err, store.ErrNotFound)

	entries, err := env.audit.Timeline(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, domain.MethodPIN, entries[0].Method)
}

func TestSwitchBiometricUnavailableWithoutPIN(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")
	require.NoError(t, env.credentials.SetBiometric(context.Background(), "user-1", true, domain.BiometricFace))

	stub := &promptStub{outcome: domain.BiometricUnavailable}
	_, err := env.gate.Switch(context.Background(), SwitchRequest{
		SessionID: "sess-1",
		UserID:    "user-1",
		Method:    domain.MethodBiometric,
		Biometric: stub,
	})
	require.ErrorIs(t, err, ErrBiometricUnavailable)

	entries, err := env.audit.Timeline(context.Background(), "user-1", 0)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestSwitchBiometricNotEnrolled(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")

	stub := &promptStub{outcome: domain.BiometricSuccess}
	_, err := env.gate.Switch(context.Background(), SwitchRequest{
		SessionID: "sess-1",
		UserID:    "user-1",
		Method:    domain.MethodBiometric,
		Biometric: stub,
	})
	require.ErrorIs(t, err, ErrMethodNotEnrolled)
	require.Zero(t, stub.calls)
}

func TestSwitchWithTOTP(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")

	enrollment, err := env.credentials.EnrollTOTP(context.Background(), "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, enrollment.Secret)

	// Pending enrollment is not yet a usable method.
	_, err = env.gate.Switch(context.Background(), SwitchRequest{
		SessionID: "sess-1",
		UserID:    "user-1",
		Method:    domain.MethodTOTP,
		TOTPCode:  "000000",
	})
	require.ErrorIs(t, err, ErrMethodNotEnrolled)

	code, err := totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, env.credentials.ActivateTOTP(context.Background(), "user-1", code))

	code, err = totp.GenerateCode(enrollment.Secret, time.Now())
	require.NoError(t, err)
	res, err := env.gate.Switch(context.Background(), SwitchRequest{
		SessionID: "sess-1",
		UserID:    "user-1",
		Method:    domain.MethodTOTP,
		TOTPCode:  code,
	})
	require.NoError(t, err)
	require.Equal(t, domain.ProfileShadow, res.ActiveProfile)

	res, err = env.gate.Switch(context.Background(), SwitchRequest{
		SessionID: "sess-1",
		UserID:    "user-1",
		Method:    domain.MethodTOTP,
		TOTPCode:  "000000",
	})
	require.ErrorIs(t, err, ErrVerificationDenied)
	require.Equal(t, domain.OutcomeTOTPMismatch, res.Outcome)
}

func TestSwitchUnknownMethod(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")

	_, err := env.gate.Switch(context.Background(), SwitchRequest{
		SessionID: "sess-1",
		UserID:    "user-1",
		Method:    domain.Method("smoke-signal"),
	})
	require.ErrorIs(t, err, ErrUnknownMethod)
}

func TestSwitchHonoursUpdatedLimits(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")

	_, err := env.limits.Update(context.Background(), domain.LimitConfig{
		Method:         domain.MethodPIN,
		MaxAttempts:    2,
		WindowMinutes:  15,
		LockoutMinutes: 30,
	})
	require.NoError(t, err)

	_, err = env.pinSwitch("user-1", "0000")
	require.ErrorIs(t, err, ErrVerificationDenied)
	_, err = env.pinSwitch("user-1", "0000")
	require.ErrorIs(t, err, ErrVerificationDenied)

	_, err = env.pinSwitch("user-1", "4821")
	require.ErrorIs(t, err, ErrLockedOut)
}

func TestSwitchLockoutsArePerMethod(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")
	require.NoError(t, env.credentials.SetBiometric(context.Background(), "user-1", true, domain.BiometricFace))

	for i := 0; i < 5; i++ {
		_, err := env.pinSwitch("user-1", "0000")
		require.ErrorIs(t, err, ErrVerificationDenied)
	}
	_, err := env.pinSwitch("user-1", "4821")
	require.ErrorIs(t, err, ErrLockedOut)

	// The PIN lockout does not block the biometric path.
	stub := &promptStub{outcome: domain.BiometricSuccess}
	res, err := env.gate.Switch(context.Background(), SwitchRequest{
		SessionID: "sess-1",
		UserID:    "user-1",
		Method:    domain.MethodBiometric,
		Biometric: stub,
	})
	require.NoError(t, err)
	require.Equal(t, domain.ProfileShadow, res.ActiveProfile)
}

// auditDownStore fails every audit append while leaving the rest of the
// store intact.
type auditDownStore struct {
	store.Store
}

func (s auditDownStore) Audit() store.Audit { return auditDownRepo{s.Store.Audit()} }

type auditDownRepo struct {
	store.Audit
}

func (auditDownRepo) Append(ctx context.Context, e domain.AuditEntry) (domain.AuditEntry, error) {
	return domain.AuditEntry{}, errors.New("audit relation unavailable")
}

func TestSwitchSucceedsWhenAuditAppendFails(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")

	for i := 0; i < 2; i++ {
		_, err := env.pinSwitch("user-1", "0000")
		require.ErrorIs(t, err, ErrVerificationDenied)
	}

	// A dead audit store must not veto a verified switch: the pointer
	// flips and the counter resets, only the trail entry is lost.
	env.gate.Audit = &AuditService{
		Store: auditDownStore{env.store},
		Log:   slog.New(slog.DiscardHandler),
		Now:   env.clock.Now,
	}

	res, err := env.pinSwitch("user-1", "4821")
	require.NoError(t, err)
	require.Equal(t, domain.ProfileShadow, res.ActiveProfile)
	require.Equal(t, domain.OutcomeSuccess, res.Outcome)
	require.NotEmpty(t, res.ProfileToken)
	require.Empty(t, res.Entry.ID)

	profile, err := env.gate.ActiveProfile(context.Background(), "sess-user-1")
	require.NoError(t, err)
	require.Equal(t, domain.ProfileShadow, profile)

	dec, err := env.rateLimit.Check(context.Background(), "user-1", domain.MethodPIN, domain.DefaultLimit(domain.MethodPIN))
	require.NoError(t, err)
	require.True(t, dec.Allowed)
	require.Equal(t, 5, dec.Remaining)
}

// incrementDownStore fails window increments while leaving reads intact.
type incrementDownStore struct {
	store.Store
}

func (s incrementDownStore) Windows() store.Windows { return incrementDownWindows{s.Store.Windows()} }

type incrementDownWindows struct {
	store.Windows
}

func (incrementDownWindows) IncrementFailure(ctx context.Context, userID string, method domain.Method, now time.Time, cfg domain.LimitConfig) (domain.RateLimitWindow, error) {
	return domain.RateLimitWindow{}, errors.New("windows relation unavailable")
}

func TestSwitchDeniedOmitsRemainingWhenLimiterFails(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")

	// The failure could not be booked, so no budget is known; reporting
	// a full one to a just-denied caller would be a lie.
	env.gate.RateLimit = &RateLimitService{
		Store: incrementDownStore{env.store},
		Log:   slog.New(slog.DiscardHandler),
		Now:   env.clock.Now,
	}

	res, err := env.pinSwitch("user-1", "0000")
	require.ErrorIs(t, err, ErrVerificationDenied)
	require.Equal(t, domain.OutcomePINMismatch, res.Outcome)
	require.Nil(t, res.Remaining)
}

func TestAuditStats(t *testing.T) {
	env := newTestEnv(t)
	env.provision(t, "user-1", "4821")
	env.provision(t, "user-2", "9137")

	for i := 0; i < 5; i++ {
		_, err := env.pinSwitch("user-1", "0000")
		require.ErrorIs(t, err, ErrVerificationDenied)
	}
	_, err := env.pinSwitch("user-2", "9137")
	require.NoError(t, err)

	stats, err := env.audit.Stats(context.Background())
	require.NoError(t, err)
	require.EqualValues(t, 5, stats.TotalViolations)
	require.EqualValues(t, 5, stats.Violations24h)
	require.EqualValues(t, 1, stats.LockedUsers)
}
