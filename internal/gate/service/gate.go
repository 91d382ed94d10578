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
	"github.com/lumora/shadowgate/pkg/jwtx"

	"github.com/pquerna/otp/totp"
)

var (
	ErrUnknownMethod        = errors.New("service: unknown verification method")
	ErrMethodNotEnrolled    = errors.New("service: method not enrolled")
	ErrRateLimited          = errors.New("service: rate limited")
	ErrLockedOut            = errors.New("service: locked out")
	ErrVerificationDenied   = errors.New("service: verification denied")
	ErrBiometricCancelled   = errors.New("service: biometric prompt cancelled")
	ErrBiometricUnavailable = errors.New("service: biometric unavailable")

	// ErrGateUnavailable means the gate could not complete its checks,
	// typically a storage fault. The gate fails closed: the switch is
	// denied, never waved through.
	ErrGateUnavailable = errors.New("service: gate unavailable")
)

// BiometricVerifier abstracts the host platform's biometric prompt. The
// gate never sees biometric data, only the prompt's outcome.
type BiometricVerifier interface {
	Prompt(ctx context.Context, kind domain.BiometricKind) (domain.BiometricOutcome, error)
}

// SwitchRequest is one attempt to flip the session's active profile.
// Exactly one of PIN, TOTPCode or Biometric is consulted, per Method.
type SwitchRequest struct {
	SessionID string
	UserID    string
	Method    domain.Method

	PIN       string
	TOTPCode  string
	Biometric BiometricVerifier

	Actor domain.ActorContext
}

// SwitchResult describes what the attempt did. On success ActiveProfile is
// the new pointer and ProfileToken asserts it; on denial Outcome names the
// failure and Remaining/RetryAfter tell the client where it stands.
// Remaining is nil when the limiter could not persist the attempt, so a
// stale budget is never reported.
type SwitchResult struct {
	ActiveProfile domain.Profile
	ProfileToken  string
	Outcome       domain.Outcome
	Entry         domain.AuditEntry

	Remaining  *int
	RetryAfter time.Duration
}

// GateService is the identity switch state machine. Every attempt runs
// rate check, credential load, verification, then a single transactional
// commit of counter reset and pointer flip; the audit entry follows
// best-effort and never vetoes a verified switch.
//
// Switching is symmetric: the gate guards the transition itself, so
// shadow to real takes the same verification as real to shadow.
type GateService struct {
	Store     store.Store
	Limits    *LimitsService
	RateLimit *RateLimitService
	Audit     *AuditService

	// Signer mints profile tokens on successful switches. Optional; a nil
	// signer just omits the token.
	Signer          *jwtx.EdDSASigner
	Issuer          string
	ProfileTokenTTL time.Duration

	Log *slog.Logger

	// Now is the clock, swappable in tests.
	Now func() time.Time
}

func (s *GateService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// ActiveProfile reports a session's current pointer. A session with no
// recorded switch is on the real profile.
func (s *GateService) ActiveProfile(ctx context.Context, sessionID string) (domain.Profile, error) {
	sess, err := s.Store.Sessions().Get(ctx, sessionID)
	if errors.Is(err, store.ErrNotFound) {
		return domain.ProfileReal, nil
	}
	if err != nil {
		return "", fmt.Errorf("load session: %w", err)
	}
	return sess.ActiveProfile, nil
}

// Switch runs one verification attempt and, on success, flips the
// session's active profile.
func (s *GateService) Switch(ctx context.Context, req SwitchRequest) (SwitchResult, error) {
	if !req.Method.Valid() {
		return SwitchResult{}, fmt.Errorf("%w: %q", ErrUnknownMethod, req.Method)
	}

	// Config snapshot for this attempt: check and record below both see
	// this exact policy even if an admin update lands mid-attempt.
	cfg, err := s.Limits.Snapshot(ctx, req.Method)
	if err != nil {
		return s.failClosed(domain.DefaultLimit(req.Method), err)
	}

	dec, err := s.RateLimit.Check(ctx, req.UserID, req.Method, cfg)
	if err != nil {
		return s.failClosed(cfg, err)
	}
	if !dec.Allowed {
		return s.rejectThrottled(ctx, req, dec)
	}

	cred, err := s.Store.Credentials().GetByUserID(ctx, req.UserID)
	if errors.Is(err, store.ErrNotFound) {
		// No shadow profile exists. Audited, but no rate limit attempt is
		// consumed; there is nothing to brute-force.
		if _, aerr := s.Audit.Record(ctx, req.UserID, req.Method, domain.OutcomeNoCredential, req.Actor); aerr != nil {
			s.logError("audit no_credential", req, aerr)
		}
		return SwitchResult{Outcome: domain.OutcomeNoCredential}, ErrNoCredential
	}
	if err != nil {
		return s.failClosed(cfg, fmt.Errorf("load credential: %w", err))
	}

	ok, failure, err := s.verify(ctx, req, cred)
	if err != nil {
		// Cancelled and unavailable prompts never reach storage: no
		// counter movement, no audit entry. Same for enrollment and
		// input errors; nothing was verified.
		if errors.Is(err, ErrBiometricUnavailable) && req.PIN != "" {
			pinReq := req
			pinReq.Method = domain.MethodPIN
			return s.Switch(ctx, pinReq)
		}
		return SwitchResult{}, err
	}

	if !ok {
		return s.rejectDenied(ctx, req, cfg, failure)
	}

	return s.commitSwitch(ctx, req)
}

// failClosed denies an attempt whose checks could not complete. The
// counter is untouched; the client is told to come back after the
// configured lockout span.
func (s *GateService) failClosed(cfg domain.LimitConfig, err error) (SwitchResult, error) {
	return SwitchResult{RetryAfter: cfg.Lockout()}, fmt.Errorf("%w: %w", ErrGateUnavailable, err)
}

// rejectThrottled audits a pre-verification rejection. The rejection
// itself consumes no attempt.
func (s *GateService) rejectThrottled(ctx context.Context, req SwitchRequest, dec Decision) (SwitchResult, error) {
	outcome := domain.OutcomeRateLimited
	gateErr := ErrRateLimited
	if dec.Locked {
		outcome = domain.OutcomeLockedOut
		gateErr = ErrLockedOut
	}

	entry, err := s.Audit.Record(ctx, req.UserID, req.Method, outcome, req.Actor)
	if err != nil {
		s.logError("audit throttled attempt", req, err)
	}

	return SwitchResult{
		Outcome:    outcome,
		Entry:      entry,
		RetryAfter: dec.RetryAfter,
	}, gateErr
}

// verify dispatches to the requested method. It returns ok=true on a
// verified attempt, a failure outcome for a completed mismatch, or an
// error for attempts that never completed a verification.
func (s *GateService) verify(ctx context.Context, req SwitchRequest, cred domain.ShadowCredential) (bool, domain.Outcome, error) {
	switch req.Method {
	case domain.MethodPIN:
		err := cryptox.VerifySecret(req.PIN, cred.PINHash)
		if err == nil {
			return true, "", nil
		}
		if errors.Is(err, cryptox.ErrHashMismatch) {
			return false, domain.OutcomePINMismatch, nil
		}
		// A stored hash that cannot be parsed is a data fault, not a
		// failed attempt.
		return false, "", fmt.Errorf("%w: verify pin: %w", ErrGateUnavailable, err)

	case domain.MethodBiometric:
		if !cred.BiometricEnabled {
			return false, "", ErrMethodNotEnrolled
		}
		if req.Biometric == nil {
			return false, "", ErrBiometricUnavailable
		}

		outcome, err := req.Biometric.Prompt(ctx, cred.BiometricKind)
		if err != nil {
			return false, "", fmt.Errorf("%w: %w", ErrBiometricUnavailable, err)
		}
		switch outcome {
		case domain.BiometricSuccess:
			return true, "", nil
		case domain.BiometricDenied:
			return false, domain.OutcomeBiometricDenied, nil
		case domain.BiometricCancelled:
			return false, "", ErrBiometricCancelled
		case domain.BiometricUnavailable:
			return false, "", ErrBiometricUnavailable
		default:
			return false, "", fmt.Errorf("%w: unexpected prompt outcome %q", ErrBiometricUnavailable, outcome)
		}

	case domain.MethodTOTP:
		if !cred.TOTPActive() {
			return false, "", ErrMethodNotEnrolled
		}
		if totp.Validate(req.TOTPCode, *cred.TOTPSecret) {
			return true, "", nil
		}
		return false, domain.OutcomeTOTPMismatch, nil
	}

	return false, "", fmt.Errorf("%w: %q", ErrUnknownMethod, req.Method)
}

// rejectDenied books a completed verification failure: the counter moves,
// the trail gets its entry, and the caller is told this attempt was
// denied. Even the failure that trips the lockout reports denial; the
// lockout surfaces on the next check.
func (s *GateService) rejectDenied(ctx context.Context, req SwitchRequest, cfg domain.LimitConfig, outcome domain.Outcome) (SwitchResult, error) {
	res := SwitchResult{Outcome: outcome}

	w, err := s.RateLimit.RecordFailure(ctx, req.UserID, req.Method, cfg)
	if err != nil {
		// Deny regardless; a limiter that cannot book the failure must
		// not turn into an extra free attempt. The budget is unknown, so
		// none is reported.
		s.logError("record failure", req, err)
	} else {
		remaining := cfg.MaxAttempts - w.AttemptCount
		if remaining < 0 {
			remaining = 0
		}
		res.Remaining = &remaining
	}

	entry, err := s.Audit.Record(ctx, req.UserID, req.Method, outcome, req.Actor)
	if err != nil {
		s.logError("audit denied attempt", req, err)
	}
	res.Entry = entry

	return res, ErrVerificationDenied
}

// commitSwitch applies a verified attempt: counter reset and pointer flip
// commit together or not at all. The audit entry follows outside the
// transaction; its failure is logged and never undoes a verified switch.
func (s *GateService) commitSwitch(ctx context.Context, req SwitchRequest) (SwitchResult, error) {
	// Verification already succeeded; a caller hanging up now must not
	// leave the counter and the pointer disagreeing.
	ctx = context.WithoutCancel(ctx)
	now := s.now()

	var next domain.Profile
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		current := domain.ProfileReal
		sess, err := tx.Sessions().Get(ctx, req.SessionID)
		if err == nil {
			current = sess.ActiveProfile
		} else if !errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("load session: %w", err)
		}
		next = current.Other()

		if err := tx.Sessions().SetActiveProfile(ctx, req.SessionID, req.UserID, next, now); err != nil {
			return fmt.Errorf("set active profile: %w", err)
		}
		return tx.Windows().Reset(ctx, req.UserID, req.Method, now)
	})
	if err != nil {
		// Verified but not committed. Fail closed: the pointer did not
		// move, so the client must not behave as if it did.
		return SwitchResult{}, fmt.Errorf("%w: commit switch: %w", ErrGateUnavailable, err)
	}

	entry, err := s.Audit.Record(ctx, req.UserID, req.Method, domain.OutcomeSuccess, req.Actor)
	if err != nil {
		// The switch already committed; the missing entry goes to
		// monitoring, not to the caller.
		s.logError("audit successful switch", req, err)
	}

	result := SwitchResult{
		ActiveProfile: next,
		Outcome:       domain.OutcomeSuccess,
		Entry:         entry,
	}

	if s.Signer != nil && s.Signer.Ready() {
		claims := jwtx.NewClaims(s.Issuer, req.UserID, s.profileTokenTTL())
		claims.Profile = string(next)
		claims.SessionID = req.SessionID
		token, err := s.Signer.Sign(claims)
		if err != nil {
			// The switch itself committed; report it without a token.
			s.logError("mint profile token", req, err)
		} else {
			result.ProfileToken = token
		}
	}

	if s.Log != nil {
		s.Log.Info("profile switched",
			"user_id", req.UserID,
			"session_id", req.SessionID,
			"method", string(req.Method),
			"active_profile", string(next),
		)
	}
	return result, nil
}

func (s *GateService) profileTokenTTL() time.Duration {
	if s.ProfileTokenTTL > 0 {
		return s.ProfileTokenTTL
	}
	return 5 * time.Minute
}

func (s *GateService) logError(op string, req SwitchRequest, err error) {
	if s.Log == nil {
		return
	}
	s.Log.Error(op,
		"user_id", req.UserID,
		"method", string(req.Method),
		"error", err,
	)
}
