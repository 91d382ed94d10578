package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/lumora/shadowgate/internal/gate/domain"
	"github.com/lumora/shadowgate/internal/gate/store"
)

// Decision is the outcome of a pre-attempt rate limit check.
type Decision struct {
	Allowed bool

	// Locked is set when an explicit lockout is active, as opposed to a
	// merely exhausted window.
	Locked bool

	// RetryAfter is how long the caller must wait before the next attempt
	// can be allowed. Zero when Allowed.
	RetryAfter time.Duration

	// Remaining is the number of attempts left in the current window.
	Remaining int
}

// RateLimitService is the persistent per-(user, method) attempt limiter.
// Counters live in the store so they survive restarts and are shared
// across replicas; windows expire lazily on read.
type RateLimitService struct {
	Store store.Store
	Log   *slog.Logger

	// Now is the clock, swappable in tests.
	Now func() time.Time
}

func (s *RateLimitService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Check evaluates whether an attempt may proceed under cfg. It never
// mutates the counter; Record does that after the verification completes.
func (s *RateLimitService) Check(ctx context.Context, userID string, method domain.Method, cfg domain.LimitConfig) (Decision, error) {
	now := s.now()

	w, err := s.Store.Windows().Get(ctx, userID, method)
	if errors.Is(err, store.ErrNotFound) {
		return Decision{Allowed: true, Remaining: cfg.MaxAttempts}, nil
	}
	if err != nil {
		return Decision{}, fmt.Errorf("load rate limit window: %w", err)
	}

	if w.Locked(now) {
		return Decision{
			Locked:     true,
			RetryAfter: w.LockedUntil.Sub(now),
		}, nil
	}

	// A lapsed window counts as absent; the next failure resets it in
	// place.
	if w.Expired(now, cfg.Window()) {
		return Decision{Allowed: true, Remaining: cfg.MaxAttempts}, nil
	}

	if w.AttemptCount >= cfg.MaxAttempts {
		// Exhausted but no active lockout, e.g. the policy was tightened
		// after the fact. The window end is the earliest retry.
		return Decision{
			RetryAfter: w.WindowStartedAt.Add(cfg.Window()).Sub(now),
		}, nil
	}

	return Decision{Allowed: true, Remaining: cfg.MaxAttempts - w.AttemptCount}, nil
}

// RecordSuccess clears the counter after a verified attempt.
func (s *RateLimitService) RecordSuccess(ctx context.Context, userID string, method domain.Method) error {
	// The attempt already succeeded; a caller hanging up must not leave a
	// stale failure count behind.
	ctx = context.WithoutCancel(ctx)

	if err := s.Store.Windows().Reset(ctx, userID, method, s.now()); err != nil {
		return fmt.Errorf("reset rate limit window: %w", err)
	}
	return nil
}

// RecordFailure books one completed verification failure and returns the
// window as persisted, letting the caller see whether this failure tripped
// the lockout.
func (s *RateLimitService) RecordFailure(ctx context.Context, userID string, method domain.Method, cfg domain.LimitConfig) (domain.RateLimitWindow, error) {
	ctx = context.WithoutCancel(ctx)
	now := s.now()

	w, err := s.Store.Windows().IncrementFailure(ctx, userID, method, now, cfg)
	if err != nil {
		return domain.RateLimitWindow{}, fmt.Errorf("record rate limit failure: %w", err)
	}

	if s.Log != nil && w.Locked(now) {
		s.Log.Warn("lockout engaged",
			"user_id", userID,
			"method", string(method),
			"attempts", w.AttemptCount,
			"locked_until", w.LockedUntil.Format(time.RFC3339),
		)
	}
	return w, nil
}

// Clear drops every window a user holds. Used when the shadow credential
// itself is removed.
func (s *RateLimitService) Clear(ctx context.Context, userID string) error {
	return s.Store.Windows().DeleteByUser(ctx, userID)
}
