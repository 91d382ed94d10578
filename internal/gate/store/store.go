package store

import (
	"context"
	"errors"
	"time"

	"github.com/lumora/shadowgate/internal/gate/domain"
)

var (
	ErrNotFound      = errors.New("store: not found")
	ErrAlreadyExists = errors.New("store: already exists")
)

// Store is the root data access interface. Concrete drivers (sqlite,
// postgres) implement it. Sub-repositories keep concerns tidy and let a
// transaction expose the same surface as the root store.
type Store interface {
	Credentials() Credentials
	Windows() Windows
	Audit() Audit
	Limits() Limits
	Sessions() Sessions

	ApplyMigrations() error

	// Tx starts a read/write transaction and returns a Tx-scoped Store.
	// The caller MUST call Commit() or Rollback() on the returned Tx.
	Tx(ctx context.Context) (Tx, error)

	// WithTx executes fn within a transaction, committing on nil error and
	// rolling back otherwise. Prefer this over Tx directly.
	WithTx(ctx context.Context, fn func(tx Tx) error) error

	// Close releases any underlying resources.
	Close() error

	// Ping verifies the database connection is still alive.
	Ping(ctx context.Context) error
}

// Tx is a transactional store.
type Tx interface {
	Store
	Commit() error
	Rollback() error
}

type Credentials interface {
	// GetByUserID returns the shadow credential for a user, or ErrNotFound
	// if the user has no shadow profile.
	GetByUserID(ctx context.Context, userID string) (domain.ShadowCredential, error)

	// Create inserts a new credential. Returns ErrAlreadyExists when the
	// user already has one.
	Create(ctx context.Context, c domain.ShadowCredential) error

	// UpdatePINHash replaces the PIN hash and bumps updated_at.
	UpdatePINHash(ctx context.Context, userID, pinHash string) error

	// SetBiometric enables or disables the biometric method.
	SetBiometric(ctx context.Context, userID string, enabled bool, kind domain.BiometricKind) error

	// SetTOTPSecret stores a pending (not yet activated) TOTP secret.
	SetTOTPSecret(ctx context.Context, userID, secret string) error

	// ActivateTOTP marks the pending TOTP secret as activated.
	ActivateTOTP(ctx context.Context, userID string) error

	// ClearTOTP removes the TOTP secret and activation mark.
	ClearTOTP(ctx context.Context, userID string) error

	// Delete removes the credential. Deleting the last trace of a shadow
	// profile also requires clearing the user's windows; callers do both
	// inside WithTx.
	Delete(ctx context.Context, userID string) error
}

type Windows interface {
	// Get returns the current window row, or ErrNotFound when no attempt
	// has been recorded yet. Readers must apply lazy expiry themselves.
	Get(ctx context.Context, userID string, method domain.Method) (domain.RateLimitWindow, error)

	// Reset persists a fresh zero-count window and clears any lockout.
	// Called on successful verification.
	Reset(ctx context.Context, userID string, method domain.Method, now time.Time) error

	// IncrementFailure applies one failed attempt as a single atomic
	// read-modify-write: an expired window restarts at count 1, a live one
	// increments, and the lockout is set when the new count reaches
	// cfg.MaxAttempts. An already-active lockout is left untouched.
	// Returns the row as persisted.
	IncrementFailure(ctx context.Context, userID string, method domain.Method, now time.Time, cfg domain.LimitConfig) (domain.RateLimitWindow, error)

	// DeleteByUser removes all windows for a user (credential removal).
	DeleteByUser(ctx context.Context, userID string) error

	// CountLocked returns the number of (user, method) pairs whose lockout
	// is active at now.
	CountLocked(ctx context.Context, now time.Time) (int64, error)

	// DeleteStale removes rows not touched since the cutoff and without an
	// active lockout. Housekeeping only; a removed row is indistinguishable
	// from a lazily-expired one.
	DeleteStale(ctx context.Context, cutoff time.Time, now time.Time) error
}

type Audit interface {
	// Append inserts an immutable entry, assigning the per-user sequence
	// number. Returns the entry as persisted.
	Append(ctx context.Context, e domain.AuditEntry) (domain.AuditEntry, error)

	// ListByUser returns a user's entries in append order (oldest first),
	// capped at limit (0 means a sane default).
	ListByUser(ctx context.Context, userID string, limit int) ([]domain.AuditEntry, error)

	// CountViolations counts entries with non-success outcomes created at
	// or after since. A zero since counts the whole trail.
	CountViolations(ctx context.Context, since time.Time) (int64, error)
}

type Limits interface {
	// Get returns the config row for a method, or ErrNotFound.
	Get(ctx context.Context, method domain.Method) (domain.LimitConfig, error)

	// Put atomically replaces the whole config for a method (upsert).
	Put(ctx context.Context, cfg domain.LimitConfig) error

	// List returns all configured methods.
	List(ctx context.Context) ([]domain.LimitConfig, error)
}

type Sessions interface {
	// Get returns a session's profile pointer, or ErrNotFound.
	Get(ctx context.Context, sessionID string) (domain.ProfileSession, error)

	// SetActiveProfile upserts the pointer for a session.
	SetActiveProfile(ctx context.Context, sessionID, userID string, p domain.Profile, now time.Time) error

	// DeleteStale removes sessions not touched since the cutoff.
	DeleteStale(ctx context.Context, cutoff time.Time) error
}
