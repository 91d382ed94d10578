package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/lumora/shadowgate/internal/gate/store"
)

// HousekeepingService sweeps rows that lazy expiry has already made
// meaningless: old attempt windows without an active lockout and long
// untouched session pointers. The audit trail is never swept.
type HousekeepingService struct {
	Store store.Store
	Log   *slog.Logger

	// Interval between sweeps. Zero means the default.
	Interval time.Duration

	// WindowRetention is how long an untouched window row may linger.
	WindowRetention time.Duration

	// SessionRetention is how long an untouched session pointer may
	// linger before the session is presumed gone.
	SessionRetention time.Duration

	// Now is the clock, swappable in tests.
	Now func() time.Time
}

const (
	defaultSweepInterval    = time.Hour
	defaultWindowRetention  = 24 * time.Hour
	defaultSessionRetention = 30 * 24 * time.Hour
)

func (s *HousekeepingService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

// Run sweeps on a ticker until ctx is done.
func (s *HousekeepingService) Run(ctx context.Context) {
	interval := s.Interval
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.Sweep(ctx); err != nil && s.Log != nil {
				s.Log.Error("housekeeping sweep failed", "error", err)
			}
		}
	}
}

// Sweep performs one pass.
func (s *HousekeepingService) Sweep(ctx context.Context) error {
	now := s.now()

	windowRetention := s.WindowRetention
	if windowRetention <= 0 {
		windowRetention = defaultWindowRetention
	}
	sessionRetention := s.SessionRetention
	if sessionRetention <= 0 {
		sessionRetention = defaultSessionRetention
	}

	if err := s.Store.Windows().DeleteStale(ctx, now.Add(-windowRetention), now); err != nil {
		return err
	}
	return s.Store.Sessions().DeleteStale(ctx, now.Add(-sessionRetention))
}
