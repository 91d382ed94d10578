package domain

import "time"

// RateLimitWindow is the persisted per-(user, method) attempt counter.
// Expiry is evaluated lazily against the configured window duration; a row
// past its window is treated as absent by readers and reset in place by the
// next recorded failure.
type RateLimitWindow struct {
	UserID          string
	Method          Method
	AttemptCount    int
	WindowStartedAt time.Time
	LockedUntil     *time.Time
	UpdatedAt       time.Time
}

// Expired reports whether the window has logically ended at now.
func (w RateLimitWindow) Expired(now time.Time, window time.Duration) bool {
	return !now.Before(w.WindowStartedAt.Add(window))
}

// Locked reports whether a lockout is active at now.
func (w RateLimitWindow) Locked(now time.Time) bool {
	return w.LockedUntil != nil && now.Before(*w.LockedUntil)
}
