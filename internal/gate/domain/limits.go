package domain

import "time"

// LimitConfig is the operator-tunable rate limit policy for one method.
// It is read and replaced as a whole; readers never observe a mix of old
// and new fields.
type LimitConfig struct {
	Method         Method
	MaxAttempts    int
	WindowMinutes  int
	LockoutMinutes int
	UpdatedAt      time.Time
}

// Window returns the attempt window as a duration.
func (c LimitConfig) Window() time.Duration {
	return time.Duration(c.WindowMinutes) * time.Minute
}

// Lockout returns the lockout span as a duration.
func (c LimitConfig) Lockout() time.Duration {
	return time.Duration(c.LockoutMinutes) * time.Minute
}

// DefaultLimit is the compiled fallback policy, used when no row exists for
// a method (e.g. a method added after the store was migrated).
func DefaultLimit(m Method) LimitConfig {
	return LimitConfig{
		Method:         m,
		MaxAttempts:    5,
		WindowMinutes:  15,
		LockoutMinutes: 30,
	}
}
