package domain

import "time"

// ProfileSession is the per-session active profile pointer. Every device
// session starts on the real profile; only a successful gate switch mutates
// ActiveProfile.
type ProfileSession struct {
	ID            string
	UserID        string
	ActiveProfile Profile
	UpdatedAt     time.Time
}
