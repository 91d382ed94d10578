package gatesdk

// SwitchRequest is one profile switch attempt.
type SwitchRequest struct {
	Method string `json:"method"`

	PIN      string `json:"pin,omitempty"`
	TOTPCode string `json:"totp_code,omitempty"`

	// BiometricResult relays the platform prompt outcome for method
	// "biometric": success, denied, cancelled or unavailable.
	BiometricResult string `json:"biometric_result,omitempty"`
}

// SwitchResponse is the gate's answer, for both allowed and denied
// attempts.
type SwitchResponse struct {
	Switched      bool   `json:"switched"`
	ActiveProfile string `json:"active_profile,omitempty"`
	ProfileToken  string `json:"profile_token,omitempty"`
	Outcome       string `json:"outcome,omitempty"`
	Remaining     *int   `json:"attempts_remaining,omitempty"`
	RetryAfter    int    `json:"retry_after_seconds,omitempty"`
}

// Profile reports a session's active profile.
type Profile struct {
	SessionID     string `json:"session_id"`
	ActiveProfile string `json:"active_profile"`
}

// Credential is the redacted credential view; no secret material is ever
// returned.
type Credential struct {
	UserID           string `json:"user_id"`
	BiometricEnabled bool   `json:"biometric_enabled"`
	BiometricKind    string `json:"biometric_kind"`
	TOTPActive       bool   `json:"totp_active"`
	CreatedAt        string `json:"created_at"`
}

// TOTPEnrollment is returned exactly once, at enrollment.
type TOTPEnrollment struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

// LimitConfig is one method's rate limit policy.
type LimitConfig struct {
	Method         string `json:"method"`
	MaxAttempts    int    `json:"max_attempts"`
	WindowMinutes  int    `json:"window_minutes"`
	LockoutMinutes int    `json:"lockout_minutes"`
}

// AuditEntry is one record in a user's switch attempt timeline.
type AuditEntry struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Seq       int64  `json:"seq"`
	Method    string `json:"method"`
	Outcome   string `json:"outcome"`
	IP        string `json:"ip,omitempty"`
	Device    string `json:"device,omitempty"`
	CreatedAt string `json:"created_at"`
}

// AuditStats are the operations-console counters.
type AuditStats struct {
	TotalViolations int64 `json:"total_violations"`
	Violations24h   int64 `json:"violations_24h"`
	LockedUsers     int64 `json:"locked_users"`
}

// apiError is the conventional error body.
type apiError struct {
	Code string `json:"error"`
	Desc string `json:"error_description"`
}
