package domain

// Method identifies how a switch attempt is verified. Rate limit windows
// are keyed per (user, method) so a PIN lockout never blocks biometrics
// and vice versa.
type Method string

const (
	MethodPIN       Method = "pin"
	MethodBiometric Method = "biometric"
	MethodTOTP      Method = "totp"
)

// Methods lists every verification method the gate understands.
var Methods = []Method{MethodPIN, MethodBiometric, MethodTOTP}

// Valid reports whether m is a known verification method.
func (m Method) Valid() bool {
	switch m {
	case MethodPIN, MethodBiometric, MethodTOTP:
		return true
	}
	return false
}

// Outcome is the audited result of a switch attempt.
type Outcome string

const (
	OutcomeSuccess         Outcome = "success"
	OutcomePINMismatch     Outcome = "pin_mismatch"
	OutcomeBiometricDenied Outcome = "biometric_denied"
	OutcomeTOTPMismatch    Outcome = "totp_mismatch"
	OutcomeRateLimited     Outcome = "rate_limited"
	OutcomeLockedOut       Outcome = "locked_out"
	OutcomeNoCredential    Outcome = "no_credential"
)

// Failure reports whether the outcome is a completed verification failure,
// i.e. one that consumes a rate limit attempt.
func (o Outcome) Failure() bool {
	switch o {
	case OutcomePINMismatch, OutcomeBiometricDenied, OutcomeTOTPMismatch:
		return true
	}
	return false
}

// BiometricKind is the biometric modality enrolled for a credential.
type BiometricKind string

const (
	BiometricNone        BiometricKind = "none"
	BiometricFace        BiometricKind = "face"
	BiometricFingerprint BiometricKind = "fingerprint"
)

func (k BiometricKind) Valid() bool {
	switch k {
	case BiometricNone, BiometricFace, BiometricFingerprint:
		return true
	}
	return false
}

// BiometricOutcome is what the host platform reports for a biometric
// prompt. Only Success and Denied are completed checks; Cancelled and
// Unavailable consume no rate limit attempt.
type BiometricOutcome string

const (
	BiometricSuccess     BiometricOutcome = "success"
	BiometricDenied      BiometricOutcome = "denied"
	BiometricCancelled   BiometricOutcome = "cancelled"
	BiometricUnavailable BiometricOutcome = "unavailable"
)

func (o BiometricOutcome) Valid() bool {
	switch o {
	case BiometricSuccess, BiometricDenied, BiometricCancelled, BiometricUnavailable:
		return true
	}
	return false
}

// Profile names one of a user's two identities.
type Profile string

const (
	ProfileReal   Profile = "real"
	ProfileShadow Profile = "shadow"
)

func (p Profile) Valid() bool {
	return p == ProfileReal || p == ProfileShadow
}

// Other returns the opposite profile.
func (p Profile) Other() Profile {
	if p == ProfileShadow {
		return ProfileReal
	}
	return ProfileShadow
}
