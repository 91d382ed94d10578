package app

import (
	"os"
	"strconv"
	"time"
)

// Config is the process configuration, read from GATE_* environment
// variables. Every field has a dev-friendly default so a bare `go run`
// brings up a working instance on sqlite.
type Config struct {
	Addr string

	// DBDriver selects the storage backend: "sqlite" or "postgres".
	DBDriver string
	DBDSN    string

	// DataDir holds generated key material (pepper, signing key) for
	// single-node deployments.
	DataDir string

	Issuer string

	// SessionPublicKeyFile is a PKIX PEM Ed25519 public key used to
	// verify incoming session tokens. Empty means self-verify against
	// the gate's own signing key (dev mode).
	SessionPublicKeyFile string

	ProfileTokenTTL time.Duration

	TOTPIssuer string

	LogLevel  string
	LogFormat string
	Env       string

	EnableSwagger bool

	HousekeepingInterval time.Duration
}

func LoadConfig() Config {
	return Config{
		Addr:                 envStr("GATE_ADDR", ":8080"),
		DBDriver:             envStr("GATE_DB_DRIVER", "sqlite"),
		DBDSN:                envStr("GATE_DB_DSN", "file:data/gate.db"),
		DataDir:              envStr("GATE_DATA_DIR", "data"),
		Issuer:               envStr("GATE_ISSUER", "shadowgate"),
		SessionPublicKeyFile: envStr("GATE_SESSION_PUBLIC_KEY", ""),
		ProfileTokenTTL:      envDur("GATE_PROFILE_TOKEN_TTL", 5*time.Minute),
		TOTPIssuer:           envStr("GATE_TOTP_ISSUER", "shadowgate"),
		LogLevel:             envStr("GATE_LOG_LEVEL", "info"),
		LogFormat:            envStr("GATE_LOG_FORMAT", "json"),
		Env:                  envStr("GATE_ENV", "dev"),
		EnableSwagger:        envBool("GATE_ENABLE_SWAGGER", true),
		HousekeepingInterval: envDur("GATE_HOUSEKEEPING_INTERVAL", time.Hour),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDur(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			return d
		}
	}
	return fallback
}
