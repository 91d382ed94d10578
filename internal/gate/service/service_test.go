package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/lumora/shadowgate/internal/gate/domain"
	"github.com/lumora/shadowgate/internal/gate/store/drivers/sqlite"
	"github.com/lumora/shadowgate/pkg/cryptox"
	"github.com/lumora/shadowgate/pkg/jwtx"

	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock shared by every service under
// test, so lockout expiry can be simulated without sleeping.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// promptStub scripts the host platform's biometric prompt.
type promptStub struct {
	outcome domain.BiometricOutcome
	err     error
	calls   int
}

func (p *promptStub) Prompt(ctx context.Context, kind domain.BiometricKind) (domain.BiometricOutcome, error) {
	p.calls++
	return p.outcome, p.err
}

type testEnv struct {
	store       *sqlite.Store
	clock       *fakeClock
	limits      *LimitsService
	rateLimit   *RateLimitService
	audit       *AuditService
	credentials *CredentialService
	gate        *GateService
	signer      *jwtx.EdDSASigner
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	cryptox.SetPepperPath(filepath.Join(t.TempDir(), "pepper"))

	s, err := sqlite.NewStore("file:" + filepath.Join(t.TempDir(), "gate.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	clock := newFakeClock()
	log := slog.New(slog.DiscardHandler)

	signer, err := jwtx.LoadOrGenerateSigningKey(filepath.Join(t.TempDir(), "signing.pem"))
	require.NoError(t, err)

	limits := &LimitsService{Store: s, Log: log, Now: clock.Now}
	rateLimit := &RateLimitService{Store: s, Log: log, Now: clock.Now}
	audit := &AuditService{Store: s, Log: log, Now: clock.Now}
	credentials := &CredentialService{Store: s, Log: log, RateLimit: rateLimit, Now: clock.Now, TOTPIssuer: "shadowgate-test"}
	gate := &GateService{
		Store:           s,
		Limits:          limits,
		RateLimit:       rateLimit,
		Audit:           audit,
		Signer:          signer,
		Issuer:          "shadowgate-test",
		ProfileTokenTTL: 5 * time.Minute,
		Log:             log,
		Now:             clock.Now,
	}

	return &testEnv{
		store:       s,
		clock:       clock,
		limits:      limits,
		rateLimit:   rateLimit,
		audit:       audit,
		credentials: credentials,
		gate:        gate,
		signer:      signer,
	}
}

func (e *testEnv) provision(t *testing.T, userID, pin string) {
	t.Helper()
	_, err := e.credentials.Provision(context.Background(), userID, pin)
	require.NoError(t, err)
}

func (e *testEnv) pinSwitch(userID, pin string) (SwitchResult, error) {
	return e.gate.Switch(context.Background(), SwitchRequest{
		SessionID: "sess-" + userID,
		UserID:    userID,
		Method:    domain.MethodPIN,
		PIN:       pin,
		Actor:     domain.ActorContext{IP: "198.51.100.4", Device: "test-device"},
	})
}
