// Package http wires the gate's services to their HTTP surface.
package http

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/lumora/shadowgate/internal/gate/service"
	"github.com/lumora/shadowgate/internal/gate/store"
	"github.com/lumora/shadowgate/pkg/httpx"
	"github.com/lumora/shadowgate/pkg/jwtx"
	"github.com/lumora/shadowgate/pkg/slogx"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/lumora/shadowgate/api/gate" // swagger docs
)

// Scopes understood by the router. Session tokens carry a subset.
const (
	ScopeSwitch     = "gate:switch"
	ScopeCredential = "gate:credential"
	ScopeAdminRead  = "admin:read"
	ScopeAdminWrite = "admin:write"
)

// Deps is everything the router needs.
type Deps struct {
	Log      *slog.Logger
	Verifier jwtx.Verifier

	Store       store.Store
	Gate        *service.GateService
	Credentials *service.CredentialService
	Limits      *service.LimitsService
	Audit       *service.AuditService

	// EnableSwagger exposes /swagger/ when set. Off in production.
	EnableSwagger bool
}

// NewRouter assembles the full route table.
func NewRouter(d Deps) http.Handler {
	mux := http.NewServeMux()

	switchH := &SwitchHandlers{Gate: d.Gate}
	credH := &CredentialHandlers{Credentials: d.Credentials}
	adminH := &AdminHandlers{Limits: d.Limits, Audit: d.Audit}
	healthH := &HealthHandlers{Store: d.Store}

	authn := httpx.AuthnMiddleware(d.Verifier)

	gateChain := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h,
			authn,
			httpx.RequireAnyScope(ScopeSwitch),
			httpx.RateLimitByUser(httpx.StrictLimit),
		)
	}
	credChain := func(h http.HandlerFunc) http.Handler {
		return httpx.Chain(h,
			authn,
			httpx.RequireAnyScope(ScopeCredential),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		)
	}
	adminChain := func(h http.HandlerFunc, scope string) http.Handler {
		return httpx.Chain(h,
			authn,
			httpx.RequireAnyScope(scope),
			httpx.RateLimitByUser(httpx.LenientLimit),
		)
	}

	mux.Handle("POST /v1/gate/switch", gateChain(switchH.Switch))
	mux.Handle("GET /v1/gate/profile", gateChain(switchH.Profile))

	mux.Handle("POST /v1/gate/credential", credChain(credH.Provision))
	mux.Handle("GET /v1/gate/credential", credChain(credH.Get))
	mux.Handle("DELETE /v1/gate/credential", credChain(credH.Remove))
	mux.Handle("PUT /v1/gate/credential/pin", credChain(credH.ChangePIN))
	mux.Handle("PUT /v1/gate/credential/biometric", credChain(credH.SetBiometric))
	mux.Handle("POST /v1/gate/credential/totp", credChain(credH.EnrollTOTP))
	mux.Handle("POST /v1/gate/credential/totp/activate", credChain(credH.ActivateTOTP))
	mux.Handle("DELETE /v1/gate/credential/totp", credChain(credH.RemoveTOTP))

	mux.Handle("GET /v1/admin/limits", adminChain(adminH.ListLimits, ScopeAdminRead))
	mux.Handle("PUT /v1/admin/limits/{method}", adminChain(adminH.UpdateLimit, ScopeAdminWrite))
	mux.Handle("GET /v1/admin/audit/stats", adminChain(adminH.AuditStats, ScopeAdminRead))
	mux.Handle("GET /v1/admin/audit/users/{user_id}", adminChain(adminH.UserTimeline, ScopeAdminRead))

	mux.HandleFunc("GET /livez", healthH.Livez)
	mux.HandleFunc("GET /readyz", healthH.Readyz)

	if d.EnableSwagger {
		mux.Handle("GET /swagger/", httpSwagger.Handler(
			httpSwagger.URL("/swagger/doc.json"),
		))
	}

	return slogx.HTTPMiddleware(d.Log)(mux)
}

// clientIP extracts the originating client IP, honouring proxy headers.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return rip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
