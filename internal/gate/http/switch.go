package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/lumora/shadowgate/internal/gate/domain"
	"github.com/lumora/shadowgate/internal/gate/service"
	"github.com/lumora/shadowgate/pkg/httpx"
	"github.com/lumora/shadowgate/pkg/slogx"
)

// SwitchHandlers exposes the identity switch gate itself.
type SwitchHandlers struct {
	Gate *service.GateService
}

type switchRequest struct {
	Method string `json:"method" example:"pin"`

	// PIN is required for method "pin" and consulted as the fallback
	// when a biometric prompt reports unavailable.
	PIN string `json:"pin,omitempty"`

	TOTPCode string `json:"totp_code,omitempty"`

	// BiometricResult is the host platform's prompt outcome, reported by
	// the client for method "biometric": success, denied, cancelled or
	// unavailable.
	BiometricResult string `json:"biometric_result,omitempty"`
}

type switchResponse struct {
	Switched      bool   `json:"switched"`
	ActiveProfile string `json:"active_profile,omitempty"`
	ProfileToken  string `json:"profile_token,omitempty"`
	Outcome       string `json:"outcome,omitempty"`
	Remaining     *int   `json:"attempts_remaining,omitempty"`
	RetryAfter    int    `json:"retry_after_seconds,omitempty"`
}

type profileResponse struct {
	SessionID     string `json:"session_id"`
	ActiveProfile string `json:"active_profile"`
}

// reportedPrompt relays the platform prompt outcome the client observed.
// The gate never sees biometric data, only this verdict.
type reportedPrompt struct {
	outcome domain.BiometricOutcome
}

func (p reportedPrompt) Prompt(ctx context.Context, kind domain.BiometricKind) (domain.BiometricOutcome, error) {
	if !p.outcome.Valid() {
		return "", errors.New("missing or invalid biometric_result")
	}
	return p.outcome, nil
}

// Switch godoc
//
//	@Summary		Attempt a profile switch
//	@Description	Verifies the caller with the chosen method and, on success, flips the session's active profile.
//	@Tags			gate
//	@Accept			json
//	@Produce		json
//	@Param			request	body		switchRequest	true	"switch attempt"
//	@Success		200		{object}	switchResponse
//	@Failure		400		{object}	map[string]string
//	@Failure		403		{object}	switchResponse
//	@Failure		404		{object}	map[string]string
//	@Failure		429		{object}	switchResponse
//	@Failure		503		{object}	map[string]string
//	@Security		BearerAuth
//	@Router			/v1/gate/switch [post]
func (h *SwitchHandlers) Switch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body switchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	req := service.SwitchRequest{
		SessionID: httpx.SessionIDFromCtx(ctx),
		UserID:    httpx.UserIDFromCtx(ctx),
		Method:    domain.Method(body.Method),
		PIN:       body.PIN,
		TOTPCode:  body.TOTPCode,
		Actor: domain.ActorContext{
			IP:     clientIP(r),
			Device: r.Header.Get("User-Agent"),
		},
	}
	if req.Method == domain.MethodBiometric || body.BiometricResult != "" {
		req.Biometric = reportedPrompt{outcome: domain.BiometricOutcome(body.BiometricResult)}
	}

	res, err := h.Gate.Switch(ctx, req)
	if err != nil {
		writeSwitchError(w, ctx, res, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, switchResponse{
		Switched:      true,
		ActiveProfile: string(res.ActiveProfile),
		ProfileToken:  res.ProfileToken,
		Outcome:       string(res.Outcome),
	})
}

// Profile godoc
//
//	@Summary	Current active profile
//	@Tags		gate
//	@Produce	json
//	@Success	200	{object}	profileResponse
//	@Security	BearerAuth
//	@Router		/v1/gate/profile [get]
func (h *SwitchHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	sessionID := httpx.SessionIDFromCtx(ctx)

	profile, err := h.Gate.ActiveProfile(ctx, sessionID)
	if err != nil {
		slogx.FromContext(ctx).Error("load active profile", "error", err)
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "could not load the active profile")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, profileResponse{
		SessionID:     sessionID,
		ActiveProfile: string(profile),
	})
}

func writeSwitchError(w http.ResponseWriter, ctx context.Context, res service.SwitchResult, err error) {
	switch {
	case errors.Is(err, service.ErrLockedOut), errors.Is(err, service.ErrRateLimited):
		retry := int(res.RetryAfter.Seconds())
		if retry < 1 {
			retry = 1
		}
		w.Header().Set("Retry-After", strconv.Itoa(retry))
		httpx.WriteJSON(w, http.StatusTooManyRequests, switchResponse{
			Outcome:    string(res.Outcome),
			RetryAfter: retry,
		})

	case errors.Is(err, service.ErrVerificationDenied):
		httpx.WriteJSON(w, http.StatusForbidden, switchResponse{
			Outcome:   string(res.Outcome),
			Remaining: res.Remaining,
		})

	case errors.Is(err, service.ErrNoCredential):
		httpx.WriteError(w, http.StatusNotFound, "no_credential", "no shadow profile exists for this user")

	case errors.Is(err, service.ErrBiometricCancelled):
		httpx.WriteError(w, http.StatusBadRequest, "prompt_cancelled", "the biometric prompt was cancelled")

	case errors.Is(err, service.ErrBiometricUnavailable):
		httpx.WriteError(w, http.StatusBadRequest, "biometric_unavailable", "biometric verification is unavailable; retry with a PIN")

	case errors.Is(err, service.ErrMethodNotEnrolled):
		httpx.WriteError(w, http.StatusBadRequest, "method_not_enrolled", "this verification method is not enrolled")

	case errors.Is(err, service.ErrUnknownMethod):
		httpx.WriteError(w, http.StatusBadRequest, "unknown_method", "unknown verification method")

	default:
		slogx.FromContext(ctx).Error("switch attempt failed", "error", err)
		if res.RetryAfter > 0 {
			w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryAfter.Seconds())))
		}
		httpx.WriteError(w, http.StatusServiceUnavailable, "unavailable", "the gate could not complete the attempt")
	}
}
