package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/lumora/shadowgate/internal/gate/domain"
	"github.com/lumora/shadowgate/internal/gate/service"
	"github.com/lumora/shadowgate/pkg/httpx"
	"github.com/lumora/shadowgate/pkg/slogx"
)

// CredentialHandlers manages the caller's own shadow credential.
type CredentialHandlers struct {
	Credentials *service.CredentialService
}

type provisionRequest struct {
	PIN string `json:"pin" example:"4821"`
}

type changePINRequest struct {
	CurrentPIN string `json:"current_pin"`
	NewPIN     string `json:"new_pin"`
}

type biometricRequest struct {
	Enabled bool   `json:"enabled"`
	Kind    string `json:"kind,omitempty" example:"face"`
}

type totpActivateRequest struct {
	Code string `json:"code" example:"492031"`
}

type credentialResponse struct {
	UserID           string `json:"user_id"`
	BiometricEnabled bool   `json:"biometric_enabled"`
	BiometricKind    string `json:"biometric_kind"`
	TOTPActive       bool   `json:"totp_active"`
	CreatedAt        string `json:"created_at"`
}

type totpEnrollResponse struct {
	Secret string `json:"secret"`
	URL    string `json:"url"`
}

func credentialView(c domain.ShadowCredential) credentialResponse {
	return credentialResponse{
		UserID:           c.UserID,
		BiometricEnabled: c.BiometricEnabled,
		BiometricKind:    string(c.BiometricKind),
		TOTPActive:       c.TOTPActive(),
		CreatedAt:        c.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
	}
}

// Provision godoc
//
//	@Summary	Create the shadow credential
//	@Tags		credential
//	@Accept		json
//	@Produce	json
//	@Param		request	body		provisionRequest	true	"initial PIN"
//	@Success	201		{object}	credentialResponse
//	@Failure	400		{object}	map[string]string
//	@Failure	409		{object}	map[string]string
//	@Security	BearerAuth
//	@Router		/v1/gate/credential [post]
func (h *CredentialHandlers) Provision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body provisionRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	cred, err := h.Credentials.Provision(ctx, httpx.UserIDFromCtx(ctx), body.PIN)
	if err != nil {
		writeCredentialError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, credentialView(cred))
}

// Get godoc
//
//	@Summary	Inspect the shadow credential
//	@Tags		credential
//	@Produce	json
//	@Success	200	{object}	credentialResponse
//	@Failure	404	{object}	map[string]string
//	@Security	BearerAuth
//	@Router		/v1/gate/credential [get]
func (h *CredentialHandlers) Get(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	cred, err := h.Credentials.Get(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		writeCredentialError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, credentialView(cred))
}

// ChangePIN godoc
//
//	@Summary	Change the shadow PIN
//	@Tags		credential
//	@Accept		json
//	@Param		request	body	changePINRequest	true	"current and new PIN"
//	@Success	204
//	@Failure	400	{object}	map[string]string
//	@Failure	403	{object}	map[string]string
//	@Security	BearerAuth
//	@Router		/v1/gate/credential/pin [put]
func (h *CredentialHandlers) ChangePIN(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body changePINRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	if err := h.Credentials.ChangePIN(ctx, httpx.UserIDFromCtx(ctx), body.CurrentPIN, body.NewPIN); err != nil {
		writeCredentialError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetBiometric godoc
//
//	@Summary	Enable or disable biometric verification
//	@Tags		credential
//	@Accept		json
//	@Param		request	body	biometricRequest	true	"biometric settings"
//	@Success	204
//	@Failure	400	{object}	map[string]string
//	@Security	BearerAuth
//	@Router		/v1/gate/credential/biometric [put]
func (h *CredentialHandlers) SetBiometric(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body biometricRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	err := h.Credentials.SetBiometric(ctx, httpx.UserIDFromCtx(ctx), body.Enabled, domain.BiometricKind(body.Kind))
	if err != nil {
		writeCredentialError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EnrollTOTP godoc
//
//	@Summary		Enroll an authenticator app
//	@Description	Generates a TOTP secret, pending activation with a first valid code. The secret is returned exactly once.
//	@Tags			credential
//	@Produce		json
//	@Success		200	{object}	totpEnrollResponse
//	@Failure		404	{object}	map[string]string
//	@Security		BearerAuth
//	@Router			/v1/gate/credential/totp [post]
func (h *CredentialHandlers) EnrollTOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	enrollment, err := h.Credentials.EnrollTOTP(ctx, httpx.UserIDFromCtx(ctx))
	if err != nil {
		writeCredentialError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, totpEnrollResponse{
		Secret: enrollment.Secret,
		URL:    enrollment.URL,
	})
}

// ActivateTOTP godoc
//
//	@Summary	Activate a pending authenticator enrollment
//	@Tags		credential
//	@Accept		json
//	@Param		request	body	totpActivateRequest	true	"first code"
//	@Success	204
//	@Failure	400	{object}	map[string]string
//	@Security	BearerAuth
//	@Router		/v1/gate/credential/totp/activate [post]
func (h *CredentialHandlers) ActivateTOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body totpActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	if err := h.Credentials.ActivateTOTP(ctx, httpx.UserIDFromCtx(ctx), body.Code); err != nil {
		writeCredentialError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveTOTP godoc
//
//	@Summary	Remove the authenticator enrollment
//	@Tags		credential
//	@Success	204
//	@Security	BearerAuth
//	@Router		/v1/gate/credential/totp [delete]
func (h *CredentialHandlers) RemoveTOTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Credentials.RemoveTOTP(ctx, httpx.UserIDFromCtx(ctx)); err != nil {
		writeCredentialError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Remove godoc
//
//	@Summary		Remove the shadow credential
//	@Description	Deletes the credential and clears the user's rate limit windows. The audit trail is retained.
//	@Tags			credential
//	@Success		204
//	@Failure		404	{object}	map[string]string
//	@Security		BearerAuth
//	@Router			/v1/gate/credential [delete]
func (h *CredentialHandlers) Remove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if err := h.Credentials.Remove(ctx, httpx.UserIDFromCtx(ctx)); err != nil {
		writeCredentialError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeCredentialError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPIN):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_pin", "pin must be 4 to 6 digits")
	case errors.Is(err, service.ErrPINMismatch):
		httpx.WriteError(w, http.StatusForbidden, "pin_mismatch", "current pin does not match")
	case errors.Is(err, service.ErrCredentialExists):
		httpx.WriteError(w, http.StatusConflict, "already_exists", "a shadow credential already exists")
	case errors.Is(err, service.ErrNoCredential):
		httpx.WriteError(w, http.StatusNotFound, "no_credential", "no shadow credential exists")
	case errors.Is(err, service.ErrInvalidBiometric):
		httpx.WriteError(w, http.StatusBadRequest, "invalid_biometric", "enabling biometrics requires kind face or fingerprint")
	case errors.Is(err, service.ErrTOTPNotPending):
		httpx.WriteError(w, http.StatusBadRequest, "totp_not_pending", "no pending authenticator enrollment")
	case errors.Is(err, service.ErrTOTPCodeInvalid):
		httpx.WriteError(w, http.StatusBadRequest, "totp_code_invalid", "the code did not match")
	default:
		slogx.FromContext(r.Context()).Error("credential operation failed", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "credential operation failed")
	}
}
