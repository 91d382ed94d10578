package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/lumora/shadowgate/internal/gate/domain"
	"github.com/lumora/shadowgate/internal/gate/service"
	"github.com/lumora/shadowgate/pkg/httpx"
	"github.com/lumora/shadowgate/pkg/slogx"
)

// AdminHandlers serves the operations console: rate limit policy and the
// audit trail.
type AdminHandlers struct {
	Limits *service.LimitsService
	Audit  *service.AuditService
}

type limitConfigPayload struct {
	Method         string `json:"method" example:"pin"`
	MaxAttempts    int    `json:"max_attempts" example:"5"`
	WindowMinutes  int    `json:"window_minutes" example:"15"`
	LockoutMinutes int    `json:"lockout_minutes" example:"30"`
}

type auditEntryPayload struct {
	ID        string `json:"id"`
	UserID    string `json:"user_id"`
	Seq       int64  `json:"seq"`
	Method    string `json:"method"`
	Outcome   string `json:"outcome"`
	IP        string `json:"ip,omitempty"`
	Device    string `json:"device,omitempty"`
	CreatedAt string `json:"created_at"`
}

type auditStatsPayload struct {
	TotalViolations int64 `json:"total_violations"`
	Violations24h   int64 `json:"violations_24h"`
	LockedUsers     int64 `json:"locked_users"`
}

func limitView(cfg domain.LimitConfig) limitConfigPayload {
	return limitConfigPayload{
		Method:         string(cfg.Method),
		MaxAttempts:    cfg.MaxAttempts,
		WindowMinutes:  cfg.WindowMinutes,
		LockoutMinutes: cfg.LockoutMinutes,
	}
}

// ListLimits godoc
//
//	@Summary	List rate limit policies
//	@Tags		admin
//	@Produce	json
//	@Success	200	{array}	limitConfigPayload
//	@Security	BearerAuth
//	@Router		/v1/admin/limits [get]
func (h *AdminHandlers) ListLimits(w http.ResponseWriter, r *http.Request) {
	configs, err := h.Limits.List(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("list limits", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "could not list limits")
		return
	}

	out := make([]limitConfigPayload, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, limitView(cfg))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

// UpdateLimit godoc
//
//	@Summary		Replace one method's rate limit policy
//	@Description	The whole policy is replaced atomically; in-flight attempts keep the snapshot they started with.
//	@Tags			admin
//	@Accept			json
//	@Produce		json
//	@Param			method	path		string				true	"verification method"
//	@Param			request	body		limitConfigPayload	true	"new policy"
//	@Success		200		{object}	limitConfigPayload
//	@Failure		400		{object}	map[string]string
//	@Security		BearerAuth
//	@Router			/v1/admin/limits/{method} [put]
func (h *AdminHandlers) UpdateLimit(w http.ResponseWriter, r *http.Request) {
	var body limitConfigPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	cfg, err := h.Limits.Update(r.Context(), domain.LimitConfig{
		Method:         domain.Method(r.PathValue("method")),
		MaxAttempts:    body.MaxAttempts,
		WindowMinutes:  body.WindowMinutes,
		LockoutMinutes: body.LockoutMinutes,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidLimit) {
			httpx.WriteError(w, http.StatusBadRequest, "invalid_limit", err.Error())
			return
		}
		slogx.FromContext(r.Context()).Error("update limit", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "could not update the limit")
		return
	}
	httpx.WriteJSON(w, http.StatusOK, limitView(cfg))
}

// AuditStats godoc
//
//	@Summary	Violation counters for the operations console
//	@Tags		admin
//	@Produce	json
//	@Success	200	{object}	auditStatsPayload
//	@Security	BearerAuth
//	@Router		/v1/admin/audit/stats [get]
func (h *AdminHandlers) AuditStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Audit.Stats(r.Context())
	if err != nil {
		slogx.FromContext(r.Context()).Error("audit stats", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "could not compute stats")
		return
	}

	httpx.WriteJSON(w, http.StatusOK, auditStatsPayload{
		TotalViolations: stats.TotalViolations,
		Violations24h:   stats.Violations24h,
		LockedUsers:     stats.LockedUsers,
	})
}

// UserTimeline godoc
//
//	@Summary	A user's switch attempt timeline, oldest first
//	@Tags		admin
//	@Produce	json
//	@Param		user_id	path	string	true	"user ID"
//	@Param		limit	query	int		false	"maximum entries"
//	@Success	200		{array}	auditEntryPayload
//	@Security	BearerAuth
//	@Router		/v1/admin/audit/users/{user_id} [get]
func (h *AdminHandlers) UserTimeline(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.Audit.Timeline(r.Context(), r.PathValue("user_id"), limit)
	if err != nil {
		slogx.FromContext(r.Context()).Error("audit timeline", "error", err)
		httpx.WriteError(w, http.StatusInternalServerError, "internal", "could not load the timeline")
		return
	}

	out := make([]auditEntryPayload, 0, len(entries))
	for _, e := range entries {
		out = append(out, auditEntryPayload{
			ID:        e.ID,
			UserID:    e.UserID,
			Seq:       e.Seq,
			Method:    string(e.Method),
			Outcome:   string(e.Outcome),
			IP:        e.Actor.IP,
			Device:    e.Actor.Device,
			CreatedAt: e.CreatedAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}
