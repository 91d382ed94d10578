// Package gatesdk is a small typed client for the shadowgate HTTP API.
package gatesdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// APIError is a non-2xx response from the gate.
type APIError struct {
	Status int
	Code   string
	Desc   string

	// Response is the decoded switch body, when the endpoint returns one
	// alongside the error status (denied and throttled attempts do).
	Response *SwitchResponse
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gatesdk: %d %s: %s", e.Status, e.Code, e.Desc)
	}
	return fmt.Sprintf("gatesdk: unexpected status %d", e.Status)
}

// Client talks to one gate instance on behalf of one bearer token.
type Client struct {
	BaseURL string
	Token   string

	// HTTPClient defaults to a client with a sane timeout.
	HTTPClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}
}

// Switch attempts a profile switch. Denied and throttled attempts return
// an *APIError whose Response carries the outcome details.
func (c *Client) Switch(ctx context.Context, req SwitchRequest) (SwitchResponse, error) {
	var out SwitchResponse
	err := c.do(ctx, http.MethodPost, "/v1/gate/switch", req, &out)
	return out, err
}

// ActiveProfile reads the session's current profile pointer.
func (c *Client) ActiveProfile(ctx context.Context) (Profile, error) {
	var out Profile
	err := c.do(ctx, http.MethodGet, "/v1/gate/profile", nil, &out)
	return out, err
}

// ProvisionCredential creates the shadow credential with an initial PIN.
func (c *Client) ProvisionCredential(ctx context.Context, pin string) (Credential, error) {
	var out Credential
	err := c.do(ctx, http.MethodPost, "/v1/gate/credential", map[string]string{"pin": pin}, &out)
	return out, err
}

// Credential reads the redacted credential view.
func (c *Client) Credential(ctx context.Context) (Credential, error) {
	var out Credential
	err := c.do(ctx, http.MethodGet, "/v1/gate/credential", nil, &out)
	return out, err
}

// ChangePIN rotates the PIN.
func (c *Client) ChangePIN(ctx context.Context, currentPIN, newPIN string) error {
	return c.do(ctx, http.MethodPut, "/v1/gate/credential/pin", map[string]string{
		"current_pin": currentPIN,
		"new_pin":     newPIN,
	}, nil)
}

// SetBiometric enables or disables the biometric method.
func (c *Client) SetBiometric(ctx context.Context, enabled bool, kind string) error {
	return c.do(ctx, http.MethodPut, "/v1/gate/credential/biometric", map[string]any{
		"enabled": enabled,
		"kind":    kind,
	}, nil)
}

// EnrollTOTP starts an authenticator enrollment.
func (c *Client) EnrollTOTP(ctx context.Context) (TOTPEnrollment, error) {
	var out TOTPEnrollment
	err := c.do(ctx, http.MethodPost, "/v1/gate/credential/totp", nil, &out)
	return out, err
}

// ActivateTOTP proves the authenticator with a first code.
func (c *Client) ActivateTOTP(ctx context.Context, code string) error {
	return c.do(ctx, http.MethodPost, "/v1/gate/credential/totp/activate", map[string]string{"code": code}, nil)
}

// RemoveTOTP drops the authenticator enrollment.
func (c *Client) RemoveTOTP(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/v1/gate/credential/totp", nil, nil)
}

// RemoveCredential deletes the shadow credential.
func (c *Client) RemoveCredential(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/v1/gate/credential", nil, nil)
}

// Limits lists the rate limit policies. Requires admin:read.
func (c *Client) Limits(ctx context.Context) ([]LimitConfig, error) {
	var out []LimitConfig
	err := c.do(ctx, http.MethodGet, "/v1/admin/limits", nil, &out)
	return out, err
}

// UpdateLimit replaces one method's policy. Requires admin:write.
func (c *Client) UpdateLimit(ctx context.Context, cfg LimitConfig) (LimitConfig, error) {
	var out LimitConfig
	err := c.do(ctx, http.MethodPut, "/v1/admin/limits/"+cfg.Method, cfg, &out)
	return out, err
}

// AuditStats reads the violation counters. Requires admin:read.
func (c *Client) AuditStats(ctx context.Context) (AuditStats, error) {
	var out AuditStats
	err := c.do(ctx, http.MethodGet, "/v1/admin/audit/stats", nil, &out)
	return out, err
}

// UserTimeline reads a user's attempt timeline. Requires admin:read.
func (c *Client) UserTimeline(ctx context.Context, userID string, limit int) ([]AuditEntry, error) {
	path := "/v1/admin/audit/users/" + userID
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}
	var out []AuditEntry
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reqBody = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	httpClient := c.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || len(raw) == 0 {
			return nil
		}
		return json.Unmarshal(raw, out)
	}

	apiErr := &APIError{Status: resp.StatusCode}

	var errBody apiError
	if json.Unmarshal(raw, &errBody) == nil && errBody.Code != "" {
		apiErr.Code = errBody.Code
		apiErr.Desc = errBody.Desc
		return apiErr
	}

	// Denied and throttled switch attempts answer with a switch body.
	var sw SwitchResponse
	if json.Unmarshal(raw, &sw) == nil && sw.Outcome != "" {
		apiErr.Code = sw.Outcome
		apiErr.Response = &sw
	}
	return apiErr
}
