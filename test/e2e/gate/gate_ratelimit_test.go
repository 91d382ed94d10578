package gate_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/lumora/shadowgate/pkg/gatesdk"
)

// TestE2ETransportRateLimit runs against the production transport limits
// to prove the outer token-bucket layer kicks in before the persistent
// attempt limiter would.
func TestE2ETransportRateLimit(t *testing.T) {
	baseURL, cleanup := setupGateContainerWithEnv(t, map[string]string{
		"RATELIMIT_STRICT_REQUESTS": "5",
		"RATELIMIT_STRICT_BURST":    "5",
	})
	defer cleanup()
	ctx := context.Background()

	gateClient, credClient := userClients(t, baseURL, "user-1", "sess-1")
	if _, err := credClient.ProvisionCredential(ctx, "4821"); err != nil {
		t.Fatalf("provision: %v", err)
	}

	// Hammer the switch endpoint past the transport budget. Every
	// request carries the right PIN; the 429s come from the transport
	// layer, not the attempt limiter.
	var throttled bool
	for i := 0; i < 12; i++ {
		_, err := gateClient.Switch(ctx, gatesdk.SwitchRequest{Method: "pin", PIN: "4821"})
		if apiErr, ok := err.(*gatesdk.APIError); ok && apiErr.Status == http.StatusTooManyRequests {
			throttled = true
			break
		}
	}
	if !throttled {
		t.Fatal("expected the transport rate limit to reject at least one request")
	}
}
