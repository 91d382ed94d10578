package gate_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/lumora/shadowgate/pkg/gatesdk"

	"github.com/stretchr/testify/require"
)

func TestE2ESwitchLifecycle(t *testing.T) {
	baseURL, cleanup := setupGateContainer(t)
	defer cleanup()
	ctx := context.Background()

	gateClient, credClient := userClients(t, baseURL, "user-1", "sess-1")

	// Fresh session sits on the real profile.
	profile, err := gateClient.ActiveProfile(ctx)
	require.NoError(t, err)
	require.Equal(t, "real", profile.ActiveProfile)

	// No credential yet: the switch cannot even be attempted.
	_, err = gateClient.Switch(ctx, gatesdk.SwitchRequest{Method: "pin", PIN: "4821"})
	requireAPIError(t, err, http.StatusNotFound)

	cred, err := credClient.ProvisionCredential(ctx, "4821")
	require.NoError(t, err)
	require.Equal(t, "user-1", cred.UserID)
	require.False(t, cred.BiometricEnabled)

	// Real to shadow.
	resp, err := gateClient.Switch(ctx, gatesdk.SwitchRequest{Method: "pin", PIN: "4821"})
	require.NoError(t, err)
	require.True(t, resp.Switched)
	require.Equal(t, "shadow", resp.ActiveProfile)
	require.NotEmpty(t, resp.ProfileToken)

	profile, err = gateClient.ActiveProfile(ctx)
	require.NoError(t, err)
	require.Equal(t, "shadow", profile.ActiveProfile)

	// And back again, same ceremony.
	resp, err = gateClient.Switch(ctx, gatesdk.SwitchRequest{Method: "pin", PIN: "4821"})
	require.NoError(t, err)
	require.Equal(t, "real", resp.ActiveProfile)
}

func TestE2EWrongPINLockout(t *testing.T) {
	baseURL, cleanup := setupGateContainer(t)
	defer cleanup()
	ctx := context.Background()

	gateClient, credClient := userClients(t, baseURL, "user-1", "sess-1")
	_, err := credClient.ProvisionCredential(ctx, "4821")
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		_, err := gateClient.Switch(ctx, gatesdk.SwitchRequest{Method: "pin", PIN: "0000"})
		apiErr := requireAPIError(t, err, http.StatusForbidden)
		require.Equal(t, "pin_mismatch", apiErr.Code)
		require.NotNil(t, apiErr.Response.Remaining)
		require.Equal(t, 4-i, *apiErr.Response.Remaining)
	}

	// Locked out now, even with the right PIN.
	_, err = gateClient.Switch(ctx, gatesdk.SwitchRequest{Method: "pin", PIN: "4821"})
	apiErr := requireAPIError(t, err, http.StatusTooManyRequests)
	require.Equal(t, "locked_out", apiErr.Code)
	require.Positive(t, apiErr.Response.RetryAfter)

	// The pointer never moved.
	profile, err := gateClient.ActiveProfile(ctx)
	require.NoError(t, err)
	require.Equal(t, "real", profile.ActiveProfile)
}

func TestE2EBiometricFlow(t *testing.T) {
	baseURL, cleanup := setupGateContainer(t)
	defer cleanup()
	ctx := context.Background()

	gateClient, credClient := userClients(t, baseURL, "user-1", "sess-1")
	_, err := credClient.ProvisionCredential(ctx, "4821")
	require.NoError(t, err)
	require.NoError(t, credClient.SetBiometric(ctx, true, "face"))

	// Cancelled prompts are not attempts; they never dent the budget.
	for i := 0; i < 10; i++ {
		_, err := gateClient.Switch(ctx, gatesdk.SwitchRequest{Method: "biometric", BiometricResult: "cancelled"})
		requireAPIError(t, err, http.StatusBadRequest)
	}

	// A successful prompt switches.
	resp, err := gateClient.Switch(ctx, gatesdk.SwitchRequest{Method: "biometric", BiometricResult: "success"})
	require.NoError(t, err)
	require.Equal(t, "shadow", resp.ActiveProfile)

	// Unavailable sensor with a PIN in hand falls back to PIN.
	resp, err = gateClient.Switch(ctx, gatesdk.SwitchRequest{
		Method:          "biometric",
		BiometricResult: "unavailable",
		PIN:             "4821",
	})
	require.NoError(t, err)
	require.Equal(t, "real", resp.ActiveProfile)
}

func TestE2ECredentialManagement(t *testing.T) {
	baseURL, cleanup := setupGateContainer(t)
	defer cleanup()
	ctx := context.Background()

	gateClient, credClient := userClients(t, baseURL, "user-1", "sess-1")

	_, err := credClient.ProvisionCredential(ctx, "4821")
	require.NoError(t, err)

	// Rotating the PIN requires the current one.
	err = credClient.ChangePIN(ctx, "9999", "5555")
	requireAPIError(t, err, http.StatusForbidden)
	require.NoError(t, credClient.ChangePIN(ctx, "4821", "5555"))

	resp, err := gateClient.Switch(ctx, gatesdk.SwitchRequest{Method: "pin", PIN: "5555"})
	require.NoError(t, err)
	require.Equal(t, "shadow", resp.ActiveProfile)

	// Removing the credential closes the gate entirely.
	require.NoError(t, credClient.RemoveCredential(ctx))
	_, err = gateClient.Switch(ctx, gatesdk.SwitchRequest{Method: "pin", PIN: "5555"})
	requireAPIError(t, err, http.StatusNotFound)
}
