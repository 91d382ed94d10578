package gate_test

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/lumora/shadowgate/pkg/gatesdk"
	"github.com/lumora/shadowgate/pkg/jwtx"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
 * Common helpers for gate end-to-end tests: container lifecycle, session
 * token minting and client construction.
 *
 * The suite plays the role of the platform's auth service: it generates an
 * Ed25519 keypair, hands the public half to the gate container, and mints
 * session tokens with the private half.
 */

const (
	testImageName = "shadowgate-test:latest"
	testIssuer    = "shadowgate-e2e"
)

var (
	signer        *jwtx.EdDSASigner
	sessionPubPEM string // host path of the PKIX PEM public key
)

// TestMain builds the Docker image and the suite keypair once.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building gate Docker image...")
	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	if err := generateSuiteKeys(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to generate suite keys: %v\n", err)
		os.Exit(1)
	}

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up gate Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	cmd := exec.Command("docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/gate/Dockerfile",
		"../../../")
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil
	return cmd.Run()
}

func cleanupDockerImage() {
	_ = exec.Command("docker", "rmi", "-f", testImageName).Run()
}

// generateSuiteKeys builds the keypair this suite signs session tokens
// with, persisting the public half for the container.
func generateSuiteKeys() error {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return err
	}

	privDER, err := x509.MarshalPKCS8PrivateKey(priv)
	if err != nil {
		return err
	}
	privPEM := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: privDER})
	signer, err = jwtx.NewEdDSASigner(privPEM)
	if err != nil {
		return err
	}

	pubDER, err := x509.MarshalPKIXPublicKey(priv.Public())
	if err != nil {
		return err
	}
	pubPEM := pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: pubDER})

	dir, err := os.MkdirTemp("", "gate-e2e-keys")
	if err != nil {
		return err
	}
	sessionPubPEM = filepath.Join(dir, "session.pub.pem")
	return os.WriteFile(sessionPubPEM, pubPEM, 0644)
}

// setupGateContainer starts the gate with relaxed transport rate limits;
// the persistent attempt limiter under test keeps its defaults.
func setupGateContainer(t *testing.T) (string, func()) {
	return setupGateContainerWithEnv(t, map[string]string{
		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_BURST":      "1000",
		"RATELIMIT_MODERATE_REQUESTS": "1000",
		"RATELIMIT_MODERATE_BURST":    "1000",
		"RATELIMIT_LENIENT_REQUESTS":  "1000",
		"RATELIMIT_LENIENT_BURST":     "1000",
	})
}

func setupGateContainerWithEnv(t *testing.T, extraEnv map[string]string) (string, func()) {
	t.Helper()
	ctx := context.Background()

	env := map[string]string{
		"GATE_DB_DRIVER":          "sqlite",
		"GATE_DB_DSN":             "file:/app/data/gate.db",
		"GATE_DATA_DIR":           "/app/data",
		"GATE_ISSUER":             testIssuer,
		"GATE_SESSION_PUBLIC_KEY": "/app/keys/session.pub.pem",
		"GATE_ENV":                "test",
		"GATE_LOG_LEVEL":          "info",
		"GATE_LOG_FORMAT":         "json",
	}
	for k, v := range extraEnv {
		env[k] = v
	}

	req := testcontainers.ContainerRequest{
		Image:        testImageName,
		ExposedPorts: []string{"8080/tcp"},
		Env:          env,
		Files: []testcontainers.ContainerFile{
			{
				HostFilePath:      sessionPubPEM,
				ContainerFilePath: "/app/keys/session.pub.pem",
				FileMode:          0644,
			},
		},
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)
	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return baseURL, cleanup
}

// mintToken signs a session token the way the platform's auth service
// would.
func mintToken(t *testing.T, userID, sessionID string, scopes ...string) string {
	t.Helper()

	claims := jwtx.NewClaims(testIssuer, userID, time.Hour)
	claims.SessionID = sessionID
	claims.Scopes = scopes

	token, err := signer.Sign(claims)
	require.NoError(t, err)
	return token
}

// userClients returns one client per scope profile for a user.
func userClients(t *testing.T, baseURL, userID, sessionID string) (gateClient, credClient *gatesdk.Client) {
	t.Helper()
	gateClient = gatesdk.New(baseURL, mintToken(t, userID, sessionID, "gate:switch"))
	credClient = gatesdk.New(baseURL, mintToken(t, userID, sessionID, "gate:credential"))
	return gateClient, credClient
}

func adminClient(t *testing.T, baseURL string) *gatesdk.Client {
	t.Helper()
	return gatesdk.New(baseURL, mintToken(t, "admin", "sess-admin", "admin:read", "admin:write"))
}

// requireAPIError asserts err is an APIError with the given status.
func requireAPIError(t *testing.T, err error, status int) *gatesdk.APIError {
	t.Helper()
	require.Error(t, err)
	apiErr, ok := err.(*gatesdk.APIError)
	require.True(t, ok, "expected *gatesdk.APIError, got %T: %v", err, err)
	require.Equal(t, status, apiErr.Status)
	return apiErr
}
