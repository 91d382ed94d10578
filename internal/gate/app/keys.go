package app

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/lumora/shadowgate/pkg/jwtx"
)

// loadKeys bootstraps the gate's signing key and the session token
// verifier. With no external public key configured the gate verifies
// session tokens against its own keypair, which is what dev and e2e
// setups want.
func loadKeys(cfg Config) (*jwtx.EdDSASigner, jwtx.Verifier, error) {
	signer, err := jwtx.LoadOrGenerateSigningKey(filepath.Join(cfg.DataDir, "signing.pem"))
	if err != nil {
		return nil, nil, fmt.Errorf("load signing key: %w", err)
	}

	if cfg.SessionPublicKeyFile == "" {
		return signer, jwtx.NewEdDSAVerifier(signer.Public(), ""), nil
	}

	pemBytes, err := os.ReadFile(cfg.SessionPublicKeyFile)
	if err != nil {
		return nil, nil, fmt.Errorf("read session public key: %w", err)
	}
	pub, err := jwtx.ParseEdDSAPublicKey(pemBytes)
	if err != nil {
		return nil, nil, fmt.Errorf("parse session public key: %w", err)
	}
	return signer, jwtx.NewEdDSAVerifier(pub, ""), nil
}
