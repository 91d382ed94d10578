package jwtx

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed   = errors.New("jwtx: malformed token")
	ErrAlgMismatch = errors.New("jwtx: algorithm mismatch")
	ErrInvalidSig  = errors.New("jwtx: invalid signature")
)

// Verifier validates a JWT and returns the claims if it is legit.
type Verifier interface {
	Verify(token string) (Claims, error)
}

// EdDSASigner signs tokens with an Ed25519 private key.
type EdDSASigner struct {
	key ed25519.PrivateKey
	pub ed25519.PublicKey
}

// NewEdDSASigner parses a PKCS8 PEM-encoded Ed25519 private key.
func NewEdDSASigner(pemKey []byte) (*EdDSASigner, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for Ed25519 key")
	}
	if block.Type != "PRIVATE KEY" {
		return nil, fmt.Errorf("jwtx: expected PRIVATE KEY, got %q (Ed25519 requires PKCS8)", block.Type)
	}

	priv, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKCS8: %w", err)
	}
	key, ok := priv.(ed25519.PrivateKey)
	if !ok {
		return nil, errors.New("jwtx: not an Ed25519 private key")
	}

	return &EdDSASigner{
		key: key,
		pub: key.Public().(ed25519.PublicKey),
	}, nil
}

// Sign turns claims into a signed compact JWT string.
func (s *EdDSASigner) Sign(claims Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims).SignedString(s.key)
}

// Public returns the matching public key, e.g. for a self-verifying setup.
func (s *EdDSASigner) Public() ed25519.PublicKey { return s.pub }

// Ready reports whether the signer holds a usable keypair.
func (s *EdDSASigner) Ready() bool {
	return s != nil && len(s.key) == ed25519.PrivateKeySize && len(s.pub) == ed25519.PublicKeySize
}

// EdDSAVerifier validates EdDSA-signed tokens against a single public key.
type EdDSAVerifier struct {
	pub    ed25519.PublicKey
	issuer string // expected iss; empty means "don't care"
}

// NewEdDSAVerifier builds a verifier from a raw Ed25519 public key.
func NewEdDSAVerifier(pub ed25519.PublicKey, issuer string) *EdDSAVerifier {
	return &EdDSAVerifier{pub: pub, issuer: issuer}
}

// ParseEdDSAPublicKey parses a PKIX PEM-encoded Ed25519 public key.
func ParseEdDSAPublicKey(pemKey []byte) (ed25519.PublicKey, error) {
	block, _ := pem.Decode(pemKey)
	if block == nil {
		return nil, errors.New("jwtx: invalid PEM for Ed25519 public key")
	}
	if block.Type != "PUBLIC KEY" {
		return nil, fmt.Errorf("jwtx: expected PUBLIC KEY, got %q", block.Type)
	}

	parsed, err := x509.ParsePKIXPublicKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("jwtx: parse PKIX: %w", err)
	}
	pub, ok := parsed.(ed25519.PublicKey)
	if !ok {
		return nil, errors.New("jwtx: not an Ed25519 public key")
	}
	return pub, nil
}

func (v *EdDSAVerifier) Verify(token string) (Claims, error) {
	var claims Claims

	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != jwt.SigningMethodEdDSA.Alg() {
			return nil, ErrAlgMismatch
		}
		return v.pub, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return Claims{}, ErrExpired
		case errors.Is(err, ErrAlgMismatch):
			return Claims{}, ErrAlgMismatch
		case errors.Is(err, jwt.ErrTokenSignatureInvalid):
			return Claims{}, ErrInvalidSig
		default:
			return Claims{}, fmt.Errorf("%w: %w", ErrMalformed, err)
		}
	}
	if !parsed.Valid {
		return Claims{}, ErrInvalidSig
	}

	if err := claims.ValidateIssuer(v.issuer); err != nil {
		return Claims{}, err
	}
	return claims, nil
}

// LoadOrGenerateSigningKey reads a PKCS8 PEM Ed25519 private key from path,
// generating and persisting one on first run. Mirrors the pepper bootstrap
// so a dev instance comes up with zero provisioning.
func LoadOrGenerateSigningKey(path string) (*EdDSASigner, error) {
	path = filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return nil, err
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		_, priv, err := ed25519.GenerateKey(rand.Reader)
		if err != nil {
			return nil, err
		}
		der, err := x509.MarshalPKCS8PrivateKey(priv)
		if err != nil {
			return nil, err
		}
		pemBytes := pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: der})
		if err := os.WriteFile(path, pemBytes, 0600); err != nil {
			return nil, err
		}
		return NewEdDSASigner(pemBytes)
	}

	pemBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return NewEdDSASigner(pemBytes)
}
