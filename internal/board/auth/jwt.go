// Package auth provides GitHub App authentication for the issue board:
// App JWT generation, installation-token exchange, and a refreshing token
// manager that satisfies the board's TokenProvider contract.
package auth

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v4"
)

// JWTGenerator signs GitHub App JWTs with the App's private key.
type JWTGenerator struct {
	appID      string
	privateKey *rsa.PrivateKey
	nowFunc    func() time.Time
}

// jwtValidity is how long an App JWT lives. GitHub caps this at 10 minutes.
const jwtValidity = 10 * time.Minute

// clockSkewBackdate is subtracted from iat so a fast local clock does not
// produce a JWT GitHub considers issued in the future.
const clockSkewBackdate = 60 * time.Second

// NewJWTGenerator creates a generator from the App ID and a PEM private key.
func NewJWTGenerator(appID string, privateKeyPEM []byte) (*JWTGenerator, error) {
	privateKey, err := parsePrivateKey(privateKeyPEM)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	return &JWTGenerator{
		appID:      appID,
		privateKey: privateKey,
		nowFunc:    time.Now,
	}, nil
}

// Generate creates a signed RS256 JWT for the App, backdated against clock
// skew and valid for jwtValidity.
func (g *JWTGenerator) Generate() (string, error) {
	now := g.nowFunc()

	claims := jwtlib.RegisteredClaims{
		Issuer:    g.appID,
		IssuedAt:  jwtlib.NewNumericDate(now.Add(-clockSkewBackdate)),
		ExpiresAt: jwtlib.NewNumericDate(now.Add(jwtValidity)),
	}

	token := jwtlib.NewWithClaims(jwtlib.SigningMethodRS256, claims)
	signed, err := token.SignedString(g.privateKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// parsePrivateKey parses a PEM-encoded RSA private key in PKCS#1 or PKCS#8.
func parsePrivateKey(pemData []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemData)
	if block == nil {
		return nil, fmt.Errorf("failed to decode PEM block")
	}

	if block.Type == "RSA PRIVATE KEY" {
		return x509.ParsePKCS1PrivateKey(block.Bytes)
	}

	key, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	rsaKey, ok := key.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("private key is not RSA")
	}
	return rsaKey, nil
}
