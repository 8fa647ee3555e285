package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v4"
)

// testPrivateKeyPEM generates a throwaway RSA key in PKCS#1 PEM form.
func testPrivateKeyPEM(t *testing.T) ([]byte, *rsa.PrivateKey) {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("failed to generate key: %v", err)
	}
	pemData := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	return pemData, key
}

func TestJWTGeneratorSignsValidToken(t *testing.T) {
	pemData, key := testPrivateKeyPEM(t)

	gen, err := NewJWTGenerator("12345", pemData)
	if err != nil {
		t.Fatalf("NewJWTGenerator failed: %v", err)
	}

	signed, err := gen.Generate()
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	parsed, err := jwtlib.ParseWithClaims(signed, &jwtlib.RegisteredClaims{}, func(token *jwtlib.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	if err != nil {
		t.Fatalf("token should verify: %v", err)
	}

	claims := parsed.Claims.(*jwtlib.RegisteredClaims)
	if claims.Issuer != "12345" {
		t.Errorf("expected issuer 12345, got %s", claims.Issuer)
	}
	if !claims.IssuedAt.Before(time.Now()) {
		t.Error("iat should be backdated against clock skew")
	}
}

func TestJWTGeneratorRejectsBadKey(t *testing.T) {
	if _, err := NewJWTGenerator("12345", []byte("not a key")); err == nil {
		t.Error("invalid PEM should error")
	}
}

func TestTokenManagerRefreshesAndCaches(t *testing.T) {
	pemData, _ := testPrivateKeyPEM(t)

	var exchanges int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		if r.Header.Get("Authorization") == "" {
			t.Error("exchange request should carry the App JWT")
		}
		w.WriteHeader(http.StatusCreated)
		expires := time.Now().Add(time.Hour).UTC().Format(time.RFC3339)
		fmt.Fprintf(w, `{"token":"ghs_test%d","expires_at":"%s"}`, exchanges, expires)
	}))
	defer server.Close()

	tm, err := NewTokenManager("12345", 678, pemData,
		WithTokenExchanger(NewTokenExchanger(WithBaseURL(server.URL))),
	)
	if err != nil {
		t.Fatalf("NewTokenManager failed: %v", err)
	}

	ctx := context.Background()
	first, err := tm.Token(ctx)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if first != "ghs_test1" {
		t.Errorf("expected ghs_test1, got %s", first)
	}

	// Second call within the validity window hits the cache.
	second, err := tm.Token(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if second != first || exchanges != 1 {
		t.Errorf("expected cached token, got %s after %d exchanges", second, exchanges)
	}
}

func TestTokenManagerRefreshesStaleToken(t *testing.T) {
	pemData, _ := testPrivateKeyPEM(t)

	var exchanges int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		exchanges++
		w.WriteHeader(http.StatusCreated)
		// Expires inside the refresh buffer, so it is immediately stale.
		expires := time.Now().Add(time.Minute).UTC().Format(time.RFC3339)
		fmt.Fprintf(w, `{"token":"ghs_stale%d","expires_at":"%s"}`, exchanges, expires)
	}))
	defer server.Close()

	tm, err := NewTokenManager("12345", 678, pemData,
		WithTokenExchanger(NewTokenExchanger(WithBaseURL(server.URL))),
	)
	if err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	if _, err := tm.Token(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := tm.Token(ctx); err != nil {
		t.Fatal(err)
	}
	if exchanges != 2 {
		t.Errorf("stale token should force a second exchange, got %d", exchanges)
	}
}

func TestTokenManagerValidation(t *testing.T) {
	pemData, _ := testPrivateKeyPEM(t)

	if _, err := NewTokenManager("", 678, pemData); err == nil {
		t.Error("empty app ID should error")
	}
	if _, err := NewTokenManager("12345", 0, pemData); err == nil {
		t.Error("zero installation ID should error")
	}
	if _, err := NewTokenManager("12345", 678, nil); err == nil {
		t.Error("missing key should error")
	}
}

func TestExchangeSurfacesAPIErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"message":"bad credentials"}`)
	}))
	defer server.Close()

	exchanger := NewTokenExchanger(WithBaseURL(server.URL))
	if _, err := exchanger.Exchange(context.Background(), "some.jwt", 678); err == nil {
		t.Error("401 should surface as an error")
	}
}

func TestLoadPrivateKeyInlineAndFile(t *testing.T) {
	pemData, _ := testPrivateKeyPEM(t)

	got, err := LoadPrivateKey(context.Background(), KeySource{PEM: string(pemData)})
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(pemData) {
		t.Error("inline PEM should pass through unchanged")
	}

	if _, err := LoadPrivateKey(context.Background(), KeySource{}); err == nil {
		t.Error("empty source should error")
	}
}
