package auth

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// TokenRefreshBuffer is how long before expiry a token is treated as stale.
// Installation tokens live one hour; a 5-minute buffer refreshes well ahead.
const TokenRefreshBuffer = 5 * time.Minute

// TokenManager caches a GitHub App installation token and refreshes it
// before expiry. It satisfies the board package's TokenProvider contract.
type TokenManager struct {
	mu sync.RWMutex

	installationID int64

	token     string
	expiresAt time.Time

	jwtGenerator   *JWTGenerator
	tokenExchanger *TokenExchanger

	nowFunc func() time.Time
}

// TokenManagerOption configures a TokenManager.
type TokenManagerOption func(*TokenManager)

// WithNowFunc sets a custom time function for tests.
func WithNowFunc(fn func() time.Time) TokenManagerOption {
	return func(tm *TokenManager) {
		tm.nowFunc = fn
	}
}

// WithTokenExchanger sets a custom token exchanger (for tests).
func WithTokenExchanger(exchanger *TokenExchanger) TokenManagerOption {
	return func(tm *TokenManager) {
		tm.tokenExchanger = exchanger
	}
}

// NewTokenManager creates a manager from App credentials. The private key is
// validated immediately so misconfiguration fails at startup, not first use.
func NewTokenManager(appID string, installationID int64, privateKey []byte, opts ...TokenManagerOption) (*TokenManager, error) {
	if appID == "" {
		return nil, fmt.Errorf("app ID cannot be empty")
	}
	if installationID <= 0 {
		return nil, fmt.Errorf("installation ID must be positive")
	}
	if len(privateKey) == 0 {
		return nil, fmt.Errorf("private key cannot be empty")
	}

	jwtGen, err := NewJWTGenerator(appID, privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create JWT generator: %w", err)
	}

	tm := &TokenManager{
		installationID: installationID,
		jwtGenerator:   jwtGen,
		tokenExchanger: NewTokenExchanger(),
		nowFunc:        time.Now,
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// Token returns a valid installation token, refreshing when stale.
func (tm *TokenManager) Token(ctx context.Context) (string, error) {
	tm.mu.RLock()
	if tm.isValidLocked() {
		token := tm.token
		tm.mu.RUnlock()
		return token, nil
	}
	tm.mu.RUnlock()

	return tm.Refresh(ctx)
}

// Refresh forces a refresh regardless of current validity.
func (tm *TokenManager) Refresh(ctx context.Context) (string, error) {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	jwt, err := tm.jwtGenerator.Generate()
	if err != nil {
		return "", fmt.Errorf("failed to generate JWT: %w", err)
	}

	installToken, err := tm.tokenExchanger.Exchange(ctx, jwt, tm.installationID)
	if err != nil {
		return "", fmt.Errorf("failed to exchange token: %w", err)
	}

	tm.token = installToken.Token
	tm.expiresAt = installToken.ExpiresAt
	return tm.token, nil
}

// ExpiresAt returns the current token's expiry, zero when none fetched.
func (tm *TokenManager) ExpiresAt() time.Time {
	tm.mu.RLock()
	defer tm.mu.RUnlock()
	return tm.expiresAt
}

// isValidLocked reports token validity; callers hold at least RLock.
func (tm *TokenManager) isValidLocked() bool {
	if tm.token == "" {
		return false
	}
	return tm.expiresAt.After(tm.nowFunc().Add(TokenRefreshBuffer))
}
