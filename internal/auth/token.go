// Package auth provides credential management for the fetch client. The
// orchestrator only consumes the TokenManager query contract; everything else
// here is supporting infrastructure for common credential shapes.
package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fivetwenty-io/refetch/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrStaticTokenCannotRefresh = errors.New("static token cannot be refreshed")
	ErrNoSessionFunc            = errors.New("no session function configured")
)

// TokenManager resolves the value of the Authorization header for outgoing
// requests. The value is attached verbatim; managers that want a scheme
// (e.g. "Bearer xyz") include it in the returned string.
type TokenManager interface {
	// GetToken returns a currently valid credential, refreshing if necessary.
	GetToken(ctx context.Context) (string, error)

	// RefreshToken forces renewal of the credential.
	RefreshToken(ctx context.Context) error

	// SetToken manually installs a credential.
	SetToken(token string, expiresAt time.Time)
}

// Token holds a credential and its lifetime metadata.
type Token struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	TokenType    string    `json:"token_type,omitempty"`
	ExpiresIn    int       `json:"expires_in,omitempty"`
	ExpiresAt    time.Time `json:"-"`
}

// Valid reports whether the token can still be used. A token expiring within
// TokenExpiryBuffer is treated as invalid so callers refresh ahead of time.
func (t *Token) Valid() bool {
	if t == nil || t.AccessToken == "" {
		return false
	}

	if t.ExpiresAt.IsZero() {
		return true
	}

	return time.Now().Add(constants.TokenExpiryBuffer).Before(t.ExpiresAt)
}

// TokenStore is a concurrency-safe holder for the current token.
type TokenStore struct {
	mu    sync.RWMutex
	token *Token
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{}
}

// Get returns the stored token, or nil.
func (s *TokenStore) Get() *Token {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.token
}

// Set replaces the stored token.
func (s *TokenStore) Set(token *Token) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = token
}

// Clear removes the stored token.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.token = nil
}

// StaticTokenManager serves a fixed credential.
type StaticTokenManager struct {
	mu    sync.RWMutex
	token string
}

// NewStaticTokenManager creates a manager around a fixed credential.
func NewStaticTokenManager(token string) *StaticTokenManager {
	return &StaticTokenManager{token: token}
}

// GetToken implements TokenManager.
func (m *StaticTokenManager) GetToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.token, nil
}

// RefreshToken implements TokenManager. Static tokens cannot be renewed.
func (m *StaticTokenManager) RefreshToken(ctx context.Context) error {
	return ErrStaticTokenCannotRefresh
}

// SetToken implements TokenManager.
func (m *StaticTokenManager) SetToken(token string, expiresAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.token = token
}

// SessionFunc is the external credential-provider contract: it resolves the
// current session credential or fails.
type SessionFunc func(ctx context.Context) (string, error)

// SessionTokenManager adapts a SessionFunc to the TokenManager interface.
// Every GetToken call consults the function, so the owning session decides
// caching and renewal.
type SessionTokenManager struct {
	fn SessionFunc
}

// NewSessionTokenManager creates a manager backed by a session function.
func NewSessionTokenManager(fn SessionFunc) *SessionTokenManager {
	return &SessionTokenManager{fn: fn}
}

// GetToken implements TokenManager.
func (m *SessionTokenManager) GetToken(ctx context.Context) (string, error) {
	if m.fn == nil {
		return "", ErrNoSessionFunc
	}

	return m.fn(ctx)
}

// RefreshToken implements TokenManager. The session function is authoritative
// on every call, so an explicit refresh is a no-op.
func (m *SessionTokenManager) RefreshToken(ctx context.Context) error {
	if m.fn == nil {
		return ErrNoSessionFunc
	}

	_, err := m.fn(ctx)

	return err
}

// SetToken implements TokenManager. Session-backed credentials are owned by
// the session function; manual installs are ignored.
func (m *SessionTokenManager) SetToken(token string, expiresAt time.Time) {}
