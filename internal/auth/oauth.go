package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fivetwenty-io/refetch/internal/constants"
)

// Static errors for err113 compliance.
var (
	ErrNoGrantAvailable = errors.New("no OAuth2 grant available: need refresh token or client credentials")
	ErrTokenRequest     = errors.New("token request failed")
)

// OAuth2Config configures the OAuth2 token manager.
type OAuth2Config struct {
	// TokenURL is the full token endpoint (e.g. "https://uaa.example.com/oauth/token").
	TokenURL string

	// ClientID and ClientSecret drive the client_credentials grant.
	ClientID     string
	ClientSecret string

	// RefreshToken, when present, is preferred over client_credentials.
	RefreshToken string

	// AccessToken optionally seeds the manager with an existing credential.
	AccessToken string

	// HTTPClient overrides the client used for token requests.
	HTTPClient *http.Client
}

// OAuth2TokenManager obtains and renews credentials from an OAuth2 token
// endpoint. GetToken returns the full Authorization header value
// ("<type> <token>").
type OAuth2TokenManager struct {
	config     *OAuth2Config
	store      *TokenStore
	httpClient *http.Client
}

// NewOAuth2TokenManager creates a manager for the given configuration.
func NewOAuth2TokenManager(config *OAuth2Config) *OAuth2TokenManager {
	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: constants.ShortHTTPTimeout}
	}

	manager := &OAuth2TokenManager{
		config:     config,
		store:      NewTokenStore(),
		httpClient: httpClient,
	}

	if config.AccessToken != "" {
		manager.store.Set(&Token{
			AccessToken:  config.AccessToken,
			RefreshToken: config.RefreshToken,
		})
	}

	return manager
}

// GetToken implements TokenManager. A stored valid token is served as is;
// otherwise a new one is obtained via the refresh_token or client_credentials
// grant.
func (m *OAuth2TokenManager) GetToken(ctx context.Context) (string, error) {
	token := m.store.Get()
	if token.Valid() {
		return headerValue(token), nil
	}

	err := m.RefreshToken(ctx)
	if err != nil {
		return "", err
	}

	return headerValue(m.store.Get()), nil
}

// RefreshToken implements TokenManager.
func (m *OAuth2TokenManager) RefreshToken(ctx context.Context) error {
	form := url.Values{}

	refreshToken := m.config.RefreshToken
	if stored := m.store.Get(); stored != nil && stored.RefreshToken != "" {
		refreshToken = stored.RefreshToken
	}

	switch {
	case refreshToken != "":
		form.Set("grant_type", "refresh_token")
		form.Set("refresh_token", refreshToken)
	case m.config.ClientID != "":
		form.Set("grant_type", "client_credentials")
	default:
		return ErrNoGrantAvailable
	}

	token, err := m.requestToken(ctx, form)
	if err != nil {
		return err
	}

	m.store.Set(token)

	return nil
}

// SetToken implements TokenManager.
func (m *OAuth2TokenManager) SetToken(token string, expiresAt time.Time) {
	m.store.Set(&Token{
		AccessToken: token,
		ExpiresAt:   expiresAt,
	})
}

func (m *OAuth2TokenManager) requestToken(ctx context.Context, form url.Values) (*Token, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.config.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}

	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	if m.config.ClientID != "" {
		req.SetBasicAuth(m.config.ClientID, m.config.ClientSecret)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting token: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading token response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s", ErrTokenRequest, resp.Status)
	}

	var token Token

	err = json.Unmarshal(body, &token)
	if err != nil {
		return nil, fmt.Errorf("parsing token response: %w", err)
	}

	if token.ExpiresIn > 0 {
		token.ExpiresAt = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	return &token, nil
}

func headerValue(token *Token) string {
	if token == nil {
		return ""
	}

	tokenType := token.TokenType
	if tokenType == "" {
		tokenType = "Bearer"
	}

	// Normalize common lowercase "bearer" from token endpoints.
	if strings.EqualFold(tokenType, "bearer") {
		tokenType = "Bearer"
	}

	return tokenType + " " + token.AccessToken
}
