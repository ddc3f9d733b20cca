package refetch

import (
	"context"
	"fmt"
	"time"

	"github.com/fivetwenty-io/refetch/internal/auth"
	internalhttp "github.com/fivetwenty-io/refetch/internal/http"
)

// Logger interface for logging.
type Logger interface {
	Debug(msg string, fields map[string]interface{})
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// TokenSource resolves the current session credential or fails. The returned
// value is attached verbatim as the Authorization header.
type TokenSource func(ctx context.Context) (string, error)

// Config represents client configuration for building a Client.
//
// Credential precedence:
//  1. TokenSource: consulted on every cycle; the owning session decides
//     caching and renewal.
//  2. AccessToken: used directly as a static Authorization value.
//  3. ClientID/ClientSecret (with TokenURL): OAuth2 client_credentials grant,
//     optionally seeded with RefreshToken.
//  4. No credentials: requests are sent without authentication.
type Config struct {
	// BaseURL is the process-wide default base address (e.g.
	// "https://api.example.com"). Required.
	BaseURL string

	// TokenSource is the external credential provider.
	TokenSource TokenSource

	// AccessToken is a static credential, attached verbatim.
	AccessToken string

	// OAuth2 credentials.
	ClientID     string
	ClientSecret string
	TokenURL     string
	RefreshToken string

	// UserAgent overrides the default User-Agent header.
	UserAgent string

	// RetryMax enables transport-level retries for transient failures when
	// greater than zero. The fetch orchestrator never retries a cycle.
	RetryMax     int
	RetryWaitMin time.Duration
	RetryWaitMax time.Duration

	// Debug enables verbose HTTP request/response logging when a Logger is
	// provided.
	Debug bool

	// Logger is an optional structured logger used by the HTTP layer.
	Logger Logger
}

// Client owns the transport and the credential provider shared by all
// observations. The base address is read-only once constructed.
type Client struct {
	httpClient   *internalhttp.Client
	tokenManager auth.TokenManager
	baseURL      string
	logger       Logger
}

// New creates a Client from config.
func New(config *Config) (*Client, error) {
	if config == nil || config.BaseURL == "" {
		return nil, ErrBaseURLRequired
	}

	tokenManager := createTokenManager(config)

	httpOpts := createHTTPClientOptions(config)
	httpClient := internalhttp.NewClient(config.BaseURL, tokenManager, httpOpts...)

	return &Client{
		httpClient:   httpClient,
		tokenManager: tokenManager,
		baseURL:      config.BaseURL,
		logger:       config.Logger,
	}, nil
}

// BaseURL returns the configured default base address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Token returns the current credential from the token manager, or "" when no
// credentials are configured.
func (c *Client) Token(ctx context.Context) (string, error) {
	if c.tokenManager == nil {
		return "", nil
	}

	token, err := c.tokenManager.GetToken(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get token: %w", err)
	}

	return token, nil
}

// createTokenManager creates the appropriate token manager based on config.
func createTokenManager(config *Config) auth.TokenManager {
	if config.TokenSource != nil {
		return auth.NewSessionTokenManager(auth.SessionFunc(config.TokenSource))
	}

	if config.AccessToken != "" {
		return auth.NewStaticTokenManager(config.AccessToken)
	}

	if config.ClientID != "" && config.ClientSecret != "" {
		return auth.NewOAuth2TokenManager(&auth.OAuth2Config{
			TokenURL:     config.TokenURL,
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			RefreshToken: config.RefreshToken,
		})
	}

	return nil // No authentication
}

// createHTTPClientOptions builds HTTP client options from config.
func createHTTPClientOptions(config *Config) []internalhttp.Option {
	var httpOpts []internalhttp.Option

	if config.Logger != nil {
		httpOpts = append(httpOpts, internalhttp.WithLogger(&loggerAdapter{logger: config.Logger}))
	}

	if config.Debug {
		httpOpts = append(httpOpts, internalhttp.WithDebug(true))
	}

	if config.UserAgent != "" {
		httpOpts = append(httpOpts, internalhttp.WithUserAgent(config.UserAgent))
	}

	if config.RetryMax > 0 {
		retryWaitMin := config.RetryWaitMin
		if retryWaitMin <= 0 {
			retryWaitMin = 1 * time.Second
		}

		retryWaitMax := config.RetryWaitMax
		if retryWaitMax <= 0 {
			retryWaitMax = 10 * time.Second
		}

		httpOpts = append(httpOpts, internalhttp.WithRetryConfig(config.RetryMax, retryWaitMin, retryWaitMax))
	}

	return httpOpts
}

// loggerAdapter adapts refetch.Logger to the transport's logger interface.
type loggerAdapter struct {
	logger Logger
}

func (l *loggerAdapter) Debug(msg string, fields map[string]interface{}) {
	l.logger.Debug(msg, fields)
}

func (l *loggerAdapter) Info(msg string, fields map[string]interface{}) {
	l.logger.Info(msg, fields)
}

func (l *loggerAdapter) Warn(msg string, fields map[string]interface{}) {
	l.logger.Warn(msg, fields)
}

func (l *loggerAdapter) Error(msg string, fields map[string]interface{}) {
	l.logger.Error(msg, fields)
}
