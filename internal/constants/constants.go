package constants

import "time"

// File and directory permissions.
const (
	// ConfigDirPerm is the permission for configuration directories.
	ConfigDirPerm = 0750

	// ConfigFilePerm is the permission for configuration files.
	ConfigFilePerm = 0600
)

// HTTP and network timeouts.
const (
	// DefaultHTTPTimeout is the default timeout for HTTP requests.
	DefaultHTTPTimeout = 30 * time.Second

	// ShortHTTPTimeout is used for quick operations.
	ShortHTTPTimeout = 10 * time.Second
)

// Retry limits for the transport layer. Retries are opt-in; the fetch
// orchestrator itself never retries a cycle.
const (
	// DefaultRetryMax is the default maximum number of retries when retries
	// are enabled on the transport.
	DefaultRetryMax = 3

	// DefaultRetryWaitMax is the maximum wait time between retries.
	DefaultRetryWaitMax = 10 * time.Second
)

// Buffering.
const (
	// CommandBufferSize buffers identifier/load commands sent to an
	// observation's event loop.
	CommandBufferSize = 10

	// FeedBufferSize buffers identifiers emitted by a feed.
	FeedBufferSize = 10
)

// Token lifetime handling.
const (
	// TokenExpiryBuffer is subtracted from a token's expiry so a token that
	// is about to expire is treated as already invalid.
	TokenExpiryBuffer = 30 * time.Second
)
