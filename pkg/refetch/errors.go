package refetch

import "errors"

// Static errors for err113 compliance.
var (
	ErrBaseURLRequired = errors.New("base URL is required")
	ErrNilClient       = errors.New("client is required")
)
