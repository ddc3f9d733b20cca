package feed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/refetch/internal/constants"
	"github.com/nats-io/nats.go"
)

// Static errors for err113 compliance.
var (
	ErrSubjectRequired = errors.New("NATS subject is required")
)

// NATSConfig configures a NATS-backed identifier feed.
type NATSConfig struct {
	// URL is the NATS server URL (e.g. nats.DefaultURL). Ignored when Conn
	// is provided.
	URL string

	// Subject is the subject identifiers are published on. Required.
	Subject string

	// Conn optionally reuses an existing connection; the feed then does not
	// own it and will not close it.
	Conn *nats.Conn
}

// NATSFeed emits identifiers published on a NATS subject. Message payloads
// are the identifiers themselves, trimmed of surrounding whitespace.
type NATSFeed struct {
	config   *NATSConfig
	conn     *nats.Conn
	ownsConn bool
}

// NewNATSFeed creates a feed for the given configuration, connecting to the
// server unless a connection was supplied.
func NewNATSFeed(config *NATSConfig) (*NATSFeed, error) {
	if config == nil || config.Subject == "" {
		return nil, ErrSubjectRequired
	}

	conn := config.Conn
	ownsConn := false

	if conn == nil {
		url := config.URL
		if url == "" {
			url = nats.DefaultURL
		}

		var err error

		conn, err = nats.Connect(url)
		if err != nil {
			return nil, fmt.Errorf("connecting to NATS: %w", err)
		}

		ownsConn = true
	}

	return &NATSFeed{
		config:   config,
		conn:     conn,
		ownsConn: ownsConn,
	}, nil
}

// Watch implements Feed. The subscription is drained when ctx is cancelled;
// a feed-owned connection is closed as well.
func (f *NATSFeed) Watch(ctx context.Context) (<-chan string, error) {
	// The handler never touches out directly: the forwarding goroutine is
	// the sole owner of out, so closing it cannot race a late callback.
	received := make(chan string, constants.FeedBufferSize)

	sub, err := f.conn.Subscribe(f.config.Subject, func(msg *nats.Msg) {
		identifier := strings.TrimSpace(string(msg.Data))
		if identifier == "" {
			return
		}

		select {
		case received <- identifier:
		case <-ctx.Done():
		}
	})
	if err != nil {
		return nil, fmt.Errorf("subscribing to %q: %w", f.config.Subject, err)
	}

	out := make(chan string, constants.FeedBufferSize)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				_ = sub.Drain()

				if f.ownsConn {
					f.conn.Close()
				}

				return
			case identifier := <-received:
				select {
				case out <- identifier:
				case <-ctx.Done():
				}
			}
		}
	}()

	return out, nil
}
