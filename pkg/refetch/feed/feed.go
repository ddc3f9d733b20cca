// Package feed provides identifier sources that drive an observation:
// whenever a feed emits a new identifier, the observation supersedes its
// in-flight cycle and fetches the new resource.
package feed

import (
	"context"
)

// Feed emits resource identifiers. The channel is closed when the context is
// cancelled or the source fails permanently.
type Feed interface {
	Watch(ctx context.Context) (<-chan string, error)
}

// Target is the part of an observation a feed drives.
type Target interface {
	SetIdentifier(identifier string)
}

// Drive forwards identifiers from a feed into a target until the context is
// cancelled or the feed closes.
func Drive(ctx context.Context, target Target, source Feed) error {
	identifiers, err := source.Watch(ctx)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case identifier, ok := <-identifiers:
			if !ok {
				return nil
			}

			target.SetIdentifier(identifier)
		}
	}
}

// ChannelFeed adapts a plain channel of identifiers to the Feed interface.
type ChannelFeed struct {
	identifiers <-chan string
}

// NewChannelFeed creates a feed backed by ch.
func NewChannelFeed(ch <-chan string) *ChannelFeed {
	return &ChannelFeed{identifiers: ch}
}

// Watch implements Feed.
func (f *ChannelFeed) Watch(ctx context.Context) (<-chan string, error) {
	out := make(chan string)

	go func() {
		defer close(out)

		for {
			select {
			case <-ctx.Done():
				return
			case identifier, ok := <-f.identifiers:
				if !ok {
					return
				}

				select {
				case out <- identifier:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
