package refetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/fivetwenty-io/refetch/internal/constants"
	internalhttp "github.com/fivetwenty-io/refetch/internal/http"
)

// Options configures an observation. The zero value is not useful; start
// from DefaultOptions. Only Load is mutable after the observation starts
// (via SetLoad); changing any other field has no effect on a running
// observation, and a cycle snapshots the options it was started with.
type Options[T any] struct {
	// Load gates fetching. When false, no cycle is started and the state is
	// held at the zero value until Load becomes true.
	Load bool

	// Auth controls whether the credential provider is consulted and the
	// resulting value attached as the Authorization header.
	Auth bool

	// Extract, when set, replaces the default JSON decoding of the response
	// body. It must be pure.
	Extract func(body []byte) (T, error)

	// BaseURL overrides the client's default base address.
	BaseURL string
}

// DefaultOptions returns the option defaults: load and auth enabled.
func DefaultOptions[T any]() *Options[T] {
	return &Options[T]{
		Load: true,
		Auth: true,
	}
}

type commandKind int

const (
	commandIdentifier commandKind = iota
	commandLoad
)

type command struct {
	kind       commandKind
	identifier string
	load       bool
}

// Observation tracks the lifecycle of fetching one resource identifier at a
// time. A change of identifier (by value equality) supersedes the in-flight
// cycle: its network call is aborted and its settlement discarded. The
// observation lives until the context passed to Observe is cancelled.
type Observation[T any] struct {
	client *Client
	opts   Options[T]

	mu    sync.RWMutex
	state State[T]

	commands chan command
	changes  chan State[T]
	done     chan struct{}
}

// Observe starts observing identifier. ctx bounds the observation's
// lifetime: cancelling it aborts any in-flight cycle and guarantees no
// further state mutation. A nil opts means DefaultOptions.
func Observe[T any](ctx context.Context, client *Client, identifier string, opts *Options[T]) *Observation[T] {
	if opts == nil {
		opts = DefaultOptions[T]()
	}

	o := &Observation[T]{
		client:   client,
		opts:     *opts,
		commands: make(chan command, constants.CommandBufferSize),
		changes:  make(chan State[T], 1),
		done:     make(chan struct{}),
	}

	go o.run(ctx, identifier)

	return o
}

// State returns a snapshot of the observed state. The payload pointer is
// shared with the observation; callers must not mutate it.
func (o *Observation[T]) State() State[T] {
	o.mu.RLock()
	defer o.mu.RUnlock()

	return o.state
}

// Changes returns a conflated notification channel: it always carries the
// most recent state, dropping intermediate values a slow reader missed.
func (o *Observation[T]) Changes() <-chan State[T] {
	return o.changes
}

// Done is closed once the observation has stopped and no further state
// mutation can occur.
func (o *Observation[T]) Done() <-chan struct{} {
	return o.done
}

// SetIdentifier changes the observed identifier. Equal values are ignored;
// a changed value supersedes the in-flight cycle. No-op once the
// observation has stopped.
func (o *Observation[T]) SetIdentifier(identifier string) {
	select {
	case o.commands <- command{kind: commandIdentifier, identifier: identifier}:
	case <-o.done:
	}
}

// SetLoad toggles the load gate. Turning it off aborts the in-flight cycle
// and holds the state at the zero value; turning it on starts a cycle for
// the current identifier.
func (o *Observation[T]) SetLoad(load bool) {
	select {
	case o.commands <- command{kind: commandLoad, load: load}:
	case <-o.done:
	}
}

// run is the observation's event loop. It is the only goroutine that
// mutates state, so transitions apply strictly in event order.
func (o *Observation[T]) run(ctx context.Context, identifier string) {
	defer close(o.done)

	load := o.opts.Load

	var (
		results chan Event[T]
		cancel  context.CancelFunc
	)

	// abort cancels the current cycle and stops listening for its result.
	// A superseded cycle's settlement can then never reach the state.
	abort := func() {
		if cancel != nil {
			cancel()

			cancel = nil
		}

		results = nil
	}
	defer abort()

	start := func() {
		abort()
		o.apply(Event[T]{Kind: EventStarted})

		cycleCtx, cycleCancel := context.WithCancel(ctx)
		cancel = cycleCancel
		results = make(chan Event[T], 1)

		go o.cycle(cycleCtx, identifier, results)
	}

	if load {
		start()
	}

	for {
		select {
		case <-ctx.Done():
			return

		case cmd := <-o.commands:
			switch cmd.kind {
			case commandIdentifier:
				if cmd.identifier == identifier {
					continue
				}

				identifier = cmd.identifier

				if load {
					start()
				}

			case commandLoad:
				if cmd.load == load {
					continue
				}

				load = cmd.load

				if load {
					start()
				} else {
					abort()
					o.reset()
				}
			}

		case event := <-results:
			results = nil

			o.apply(event)
		}
	}
}

// cycle performs one fetch attempt and reports its settlement. A cancelled
// cycle emits nothing: cancellation is not an error.
func (o *Observation[T]) cycle(ctx context.Context, identifier string, out chan<- Event[T]) {
	payload, err := runCycle(ctx, o.client, identifier, &o.opts)

	if ctx.Err() != nil {
		return
	}

	if err != nil {
		out <- Event[T]{Kind: EventFailed, Message: failureMessage(err)}

		return
	}

	out <- Event[T]{Kind: EventSucceeded, Payload: payload}
}

func (o *Observation[T]) apply(event Event[T]) {
	o.mu.Lock()
	o.state = Transition(o.state, event)
	next := o.state
	o.mu.Unlock()

	o.publish(next)
}

// reset holds the state at the idle zero value. Used when the load gate
// closes; not a lifecycle event.
func (o *Observation[T]) reset() {
	o.mu.Lock()
	o.state = State[T]{}
	next := o.state
	o.mu.Unlock()

	o.publish(next)
}

func (o *Observation[T]) publish(state State[T]) {
	for {
		select {
		case o.changes <- state:
			return
		default:
			// Drop the stale value and retry.
			select {
			case <-o.changes:
			default:
			}
		}
	}
}

// Fetch performs a single fetch cycle synchronously, outside of any
// observation. Cancellation of ctx surfaces as an error to the caller.
func Fetch[T any](ctx context.Context, client *Client, identifier string, opts *Options[T]) (T, error) {
	var zero T

	if client == nil {
		return zero, ErrNilClient
	}

	if opts == nil {
		opts = DefaultOptions[T]()
	}

	return runCycle(ctx, client, identifier, opts)
}

// runCycle issues the network call for one cycle and decodes its payload.
func runCycle[T any](ctx context.Context, client *Client, identifier string, opts *Options[T]) (T, error) {
	var zero T

	req := &internalhttp.Request{
		Method:   http.MethodGet,
		Path:     identifier,
		Base:     opts.BaseURL,
		SkipAuth: !opts.Auth,
	}

	resp, err := client.httpClient.Do(ctx, req)
	if err != nil {
		return zero, err
	}

	if opts.Extract != nil {
		payload, extractErr := opts.Extract(resp.Body)
		if extractErr != nil {
			return zero, fmt.Errorf("extracting payload: %w", extractErr)
		}

		return payload, nil
	}

	var payload T

	err = json.Unmarshal(resp.Body, &payload)
	if err != nil {
		return zero, fmt.Errorf("decoding response: %w", err)
	}

	return payload, nil
}

// failureMessage renders an error the way the observed state reports it.
// HTTP status failures surface as the bare status line ("404 Not Found").
func failureMessage(err error) string {
	statusErr := &internalhttp.StatusError{}
	if errors.As(err, &statusErr) {
		return statusErr.Status
	}

	return err.Error()
}
