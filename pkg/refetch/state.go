package refetch

import "fmt"

// State is the externally observed value of a remote fetch. The zero value
// is the idle state: no data, not loaded, no error.
//
// Invariant: at most one of Data and Err is set at any time, and Loaded is
// true iff Data is non-nil and no new cycle has started since.
type State[T any] struct {
	// Data is the last successfully decoded payload, or nil if none yet.
	Data *T

	// Loaded is true only once a successful settlement has occurred for the
	// current identifier.
	Loaded bool

	// Err is a human-readable failure description, or "" if none.
	Err string
}

// EventKind tags a lifecycle event.
type EventKind int

const (
	// EventStarted marks the beginning of a fetch cycle.
	EventStarted EventKind = iota

	// EventSucceeded carries the decoded payload of a settled cycle.
	EventSucceeded

	// EventFailed carries the failure description of a settled cycle.
	EventFailed
)

// String implements fmt.Stringer.
func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is a lifecycle transition input. Payload is meaningful only for
// EventSucceeded, Message only for EventFailed.
type Event[T any] struct {
	Kind    EventKind
	Payload T
	Message string
}

// Transition maps a current state and an event to the next state. It is
// total over the three event kinds, side-effect free, and safe to call from
// any goroutine. An unrecognized kind is a contract violation inside the
// orchestrator, never an external input, and panics.
func Transition[T any](state State[T], event Event[T]) State[T] {
	switch event.Kind {
	case EventStarted:
		// Clear any prior result before the network call resolves so stale
		// data is never shown as fresh.
		return State[T]{}
	case EventSucceeded:
		payload := event.Payload

		return State[T]{Data: &payload, Loaded: true}
	case EventFailed:
		return State[T]{Err: event.Message}
	default:
		panic(fmt.Sprintf("refetch: unknown lifecycle event kind %d", int(event.Kind)))
	}
}
