package refetch_test

import (
	"testing"

	"github.com/fivetwenty-io/refetch/pkg/refetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type payload struct {
	X int `json:"x"`
}

func TestTransition_Started(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		state refetch.State[payload]
	}{
		{
			name:  "from zero state",
			state: refetch.State[payload]{},
		},
		{
			name:  "clears prior data",
			state: refetch.State[payload]{Data: &payload{X: 1}, Loaded: true},
		},
		{
			name:  "clears prior error",
			state: refetch.State[payload]{Err: "boom"},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			next := refetch.Transition(tt.state, refetch.Event[payload]{Kind: refetch.EventStarted})
			assert.Nil(t, next.Data)
			assert.False(t, next.Loaded)
			assert.Empty(t, next.Err)
		})
	}
}

func TestTransition_Succeeded(t *testing.T) {
	t.Parallel()

	prior := refetch.State[payload]{Err: "previous failure"}
	next := refetch.Transition(prior, refetch.Event[payload]{
		Kind:    refetch.EventSucceeded,
		Payload: payload{X: 7},
	})

	require.NotNil(t, next.Data)
	assert.Equal(t, 7, next.Data.X)
	assert.True(t, next.Loaded)
	assert.Empty(t, next.Err)
}

func TestTransition_Failed(t *testing.T) {
	t.Parallel()

	prior := refetch.State[payload]{Data: &payload{X: 1}, Loaded: true}
	next := refetch.Transition(prior, refetch.Event[payload]{
		Kind:    refetch.EventFailed,
		Message: "404 Not Found",
	})

	assert.Nil(t, next.Data)
	assert.False(t, next.Loaded)
	assert.Equal(t, "404 Not Found", next.Err)
}

func TestTransition_Pure(t *testing.T) {
	t.Parallel()

	state := refetch.State[payload]{Data: &payload{X: 3}, Loaded: true}
	event := refetch.Event[payload]{Kind: refetch.EventSucceeded, Payload: payload{X: 9}}

	first := refetch.Transition(state, event)
	second := refetch.Transition(state, event)

	assert.Equal(t, first, second)
	// The input state is untouched.
	assert.Equal(t, 3, state.Data.X)
}

func TestTransition_UnknownKindPanics(t *testing.T) {
	t.Parallel()

	require.Panics(t, func() {
		refetch.Transition(refetch.State[payload]{}, refetch.Event[payload]{Kind: refetch.EventKind(42)})
	})
}

func TestEventKind_String(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "started", refetch.EventStarted.String())
	assert.Equal(t, "succeeded", refetch.EventSucceeded.String())
	assert.Equal(t, "failed", refetch.EventFailed.String())
	assert.Equal(t, "EventKind(42)", refetch.EventKind(42).String())
}
