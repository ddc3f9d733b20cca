package refetch_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fivetwenty-io/refetch/pkg/refetch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	settleTimeout = 2 * time.Second
	pollInterval  = 5 * time.Millisecond
	// quietPeriod is how long tests wait to assert that nothing happens.
	quietPeriod = 100 * time.Millisecond
)

func newTestClient(t *testing.T, baseURL, token string) *refetch.Client {
	t.Helper()

	client, err := refetch.New(&refetch.Config{
		BaseURL:     baseURL,
		AccessToken: token,
	})
	require.NoError(t, err)

	return client
}

func waitSettled[T any](t *testing.T, obs *refetch.Observation[T]) refetch.State[T] {
	t.Helper()

	require.Eventually(t, func() bool {
		state := obs.State()

		return state.Loaded || state.Err != ""
	}, settleTimeout, pollInterval)

	return obs.State()
}

func TestObserve_SuccessWithAuth(t *testing.T) {
	t.Parallel()

	var authHeader atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/items/1", r.URL.Path)
		authHeader.Store(r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"x":1}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "TOKEN")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := refetch.Observe[payload](ctx, client, "/items/1", nil)

	state := waitSettled(t, obs)
	require.NotNil(t, state.Data)
	assert.Equal(t, 1, state.Data.X)
	assert.True(t, state.Loaded)
	assert.Empty(t, state.Err)

	// The credential is attached verbatim.
	assert.Equal(t, "TOKEN", authHeader.Load())
}

func TestObserve_NotFound(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "TOKEN")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := refetch.Observe[payload](ctx, client, "/items/missing", nil)

	state := waitSettled(t, obs)
	assert.Nil(t, state.Data)
	assert.False(t, state.Loaded)
	assert.Equal(t, "404 Not Found", state.Err)
}

func TestObserve_Extract(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"x":42}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "TOKEN")

	opts := refetch.DefaultOptions[int]()
	opts.Extract = func(body []byte) (int, error) {
		var decoded payload

		err := json.Unmarshal(body, &decoded)
		if err != nil {
			return 0, err
		}

		return decoded.X, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := refetch.Observe(ctx, client, "/items/1", opts)

	state := waitSettled(t, obs)
	require.NotNil(t, state.Data)
	assert.Equal(t, 42, *state.Data)
}

func TestObserve_NoAuth(t *testing.T) {
	t.Parallel()

	var authHeader atomic.Value

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader.Store(r.Header.Get("Authorization"))

		_, _ = w.Write([]byte(`{"x":1}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "TOKEN")

	opts := refetch.DefaultOptions[payload]()
	opts.Auth = false

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := refetch.Observe(ctx, client, "/items/1", opts)

	state := waitSettled(t, obs)
	assert.True(t, state.Loaded)
	assert.Equal(t, "", authHeader.Load())
}

func TestObserve_CredentialFailure(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)
	}))
	defer server.Close()

	client, err := refetch.New(&refetch.Config{
		BaseURL: server.URL,
		TokenSource: func(ctx context.Context) (string, error) {
			return "", errors.New("session expired")
		},
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := refetch.Observe[payload](ctx, client, "/items/1", nil)

	state := waitSettled(t, obs)
	assert.Nil(t, state.Data)
	assert.False(t, state.Loaded)
	assert.Contains(t, state.Err, "session expired")
	// The network call is never issued when the credential cannot be resolved.
	assert.Equal(t, int32(0), requests.Load())
}

func TestObserve_LoadDisabled(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		_, _ = w.Write([]byte(`{"x":1}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "TOKEN")

	opts := refetch.DefaultOptions[payload]()
	opts.Load = false

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := refetch.Observe(ctx, client, "/items/1", opts)

	// Identifier changes while the gate is closed cause no network activity.
	obs.SetIdentifier("/items/2")
	obs.SetIdentifier("/items/3")

	time.Sleep(quietPeriod)
	assert.Equal(t, int32(0), requests.Load())
	assert.Equal(t, refetch.State[payload]{}, obs.State())

	// Opening the gate fetches the current identifier.
	obs.SetLoad(true)

	state := waitSettled(t, obs)
	assert.True(t, state.Loaded)
	assert.Equal(t, int32(1), requests.Load())
}

func TestObserve_SupersededCycleIsDiscarded(t *testing.T) {
	t.Parallel()

	firstStarted := make(chan struct{}, 1)
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/items/1":
			firstStarted <- struct{}{}

			select {
			case <-release:
			case <-r.Context().Done():
			}

			_, _ = w.Write([]byte(`{"x":1}`))
		case "/items/2":
			_, _ = w.Write([]byte(`{"x":2}`))
		}
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "TOKEN")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := refetch.Observe[payload](ctx, client, "/items/1", nil)

	select {
	case <-firstStarted:
	case <-time.After(settleTimeout):
		t.Fatal("first request never reached the server")
	}

	// Supersede the in-flight cycle before it settles.
	obs.SetIdentifier("/items/2")

	state := waitSettled(t, obs)
	require.NotNil(t, state.Data)
	assert.Equal(t, 2, state.Data.X)

	// Even after the first handler is released, its result never surfaces.
	close(release)
	time.Sleep(quietPeriod)

	state = obs.State()
	require.NotNil(t, state.Data)
	assert.Equal(t, 2, state.Data.X)
	assert.Empty(t, state.Err)
}

func TestObserve_DisposalMidFlight(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 1)
	release := make(chan struct{})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}

		select {
		case <-release:
		case <-r.Context().Done():
		}

		_, _ = w.Write([]byte(`{"x":1}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "TOKEN")

	ctx, cancel := context.WithCancel(context.Background())

	obs := refetch.Observe[payload](ctx, client, "/items/1", nil)

	select {
	case <-started:
	case <-time.After(settleTimeout):
		t.Fatal("request never reached the server")
	}

	cancel()

	select {
	case <-obs.Done():
	case <-time.After(settleTimeout):
		t.Fatal("observation did not stop after disposal")
	}

	// No further state mutation after disposal: cancellation is not an error.
	close(release)
	time.Sleep(quietPeriod)

	state := obs.State()
	assert.Nil(t, state.Data)
	assert.False(t, state.Loaded)
	assert.Empty(t, state.Err)
}

func TestObserve_EqualIdentifierDoesNotRefetch(t *testing.T) {
	t.Parallel()

	var requests atomic.Int32

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests.Add(1)

		_, _ = w.Write([]byte(`{"x":1}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "TOKEN")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := refetch.Observe[payload](ctx, client, "/items/1", nil)
	waitSettled(t, obs)

	obs.SetIdentifier("/items/1")

	time.Sleep(quietPeriod)
	assert.Equal(t, int32(1), requests.Load())
}

func TestObserve_NewCycleClearsFailure(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/items/missing" {
			w.WriteHeader(http.StatusNotFound)

			return
		}

		_, _ = w.Write([]byte(`{"x":5}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "TOKEN")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := refetch.Observe[payload](ctx, client, "/items/missing", nil)

	state := waitSettled(t, obs)
	assert.Equal(t, "404 Not Found", state.Err)

	obs.SetIdentifier("/items/5")

	require.Eventually(t, func() bool {
		return obs.State().Loaded
	}, settleTimeout, pollInterval)

	state = obs.State()
	require.NotNil(t, state.Data)
	assert.Equal(t, 5, state.Data.X)
	assert.Empty(t, state.Err)
}

func TestObserve_ChangesCarriesLatestState(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"x":1}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "TOKEN")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	obs := refetch.Observe[payload](ctx, client, "/items/1", nil)
	waitSettled(t, obs)

	// The conflated channel holds the most recent state.
	select {
	case state := <-obs.Changes():
		assert.True(t, state.Loaded)
	case <-time.After(settleTimeout):
		t.Fatal("no state change delivered")
	}
}

func TestFetch_OneShot(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"x":11}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "TOKEN")

	result, err := refetch.Fetch[payload](context.Background(), client, "/items/11", nil)
	require.NoError(t, err)
	assert.Equal(t, 11, result.X)
}

func TestFetch_NilClient(t *testing.T) {
	t.Parallel()

	_, err := refetch.Fetch[payload](context.Background(), nil, "/items/1", nil)
	require.ErrorIs(t, err, refetch.ErrNilClient)
}

func TestFetch_DecodeError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "TOKEN")

	_, err := refetch.Fetch[payload](context.Background(), client, "/items/1", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decoding response")
}

func TestFetch_Cancelled(t *testing.T) {
	t.Parallel()

	started := make(chan struct{}, 1)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started <- struct{}{}

		<-r.Context().Done()
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, "TOKEN")

	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		<-started

		cancel()
	}()

	_, err := refetch.Fetch[payload](ctx, client, "/items/1", nil)
	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}
