// Package refetch provides a cancellable remote-fetch state machine: given a
// resource identifier (a URL path) and options, it performs exactly one
// in-flight network request at a time, tracks its lifecycle, transparently
// injects an authorization credential, post-processes the response, and
// guarantees that any request superseded by a new identifier or by teardown
// of its owner is aborted and its result discarded.
//
// # Overview
//
// Two pieces make up the core. Transition is a pure state-transition
// function mapping an observed State and a lifecycle Event to the next
// State. Observation is the orchestrator around it: it owns the cancellation
// of the in-flight call and emits Started/Succeeded/Failed events into the
// reducer in strict order.
//
// # Getting started
//
//	import (
//	  "context"
//	  "log"
//
//	  "github.com/fivetwenty-io/refetch/pkg/refetch"
//	)
//
//	type Item struct {
//	  Name string `json:"name"`
//	}
//
//	func example(ctx context.Context) {
//	  client, err := refetch.New(&refetch.Config{
//	    BaseURL:     "https://api.example.com",
//	    AccessToken: "Bearer s3cret",
//	  })
//	  if err != nil { log.Fatal(err) }
//
//	  obs := refetch.Observe[Item](ctx, client, "/items/1", nil)
//	  for state := range obs.Changes() {
//	    if state.Loaded { _ = state.Data; break }
//	    if state.Err != "" { log.Println(state.Err); break }
//	  }
//
//	  // A changed identifier supersedes the in-flight cycle.
//	  obs.SetIdentifier("/items/2")
//	}
//
// # Cancellation
//
// The context passed to Observe bounds the observation's lifetime. When it
// is cancelled, or when the identifier changes, the current cycle's network
// call is aborted and its eventual settlement is discarded rather than
// dispatched. Cancellation is not an error and never surfaces in State.Err.
//
// # One-shot fetching
//
// Fetch runs a single cycle synchronously for callers that do not need a
// long-lived observation, sharing the same credential injection, status
// handling, and payload extraction.
package refetch
