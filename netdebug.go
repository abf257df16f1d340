// Package netdebug is the public entry point for instrumenting a Go
// process's outbound HTTP traffic: Wrap installs the HTTP Client
// Interceptor (C4) over an existing transport, and Fetch is the
// fetch-flavored convenience helper that is the Fetch Interceptor (C5).
package netdebug

import (
	"context"
	"net/http"
	"time"

	"github.com/netwatch-dev/netdebug/internal/capture"
	"github.com/netwatch-dev/netdebug/internal/initiator"
	"github.com/netwatch-dev/netdebug/internal/logging"
	"github.com/netwatch-dev/netdebug/internal/record"
)

// Sink receives completed Request Records. It is typically the IPC client
// (internal/ipc) that forwards them to the debugger process, but is
// exported here so callers can wire it directly (e.g. in-process tests, or
// cmd/netdebug-demo).
type Sink = capture.Sink

// Options configures Wrap and Fetch identically to capture.Options.
type Options struct {
	Sink    Sink
	Log     logging.Logger
	BodyCap int64
}

func (o Options) toCapture() capture.Options {
	return capture.Options{
		Sink:     o.Sink,
		Log:      o.Log,
		BodyCap:  o.BodyCap,
		Resolver: initiator.New(),
	}
}

// Wrap installs capture (C4) over next, returning an http.RoundTripper
// suitable for assignment to (*http.Client).Transport. A nil next wraps
// http.DefaultTransport.
func Wrap(next http.RoundTripper, opts Options) http.RoundTripper {
	return capture.Wrap(next, opts.toCapture())
}

// Client returns an *http.Client whose Transport is wrapped with capture
// (C4). This is the simplest way for a host process to get every request
// issued through the client captured.
func Client(base *http.Client, opts Options) *http.Client {
	if base == nil {
		base = &http.Client{}
	}
	clone := *base
	clone.Transport = Wrap(base.Transport, opts)
	return &clone
}

// newFetcher builds a Fetcher per call with the given Options so Fetch can
// be used without any package-level mutable state.
func newFetcher(timeout time.Duration, opts Options) *capture.Fetcher {
	return capture.NewFetcher(timeout, opts.toCapture())
}

// FetchRequest is the fetch()-flavored request shape: a URL, method,
// headers, and optional body.
type FetchRequest = capture.FetchRequest

// FetchResponse is the buffered response Fetch returns to the caller.
type FetchResponse = capture.FetchResponse

// Fetch is the Fetch Interceptor (C5): a context-first convenience helper
// with its own uninstalled *http.Client, so a call through Fetch never
// also passes through a Wrap-installed transport (invariant (v) holds
// structurally, not by coordination).
func Fetch(ctx context.Context, req FetchRequest, opts Options) (*FetchResponse, error) {
	f := newFetcher(30*time.Second, opts)
	return f.Fetch(ctx, req)
}

// Record re-exports the Request Record type for callers that wire their
// own Sink.
type Record = record.Record
