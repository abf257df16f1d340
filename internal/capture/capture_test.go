package capture_test

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/netwatch-dev/netdebug/internal/capture"
	"github.com/netwatch-dev/netdebug/internal/record"
)

type fakeSink struct {
	mu      sync.Mutex
	records []*record.Record
}

func (f *fakeSink) Publish(r *record.Record) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, r)
}

func (f *fakeSink) last() *record.Record {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.records) == 0 {
		return nil
	}
	return f.records[len(f.records)-1]
}

func TestInterceptorCapturesRequestAndResponse(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if string(body) != "ping" {
			t.Errorf("server saw unexpected body %q", body)
		}
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	}))
	defer srv.Close()

	sink := &fakeSink{}
	client := &http.Client{Transport: capture.Wrap(nil, capture.Options{Sink: sink})}

	resp, err := client.Post(srv.URL, "text/plain", bytes.NewReader([]byte("ping")))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	got, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if string(got) != "pong" {
		t.Fatalf("unexpected caller-visible body: %q", got)
	}

	rec := sink.last()
	if rec == nil {
		t.Fatalf("expected a published record")
	}
	if rec.Source != record.SourceHTTPClient {
		t.Fatalf("unexpected source: %v", rec.Source)
	}
	if rec.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", rec.StatusCode)
	}
	if rec.ResponseBody.Kind != record.KindText || rec.ResponseBody.Text != "pong" {
		t.Fatalf("unexpected response body: %+v", rec.ResponseBody)
	}
}

func TestInterceptorMarksAbortedOnTransportError(t *testing.T) {
	t.Parallel()

	sink := &fakeSink{}
	client := &http.Client{Transport: capture.Wrap(errorTransport{}, capture.Options{Sink: sink})}

	_, err := client.Get("http://127.0.0.1:1/unreachable")
	if err == nil {
		t.Fatalf("expected error from broken transport")
	}

	rec := sink.last()
	if rec == nil {
		t.Fatalf("expected a published record even on failure")
	}
	if !rec.Aborted {
		t.Fatalf("expected Aborted = true")
	}
}

type errorTransport struct{}

func (errorTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errConnectionRefused{}
}

type errConnectionRefused struct{}

func (errConnectionRefused) Error() string { return "connection refused" }

func TestFetchNeverRoutesThroughWrappedTransport(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	roundTripperSink := &fakeSink{}
	// Install a RoundTripper-capturing transport as http.DefaultTransport
	// would be if the host wrapped it; Fetch must not go through it.
	wrapped := capture.Wrap(http.DefaultTransport, capture.Options{Sink: roundTripperSink})
	_ = wrapped // would be installed as some *http.Client's Transport in a real host

	fetchSink := &fakeSink{}
	f := capture.NewFetcher(0, capture.Options{Sink: fetchSink})

	resp, err := f.Fetch(context.Background(), capture.FetchRequest{URL: srv.URL, Method: http.MethodGet})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %d", resp.StatusCode)
	}
	if string(resp.Body) != `{"ok":true}` {
		t.Fatalf("unexpected body: %s", resp.Body)
	}

	if len(roundTripperSink.records) != 0 {
		t.Fatalf("fetch must never publish through the RoundTripper sink")
	}
	rec := fetchSink.last()
	if rec == nil || rec.Source != record.SourceFetch {
		t.Fatalf("expected a fetch-sourced record, got %+v", rec)
	}
}

func TestFetchReturnsFullResponseBodyDespiteCap(t *testing.T) {
	t.Parallel()

	const payload = "0123456789"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	sink := &fakeSink{}
	f := capture.NewFetcher(0, capture.Options{Sink: sink, BodyCap: 4})

	resp, err := f.Fetch(context.Background(), capture.FetchRequest{URL: srv.URL, Method: http.MethodGet})
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if string(resp.Body) != payload {
		t.Fatalf("caller must still see the full body: got %q", resp.Body)
	}

	rec := sink.last()
	if rec == nil {
		t.Fatalf("expected a published record")
	}
	if !rec.Truncated {
		t.Fatalf("expected Truncated = true for a captured body exceeding the cap")
	}
	if rec.TruncatedBytes != int64(len(payload))-4 {
		t.Fatalf("unexpected truncated byte count: %d", rec.TruncatedBytes)
	}
}

func TestInterceptorTruncatesOversizedResponseBody(t *testing.T) {
	t.Parallel()

	const payload = "0123456789"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(payload))
	}))
	defer srv.Close()

	sink := &fakeSink{}
	client := &http.Client{Transport: capture.Wrap(nil, capture.Options{Sink: sink, BodyCap: 4})}

	resp, err := client.Get(srv.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	got, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if string(got) != payload {
		t.Fatalf("caller must still see the full body: got %q", got)
	}

	rec := sink.last()
	if rec == nil {
		t.Fatalf("expected a published record")
	}
	if !rec.Truncated {
		t.Fatalf("expected Truncated = true for a body exceeding the cap")
	}
	if rec.TruncatedBytes != int64(len(payload))-4 {
		t.Fatalf("unexpected truncated byte count: %d", rec.TruncatedBytes)
	}
}

func TestInterceptorForwardsFullRequestBodyDespiteCap(t *testing.T) {
	t.Parallel()

	const payload = "0123456789"
	var serverSaw string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		serverSaw = string(body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sink := &fakeSink{}
	client := &http.Client{Transport: capture.Wrap(nil, capture.Options{Sink: sink, BodyCap: 4})}

	resp, err := client.Post(srv.URL, "text/plain", bytes.NewReader([]byte(payload)))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	io.ReadAll(resp.Body)
	resp.Body.Close()

	if serverSaw != payload {
		t.Fatalf("destination server must receive the full, untruncated body: got %q", serverSaw)
	}

	rec := sink.last()
	if rec == nil {
		t.Fatalf("expected a published record")
	}
	if !rec.Truncated {
		t.Fatalf("expected Truncated = true for a captured body exceeding the cap")
	}
	if rec.TruncatedBytes != int64(len(payload))-4 {
		t.Fatalf("unexpected truncated byte count: %d", rec.TruncatedBytes)
	}
}
