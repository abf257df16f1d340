package capture

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/netwatch-dev/netdebug/internal/record"
)

// Fetcher is the Fetch Interceptor (C5). Unlike Interceptor (C4), which
// wraps an existing http.RoundTripper, a Fetcher owns its own *http.Client
// that is never installed as anyone's transport. That structural
// separation is what enforces invariant (v) — a call made through Fetcher
// can never also pass through an Interceptor-wrapped transport, because it
// never touches one.
type Fetcher struct {
	client *http.Client
	opts   Options
}

// NewFetcher builds a Fetcher with its own http.Client. timeout <= 0 means
// no client-side timeout.
func NewFetcher(timeout time.Duration, opts Options) *Fetcher {
	client := &http.Client{Timeout: timeout}
	return &Fetcher{client: client, opts: opts}
}

// FetchRequest mirrors the fetch() call shape: a target, method, headers,
// and an optional body.
type FetchRequest struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    []byte
}

// FetchResponse is the caller-facing result: fully buffered, since fetch()
// callers read a whole response body rather than stream it incrementally
// (§4.5 "body as bytes").
type FetchResponse struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Fetch performs the request exactly like a caller-visible fetch() would —
// the caller's view is a plain buffered response — while independently
// producing an equivalent Record to §4.4's, per §4.5.
func (f *Fetcher) Fetch(ctx context.Context, req FetchRequest) (*FetchResponse, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	startTime := f.opts.now()

	var bodyReader io.Reader
	if len(req.Body) > 0 {
		bodyReader = bytes.NewReader(req.Body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, bodyReader)
	if err != nil {
		return nil, newError(KindCapture, "fetch: build request", err)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	reqHeaders := headersFromHTTP(httpReq.Header)
	rec := record.New(record.SourceFetch, method, req.URL, reqHeaders, f.opts.Resolver, startTime)
	rec.SetRequestBody(bodyFromContentType(req.Body, httpReq.Header.Get("Content-Type")))

	resp, err := f.client.Do(httpReq)
	if err != nil {
		rec.MarkAborted(string(KindCapture), err.Error())
		rec.Stamp(f.opts.now())
		f.publish(rec)
		return nil, err
	}
	defer resp.Body.Close()

	rec.SetResponse(resp.StatusCode, headersFromHTTP(resp.Header))

	buf := newCappedBuffer(f.opts.bodyCap())

	// fetch() callers get the whole body regardless of BodyCap; capture
	// clones it via a tee into a separately capped buffer, matching the
	// "clone the response" model of §4.5 without an actual second network
	// round trip and without truncating what the caller sees.
	full, readErr := io.ReadAll(io.TeeReader(resp.Body, teeWriter{cap: buf}))
	if readErr != nil {
		rec.MarkFailure(string(KindCapture), readErr.Error())
	}
	wireBytes := int64(len(full))

	contentEncoding := resp.Header.Get("Content-Encoding")
	contentType := resp.Header.Get("Content-Type")
	decodeAndAttach(rec, buf, wireBytes, contentEncoding, contentType)
	rec.Stamp(f.opts.now())
	f.publish(rec)

	return &FetchResponse{
		StatusCode: resp.StatusCode,
		Headers:    resp.Header,
		Body:       full,
	}, nil
}

func (f *Fetcher) publish(rec *record.Record) {
	if f.opts.Sink != nil {
		f.opts.Sink.Publish(rec)
	}
}

// teeWriter adapts cappedBuffer to io.Writer so io.TeeReader can drive it
// as the capture-side destination while io.ReadAll drives the uncapped
// copy returned to the caller.
type teeWriter struct {
	cap *cappedBuffer
}

func (t teeWriter) Write(p []byte) (int, error) {
	t.cap.Write(p)
	return len(p), nil
}
