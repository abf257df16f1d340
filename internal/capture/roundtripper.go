package capture

import (
	"io"
	"net/http"

	"github.com/netwatch-dev/netdebug/internal/record"
)

// Interceptor is the HTTP Client Interceptor (C4). It wraps an
// http.RoundTripper so that every *http.Client whose Transport is set to an
// Interceptor is captured transparently: RoundTrip returns the wrapped
// transport's response and error, with only the response Body wrapped in a
// tee that passes every byte through unchanged (§4.4 "side-channel").
type Interceptor struct {
	next http.RoundTripper
	opts Options
}

// Wrap installs capture over next. A nil next defaults to
// http.DefaultTransport, matching how *http.Client treats a nil Transport.
func Wrap(next http.RoundTripper, opts Options) *Interceptor {
	if next == nil {
		next = http.DefaultTransport
	}
	return &Interceptor{next: next, opts: opts}
}

// RoundTrip implements http.RoundTripper.
func (i *Interceptor) RoundTrip(req *http.Request) (*http.Response, error) {
	startTime := i.opts.now()

	reqHeaders := headersFromHTTP(req.Header)
	rec := record.New(record.SourceHTTPClient, req.Method, req.URL.String(), reqHeaders, i.opts.Resolver, startTime)

	i.captureRequestBody(req, rec)

	resp, err := i.next.RoundTrip(req)
	if err != nil {
		rec.MarkAborted(string(KindCapture), err.Error())
		rec.Stamp(i.opts.now())
		i.publish(rec)
		return resp, err
	}

	rec.SetResponse(resp.StatusCode, headersFromHTTP(resp.Header))

	contentEncoding := resp.Header.Get("Content-Encoding")
	contentType := resp.Header.Get("Content-Type")
	buf := newCappedBuffer(i.opts.bodyCap())

	resp.Body = &teeReadCloser{
		ReadCloser: resp.Body,
		buf:        buf,
		onClose: func(wireBytes int64, readErr error) {
			if readErr != nil && readErr != io.EOF {
				rec.MarkFailure(string(KindCapture), readErr.Error())
			}
			decodeAndAttach(rec, buf, wireBytes, contentEncoding, contentType)
			rec.Stamp(i.opts.now())
			i.publish(rec)
		},
	}

	return resp, nil
}

// captureRequestBody tees req.Body the same way the response path tees
// resp.Body: the underlying transport still reads the full, untruncated
// stream, while a capped copy accumulates for the Record. Per §4.4 step 2
// and P1 transparency, the caller's request must reach the destination
// unaltered regardless of BodyCap.
func (i *Interceptor) captureRequestBody(req *http.Request, rec *record.Record) {
	if req.Body == nil || req.Body == http.NoBody {
		rec.SetRequestBody(record.NoBody())
		return
	}

	contentType := req.Header.Get("Content-Type")
	buf := newCappedBuffer(i.opts.bodyCap())

	req.Body = &teeReadCloser{
		ReadCloser: req.Body,
		buf:        buf,
		onClose: func(wireBytes int64, readErr error) {
			if readErr != nil && readErr != io.EOF {
				rec.MarkFailure(string(KindCapture), readErr.Error())
			}
			rec.SetRequestBody(bodyFromContentType(buf.buf.Bytes(), contentType))
			if buf.truncated() {
				rec.MarkTruncated(buf.dropped)
			}
		},
	}
}

func (i *Interceptor) publish(rec *record.Record) {
	if i.opts.Sink != nil {
		i.opts.Sink.Publish(rec)
	}
}
