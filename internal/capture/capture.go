// Package capture implements the two capture paths (C4, C5) that populate
// Request Records without altering the caller's observable behaviour.
package capture

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/netwatch-dev/netdebug/internal/bodydecoder"
	"github.com/netwatch-dev/netdebug/internal/headerpipe"
	"github.com/netwatch-dev/netdebug/internal/initiator"
	"github.com/netwatch-dev/netdebug/internal/logging"
	"github.com/netwatch-dev/netdebug/internal/record"
)

// Sink receives completed Records for onward publication to the IPC
// channel (C7). The capture paths never block on Sink beyond its own
// documented behaviour.
type Sink interface {
	Publish(r *record.Record)
}

// DefaultBodyCap is the default number of response bytes buffered for
// capture before the tee starts dropping and marking truncation, per §9
// "Stream teeing".
const DefaultBodyCap = 10 << 20 // 10 MiB

// Options configures both capture paths.
type Options struct {
	Sink Sink
	Log  logging.Logger

	// BodyCap bounds how many response (and request) body bytes are
	// buffered for capture. Zero means DefaultBodyCap.
	BodyCap int64

	// Resolver captures initiator call stacks (C1). Nil disables
	// initiator capture.
	Resolver *initiator.Resolver

	// Now returns the current wall-clock time as Unix seconds, fractional.
	// Overridable for tests; defaults to time.Now.
	Now func() float64
}

func (o Options) bodyCap() int64 {
	if o.BodyCap <= 0 {
		return DefaultBodyCap
	}
	return o.BodyCap
}

func (o Options) now() float64 {
	if o.Now != nil {
		return o.Now()
	}
	return float64(time.Now().UnixNano()) / 1e9
}

func (o Options) logger() logging.Logger {
	if o.Log != nil {
		return o.Log
	}
	return logging.NewStdoutLogger("capture")
}

func headersFromHTTP(h http.Header) *headerpipe.Pipe {
	p := headerpipe.New()
	for name, values := range h {
		for _, v := range values {
			p.Add(name, v)
		}
	}
	return p
}

// cappedBuffer accumulates up to cap bytes and reports how many bytes past
// the cap were dropped, for Record.MarkTruncated.
type cappedBuffer struct {
	cap     int64
	buf     bytes.Buffer
	dropped int64
}

func newCappedBuffer(cap int64) *cappedBuffer {
	return &cappedBuffer{cap: cap}
}

func (c *cappedBuffer) Write(p []byte) {
	room := c.cap - int64(c.buf.Len())
	if room <= 0 {
		c.dropped += int64(len(p))
		return
	}
	if int64(len(p)) <= room {
		c.buf.Write(p)
		return
	}
	c.buf.Write(p[:room])
	c.dropped += int64(len(p)) - room
}

func (c *cappedBuffer) truncated() bool { return c.dropped > 0 }

// bodyFromContentType classifies a captured request/fetch body per spec §9
// ("Dynamic typing in headers/bodies"): JSON content-types are unmarshalled
// into record.KindJSON, everything else is kept as raw bytes.
func bodyFromContentType(data []byte, contentType string) record.Body {
	if len(data) == 0 {
		return record.NoBody()
	}
	if isJSONMime(contentType) {
		var v any
		if err := json.Unmarshal(data, &v); err == nil {
			return record.JSONBody(v)
		}
	}
	return record.BytesBody(data)
}

func isJSONMime(contentType string) bool {
	mimeType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	return strings.HasSuffix(strings.ToLower(mimeType), "/json") ||
		strings.HasSuffix(strings.ToLower(mimeType), "+json")
}

// decodeAndAttach runs the Body Decoder (C6) over the buffered response
// bytes and attaches the result to r, accounting for the tee's truncation
// bookkeeping per SPEC_FULL.md's truncation-accounting supplement.
func decodeAndAttach(r *record.Record, buf *cappedBuffer, wireBytes int64, contentEncoding, contentType string) {
	raw := buf.buf.Bytes()
	res := bodydecoder.Decode(raw, contentEncoding, contentType)

	encodedLen := wireBytes
	if encodedLen <= 0 {
		encodedLen = int64(len(raw))
	}

	// DataLength is the decoded size; when decoding failed, only the raw
	// buffered bytes are available.
	dataLen := int64(len(raw))
	switch {
	case res.DecodeWarning:
	case res.Base64Encoded:
		if decoded, err := base64.StdEncoding.DecodeString(res.Body.Text); err == nil {
			dataLen = int64(len(decoded))
		}
	default:
		dataLen = int64(len(res.Body.Text))
	}

	r.SetResponseBody(res.Body, record.ResponseMeta{
		DataLength:        dataLen,
		EncodedDataLength: encodedLen,
	}, res.Base64Encoded, res.DecodeWarning)

	if buf.truncated() {
		r.MarkTruncated(buf.dropped)
	}
}

// teeReadCloser forwards all reads to the caller unaltered while also
// accumulating a capped copy for capture, per §4.4 step 3 ("Tee the
// response stream").
type teeReadCloser struct {
	io.ReadCloser
	buf     *cappedBuffer
	onClose func(wireBytes int64, readErr error)

	mu        sync.Mutex
	wireBytes int64
	closed    bool
}

func (t *teeReadCloser) Read(p []byte) (int, error) {
	n, err := t.ReadCloser.Read(p)
	if n > 0 {
		t.mu.Lock()
		t.wireBytes += int64(n)
		t.mu.Unlock()
		t.buf.Write(p[:n])
	}
	if err != nil {
		t.finish(err)
	}
	return n, err
}

func (t *teeReadCloser) Close() error {
	t.finish(nil)
	return t.ReadCloser.Close()
}

func (t *teeReadCloser) finish(err error) {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}
	t.closed = true
	wireBytes := t.wireBytes
	t.mu.Unlock()

	if t.onClose != nil {
		t.onClose(wireBytes, err)
	}
}
