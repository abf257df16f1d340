// Package record implements the Request Record (C3): the normalised
// in-memory model of one HTTP exchange that both capture paths (C4, C5)
// populate and that the IPC channel serialises exactly once.
package record

import (
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/google/uuid"

	"github.com/netwatch-dev/netdebug/internal/headerpipe"
	"github.com/netwatch-dev/netdebug/internal/initiator"
)

// Source identifies which capture path produced a Record, enforcing
// invariant (v): a Record flows through exactly one of C4 or C5.
type Source string

const (
	SourceHTTPClient Source = "httpclient"
	SourceFetch      Source = "fetch"
)

// Stack is the CDP-shaped call stack snapshot attached to an Initiator.
type Stack struct {
	CallFrames []*cdpruntime.CallFrame `json:"callFrames"`
}

// Initiator attributes a Record to the code that issued the call. A nil
// *Initiator on a Record means no stack could be captured.
type Initiator struct {
	Type  string `json:"type"`
	Stack Stack  `json:"stack"`
}

// ResponseMeta carries the two lengths CDP's dataReceived/loadingFinished
// frames need: the decoded size and the size actually moved over the wire.
type ResponseMeta struct {
	EncodedDataLength int64 `json:"encodedDataLength"`
	DataLength        int64 `json:"dataLength"`
}

// Timings are Unix seconds, fractional, per spec §3.
type Timings struct {
	RequestStartTime float64 `json:"requestStartTime"`
	RequestEndTime   float64 `json:"requestEndTime"`
}

// CaptureFailure is the error marker attached to a Record when a §7 error
// kind occurred but the Record is still published with whatever fields are
// available.
type CaptureFailure struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

// phase tracks where a Record is in its fixed mutation order (§3
// "Lifecycle"): headers+url+method+initiator -> body -> status/headers ->
// meta/body. It is advisory bookkeeping, not a lock — a single capture path
// owns a Record and mutates it on one goroutine.
type phase int

const (
	phaseOpen phase = iota
	phaseBodySet
	phaseResponseSet
	phaseFinal
)

// Record is the Request Record of spec §3.
type Record struct {
	ID     string
	Source Source

	URL     string
	Method  string
	Headers *headerpipe.Pipe
	Body    Body

	StatusCode      int
	ResponseHeaders *headerpipe.Pipe
	ResponseBody    Body
	Base64Encoded   bool
	DecodeWarning   bool
	Meta            ResponseMeta
	Truncated       bool
	TruncatedBytes  int64

	Timings   Timings
	Initiator *Initiator

	Aborted bool
	Failure *CaptureFailure

	phase phase
}

// New creates a Record, generating its id and capturing the initiator stack
// via the given resolver. resolver may be nil, in which case the Record has
// no initiator (spec §3: initiator is optional).
func New(source Source, method, url string, headers *headerpipe.Pipe, resolver *initiator.Resolver, requestStartTime float64) *Record {
	r := &Record{
		ID:      uuid.New().String(),
		Source:  source,
		URL:     url,
		Method:  method,
		Headers: headers,
		Body:    NoBody(),
		Timings: Timings{RequestStartTime: requestStartTime},
		phase:   phaseOpen,
	}
	if resolver != nil {
		if frames := resolver.Capture(); len(frames) > 0 {
			r.Initiator = &Initiator{
				Type:  "script",
				Stack: Stack{CallFrames: frames},
			}
		}
	}
	return r
}

// SetRequestBody records the accumulated request body. Per the lifecycle in
// §3, this is the second stage: headers/url/method/initiator must already
// be set (they are, by New).
func (r *Record) SetRequestBody(b Body) {
	r.Body = b
	if r.phase < phaseBodySet {
		r.phase = phaseBodySet
	}
}

// SetResponse records the response status and headers, the third stage.
func (r *Record) SetResponse(status int, headers *headerpipe.Pipe) {
	r.StatusCode = status
	r.ResponseHeaders = headers
	if r.phase < phaseResponseSet {
		r.phase = phaseResponseSet
	}
}

// SetResponseBody records the decoded response body and wire-size
// accounting, the final stage.
func (r *Record) SetResponseBody(b Body, meta ResponseMeta, base64Encoded, decodeWarning bool) {
	r.ResponseBody = b
	r.Meta = meta
	r.Base64Encoded = base64Encoded
	r.DecodeWarning = decodeWarning
	r.phase = phaseFinal
}

// MarkTruncated records that a capture tee buffer (request or response body)
// exceeded its cap and how many bytes beyond the cap were dropped, per
// SPEC_FULL.md's truncation accounting expansion of §9. Each call replaces
// the byte count of any earlier call.
func (r *Record) MarkTruncated(droppedBytes int64) {
	r.Truncated = true
	r.TruncatedBytes = droppedBytes
}

// MarkAborted records that the caller's underlying request was aborted
// before the response completed (§5 "Cancellation").
func (r *Record) MarkAborted(kind, message string) {
	r.Aborted = true
	r.Failure = &CaptureFailure{Kind: kind, Message: message}
}

// MarkFailure attaches a non-fatal capture error (§7 CaptureError) without
// marking the record as aborted.
func (r *Record) MarkFailure(kind, message string) {
	r.Failure = &CaptureFailure{Kind: kind, Message: message}
}

// Stamp sets the end-of-response timestamp. Per invariant (iii),
// requestStartTime <= requestEndTime; callers must not stamp with an
// earlier time than RequestStartTime.
func (r *Record) Stamp(requestEndTime float64) {
	if requestEndTime < r.Timings.RequestStartTime {
		requestEndTime = r.Timings.RequestStartTime
	}
	r.Timings.RequestEndTime = requestEndTime
}
