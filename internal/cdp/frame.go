// Package cdp implements the CDP Projector (C10): it converts a completed
// Request Record into the wire-level Chrome DevTools Protocol Network.*
// event frames the front-end expects, plus the shared frame envelope type
// the DevTools Server (C9) transmits over its WebSocket.
package cdp

import "encoding/json"

// Frame is one outbound CDP message: {"method": "...", "params": {...}}.
// No "id" field is included since these are unsolicited events, not
// responses to a front-end request (§6 "the front-end treats the events
// as unsolicited").
type Frame struct {
	Method string `json:"method"`
	Params any    `json:"params"`
}

// Marshal renders the frame as the JSON bytes sent over the WebSocket.
func (f Frame) Marshal() ([]byte, error) {
	return json.Marshal(f)
}

const (
	MethodRequestWillBeSent = "Network.requestWillBeSent"
	MethodResponseReceived  = "Network.responseReceived"
	MethodDataReceived      = "Network.dataReceived"
	MethodLoadingFinished   = "Network.loadingFinished"
)

// RequestPayload is the "request" object nested in requestWillBeSent.
type RequestPayload struct {
	URL              string            `json:"url"`
	Method           string            `json:"method"`
	Headers          map[string]string `json:"headers"`
	InitialPriority  string            `json:"initialPriority"`
	MixedContentType string            `json:"mixedContentType"`
	PostData         string            `json:"postData,omitempty"`
}

// CallFrame mirrors cdproto/runtime.CallFrame's wire shape, reused via
// internal/initiator so the initiator resolver and the projector agree on
// one representation without a direct package dependency between them.
type CallFrame struct {
	FunctionName string `json:"functionName"`
	ScriptID     string `json:"scriptId"`
	URL          string `json:"url"`
	LineNumber   int64  `json:"lineNumber"`
	ColumnNumber int64  `json:"columnNumber"`
}

// StackTrace is the CDP call stack shape attached to an initiator.
type StackTrace struct {
	CallFrames []CallFrame `json:"callFrames"`
}

// Initiator is the CDP initiator object attached to requestWillBeSent.
type Initiator struct {
	Type  string     `json:"type"`
	Stack StackTrace `json:"stack"`
}

// RequestWillBeSentParams is §4.10 frame 1.
type RequestWillBeSentParams struct {
	RequestID string         `json:"requestId"`
	FrameID   string         `json:"frameId"`
	LoaderID  string         `json:"loaderId"`
	Request   RequestPayload `json:"request"`
	Timestamp float64        `json:"timestamp"`
	WallTime  float64        `json:"wallTime"`
	Initiator *Initiator     `json:"initiator"`
	Type      string         `json:"type"`
}

// ResponsePayload is the "response" object nested in responseReceived.
type ResponsePayload struct {
	URL               string            `json:"url"`
	Status            int               `json:"status"`
	StatusText        string            `json:"statusText"`
	Headers           map[string]string `json:"headers"`
	ConnectionReused  bool              `json:"connectionReused"`
	EncodedDataLength int64             `json:"encodedDataLength"`
	Charset           string            `json:"charset"`
	MimeType          string            `json:"mimeType"`
}

// ResponseReceivedParams is §4.10 frame 2.
type ResponseReceivedParams struct {
	RequestID string          `json:"requestId"`
	Timestamp float64         `json:"timestamp"`
	Type      string          `json:"type"`
	Response  ResponsePayload `json:"response"`
}

// DataReceivedParams is §4.10 frame 3.
type DataReceivedParams struct {
	RequestID         string  `json:"requestId"`
	Timestamp         float64 `json:"timestamp"`
	DataLength        int64   `json:"dataLength"`
	EncodedDataLength int64   `json:"encodedDataLength"`
}

// LoadingFinishedParams is §4.10 frame 4.
type LoadingFinishedParams struct {
	RequestID         string  `json:"requestId"`
	Timestamp         float64 `json:"timestamp"`
	EncodedDataLength int64   `json:"encodedDataLength"`
}
