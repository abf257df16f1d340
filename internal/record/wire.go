package record

import "github.com/netwatch-dev/netdebug/internal/headerpipe"

// WireBody is the JSON-serialisable form of Body. []byte marshals to base64
// automatically via encoding/json, which is exactly the wire representation
// a binary body needs.
type WireBody struct {
	Kind  string `json:"kind"`
	Text  string `json:"text,omitempty"`
	Bytes []byte `json:"bytes,omitempty"`
	Value any    `json:"value,omitempty"`
}

func bodyToWire(b Body) WireBody {
	switch b.Kind {
	case KindText:
		return WireBody{Kind: "text", Text: b.Text}
	case KindBytes:
		return WireBody{Kind: "bytes", Bytes: b.Bytes}
	case KindJSON:
		return WireBody{Kind: "json", Value: b.Value}
	default:
		return WireBody{Kind: "none"}
	}
}

func bodyFromWire(w WireBody) Body {
	switch w.Kind {
	case "text":
		return TextBody(w.Text)
	case "bytes":
		return BytesBody(w.Bytes)
	case "json":
		return JSONBody(w.Value)
	default:
		return NoBody()
	}
}

// WireRecord is the exact shape sent over IPC as a "request-end" message's
// record field (§6 "IPC frame"), and the shape the debugger process
// deserialises into its own owned copy (§3 "Ownership").
type WireRecord struct {
	ID     string `json:"id"`
	Source string `json:"source"`

	URL     string               `json:"url"`
	Method  string               `json:"method"`
	Headers map[string][]string `json:"headers"`
	Body    WireBody             `json:"body"`

	StatusCode      int                  `json:"statusCode"`
	ResponseHeaders map[string][]string `json:"responseHeaders"`
	ResponseBody    WireBody             `json:"responseBody"`
	Base64Encoded   bool                 `json:"base64Encoded,omitempty"`
	DecodeWarning   bool                 `json:"decodeWarning,omitempty"`
	Meta            ResponseMeta         `json:"meta"`
	Truncated       bool                 `json:"truncated,omitempty"`
	TruncatedBytes  int64                `json:"truncatedBytes,omitempty"`

	Timings   Timings         `json:"timings"`
	Initiator *Initiator      `json:"initiator,omitempty"`
	Aborted   bool            `json:"aborted,omitempty"`
	Failure   *CaptureFailure `json:"failure,omitempty"`
}

// ToWire flattens a Record into its wire form.
func (r *Record) ToWire() WireRecord {
	w := WireRecord{
		ID:             r.ID,
		Source:         string(r.Source),
		URL:            r.URL,
		Method:         r.Method,
		Body:           bodyToWire(r.Body),
		StatusCode:     r.StatusCode,
		ResponseBody:   bodyToWire(r.ResponseBody),
		Base64Encoded:  r.Base64Encoded,
		DecodeWarning:  r.DecodeWarning,
		Meta:           r.Meta,
		Truncated:      r.Truncated,
		TruncatedBytes: r.TruncatedBytes,
		Timings:        r.Timings,
		Initiator:      r.Initiator,
		Aborted:        r.Aborted,
		Failure:        r.Failure,
	}
	if r.Headers != nil {
		w.Headers = r.Headers.Map()
	}
	if r.ResponseHeaders != nil {
		w.ResponseHeaders = r.ResponseHeaders.Map()
	}
	return w
}

// FromWire reconstructs a Record (the debugger process's owned copy) from
// its wire form.
func FromWire(w WireRecord) *Record {
	r := &Record{
		ID:             w.ID,
		Source:         Source(w.Source),
		URL:            w.URL,
		Method:         w.Method,
		Headers:        headerpipe.FromMap(w.Headers),
		Body:           bodyFromWire(w.Body),
		StatusCode:     w.StatusCode,
		ResponseBody:   bodyFromWire(w.ResponseBody),
		Base64Encoded:  w.Base64Encoded,
		DecodeWarning:  w.DecodeWarning,
		Meta:           w.Meta,
		Truncated:      w.Truncated,
		TruncatedBytes: w.TruncatedBytes,
		Timings:        w.Timings,
		Initiator:      w.Initiator,
		Aborted:        w.Aborted,
		Failure:        w.Failure,
		phase:          phaseFinal,
	}
	if w.ResponseHeaders != nil {
		r.ResponseHeaders = headerpipe.FromMap(w.ResponseHeaders)
	}
	return r
}
