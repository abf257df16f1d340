package record

// Kind discriminates the tagged union described in spec §9 ("Dynamic typing
// in headers/bodies"): a body arrives as nothing, text, raw bytes, or a
// pre-serialised JSON value, and each capture path converts to this shape
// at its boundary.
type Kind int

const (
	// KindNone indicates no body was present.
	KindNone Kind = iota
	// KindText indicates a body already decoded to a string (e.g. after
	// bodydecoder ran, or when the caller supplied a string body directly).
	KindText
	// KindBytes indicates an opaque byte payload (binary, or not yet
	// decoded).
	KindBytes
	// KindJSON indicates a body whose content-type is JSON-like; Value
	// holds the already-unmarshalled form.
	KindJSON
)

// Body is the tagged union that both capture paths (C4, C5) normalise a
// request or response payload into before attaching it to a Record.
type Body struct {
	Kind  Kind
	Text  string
	Bytes []byte
	Value any
}

// NoBody returns the empty Body.
func NoBody() Body { return Body{Kind: KindNone} }

// TextBody wraps a decoded string body.
func TextBody(s string) Body { return Body{Kind: KindText, Text: s} }

// BytesBody wraps an opaque byte payload.
func BytesBody(b []byte) Body { return Body{Kind: KindBytes, Bytes: b} }

// JSONBody wraps an already-unmarshalled JSON value.
func JSONBody(v any) Body { return Body{Kind: KindJSON, Value: v} }

// IsEmpty reports whether the body carries no content at all.
func (b Body) IsEmpty() bool { return b.Kind == KindNone }

// Len returns the body's size in bytes where that is well defined (Text and
// Bytes); JSON and None bodies return 0 since their wire size depends on how
// they're serialised.
func (b Body) Len() int {
	switch b.Kind {
	case KindText:
		return len(b.Text)
	case KindBytes:
		return len(b.Bytes)
	default:
		return 0
	}
}

// RawBytes returns the body as bytes regardless of kind, for components
// (like the Body Decoder) that need a byte view without caring how it was
// produced.
func (b Body) RawBytes() []byte {
	switch b.Kind {
	case KindText:
		return []byte(b.Text)
	case KindBytes:
		return b.Bytes
	default:
		return nil
	}
}
