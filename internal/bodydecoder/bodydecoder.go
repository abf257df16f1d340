// Package bodydecoder implements the Body Decoder (C6): decompression of a
// response body per its content-encoding, followed by charset decoding (or
// base64 encoding for binary mime types) per its content-type.
package bodydecoder

import (
	"encoding/base64"
	"io"
	"mime"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"

	"github.com/netwatch-dev/netdebug/internal/record"
)

// Result is the outcome of decoding a response body.
type Result struct {
	Body          record.Body
	Base64Encoded bool
	// DecodeWarning is set when decompression or charset decoding failed
	// and the raw payload was degraded to base64 instead.
	DecodeWarning bool
}

// Decode implements §4.6: decompress raw per contentEncoding, then either
// charset-decode to a string or, for binary mime types, base64-encode.
// Decoding never returns an error: failures degrade to the raw payload
// rendered as base64, per §4.6's "Failures degrade ... rather than
// throwing".
func Decode(raw []byte, contentEncoding, contentType string) Result {
	decompressed, err := decompress(raw, contentEncoding)
	if err != nil {
		return Result{
			Body:          record.TextBody(base64.StdEncoding.EncodeToString(raw)),
			Base64Encoded: true,
			DecodeWarning: true,
		}
	}

	mimeType, params := parseContentType(contentType)
	if isBinaryMime(mimeType) {
		return Result{
			Body:          record.TextBody(base64.StdEncoding.EncodeToString(decompressed)),
			Base64Encoded: true,
		}
	}

	charset := params["charset"]
	if charset == "" {
		charset = "utf-8"
	}

	decoded, err := decodeCharset(decompressed, charset)
	if err != nil {
		return Result{
			Body:          record.TextBody(base64.StdEncoding.EncodeToString(decompressed)),
			Base64Encoded: true,
			DecodeWarning: true,
		}
	}

	return Result{Body: record.TextBody(decoded)}
}

// decompress undoes a chain of content-encoding tokens (e.g. "gzip, br").
// Tokens are listed in the order they were applied, so they are decoded
// outer→inner: the last-listed token first.
func decompress(raw []byte, contentEncoding string) ([]byte, error) {
	data := raw
	encs := splitEncodings(contentEncoding)
	for i := len(encs) - 1; i >= 0; i-- {
		var err error
		data, err = decompressOne(data, encs[i])
		if err != nil {
			return nil, err
		}
	}
	return data, nil
}

func splitEncodings(contentEncoding string) []string {
	contentEncoding = strings.TrimSpace(contentEncoding)
	if contentEncoding == "" {
		return nil
	}
	parts := strings.Split(contentEncoding, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" && p != "identity" {
			out = append(out, p)
		}
	}
	return out
}

func decompressOne(data []byte, encoding string) ([]byte, error) {
	switch encoding {
	case "gzip", "x-gzip":
		r, err := gzip.NewReader(strings.NewReader(string(data)))
		if err != nil {
			return nil, err
		}
		defer r.Close()
		return io.ReadAll(r)
	case "deflate":
		r := flate.NewReader(strings.NewReader(string(data)))
		defer r.Close()
		return io.ReadAll(r)
	case "br":
		r := brotli.NewReader(strings.NewReader(string(data)))
		return io.ReadAll(r)
	default:
		return data, nil
	}
}

// parseContentType returns the bare mime type (no "; ..." suffix) and its
// parameters (e.g. charset).
func parseContentType(contentType string) (string, map[string]string) {
	if contentType == "" {
		return "", nil
	}
	mimeType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		// Best-effort: strip at the first semicolon ourselves.
		mimeType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
		return strings.ToLower(mimeType), nil
	}
	return strings.ToLower(mimeType), params
}

func isBinaryMime(mimeType string) bool {
	switch {
	case strings.HasPrefix(mimeType, "image/"),
		strings.HasPrefix(mimeType, "video/"),
		strings.HasPrefix(mimeType, "audio/"),
		mimeType == "application/octet-stream":
		return true
	default:
		return false
	}
}

func decodeCharset(data []byte, charset string) (string, error) {
	if strings.EqualFold(charset, "utf-8") || strings.EqualFold(charset, "utf8") {
		return string(data), nil
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return "", err
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), data)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}
