package bodydecoder_test

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"testing"

	"github.com/netwatch-dev/netdebug/internal/bodydecoder"
	"github.com/netwatch-dev/netdebug/internal/record"
)

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write([]byte(s)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}
	return buf.Bytes()
}

func TestDecodePlainTextIdentity(t *testing.T) {
	t.Parallel()

	res := bodydecoder.Decode([]byte("hello world"), "", "text/plain; charset=utf-8")
	if res.Body.Kind != record.KindText || res.Body.Text != "hello world" {
		t.Fatalf("unexpected body: %+v", res.Body)
	}
	if res.Base64Encoded || res.DecodeWarning {
		t.Fatalf("unexpected flags: %+v", res)
	}
}

func TestDecodeGzipJSON(t *testing.T) {
	t.Parallel()

	raw := gzipBytes(t, `{"ok":true}`)
	res := bodydecoder.Decode(raw, "gzip", "application/json")
	if res.Body.Kind != record.KindText || res.Body.Text != `{"ok":true}` {
		t.Fatalf("unexpected body: %+v", res.Body)
	}
	if res.DecodeWarning {
		t.Fatalf("unexpected decode warning")
	}
}

func TestDecodeBinaryMimeProducesBase64(t *testing.T) {
	t.Parallel()

	payload := []byte{0xff, 0xd8, 0xff, 0xe0, 0x00, 0x10}
	res := bodydecoder.Decode(payload, "", "image/jpeg")
	if !res.Base64Encoded {
		t.Fatalf("expected base64Encoded = true for binary mime")
	}
	want := base64.StdEncoding.EncodeToString(payload)
	if res.Body.Text != want {
		t.Fatalf("unexpected base64 body: got %q want %q", res.Body.Text, want)
	}
}

func TestDecodeMalformedGzipDegradesToRawBase64(t *testing.T) {
	t.Parallel()

	raw := []byte("not actually gzip")
	res := bodydecoder.Decode(raw, "gzip", "text/plain")
	if !res.DecodeWarning {
		t.Fatalf("expected decode warning on malformed gzip")
	}
	if !res.Base64Encoded {
		t.Fatalf("expected base64Encoded = true on degrade path")
	}
	want := base64.StdEncoding.EncodeToString(raw)
	if res.Body.Text != want {
		t.Fatalf("expected raw payload preserved as base64: got %q want %q", res.Body.Text, want)
	}
}

func TestDecodeMissingContentTypeDefaultsUTF8(t *testing.T) {
	t.Parallel()

	res := bodydecoder.Decode([]byte("plain"), "", "")
	if res.Body.Text != "plain" || res.Base64Encoded {
		t.Fatalf("unexpected result: %+v", res)
	}
}
