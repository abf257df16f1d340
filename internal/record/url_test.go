package record_test

import (
	"testing"

	"github.com/netwatch-dev/netdebug/internal/record"
)

func TestDisplayURLLowercasesSchemeAndHost(t *testing.T) {
	t.Parallel()

	got := record.DisplayURL("HTTP://Example.COM/Path")
	want := "http://example.com/Path"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestDisplayURLStripsDefaultPort(t *testing.T) {
	t.Parallel()

	got := record.DisplayURL("https://example.com:443/a")
	if got != "https://example.com/a" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestDisplayURLKeepsNonDefaultPort(t *testing.T) {
	t.Parallel()

	got := record.DisplayURL("http://example.com:8080/a")
	if got != "http://example.com:8080/a" {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestDisplayURLPassesThroughUnparseable(t *testing.T) {
	t.Parallel()

	raw := "://not a url"
	if got := record.DisplayURL(raw); got != raw {
		t.Fatalf("expected unchanged passthrough, got %q", got)
	}
}
