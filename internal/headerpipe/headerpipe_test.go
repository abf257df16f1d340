package headerpipe_test

import (
	"reflect"
	"testing"

	"github.com/netwatch-dev/netdebug/internal/headerpipe"
)

func TestGetHeaderCaseInsensitive(t *testing.T) {
	t.Parallel()

	p := headerpipe.New()
	p.SetHeader("Content-Type", "application/json")

	tests := []string{"content-type", "CONTENT-TYPE", "Content-Type", "cOnTeNt-TyPe"}
	for _, name := range tests {
		got, ok := p.GetHeader(name)
		if !ok || got != "application/json" {
			t.Fatalf("GetHeader(%q) = (%q, %v), want (application/json, true)", name, got, ok)
		}
	}
}

func TestDeleteThenSetYieldsNewValue(t *testing.T) {
	t.Parallel()

	p := headerpipe.New()
	p.SetHeader("X-Trace", "old")
	p.DeleteHeader("x-trace")
	if _, ok := p.GetHeader("X-Trace"); ok {
		t.Fatalf("expected header to be gone after delete")
	}

	p.SetHeader("X-Trace", "new")
	got, ok := p.GetHeader("x-trace")
	if !ok || got != "new" {
		t.Fatalf("GetHeader after delete+set = (%q, %v), want (new, true)", got, ok)
	}
}

func TestIterationPreservesInsertionOrder(t *testing.T) {
	t.Parallel()

	p := headerpipe.New()
	p.SetHeader("Zeta", "1")
	p.SetHeader("Alpha", "2")
	p.Add("Alpha", "3")
	p.SetHeader("Middle", "4")

	want := []string{"Zeta", "Alpha", "Middle"}
	if got := p.Keys(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
}

func TestAddAccumulatesMultipleValues(t *testing.T) {
	t.Parallel()

	p := headerpipe.New()
	p.Add("Set-Cookie", "a=1")
	p.Add("Set-Cookie", "b=2")

	want := []string{"a=1", "b=2"}
	if got := p.GetAll("set-cookie"); !reflect.DeepEqual(got, want) {
		t.Fatalf("GetAll = %v, want %v", got, want)
	}
}

func TestFromMapRoundTripsIntoFlat(t *testing.T) {
	t.Parallel()

	p := headerpipe.FromMap(map[string][]string{
		"Accept": {"text/html", "application/json"},
	})

	flat := p.Flat()
	if flat["Accept"] != "text/html, application/json" {
		t.Fatalf("Flat()[Accept] = %q", flat["Accept"])
	}
}
