package record_test

import (
	"testing"

	"github.com/netwatch-dev/netdebug/internal/headerpipe"
	"github.com/netwatch-dev/netdebug/internal/initiator"
	"github.com/netwatch-dev/netdebug/internal/record"
)

func TestNewAssignsStableID(t *testing.T) {
	t.Parallel()

	h := headerpipe.New()
	h.SetHeader("Accept", "*/*")

	r := record.New(record.SourceHTTPClient, "GET", "http://example.com/a", h, nil, 1000.0)
	if r.ID == "" {
		t.Fatalf("expected non-empty id")
	}
	id := r.ID

	r.SetRequestBody(record.NoBody())
	r.SetResponse(200, headerpipe.New())
	r.SetResponseBody(record.TextBody("hello"), record.ResponseMeta{DataLength: 5, EncodedDataLength: 5}, false, false)

	if r.ID != id {
		t.Fatalf("id changed across lifecycle: %q != %q", r.ID, id)
	}
}

func TestStampNeverGoesBeforeStart(t *testing.T) {
	t.Parallel()

	r := record.New(record.SourceFetch, "GET", "http://x", headerpipe.New(), nil, 1000.0)
	r.Stamp(999.0)
	if r.Timings.RequestEndTime < r.Timings.RequestStartTime {
		t.Fatalf("RequestEndTime %v < RequestStartTime %v", r.Timings.RequestEndTime, r.Timings.RequestStartTime)
	}
	if r.Timings.RequestEndTime != r.Timings.RequestStartTime {
		t.Fatalf("expected end time clamped to start time, got %v", r.Timings.RequestEndTime)
	}
}

func TestWireRoundTrip(t *testing.T) {
	t.Parallel()

	h := headerpipe.New()
	h.SetHeader("Content-Type", "application/json")

	r := record.New(record.SourceFetch, "POST", "http://x/y", h, initiator.New(), 10.0)
	r.SetRequestBody(record.JSONBody(map[string]any{"k": float64(1)}))
	respHeaders := headerpipe.New()
	respHeaders.SetHeader("Content-Type", "text/plain")
	r.SetResponse(200, respHeaders)
	r.SetResponseBody(record.TextBody("hello"), record.ResponseMeta{DataLength: 5, EncodedDataLength: 5}, false, false)
	r.Stamp(11.0)

	wire := r.ToWire()
	back := record.FromWire(wire)

	if back.ID != r.ID {
		t.Fatalf("ID mismatch after round trip: %q != %q", back.ID, r.ID)
	}
	if back.URL != r.URL || back.Method != r.Method {
		t.Fatalf("URL/Method mismatch after round trip")
	}
	if got, ok := back.ResponseHeaders.GetHeader("content-type"); !ok || got != "text/plain" {
		t.Fatalf("ResponseHeaders mismatch after round trip: %q %v", got, ok)
	}
	if back.ResponseBody.Kind != record.KindText || back.ResponseBody.Text != "hello" {
		t.Fatalf("ResponseBody mismatch after round trip: %+v", back.ResponseBody)
	}
	if back.Timings != r.Timings {
		t.Fatalf("Timings mismatch after round trip: %+v != %+v", back.Timings, r.Timings)
	}
}

func TestMarkAbortedSetsFailure(t *testing.T) {
	t.Parallel()

	r := record.New(record.SourceHTTPClient, "GET", "http://x", headerpipe.New(), nil, 0)
	r.MarkAborted("CaptureError", "connection reset")
	if !r.Aborted {
		t.Fatalf("expected Aborted = true")
	}
	if r.Failure == nil || r.Failure.Kind != "CaptureError" {
		t.Fatalf("expected Failure.Kind = CaptureError, got %+v", r.Failure)
	}
}
