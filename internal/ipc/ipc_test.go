package ipc_test

import (
	"bytes"
	"testing"

	"github.com/netwatch-dev/netdebug/internal/ipc"
)

func TestWriteReadMessageRoundTrip(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	msg := ipc.Message{Type: ipc.TypeReady}
	if err := ipc.WriteMessage(&buf, msg); err != nil {
		t.Fatalf("write: %v", err)
	}

	got, err := ipc.ReadMessage(&buf)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != ipc.TypeReady {
		t.Fatalf("unexpected type: %v", got.Type)
	}
}

func TestReadMessageRejectsOversizedFrame(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	buf.Write([]byte{0x7f, 0xff, 0xff, 0xff}) // declares ~2GiB, exceeds maxFrameBytes

	_, err := ipc.ReadMessage(&buf)
	if err == nil {
		t.Fatalf("expected an error for an oversized frame length")
	}
}

func TestMultipleFramesSequentially(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := ipc.WriteMessage(&buf, ipc.Message{Type: ipc.TypeReady}); err != nil {
		t.Fatalf("write 1: %v", err)
	}
	if err := ipc.WriteMessage(&buf, ipc.Message{Type: ipc.TypeShutdown}); err != nil {
		t.Fatalf("write 2: %v", err)
	}

	first, err := ipc.ReadMessage(&buf)
	if err != nil || first.Type != ipc.TypeReady {
		t.Fatalf("unexpected first frame: %+v %v", first, err)
	}
	second, err := ipc.ReadMessage(&buf)
	if err != nil || second.Type != ipc.TypeShutdown {
		t.Fatalf("unexpected second frame: %+v %v", second, err)
	}
}
