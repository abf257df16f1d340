// Package ipc implements the IPC Channel (C7): a length-framed JSON
// transport between the host process and the debugger process.
package ipc

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/netwatch-dev/netdebug/internal/record"
)

// MessageType enumerates the three frame kinds in §4.7.
type MessageType string

const (
	TypeRequestEnd MessageType = "request-end"
	TypeReady      MessageType = "ready"
	TypeShutdown   MessageType = "shutdown"
)

// Message is one IPC frame. Record is populated only for TypeRequestEnd.
type Message struct {
	Type   MessageType        `json:"type"`
	Record *record.WireRecord `json:"record,omitempty"`
}

// maxFrameBytes bounds a single frame's declared length, guarding against a
// corrupt or hostile length prefix causing an unbounded allocation.
const maxFrameBytes = 64 << 20 // 64 MiB

// WriteMessage writes one length-prefixed JSON frame: a 4-byte big-endian
// length followed by that many bytes of JSON.
func WriteMessage(w io.Writer, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("ipc: marshal message: %w", err)
	}

	var lenPrefix [4]byte
	binary.BigEndian.PutUint32(lenPrefix[:], uint32(len(data)))

	if _, err := w.Write(lenPrefix[:]); err != nil {
		return fmt.Errorf("ipc: write length prefix: %w", err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("ipc: write frame body: %w", err)
	}
	return nil
}

// ReadMessage reads one length-prefixed JSON frame.
func ReadMessage(r io.Reader) (Message, error) {
	var lenPrefix [4]byte
	if _, err := io.ReadFull(r, lenPrefix[:]); err != nil {
		return Message{}, err
	}

	n := binary.BigEndian.Uint32(lenPrefix[:])
	if n > maxFrameBytes {
		return Message{}, fmt.Errorf("ipc: frame length %d exceeds max %d", n, maxFrameBytes)
	}

	buf := make([]byte, n)
	if _, err := io.ReadFull(r, buf); err != nil {
		return Message{}, fmt.Errorf("ipc: read frame body: %w", err)
	}

	var msg Message
	if err := json.Unmarshal(buf, &msg); err != nil {
		return Message{}, fmt.Errorf("ipc: unmarshal frame: %w", err)
	}
	return msg, nil
}
