package ipc

import (
	"io"

	"github.com/netwatch-dev/netdebug/internal/logging"
)

// Conn is the debugger-process side of one accepted IPC connection: it
// reads frames and dispatches them to a Handler until the connection
// closes or a shutdown frame arrives.
type Conn struct {
	rwc io.ReadWriteCloser
	log logging.Logger
}

// Handler receives each decoded frame other than shutdown; callers pick out
// the request-end records by Message.Type. It is invoked on the same
// goroutine that reads the connection, matching the single-threaded
// cooperative model of §5.
type Handler func(msg Message)

// NewConn wraps an accepted connection (e.g. a net.Conn from a
// net.Listener.Accept()).
func NewConn(rwc io.ReadWriteCloser, log logging.Logger) *Conn {
	if log == nil {
		log = logging.NewStdoutLogger("ipc")
	}
	return &Conn{rwc: rwc, log: log}
}

// Serve sends a "ready" frame, then reads frames until EOF, a shutdown
// frame, or an error, invoking handle for every frame received other than
// the shutdown frame.
func (c *Conn) Serve(handle Handler) error {
	if err := WriteMessage(c.rwc, Message{Type: TypeReady}); err != nil {
		return err
	}

	for {
		msg, err := ReadMessage(c.rwc)
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}

		if msg.Type == TypeShutdown {
			return nil
		}

		handle(msg)
	}
}

// Close closes the underlying connection.
func (c *Conn) Close() error { return c.rwc.Close() }
