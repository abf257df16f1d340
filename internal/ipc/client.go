package ipc

import (
	"io"
	"sync"
	"sync/atomic"

	"github.com/netwatch-dev/netdebug/internal/logging"
	"github.com/netwatch-dev/netdebug/internal/record"
)

// DefaultHighWaterMark is the default number of buffered records before the
// host starts dropping the oldest, per §4.7 "Backpressure".
const DefaultHighWaterMark = 512

// Client is the host-side half of the IPC channel. It implements
// capture.Sink, so an *Client can be handed directly to capture.Options as
// the publication target.
type Client struct {
	conn io.WriteCloser
	log  logging.Logger

	hwm int

	mu      sync.Mutex
	queue   []*record.Record
	dropped atomic.Int64
	wake    chan struct{}

	closeOnce sync.Once
	closeCh   chan struct{}
	done      chan struct{}

	// OnWriteError, if set, is invoked at most once with the error that
	// broke the connection. The owning host is expected to hand this to
	// its Supervisor (e.g. Supervisor.Reconnecting) per §4.8's "IPC error
	// -> reconnecting" transition; Client itself does not redial.
	OnWriteError func(err error)
	errOnce      sync.Once
}

// NewClient wraps conn (typically a net.Conn to the debugger process's IPC
// socket). hwm <= 0 means DefaultHighWaterMark.
func NewClient(conn io.WriteCloser, hwm int, log logging.Logger) *Client {
	if hwm <= 0 {
		hwm = DefaultHighWaterMark
	}
	if log == nil {
		log = logging.NewStdoutLogger("ipc")
	}
	c := &Client{
		conn:    conn,
		log:     log,
		hwm:     hwm,
		wake:    make(chan struct{}, 1),
		closeCh: make(chan struct{}),
		done:    make(chan struct{}),
	}
	go c.run()
	return c
}

// Publish enqueues r for delivery. Per §4.7, on overflow the oldest queued
// record is dropped (not r itself) and the drop counter is incremented.
func (c *Client) Publish(r *record.Record) {
	c.mu.Lock()
	if len(c.queue) >= c.hwm {
		c.queue = c.queue[1:]
		n := c.dropped.Add(1)
		c.log.Warn("ipc send buffer overflow, dropping oldest record",
			logging.Field{Key: "dropped_total", Value: n})
	}
	c.queue = append(c.queue, r)
	c.mu.Unlock()

	select {
	case c.wake <- struct{}{}:
	default:
	}
}

// Dropped returns the number of records dropped due to backpressure so far.
func (c *Client) Dropped() int64 { return c.dropped.Load() }

func (c *Client) run() {
	defer close(c.done)
	for {
		select {
		case <-c.closeCh:
			c.drain()
			return
		case <-c.wake:
			c.drain()
		}
	}
}

func (c *Client) drain() {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.mu.Unlock()
			return
		}
		r := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		wire := r.ToWire()
		if err := WriteMessage(c.conn, Message{Type: TypeRequestEnd, Record: &wire}); err != nil {
			c.log.Error("ipc write failed", logging.Field{Key: "error", Value: err.Error()})
			if c.OnWriteError != nil {
				c.errOnce.Do(func() { c.OnWriteError(err) })
			}
			return
		}
	}
}

// Close sends a final flush and a shutdown frame, then closes the
// underlying connection, per §4.8 "shutdown on host exit".
func (c *Client) Close() error {
	c.closeOnce.Do(func() {
		close(c.closeCh)
		<-c.done
		_ = WriteMessage(c.conn, Message{Type: TypeShutdown})
	})
	return c.conn.Close()
}
