package ipc_test

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/netwatch-dev/netdebug/internal/headerpipe"
	"github.com/netwatch-dev/netdebug/internal/ipc"
	"github.com/netwatch-dev/netdebug/internal/logging"
	"github.com/netwatch-dev/netdebug/internal/record"
)

// blockingWriteCloser never returns from Write until unblock is closed,
// so records pile up in the Client's internal queue long enough to
// exercise the high-water-mark drop path deterministically.
type blockingWriteCloser struct {
	mu       sync.Mutex
	writes   int
	unblock  chan struct{}
	unblockO sync.Once
}

func newBlockingWriteCloser() *blockingWriteCloser {
	return &blockingWriteCloser{unblock: make(chan struct{})}
}

func (b *blockingWriteCloser) Write(p []byte) (int, error) {
	<-b.unblock
	b.mu.Lock()
	b.writes++
	b.mu.Unlock()
	return len(p), nil
}

func (b *blockingWriteCloser) Close() error {
	b.unblockO.Do(func() { close(b.unblock) })
	return nil
}

func (b *blockingWriteCloser) release() {
	b.unblockO.Do(func() { close(b.unblock) })
}

func newTestRecord(id string) *record.Record {
	r := record.New(record.SourceHTTPClient, "GET", "http://x/"+id, headerpipe.New(), nil, 0)
	return r
}

func TestClientDropsOldestOnOverflow(t *testing.T) {
	t.Parallel()

	conn := newBlockingWriteCloser()
	defer conn.release()

	c := ipc.NewClient(conn, 2, logging.NewTestLogger(false))

	// The first Publish is picked up by the drain goroutine and blocks on
	// Write; the next three queue up behind a high-water mark of 2, so the
	// oldest of those must be dropped.
	c.Publish(newTestRecord("a"))
	time.Sleep(20 * time.Millisecond) // let the drain goroutine start blocking on "a"
	c.Publish(newTestRecord("b"))
	c.Publish(newTestRecord("c"))
	c.Publish(newTestRecord("d"))

	if got := c.Dropped(); got == 0 {
		t.Fatalf("expected at least one dropped record, got %d", got)
	}
}

func TestClientClosesCleanlyWithEmptyQueue(t *testing.T) {
	t.Parallel()

	r, w := io.Pipe()
	defer r.Close()

	go func() {
		buf := make([]byte, 4096)
		for {
			if _, err := r.Read(buf); err != nil {
				return
			}
		}
	}()

	c := ipc.NewClient(w, 8, logging.NewTestLogger(false))
	if err := c.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
