package supervisor_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/netwatch-dev/netdebug/internal/logging"
	"github.com/netwatch-dev/netdebug/internal/supervisor"
)

func newTestConfig(t *testing.T, port int) supervisor.Config {
	t.Helper()
	dir := t.TempDir()
	return supervisor.Config{
		LockPath: filepath.Join(dir, "request-center.lock"),
		DBPath:   filepath.Join(dir, "supervisor.db"),
		Port:     port,
		Log:      logging.NewTestLogger(false),
	}
}

func TestAcquireBecomesOwnerWhenUnlocked(t *testing.T) {
	t.Parallel()

	s, err := supervisor.New(newTestConfig(t, 15270))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	role, err := s.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if role != supervisor.RoleOwner {
		t.Fatalf("expected RoleOwner, got %v", role)
	}
	if s.State() != supervisor.StateStart {
		t.Fatalf("expected StateStart after fresh acquire, got %v", s.State())
	}
}

func TestReconnectingBackoffGrowsAndCaps(t *testing.T) {
	t.Parallel()

	s, err := supervisor.New(newTestConfig(t, 15271))
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	d1 := s.Reconnecting(ctx)
	d2 := s.Reconnecting(ctx)
	d3 := s.Reconnecting(ctx)

	if d1 != 100*time.Millisecond {
		t.Fatalf("expected first backoff 100ms, got %v", d1)
	}
	if d2 <= d1 {
		t.Fatalf("expected backoff to grow: %v -> %v", d1, d2)
	}
	if d3 < d2 {
		t.Fatalf("backoff should not shrink: %v -> %v", d2, d3)
	}

	if s.State() != supervisor.StateReconnecting {
		t.Fatalf("expected StateReconnecting, got %v", s.State())
	}

	// Drive backoff well past the cap.
	var last time.Duration
	for i := 0; i < 10; i++ {
		last = s.Reconnecting(ctx)
	}
	if last != 5*time.Second {
		t.Fatalf("expected backoff capped at 5s, got %v", last)
	}
}

func TestShutdownReleasesOwnedLock(t *testing.T) {
	t.Parallel()

	cfg := newTestConfig(t, 15272)
	s, err := supervisor.New(cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	ctx := context.Background()

	if _, err := s.Acquire(ctx); err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := s.Shutdown(ctx); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if s.State() != supervisor.StateShutdown {
		t.Fatalf("expected StateShutdown, got %v", s.State())
	}

	// A fresh supervisor should be able to acquire the now-released lock.
	s2, err := supervisor.New(cfg)
	if err != nil {
		t.Fatalf("new 2: %v", err)
	}
	role, err := s2.Acquire(ctx)
	if err != nil {
		t.Fatalf("acquire 2: %v", err)
	}
	if role != supervisor.RoleOwner {
		t.Fatalf("expected RoleOwner after release, got %v", role)
	}
}
