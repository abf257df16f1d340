package supervisor

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"github.com/netwatch-dev/netdebug/internal/logging"
)

// Config configures one Supervisor attempt.
type Config struct {
	LockPath string // well-known lock file, e.g. "request-center.lock" in a temp dir
	DBPath   string // supervisor registry sqlite file
	Port     int    // debugger port this attempt coordinates around

	// StaleThreshold is how old a lock's startedAt may be before a lock whose
	// endpoint does not answer the probe is considered stale; a lock whose
	// pid is dead is stale at any age. Default 30s.
	StaleThreshold time.Duration
	// ProbeTimeout bounds the connect probe used to check whether an
	// existing debugger endpoint actually responds. Default 2s.
	ProbeTimeout time.Duration

	Log logging.Logger
}

func (c Config) staleThreshold() time.Duration {
	if c.StaleThreshold <= 0 {
		return 30 * time.Second
	}
	return c.StaleThreshold
}

func (c Config) probeTimeout() time.Duration {
	if c.ProbeTimeout <= 0 {
		return 2 * time.Second
	}
	return c.ProbeTimeout
}

// Supervisor runs the §4.8 state machine for one host attempt.
type Supervisor struct {
	cfg      Config
	log      logging.Logger
	flock    *flock.Flock
	registry *Registry

	state atomic.Value // State

	mu      sync.Mutex
	backoff time.Duration
	isOwner bool
}

const (
	minBackoff = 100 * time.Millisecond
	maxBackoff = 5 * time.Second
)

// New builds a Supervisor. It does not yet attempt to acquire the lock;
// call Acquire for that.
func New(cfg Config) (*Supervisor, error) {
	if cfg.Log == nil {
		cfg.Log = logging.NewStdoutLogger("supervisor")
	}
	registry, err := OpenRegistry(cfg.DBPath, cfg.Log)
	if err != nil {
		return nil, err
	}

	s := &Supervisor{
		cfg:      cfg,
		log:      cfg.Log,
		flock:    flock.New(cfg.LockPath),
		registry: registry,
	}
	s.state.Store(StateStart)
	return s, nil
}

// State returns the supervisor's current state.
func (s *Supervisor) State() State { return s.state.Load().(State) }

func (s *Supervisor) setState(ctx context.Context, st State) {
	s.state.Store(st)
	if err := s.registry.RecordState(ctx, os.Getpid(), s.cfg.Port, time.Now(), st); err != nil {
		s.log.Warn("failed to record supervisor state", logging.Field{Key: "error", Value: err.Error()})
	}
}

// Acquire attempts to become the owning debugger process for cfg.Port. It
// returns RoleOwner if the lock was acquired fresh (the caller should fork
// the debugger executable and wait for "ready"), or RoleClient if an
// existing debugger already holds the lock (the caller should connect to
// its IPC endpoint instead).
func (s *Supervisor) Acquire(ctx context.Context) (Role, error) {
	return s.acquire(ctx, false)
}

func (s *Supervisor) acquire(ctx context.Context, retried bool) (Role, error) {
	locked, err := s.flock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil {
		return 0, newSupervisorError("acquire lock", err)
	}

	if locked {
		s.mu.Lock()
		s.isOwner = true
		s.mu.Unlock()

		payload := LockPayload{PID: os.Getpid(), Port: s.cfg.Port, StartedAt: time.Now()}
		if err := writeLockPayload(s.cfg.LockPath, payload); err != nil {
			return 0, newSupervisorError("write lock payload", err)
		}
		s.setState(ctx, StateStart)
		return RoleOwner, nil
	}

	// Lock busy: is the existing owner alive and responding?
	payload, readErr := readLockPayload(s.cfg.LockPath)
	if readErr == nil && s.probeAlive(payload) {
		s.setState(ctx, StateConnected)
		return RoleClient, nil
	}

	// Stale lock: break it and retry once as owner.
	if !retried && s.isStale(payload) {
		s.log.Warn("breaking stale supervisor lock",
			logging.Field{Key: "pid", Value: payload.PID},
			logging.Field{Key: "port", Value: payload.Port})
		if err := s.flock.Unlock(); err != nil {
			s.log.Warn("failed to unlock stale lock file", logging.Field{Key: "error", Value: err.Error()})
		}
		os.Remove(s.cfg.LockPath)
		return s.acquire(ctx, true)
	}

	return 0, newSupervisorError("acquire lock", fmt.Errorf("lock busy and owner endpoint not responding"))
}

// isStale applies §4.8's staleness rule: dead pid, or startedAt older than
// the threshold with no responding probe.
func (s *Supervisor) isStale(payload LockPayload) bool {
	if payload.PID == 0 {
		return true
	}
	if !pidAlive(payload.PID) {
		return true
	}
	return time.Since(payload.StartedAt) > s.cfg.staleThreshold()
}

// probeAlive checks whether the recorded port actually accepts a TCP
// connection within the probe timeout.
func (s *Supervisor) probeAlive(payload LockPayload) bool {
	if payload.Port == 0 {
		return false
	}
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", payload.Port), s.cfg.probeTimeout())
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// Reconnecting transitions into the reconnecting state and returns the
// next backoff duration to wait, per §4.8's "exponential backoff 100ms ->
// 5s, capped".
func (s *Supervisor) Reconnecting(ctx context.Context) time.Duration {
	s.setState(ctx, StateReconnecting)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.backoff <= 0 {
		s.backoff = minBackoff
	} else {
		s.backoff *= 2
		if s.backoff > maxBackoff {
			s.backoff = maxBackoff
		}
	}
	return s.backoff
}

// Connected resets the backoff and transitions to connected.
func (s *Supervisor) Connected(ctx context.Context) {
	s.mu.Lock()
	s.backoff = 0
	s.mu.Unlock()
	s.setState(ctx, StateConnected)
}

// Shutdown releases the lock (if owned) and transitions to shutdown, per
// §4.8 "shutdown on host exit".
func (s *Supervisor) Shutdown(ctx context.Context) error {
	s.setState(ctx, StateShutdown)

	s.mu.Lock()
	owner := s.isOwner
	s.mu.Unlock()

	if owner {
		if err := s.flock.Unlock(); err != nil {
			s.log.Warn("failed to release supervisor lock", logging.Field{Key: "error", Value: err.Error()})
		}
		os.Remove(s.cfg.LockPath)
	}
	return s.registry.Close()
}

func newSupervisorError(op string, err error) error {
	return fmt.Errorf("supervisor: %s: %w", op, err)
}
