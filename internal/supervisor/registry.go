package supervisor

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go sqlite driver

	"github.com/netwatch-dev/netdebug/internal/logging"
)

// Registry is the supervisor's own bookkeeping store: a small table of
// {pid, port, startedAt, state} rows mirroring the lock file's payload,
// kept for operators and tests to inspect supervisor history. This is
// deliberately not a request/response history store (an explicit
// Non-goal) — it records supervisor attempts, not captured traffic.
type Registry struct {
	db  *sql.DB
	log logging.Logger
}

// OpenRegistry opens (creating if absent) the sqlite database at dbPath
// and applies its schema.
func OpenRegistry(dbPath string, log logging.Logger) (*Registry, error) {
	if log == nil {
		log = logging.NewStdoutLogger("supervisor")
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("supervisor: open registry db: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("supervisor: apply schema: %w", err)
	}

	log.Info("supervisor registry opened", logging.Field{Key: "path", Value: dbPath})

	return &Registry{db: db, log: log}, nil
}

func applySchema(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("pragma %q: %w", p, err)
		}
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS supervisor_runs (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		pid        INTEGER NOT NULL,
		port       INTEGER NOT NULL,
		started_at TEXT NOT NULL,
		state      TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_supervisor_runs_port ON supervisor_runs(port);
	`
	_, err := db.Exec(schema)
	return err
}

// RecordState inserts or updates the row for pid/port with the given state.
func (r *Registry) RecordState(ctx context.Context, pid, port int, startedAt time.Time, state State) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := r.db.ExecContext(ctx,
		`UPDATE supervisor_runs SET state = ?, updated_at = ? WHERE pid = ? AND port = ?`,
		string(state), now, pid, port)
	if err != nil {
		return fmt.Errorf("supervisor: update run state: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	_, err = r.db.ExecContext(ctx,
		`INSERT INTO supervisor_runs (pid, port, started_at, state, updated_at) VALUES (?, ?, ?, ?, ?)`,
		pid, port, startedAt.UTC().Format(time.RFC3339Nano), string(state), now)
	if err != nil {
		return fmt.Errorf("supervisor: insert run: %w", err)
	}
	return nil
}

// LatestState returns the most recently updated state for a port, for
// tests and operator tooling.
func (r *Registry) LatestState(ctx context.Context, port int) (State, error) {
	var state string
	err := r.db.QueryRowContext(ctx,
		`SELECT state FROM supervisor_runs WHERE port = ? ORDER BY updated_at DESC LIMIT 1`, port).Scan(&state)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("supervisor: query latest state: %w", err)
	}
	return State(state), nil
}

// Close closes the registry's database handle.
func (r *Registry) Close() error { return r.db.Close() }
