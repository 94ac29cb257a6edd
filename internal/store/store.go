// Package store records hashing runs and their largest shards in SQLite.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Run describes one hashing run.
type Run struct {
	ID         int64
	StartedAt  time.Time
	Input      string
	Precision  int
	Epsilon    float64
	Mode       string
	Policy     string
	Lines      int
	Rejected   int
	Shards     int
	MaxShard   int
	DurationMs int64
}

// Shard is one shard stored with a run.
type Shard struct {
	RunID int64
	Key   float64
	Size  int
	First string // first name in the shard
}

// Store wraps SQLite access for run history.
type Store struct {
	db *sql.DB
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY,
			started_at TEXT NOT NULL,
			input TEXT NOT NULL,
			precision INTEGER NOT NULL,
			epsilon REAL NOT NULL,
			mode TEXT NOT NULL,
			policy TEXT NOT NULL,
			lines INTEGER NOT NULL,
			rejected INTEGER NOT NULL,
			shards INTEGER NOT NULL,
			max_shard INTEGER NOT NULL,
			duration_ms INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS run_shards (
			run_id INTEGER NOT NULL,
			shard_key REAL NOT NULL,
			size INTEGER NOT NULL,
			first_name TEXT NOT NULL,
			PRIMARY KEY (run_id, shard_key)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);`,
		`CREATE INDEX IF NOT EXISTS idx_run_shards_size ON run_shards(run_id, size);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// InsertRun stores a run and the given shards, returning the run ID.
func (s *Store) InsertRun(ctx context.Context, run Run, shards []Shard) (id int64, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() {
		if err != nil {
			if rerr := tx.Rollback(); rerr != nil {
				// Best-effort rollback.
				_ = rerr
			}
		}
	}()

	res, err := tx.ExecContext(ctx,
		`INSERT INTO runs (started_at, input, precision, epsilon, mode, policy, lines, rejected, shards, max_shard, duration_ms)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.Input,
		run.Precision,
		run.Epsilon,
		run.Mode,
		run.Policy,
		run.Lines,
		run.Rejected,
		run.Shards,
		run.MaxShard,
		run.DurationMs,
	)
	if err != nil {
		return 0, err
	}
	id, err = res.LastInsertId()
	if err != nil {
		return 0, err
	}

	if len(shards) > 0 {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT INTO run_shards (run_id, shard_key, size, first_name) VALUES (?, ?, ?, ?)`)
		if err != nil {
			return 0, err
		}
		defer func() {
			if cerr := stmt.Close(); cerr != nil {
				// Best-effort statement close.
				_ = cerr
			}
		}()
		for _, sh := range shards {
			if _, err := stmt.ExecContext(ctx, id, sh.Key, sh.Size, sh.First); err != nil {
				return 0, err
			}
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, err
	}
	return id, nil
}

// ListRuns returns up to limit runs, most recent first. limit <= 0 returns
// every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, started_at, input, precision, epsilon, mode, policy, lines, rejected, shards, max_shard, duration_ms
		 FROM runs ORDER BY started_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []Run
	for rows.Next() {
		var r Run
		var started string
		if err := rows.Scan(&r.ID, &started, &r.Input, &r.Precision, &r.Epsilon, &r.Mode, &r.Policy,
			&r.Lines, &r.Rejected, &r.Shards, &r.MaxShard, &r.DurationMs); err != nil {
			return nil, err
		}
		r.StartedAt, err = time.Parse(time.RFC3339Nano, started)
		if err != nil {
			return nil, fmt.Errorf("run %d: parse started_at: %w", r.ID, err)
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// LargestShards returns the n biggest shards recorded for a run, largest
// first and then by key.
func (s *Store) LargestShards(ctx context.Context, runID int64, n int) ([]Shard, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, shard_key, size, first_name FROM run_shards
		 WHERE run_id = ? ORDER BY size DESC, shard_key ASC LIMIT ?`, runID, n)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []Shard
	for rows.Next() {
		var sh Shard
		if err := rows.Scan(&sh.RunID, &sh.Key, &sh.Size, &sh.First); err != nil {
			return nil, err
		}
		result = append(result, sh)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
