package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/dohoonk/roomdetect/floorplan"
)

// ErrRunNotFound is returned by HistoryStore.Get for an unknown id.
var ErrRunNotFound = errors.New("run not found")

// DefaultListLimit caps HistoryStore.List when no limit is given.
const DefaultListLimit = 50

// migrations are applied in order; the index of the last applied entry plus
// one is stored in schema_version.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id              TEXT PRIMARY KEY,
		source          TEXT NOT NULL,
		created_at      INTEGER NOT NULL,
		strategy        TEXT NOT NULL,
		rooms_count     INTEGER NOT NULL,
		confidence      REAL NOT NULL,
		processing_time REAL NOT NULL,
		rooms           TEXT NOT NULL,
		stats           TEXT NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS runs_source_created ON runs (source, created_at DESC)`,
}

// HistoryStore persists completed runs in SQLite.
type HistoryStore struct {
	db *sql.DB
}

// ListOptions filters HistoryStore.List.
type ListOptions struct {
	Source string
	Limit  int
}

// OpenHistory opens (creating if needed) the database at path and migrates it.
func OpenHistory(ctx context.Context, path string) (*HistoryStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir history dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?cache=shared&mode=rwc&_pragma=busy_timeout=5000", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	db.SetMaxOpenConns(1)

	h := &HistoryStore{db: db}
	if err := h.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrations: %w", err)
	}
	return h, nil
}

func (h *HistoryStore) migrate(ctx context.Context) error {
	if _, err := h.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	var version int
	err := h.db.QueryRowContext(ctx, `SELECT version FROM schema_version`).Scan(&version)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := h.db.ExecContext(ctx, `INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("seed schema_version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read schema_version: %w", err)
	}

	for i := version; i < len(migrations); i++ {
		if _, err := h.db.ExecContext(ctx, migrations[i]); err != nil {
			return fmt.Errorf("apply migration %d: %w", i+1, err)
		}
		if _, err := h.db.ExecContext(ctx, `UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("record migration %d: %w", i+1, err)
		}
	}
	return nil
}

// Save inserts or replaces run.
func (h *HistoryStore) Save(ctx context.Context, run *Run) error {
	rooms, err := json.Marshal(run.Rooms)
	if err != nil {
		return fmt.Errorf("marshal rooms: %w", err)
	}
	stats, err := json.Marshal(run.Stats)
	if err != nil {
		return fmt.Errorf("marshal stats: %w", err)
	}

	_, err = h.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO runs
			(id, source, created_at, strategy, rooms_count, confidence, processing_time, rooms, stats)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		run.ID,
		run.Source,
		run.CreatedAt.UnixNano(),
		string(run.Strategy),
		run.Metrics.RoomsCount,
		run.Metrics.ConfidenceScore,
		run.Metrics.ProcessingTime,
		string(rooms),
		string(stats),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

const runColumns = `id, source, created_at, strategy, rooms_count, confidence, processing_time, rooms, stats`

// Get returns the run with id or ErrRunNotFound.
func (h *HistoryStore) Get(ctx context.Context, id string) (*Run, error) {
	row := h.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// List returns runs newest first.
func (h *HistoryStore) List(ctx context.Context, opts ListOptions) ([]*Run, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = DefaultListLimit
	}

	query := `SELECT ` + runColumns + ` FROM runs`
	args := []any{}
	if opts.Source != "" {
		query += ` WHERE source = ?`
		args = append(args, opts.Source)
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, limit)

	rows, err := h.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// Close closes the database.
func (h *HistoryStore) Close() error {
	return h.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var (
		run          Run
		createdAt    int64
		strategy     string
		rooms, stats string
	)
	err := row.Scan(&run.ID, &run.Source, &createdAt, &strategy,
		&run.Metrics.RoomsCount, &run.Metrics.ConfidenceScore, &run.Metrics.ProcessingTime,
		&rooms, &stats)
	if err != nil {
		return nil, err
	}

	run.CreatedAt = time.Unix(0, createdAt).UTC()
	run.Strategy = floorplan.Strategy(strategy)
	if err := json.Unmarshal([]byte(rooms), &run.Rooms); err != nil {
		return nil, fmt.Errorf("decode rooms of %s: %w", run.ID, err)
	}
	if err := json.Unmarshal([]byte(stats), &run.Stats); err != nil {
		return nil, fmt.Errorf("decode stats of %s: %w", run.ID, err)
	}
	return &run, nil
}
