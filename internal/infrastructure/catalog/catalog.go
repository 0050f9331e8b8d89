// Package catalog provides a SQLite-backed registry of saved field snapshots
// and recorded metric samples. It is a convenience layer for tooling; the
// simulation core never depends on it.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store errors.
var (
	ErrStoreClosed     = errors.New("catalog store is closed")
	ErrStoreInitFailed = errors.New("catalog initialization failed")
	ErrNotFound        = errors.New("catalog record not found")
)

// SnapshotRecord describes one saved state file.
type SnapshotRecord struct {
	ID        string
	Path      string
	FieldTime float64
	NCenters  int
	Energy    float64
	CreatedAt time.Time
}

// MetricsSample is one per-step observation of a run.
type MetricsSample struct {
	RunID     string
	Step      int
	Energy    float64
	Coherence float64
	HIS       float64
	CreatedAt time.Time
}

// Store is a SQLite-backed catalog.
type Store struct {
	mu     sync.RWMutex
	db     *sql.DB
	closed bool
}

// Open opens (and if needed creates) the catalog database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create directory: %v", ErrStoreInitFailed, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open database: %v", ErrStoreInitFailed, err)
	}
	s := &Store{db: db}
	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS snapshots (
			id TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			field_time REAL NOT NULL,
			n_centers INTEGER NOT NULL,
			energy REAL NOT NULL,
			created_at INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS metrics (
			id TEXT PRIMARY KEY,
			run_id TEXT NOT NULL,
			step INTEGER NOT NULL,
			energy REAL NOT NULL,
			coherence REAL NOT NULL,
			his REAL NOT NULL,
			created_at INTEGER NOT NULL,
			UNIQUE(run_id, step)
		);

		CREATE INDEX IF NOT EXISTS idx_metrics_run ON metrics(run_id, step);
		CREATE INDEX IF NOT EXISTS idx_snapshots_created ON snapshots(created_at);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("%w: create schema: %v", ErrStoreInitFailed, err)
	}
	return nil
}

// RecordSnapshot registers a saved state file and returns its catalog ID.
func (s *Store) RecordSnapshot(ctx context.Context, rec SnapshotRecord) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrStoreClosed
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO snapshots (id, path, field_time, n_centers, energy, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, rec.ID, rec.Path, rec.FieldTime, rec.NCenters, rec.Energy, rec.CreatedAt.UnixMilli())
	if err != nil {
		return "", fmt.Errorf("record snapshot: %w", err)
	}
	return rec.ID, nil
}

// Snapshot returns one snapshot record by ID.
func (s *Store) Snapshot(ctx context.Context, id string) (SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return SnapshotRecord{}, ErrStoreClosed
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT id, path, field_time, n_centers, energy, created_at
		FROM snapshots WHERE id = ?
	`, id)
	var rec SnapshotRecord
	var createdAt int64
	err := row.Scan(&rec.ID, &rec.Path, &rec.FieldTime, &rec.NCenters, &rec.Energy, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return SnapshotRecord{}, ErrNotFound
	}
	if err != nil {
		return SnapshotRecord{}, fmt.Errorf("load snapshot: %w", err)
	}
	rec.CreatedAt = time.UnixMilli(createdAt)
	return rec, nil
}

// ListSnapshots returns all snapshot records, newest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]SnapshotRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, path, field_time, n_centers, energy, created_at
		FROM snapshots ORDER BY created_at DESC, id
	`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotRecord
	for rows.Next() {
		var rec SnapshotRecord
		var createdAt int64
		if err := rows.Scan(&rec.ID, &rec.Path, &rec.FieldTime, &rec.NCenters, &rec.Energy, &createdAt); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		rec.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// RecordMetrics appends one metrics sample for a run.
func (s *Store) RecordMetrics(ctx context.Context, sample MetricsSample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	if sample.CreatedAt.IsZero() {
		sample.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metrics (id, run_id, step, energy, coherence, his, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, uuid.NewString(), sample.RunID, sample.Step, sample.Energy, sample.Coherence, sample.HIS, sample.CreatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("record metrics: %w", err)
	}
	return nil
}

// MetricsHistory returns the samples of a run in step order.
func (s *Store) MetricsHistory(ctx context.Context, runID string) ([]MetricsSample, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, step, energy, coherence, his, created_at
		FROM metrics WHERE run_id = ? ORDER BY step
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("metrics history: %w", err)
	}
	defer rows.Close()

	var out []MetricsSample
	for rows.Next() {
		var sample MetricsSample
		var createdAt int64
		if err := rows.Scan(&sample.RunID, &sample.Step, &sample.Energy, &sample.Coherence, &sample.HIS, &createdAt); err != nil {
			return nil, fmt.Errorf("scan metrics: %w", err)
		}
		sample.CreatedAt = time.UnixMilli(createdAt)
		out = append(out, sample)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
