package runstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

// SQLite keeps snapshots in a single table of JSON blobs.
type SQLite struct {
	db   *sql.DB
	path string
}

func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "mapeditor.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS projection_runs (
		es_id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		payload BLOB NOT NULL,
		created_at INTEGER NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create projection_runs table: %w", err)
	}
	return &SQLite{db: db, path: path}, nil
}

func (s *SQLite) IsProcessed(ctx context.Context, esID string) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM projection_runs WHERE es_id = ?`, esID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("select projection run: %w", err)
	}
	return true, nil
}

func (s *SQLite) Save(ctx context.Context, snap Snapshot) error {
	if snap.CreatedAt.IsZero() {
		snap.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO projection_runs(es_id,title,payload,created_at) VALUES(?,?,?,?)
		ON CONFLICT(es_id) DO UPDATE SET title=excluded.title, payload=excluded.payload, created_at=excluded.created_at`,
		snap.ESID, snap.Title, snap.Payload, snap.CreatedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("upsert projection run %s: %w", snap.ESID, err)
	}
	return nil
}

func (s *SQLite) Latest(ctx context.Context, esID string) (Snapshot, error) {
	var snap Snapshot
	var created int64
	err := s.db.QueryRowContext(ctx, `SELECT es_id, title, payload, created_at FROM projection_runs WHERE es_id = ?`, esID).
		Scan(&snap.ESID, &snap.Title, &snap.Payload, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("select projection run: %w", err)
	}
	snap.CreatedAt = time.Unix(0, created).UTC()
	return snap, nil
}

func (s *SQLite) Reset(ctx context.Context, esID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM projection_runs WHERE es_id = ?`, esID); err != nil {
		return fmt.Errorf("delete projection run: %w", err)
	}
	return nil
}

func (s *SQLite) Close() error { return s.db.Close() }

// Path returns the configured database path.
func (s *SQLite) Path() string { return s.path }
