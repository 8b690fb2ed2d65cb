package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"filecensus/internal/storage"

	_ "modernc.org/sqlite"
)

// Store persists inventory snapshots inside a SQLite database.
type Store struct {
	db *sql.DB
}

// Open initializes (or reuses) a SQLite database at the provided path.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path cannot be empty")
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Close releases the underlying database resources.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema() error {
	const schema = `
CREATE TABLE IF NOT EXISTS file_records (
        seq INTEGER PRIMARY KEY,
        path TEXT NOT NULL,
        size INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS scan_metadata (
        id INTEGER PRIMARY KEY CHECK (id = 1),
        scan_id TEXT NOT NULL DEFAULT '',
        location TEXT NOT NULL,
        scan_date TEXT NOT NULL,
        scan_duration TEXT NOT NULL,
        total_files INTEGER NOT NULL,
        total_bytes INTEGER NOT NULL,
        saved_at INTEGER NOT NULL
);
`

	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("initialize schema: %w", err)
	}
	return nil
}

// SaveSnapshot replaces the stored snapshot with the given one in a single
// transaction.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot storage.Snapshot) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM file_records`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO file_records(seq, path, size) VALUES(?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, record := range snapshot.Records {
		if _, err = stmt.ExecContext(ctx, i, record.Path, record.Size); err != nil {
			return fmt.Errorf("insert record %s: %w", record.Path, err)
		}
	}

	meta := snapshot.Meta
	savedAt := meta.SavedAt
	if savedAt.IsZero() {
		savedAt = time.Now()
	}
	_, err = tx.ExecContext(ctx, `
INSERT INTO scan_metadata(id, scan_id, location, scan_date, scan_duration, total_files, total_bytes, saved_at)
VALUES(1, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
        scan_id=excluded.scan_id,
        location=excluded.location,
        scan_date=excluded.scan_date,
        scan_duration=excluded.scan_duration,
        total_files=excluded.total_files,
        total_bytes=excluded.total_bytes,
        saved_at=excluded.saved_at
`, meta.ScanID, meta.RootLocation, meta.ScanDate, meta.ScanDuration, meta.TotalFiles, meta.TotalBytes, savedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("update scan metadata: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads the stored snapshot, records in their saved order.
func (s *Store) LoadSnapshot(ctx context.Context) (storage.Snapshot, error) {
	var (
		meta    storage.ScanMetadata
		savedAt int64
	)
	err := s.db.QueryRowContext(ctx, `
SELECT scan_id, location, scan_date, scan_duration, total_files, total_bytes, saved_at FROM scan_metadata WHERE id = 1
`).Scan(&meta.ScanID, &meta.RootLocation, &meta.ScanDate, &meta.ScanDuration, &meta.TotalFiles, &meta.TotalBytes, &savedAt)

	if errors.Is(err, sql.ErrNoRows) {
		return storage.Snapshot{}, storage.ErrNoSnapshot
	}
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("query scan metadata: %w", err)
	}
	meta.SavedAt = time.Unix(0, savedAt)

	rows, err := s.db.QueryContext(ctx, `SELECT path, size FROM file_records ORDER BY seq`)
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	records := make([]storage.Record, 0, meta.TotalFiles)
	for rows.Next() {
		var record storage.Record
		if scanErr := rows.Scan(&record.Path, &record.Size); scanErr != nil {
			return storage.Snapshot{}, fmt.Errorf("scan record: %w", scanErr)
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return storage.Snapshot{}, fmt.Errorf("iterate records: %w", err)
	}

	return storage.Snapshot{Meta: meta, Records: records}, nil
}
