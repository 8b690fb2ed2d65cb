// Package csvfile stores snapshots as a "path,bytes" CSV data file next to a
// JSON metadata file, and reads CSV files produced by other sessions.
package csvfile

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"filecensus/internal/storage"
)

const (
	DataFileName     = "data.csv"
	MetadataFileName = "metadata.json"
)

// ReadRecords parses "path,bytes" rows. Any row with a missing or
// non-numeric size fails the whole read.
func ReadRecords(r io.Reader) ([]storage.Record, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	var records []storage.Record
	for line := 1; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return records, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if len(row) < 2 {
			return nil, fmt.Errorf("line %d: expected path and size, got %d fields", line, len(row))
		}
		size, err := strconv.ParseInt(row[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: parse size: %w", line, err)
		}
		records = append(records, storage.Record{Path: row[0], Size: size})
	}
}

// WriteRecords writes records as "path,bytes" rows.
func WriteRecords(w io.Writer, records []storage.Record) error {
	writer := csv.NewWriter(w)
	for _, record := range records {
		if err := writer.Write([]string{record.Path, strconv.FormatInt(record.Size, 10)}); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// ReadFile reads a CSV file with ReadRecords.
func ReadFile(path string) ([]storage.Record, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := file.Close(); err != nil {
			log.Printf("failed to close file %v: %v", path, err)
		}
	}()
	return ReadRecords(file)
}

// Store keeps one snapshot inside a directory.
type Store struct {
	dir string
}

// Open returns a Store rooted at dir, creating the directory if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op; files are closed after every operation.
func (s *Store) Close() error {
	return nil
}

func (s *Store) dataPath() string {
	return filepath.Join(s.dir, DataFileName)
}

func (s *Store) metadataPath() string {
	return filepath.Join(s.dir, MetadataFileName)
}

// SaveSnapshot writes both files. Each is written to a temporary file first
// and renamed into place.
func (s *Store) SaveSnapshot(ctx context.Context, snapshot storage.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	meta := snapshot.Meta
	if meta.SavedAt.IsZero() {
		meta.SavedAt = time.Now()
	}

	if err := writeAtomic(s.dataPath(), func(w io.Writer) error {
		return WriteRecords(w, snapshot.Records)
	}); err != nil {
		return fmt.Errorf("save data: %w", err)
	}

	if err := writeAtomic(s.metadataPath(), func(w io.Writer) error {
		return json.NewEncoder(w).Encode(meta)
	}); err != nil {
		return fmt.Errorf("save metadata: %w", err)
	}
	return nil
}

// LoadSnapshot reads both files. A missing metadata file means nothing has
// been saved yet.
func (s *Store) LoadSnapshot(ctx context.Context) (storage.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return storage.Snapshot{}, err
	}

	var meta storage.ScanMetadata
	data, err := os.ReadFile(s.metadataPath())
	if errors.Is(err, os.ErrNotExist) {
		return storage.Snapshot{}, storage.ErrNoSnapshot
	}
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("read metadata: %w", err)
	}
	if err := json.Unmarshal(data, &meta); err != nil {
		return storage.Snapshot{}, fmt.Errorf("decode metadata: %w", err)
	}

	records, err := ReadFile(s.dataPath())
	if errors.Is(err, os.ErrNotExist) {
		return storage.Snapshot{}, storage.ErrNoSnapshot
	}
	if err != nil {
		return storage.Snapshot{}, fmt.Errorf("load data: %w", err)
	}

	return storage.Snapshot{Meta: meta, Records: records}, nil
}

func writeAtomic(path string, write func(w io.Writer) error) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
