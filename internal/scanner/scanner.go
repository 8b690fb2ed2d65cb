// Package scanner walks a directory tree and collects the size of every
// regular file it can read.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"filecensus/internal/inventory"
)

// ErrNotDirectory is returned when the scan root is not a directory.
var ErrNotDirectory = errors.New("scan root is not a directory")

// Result is the outcome of a completed scan.
type Result struct {
	Root      string
	Entries   []inventory.Entry
	StartedAt time.Time
	Duration  time.Duration
}

// TotalBytes returns the sum of the entry sizes.
func (r Result) TotalBytes() int64 {
	var total int64
	for _, entry := range r.Entries {
		total += entry.Size
	}
	return total
}

// Inventory builds an Inventory from the scan result.
func (r Result) Inventory() *inventory.Inventory {
	return inventory.Build(
		r.Entries,
		r.Root,
		inventory.FormatScanDate(r.StartedAt),
		inventory.FormatScanDuration(r.Duration),
	)
}

// ProgressFunc is called after each file with the running count and its path.
type ProgressFunc func(processed int64, path string)

type options struct {
	progress ProgressFunc
	now      func() time.Time
}

// Option configures Scan.
type Option func(*options)

// WithProgress reports progress while scanning.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Scan walks root and returns every regular file below it. Entries that
// cannot be read, or vanish during the walk, are skipped.
func Scan(ctx context.Context, root string, opts ...Option) (Result, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}

	root = filepath.Clean(root)
	info, err := osStat(root)
	if err != nil {
		return Result{}, fmt.Errorf("stat scan root: %w", err)
	}
	if !info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s", ErrNotDirectory, root)
	}

	started := o.now()
	entries := make([]inventory.Entry, 0)
	processed := int64(0)

	walker := func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !entry.Type().IsRegular() {
			return nil
		}

		info, infoErr := entry.Info()
		if infoErr != nil {
			return nil
		}

		processed++
		entries = append(entries, inventory.Entry{Path: path, Size: info.Size()})
		if o.progress != nil {
			o.progress(processed, path)
		}
		return nil
	}

	if err := filepath.WalkDir(root, walker); err != nil {
		return Result{}, err
	}

	return Result{
		Root:      root,
		Entries:   entries,
		StartedAt: started,
		Duration:  o.now().Sub(started),
	}, nil
}
