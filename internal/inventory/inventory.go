// Package inventory holds the immutable snapshot of scanned files and the
// working set derived from it.
package inventory

import (
	"fmt"
	"iter"
	"math"
	"slices"
	"time"

	"filecensus/internal/bytesize"
)

// Sentinel metadata values.
const (
	NoLocation       = "None"
	NoDate           = "dd-mmm-yyyy"
	NoDuration       = "0.00"
	ImportedLocation = "Imported data"
	ImportedDate     = "unknown"
	ImportedDuration = "-"
)

// DateLayout is the layout used for Metadata.ScanDate.
const DateLayout = "02-Jan-2006"

// FileRecord is a single scanned file. HumanSize is derived from Size when the
// record is created and never changes.
type FileRecord struct {
	Path      string `json:"path"`
	Size      int64  `json:"bytes"`
	HumanSize string `json:"size"`
}

// NewFileRecord creates a record for path with the given byte size.
func NewFileRecord(path string, size int64) FileRecord {
	return FileRecord{Path: path, Size: size, HumanSize: bytesize.Format(size)}
}

// Entry is a (path, size) pair as produced by a scan or read from storage.
type Entry struct {
	Path string
	Size int64
}

// Metadata describes where and when an inventory was captured.
type Metadata struct {
	ScanID       string `json:"scanId,omitempty"`
	RootLocation string `json:"location"`
	ScanDate     string `json:"date"`
	ScanDuration string `json:"time"`
	TotalFiles   int    `json:"totalFiles"`
	TotalBytes   int64  `json:"totalBytes"`
}

// TotalSize returns TotalBytes formatted for display.
func (m Metadata) TotalSize() string {
	return bytesize.Format(m.TotalBytes)
}

// Inventory is the complete, read-only set of records of one scan or load.
// It is replaced as a whole, never modified.
type Inventory struct {
	records []FileRecord
	byPath  map[string]int
	meta    Metadata
}

// Build creates an Inventory from entries, preserving their order.
func Build(entries []Entry, rootLocation, scanDate, scanDuration string) *Inventory {
	records := make([]FileRecord, 0, len(entries))
	byPath := make(map[string]int, len(entries))
	var total int64
	for _, entry := range entries {
		if _, ok := byPath[entry.Path]; !ok {
			byPath[entry.Path] = len(records)
		}
		records = append(records, NewFileRecord(entry.Path, entry.Size))
		total += entry.Size
	}

	return &Inventory{
		records: records,
		byPath:  byPath,
		meta: Metadata{
			RootLocation: rootLocation,
			ScanDate:     scanDate,
			ScanDuration: scanDuration,
			TotalFiles:   len(records),
			TotalBytes:   total,
		},
	}
}

// Empty returns the inventory used before anything was scanned or loaded.
func Empty() *Inventory {
	return Build(nil, NoLocation, NoDate, NoDuration)
}

// WithScanID returns a copy of inv tagged with the given scan identifier.
// Records are shared since neither copy ever modifies them.
func (inv *Inventory) WithScanID(id string) *Inventory {
	clone := *inv
	clone.meta.ScanID = id
	return &clone
}

// Metadata returns the scan metadata, including totals.
func (inv *Inventory) Metadata() Metadata {
	return inv.meta
}

// Len returns the number of records.
func (inv *Inventory) Len() int {
	return len(inv.records)
}

// TotalBytes returns the sum of all record sizes.
func (inv *Inventory) TotalBytes() int64 {
	return inv.meta.TotalBytes
}

// All iterates over the records in inventory order.
func (inv *Inventory) All() iter.Seq[FileRecord] {
	return func(yield func(FileRecord) bool) {
		for _, record := range inv.records {
			if !yield(record) {
				return
			}
		}
	}
}

// Records returns a copy of the records in inventory order.
func (inv *Inventory) Records() []FileRecord {
	return slices.Clone(inv.records)
}

// Entries returns the records as (path, size) pairs, e.g. for persistence.
func (inv *Inventory) Entries() []Entry {
	entries := make([]Entry, len(inv.records))
	for i, record := range inv.records {
		entries[i] = Entry{Path: record.Path, Size: record.Size}
	}
	return entries
}

// Lookup returns the first record with the given path.
func (inv *Inventory) Lookup(path string) (FileRecord, bool) {
	i, ok := inv.byPath[path]
	if !ok {
		return FileRecord{}, false
	}
	return inv.records[i], true
}

// WorkingSet returns a fresh, unsorted working set with every record.
func (inv *Inventory) WorkingSet() *WorkingSet {
	return &WorkingSet{
		Matches:      inv.Records(),
		MatchesBytes: inv.meta.TotalBytes,
		SortState:    SortNone,
	}
}

// FormatScanDate formats t as a Metadata.ScanDate value.
func FormatScanDate(t time.Time) string {
	return t.Format(DateLayout)
}

// FormatScanDuration formats d as "S.SS s", or "Mm S.SSs" from one minute up.
func FormatScanDuration(d time.Duration) string {
	seconds := math.Round(d.Seconds()*100) / 100
	minutes := math.Floor(seconds / 60)
	seconds -= minutes * 60
	if minutes == 0 {
		return fmt.Sprintf("%.2f s", seconds)
	}
	return fmt.Sprintf("%dm %.2fs", int64(minutes), seconds)
}
