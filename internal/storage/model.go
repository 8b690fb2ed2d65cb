// Package storage defines the snapshot model shared by the persistence
// backends.
package storage

import (
	"errors"
	"time"

	"filecensus/internal/inventory"
)

// ErrNoSnapshot is returned by LoadSnapshot when nothing was saved yet.
var ErrNoSnapshot = errors.New("no saved snapshot")

// Record represents a persisted file entry.
type Record struct {
	Path string
	Size int64
}

// ScanMetadata is the persisted form of inventory.Metadata.
type ScanMetadata struct {
	ScanID       string    `json:"scan_id,omitempty"`
	RootLocation string    `json:"location"`
	ScanDate     string    `json:"date"`
	ScanDuration string    `json:"time"`
	TotalFiles   int       `json:"total_files"`
	TotalBytes   int64     `json:"total_bytes"`
	SavedAt      time.Time `json:"saved_at,omitzero"`
}

// Snapshot is a complete inventory ready to be written or just read back.
type Snapshot struct {
	Meta    ScanMetadata
	Records []Record
}

// FromInventory copies inv into a Snapshot.
func FromInventory(inv *inventory.Inventory) Snapshot {
	meta := inv.Metadata()
	records := make([]Record, 0, inv.Len())
	for record := range inv.All() {
		records = append(records, Record{Path: record.Path, Size: record.Size})
	}
	return Snapshot{
		Meta: ScanMetadata{
			ScanID:       meta.ScanID,
			RootLocation: meta.RootLocation,
			ScanDate:     meta.ScanDate,
			ScanDuration: meta.ScanDuration,
			TotalFiles:   meta.TotalFiles,
			TotalBytes:   meta.TotalBytes,
		},
		Records: records,
	}
}

// Inventory rebuilds an Inventory. Totals are recomputed from the records,
// so a metadata file that disagrees with the data cannot break them.
func (s Snapshot) Inventory() *inventory.Inventory {
	entries := make([]inventory.Entry, len(s.Records))
	for i, record := range s.Records {
		entries[i] = inventory.Entry{Path: record.Path, Size: record.Size}
	}
	inv := inventory.Build(entries, s.Meta.RootLocation, s.Meta.ScanDate, s.Meta.ScanDuration)
	if s.Meta.ScanID != "" {
		inv = inv.WithScanID(s.Meta.ScanID)
	}
	return inv
}
