// Package session owns the current inventory and the single working set
// derived from it, and hands completed inventories to persistent storage.
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"filecensus/internal/export"
	"filecensus/internal/inventory"
	"filecensus/internal/query"
	"filecensus/internal/scanner"
	"filecensus/internal/sorting"
	"filecensus/internal/storage"
	"filecensus/internal/storage/csvfile"

	"github.com/google/uuid"
)

// ErrScanInProgress is returned when attempting to start a scan while one is already running.
var ErrScanInProgress = errors.New("scan already in progress")

// Store describes the persistence operations required by the session.
type Store interface {
	SaveSnapshot(ctx context.Context, snapshot storage.Snapshot) error
	LoadSnapshot(ctx context.Context) (storage.Snapshot, error)
}

// ScanStatus summarizes the current or most recent scan activity.
type ScanStatus struct {
	Running           bool      `json:"running"`
	Root              string    `json:"root"`
	CurrentPath       string    `json:"currentPath"`
	Processed         int64     `json:"processed"`
	StartedAt         time.Time `json:"startedAt"`
	FinishedAt        time.Time `json:"finishedAt"`
	LastSuccessfulRun time.Time `json:"lastSuccessfulRun"`
	Error             string    `json:"error,omitempty"`
}

// View is a copy of the working set as presenters see it.
type View struct {
	Query        string                 `json:"query"`
	Matches      []inventory.FileRecord `json:"matches"`
	MatchesBytes int64                  `json:"matchesBytes"`
	MatchesSize  string                 `json:"matchesSize"`
	SortState    inventory.SortState    `json:"sortState"`
	Filtered     bool                   `json:"filtered"`
}

// Session is safe for concurrent use. Every search or scan replaces the
// working set as a whole.
type Session struct {
	mu    sync.RWMutex
	inv   *inventory.Inventory
	ws    *inventory.WorkingSet
	query string

	store Store
	saves sync.WaitGroup

	statusMu sync.RWMutex
	status   ScanStatus

	newScanID func() string
	now       func() time.Time
}

// New creates a Session with an empty inventory. store may be nil.
func New(store Store) *Session {
	inv := inventory.Empty()
	return &Session{
		inv:       inv,
		ws:        inv.WorkingSet(),
		store:     store,
		newScanID: uuid.NewString,
		now:       time.Now,
	}
}

// Load restores the last saved inventory. It reports false when the store
// holds nothing.
func (s *Session) Load(ctx context.Context) (bool, error) {
	if s.store == nil {
		return false, nil
	}
	snapshot, err := s.store.LoadSnapshot(ctx)
	if errors.Is(err, storage.ErrNoSnapshot) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}

	s.replace(snapshot.Inventory())
	s.updateStatus(func(status *ScanStatus) {
		status.Root = snapshot.Meta.RootLocation
		status.LastSuccessfulRun = snapshot.Meta.SavedAt
	})
	return true, nil
}

// Gather scans root, replaces the inventory and saves it in the background.
func (s *Session) Gather(ctx context.Context, root string) error {
	if !s.beginScan(root) {
		return ErrScanInProgress
	}
	return s.runScan(ctx, root)
}

// StartGather runs Gather in the background. Progress is visible through
// Status.
func (s *Session) StartGather(ctx context.Context, root string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if !s.beginScan(root) {
		return ErrScanInProgress
	}
	go func() {
		if err := s.runScan(ctx, root); err != nil {
			log.Printf("scan %s: %v", root, err)
		}
	}()
	return nil
}

func (s *Session) beginScan(root string) bool {
	s.statusMu.Lock()
	defer s.statusMu.Unlock()
	if s.status.Running {
		return false
	}
	s.status = ScanStatus{
		Running:           true,
		Root:              root,
		StartedAt:         time.Now(),
		LastSuccessfulRun: s.status.LastSuccessfulRun,
	}
	return true
}

func (s *Session) runScan(ctx context.Context, root string) error {
	progress := scanner.WithProgress(func(processed int64, path string) {
		if processed%256 != 0 {
			return
		}
		s.updateStatus(func(status *ScanStatus) {
			status.Processed = processed
			status.CurrentPath = path
		})
	})

	result, err := scanner.Scan(ctx, root, progress)
	finish := time.Now()
	if err != nil {
		s.updateStatus(func(status *ScanStatus) {
			status.Running = false
			status.FinishedAt = finish
			status.CurrentPath = ""
			status.Error = err.Error()
		})
		return fmt.Errorf("scan %s: %w", root, err)
	}

	inv := result.Inventory().WithScanID(s.newScanID())
	s.replace(inv)
	s.persist(ctx, inv)

	s.updateStatus(func(status *ScanStatus) {
		status.Running = false
		status.Root = result.Root
		status.Processed = int64(len(result.Entries))
		status.CurrentPath = ""
		status.FinishedAt = finish
		status.LastSuccessfulRun = finish
		status.Error = ""
	})
	return nil
}

// Import replaces the inventory with the "path,bytes" rows of a CSV file.
// Imported inventories are not saved to the store.
func (s *Session) Import(path string) error {
	records, err := csvfile.ReadFile(path)
	if err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}
	entries := make([]inventory.Entry, len(records))
	for i, record := range records {
		entries[i] = inventory.Entry{Path: record.Path, Size: record.Size}
	}
	s.replace(inventory.Build(entries, inventory.ImportedLocation, inventory.ImportedDate, inventory.ImportedDuration))
	return nil
}

// persist hands a snapshot of inv to the store without blocking the caller.
func (s *Session) persist(ctx context.Context, inv *inventory.Inventory) {
	if s.store == nil {
		return
	}
	snapshot := storage.FromInventory(inv)
	saveCtx := context.WithoutCancel(ctx)
	s.saves.Add(1)
	go func() {
		defer s.saves.Done()
		started := time.Now()
		if err := s.store.SaveSnapshot(saveCtx, snapshot); err != nil {
			log.Printf("save snapshot of %s: %v", snapshot.Meta.RootLocation, err)
			return
		}
		log.Printf("saved %d records of %s in %s", len(snapshot.Records), snapshot.Meta.RootLocation, time.Since(started).Round(time.Millisecond))
	}()
}

// Wait blocks until background saves have finished.
func (s *Session) Wait() {
	s.saves.Wait()
}

func (s *Session) replace(inv *inventory.Inventory) {
	s.mu.Lock()
	s.inv = inv
	s.ws = inv.WorkingSet()
	s.query = ""
	s.mu.Unlock()
}

// Search replaces the working set with the matches of text. On error the
// current working set is kept.
func (s *Session) Search(text string) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ws, err := query.Search(s.inv, text)
	if err != nil {
		return View{}, err
	}
	s.ws = ws
	s.query = text
	return s.viewLocked(), nil
}

// SortBy reorders the working set by field, toggling direction on repeats.
func (s *Session) SortBy(field sorting.Field) View {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorting.SortBy(s.ws, field)
	return s.viewLocked()
}

// View returns a copy of the working set.
func (s *Session) View() View {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.viewLocked()
}

func (s *Session) viewLocked() View {
	snapshot := s.ws.Clone()
	return View{
		Query:        s.query,
		Matches:      snapshot.Matches,
		MatchesBytes: snapshot.MatchesBytes,
		MatchesSize:  snapshot.MatchesSize(),
		SortState:    snapshot.SortState,
		Filtered:     snapshot.Len() != s.inv.Len(),
	}
}

// Inventory returns the current inventory. It is never modified.
func (s *Session) Inventory() *inventory.Inventory {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.inv
}

// Stats summarizes the current matches.
func (s *Session) Stats() inventory.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return inventory.Summarize(s.ws.Matches)
}

// Status returns a snapshot of the current scan status.
func (s *Session) Status() ScanStatus {
	s.statusMu.RLock()
	defer s.statusMu.RUnlock()
	return s.status
}

func (s *Session) updateStatus(update func(*ScanStatus)) {
	s.statusMu.Lock()
	update(&s.status)
	s.statusMu.Unlock()
}

// ExportFileName names an export of the current inventory made today.
func (s *Session) ExportFileName(kind export.Kind) string {
	meta := s.Inventory().Metadata()
	return export.FileName(meta.RootLocation, inventory.FormatScanDate(s.now()), kind)
}

// Export writes the inventory into dir and returns the created file path.
func (s *Session) Export(kind export.Kind, dir string) (string, error) {
	if kind.Extension() == "" {
		return "", fmt.Errorf("%w %q", export.ErrUnknownKind, kind)
	}
	inv := s.Inventory()

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}
	path := filepath.Join(dir, s.ExportFileName(kind))
	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export file: %w", err)
	}
	if err := export.Write(file, kind, inv); err != nil {
		_ = file.Close()
		return "", fmt.Errorf("write %s export: %w", kind, err)
	}
	if err := file.Close(); err != nil {
		return "", fmt.Errorf("close export file: %w", err)
	}
	return path, nil
}
