package session

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"filecensus/internal/export"
	"filecensus/internal/inventory"
	"filecensus/internal/query"
	"filecensus/internal/sorting"
	"filecensus/internal/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	mu       sync.Mutex
	snapshot *storage.Snapshot
	saveErr  error
	loadErr  error
	release  chan struct{}
}

func (m *memoryStore) SaveSnapshot(ctx context.Context, snapshot storage.Snapshot) error {
	if m.release != nil {
		<-m.release
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.snapshot = &snapshot
	return nil
}

func (m *memoryStore) LoadSnapshot(ctx context.Context) (storage.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return storage.Snapshot{}, m.loadErr
	}
	if m.snapshot == nil {
		return storage.Snapshot{}, storage.ErrNoSnapshot
	}
	return *m.snapshot, nil
}

func (m *memoryStore) saved() *storage.Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot
}

func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]int{
		"a.txt":        500,
		"b.txt":        2048,
		"c.txt":        500,
		"docs/readme":  10,
		"docs/big.bin": 4096,
	}
	for name, size := range files {
		path := filepath.Join(root, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	}
	return root
}

func TestNewSessionIsEmpty(t *testing.T) {
	s := New(nil)
	view := s.View()
	assert.Empty(t, view.Matches)
	assert.False(t, view.Filtered)
	assert.Equal(t, inventory.NoLocation, s.Inventory().Metadata().RootLocation)

	ok, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestGatherSearchSort(t *testing.T) {
	root := makeTree(t)
	store := &memoryStore{}
	s := New(store)
	s.newScanID = func() string { return "scan-1" }

	require.NoError(t, s.Gather(context.Background(), root))
	s.Wait()

	meta := s.Inventory().Metadata()
	assert.Equal(t, 5, meta.TotalFiles)
	assert.Equal(t, int64(7154), meta.TotalBytes)
	assert.Equal(t, "scan-1", meta.ScanID)

	status := s.Status()
	assert.False(t, status.Running)
	assert.Equal(t, int64(5), status.Processed)
	assert.False(t, status.LastSuccessfulRun.IsZero())

	saved := store.saved()
	require.NotNil(t, saved)
	assert.Len(t, saved.Records, 5)
	assert.Equal(t, "scan-1", saved.Meta.ScanID)

	view, err := s.Search(".txt$ && >=500")
	require.NoError(t, err)
	assert.Len(t, view.Matches, 3)
	assert.Equal(t, int64(3048), view.MatchesBytes)
	assert.True(t, view.Filtered)
	assert.Equal(t, ".txt$ && >=500", view.Query)

	view = s.SortBy(sorting.FieldSize)
	assert.Equal(t, inventory.SortSizeAsc, view.SortState)
	assert.Equal(t, filepath.Join(root, "a.txt"), view.Matches[0].Path)
	assert.Equal(t, filepath.Join(root, "b.txt"), view.Matches[2].Path)

	view = s.SortBy(sorting.FieldSize)
	assert.Equal(t, inventory.SortSizeDesc, view.SortState)
	assert.Equal(t, filepath.Join(root, "b.txt"), view.Matches[0].Path)

	stats := s.Stats()
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, 500.0, stats.Median)

	view, err = s.Search("")
	require.NoError(t, err)
	assert.Len(t, view.Matches, 5)
	assert.Equal(t, inventory.SortNone, view.SortState)
	assert.False(t, view.Filtered)
}

func TestSearchErrorKeepsWorkingSet(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Gather(context.Background(), makeTree(t)))
	_, err := s.Search("^" + filepath.Join(s.Inventory().Metadata().RootLocation, "docs"))
	require.NoError(t, err)
	s.SortBy(sorting.FieldName)
	before := s.View()

	_, err = s.Search(">= many")
	assert.ErrorIs(t, err, query.ErrInvalidThreshold)
	assert.Equal(t, before, s.View())
}

func TestViewIsACopy(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Gather(context.Background(), makeTree(t)))
	view := s.View()
	view.Matches[0] = inventory.NewFileRecord("tampered", 1)
	assert.NotEqual(t, "tampered", s.View().Matches[0].Path)
}

func TestLoad(t *testing.T) {
	savedAt := time.Date(2026, time.October, 1, 0, 0, 0, 0, time.UTC)
	store := &memoryStore{snapshot: &storage.Snapshot{
		Meta:    storage.ScanMetadata{RootLocation: "/r", ScanDate: "01-Oct-2026", SavedAt: savedAt},
		Records: []storage.Record{{Path: "/r/x", Size: 3}, {Path: "/r/y", Size: 4}},
	}}
	s := New(store)

	ok, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, s.Inventory().Len())
	assert.Equal(t, int64(7), s.View().MatchesBytes)
	assert.Equal(t, savedAt, s.Status().LastSuccessfulRun)

	store.loadErr = assert.AnError
	_, err = s.Load(context.Background())
	assert.ErrorIs(t, err, assert.AnError)
}

func TestGatherFailureKeepsInventory(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.Gather(context.Background(), makeTree(t)))
	before := s.Inventory()

	err := s.Gather(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
	assert.Same(t, before, s.Inventory())
	assert.NotEmpty(t, s.Status().Error)
	assert.False(t, s.Status().Running)
}

func TestSaveFailureIsLoggedNotReturned(t *testing.T) {
	store := &memoryStore{saveErr: assert.AnError}
	s := New(store)
	require.NoError(t, s.Gather(context.Background(), makeTree(t)))
	s.Wait()
	assert.Nil(t, store.saved())
	assert.Equal(t, 5, s.Inventory().Len())
}

func TestSearchDuringSlowSave(t *testing.T) {
	store := &memoryStore{release: make(chan struct{})}
	s := New(store)
	require.NoError(t, s.Gather(context.Background(), makeTree(t)))

	view, err := s.Search("docs")
	require.NoError(t, err)
	assert.Len(t, view.Matches, 2)
	s.SortBy(sorting.FieldName)

	close(store.release)
	s.Wait()
	saved := store.saved()
	require.NotNil(t, saved)
	assert.Len(t, saved.Records, 5)
}

func TestStartGatherRejectsConcurrentScan(t *testing.T) {
	s := New(nil)
	s.statusMu.Lock()
	s.status.Running = true
	s.statusMu.Unlock()

	assert.ErrorIs(t, s.StartGather(context.Background(), t.TempDir()), ErrScanInProgress)
	assert.ErrorIs(t, s.Gather(context.Background(), t.TempDir()), ErrScanInProgress)
}

func TestStartGather(t *testing.T) {
	s := New(nil)
	require.NoError(t, s.StartGather(context.Background(), makeTree(t)))
	assert.Eventually(t, func() bool {
		return !s.Status().Running && s.Inventory().Len() == 5
	}, 5*time.Second, 10*time.Millisecond)
}

func TestImport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "import.csv")
	require.NoError(t, os.WriteFile(path, []byte("/x/a,10\n/x/b,20\n"), 0o644))

	s := New(nil)
	require.NoError(t, s.Import(path))
	meta := s.Inventory().Metadata()
	assert.Equal(t, inventory.ImportedLocation, meta.RootLocation)
	assert.Equal(t, inventory.ImportedDate, meta.ScanDate)
	assert.Equal(t, inventory.ImportedDuration, meta.ScanDuration)
	assert.Equal(t, int64(30), meta.TotalBytes)

	bad := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(bad, []byte("/x/a,ten\n"), 0o644))
	assert.Error(t, s.Import(bad))
	assert.Equal(t, 2, s.Inventory().Len())
}

func TestExport(t *testing.T) {
	s := New(nil)
	s.now = func() time.Time { return time.Date(2027, time.March, 2, 9, 30, 0, 0, time.Local) }
	path := filepath.Join(t.TempDir(), "import.csv")
	require.NoError(t, os.WriteFile(path, []byte("/x/a,10\n"), 0o644))
	require.NoError(t, s.Import(path))

	dir := filepath.Join(t.TempDir(), "Exports")
	out, err := s.Export(export.KindCSV, dir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "Export Imported data_02-Mar-2027.csv"), out)
	assert.Equal(t, "Export Imported data_02-Mar-2027.xlsx", s.ExportFileName(export.KindExcel))

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Equal(t, "/x/a,10\n", string(data))

	_, err = s.Export(export.Kind("pdf"), dir)
	assert.ErrorIs(t, err, export.ErrUnknownKind)
}
