package inventory

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleEntries() []Entry {
	return []Entry{
		{Path: "a.txt", Size: 500},
		{Path: "b.txt", Size: 2048},
		{Path: "c.txt", Size: 500},
	}
}

func TestBuild(t *testing.T) {
	inv := Build(sampleEntries(), "/data", "18-Oct-2026", "0.12 s")

	meta := inv.Metadata()
	assert.Equal(t, "/data", meta.RootLocation)
	assert.Equal(t, "18-Oct-2026", meta.ScanDate)
	assert.Equal(t, "0.12 s", meta.ScanDuration)
	assert.Equal(t, 3, meta.TotalFiles)
	assert.Equal(t, int64(3048), meta.TotalBytes)
	assert.Equal(t, "2.977 KB", meta.TotalSize())
	assert.Equal(t, 3, inv.Len())

	records := inv.Records()
	require.Len(t, records, 3)
	assert.Equal(t, FileRecord{Path: "b.txt", Size: 2048, HumanSize: "2.000 KB"}, records[1])
	assert.Equal(t, "500 Bytes", records[0].HumanSize)
}

func TestBuildKeepsDuplicatesAndOrder(t *testing.T) {
	inv := Build([]Entry{{"z", 1}, {"a", 2}, {"z", 3}}, "/", "", "")

	var paths []string
	for record := range inv.All() {
		paths = append(paths, record.Path)
	}
	assert.Equal(t, []string{"z", "a", "z"}, paths)
	assert.Equal(t, int64(6), inv.TotalBytes())

	record, ok := inv.Lookup("z")
	require.True(t, ok)
	assert.Equal(t, int64(1), record.Size)
	_, ok = inv.Lookup("missing")
	assert.False(t, ok)
}

func TestRecordsReturnsCopy(t *testing.T) {
	inv := Build(sampleEntries(), "/", "", "")
	records := inv.Records()
	records[0] = NewFileRecord("changed", 1)

	first, ok := inv.Lookup("a.txt")
	require.True(t, ok)
	assert.Equal(t, "a.txt", inv.Records()[0].Path)
	assert.Equal(t, int64(500), first.Size)
}

func TestEmpty(t *testing.T) {
	inv := Empty()
	meta := inv.Metadata()
	assert.Equal(t, NoLocation, meta.RootLocation)
	assert.Equal(t, 0, meta.TotalFiles)
	assert.Equal(t, int64(0), meta.TotalBytes)
	assert.Empty(t, inv.WorkingSet().Matches)
}

func TestWithScanID(t *testing.T) {
	inv := Build(sampleEntries(), "/", "", "")
	tagged := inv.WithScanID("abc")
	assert.Equal(t, "abc", tagged.Metadata().ScanID)
	assert.Empty(t, inv.Metadata().ScanID)
	assert.Equal(t, inv.Records(), tagged.Records())
}

func TestEntries(t *testing.T) {
	inv := Build(sampleEntries(), "/", "", "")
	assert.Equal(t, sampleEntries(), inv.Entries())
}

func TestInventoryWorkingSet(t *testing.T) {
	inv := Build(sampleEntries(), "/", "", "")
	ws := inv.WorkingSet()
	assert.Equal(t, inv.Records(), ws.Matches)
	assert.Equal(t, inv.TotalBytes(), ws.MatchesBytes)
	assert.Equal(t, SortNone, ws.SortState)
}

func TestFormatScanDate(t *testing.T) {
	date := time.Date(2026, time.October, 8, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "08-Oct-2026", FormatScanDate(date))
}

func TestFormatScanDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{0, "0.00 s"},
		{1234 * time.Millisecond, "1.23 s"},
		{59*time.Second + 996*time.Millisecond, "1m 0.00s"},
		{2*time.Minute + 3400*time.Millisecond, "2m 3.40s"},
		{61 * time.Minute, "61m 0.00s"},
	}
	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatScanDuration(tt.duration))
		})
	}
}

func TestWorkingSet(t *testing.T) {
	ws := NewWorkingSet([]FileRecord{NewFileRecord("a", 10), NewFileRecord("b", 1014)})
	assert.Equal(t, int64(1024), ws.MatchesBytes)
	assert.Equal(t, "1.000 KB", ws.MatchesSize())
	assert.Equal(t, 2, ws.Len())
	assert.Equal(t, SortNone, ws.SortState)

	clone := ws.Clone()
	clone.Matches[0], clone.Matches[1] = clone.Matches[1], clone.Matches[0]
	assert.Equal(t, "a", ws.Matches[0].Path)
}

func TestSortStateText(t *testing.T) {
	for state, name := range sortStateNames {
		text, err := state.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, name, string(text))

		var decoded SortState
		require.NoError(t, decoded.UnmarshalText(text))
		assert.Equal(t, state, decoded)
	}

	var s SortState
	assert.Error(t, s.UnmarshalText([]byte("sideways")))
	assert.Equal(t, "SortState(42)", SortState(42).String())

	encoded, err := json.Marshal(NewWorkingSet(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"matches":null,"matchesBytes":0,"sortState":"none"}`, string(encoded))
}

func TestSummarize(t *testing.T) {
	assert.Equal(t, Stats{}, Summarize(nil))

	stats := Summarize([]FileRecord{NewFileRecord("a", 500), NewFileRecord("b", 2048), NewFileRecord("c", 500)})
	assert.Equal(t, 3, stats.Count)
	assert.Equal(t, int64(3048), stats.Total)
	assert.InDelta(t, 1016.0, stats.Mean, 0.001)
	assert.Equal(t, 500.0, stats.Median)
	assert.Equal(t, "1016 Bytes", stats.MeanSize())
	assert.Equal(t, "500 Bytes", stats.MedianSize())

	even := Summarize([]FileRecord{NewFileRecord("a", 1), NewFileRecord("b", 4)})
	assert.Equal(t, 2.5, even.Median)
	assert.Equal(t, "2.5 Bytes", even.MedianSize())
}
