package query

import (
	"testing"

	"filecensus/internal/bytesize"
	"filecensus/internal/inventory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scenarioInventory() *inventory.Inventory {
	return inventory.Build([]inventory.Entry{
		{Path: "a.txt", Size: 500},
		{Path: "b.txt", Size: 2048},
		{Path: "c.txt", Size: 500},
	}, "/", "", "")
}

func treeInventory() *inventory.Inventory {
	return inventory.Build([]inventory.Entry{
		{Path: "/home/ann/Notes.TXT", Size: 120},
		{Path: "/home/ann/photos/cat.jpg", Size: 3 * bytesize.MB},
		{Path: "/home/bob/report.pdf", Size: 2 * bytesize.KB},
		{Path: "/var/log/syslog", Size: 1536},
		{Path: "/home/bob/notes/todo.txt", Size: 10},
	}, "/", "", "")
}

func paths(ws *inventory.WorkingSet) []string {
	result := make([]string, 0, len(ws.Matches))
	for _, match := range ws.Matches {
		result = append(result, match.Path)
	}
	return result
}

func TestSearchEmptyReturnsEverything(t *testing.T) {
	inv := treeInventory()
	ws, err := Search(inv, "")
	require.NoError(t, err)
	assert.Equal(t, inv.Records(), ws.Matches)
	assert.Equal(t, inv.TotalBytes(), ws.MatchesBytes)
	assert.Equal(t, inventory.SortNone, ws.SortState)
}

func TestSearchScenario(t *testing.T) {
	inv := scenarioInventory()

	ws, err := Search(inv, ">=500")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt", "c.txt"}, paths(ws))
	assert.Equal(t, int64(3048), ws.MatchesBytes)

	ws, err = Search(inv, ">500")
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, paths(ws))
	assert.Equal(t, int64(2048), ws.MatchesBytes)

	ws, err = Search(inv, "^a && <1000")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, paths(ws))
}

func TestSearchForms(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		expected []string
	}{
		{"at most", "<=2kb", []string{"/home/ann/Notes.TXT", "/home/bob/report.pdf", "/var/log/syslog", "/home/bob/notes/todo.txt"}},
		{"less", "<1.5 KB", []string{"/home/ann/Notes.TXT", "/home/bob/notes/todo.txt"}},
		{"greater mb", ">1mb", []string{"/home/ann/photos/cat.jpg"}},
		{"prefix", "^/home/bob", []string{"/home/bob/report.pdf", "/home/bob/notes/todo.txt"}},
		{"suffix", ".txt$", []string{"/home/bob/notes/todo.txt"}},
		{"contains fold", "%notes%", []string{"/home/ann/Notes.TXT", "/home/bob/notes/todo.txt"}},
		{"excludes", "!home", []string{"/var/log/syslog"}},
		{"excludes is case sensitive", "!Notes", []string{"/home/ann/photos/cat.jpg", "/home/bob/report.pdf", "/var/log/syslog", "/home/bob/notes/todo.txt"}},
		{"basename", "basename: o", []string{"/home/ann/Notes.TXT", "/home/bob/report.pdf", "/var/log/syslog", "/home/bob/notes/todo.txt"}},
		{"basename ignores directories", "basename: notes", nil},
		{"basename prefix any case", "Basename: cat", []string{"/home/ann/photos/cat.jpg"}},
		{"contains path", "ann", []string{"/home/ann/Notes.TXT", "/home/ann/photos/cat.jpg"}},
		{"contains human size", "3.000 MB", []string{"/home/ann/photos/cat.jpg"}},
		{"contains human size unit", "KB", []string{"/home/bob/report.pdf", "/var/log/syslog"}},
		{"no match", "zzz", nil},
		{"leading dollar is plain text", "$txt", nil},
		{"single percent is plain text", "%", nil},
		{"two clauses", "^/home && %.txt%", []string{"/home/ann/Notes.TXT", "/home/bob/notes/todo.txt"}},
		{"empty second clause", "ann && ", []string{"/home/ann/Notes.TXT", "/home/ann/photos/cat.jpg"}},
		{"chained case fold", "^/home/bob && %NOTES%", []string{"/home/bob/notes/todo.txt"}},
		{"chained excludes", "^/home && !ann", []string{"/home/bob/report.pdf", "/home/bob/notes/todo.txt"}},
		{"third clause is literal text", "home && bob && x", nil},
	}

	inv := treeInventory()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ws, err := Search(inv, tt.query)
			require.NoError(t, err)
			if tt.expected == nil {
				assert.Empty(t, ws.Matches)
			} else {
				assert.Equal(t, tt.expected, paths(ws))
			}
			var total int64
			for _, match := range ws.Matches {
				total += match.Size
			}
			assert.Equal(t, total, ws.MatchesBytes)
			assert.Equal(t, inventory.SortNone, ws.SortState)
			assert.LessOrEqual(t, ws.Len(), inv.Len())
		})
	}
}

func TestSearchIsConjunctive(t *testing.T) {
	inv := treeInventory()
	pairs := [][2]string{
		{"home", "txt"},
		{">100", "^/home"},
		{"%notes%", "<1kb"},
		{"!ann", "basename: t"},
	}
	for _, pair := range pairs {
		forward, err := Search(inv, pair[0]+ClauseSeparator+pair[1])
		require.NoError(t, err)
		backward, err := Search(inv, pair[1]+ClauseSeparator+pair[0])
		require.NoError(t, err)
		assert.ElementsMatch(t, forward.Matches, backward.Matches, pair)
	}
}

func TestSearchInvalidThreshold(t *testing.T) {
	inv := treeInventory()
	for _, text := range []string{">=lots", "^/home && <", "<= 12 apples"} {
		ws, err := Search(inv, text)
		assert.Nil(t, ws)
		assert.ErrorIs(t, err, ErrInvalidThreshold)
		assert.ErrorIs(t, err, bytesize.ErrInvalidSize)
	}
}

func TestSearchDoesNotTouchInventory(t *testing.T) {
	inv := treeInventory()
	before := inv.Records()
	_, err := Search(inv, "^/home && !ann")
	require.NoError(t, err)
	assert.Equal(t, before, inv.Records())
}

func TestSearchEmptyInventory(t *testing.T) {
	ws, err := Search(inventory.Empty(), "anything && >1kb")
	require.NoError(t, err)
	assert.Empty(t, ws.Matches)
	assert.Zero(t, ws.MatchesBytes)
}
