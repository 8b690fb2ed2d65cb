package inventory

import (
	"fmt"
	"slices"

	"filecensus/internal/bytesize"
)

// SortState records how a WorkingSet is currently ordered.
type SortState int

const (
	SortNone SortState = iota
	SortNameAsc
	SortNameDesc
	SortSizeAsc
	SortSizeDesc
)

var sortStateNames = map[SortState]string{
	SortNone:     "none",
	SortNameAsc:  "name-asc",
	SortNameDesc: "name-desc",
	SortSizeAsc:  "size-asc",
	SortSizeDesc: "size-desc",
}

func (s SortState) String() string {
	if name, ok := sortStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("SortState(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s SortState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *SortState) UnmarshalText(text []byte) error {
	for state, name := range sortStateNames {
		if name == string(text) {
			*s = state
			return nil
		}
	}
	return fmt.Errorf("unknown sort state %q", text)
}

// WorkingSet is the filtered and ordered view of an Inventory.
type WorkingSet struct {
	Matches      []FileRecord `json:"matches"`
	MatchesBytes int64        `json:"matchesBytes"`
	SortState    SortState    `json:"sortState"`
}

// NewWorkingSet wraps matches in an unsorted working set and totals them.
func NewWorkingSet(matches []FileRecord) *WorkingSet {
	ws := &WorkingSet{Matches: matches}
	ws.Recount()
	return ws
}

// Recount recomputes MatchesBytes from Matches.
func (ws *WorkingSet) Recount() {
	var total int64
	for _, match := range ws.Matches {
		total += match.Size
	}
	ws.MatchesBytes = total
}

// Len returns the number of matches.
func (ws *WorkingSet) Len() int {
	return len(ws.Matches)
}

// MatchesSize returns MatchesBytes formatted for display.
func (ws *WorkingSet) MatchesSize() string {
	return bytesize.Format(ws.MatchesBytes)
}

// Clone returns a deep copy whose Matches can be reordered independently.
func (ws *WorkingSet) Clone() *WorkingSet {
	return &WorkingSet{
		Matches:      slices.Clone(ws.Matches),
		MatchesBytes: ws.MatchesBytes,
		SortState:    ws.SortState,
	}
}
