// Package sorting orders a working set by name or size. Repeating a sort on
// the same field reverses the current order instead of sorting again.
package sorting

import (
	"cmp"
	"fmt"
	"slices"
	"strings"

	"filecensus/internal/inventory"
)

// Field is the key a working set can be sorted by.
type Field int

const (
	FieldName Field = iota
	FieldSize
)

func (f Field) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldSize:
		return "size"
	default:
		return fmt.Sprintf("Field(%d)", int(f))
	}
}

// ParseField accepts "name"/"path" and "size"/"bytes" in any case.
func ParseField(s string) (Field, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "name", "path":
		return FieldName, nil
	case "size", "bytes":
		return FieldSize, nil
	default:
		return 0, fmt.Errorf("unknown sort field %q", s)
	}
}

// Op is the reordering a transition performs.
type Op int

const (
	OpSort Op = iota
	OpReverse
)

type transition struct {
	next inventory.SortState
	op   Op
}

type key struct {
	state inventory.SortState
	field Field
}

// Pairs not listed sort ascending by the requested field.
var transitions = map[key]transition{
	{inventory.SortNameAsc, FieldName}:  {next: inventory.SortNameDesc, op: OpReverse},
	{inventory.SortNameDesc, FieldName}: {next: inventory.SortNameAsc, op: OpReverse},
	{inventory.SortSizeAsc, FieldSize}:  {next: inventory.SortSizeDesc, op: OpReverse},
	{inventory.SortSizeDesc, FieldSize}: {next: inventory.SortSizeAsc, op: OpReverse},
}

var ascending = map[Field]inventory.SortState{
	FieldName: inventory.SortNameAsc,
	FieldSize: inventory.SortSizeAsc,
}

// Next returns the state reached by sorting on field from state, and the
// reordering needed to get there.
func Next(state inventory.SortState, field Field) (inventory.SortState, Op) {
	if t, ok := transitions[key{state, field}]; ok {
		return t.next, t.op
	}
	return ascending[field], OpSort
}

// SortBy reorders ws in place and updates its sort state. It returns ws.
func SortBy(ws *inventory.WorkingSet, field Field) *inventory.WorkingSet {
	next, op := Next(ws.SortState, field)
	switch op {
	case OpReverse:
		slices.Reverse(ws.Matches)
	default:
		slices.SortFunc(ws.Matches, comparator(field))
	}
	ws.SortState = next
	return ws
}

func comparator(field Field) func(a, b inventory.FileRecord) int {
	if field == FieldSize {
		return func(a, b inventory.FileRecord) int {
			return cmp.Or(cmp.Compare(a.Size, b.Size), strings.Compare(a.Path, b.Path))
		}
	}
	return func(a, b inventory.FileRecord) int {
		return cmp.Or(strings.Compare(a.Path, b.Path), cmp.Compare(a.Size, b.Size))
	}
}
