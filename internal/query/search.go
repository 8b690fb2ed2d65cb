// Package query implements the filter mini-language used to narrow an
// inventory down to a working set.
//
// A query holds one or two clauses joined by " && ". Each clause is one of:
//
//	>=SIZE  >SIZE  <=SIZE  <SIZE   size comparisons, e.g. ">=1.5 MB"
//	^text                          path starts with text
//	text$                          path ends with text
//	%text%                         path contains text, ignoring case
//	!text                          path does not contain text
//	basename: text                 file name contains text
//	text                           path or size contains text
package query

import (
	"strings"

	"filecensus/internal/inventory"
)

// ClauseSeparator joins the two clauses of a query.
const ClauseSeparator = " && "

// Parse classifies every clause of text. An empty text has no predicates.
func Parse(text string) ([]Predicate, error) {
	if text == "" {
		return nil, nil
	}
	clauses := strings.SplitN(text, ClauseSeparator, 2)
	predicates := make([]Predicate, 0, len(clauses))
	for _, clause := range clauses {
		predicate, err := Classify(clause)
		if err != nil {
			return nil, err
		}
		predicates = append(predicates, predicate)
	}
	return predicates, nil
}

// Search evaluates text against inv and returns a new, unsorted working set.
// The first clause filters the inventory and the second filters that result.
func Search(inv *inventory.Inventory, text string) (*inventory.WorkingSet, error) {
	if text == "" {
		return inv.WorkingSet(), nil
	}

	predicates, err := Parse(text)
	if err != nil {
		return nil, err
	}

	first, rest := predicates[0], predicates[1:]
	matches := make([]inventory.FileRecord, 0)
	for record := range inv.All() {
		if first.Match(record) {
			matches = append(matches, record)
		}
	}
	for _, predicate := range rest {
		matches = filter(matches, predicate)
	}

	return inventory.NewWorkingSet(matches), nil
}

func filter(candidates []inventory.FileRecord, predicate Predicate) []inventory.FileRecord {
	kept := candidates[:0]
	for _, record := range candidates {
		if predicate.Match(record) {
			kept = append(kept, record)
		}
	}
	return kept
}
