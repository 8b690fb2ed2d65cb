package query

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"filecensus/internal/bytesize"
	"filecensus/internal/inventory"
)

// ErrInvalidThreshold is returned for a size clause whose threshold does not
// parse, e.g. ">= lots".
var ErrInvalidThreshold = errors.New("invalid size threshold")

// Kind is the form of a clause.
type Kind int

const (
	// KindContains matches when the path or the human readable size contains Text.
	KindContains Kind = iota
	KindAtLeast
	KindGreater
	KindAtMost
	KindLess
	KindPrefix
	KindSuffix
	KindContainsFold
	KindExcludes
	KindBasename
)

var kindNames = [...]string{
	KindContains:     "contains",
	KindAtLeast:      "at-least",
	KindGreater:      "greater",
	KindAtMost:       "at-most",
	KindLess:         "less",
	KindPrefix:       "prefix",
	KindSuffix:       "suffix",
	KindContainsFold: "contains-fold",
	KindExcludes:     "excludes",
	KindBasename:     "basename",
}

func (k Kind) String() string {
	if k >= 0 && int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

const basenamePrefix = "basename: "

// Predicate is a classified clause. Threshold is only meaningful for the
// size comparators; Text holds the operand with its markers removed.
type Predicate struct {
	Kind      Kind
	Text      string
	Threshold int64
}

type comparator struct {
	marker string
	kind   Kind
}

// Longer markers first so ">=" is not read as ">".
var comparators = []comparator{
	{marker: ">=", kind: KindAtLeast},
	{marker: ">", kind: KindGreater},
	{marker: "<=", kind: KindAtMost},
	{marker: "<", kind: KindLess},
}

// Classify turns a clause into a Predicate. The first matching form wins;
// text matching no form becomes a KindContains predicate.
func Classify(clause string) (Predicate, error) {
	for _, c := range comparators {
		rest, ok := strings.CutPrefix(clause, c.marker)
		if !ok {
			continue
		}
		threshold, err := bytesize.Parse(rest)
		if err != nil {
			return Predicate{}, fmt.Errorf("%w in %q: %w", ErrInvalidThreshold, clause, err)
		}
		return Predicate{Kind: c.kind, Text: rest, Threshold: threshold}, nil
	}

	switch {
	case strings.HasPrefix(clause, "^"):
		return Predicate{Kind: KindPrefix, Text: clause[1:]}, nil
	case strings.HasSuffix(clause, "$"):
		return Predicate{Kind: KindSuffix, Text: clause[:len(clause)-1]}, nil
	case len(clause) >= 2 && strings.HasPrefix(clause, "%") && strings.HasSuffix(clause, "%"):
		return Predicate{Kind: KindContainsFold, Text: strings.ToLower(clause[1 : len(clause)-1])}, nil
	case strings.HasPrefix(clause, "!"):
		return Predicate{Kind: KindExcludes, Text: clause[1:]}, nil
	case len(clause) >= len(basenamePrefix) && strings.EqualFold(clause[:len(basenamePrefix)], basenamePrefix):
		return Predicate{Kind: KindBasename, Text: clause[len(basenamePrefix):]}, nil
	}
	return Predicate{Kind: KindContains, Text: clause}, nil
}

// Match reports whether record satisfies p.
func (p Predicate) Match(record inventory.FileRecord) bool {
	switch p.Kind {
	case KindAtLeast:
		return record.Size >= p.Threshold
	case KindGreater:
		return record.Size > p.Threshold
	case KindAtMost:
		return record.Size <= p.Threshold
	case KindLess:
		return record.Size < p.Threshold
	case KindPrefix:
		return strings.HasPrefix(record.Path, p.Text)
	case KindSuffix:
		return strings.HasSuffix(record.Path, p.Text)
	case KindContainsFold:
		return strings.Contains(strings.ToLower(record.Path), p.Text)
	case KindExcludes:
		return !strings.Contains(record.Path, p.Text)
	case KindBasename:
		return strings.Contains(filepath.Base(record.Path), p.Text)
	default:
		return strings.Contains(record.Path, p.Text) || strings.Contains(record.HumanSize, p.Text)
	}
}
