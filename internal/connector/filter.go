package connector

import (
	"strings"

	"github.com/specialistvlad/querycore/internal/record"
	"github.com/zclconf/go-cty/cty"
)

// Filter selects rows. It is either match-all or a disjunction of record
// identifiers, each of which is a conjunction of column equalities.
type Filter struct {
	All         bool
	Identifiers []record.RecordIdentifier
}

// MatchAll selects every row.
func MatchAll() Filter { return Filter{All: true} }

// ByIdentifiers selects the rows matching any of ids. With no ids the filter
// matches nothing.
func ByIdentifiers(ids ...record.RecordIdentifier) Filter {
	return Filter{Identifiers: ids}
}

// IsStaticallyEmpty reports whether the filter can be known to match no row
// without asking the backend.
func (f Filter) IsStaticallyEmpty() bool {
	return !f.All && len(f.Identifiers) == 0
}

// Matches evaluates the filter against one row given as parallel column
// names and values.
func (f Filter) Matches(columns []string, values []cty.Value) bool {
	if f.All {
		return true
	}
	for _, id := range f.Identifiers {
		if matchesIdentifier(id, columns, values) {
			return true
		}
	}
	return false
}

func matchesIdentifier(id record.RecordIdentifier, columns []string, values []cty.Value) bool {
	for _, p := range id.Pairs() {
		idx := indexOf(columns, p.Field.Name)
		if idx < 0 || idx >= len(values) {
			return false
		}
		if !ValuesEqual(values[idx], p.Value) {
			return false
		}
	}
	return true
}

func (f Filter) String() string {
	if f.All {
		return "all"
	}
	if len(f.Identifiers) == 0 {
		return "none"
	}
	parts := make([]string, len(f.Identifiers))
	for i, id := range f.Identifiers {
		parts[i] = id.String()
	}
	return strings.Join(parts, " OR ")
}

// ValuesEqual compares two storage values. Nulls only equal nulls; values of
// different types are never equal.
func ValuesEqual(a, b cty.Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	if !a.Type().Equals(b.Type()) {
		return false
	}
	return a.Equals(b).True()
}

func indexOf(names []string, name string) int {
	for i, n := range names {
		if n == name {
			return i
		}
	}
	return -1
}

// And intersects two filters. Disjunctions are multiplied out, so the result
// stays a disjunction of identifier conjunctions.
func (f Filter) And(other Filter) Filter {
	switch {
	case f.All:
		return other
	case other.All:
		return f
	}
	out := Filter{Identifiers: make([]record.RecordIdentifier, 0, len(f.Identifiers)*len(other.Identifiers))}
	for _, a := range f.Identifiers {
		for _, b := range other.Identifiers {
			pairs := append(append([]record.Pair(nil), a.Pairs()...), b.Pairs()...)
			out.Identifiers = append(out.Identifiers, record.NewRecordIdentifier(pairs...))
		}
	}
	return out
}
