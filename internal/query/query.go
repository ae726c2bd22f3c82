package query

import (
	"fmt"
	"sort"
	"strings"

	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/model"
)

// Expectation states how many rows an operation has to affect.
type Expectation int

const (
	// ExpectAny accepts any number of rows, including none.
	ExpectAny Expectation = iota
	// ExpectOne requires at least one row; an empty result is a
	// RecordNotFoundError.
	ExpectOne
	// ExpectOptional targets at most one row and accepts none.
	ExpectOptional
)

func (e Expectation) String() string {
	switch e {
	case ExpectOne:
		return "one"
	case ExpectOptional:
		return "optional"
	default:
		return "any"
	}
}

// Query is one atomic backend operation. The set of implementations is
// closed: *FindRecords, *CreateRecord, *UpdateRecords, *DeleteRecords.
type Query interface {
	Model() *model.Model
	// Clone returns a deep enough copy for a transformer to modify.
	Clone() Query
	String() string

	query()
}

// FindRecords reads rows.
type FindRecords struct {
	M      *model.Model
	Filter connector.Filter
	// Columns to read; nil reads every column.
	Columns []string
	Expect  Expectation
}

// CreateRecord inserts one row.
type CreateRecord struct {
	M    *model.Model
	Args connector.WriteArgs
}

// UpdateRecords updates rows.
type UpdateRecords struct {
	M      *model.Model
	Filter connector.Filter
	Args   connector.WriteArgs
	Expect Expectation
}

// DeleteRecords deletes rows.
type DeleteRecords struct {
	M      *model.Model
	Filter connector.Filter
	Expect Expectation
}

func (q *FindRecords) Model() *model.Model   { return q.M }
func (q *CreateRecord) Model() *model.Model  { return q.M }
func (q *UpdateRecords) Model() *model.Model { return q.M }
func (q *DeleteRecords) Model() *model.Model { return q.M }

func (q *FindRecords) Clone() Query {
	c := *q
	c.Filter.Identifiers = append(c.Filter.Identifiers[:0:0], q.Filter.Identifiers...)
	return &c
}

func (q *CreateRecord) Clone() Query {
	return &CreateRecord{M: q.M, Args: q.Args.Clone()}
}

func (q *UpdateRecords) Clone() Query {
	c := *q
	c.Filter.Identifiers = append(c.Filter.Identifiers[:0:0], q.Filter.Identifiers...)
	c.Args = q.Args.Clone()
	return &c
}

func (q *DeleteRecords) Clone() Query {
	c := *q
	c.Filter.Identifiers = append(c.Filter.Identifiers[:0:0], q.Filter.Identifiers...)
	return &c
}

func (q *FindRecords) String() string {
	return fmt.Sprintf("find %s where %s", q.M.Name, q.Filter)
}

func (q *CreateRecord) String() string {
	return fmt.Sprintf("create %s %s", q.M.Name, argNames(q.Args))
}

func (q *UpdateRecords) String() string {
	return fmt.Sprintf("update %s %s where %s", q.M.Name, argNames(q.Args), q.Filter)
}

func (q *DeleteRecords) String() string {
	return fmt.Sprintf("delete %s where %s", q.M.Name, q.Filter)
}

func (q *FindRecords) query()   {}
func (q *CreateRecord) query()  {}
func (q *UpdateRecords) query() {}
func (q *DeleteRecords) query() {}

// IsStaticallyEmpty reports whether q is known to touch no row before it
// runs. Creates never are.
func IsStaticallyEmpty(q Query) bool {
	switch q := q.(type) {
	case *FindRecords:
		return q.Filter.IsStaticallyEmpty()
	case *UpdateRecords:
		return q.Filter.IsStaticallyEmpty()
	case *DeleteRecords:
		return q.Filter.IsStaticallyEmpty()
	default:
		return false
	}
}

// IsRead reports whether q leaves the backend unchanged.
func IsRead(q Query) bool {
	_, ok := q.(*FindRecords)
	return ok
}

// ExpectationOf returns the row expectation of q. Creates always produce
// exactly one row.
func ExpectationOf(q Query) Expectation {
	switch q := q.(type) {
	case *FindRecords:
		return q.Expect
	case *UpdateRecords:
		return q.Expect
	case *DeleteRecords:
		return q.Expect
	default:
		return ExpectOne
	}
}

func argNames(args connector.WriteArgs) string {
	names := make([]string, 0, len(args))
	for k := range args {
		names = append(names, k)
	}
	sort.Strings(names)
	return "{" + strings.Join(names, ", ") + "}"
}
