package interpreter

import "github.com/specialistvlad/querycore/internal/query"

// Result is the value of an evaluated expression. The set of
// implementations is closed: QueryResult, EmptyResult, SequenceResult.
type Result interface {
	result()
}

// QueryResult is the outcome of a backend call.
type QueryResult struct {
	query.Result
}

// EmptyResult is the value of a skipped branch.
type EmptyResult struct{}

// SequenceResult is the value of a sequence: its last item plus every
// binding the sequence made, by name.
type SequenceResult struct {
	Named map[string]Result
	Last  Result
}

func (QueryResult) result()    {}
func (EmptyResult) result()    {}
func (SequenceResult) result() {}

// hasRows reports whether r is a backend result with at least one row.
func hasRows(r Result) bool {
	qr, ok := r.(QueryResult)
	return ok && !qr.IsEmpty()
}
