// Package operation defines the validated, backend-agnostic request the
// execution core consumes.
package operation

import (
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Action is what an operation does.
type Action int

const (
	FindUnique Action = iota
	FindMany
	CreateOne
	UpdateOne
	UpdateMany
	DeleteOne
	DeleteMany
	QueryRaw
	ExecuteRaw
)

func (a Action) String() string {
	switch a {
	case FindUnique:
		return "findUnique"
	case FindMany:
		return "findMany"
	case CreateOne:
		return "createOne"
	case UpdateOne:
		return "updateOne"
	case UpdateMany:
		return "updateMany"
	case DeleteOne:
		return "deleteOne"
	case DeleteMany:
		return "deleteMany"
	case QueryRaw:
		return "queryRaw"
	case ExecuteRaw:
		return "executeRaw"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// IsRead reports whether the action only reads. Raw queries count as
// reads; raw executes do not.
func (a Action) IsRead() bool {
	return a == FindUnique || a == FindMany || a == QueryRaw
}

// IsRaw reports whether the action is a verbatim backend command.
func (a Action) IsRaw() bool {
	return a == QueryRaw || a == ExecuteRaw
}

// Operation is one request. Nested operations act on the records related
// to this operation's records through the named relation field.
type Operation struct {
	Action Action
	Model  string
	// Where selects records by scalar field. A list, set or tuple value
	// matches any of its elements; an empty one matches nothing.
	Where map[string]cty.Value
	// Data holds the scalar field values to write.
	Data map[string]cty.Value
	// Select lists the scalar fields to return. Empty means all.
	Select []string
	Nested []Nested
	// Optional lets a nested single-record write find nothing without
	// failing the request.
	Optional bool

	Query  string
	Params []cty.Value
}

// Nested is an operation on the records related through Field.
type Nested struct {
	Field string
	Op    Operation
}

// Values converts native Go values into the cty values operations carry.
func Values(in map[string]any) (map[string]cty.Value, error) {
	out := make(map[string]cty.Value, len(in))
	for k, v := range in {
		cv, err := Value(v)
		if err != nil {
			return nil, fmt.Errorf("value of %q: %w", k, err)
		}
		out[k] = cv
	}
	return out, nil
}

// Value converts a single native Go value. A nil value becomes an untyped
// null.
func Value(v any) (cty.Value, error) {
	if v == nil {
		return cty.NullVal(cty.DynamicPseudoType), nil
	}
	ty, err := gocty.ImpliedType(v)
	if err != nil {
		return cty.NilVal, fmt.Errorf("unable to infer cty.Type: %w", err)
	}
	return gocty.ToCtyValue(v, ty)
}
