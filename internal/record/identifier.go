package record

import (
	"fmt"
	"strings"

	"github.com/specialistvlad/querycore/internal/model"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Pair is one (storage column, value) component of a RecordIdentifier.
type Pair struct {
	Field *model.DataSourceField
	Value cty.Value
}

// RecordIdentifier is an ordered list of column/value pairs. Its length is
// fixed at construction; individual slots may hold a typed null while the
// backend has not yet generated that value.
type RecordIdentifier struct {
	pairs []Pair
}

// NewRecordIdentifier creates an identifier from pairs.
func NewRecordIdentifier(pairs ...Pair) RecordIdentifier {
	return RecordIdentifier{pairs: pairs}
}

// Placeholder creates an identifier for id whose every slot is a typed null.
// It has exactly one pair per storage column id expands to.
func Placeholder(id model.ModelIdentifier) RecordIdentifier {
	cols := id.DataSourceFields()
	pairs := make([]Pair, len(cols))
	for i, c := range cols {
		pairs[i] = Pair{Field: c, Value: c.Type.NullValue()}
	}
	return RecordIdentifier{pairs: pairs}
}

// Add appends a pair. It is only meant for building an identifier.
func (ri *RecordIdentifier) Add(p Pair) {
	ri.pairs = append(ri.pairs, p)
}

func (ri RecordIdentifier) Pairs() []Pair { return ri.pairs }
func (ri RecordIdentifier) Len() int { return len(ri.pairs) }
func (ri RecordIdentifier) IsEmpty() bool { return len(ri.pairs) == 0 }

// Values returns the values in column order.
func (ri RecordIdentifier) Values() []cty.Value {
	out := make([]cty.Value, len(ri.pairs))
	for i, p := range ri.pairs {
		out[i] = p.Value
	}
	return out
}

// Fields returns the columns in order.
func (ri RecordIdentifier) Fields() []*model.DataSourceField {
	out := make([]*model.DataSourceField, len(ri.pairs))
	for i, p := range ri.pairs {
		out[i] = p.Field
	}
	return out
}

// MissesAutogenValue reports whether any slot is still null.
func (ri RecordIdentifier) MissesAutogenValue() bool {
	for _, p := range ri.pairs {
		if p.Value.IsNull() {
			return true
		}
	}
	return false
}

// AddAutogenValue stores v in the first null slot. It returns false when no
// slot is missing. Only one slot is filled per call; an identifier with two
// null slots keeps the second one null.
func (ri *RecordIdentifier) AddAutogenValue(v cty.Value) bool {
	for i := range ri.pairs {
		if ri.pairs[i].Value.IsNull() {
			ri.pairs[i].Value = v
			return true
		}
	}
	return false
}

// Get returns the value of the named column.
func (ri RecordIdentifier) Get(column string) (cty.Value, bool) {
	for _, p := range ri.pairs {
		if p.Field.Name == column {
			return p.Value, true
		}
	}
	return cty.NilVal, false
}

// Remap returns the same values paired with other columns, positionally. It
// is used to turn a parent's key into a child's foreign key.
func (ri RecordIdentifier) Remap(fields []*model.DataSourceField) (RecordIdentifier, error) {
	if len(fields) != len(ri.pairs) {
		return RecordIdentifier{}, fmt.Errorf("cannot remap identifier of %d columns onto %d columns", len(ri.pairs), len(fields))
	}
	pairs := make([]Pair, len(fields))
	for i, f := range fields {
		pairs[i] = Pair{Field: f, Value: ri.pairs[i].Value}
	}
	return RecordIdentifier{pairs: pairs}, nil
}

// Equal compares column names and values.
func (ri RecordIdentifier) Equal(other RecordIdentifier) bool {
	if len(ri.pairs) != len(other.pairs) {
		return false
	}
	for i := range ri.pairs {
		if ri.pairs[i].Field.Name != other.pairs[i].Field.Name {
			return false
		}
		if !ri.pairs[i].Value.RawEquals(other.pairs[i].Value) {
			return false
		}
	}
	return true
}

// Key renders the identifier as a string usable as a map key. Two
// identifiers have the same key exactly when they are Equal.
func (ri RecordIdentifier) Key() string {
	var sb strings.Builder
	for i, p := range ri.pairs {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(p.Field.Name)
		sb.WriteByte('=')
		sb.WriteString(encodeValue(p.Value))
	}
	return sb.String()
}

func (ri RecordIdentifier) String() string {
	return "(" + ri.Key() + ")"
}

func encodeValue(v cty.Value) string {
	if v.IsNull() {
		return "null"
	}
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return v.GoString()
	}
	return string(b)
}
