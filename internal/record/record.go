package record

import (
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/zclconf/go-cty/cty"
)

// Record is one row: values parallel to a field-name list held by the
// enclosing SingleRecord or ManyRecords. ParentID is set when the record was
// produced by a nested operation and has to be attached to its parent in the
// response.
type Record struct {
	Values   []cty.Value
	ParentID *RecordIdentifier
}

// NewRecord creates a record from values.
func NewRecord(values ...cty.Value) Record {
	return Record{Values: values}
}

// SetParentID attaches the identifier of the record this one belongs to.
func (r *Record) SetParentID(id RecordIdentifier) {
	r.ParentID = &id
}

// FieldValue returns the value stored under name, where fieldNames is the
// column list the values are parallel to.
func (r Record) FieldValue(fieldNames []string, name string) (cty.Value, error) {
	for i, n := range fieldNames {
		if n == name && i < len(r.Values) {
			return r.Values[i], nil
		}
	}
	return cty.NilVal, &model.FieldNotFoundError{Name: name}
}

// Identifier extracts the concrete key of the record for id. Every column id
// expands to must be present in fieldNames.
func (r Record) Identifier(fieldNames []string, id model.ModelIdentifier) (RecordIdentifier, error) {
	cols := id.DataSourceFields()
	pairs := make([]Pair, 0, len(cols))
	for _, c := range cols {
		v, err := r.FieldValue(fieldNames, c.Name)
		if err != nil {
			return RecordIdentifier{}, err
		}
		pairs = append(pairs, Pair{Field: c, Value: v})
	}
	return RecordIdentifier{pairs: pairs}, nil
}

// SingleRecord is a record together with its field names.
type SingleRecord struct {
	Record     Record
	FieldNames []string
}

// ToMany wraps the record into a one-element ManyRecords.
func (s SingleRecord) ToMany() ManyRecords {
	return ManyRecords{Records: []Record{s.Record}, FieldNames: s.FieldNames}
}

func (s SingleRecord) Identifier(id model.ModelIdentifier) (RecordIdentifier, error) {
	return s.Record.Identifier(s.FieldNames, id)
}

func (s SingleRecord) FieldValue(name string) (cty.Value, error) {
	return s.Record.FieldValue(s.FieldNames, name)
}

// ManyRecords is a list of records sharing one field-name ordering.
type ManyRecords struct {
	Records    []Record
	FieldNames []string
}

// NewManyRecords creates an empty list with the given field names.
func NewManyRecords(fieldNames []string) ManyRecords {
	return ManyRecords{FieldNames: fieldNames}
}

func (m ManyRecords) Len() int { return len(m.Records) }
func (m ManyRecords) IsEmpty() bool { return len(m.Records) == 0 }

// Push appends a record.
func (m *ManyRecords) Push(r Record) {
	m.Records = append(m.Records, r)
}

// Identifiers extracts the identifier of every record, in order.
func (m ManyRecords) Identifiers(id model.ModelIdentifier) ([]RecordIdentifier, error) {
	out := make([]RecordIdentifier, 0, len(m.Records))
	for _, r := range m.Records {
		ri, err := r.Identifier(m.FieldNames, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ri)
	}
	return out, nil
}

// Project returns the records restricted to the given columns, in the given
// order. Unknown columns produce a FieldNotFoundError.
func (m ManyRecords) Project(columns []string) (ManyRecords, error) {
	out := ManyRecords{FieldNames: columns, Records: make([]Record, 0, len(m.Records))}
	for _, r := range m.Records {
		values := make([]cty.Value, len(columns))
		for i, c := range columns {
			v, err := r.FieldValue(m.FieldNames, c)
			if err != nil {
				return ManyRecords{}, err
			}
			values[i] = v
		}
		out.Records = append(out.Records, Record{Values: values, ParentID: r.ParentID})
	}
	return out, nil
}
