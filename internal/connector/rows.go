package connector

import (
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/record"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// Row is one stored row keyed by column name. Key-value backends keep rows
// in this shape and share the constraint checks below.
type Row map[string]cty.Value

// AutogenFunc produces the value of a generated column on insert.
type AutogenFunc func(col *model.DataSourceField) (cty.Value, error)

// NewRow builds the row to insert for args. Missing generated columns are
// filled through gen, other missing columns become null. Values are
// converted to the column's type.
func NewRow(name string, m *model.Model, args WriteArgs, gen AutogenFunc) (Row, error) {
	if err := checkColumns(name, m, args); err != nil {
		return nil, err
	}
	row := make(Row, len(args))
	for _, col := range m.Columns() {
		v, ok := args[col.Name]
		if !ok || v.IsNull() && col.AutoGenerated {
			if col.AutoGenerated && gen != nil {
				generated, err := gen(col)
				if err != nil {
					return nil, err
				}
				v = generated
			} else {
				v = col.Type.NullValue()
			}
		}
		cv, err := coerce(name, col, v)
		if err != nil {
			return nil, err
		}
		row[col.Name] = cv
	}
	return row, CheckRequired(name, m, row)
}

// Apply returns a copy of r with args written over it.
func (r Row) Apply(name string, m *model.Model, args WriteArgs) (Row, error) {
	if err := checkColumns(name, m, args); err != nil {
		return nil, err
	}
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	for k, v := range args {
		col, _ := m.Column(k)
		cv, err := coerce(name, col, v)
		if err != nil {
			return nil, err
		}
		out[k] = cv
	}
	return out, CheckRequired(name, m, out)
}

// Values returns the row's values for columns, in order. Absent columns are
// reported as untyped nulls.
func (r Row) Values(columns []string) []cty.Value {
	out := make([]cty.Value, len(columns))
	for i, c := range columns {
		v, ok := r[c]
		if !ok {
			v = cty.NullVal(cty.DynamicPseudoType)
		}
		out[i] = v
	}
	return out
}

// Record converts the row into a record over columns.
func (r Row) Record(columns []string) record.Record {
	return record.NewRecord(r.Values(columns)...)
}

// Matches evaluates f against the row.
func (r Row) Matches(f Filter, columns []string) bool {
	return f.Matches(columns, r.Values(columns))
}

// CheckRequired fails when a required column of m is null in row.
func CheckRequired(name string, m *model.Model, row Row) error {
	for _, col := range m.Columns() {
		if col.IsRequired && row[col.Name].IsNull() {
			return Errorf(ErrNullConstraint, name, "%s.%s must not be null", m.Name, col.Name)
		}
	}
	return nil
}

// CheckUnique fails when candidate collides with any of rows on one of m's
// unique identifiers. The row at index skip is ignored so an update can be
// checked against the table it lives in; pass -1 for inserts.
func CheckUnique(name string, m *model.Model, candidate Row, rows []Row, skip int) error {
	for _, id := range m.UniqueIdentifiers() {
		cols := id.DataSourceFields()
		if len(cols) == 0 || hasNull(candidate, cols) {
			continue
		}
		for i, other := range rows {
			if i == skip {
				continue
			}
			if sameKey(candidate, other, cols) {
				return Errorf(ErrUniqueConstraint, name, "%s%v already exists", m.Name, id.Names())
			}
		}
	}
	return nil
}

func hasNull(row Row, cols []*model.DataSourceField) bool {
	for _, c := range cols {
		if row[c.Name].IsNull() {
			return true
		}
	}
	return false
}

func sameKey(a, b Row, cols []*model.DataSourceField) bool {
	for _, c := range cols {
		if !ValuesEqual(a[c.Name], b[c.Name]) {
			return false
		}
	}
	return true
}

func checkColumns(name string, m *model.Model, args WriteArgs) error {
	for k := range args {
		if _, ok := m.Column(k); !ok {
			return NewError(ErrQueryFailure, name, &model.FieldNotFoundError{Name: k, Model: m.Name})
		}
	}
	return nil
}

func coerce(name string, col *model.DataSourceField, v cty.Value) (cty.Value, error) {
	want := col.Type.CtyType()
	if v.IsNull() {
		return cty.NullVal(want), nil
	}
	cv, err := convert.Convert(v, want)
	if err != nil {
		return cty.NilVal, Errorf(ErrQueryFailure, name, "column %s: %w", col.Name, err)
	}
	return cv, nil
}
