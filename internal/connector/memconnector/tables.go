package memconnector

import (
	"math/big"

	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/record"
	"github.com/zclconf/go-cty/cty"
)

type table struct {
	rows []connector.Row
	seq  int64
}

type tables map[string]*table

func (ts tables) clone() tables {
	out := make(tables, len(ts))
	for name, t := range ts {
		rows := make([]connector.Row, len(t.rows))
		copy(rows, t.rows)
		out[name] = &table{rows: rows, seq: t.seq}
	}
	return out
}

func (ts tables) get(m *model.Model) *table {
	t, ok := ts[m.Name]
	if !ok {
		t = &table{}
		ts[m.Name] = t
	}
	return t
}

// nextID advances the model's integer sequence.
func (ts tables) nextID(m *model.Model) int64 {
	t := ts.get(m)
	t.seq++
	return t.seq
}

// generator fills generated columns, drawing integers from next.
func generator(next func() int64) connector.AutogenFunc {
	return func(col *model.DataSourceField) (cty.Value, error) {
		if col.Type == model.TypeInt {
			return cty.NumberIntVal(next()), nil
		}
		return cty.StringVal(newUUID()), nil
	}
}

func (ts tables) create(m *model.Model, args connector.WriteArgs, gen connector.AutogenFunc) (record.SingleRecord, connector.Row, error) {
	row, err := connector.NewRow(Name, m, args, gen)
	if err != nil {
		return record.SingleRecord{}, nil, err
	}
	out, err := ts.insert(m, row)
	return out, row, err
}

// insert stores a fully built row.
func (ts tables) insert(m *model.Model, row connector.Row) (record.SingleRecord, error) {
	t := ts.get(m)
	if err := connector.CheckUnique(Name, m, row, t.rows, -1); err != nil {
		return record.SingleRecord{}, err
	}
	t.bumpSequence(m, row)
	t.rows = append(t.rows, row)

	cols := m.ColumnNames()
	return record.SingleRecord{Record: row.Record(cols), FieldNames: cols}, nil
}

// bumpSequence keeps the autoincrement ahead of explicitly written ids.
func (t *table) bumpSequence(m *model.Model, row connector.Row) {
	for _, col := range m.Columns() {
		if !col.AutoGenerated || col.Type != model.TypeInt {
			continue
		}
		v := row[col.Name]
		if v.IsNull() {
			continue
		}
		if n, acc := v.AsBigFloat().Int64(); acc == big.Exact && n > t.seq {
			t.seq = n
		}
	}
}

func (ts tables) update(m *model.Model, f connector.Filter, args connector.WriteArgs) (record.ManyRecords, error) {
	t := ts.get(m)
	cols := m.ColumnNames()
	out := record.NewManyRecords(cols)

	updated := make([]connector.Row, len(t.rows))
	copy(updated, t.rows)
	for i, row := range t.rows {
		if !row.Matches(f, cols) {
			continue
		}
		next, err := row.Apply(Name, m, args)
		if err != nil {
			return record.ManyRecords{}, err
		}
		if err := connector.CheckUnique(Name, m, next, updated, i); err != nil {
			return record.ManyRecords{}, err
		}
		updated[i] = next
		out.Push(next.Record(cols))
	}
	t.rows = updated
	return out, nil
}

func (ts tables) delete(m *model.Model, f connector.Filter) record.ManyRecords {
	t := ts.get(m)
	cols := m.ColumnNames()
	out := record.NewManyRecords(cols)

	kept := t.rows[:0:0]
	for _, row := range t.rows {
		if row.Matches(f, cols) {
			out.Push(row.Record(cols))
			continue
		}
		kept = append(kept, row)
	}
	t.rows = kept
	return out
}

func (ts tables) find(m *model.Model, f connector.Filter, columns []string) (record.ManyRecords, error) {
	t := ts.get(m)
	all := m.ColumnNames()
	if columns == nil {
		columns = all
	}
	for _, c := range columns {
		if _, ok := m.Column(c); !ok {
			return record.ManyRecords{}, connector.NewError(connector.ErrQueryFailure, Name, &model.FieldNotFoundError{Name: c, Model: m.Name})
		}
	}

	out := record.NewManyRecords(columns)
	for _, row := range t.rows {
		if row.Matches(f, all) {
			out.Push(row.Record(columns))
		}
	}
	return out, nil
}
