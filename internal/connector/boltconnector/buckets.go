package boltconnector

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/record"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
	bolt "go.etcd.io/bbolt"
)

type storedRow struct {
	key []byte
	row connector.Row
}

func rowType(m *model.Model) cty.Type {
	attrs := make(map[string]cty.Type)
	for _, col := range m.Columns() {
		attrs[col.Name] = col.Type.CtyType()
	}
	return cty.Object(attrs)
}

func encodeRow(m *model.Model, row connector.Row) ([]byte, error) {
	typ := rowType(m)
	vals := make(map[string]cty.Value, len(typ.AttributeTypes()))
	for name, at := range typ.AttributeTypes() {
		v, ok := row[name]
		if !ok || v.IsNull() {
			v = cty.NullVal(at)
		}
		vals[name] = v
	}
	return ctyjson.Marshal(cty.ObjectVal(vals), typ)
}

func decodeRow(m *model.Model, data []byte) (connector.Row, error) {
	v, err := ctyjson.Unmarshal(data, rowType(m))
	if err != nil {
		return nil, fmt.Errorf("decode %s row: %w", m.Name, err)
	}
	row := make(connector.Row)
	for name, av := range v.AsValueMap() {
		row[name] = av
	}
	return row, nil
}

func rowKey(seq uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return key
}

// load returns every row of m in insertion order. The bucket is nil when the
// model has never been written.
func load(btx *bolt.Tx, m *model.Model) ([]storedRow, error) {
	b := btx.Bucket([]byte(m.Name))
	if b == nil {
		return nil, nil
	}
	var out []storedRow
	err := b.ForEach(func(k, v []byte) error {
		row, err := decodeRow(m, v)
		if err != nil {
			return err
		}
		out = append(out, storedRow{key: append([]byte(nil), k...), row: row})
		return nil
	})
	return out, err
}

func rowsOf(stored []storedRow) []connector.Row {
	out := make([]connector.Row, len(stored))
	for i, s := range stored {
		out[i] = s.row
	}
	return out
}

func create(btx *bolt.Tx, m *model.Model, args connector.WriteArgs) (record.SingleRecord, error) {
	b, err := btx.CreateBucketIfNotExists([]byte(m.Name))
	if err != nil {
		return record.SingleRecord{}, err
	}
	seq, err := b.NextSequence()
	if err != nil {
		return record.SingleRecord{}, err
	}

	row, err := connector.NewRow(Name, m, args, func(col *model.DataSourceField) (cty.Value, error) {
		if col.Type == model.TypeInt {
			return cty.NumberUIntVal(seq), nil
		}
		return cty.StringVal(uuid.NewString()), nil
	})
	if err != nil {
		return record.SingleRecord{}, err
	}

	existing, err := load(btx, m)
	if err != nil {
		return record.SingleRecord{}, err
	}
	if err := connector.CheckUnique(Name, m, row, rowsOf(existing), -1); err != nil {
		return record.SingleRecord{}, err
	}

	data, err := encodeRow(m, row)
	if err != nil {
		return record.SingleRecord{}, err
	}
	if err := b.Put(rowKey(seq), data); err != nil {
		return record.SingleRecord{}, err
	}

	cols := m.ColumnNames()
	return record.SingleRecord{Record: row.Record(cols), FieldNames: cols}, nil
}

func update(btx *bolt.Tx, m *model.Model, f connector.Filter, args connector.WriteArgs) (record.ManyRecords, error) {
	cols := m.ColumnNames()
	out := record.NewManyRecords(cols)

	stored, err := load(btx, m)
	if err != nil || len(stored) == 0 {
		return out, err
	}
	rows := rowsOf(stored)
	b := btx.Bucket([]byte(m.Name))

	for i, s := range stored {
		if !s.row.Matches(f, cols) {
			continue
		}
		next, err := s.row.Apply(Name, m, args)
		if err != nil {
			return record.ManyRecords{}, err
		}
		if err := connector.CheckUnique(Name, m, next, rows, i); err != nil {
			return record.ManyRecords{}, err
		}
		rows[i] = next

		data, err := encodeRow(m, next)
		if err != nil {
			return record.ManyRecords{}, err
		}
		if err := b.Put(s.key, data); err != nil {
			return record.ManyRecords{}, err
		}
		out.Push(next.Record(cols))
	}
	return out, nil
}

func remove(btx *bolt.Tx, m *model.Model, f connector.Filter) (record.ManyRecords, error) {
	cols := m.ColumnNames()
	out := record.NewManyRecords(cols)

	stored, err := load(btx, m)
	if err != nil || len(stored) == 0 {
		return out, err
	}
	b := btx.Bucket([]byte(m.Name))
	for _, s := range stored {
		if !s.row.Matches(f, cols) {
			continue
		}
		if err := b.Delete(s.key); err != nil {
			return record.ManyRecords{}, err
		}
		out.Push(s.row.Record(cols))
	}
	return out, nil
}

func find(btx *bolt.Tx, m *model.Model, f connector.Filter, columns []string) (record.ManyRecords, error) {
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
	if f.IsStaticallyEmpty() {
		return out, nil
	}
	stored, err := load(btx, m)
	if err != nil {
		return record.ManyRecords{}, err
	}
	for _, s := range stored {
		if s.row.Matches(f, all) {
			out.Push(s.row.Record(columns))
		}
	}
	return out, nil
}
