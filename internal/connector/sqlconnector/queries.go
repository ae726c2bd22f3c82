package sqlconnector

import (
	"context"
	"database/sql"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/ctxlog"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/record"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// queries implements connector.Queryable on top of a connection or a
// transaction.
type queries struct {
	db execer
}

func (q queries) exec(ctx context.Context, stmt string, args []any) (sql.Result, error) {
	ctxlog.FromContext(ctx).Debug("Executing statement.", "connector", Name, "sql", stmt, "args", len(args))
	res, err := q.db.ExecContext(ctx, stmt, args...)
	return res, normalize(err)
}

func (q queries) CreateRecord(ctx context.Context, m *model.Model, args connector.WriteArgs) (record.SingleRecord, error) {
	cols, vals, err := writeColumns(m, args)
	if err != nil {
		return record.SingleRecord{}, err
	}

	stmt := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quote(m.Name), quoteAll(cols), placeholders(len(cols)))
	res, err := q.exec(ctx, stmt, vals)
	if err != nil {
		return record.SingleRecord{}, err
	}

	id := record.Placeholder(m.PrimaryIdentifier())
	filled := make([]record.Pair, 0, id.Len())
	for _, p := range id.Pairs() {
		if v, ok := args[p.Field.Name]; ok && !v.IsNull() {
			p.Value = v
		}
		filled = append(filled, p)
	}
	id = record.NewRecordIdentifier(filled...)
	if id.MissesAutogenValue() {
		lastID, err := res.LastInsertId()
		if err != nil {
			return record.SingleRecord{}, normalize(err)
		}
		id.AddAutogenValue(cty.NumberIntVal(lastID))
	}

	rows, err := q.GetManyRecords(ctx, m, connector.ByIdentifiers(id), nil)
	if err != nil {
		return record.SingleRecord{}, err
	}
	if rows.Len() != 1 {
		return record.SingleRecord{}, connector.Errorf(connector.ErrQueryFailure, Name, "inserted %s row %s not found", m.Name, id)
	}
	return record.SingleRecord{Record: rows.Records[0], FieldNames: rows.FieldNames}, nil
}

func (q queries) UpdateRecords(ctx context.Context, m *model.Model, f connector.Filter, args connector.WriteArgs) (record.ManyRecords, error) {
	before, err := q.GetManyRecords(ctx, m, f, nil)
	if err != nil || before.IsEmpty() || len(args) == 0 {
		return before, err
	}

	cols, vals, err := writeColumns(m, args)
	if err != nil {
		return record.ManyRecords{}, err
	}
	sets := make([]string, len(cols))
	for i, c := range cols {
		sets[i] = quote(c) + " = ?"
	}
	where, whereArgs := whereClause(f)
	stmt := fmt.Sprintf("UPDATE %s SET %s%s", quote(m.Name), strings.Join(sets, ", "), where)
	if _, err := q.exec(ctx, stmt, append(vals, whereArgs...)); err != nil {
		return record.ManyRecords{}, err
	}

	ids, err := before.Identifiers(m.PrimaryIdentifier())
	if err != nil {
		return record.ManyRecords{}, err
	}
	for i, id := range ids {
		pairs := id.Pairs()
		for j := range pairs {
			if v, ok := args[pairs[j].Field.Name]; ok {
				pairs[j].Value = v
			}
		}
		ids[i] = record.NewRecordIdentifier(pairs...)
	}
	return q.GetManyRecords(ctx, m, connector.ByIdentifiers(ids...), nil)
}

func (q queries) DeleteRecords(ctx context.Context, m *model.Model, f connector.Filter) (record.ManyRecords, error) {
	before, err := q.GetManyRecords(ctx, m, f, nil)
	if err != nil || before.IsEmpty() {
		return before, err
	}
	where, args := whereClause(f)
	if _, err := q.exec(ctx, fmt.Sprintf("DELETE FROM %s%s", quote(m.Name), where), args); err != nil {
		return record.ManyRecords{}, err
	}
	return before, nil
}

func (q queries) GetManyRecords(ctx context.Context, m *model.Model, f connector.Filter, columns []string) (record.ManyRecords, error) {
	if columns == nil {
		columns = m.ColumnNames()
	}
	types := make([]model.TypeIdentifier, len(columns))
	for i, c := range columns {
		col, ok := m.Column(c)
		if !ok {
			return record.ManyRecords{}, connector.NewError(connector.ErrQueryFailure, Name, &model.FieldNotFoundError{Name: c, Model: m.Name})
		}
		types[i] = col.Type
	}

	out := record.NewManyRecords(columns)
	if f.IsStaticallyEmpty() {
		return out, nil
	}

	where, args := whereClause(f)
	stmt := fmt.Sprintf("SELECT %s FROM %s%s", quoteAll(columns), quote(m.Name), where)
	ctxlog.FromContext(ctx).Debug("Running query.", "connector", Name, "sql", stmt, "args", len(args))

	rows, err := q.db.QueryContext(ctx, stmt, args...)
	if err != nil {
		return record.ManyRecords{}, normalize(err)
	}
	defer rows.Close()

	for rows.Next() {
		raw, err := scanRow(rows, len(columns))
		if err != nil {
			return record.ManyRecords{}, err
		}
		values := make([]cty.Value, len(columns))
		for i, v := range raw {
			cv, err := fromDriver(v, types[i])
			if err != nil {
				return record.ManyRecords{}, connector.Errorf(connector.ErrQueryFailure, Name, "column %s: %w", columns[i], err)
			}
			values[i] = cv
		}
		out.Push(record.NewRecord(values...))
	}
	return out, normalize(rows.Err())
}

func (q queries) QueryRaw(ctx context.Context, query string, params []cty.Value) (record.ManyRecords, error) {
	args, err := driverArgs(params)
	if err != nil {
		return record.ManyRecords{}, err
	}
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return record.ManyRecords{}, normalize(err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return record.ManyRecords{}, normalize(err)
	}
	out := record.NewManyRecords(columns)
	for rows.Next() {
		raw, err := scanRow(rows, len(columns))
		if err != nil {
			return record.ManyRecords{}, err
		}
		values := make([]cty.Value, len(raw))
		for i, v := range raw {
			values[i] = untyped(v)
		}
		out.Push(record.NewRecord(values...))
	}
	return out, normalize(rows.Err())
}

func (q queries) ExecuteRaw(ctx context.Context, query string, params []cty.Value) (int, error) {
	args, err := driverArgs(params)
	if err != nil {
		return 0, err
	}
	res, err := q.exec(ctx, query, args)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	return int(n), normalize(err)
}

func scanRow(rows *sql.Rows, n int) ([]any, error) {
	vals := make([]any, n)
	ptrs := make([]any, n)
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, normalize(err)
	}
	return vals, nil
}

// writeColumns orders args by the model's column order.
func writeColumns(m *model.Model, args connector.WriteArgs) ([]string, []any, error) {
	var cols []string
	var vals []any
	for _, name := range m.ColumnNames() {
		v, ok := args[name]
		if !ok {
			continue
		}
		dv, err := toDriver(v)
		if err != nil {
			return nil, nil, err
		}
		cols = append(cols, name)
		vals = append(vals, dv)
	}
	if len(cols) != len(args) {
		for name := range args {
			if _, ok := m.Column(name); !ok {
				return nil, nil, connector.NewError(connector.ErrQueryFailure, Name, &model.FieldNotFoundError{Name: name, Model: m.Name})
			}
		}
	}
	return cols, vals, nil
}

// whereClause renders f as " WHERE (a = ? AND b = ?) OR (...)". Match-all
// filters render as an empty string.
func whereClause(f connector.Filter) (string, []any) {
	if f.All {
		return "", nil
	}
	var args []any
	groups := make([]string, 0, len(f.Identifiers))
	for _, id := range f.Identifiers {
		conds := make([]string, 0, id.Len())
		for _, p := range id.Pairs() {
			if p.Value.IsNull() {
				conds = append(conds, quote(p.Field.Name)+" IS NULL")
				continue
			}
			dv, _ := toDriver(p.Value)
			conds = append(conds, quote(p.Field.Name)+" = ?")
			args = append(args, dv)
		}
		groups = append(groups, "("+strings.Join(conds, " AND ")+")")
	}
	return " WHERE " + strings.Join(groups, " OR "), args
}

func quote(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func quoteAll(names []string) string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = quote(n)
	}
	return strings.Join(out, ", ")
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func driverArgs(params []cty.Value) ([]any, error) {
	out := make([]any, len(params))
	for i, p := range params {
		v, err := toDriver(p)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func toDriver(v cty.Value) (any, error) {
	if v.IsNull() {
		return nil, nil
	}
	switch v.Type() {
	case cty.String:
		return v.AsString(), nil
	case cty.Bool:
		return v.True(), nil
	case cty.Number:
		bf := v.AsBigFloat()
		if bf.IsInt() {
			if n, acc := bf.Int64(); acc == big.Exact {
				return n, nil
			}
		}
		f, _ := bf.Float64()
		return f, nil
	}
	b, err := ctyjson.Marshal(v, v.Type())
	if err != nil {
		return nil, connector.NewError(connector.ErrQueryFailure, Name, err)
	}
	return string(b), nil
}

func fromDriver(v any, typ model.TypeIdentifier) (cty.Value, error) {
	if v == nil {
		return typ.NullValue(), nil
	}
	switch x := v.(type) {
	case int64:
		if typ.CtyType() == cty.Bool {
			return cty.BoolVal(x != 0), nil
		}
		if typ.CtyType() == cty.String {
			return cty.StringVal(fmt.Sprint(x)), nil
		}
		return cty.NumberIntVal(x), nil
	case float64:
		return cty.NumberFloatVal(x), nil
	case bool:
		return cty.BoolVal(x), nil
	case time.Time:
		return cty.StringVal(x.UTC().Format(time.RFC3339Nano)), nil
	case []byte:
		return fromText(string(x), typ)
	case string:
		return fromText(x, typ)
	}
	return cty.NilVal, fmt.Errorf("unsupported driver value %T", v)
}

func fromText(s string, typ model.TypeIdentifier) (cty.Value, error) {
	switch typ.CtyType() {
	case cty.Number:
		return cty.ParseNumberVal(s)
	case cty.Bool:
		return cty.BoolVal(s == "1" || strings.EqualFold(s, "true")), nil
	}
	return cty.StringVal(s), nil
}

// untyped converts a raw query column without schema knowledge.
func untyped(v any) cty.Value {
	switch x := v.(type) {
	case nil:
		return cty.NullVal(cty.DynamicPseudoType)
	case int64:
		return cty.NumberIntVal(x)
	case float64:
		return cty.NumberFloatVal(x)
	case bool:
		return cty.BoolVal(x)
	case time.Time:
		return cty.StringVal(x.UTC().Format(time.RFC3339Nano))
	case []byte:
		return cty.StringVal(string(x))
	case string:
		return cty.StringVal(x)
	}
	return cty.StringVal(fmt.Sprint(v))
}
