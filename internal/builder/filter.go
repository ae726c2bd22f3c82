package builder

import (
	"fmt"
	"sort"

	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/record"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
)

// filter normalizes a where clause. An empty clause matches everything.
func filter(m *model.Model, where map[string]cty.Value) (connector.Filter, error) {
	if len(where) == 0 {
		return connector.MatchAll(), nil
	}

	names := make([]string, 0, len(where))
	for n := range where {
		names = append(names, n)
	}
	sort.Strings(names)

	combos := [][]record.Pair{nil}
	for _, n := range names {
		f, ok := m.ScalarField(n)
		if !ok {
			return connector.Filter{}, fmt.Errorf("%w: %w", ErrInvalidOperation, &model.FieldNotFoundError{Name: n, Model: m.Name})
		}
		col := f.DataSourceField()
		vals, err := candidates(where[n], col)
		if err != nil {
			return connector.Filter{}, err
		}

		next := make([][]record.Pair, 0, len(combos)*len(vals))
		for _, c := range combos {
			for _, v := range vals {
				pairs := make([]record.Pair, len(c), len(c)+1)
				copy(pairs, c)
				next = append(next, append(pairs, record.Pair{Field: col, Value: v}))
			}
		}
		combos = next
	}

	ids := make([]record.RecordIdentifier, len(combos))
	for i, c := range combos {
		ids[i] = record.NewRecordIdentifier(c...)
	}
	return connector.ByIdentifiers(ids...), nil
}

// uniqueFilter is filter for actions that address a single record: the
// where clause must name exactly the fields of one of the model's
// identifiers.
func uniqueFilter(m *model.Model, where map[string]cty.Value) (connector.Filter, error) {
	names := make([]string, 0, len(where))
	for n := range where {
		names = append(names, n)
	}
	if _, ok := m.IdentifierFor(names); !ok {
		sort.Strings(names)
		return connector.Filter{}, fmt.Errorf("%w: %v does not identify a single %s", ErrInvalidOperation, names, m.Name)
	}
	return filter(m, where)
}

// candidates expands a where value into the values it matches.
func candidates(v cty.Value, col *model.DataSourceField) ([]cty.Value, error) {
	ty := v.Type()
	if v.IsNull() || !(ty.IsListType() || ty.IsSetType() || ty.IsTupleType()) {
		cv, err := coerce(v, col)
		if err != nil {
			return nil, err
		}
		return []cty.Value{cv}, nil
	}

	var out []cty.Value
	for it := v.ElementIterator(); it.Next(); {
		_, el := it.Element()
		cv, err := coerce(el, col)
		if err != nil {
			return nil, err
		}
		out = append(out, cv)
	}
	return out, nil
}

func coerce(v cty.Value, col *model.DataSourceField) (cty.Value, error) {
	cv, err := convert.Convert(v, col.Type.CtyType())
	if err != nil {
		return cty.NilVal, fmt.Errorf("%w: value for %q: %w", ErrInvalidOperation, col.Name, err)
	}
	return cv, nil
}

// args maps scalar field values onto their storage columns.
func args(m *model.Model, data map[string]cty.Value) (connector.WriteArgs, error) {
	out := make(connector.WriteArgs, len(data))
	for n, v := range data {
		f, ok := m.ScalarField(n)
		if !ok {
			return nil, fmt.Errorf("%w: %w", ErrInvalidOperation, &model.FieldNotFoundError{Name: n, Model: m.Name})
		}
		cv, err := coerce(v, f.DataSourceField())
		if err != nil {
			return nil, err
		}
		out[f.DataSourceField().Name] = cv
	}
	return out, nil
}

// createArgs is args plus the static defaults of fields the data leaves out.
func createArgs(m *model.Model, data map[string]cty.Value) (connector.WriteArgs, error) {
	out, err := args(m, data)
	if err != nil {
		return nil, err
	}
	for _, f := range m.ScalarFields() {
		col := f.DataSourceField()
		if _, set := out[col.Name]; set {
			continue
		}
		if def, ok := f.Default(); ok {
			if out[col.Name], err = coerce(def, col); err != nil {
				return nil, err
			}
		}
	}
	return out, nil
}
