package query

import (
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/record"
)

// Result is what one query produced: the affected or read rows and their
// count. Raw commands carry a count and possibly no model.
type Result struct {
	Model   *model.Model
	Records record.ManyRecords
	Count   int
}

// IsEmpty reports whether no row was produced.
func (r Result) IsEmpty() bool {
	return r.Records.IsEmpty()
}

// Identifiers extracts the primary identifiers of the produced rows.
func (r Result) Identifiers() ([]record.RecordIdentifier, error) {
	return r.Records.Identifiers(r.Model.PrimaryIdentifier())
}

// Column collects the values of one column across every row, skipping nulls
// and duplicates, as single-column identifiers over col.
func (r Result) Column(name string, col *model.DataSourceField) ([]record.RecordIdentifier, error) {
	return r.Columns([]string{name}, []*model.DataSourceField{col})
}

// Columns collects, for every row, the values of names as an identifier over
// cols (positionally). Rows with a null in any of the columns are skipped,
// as are duplicates.
func (r Result) Columns(names []string, cols []*model.DataSourceField) ([]record.RecordIdentifier, error) {
	seen := make(map[string]struct{})
	var out []record.RecordIdentifier
	for _, rec := range r.Records.Records {
		pairs := make([]record.Pair, len(names))
		skip := false
		for i, n := range names {
			v, err := rec.FieldValue(r.Records.FieldNames, n)
			if err != nil {
				return nil, err
			}
			if v.IsNull() {
				skip = true
				break
			}
			pairs[i] = record.Pair{Field: cols[i], Value: v}
		}
		if skip {
			continue
		}
		id := record.NewRecordIdentifier(pairs...)
		if _, dup := seen[id.Key()]; dup {
			continue
		}
		seen[id.Key()] = struct{}{}
		out = append(out, id)
	}
	return out, nil
}
