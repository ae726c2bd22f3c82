package query

import (
	"fmt"

	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/record"
)

// Transformer derives the query to run from a template and the result of a
// node it depends on. Transformers never modify the template.
type Transformer func(parent Result, q Query) (Query, error)

func columnNames(cols []*model.DataSourceField) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

func referencedColumns(rel *model.RelationField) []*model.DataSourceField {
	refs := rel.References()
	cols := make([]*model.DataSourceField, len(refs))
	for i, r := range refs {
		cols[i] = r.DataSourceField()
	}
	return cols
}

// InjectParentIdentifier copies the values rel references from the first
// parent row into the foreign key columns of a create or update. rel is
// inlined on the query's model and points at the parent's model.
func InjectParentIdentifier(rel *model.RelationField) Transformer {
	return func(parent Result, q Query) (Query, error) {
		if parent.IsEmpty() {
			return nil, &RecordNotFoundError{
				Model:  rel.RelatedName,
				Reason: fmt.Sprintf("no record to connect to %s.%s", q.Model().Name, rel.Name()),
			}
		}
		ids, err := parent.Columns(columnNames(referencedColumns(rel)), rel.DataSourceFields())
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			return nil, &RecordNotFoundError{
				Model:  rel.RelatedName,
				Reason: fmt.Sprintf("referenced key of %s.%s is null", q.Model().Name, rel.Name()),
			}
		}

		var args connector.WriteArgs
		out := q.Clone()
		switch c := out.(type) {
		case *CreateRecord:
			args = c.Args
		case *UpdateRecords:
			args = c.Args
		default:
			return nil, fmt.Errorf("cannot inject a foreign key into %q", q)
		}
		for _, p := range ids[0].Pairs() {
			args[p.Field.Name] = p.Value
		}
		return out, nil
	}
}

// FilterByParentLink restricts the query to rows whose foreign key points at
// one of the parent rows. rel is inlined on the query's model.
func FilterByParentLink(rel *model.RelationField) Transformer {
	return func(parent Result, q Query) (Query, error) {
		ids, err := parent.Columns(columnNames(referencedColumns(rel)), rel.DataSourceFields())
		if err != nil {
			return nil, err
		}
		return withFilter(q, connector.ByIdentifiers(ids...))
	}
}

// FilterByReferencedValues restricts the query to the rows the parent rows
// point at. rel is inlined on the parent's model and points at the query's
// model.
func FilterByReferencedValues(rel *model.RelationField) Transformer {
	return func(parent Result, q Query) (Query, error) {
		ids, err := parent.Columns(columnNames(rel.DataSourceFields()), referencedColumns(rel))
		if err != nil {
			return nil, err
		}
		return withFilter(q, connector.ByIdentifiers(ids...))
	}
}

// FilterByIdentifiers restricts the query to the parent rows themselves,
// matched by primary key. Parent and query share a model.
func FilterByIdentifiers() Transformer {
	return func(parent Result, q Query) (Query, error) {
		if parent.Model != nil && parent.Model != q.Model() {
			return nil, fmt.Errorf("cannot filter %s by identifiers of %s", q.Model().Name, parent.Model.Name)
		}
		ids, err := parent.Identifiers()
		if err != nil {
			return nil, err
		}
		return withFilter(q, connector.ByIdentifiers(ids...))
	}
}

func withFilter(q Query, f connector.Filter) (Query, error) {
	out := q.Clone()
	switch c := out.(type) {
	case *FindRecords:
		c.Filter = c.Filter.And(f)
	case *UpdateRecords:
		c.Filter = c.Filter.And(f)
	case *DeleteRecords:
		c.Filter = c.Filter.And(f)
	default:
		return nil, fmt.Errorf("cannot filter %q", q)
	}
	return out, nil
}

// ParentLink pairs child columns with the parent columns they hold the
// values of. It is used to tag produced child records with the identifier
// of the parent they belong to.
type ParentLink struct {
	Columns       []string
	ParentColumns []string
}

// LinkByRelation links through rel, which is inlined on the child model.
func LinkByRelation(rel *model.RelationField) *ParentLink {
	return &ParentLink{
		Columns:       columnNames(rel.DataSourceFields()),
		ParentColumns: columnNames(referencedColumns(rel)),
	}
}

// Attach sets the ParentID of every child record whose link columns match a
// parent row. Unmatched children keep their ParentID.
func (l *ParentLink) Attach(parent Result, child *Result) error {
	keyFields := make([]*model.DataSourceField, len(l.Columns))
	for i, c := range l.Columns {
		keyFields[i] = &model.DataSourceField{Name: c}
	}

	parents := make(map[string]record.RecordIdentifier, parent.Records.Len())
	for _, rec := range parent.Records.Records {
		key, err := linkKey(rec, parent.Records.FieldNames, l.ParentColumns, keyFields)
		if err != nil {
			return err
		}
		id, err := rec.Identifier(parent.Records.FieldNames, parent.Model.PrimaryIdentifier())
		if err != nil {
			return err
		}
		parents[key] = id
	}

	for i := range child.Records.Records {
		key, err := linkKey(child.Records.Records[i], child.Records.FieldNames, l.Columns, keyFields)
		if err != nil {
			return err
		}
		if id, ok := parents[key]; ok {
			child.Records.Records[i].SetParentID(id)
		}
	}
	return nil
}

func linkKey(rec record.Record, fieldNames, columns []string, keyFields []*model.DataSourceField) (string, error) {
	pairs := make([]record.Pair, len(columns))
	for i, c := range columns {
		v, err := rec.FieldValue(fieldNames, c)
		if err != nil {
			return "", err
		}
		pairs[i] = record.Pair{Field: keyFields[i], Value: v}
	}
	return record.NewRecordIdentifier(pairs...).Key(), nil
}
