package response

import (
	"fmt"

	"github.com/specialistvlad/querycore/internal/graph"
	"github.com/specialistvlad/querycore/internal/interpreter"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/record"
	"github.com/zclconf/go-cty/cty"
)

// ResponseData is the serialized result of one operation.
type ResponseData struct {
	// Model is empty for raw commands.
	Model      string
	FieldNames []string
	Items      []*Item
	Count      int
	// Single marks a result that holds at most one record.
	Single bool
	// CountOnly marks a result that only reports how many rows were
	// affected.
	CountOnly bool
}

// Item is one serialized record.
type Item struct {
	Values   []cty.Value
	ParentID *record.RecordIdentifier
	// Nested holds the related records by relation field name.
	Nested map[string]*ResponseData
}

// Value returns the value of a field of the item.
func (d *ResponseData) Value(item int, field string) (cty.Value, bool) {
	if item >= len(d.Items) {
		return cty.NilVal, false
	}
	for i, n := range d.FieldNames {
		if n == field {
			return d.Items[item].Values[i], true
		}
	}
	return cty.NilVal, false
}

// Plan tells the serializer how to shape a graph result.
type Plan struct {
	// Select lists the scalar fields to output per node. Nodes without an
	// entry output every scalar field of their model.
	Select    map[graph.NodeID][]string
	Single    bool
	CountOnly bool
}

// Serialize builds the response tree of an evaluated graph: the result
// node's records with the records of every nested node placed under the
// relation field they were nested by.
func Serialize(g *graph.QueryGraph, res interpreter.Result, plan Plan) (*ResponseData, error) {
	root, ok := g.ResultNode()
	if !ok {
		return nil, graph.ErrNoResultNode
	}
	seq, ok := res.(interpreter.SequenceResult)
	if !ok {
		return nil, fmt.Errorf("graph result must be a sequence, got %T", res)
	}

	node, _ := g.Node(root)
	s := &serializer{g: g, named: seq.Named, plan: plan}
	data, err := s.build(root, node.Query.Model())
	if err != nil {
		return nil, err
	}
	data.Single = plan.Single
	if plan.CountOnly {
		data.CountOnly = true
		data.FieldNames = nil
		data.Items = nil
	}
	return data, nil
}

// SerializeRaw wraps the result of a raw command.
func SerializeRaw(res interpreter.Result) (*ResponseData, error) {
	qr, ok := res.(interpreter.QueryResult)
	if !ok {
		return nil, fmt.Errorf("raw result must be a query result, got %T", res)
	}
	data := &ResponseData{FieldNames: qr.Records.FieldNames, Count: qr.Count}
	if len(qr.Records.FieldNames) == 0 {
		data.CountOnly = true
	}
	for _, rec := range qr.Records.Records {
		data.Items = append(data.Items, &Item{Values: rec.Values, ParentID: rec.ParentID})
	}
	return data, nil
}

type serializer struct {
	g     *graph.QueryGraph
	named map[string]interpreter.Result
	plan  Plan
}

func (s *serializer) build(id graph.NodeID, m *model.Model) (*ResponseData, error) {
	data := &ResponseData{Model: m.Name}

	fields, err := s.fields(id, m)
	if err != nil {
		return nil, err
	}
	for _, f := range fields {
		data.FieldNames = append(data.FieldNames, f.Name())
	}

	qr, ok := s.named[id.String()].(interpreter.QueryResult)
	if !ok {
		// Skipped nodes serialize as empty.
		return data, nil
	}
	data.Count = qr.Count

	rows := qr.Records
	for _, rec := range rows.Records {
		item := &Item{Values: make([]cty.Value, len(fields)), ParentID: rec.ParentID}
		for i, f := range fields {
			v, err := rec.FieldValue(rows.FieldNames, f.DataSourceField().Name)
			if err != nil {
				return nil, err
			}
			item.Values[i] = v
		}
		data.Items = append(data.Items, item)
	}

	for _, n := range s.g.Nestings() {
		if n.Parent != id {
			continue
		}
		if err := s.nest(data, rows, n); err != nil {
			return nil, err
		}
	}
	return data, nil
}

func (s *serializer) fields(id graph.NodeID, m *model.Model) ([]*model.ScalarField, error) {
	names, ok := s.plan.Select[id]
	if !ok || len(names) == 0 {
		return m.ScalarFields(), nil
	}
	out := make([]*model.ScalarField, len(names))
	for i, n := range names {
		f, ok := m.ScalarField(n)
		if !ok {
			return nil, &model.FieldNotFoundError{Name: n, Model: m.Name}
		}
		out[i] = f
	}
	return out, nil
}

// nest distributes the child node's records over the parent items. When
// the relation is inlined on the parent, children match by the values the
// parent's foreign key references. Otherwise they match by the parent
// identifier attached during evaluation.
func (s *serializer) nest(parent *ResponseData, parentRows record.ManyRecords, n graph.Nesting) error {
	rel := n.Field
	child, err := s.build(n.Child, rel.RelatedModel())
	if err != nil {
		return err
	}
	childRows := record.ManyRecords{}
	if qr, ok := s.named[n.Child.String()].(interpreter.QueryResult); ok {
		childRows = qr.Records
	}

	var parentKeys, childKeys []string
	if rel.IsInlined() {
		refs := referencedColumns(rel)
		parentKeys, err = rowKeys(parentRows, columnNames(rel.DataSourceFields()), refs)
		if err != nil {
			return err
		}
		childKeys, err = rowKeys(childRows, columnNames(refs), refs)
		if err != nil {
			return err
		}
	} else {
		pk := rel.Model().PrimaryIdentifier()
		for _, rec := range parentRows.Records {
			id, err := rec.Identifier(parentRows.FieldNames, pk)
			if err != nil {
				return err
			}
			parentKeys = append(parentKeys, id.Key())
		}
		for _, rec := range childRows.Records {
			key := ""
			if rec.ParentID != nil {
				key = rec.ParentID.Key()
			}
			childKeys = append(childKeys, key)
		}
	}

	for i, item := range parent.Items {
		sub := &ResponseData{
			Model:      child.Model,
			FieldNames: child.FieldNames,
			Single:     !rel.IsList(),
		}
		if parentKeys[i] != "" {
			for j, key := range childKeys {
				if key == parentKeys[i] {
					sub.Items = append(sub.Items, child.Items[j])
				}
			}
		}
		sub.Count = len(sub.Items)
		if item.Nested == nil {
			item.Nested = make(map[string]*ResponseData)
		}
		item.Nested[rel.Name()] = sub
	}
	return nil
}

// rowKeys computes a match key per row from the given columns, labelled
// with fields so that both sides of a relation produce comparable keys. Rows
// with a null in any column get an empty key.
func rowKeys(rows record.ManyRecords, columns []string, fields []*model.DataSourceField) ([]string, error) {
	keys := make([]string, len(rows.Records))
	for i, rec := range rows.Records {
		id := record.NewRecordIdentifier()
		null := false
		for j, c := range columns {
			v, err := rec.FieldValue(rows.FieldNames, c)
			if err != nil {
				return nil, err
			}
			if v.IsNull() {
				null = true
				break
			}
			id.Add(record.Pair{Field: fields[j], Value: v})
		}
		if !null {
			keys[i] = id.Key()
		}
	}
	return keys, nil
}

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
