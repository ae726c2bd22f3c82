package builder

import (
	"fmt"

	"github.com/specialistvlad/querycore/internal/graph"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/operation"
	"github.com/specialistvlad/querycore/internal/query"
)

func (b *builder) read(m *model.Model, op operation.Operation) (graph.NodeID, error) {
	f, err := b.filterFor(m, op)
	if err != nil {
		return 0, err
	}
	expect := query.ExpectAny
	if op.Action == operation.FindUnique {
		expect = query.ExpectOptional
	}

	id := b.g.CreateNode(&query.FindRecords{M: m, Filter: f, Expect: expect})
	if err := b.selectFields(id, m, op.Select); err != nil {
		return 0, err
	}
	for _, n := range op.Nested {
		if err := b.nestedRead(id, m, n); err != nil {
			return 0, err
		}
	}
	return id, nil
}

// nestedRead reads the records related to the parent's records. The edge
// is optional: a parent without records leaves nothing to relate to.
func (b *builder) nestedRead(parent graph.NodeID, pm *model.Model, n operation.Nested) error {
	if !n.Op.Action.IsRead() || n.Op.Action.IsRaw() {
		return fmt.Errorf("%w: %s cannot be nested under a read", ErrInvalidOperation, n.Op.Action)
	}
	rel, err := b.relation(pm, n.Field)
	if err != nil {
		return err
	}
	cm := rel.RelatedModel()

	f, err := filter(cm, n.Op.Where)
	if err != nil {
		return err
	}
	child := b.g.CreateNode(&query.FindRecords{M: cm, Filter: f, Expect: query.ExpectAny})

	edge := graph.DataEdge{Optional: true}
	if rel.IsInlined() {
		edge.Transform = query.FilterByReferencedValues(rel)
	} else {
		opp, err := childSide(rel)
		if err != nil {
			return err
		}
		edge.Transform = query.FilterByParentLink(opp)
		edge.Link = query.LinkByRelation(opp)
	}
	if err := b.g.AddDataEdge(parent, child, edge); err != nil {
		return err
	}
	if err := b.g.Nest(child, parent, rel); err != nil {
		return err
	}
	if err := b.selectFields(child, cm, n.Op.Select); err != nil {
		return err
	}

	for _, nn := range n.Op.Nested {
		if err := b.nestedRead(child, cm, nn); err != nil {
			return err
		}
	}
	return nil
}
