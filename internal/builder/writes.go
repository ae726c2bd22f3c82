package builder

import (
	"fmt"

	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/graph"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/operation"
	"github.com/specialistvlad/querycore/internal/query"
)

func (b *builder) create(m *model.Model, op operation.Operation) (graph.NodeID, error) {
	a, err := createArgs(m, op.Data)
	if err != nil {
		return 0, err
	}
	id := b.g.CreateNode(&query.CreateRecord{M: m, Args: a})
	if err := b.selectFields(id, m, op.Select); err != nil {
		return 0, err
	}

	for _, n := range op.Nested {
		switch {
		case n.Op.Action == operation.CreateOne:
			err = b.nestedCreate(id, m, n, true, false)
		case n.Op.Action.IsRead() && !n.Op.Action.IsRaw():
			err = b.nestedRead(id, m, n)
		default:
			err = fmt.Errorf("%w: %s cannot be nested under a create", ErrInvalidOperation, n.Op.Action)
		}
		if err != nil {
			return 0, err
		}
	}
	return id, nil
}

// nestedCreate creates a related record. Whichever side holds the foreign
// key is created second and receives the other side's key. An optional
// parent that finds nothing skips the create.
func (b *builder) nestedCreate(parent graph.NodeID, pm *model.Model, n operation.Nested, parentIsCreate, optional bool) error {
	rel, err := b.relation(pm, n.Field)
	if err != nil {
		return err
	}
	child, err := b.create(rel.RelatedModel(), n.Op)
	if err != nil {
		return err
	}

	if rel.IsInlined() {
		if !parentIsCreate {
			return fmt.Errorf("%w: cannot create %s.%s for an existing %s",
				ErrInvalidOperation, pm.Name, rel.Name(), pm.Name)
		}
		err = b.g.AddDataEdge(child, parent, graph.DataEdge{Transform: query.InjectParentIdentifier(rel)})
	} else {
		opp, oerr := childSide(rel)
		if oerr != nil {
			return oerr
		}
		err = b.g.AddDataEdge(parent, child, graph.DataEdge{
			Transform: query.InjectParentIdentifier(opp),
			Link:      query.LinkByRelation(opp),
			Optional:  optional,
		})
	}
	if err != nil {
		return err
	}
	return b.g.Nest(child, parent, rel)
}

func (b *builder) update(m *model.Model, op operation.Operation, expect query.Expectation) (graph.NodeID, error) {
	f, err := b.filterFor(m, op)
	if err != nil {
		return 0, err
	}
	a, err := args(m, op.Data)
	if err != nil {
		return 0, err
	}
	id := b.g.CreateNode(&query.UpdateRecords{M: m, Filter: f, Args: a, Expect: expect})
	if err := b.selectFields(id, m, op.Select); err != nil {
		return 0, err
	}

	many := isMany(op.Action)
	optional := many || expect == query.ExpectOptional
	for _, n := range op.Nested {
		switch act := n.Op.Action; {
		case act == operation.CreateOne && many:
			// The created record could only be attached to one of the
			// updated records.
			err = fmt.Errorf("%w: %s cannot be nested under %s", ErrInvalidOperation, act, op.Action)
		case act == operation.CreateOne:
			err = b.nestedCreate(id, m, n, false, optional)
		case act.IsRead() && !act.IsRaw():
			err = b.nestedRead(id, m, n)
		case act.IsRaw():
			err = fmt.Errorf("%w: %s cannot be nested", ErrInvalidOperation, act)
		default:
			_, err = b.nestedWrite(id, m, n, optional)
		}
		if err != nil {
			return 0, err
		}
	}
	return id, nil
}

// delete removes the addressed records. Nested writes need the records
// before they are gone: they run against a read of the records, and the
// delete itself waits for all of them behind a barrier and is restricted to
// what the read found.
func (b *builder) delete(m *model.Model, op operation.Operation, expect query.Expectation) (graph.NodeID, error) {
	f, err := b.filterFor(m, op)
	if err != nil {
		return 0, err
	}
	if len(op.Nested) == 0 || f.IsStaticallyEmpty() {
		id := b.g.CreateNode(&query.DeleteRecords{M: m, Filter: f, Expect: expect})
		return id, b.selectFields(id, m, op.Select)
	}

	optional := isMany(op.Action) || expect == query.ExpectOptional
	read := b.g.CreateNode(&query.FindRecords{M: m, Filter: f, Expect: expect})
	del := b.g.CreateNode(&query.DeleteRecords{M: m, Filter: connector.MatchAll(), Expect: expect})
	if err := b.g.AddDataEdge(read, del, graph.DataEdge{Transform: query.FilterByIdentifiers(), Optional: optional}); err != nil {
		return 0, err
	}
	if err := b.selectFields(del, m, op.Select); err != nil {
		return 0, err
	}

	join := b.g.CreateBarrier("nested writes of " + m.Name)
	for _, n := range op.Nested {
		a := n.Op.Action
		if a.IsRead() || a == operation.CreateOne {
			return 0, fmt.Errorf("%w: %s cannot be nested under a delete", ErrInvalidOperation, a)
		}
		child, err := b.nestedWrite(read, m, n, optional)
		if err != nil {
			return 0, err
		}
		if err := b.g.AddOrderingEdge(child, join); err != nil {
			return 0, err
		}
	}
	return del, b.g.AddOrderingEdge(join, del)
}

// nestedWrite updates or deletes the records related to the parent's
// records. Under a multi-record or optional parent the edge is optional, so
// an empty parent skips the write.
func (b *builder) nestedWrite(parent graph.NodeID, pm *model.Model, n operation.Nested, optional bool) (graph.NodeID, error) {
	rel, err := b.relation(pm, n.Field)
	if err != nil {
		return 0, err
	}
	cm := rel.RelatedModel()

	f, err := filter(cm, n.Op.Where)
	if err != nil {
		return 0, err
	}

	var q query.Query
	switch n.Op.Action {
	case operation.UpdateOne, operation.UpdateMany:
		a, err := args(cm, n.Op.Data)
		if err != nil {
			return 0, err
		}
		q = &query.UpdateRecords{M: cm, Filter: f, Args: a, Expect: expectFor(n.Op)}
	case operation.DeleteOne, operation.DeleteMany:
		if len(n.Op.Nested) > 0 {
			return 0, fmt.Errorf("%w: operations nested under a nested delete", ErrInvalidOperation)
		}
		q = &query.DeleteRecords{M: cm, Filter: f, Expect: expectFor(n.Op)}
	default:
		return 0, fmt.Errorf("%w: %s cannot be nested under a write", ErrInvalidOperation, n.Op.Action)
	}
	child := b.g.CreateNode(q)

	edge := graph.DataEdge{Optional: optional}
	if rel.IsInlined() {
		edge.Transform = query.FilterByReferencedValues(rel)
	} else {
		opp, err := childSide(rel)
		if err != nil {
			return 0, err
		}
		edge.Transform = query.FilterByParentLink(opp)
	}
	if err := b.g.AddDataEdge(parent, child, edge); err != nil {
		return 0, err
	}

	for _, nn := range n.Op.Nested {
		a := nn.Op.Action
		if a.IsRead() || a == operation.CreateOne {
			return 0, fmt.Errorf("%w: %s cannot be nested under a nested write", ErrInvalidOperation, a)
		}
		if _, err := b.nestedWrite(child, cm, nn, true); err != nil {
			return 0, err
		}
	}
	return child, nil
}
