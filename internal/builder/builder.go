package builder

import (
	"context"
	"fmt"

	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/ctxlog"
	"github.com/specialistvlad/querycore/internal/expression"
	"github.com/specialistvlad/querycore/internal/graph"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/operation"
	"github.com/specialistvlad/querycore/internal/pipeline"
	"github.com/specialistvlad/querycore/internal/query"
	"github.com/specialistvlad/querycore/internal/response"
)

type builder struct {
	schema  *model.Schema
	g       *graph.QueryGraph
	selects map[graph.NodeID][]string
}

// Build turns op into an executable query type.
func Build(ctx context.Context, op operation.Operation, schema *model.Schema) (pipeline.QueryType, error) {
	logger := ctxlog.FromContext(ctx).With("action", op.Action.String(), "model", op.Model)

	switch op.Action {
	case operation.QueryRaw:
		return &pipeline.Raw{Query: op.Query, Params: op.Params, Kind: expression.RawQuery}, nil
	case operation.ExecuteRaw:
		return &pipeline.Raw{Query: op.Query, Params: op.Params, Kind: expression.RawExecute}, nil
	}

	m, err := schema.Model(op.Model)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOperation, err)
	}

	b := &builder{schema: schema, g: graph.New(), selects: make(map[graph.NodeID][]string)}
	root, err := b.root(m, op)
	if err != nil {
		return nil, err
	}
	if err := b.g.SetResultNode(root); err != nil {
		return nil, err
	}
	logger.Debug("Operation built into query graph.", "nodes", b.g.Len())

	return &pipeline.Graph{
		Graph: b.g,
		Plan: response.Plan{
			Select:    b.selects,
			Single:    isSingle(op.Action),
			CountOnly: op.Action == operation.UpdateMany || op.Action == operation.DeleteMany,
		},
		Write: !op.Action.IsRead(),
	}, nil
}

func isSingle(a operation.Action) bool {
	switch a {
	case operation.FindUnique, operation.CreateOne, operation.UpdateOne, operation.DeleteOne:
		return true
	default:
		return false
	}
}

func isMany(a operation.Action) bool {
	return a == operation.FindMany || a == operation.UpdateMany || a == operation.DeleteMany
}

func (b *builder) root(m *model.Model, op operation.Operation) (graph.NodeID, error) {
	switch op.Action {
	case operation.FindUnique, operation.FindMany:
		return b.read(m, op)
	case operation.CreateOne:
		return b.create(m, op)
	case operation.UpdateOne, operation.UpdateMany:
		return b.update(m, op, expectFor(op))
	case operation.DeleteOne, operation.DeleteMany:
		return b.delete(m, op, expectFor(op))
	default:
		return 0, fmt.Errorf("%w: unsupported action %s", ErrInvalidOperation, op.Action)
	}
}

// expectFor tells how many records a write must affect. Single-record
// writes must find their record unless marked optional.
func expectFor(op operation.Operation) query.Expectation {
	if isMany(op.Action) {
		return query.ExpectAny
	}
	if op.Optional {
		return query.ExpectOptional
	}
	return query.ExpectOne
}

func (b *builder) filterFor(m *model.Model, op operation.Operation) (connector.Filter, error) {
	if isMany(op.Action) {
		return filter(m, op.Where)
	}
	return uniqueFilter(m, op.Where)
}

func (b *builder) selectFields(id graph.NodeID, m *model.Model, names []string) error {
	for _, n := range names {
		if _, ok := m.ScalarField(n); !ok {
			return fmt.Errorf("%w: %w", ErrInvalidOperation, &model.FieldNotFoundError{Name: n, Model: m.Name})
		}
	}
	if len(names) > 0 {
		b.selects[id] = names
	}
	return nil
}

func (b *builder) relation(m *model.Model, name string) (*model.RelationField, error) {
	rel, ok := m.RelationField(name)
	if !ok {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOperation, &model.FieldNotFoundError{Name: name, Model: m.Name})
	}
	return rel, nil
}

// childSide returns the relation as seen from the related model. It must be
// inlined there when rel is not inlined on its own model.
func childSide(rel *model.RelationField) (*model.RelationField, error) {
	opp, ok := rel.Opposite()
	if !ok || !opp.IsInlined() {
		return nil, fmt.Errorf("%w: relation %s.%s has no foreign key on either side",
			ErrInvalidOperation, rel.Model().Name, rel.Name())
	}
	return opp, nil
}
