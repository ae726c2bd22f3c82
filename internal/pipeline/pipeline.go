// Package pipeline runs one built operation end to end: finalize the graph,
// compile it, interpret the tree on a connection or transaction and
// serialize the bindings.
package pipeline

import (
	"context"
	"fmt"

	"github.com/specialistvlad/querycore/internal/compiler"
	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/ctxlog"
	"github.com/specialistvlad/querycore/internal/expression"
	"github.com/specialistvlad/querycore/internal/graph"
	"github.com/specialistvlad/querycore/internal/interpreter"
	"github.com/specialistvlad/querycore/internal/response"
	"github.com/zclconf/go-cty/cty"
)

// QueryType is what a pipeline executes. The set of implementations is
// closed: *Graph, *Raw.
type QueryType interface {
	// IsWrite reports whether executing the query may modify data.
	IsWrite() bool
	queryType()
}

// Graph is an operation built into a dependency graph.
type Graph struct {
	Graph *graph.QueryGraph
	Plan  response.Plan
	Write bool
}

// Raw is a verbatim backend command.
type Raw struct {
	Query  string
	Params []cty.Value
	Kind   expression.RawKind
}

func (g *Graph) IsWrite() bool { return g.Write }
func (r *Raw) IsWrite() bool   { return r.Kind == expression.RawExecute }

func (*Graph) queryType() {}
func (*Raw) queryType()   {}

// QueryPipeline executes one QueryType on one backend handle.
type QueryPipeline struct {
	db    connector.Queryable
	query QueryType
	opts  []interpreter.Option
}

// New creates a pipeline. The interpreter options apply to the evaluation.
func New(db connector.Queryable, q QueryType, opts ...interpreter.Option) *QueryPipeline {
	return &QueryPipeline{db: db, query: q, opts: opts}
}

// Execute runs the pipeline. It never commits or rolls back db.
func (p *QueryPipeline) Execute(ctx context.Context) (*response.ResponseData, error) {
	logger := ctxlog.FromContext(ctx)

	switch q := p.query.(type) {
	case *Graph:
		if err := q.Graph.Finalize(); err != nil {
			return nil, fmt.Errorf("finalizing query graph: %w", err)
		}
		logger.Debug("Query graph finalized.", "graph", q.Graph.String())

		expr, err := compiler.Translate(q.Graph)
		if err != nil {
			return nil, err
		}
		res, err := p.interpret(ctx, expr)
		if err != nil {
			return nil, err
		}
		return response.Serialize(q.Graph, res, q.Plan)

	case *Raw:
		res, err := p.interpret(ctx, &expression.Raw{Query: q.Query, Params: q.Params, Kind: q.Kind})
		if err != nil {
			return nil, err
		}
		return response.SerializeRaw(res)

	default:
		return nil, fmt.Errorf("unknown query type %T", p.query)
	}
}

func (p *QueryPipeline) interpret(ctx context.Context, expr expression.Expression) (interpreter.Result, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Interpreting expression tree.", "tree", expression.String(expr))

	in := interpreter.New(p.db, p.opts...)
	res, err := in.Interpret(ctx, expr, interpreter.NewEnv(), 0)
	logger.Debug("Interpretation finished.", "trace", in.LogOutput(), "error", err)
	return res, err
}
