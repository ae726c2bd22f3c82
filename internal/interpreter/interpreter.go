package interpreter

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/ctxlog"
	"github.com/specialistvlad/querycore/internal/expression"
	"github.com/specialistvlad/querycore/internal/query"
)

// DefaultMaxDepth bounds expression nesting when no limit is configured.
const DefaultMaxDepth = 64

// Option configures an Interpreter.
type Option func(*Interpreter)

// WithMaxDepth sets the maximum nesting depth.
func WithMaxDepth(n int) Option {
	return func(in *Interpreter) {
		if n > 0 {
			in.maxDepth = n
		}
	}
}

// Interpreter walks expression trees against one backend handle.
type Interpreter struct {
	db       connector.Queryable
	maxDepth int
	trace    []string
}

// New creates an interpreter issuing its calls on db.
func New(db connector.Queryable, opts ...Option) *Interpreter {
	in := &Interpreter{db: db, maxDepth: DefaultMaxDepth}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// LogOutput returns the trace of every evaluated expression, one per line,
// indented by depth.
func (in *Interpreter) LogOutput() string {
	return strings.Join(in.trace, "\n")
}

func (in *Interpreter) logf(depth int, format string, args ...any) {
	in.trace = append(in.trace, strings.Repeat("  ", depth)+fmt.Sprintf(format, args...))
}

// Interpret evaluates expr in env. depth is the nesting level of expr and is
// zero for a tree's root.
func (in *Interpreter) Interpret(ctx context.Context, expr expression.Expression, env *Env, depth int) (Result, error) {
	if depth > in.maxDepth {
		return nil, &DepthExceededError{Max: in.maxDepth}
	}

	switch e := expr.(type) {
	case *expression.Sequence:
		in.logf(depth, "sequence (%d items)", len(e.Items))
		scope := env.Child()
		var last Result = EmptyResult{}
		for _, item := range e.Items {
			r, err := in.Interpret(ctx, item, scope, depth+1)
			if err != nil {
				return nil, err
			}
			last = r
		}
		return SequenceResult{Named: scope.snapshot(), Last: last}, nil

	case *expression.Let:
		in.logf(depth, "let %s", e.Name)
		r, err := in.Interpret(ctx, e.Expr, env, depth+1)
		if err != nil {
			return nil, err
		}
		if err := env.Bind(e.Name, r); err != nil {
			return nil, err
		}
		return r, nil

	case *expression.If:
		if in.holds(env, e.Conditions) {
			in.logf(depth, "if: then")
			return in.Interpret(ctx, e.Then, env, depth+1)
		}
		if e.Else == nil {
			in.logf(depth, "if: skipped")
			return EmptyResult{}, nil
		}
		in.logf(depth, "if: else")
		return in.Interpret(ctx, e.Else, env, depth+1)

	case *expression.Func:
		return in.call(ctx, e, env, depth)

	case *expression.Raw:
		return in.raw(ctx, e, depth)

	case *expression.Get:
		r, ok := env.Get(e.Name)
		if !ok {
			return nil, &UnboundError{Name: e.Name}
		}
		in.logf(depth, "get %s", e.Name)
		return r, nil

	default:
		return nil, fmt.Errorf("unknown expression %T", expr)
	}
}

// holds checks If conditions. A binding is present when the node it names
// ran; skipped nodes are bound to EmptyResult.
func (in *Interpreter) holds(env *Env, conds []expression.Condition) bool {
	for _, c := range conds {
		r, ok := env.Get(c.Binding)
		if !ok {
			return false
		}
		if _, skipped := r.(EmptyResult); skipped {
			return false
		}
		if c.RequireRows && !hasRows(r) {
			return false
		}
	}
	return true
}

func (in *Interpreter) call(ctx context.Context, f *expression.Func, env *Env, depth int) (Result, error) {
	q := f.Query
	parents := make([]query.Result, len(f.Inputs))
	for i, input := range f.Inputs {
		r, ok := env.Get(input.Binding)
		if !ok {
			return nil, &UnboundError{Name: input.Binding}
		}
		qr, ok := r.(QueryResult)
		if !ok {
			return nil, fmt.Errorf("%s: input %s produced no result", f.Node, input.Binding)
		}
		parents[i] = qr.Result

		next, err := input.Transform(qr.Result, q)
		if err != nil {
			return nil, nodeError(f.Node, err)
		}
		q = next
	}

	ctxlog.FromContext(ctx).Debug("Issuing backend call.", "node", f.Node, "query", q.String())
	res, err := query.Execute(ctx, in.db, q)
	if err != nil {
		in.logf(depth, "%s: %s failed: %v", f.Node, q, err)
		return nil, nodeError(f.Node, err)
	}

	for i, input := range f.Inputs {
		if input.Link == nil {
			continue
		}
		if err := input.Link.Attach(parents[i], &res); err != nil {
			return nil, nodeError(f.Node, err)
		}
	}

	in.logf(depth, "%s: %s -> %d row(s)", f.Node, q, res.Count)
	return QueryResult{Result: res}, nil
}

func (in *Interpreter) raw(ctx context.Context, r *expression.Raw, depth int) (Result, error) {
	if r.Kind == expression.RawExecute {
		n, err := in.db.ExecuteRaw(ctx, r.Query, r.Params)
		if err != nil {
			return nil, err
		}
		in.logf(depth, "raw execute -> %d row(s)", n)
		return QueryResult{Result: query.Result{Count: n}}, nil
	}

	rows, err := in.db.QueryRaw(ctx, r.Query, r.Params)
	if err != nil {
		return nil, err
	}
	in.logf(depth, "raw query -> %d row(s)", rows.Len())
	return QueryResult{Result: query.Result{Records: rows, Count: rows.Len()}}, nil
}

// nodeError tags record-not-found errors with the node they occurred at.
func nodeError(node string, err error) error {
	var notFound *query.RecordNotFoundError
	if errors.As(err, &notFound) && notFound.Node == "" {
		notFound.Node = node
	}
	return err
}
