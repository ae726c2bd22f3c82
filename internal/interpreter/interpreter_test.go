package interpreter_test

import (
	"context"
	"testing"

	"github.com/specialistvlad/querycore/internal/compiler"
	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/connector/memconnector"
	"github.com/specialistvlad/querycore/internal/expression"
	"github.com/specialistvlad/querycore/internal/graph"
	"github.com/specialistvlad/querycore/internal/interpreter"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/query"
	"github.com/specialistvlad/querycore/internal/record"
	"github.com/specialistvlad/querycore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

// recorder logs every create it forwards, in call order.
type recorder struct {
	connector.Queryable
	creates []connector.WriteArgs
	models  []string
}

func (r *recorder) CreateRecord(ctx context.Context, m *model.Model, args connector.WriteArgs) (record.SingleRecord, error) {
	r.creates = append(r.creates, args.Clone())
	r.models = append(r.models, m.Name)
	return r.Queryable.CreateRecord(ctx, m, args)
}

// echo answers raw queries with one row holding the first parameter.
func echo(_ context.Context, _ string, params []cty.Value) (record.ManyRecords, error) {
	out := record.NewManyRecords([]string{"v"})
	out.Push(record.NewRecord(params[0]))
	return out, nil
}

func newConn(t *testing.T, ctx context.Context) connector.Connection {
	t.Helper()
	conn, err := memconnector.New(memconnector.WithRawHandler(echo)).GetConnection(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func rawVal(n int64) *expression.Raw {
	return &expression.Raw{Query: "echo", Params: []cty.Value{cty.NumberIntVal(n)}}
}

func valueOf(t *testing.T, r interpreter.Result) cty.Value {
	t.Helper()
	qr, ok := r.(interpreter.QueryResult)
	require.True(t, ok, "expected a query result, got %T", r)
	require.Equal(t, 1, qr.Records.Len())
	return qr.Records.Records[0].Values[0]
}

func TestInterpret_UserPostScenario(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	s := testutil.BlogSchema(t)
	user := testutil.Model(t, s, "User")
	post := testutil.Model(t, s, "Post")
	author, _ := post.RelationField("author")

	g := graph.New()
	u := g.CreateNode(&query.CreateRecord{M: user, Args: connector.WriteArgs{"email": cty.StringVal("a@example.com")}})
	p := g.CreateNode(&query.CreateRecord{M: post, Args: connector.WriteArgs{"title": cty.StringVal("Hello")}})
	require.NoError(t, g.AddDataEdge(u, p, graph.DataEdge{
		Transform: query.InjectParentIdentifier(author),
		Link:      query.LinkByRelation(author),
	}))
	require.NoError(t, g.SetResultNode(u))
	require.NoError(t, g.Finalize())

	expr, err := compiler.Translate(g)
	require.NoError(t, err)

	rec := &recorder{Queryable: newConn(t, ctx)}
	in := interpreter.New(rec)
	out, err := in.Interpret(ctx, expr, interpreter.NewEnv(), 0)
	require.NoError(t, err)

	require.Equal(t, []string{"User", "Post"}, rec.models, "the User insert must come first")
	assert.NotContains(t, rec.creates[0], "author_id")
	assert.True(t, rec.creates[1]["author_id"].RawEquals(cty.NumberIntVal(1)))

	seq, ok := out.(interpreter.SequenceResult)
	require.True(t, ok)
	userRes := seq.Named[u.String()].(interpreter.QueryResult)
	postRes := seq.Named[p.String()].(interpreter.QueryResult)
	assert.Equal(t, userRes, seq.Last)

	uid, err := userRes.Identifiers()
	require.NoError(t, err)
	require.NotNil(t, postRes.Records.Records[0].ParentID)
	assert.True(t, postRes.Records.Records[0].ParentID.Equal(uid[0]))

	assert.Contains(t, in.LogOutput(), "n1: create Post {author_id, title} -> 1 row(s)")
}

func TestInterpret_ScopeIsolation(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	in := interpreter.New(newConn(t, ctx))

	inner := &expression.Sequence{Items: []expression.Expression{
		&expression.Let{Name: "x", Expr: rawVal(2)},
		&expression.Let{Name: "y", Expr: rawVal(3)},
		&expression.Get{Name: "x"},
	}}

	t.Run("shadowing", func(t *testing.T) {
		tree := &expression.Sequence{Items: []expression.Expression{
			&expression.Let{Name: "x", Expr: rawVal(1)},
			&expression.Let{Name: "inner", Expr: inner},
			&expression.Get{Name: "x"},
		}}
		out, err := in.Interpret(ctx, tree, interpreter.NewEnv(), 0)
		require.NoError(t, err)

		seq := out.(interpreter.SequenceResult)
		assert.True(t, valueOf(t, seq.Last).RawEquals(cty.NumberIntVal(1)), "outer x must survive the inner sequence")

		innerSeq := seq.Named["inner"].(interpreter.SequenceResult)
		assert.True(t, valueOf(t, innerSeq.Last).RawEquals(cty.NumberIntVal(2)), "inner x shadows outer x")
		assert.Contains(t, innerSeq.Named, "y")
		assert.NotContains(t, seq.Named, "y")
	})

	t.Run("inner bindings are discarded", func(t *testing.T) {
		tree := &expression.Sequence{Items: []expression.Expression{
			inner,
			&expression.Get{Name: "y"},
		}}
		_, err := in.Interpret(ctx, tree, interpreter.NewEnv(), 0)
		var unbound *interpreter.UnboundError
		require.ErrorAs(t, err, &unbound)
		assert.Equal(t, "y", unbound.Name)
	})

	t.Run("write once", func(t *testing.T) {
		tree := &expression.Sequence{Items: []expression.Expression{
			&expression.Let{Name: "x", Expr: rawVal(1)},
			&expression.Let{Name: "x", Expr: rawVal(2)},
		}}
		_, err := in.Interpret(ctx, tree, interpreter.NewEnv(), 0)
		assert.Error(t, err)
	})
}

func TestInterpret_FailFast(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	s := testutil.BlogSchema(t)
	user := testutil.Model(t, s, "User")
	conn := newConn(t, ctx)

	create := func(node, email string) expression.Expression {
		return &expression.Let{Name: node, Expr: &expression.Func{
			Node:  node,
			Query: &query.CreateRecord{M: user, Args: connector.WriteArgs{"email": cty.StringVal(email)}},
		}}
	}
	tree := &expression.Sequence{Items: []expression.Expression{
		create("n0", "a@example.com"),
		create("n1", "a@example.com"),
		create("n2", "c@example.com"),
	}}

	_, err := interpreter.New(conn).Interpret(ctx, tree, interpreter.NewEnv(), 0)
	assert.ErrorIs(t, err, connector.ErrUniqueConstraint)

	rows, err := conn.GetManyRecords(ctx, user, connector.MatchAll(), []string{"email"})
	require.NoError(t, err)
	assert.Equal(t, 1, rows.Len(), "nothing after the failing call may run")
}

func TestInterpret_SkippedBranch(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	s := testutil.BlogSchema(t)
	user := testutil.Model(t, s, "User")
	post := testutil.Model(t, s, "Post")
	author, _ := post.RelationField("author")

	tree := &expression.Sequence{Items: []expression.Expression{
		&expression.Let{Name: "n0", Expr: &expression.Func{Node: "n0", Query: &query.FindRecords{M: user, Filter: connector.MatchAll()}}},
		&expression.Let{Name: "n1", Expr: &expression.If{
			Conditions: []expression.Condition{{Binding: "n0", RequireRows: true}},
			Then: &expression.Func{Node: "n1", Query: &query.FindRecords{M: post, Filter: connector.MatchAll()},
				Inputs: []expression.Input{{Binding: "n0", Transform: query.FilterByParentLink(author), Optional: true}}},
		}},
		&expression.Let{Name: "n2", Expr: &expression.If{
			Conditions: []expression.Condition{{Binding: "n1"}},
			Then:       &expression.Func{Node: "n2", Query: &query.FindRecords{M: user, Filter: connector.MatchAll()}},
		}},
	}}

	out, err := interpreter.New(newConn(t, ctx)).Interpret(ctx, tree, interpreter.NewEnv(), 0)
	require.NoError(t, err)
	seq := out.(interpreter.SequenceResult)
	assert.Equal(t, interpreter.EmptyResult{}, seq.Named["n1"])
	assert.Equal(t, interpreter.EmptyResult{}, seq.Named["n2"])
}

func TestInterpret_RecordNotFoundNamesNode(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	s := testutil.BlogSchema(t)
	user := testutil.Model(t, s, "User")

	missing := record.Placeholder(user.PrimaryIdentifier())
	missing.AddAutogenValue(cty.NumberIntVal(5))
	tree := &expression.Func{Node: "n7", Query: &query.DeleteRecords{M: user, Filter: connector.ByIdentifiers(missing), Expect: query.ExpectOne}}

	_, err := interpreter.New(newConn(t, ctx)).Interpret(ctx, tree, interpreter.NewEnv(), 0)
	var notFound *query.RecordNotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, "n7", notFound.Node)
}

func TestInterpret_DepthExceeded(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	tree := &expression.Sequence{Items: []expression.Expression{
		&expression.Let{Name: "x", Expr: rawVal(1)},
	}}

	_, err := interpreter.New(newConn(t, ctx), interpreter.WithMaxDepth(1)).Interpret(ctx, tree, interpreter.NewEnv(), 0)
	var depthErr *interpreter.DepthExceededError
	require.ErrorAs(t, err, &depthErr)
	assert.Equal(t, 1, depthErr.Max)

	_, err = interpreter.New(newConn(t, ctx), interpreter.WithMaxDepth(2)).Interpret(ctx, tree, interpreter.NewEnv(), 0)
	assert.NoError(t, err)
}

func TestInterpret_RawExecute(t *testing.T) {
	ctx, _ := testutil.NewContext(t)
	out, err := interpreter.New(newConn(t, ctx)).Interpret(ctx, &expression.Raw{
		Query: "touch", Params: []cty.Value{cty.True}, Kind: expression.RawExecute,
	}, interpreter.NewEnv(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, out.(interpreter.QueryResult).Count)
}
