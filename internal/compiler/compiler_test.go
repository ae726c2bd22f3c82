package compiler_test

import (
	"testing"

	"github.com/specialistvlad/querycore/internal/compiler"
	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/expression"
	"github.com/specialistvlad/querycore/internal/graph"
	"github.com/specialistvlad/querycore/internal/query"
	"github.com/specialistvlad/querycore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zclconf/go-cty/cty"
)

func buildGraph(t *testing.T) *graph.QueryGraph {
	t.Helper()
	s := testutil.BlogSchema(t)
	user := testutil.Model(t, s, "User")
	post := testutil.Model(t, s, "Post")
	author, _ := post.RelationField("author")

	g := graph.New()
	u := g.CreateNode(&query.CreateRecord{M: user, Args: connector.WriteArgs{"email": cty.StringVal("a@example.com")}})
	p := g.CreateNode(&query.CreateRecord{M: post, Args: connector.WriteArgs{"title": cty.StringVal("Hi")}})
	barrier := g.CreateBarrier("reads")
	read := g.CreateNode(&query.FindRecords{M: post, Filter: connector.MatchAll()})
	nested := g.CreateNode(&query.FindRecords{M: user, Filter: connector.MatchAll()})

	require.NoError(t, g.AddDataEdge(u, p, graph.DataEdge{Transform: query.InjectParentIdentifier(author), Link: query.LinkByRelation(author)}))
	require.NoError(t, g.AddOrderingEdge(p, barrier))
	require.NoError(t, g.AddOrderingEdge(barrier, read))
	require.NoError(t, g.AddDataEdge(read, nested, graph.DataEdge{Transform: query.FilterByReferencedValues(author), Optional: true}))
	require.NoError(t, g.SetResultNode(u))
	require.NoError(t, g.Finalize())
	return g
}

func TestTranslate(t *testing.T) {
	g := buildGraph(t)

	expr, err := compiler.Translate(g)
	require.NoError(t, err)

	want := "sequence\n" +
		"  let n0 =\n" +
		"    call n0: create User {email}\n" +
		"  let n1 =\n" +
		"    call n1: create Post {title} <- n0^\n" +
		"  let n3 =\n" +
		"    call n3: find Post where all\n" +
		"  let n4 =\n" +
		"    if rows(n3)\n" +
		"      call n4: find User where all <- n3?\n" +
		"  get n0\n"
	assert.Equal(t, want, expression.String(expr))
}

func TestTranslate_Deterministic(t *testing.T) {
	g := buildGraph(t)

	first, err := compiler.Translate(g)
	require.NoError(t, err)
	second, err := compiler.Translate(g)
	require.NoError(t, err)
	assert.Equal(t, expression.String(first), expression.String(second))

	other, err := compiler.Translate(buildGraph(t))
	require.NoError(t, err)
	assert.Equal(t, expression.String(first), expression.String(other))
}

func TestTranslate_ConditionalAncestors(t *testing.T) {
	s := testutil.BlogSchema(t)
	user := testutil.Model(t, s, "User")
	post := testutil.Model(t, s, "Post")
	author, _ := post.RelationField("author")

	g := graph.New()
	root := g.CreateNode(&query.FindRecords{M: user, Filter: connector.MatchAll()})
	posts := g.CreateNode(&query.FindRecords{M: post, Filter: connector.MatchAll()})
	upd := g.CreateNode(&query.UpdateRecords{M: post, Filter: connector.MatchAll(), Args: connector.WriteArgs{"title": cty.StringVal("x")}})
	require.NoError(t, g.AddDataEdge(root, posts, graph.DataEdge{Transform: query.FilterByParentLink(author), Optional: true}))
	require.NoError(t, g.AddDataEdge(posts, upd, graph.DataEdge{Transform: query.FilterByIdentifiers()}))
	require.NoError(t, g.SetResultNode(root))
	require.NoError(t, g.Finalize())

	expr, err := compiler.Translate(g)
	require.NoError(t, err)
	assert.Contains(t, expression.String(expr), "if present(n1)\n      call n2: update Post {title} where all <- n1\n")
}

func TestTranslate_NotFinalized(t *testing.T) {
	g := graph.New()
	_, err := compiler.Translate(g)
	assert.ErrorIs(t, err, compiler.ErrNotFinalized)
}
