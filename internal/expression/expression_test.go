package expression_test

import (
	"testing"

	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/expression"
	"github.com/specialistvlad/querycore/internal/query"
	"github.com/specialistvlad/querycore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/zclconf/go-cty/cty"
)

func TestString(t *testing.T) {
	s := testutil.BlogSchema(t)
	user := testutil.Model(t, s, "User")

	tree := &expression.Sequence{Items: []expression.Expression{
		&expression.Let{Name: "n0", Expr: &expression.Func{
			Node:  "n0",
			Query: &query.FindRecords{M: user, Filter: connector.MatchAll()},
		}},
		&expression.Let{Name: "n1", Expr: &expression.If{
			Conditions: []expression.Condition{{Binding: "n0", RequireRows: true}},
			Then: &expression.Func{
				Node:   "n1",
				Query:  &query.DeleteRecords{M: user, Filter: connector.MatchAll()},
				Inputs: []expression.Input{{Binding: "n0", Optional: true}},
			},
		}},
		&expression.Raw{Query: "SELECT ?", Params: []cty.Value{cty.True}},
		&expression.Get{Name: "n0"},
	}}

	want := "sequence\n" +
		"  let n0 =\n" +
		"    call n0: find User where all\n" +
		"  let n1 =\n" +
		"    if rows(n0)\n" +
		"      call n1: delete User where all <- n0?\n" +
		"  raw query \"SELECT ?\" (1 params)\n" +
		"  get n0\n"
	assert.Equal(t, want, expression.String(tree))
}
