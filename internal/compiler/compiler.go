// Package compiler lowers a finalized dependency graph into an expression
// tree. The translation is purely structural: it never looks at argument
// values, and the same graph always yields the same tree.
package compiler

import (
	"errors"

	"github.com/specialistvlad/querycore/internal/expression"
	"github.com/specialistvlad/querycore/internal/graph"
)

// ErrNotFinalized is returned for graphs that did not pass Finalize.
var ErrNotFinalized = errors.New("graph must be finalized before translation")

// Translate emits one let binding per node in topological order, named after
// the node, followed by a read of the result node:
//
//	sequence
//	  let n0 = call ...
//	  let n1 = if rows(n0) call ... <- n0
//	  get n0
//
// A node runs under an If when it has an optional data parent (which must
// have produced rows) or a data parent that may itself have been skipped
// (which must be present). Barriers only order their neighbours, which the
// topological order already does, so they emit nothing.
func Translate(g *graph.QueryGraph) (expression.Expression, error) {
	if !g.IsFinalized() {
		return nil, ErrNotFinalized
	}
	result, _ := g.ResultNode()

	conditional := make(map[graph.NodeID]bool)
	var items []expression.Expression

	for _, id := range g.TopologicalOrder() {
		n, _ := g.Node(id)
		if n.IsBarrier() {
			continue
		}

		var inputs []expression.Input
		var conds []expression.Condition
		for _, e := range g.Parents(id) {
			if !e.IsData() {
				continue
			}
			name := e.From.String()
			inputs = append(inputs, expression.Input{
				Binding:   name,
				Transform: e.Data.Transform,
				Link:      e.Data.Link,
				Optional:  e.Data.Optional,
			})
			switch {
			case e.Data.Optional:
				conds = append(conds, expression.Condition{Binding: name, RequireRows: true})
			case conditional[e.From]:
				conds = append(conds, expression.Condition{Binding: name})
			}
		}

		var expr expression.Expression = &expression.Func{Node: id.String(), Query: n.Query, Inputs: inputs}
		if len(conds) > 0 {
			conditional[id] = true
			expr = &expression.If{Conditions: conds, Then: expr}
		}
		items = append(items, &expression.Let{Name: id.String(), Expr: expr})
	}

	items = append(items, &expression.Get{Name: result.String()})
	return &expression.Sequence{Items: items}, nil
}
