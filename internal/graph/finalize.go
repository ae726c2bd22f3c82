package graph

import (
	"fmt"

	"github.com/specialistvlad/querycore/internal/query"
)

// Finalize validates and prunes the graph. See the package documentation for
// the steps. A graph can only be finalized once.
func (g *QueryGraph) Finalize() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.finalized {
		return ErrFinalized
	}
	if !g.hasResult {
		return ErrNoResultNode
	}
	for _, e := range g.edges {
		if _, ok := g.nodes[e.From]; !ok {
			return fmt.Errorf("dangling edge: source %w: %s", ErrNodeNotFound, e.From)
		}
		if _, ok := g.nodes[e.To]; !ok {
			return fmt.Errorf("dangling edge: destination %w: %s", ErrNodeNotFound, e.To)
		}
	}
	if err := g.detectCycles(); err != nil {
		return err
	}
	if err := g.prune(); err != nil {
		return err
	}
	g.removeDanglingBarriers()

	order, _ := g.topoSort()
	g.order = order
	g.finalized = true
	return nil
}

// detectCycles is a depth-first search over dependents with a permanent set
// (fully visited, not on a cycle) and a temporary set (on the current path).
func (g *QueryGraph) detectCycles() error {
	dependents := make(map[NodeID][]NodeID, len(g.nodes))
	for _, e := range g.edges {
		dependents[e.From] = append(dependents[e.From], e.To)
	}

	permanent := make(map[NodeID]bool)
	temporary := make(map[NodeID]bool)

	var visit func(id NodeID) error
	visit = func(id NodeID) error {
		if permanent[id] {
			return nil
		}
		if temporary[id] {
			return fmt.Errorf("%w involving node %s", ErrCycle, id)
		}

		temporary[id] = true
		for _, dep := range dependents[id] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		delete(temporary, id)
		permanent[id] = true
		return nil
	}

	for _, id := range g.sortedIDs() {
		if err := visit(id); err != nil {
			return err
		}
	}
	return nil
}

// prune drops nodes that cannot produce rows. A node is empty when its own
// filter is statically empty; it is skipped when a data parent is skipped or
// an optional data parent is empty. Empty nodes are dropped unless they are
// the result node; skipped nodes are always dropped.
func (g *QueryGraph) prune() error {
	order, _ := g.topoSort()

	empty := make(map[NodeID]bool)
	skipped := make(map[NodeID]bool)

	for _, id := range order {
		parents := g.incoming(id)
		for _, e := range parents {
			if !e.IsData() {
				continue
			}
			if skipped[e.From] || (empty[e.From] && e.Data.Optional) {
				skipped[id] = true
				break
			}
		}
		if skipped[id] {
			if id == g.result {
				return fmt.Errorf("%w: %s", ErrUnreachable, g.nodes[id])
			}
			continue
		}

		for _, e := range parents {
			if e.IsData() && !e.Data.Optional && empty[e.From] {
				return g.notFound(e.From, fmt.Sprintf("required by %s", id))
			}
		}

		n := g.nodes[id]
		if n.IsBarrier() || !query.IsStaticallyEmpty(n.Query) {
			continue
		}
		if query.ExpectationOf(n.Query) == query.ExpectOne {
			return g.notFound(id, "filter matches nothing")
		}
		empty[id] = true
	}

	for id := range g.nodes {
		if skipped[id] || (empty[id] && id != g.result) {
			g.removeNode(id)
		}
	}
	return nil
}

func (g *QueryGraph) notFound(id NodeID, reason string) error {
	n := g.nodes[id]
	return &query.RecordNotFoundError{
		Node:   id.String(),
		Model:  n.Query.Model().Name,
		Reason: fmt.Sprintf("%s: %s", n.Query, reason),
	}
}

func (g *QueryGraph) incoming(id NodeID) []*Edge {
	var out []*Edge
	for _, e := range g.edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

func (g *QueryGraph) removeNode(id NodeID) {
	delete(g.nodes, id)

	edges := g.edges[:0]
	for _, e := range g.edges {
		if e.From != id && e.To != id {
			edges = append(edges, e)
		}
	}
	g.edges = edges

	nestings := g.nestings[:0]
	for _, n := range g.nestings {
		if n.Child != id && n.Parent != id {
			nestings = append(nestings, n)
		}
	}
	g.nestings = nestings
}

func (g *QueryGraph) removeDanglingBarriers() {
	for _, id := range g.sortedIDs() {
		n := g.nodes[id]
		if !n.IsBarrier() || id == g.result {
			continue
		}
		connected := false
		for _, e := range g.edges {
			if e.From == id || e.To == id {
				connected = true
				break
			}
		}
		if !connected {
			delete(g.nodes, id)
		}
	}
}
