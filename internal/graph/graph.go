package graph

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/query"
)

// NodeID identifies a node within one graph. IDs are assigned in creation
// order starting at zero.
type NodeID int

// String renders the ID the way it appears in bindings and logs.
func (id NodeID) String() string {
	return fmt.Sprintf("n%d", int(id))
}

// Node is a single step of the graph.
type Node struct {
	ID NodeID
	// Query is nil for barriers.
	Query query.Query
	Label string
}

// IsBarrier reports whether the node is a no-op join point.
func (n *Node) IsBarrier() bool {
	return n.Query == nil
}

func (n *Node) String() string {
	if n.IsBarrier() {
		return fmt.Sprintf("%s: barrier %s", n.ID, n.Label)
	}
	return fmt.Sprintf("%s: %s", n.ID, n.Query)
}

// EdgeKind distinguishes ordering from data edges.
type EdgeKind int

const (
	OrderingEdge EdgeKind = iota
	DataEdgeKind
)

// DataEdge describes how a target node consumes a source node's result.
type DataEdge struct {
	Transform query.Transformer
	// Optional edges skip the target when the source produced no rows.
	Optional bool
	// Link, when set, attaches the source's identifiers to the target's
	// records as their parent.
	Link *query.ParentLink
}

// Edge connects two nodes. Seq is the insertion position.
type Edge struct {
	Seq  int
	From NodeID
	To   NodeID
	Kind EdgeKind
	Data DataEdge
}

// IsData reports whether the edge transfers data.
func (e *Edge) IsData() bool {
	return e.Kind == DataEdgeKind
}

// Nesting places a child node's records under a relation field of a parent
// node's records in the response.
type Nesting struct {
	Child  NodeID
	Parent NodeID
	Field  *model.RelationField
}

// QueryGraph is the dependency graph of one request.
type QueryGraph struct {
	mu sync.RWMutex

	nodes     map[NodeID]*Node
	nextID    NodeID
	edges     []*Edge
	nextSeq   int
	result    NodeID
	hasResult bool
	nestings  []Nesting

	finalized bool
	order     []NodeID
}

// New creates an empty graph.
func New() *QueryGraph {
	return &QueryGraph{nodes: make(map[NodeID]*Node)}
}

// CreateNode adds a node running q.
func (g *QueryGraph) CreateNode(q query.Query) NodeID {
	return g.addNode(&Node{Query: q})
}

// CreateBarrier adds a no-op node.
func (g *QueryGraph) CreateBarrier(label string) NodeID {
	return g.addNode(&Node{Label: label})
}

func (g *QueryGraph) addNode(n *Node) NodeID {
	g.mu.Lock()
	defer g.mu.Unlock()

	n.ID = g.nextID
	g.nextID++
	g.nodes[n.ID] = n
	return n.ID
}

// AddOrderingEdge makes to wait for from.
func (g *QueryGraph) AddOrderingEdge(from, to NodeID) error {
	return g.addEdge(&Edge{From: from, To: to, Kind: OrderingEdge})
}

// AddDataEdge makes to wait for from and derive its query from from's result.
func (g *QueryGraph) AddDataEdge(from, to NodeID, data DataEdge) error {
	if data.Transform == nil {
		return fmt.Errorf("data edge %s -> %s has no transformer", from, to)
	}
	if n, ok := g.Node(from); ok && n.IsBarrier() {
		return fmt.Errorf("data edge %s -> %s leaves a barrier", from, to)
	}
	return g.addEdge(&Edge{From: from, To: to, Kind: DataEdgeKind, Data: data})
}

func (g *QueryGraph) addEdge(e *Edge) error {
	if e.From == e.To {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", e.From, e.From)
	}

	g.mu.Lock()
	defer g.mu.Unlock()

	if g.finalized {
		return ErrFinalized
	}
	if _, ok := g.nodes[e.From]; !ok {
		return fmt.Errorf("source %w: %s", ErrNodeNotFound, e.From)
	}
	if _, ok := g.nodes[e.To]; !ok {
		return fmt.Errorf("destination %w: %s", ErrNodeNotFound, e.To)
	}

	e.Seq = g.nextSeq
	g.nextSeq++
	g.edges = append(g.edges, e)
	return nil
}

// SetResultNode marks the node whose result answers the request.
func (g *QueryGraph) SetResultNode(id NodeID) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if _, ok := g.nodes[id]; !ok {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	g.result = id
	g.hasResult = true
	return nil
}

// Nest records that child's records belong under field of parent's records.
func (g *QueryGraph) Nest(child, parent NodeID, field *model.RelationField) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, id := range []NodeID{child, parent} {
		if _, ok := g.nodes[id]; !ok {
			return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
		}
	}
	g.nestings = append(g.nestings, Nesting{Child: child, Parent: parent, Field: field})
	return nil
}

// Node returns the node with the given ID.
func (g *QueryGraph) Node(id NodeID) (*Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// Len returns the number of nodes.
func (g *QueryGraph) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// ResultNode returns the result node, if one was set.
func (g *QueryGraph) ResultNode() (NodeID, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.result, g.hasResult
}

// Parents returns the edges entering id in insertion order.
func (g *QueryGraph) Parents(id NodeID) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*Edge
	for _, e := range g.edges {
		if e.To == id {
			out = append(out, e)
		}
	}
	return out
}

// Children returns the edges leaving id in insertion order.
func (g *QueryGraph) Children(id NodeID) []*Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var out []*Edge
	for _, e := range g.edges {
		if e.From == id {
			out = append(out, e)
		}
	}
	return out
}

// Nestings returns the nesting records in insertion order.
func (g *QueryGraph) Nestings() []Nesting {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return append([]Nesting(nil), g.nestings...)
}

// IsFinalized reports whether Finalize has succeeded.
func (g *QueryGraph) IsFinalized() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.finalized
}

// TopologicalOrder returns every node such that each comes after all of its
// parents. Among nodes that are ready at the same time the lowest ID goes
// first, so the order is a function of the graph alone.
func (g *QueryGraph) TopologicalOrder() []NodeID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.finalized {
		return append([]NodeID(nil), g.order...)
	}
	order, _ := g.topoSort()
	return order
}

// topoSort runs Kahn's algorithm. The returned order is short of nodes when
// the graph has a cycle.
func (g *QueryGraph) topoSort() ([]NodeID, bool) {
	indegree := make(map[NodeID]int, len(g.nodes))
	for id := range g.nodes {
		indegree[id] = 0
	}
	for _, e := range g.edges {
		indegree[e.To]++
	}

	var ready []NodeID
	for id, d := range indegree {
		if d == 0 {
			ready = append(ready, id)
		}
	}

	order := make([]NodeID, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return ready[i] < ready[j] })
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)

		for _, e := range g.edges {
			if e.From != id {
				continue
			}
			indegree[e.To]--
			if indegree[e.To] == 0 {
				ready = append(ready, e.To)
			}
		}
	}
	return order, len(order) == len(g.nodes)
}

func (g *QueryGraph) sortedIDs() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// String renders nodes and edges, one per line, for trace logging.
func (g *QueryGraph) String() string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	var sb strings.Builder
	for _, id := range g.sortedIDs() {
		n := g.nodes[id]
		sb.WriteString(n.String())
		if g.hasResult && id == g.result {
			sb.WriteString(" [result]")
		}
		sb.WriteByte('\n')
	}
	for _, e := range g.edges {
		kind := "order"
		if e.IsData() {
			kind = "data"
			if e.Data.Optional {
				kind = "data?"
			}
		}
		fmt.Fprintf(&sb, "%s -> %s [%s]\n", e.From, e.To, kind)
	}
	return sb.String()
}
