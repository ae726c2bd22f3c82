// Package graph represents one client request as a dependency graph of
// atomic backend operations.
//
// # Nodes and Edges
//
// Every node carries a query.Query (insert, update, delete, find) or is a
// barrier: a no-op join point used to order groups of nodes. Edges come in
// two kinds:
//
//   - **Ordering edge:** the target must not start before the source has
//     completed. No data flows.
//   - **Data edge:** the target's query is derived from the source's result
//     through a query.Transformer, e.g. a freshly generated key is injected
//     into a child's foreign key column. A data edge is optional when the
//     target is to be skipped, rather than failed, if the source produced no
//     rows. It can also carry a query.ParentLink, which tags the target's
//     records with the identifier of the source record they belong to.
//
// A node fed by two or more data edges (a diamond) applies its transformers
// in edge insertion order.
//
//	 create User (n0)        create Category (n1)
//	        │                       │
//	        │ data: author_id       │ data: category_id
//	        └──────────┬────────────┘
//	                   ▼
//	            create Post (n2)
//
// # Finalize
//
// Finalize runs once, after the graph is built and before it is compiled:
//
//  1. Rejects graphs without a result node, with edges pointing at unknown
//     nodes, or with cycles.
//  2. Prunes nodes that are known to produce nothing without asking the
//     backend (their filter is statically empty), together with everything
//     that depends on them through optional edges.
//  3. Fails with a query.RecordNotFoundError naming the node when a mandatory
//     edge leaves such a node, or when the node itself had to affect a row.
//  4. Removes barriers left without edges and fixes the topological order.
//
// After Finalize the graph is read-only.
//
// # Nesting
//
// Nest records which relation field of a parent node's records a child
// node's records belong under. It does not affect execution; the response
// serializer uses it to rebuild the nested result tree.
package graph
