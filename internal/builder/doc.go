/*
Package builder lowers an operation.Operation into the query type the
pipeline executes.

Raw actions pass through unchanged. Every other action becomes a
dependency graph:

 1. Root: the operation itself becomes one node (two for deletes with
    nested writes: a read that pins the records, then the delete). The
    root is the graph's result node.

 2. Nested reads: each nested read becomes a node fed by an optional data
    edge from the node it is nested under, filtered by the relation. Its
    records are nested under the parent's records in the response.

 3. Nested creates: the side holding the foreign key is created second.
    When the relation is inlined on the child, the parent feeds the child;
    when it is inlined on the parent, the child is created first and feeds
    the parent. A parent with several inlined relations forms a diamond.

 4. Nested updates and deletes: the affected children are filtered through
    the relation from the parent's records.

Where clauses are normalized into connector filters with values coerced to
their column types: a list value matches any of its elements, several
fields multiply out into every combination, and an empty list yields a
filter the graph can prune before anything runs.
*/
package builder
