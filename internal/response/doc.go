// Package response turns the bindings of an evaluated expression tree into
// the result tree handed back to callers.
//
// The graph's nesting metadata decides where each node's records end up:
// a nested node's records are distributed over the records of the node it
// is nested under, either by the parent identifier attached during
// evaluation or, for relations whose foreign key lives on the parent, by
// comparing key values.
package response
