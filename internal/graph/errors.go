package graph

import "errors"

var (
	// ErrNoResultNode is returned by Finalize when SetResultNode was never
	// called.
	ErrNoResultNode = errors.New("graph has no result node")
	// ErrCycle is wrapped by Finalize when the dependency structure is cyclic.
	ErrCycle = errors.New("dependency cycle")
	// ErrUnreachable is wrapped by Finalize when the result node would be
	// pruned.
	ErrUnreachable = errors.New("result node unreachable")
	// ErrFinalized is returned when a finalized graph is modified.
	ErrFinalized = errors.New("graph already finalized")
	// ErrNodeNotFound is wrapped when an edge or call names an unknown node.
	ErrNodeNotFound = errors.New("node not found")
)
