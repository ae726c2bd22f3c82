// Package query defines the atomic backend operations a dependency graph is
// made of, the single function that dispatches them to a connector, and the
// transformers that feed one operation's result into another's arguments.
package query
