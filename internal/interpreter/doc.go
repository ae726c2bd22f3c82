// Package interpreter evaluates an expression tree against one connection
// or transaction.
//
// Evaluation is strictly in document order and fails fast: the first error
// aborts the enclosing sequence and is returned unchanged. The interpreter
// never commits or rolls back; that is the caller's job. Every backend call
// goes through a single Func evaluation, where the query template is
// completed from earlier bindings immediately before it is issued.
//
// An Interpreter holds the trace of one evaluation and must not be shared
// between concurrent evaluations.
package interpreter
