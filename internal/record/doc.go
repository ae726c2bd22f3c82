// Package record holds the values that flow between backend operations: the
// rows a connector returns and the identifiers extracted from them.
//
// A RecordIdentifier is the concrete key of one record, matched positionally
// to a model.ModelIdentifier's storage columns. Identifiers are how a parent
// result is stitched into a child operation's arguments without a re-query.
package record
