package query

import "fmt"

// RecordNotFoundError reports that an operation which had to affect a row
// found none. Node names the graph node it was raised for, when known.
type RecordNotFoundError struct {
	Node   string
	Model  string
	Reason string
}

func (e *RecordNotFoundError) Error() string {
	msg := fmt.Sprintf("record not found: %s", e.Model)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Node != "" {
		msg = fmt.Sprintf("node %s: %s", e.Node, msg)
	}
	return msg
}
