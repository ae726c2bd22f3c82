package connector

import (
	"errors"
	"fmt"
)

// Error kinds. Match them with errors.Is on any error a connector returns.
var (
	ErrConnectionFailure  = errors.New("connection failure")
	ErrAcquisitionTimeout = errors.New("connection acquisition timed out")
	ErrUniqueConstraint   = errors.New("unique constraint violation")
	ErrNullConstraint     = errors.New("null constraint violation")
	ErrTransactionClosed  = errors.New("transaction already closed")
	ErrUnsupported        = errors.New("operation not supported by connector")
	ErrQueryFailure       = errors.New("query failed")
)

// Error is a backend failure tagged with its kind and the connector that
// raised it.
type Error struct {
	Kind      error
	Connector string
	Err       error
}

// NewError creates an Error. err may be nil.
func NewError(kind error, connector string, err error) *Error {
	return &Error{Kind: kind, Connector: connector, Err: err}
}

// Errorf creates an Error with a formatted cause.
func Errorf(kind error, connector, format string, args ...any) *Error {
	return &Error{Kind: kind, Connector: connector, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Connector, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s", e.Connector, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
