package builder

import "errors"

// ErrInvalidOperation is wrapped by every error that rejects the shape of
// an operation.
var ErrInvalidOperation = errors.New("invalid operation")
