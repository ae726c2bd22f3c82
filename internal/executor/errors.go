package executor

import (
	"errors"
	"fmt"

	"github.com/specialistvlad/querycore/internal/connector"
)

var (
	// ErrTransactionNotFound is returned for ids this executor never issued.
	ErrTransactionNotFound = errors.New("transaction not found")
	// ErrTransactionExpired is returned for transactions rolled back because
	// they outlived their validity. It wraps ErrTransactionClosed.
	ErrTransactionExpired = fmt.Errorf("transaction expired: %w", connector.ErrTransactionClosed)
	// ErrTransactionClosed is returned for committed or rolled back
	// transactions.
	ErrTransactionClosed = connector.ErrTransactionClosed
)

// NotAppliedError marks an operation of a transactional batch whose effects
// were discarded because another operation failed.
type NotAppliedError struct {
	Index  int
	Failed int
}

func (e *NotAppliedError) Error() string {
	return fmt.Sprintf("operation %d not applied: batch rolled back after operation %d failed", e.Index, e.Failed)
}

// BatchError reports the failing operation of a transactional batch.
type BatchError struct {
	Index int
	Err   error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("batch operation %d failed: %v", e.Index, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}
