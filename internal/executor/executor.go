package executor

import (
	"context"
	"time"

	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/operation"
	"github.com/specialistvlad/querycore/internal/response"
)

// TxID identifies an open transaction. The zero value means no transaction.
type TxID string

// NoTx runs an operation outside any caller-managed transaction.
const NoTx TxID = ""

// TxIDFrom wraps an id received from a caller.
func TxIDFrom(s string) TxID {
	return TxID(s)
}

func (id TxID) String() string {
	return string(id)
}

// TransactionManager opens and terminates transactions.
type TransactionManager interface {
	// StartTx opens a transaction. It fails when no connection can be
	// acquired within maxAcquisition. The transaction is rolled back if it
	// is still open after validFor.
	StartTx(ctx context.Context, maxAcquisition, validFor time.Duration) (TxID, error)
	CommitTx(ctx context.Context, id TxID) error
	RollbackTx(ctx context.Context, id TxID) error
}

// QueryExecutor runs operations.
type QueryExecutor interface {
	TransactionManager

	// Execute runs one operation, on the given transaction unless id is
	// NoTx.
	Execute(ctx context.Context, id TxID, op operation.Operation, schema *model.Schema) (*response.ResponseData, error)

	// ExecuteAll runs a batch. Independent batches never return an error;
	// failures are reported per result. Transactional batches return a
	// *BatchError when any operation failed.
	ExecuteAll(ctx context.Context, id TxID, ops []operation.Operation, transactional bool, schema *model.Schema) ([]BatchResult, error)

	// PrimaryConnector exposes the backend for capability probing.
	PrimaryConnector() connector.Connector
}

// BatchResult is the outcome of one operation of a batch.
type BatchResult struct {
	Data *response.ResponseData
	Err  error
}
