package connector

import (
	"context"

	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/record"
	"github.com/zclconf/go-cty/cty"
)

// Connector hands out connections to one backend.
type Connector interface {
	// GetConnection checks a connection out of the pool. It blocks until a
	// connection is free or ctx is done, in which case the error wraps
	// ErrAcquisitionTimeout.
	GetConnection(ctx context.Context) (Connection, error)
	Name() string
	Capabilities() Capabilities
}

// Capabilities describes optional backend features. It exists for probing
// only; callers never reach past the Connector surface.
type Capabilities struct {
	Transactions bool
	RawQueries   bool
	// Returning is set when writes can report the affected rows without a
	// follow-up read.
	Returning bool
}

// WriteArgs maps storage column names to the values to write.
type WriteArgs map[string]cty.Value

// Clone returns a shallow copy.
func (a WriteArgs) Clone() WriteArgs {
	out := make(WriteArgs, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}

// Queryable is the set of primitives the interpreter issues.
type Queryable interface {
	// CreateRecord inserts one row and returns it with every column of the
	// model, including the ones the backend generated.
	CreateRecord(ctx context.Context, m *model.Model, args WriteArgs) (record.SingleRecord, error)
	// UpdateRecords applies args to every row matching f and returns the
	// updated rows.
	UpdateRecords(ctx context.Context, m *model.Model, f Filter, args WriteArgs) (record.ManyRecords, error)
	// DeleteRecords removes every row matching f and returns the rows as
	// they were before deletion.
	DeleteRecords(ctx context.Context, m *model.Model, f Filter) (record.ManyRecords, error)
	// GetManyRecords reads the given columns of every row matching f. A nil
	// column list selects all columns of the model.
	GetManyRecords(ctx context.Context, m *model.Model, f Filter, columns []string) (record.ManyRecords, error)
	// QueryRaw runs a verbatim backend command with positional parameters.
	QueryRaw(ctx context.Context, query string, params []cty.Value) (record.ManyRecords, error)
	// ExecuteRaw runs a verbatim command and returns the affected row count.
	ExecuteRaw(ctx context.Context, query string, params []cty.Value) (int, error)
}

// Connection is one checked-out backend connection. It is not safe for
// concurrent use; the pool guarantees a single user at a time.
type Connection interface {
	Queryable
	StartTransaction(ctx context.Context) (Transaction, error)
	// Close returns the connection to the pool.
	Close() error
}

// Transaction is an open backend transaction. After Commit or Rollback every
// method returns an error wrapping ErrTransactionClosed.
type Transaction interface {
	Queryable
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
