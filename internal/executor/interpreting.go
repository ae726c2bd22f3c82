package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/specialistvlad/querycore/internal/builder"
	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/ctxlog"
	"github.com/specialistvlad/querycore/internal/interpreter"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/operation"
	"github.com/specialistvlad/querycore/internal/pipeline"
	"github.com/specialistvlad/querycore/internal/response"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultBatchConcurrency bounds the fan-out of independent batches.
	DefaultBatchConcurrency = 10
	// DefaultValidFor applies to transactions started without a validity.
	DefaultValidFor = 5 * time.Second

	closedRetention = 10 * time.Minute
	cleanupInterval = time.Second
)

// Operation modes, as reported in metrics.
const (
	modeImplicit      = "implicit"
	modeTransaction   = "transaction"
	modeBatch         = "batch"
	modeTransactional = "transactional_batch"
)

// Option configures an InterpretingExecutor.
type Option func(*InterpretingExecutor)

// WithTxIDGenerator replaces the transaction id generator.
func WithTxIDGenerator(gen func() string) Option {
	return func(e *InterpretingExecutor) { e.newID = gen }
}

// WithBatchConcurrency bounds how many operations of an independent batch
// run at once.
func WithBatchConcurrency(n int) Option {
	return func(e *InterpretingExecutor) {
		if n > 0 {
			e.batchLimit = n
		}
	}
}

// WithDefaultValidFor sets the validity of transactions started without
// one.
func WithDefaultValidFor(d time.Duration) Option {
	return func(e *InterpretingExecutor) {
		if d > 0 {
			e.defaultValidFor = d
		}
	}
}

// WithAcquisitionTimeout bounds how long an implicit scope waits for a
// pooled connection. Zero waits as long as the request context allows.
func WithAcquisitionTimeout(d time.Duration) Option {
	return func(e *InterpretingExecutor) { e.acquisition = d }
}

// WithRegisterer registers the executor's metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(e *InterpretingExecutor) { e.registerer = reg }
}

// WithInterpreterOptions passes options to every interpreter the executor
// creates.
func WithInterpreterOptions(opts ...interpreter.Option) Option {
	return func(e *InterpretingExecutor) { e.interpOpts = append(e.interpOpts, opts...) }
}

// InterpretingExecutor runs operations by building, compiling and
// interpreting them against one connector.
type InterpretingExecutor struct {
	connector       connector.Connector
	logger          *slog.Logger
	newID           func() string
	batchLimit      int
	defaultValidFor time.Duration
	acquisition     time.Duration
	interpOpts      []interpreter.Option
	registerer      prometheus.Registerer

	// txs holds open transactions; entries expire after their validity.
	txs *cache.Cache
	// closed remembers why terminated transactions ended.
	closed  *cache.Cache
	metrics *metrics
}

var _ QueryExecutor = (*InterpretingExecutor)(nil)

// New creates an executor on conn. The logger carried by ctx is used for
// background work such as expiring transactions.
func New(ctx context.Context, conn connector.Connector, opts ...Option) *InterpretingExecutor {
	e := &InterpretingExecutor{
		connector:       conn,
		logger:          ctxlog.FromContext(ctx),
		newID:           uuid.NewString,
		batchLimit:      DefaultBatchConcurrency,
		defaultValidFor: DefaultValidFor,
		txs:             cache.New(cache.NoExpiration, cleanupInterval),
		closed:          cache.New(closedRetention, closedRetention),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.metrics = newMetrics(e.registerer)
	e.txs.OnEvicted(e.evicted)
	return e
}

// PrimaryConnector returns the backend the executor runs on.
func (e *InterpretingExecutor) PrimaryConnector() connector.Connector {
	return e.connector
}

// Execute implements QueryExecutor.
func (e *InterpretingExecutor) Execute(ctx context.Context, id TxID, op operation.Operation, schema *model.Schema) (*response.ResponseData, error) {
	mode := modeImplicit
	if id != NoTx {
		mode = modeTransaction
	}
	logger := ctxlog.FromContext(ctx).With("action", op.Action.String(), "model", op.Model, "mode", mode)
	ctx = ctxlog.WithLogger(ctx, logger)

	start := time.Now()
	data, err := e.execute(ctx, id, op, schema)
	e.metrics.operations.WithLabelValues(mode, status(err)).Inc()
	e.metrics.duration.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	if err != nil {
		logger.Debug("Operation failed.", "error", err)
		return nil, err
	}
	logger.Debug("Operation executed.", "count", data.Count)
	return data, nil
}

func (e *InterpretingExecutor) execute(ctx context.Context, id TxID, op operation.Operation, schema *model.Schema) (*response.ResponseData, error) {
	qt, err := builder.Build(ctx, op, schema)
	if err != nil {
		return nil, err
	}

	if id != NoTx {
		t, err := e.lookup(id)
		if err != nil {
			return nil, err
		}
		defer t.mu.Unlock()
		return pipeline.New(t.tx, qt, e.interpOpts...).Execute(ctx)
	}

	var data *response.ResponseData
	err = e.inScope(ctx, qt.IsWrite(), func(db connector.Queryable) error {
		var err error
		data, err = pipeline.New(db, qt, e.interpOpts...).Execute(ctx)
		return err
	})
	return data, err
}

// inScope runs fn on a pooled connection, inside an implicit transaction
// when write is set. The transaction commits when fn succeeds and rolls back
// otherwise.
func (e *InterpretingExecutor) inScope(ctx context.Context, write bool, fn func(connector.Queryable) error) (err error) {
	acqCtx := ctx
	if e.acquisition > 0 {
		var cancel context.CancelFunc
		acqCtx, cancel = context.WithTimeout(ctx, e.acquisition)
		defer cancel()
	}
	conn, err := e.connector.GetConnection(acqCtx)
	if err != nil {
		return err
	}
	defer func() {
		err = multierr.Append(err, conn.Close())
	}()

	if !write {
		return fn(conn)
	}

	tx, err := conn.StartTransaction(ctx)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			ctxlog.FromContext(ctx).Warn("Implicit transaction rollback failed.", "error", rbErr)
			return multierr.Append(err, rbErr)
		}
		return err
	}
	return tx.Commit(ctx)
}

// ExecuteAll implements QueryExecutor.
func (e *InterpretingExecutor) ExecuteAll(ctx context.Context, id TxID, ops []operation.Operation, transactional bool, schema *model.Schema) ([]BatchResult, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Executing batch.", "size", len(ops), "transactional", transactional)

	if !transactional {
		return e.executeIndependent(ctx, id, ops, schema), nil
	}

	results, err := e.executeTransactional(ctx, id, ops, schema)
	e.metrics.operations.WithLabelValues(modeTransactional, status(err)).Add(float64(len(ops)))
	if err != nil {
		logger.Warn("Transactional batch rolled back.", "error", err)
	}
	return results, err
}

func (e *InterpretingExecutor) executeIndependent(ctx context.Context, id TxID, ops []operation.Operation, schema *model.Schema) []BatchResult {
	results := make([]BatchResult, len(ops))

	var g errgroup.Group
	g.SetLimit(e.batchLimit)
	for i, op := range ops {
		i, op := i, op
		g.Go(func() error {
			data, err := e.Execute(ctx, id, op, schema)
			results[i] = BatchResult{Data: data, Err: err}
			return nil
		})
	}
	_ = g.Wait()

	for _, r := range results {
		e.metrics.operations.WithLabelValues(modeBatch, status(r.Err)).Inc()
	}
	return results
}

// executeTransactional runs ops in order on one transaction. The first
// failure aborts the batch and discards the transaction, including a
// caller-managed one.
func (e *InterpretingExecutor) executeTransactional(ctx context.Context, id TxID, ops []operation.Operation, schema *model.Schema) ([]BatchResult, error) {
	results := make([]BatchResult, len(ops))

	run := func(db connector.Queryable) error {
		for i, op := range ops {
			qt, err := builder.Build(ctx, op, schema)
			var data *response.ResponseData
			if err == nil {
				data, err = pipeline.New(db, qt, e.interpOpts...).Execute(ctx)
			}
			if err != nil {
				for j := range results {
					results[j] = BatchResult{Err: &NotAppliedError{Index: j, Failed: i}}
				}
				results[i] = BatchResult{Err: err}
				return &BatchError{Index: i, Err: err}
			}
			results[i] = BatchResult{Data: data}
		}
		return nil
	}

	if id == NoTx {
		return results, e.inScope(ctx, true, run)
	}

	t, err := e.lookup(id)
	if err != nil {
		for i := range results {
			results[i] = BatchResult{Err: err}
		}
		return results, err
	}
	if err := run(t.tx); err != nil {
		return results, multierr.Append(err, e.finish(ctx, t, false, "rolled back after a failed batch"))
	}
	t.mu.Unlock()
	return results, nil
}
