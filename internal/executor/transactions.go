package executor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/ctxlog"
	"go.uber.org/multierr"
)

// openTx is a registered transaction. mu is held by whoever is using the
// transaction; done is set once it has been committed or rolled back.
type openTx struct {
	id   TxID
	conn connector.Connection
	tx   connector.Transaction
	mu   sync.Mutex
	done bool
}

// StartTx implements TransactionManager. A non-positive validFor falls back
// to the executor's default validity.
func (e *InterpretingExecutor) StartTx(ctx context.Context, maxAcquisition, validFor time.Duration) (TxID, error) {
	logger := ctxlog.FromContext(ctx)
	if validFor <= 0 {
		validFor = e.defaultValidFor
	}

	acqCtx, cancel := context.WithTimeout(ctx, maxAcquisition)
	defer cancel()

	conn, err := e.connector.GetConnection(acqCtx)
	if err != nil {
		e.metrics.transactions.WithLabelValues(outcomeFailed).Inc()
		return NoTx, fmt.Errorf("starting transaction: %w", err)
	}
	tx, err := conn.StartTransaction(acqCtx)
	if err != nil {
		e.metrics.transactions.WithLabelValues(outcomeFailed).Inc()
		return NoTx, fmt.Errorf("starting transaction: %w", multierr.Append(err, conn.Close()))
	}

	id := TxID(e.newID())
	// Registered up front so a lookup racing the eviction callback still
	// reports the expiry. finish replaces it.
	e.closed.Set(string(id), expiredError(id), validFor+closedRetention)
	e.txs.Set(string(id), &openTx{id: id, conn: conn, tx: tx}, validFor)
	e.metrics.transactions.WithLabelValues(outcomeStarted).Inc()
	logger.Info("Transaction started.", "tx", id, "valid_for", validFor)
	return id, nil
}

// CommitTx implements TransactionManager.
func (e *InterpretingExecutor) CommitTx(ctx context.Context, id TxID) error {
	t, err := e.lookup(id)
	if err != nil {
		return err
	}
	return e.finish(ctx, t, true, "committed")
}

// RollbackTx implements TransactionManager.
func (e *InterpretingExecutor) RollbackTx(ctx context.Context, id TxID) error {
	t, err := e.lookup(id)
	if err != nil {
		return err
	}
	return e.finish(ctx, t, false, "rolled back")
}

// Close rolls back every open transaction.
func (e *InterpretingExecutor) Close(ctx context.Context) error {
	e.txs.DeleteExpired()

	var err error
	for _, item := range e.txs.Items() {
		t := item.Object.(*openTx)
		t.mu.Lock()
		if t.done {
			t.mu.Unlock()
			continue
		}
		err = multierr.Append(err, e.finish(ctx, t, false, "rolled back on shutdown"))
	}
	return err
}

// lookup returns the open transaction id names, locked for exclusive use.
// The caller must unlock it or pass it to finish.
func (e *InterpretingExecutor) lookup(id TxID) (*openTx, error) {
	v, ok := e.txs.Get(string(id))
	if !ok {
		// Expired entries stay in the cache until the next cleanup; evict
		// them now so the transaction is rolled back and remembered.
		e.txs.DeleteExpired()
		return nil, e.closedReason(id)
	}

	t := v.(*openTx)
	t.mu.Lock()
	if t.done {
		t.mu.Unlock()
		return nil, e.closedReason(id)
	}
	return t, nil
}

func expiredError(id TxID) error {
	return fmt.Errorf("transaction %s: %w", id, ErrTransactionExpired)
}

func (e *InterpretingExecutor) closedReason(id TxID) error {
	if reason, ok := e.closed.Get(string(id)); ok {
		return reason.(error)
	}
	return fmt.Errorf("%w: %s", ErrTransactionNotFound, id)
}

// finish commits or rolls back t, releases its connection and unregisters
// it. t must be locked; finish unlocks it.
func (e *InterpretingExecutor) finish(ctx context.Context, t *openTx, commit bool, how string) error {
	logger := ctxlog.FromContext(ctx)

	t.done = true
	var err error
	outcome := outcomeRolledBack
	if commit {
		outcome = outcomeCommitted
		err = t.tx.Commit(ctx)
	} else {
		err = t.tx.Rollback(ctx)
	}
	if err != nil {
		outcome = outcomeFailed
	}
	err = multierr.Append(err, t.conn.Close())

	e.closed.SetDefault(string(t.id), fmt.Errorf("transaction %s already %s: %w", t.id, how, ErrTransactionClosed))
	t.mu.Unlock()
	e.txs.Delete(string(t.id))

	e.metrics.transactions.WithLabelValues(outcome).Inc()
	if err != nil {
		logger.Error("Transaction termination failed.", "tx", t.id, "commit", commit, "error", err)
		return err
	}
	logger.Info("Transaction finished.", "tx", t.id, "outcome", outcome)
	return nil
}

// evicted runs when an entry leaves the registry. Entries finished through
// finish are already done; anything else has expired and is rolled back.
func (e *InterpretingExecutor) evicted(key string, v any) {
	t := v.(*openTx)
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true

	e.closed.SetDefault(key, expiredError(t.id))
	err := multierr.Append(t.tx.Rollback(context.Background()), t.conn.Close())
	e.metrics.transactions.WithLabelValues(outcomeExpired).Inc()
	if err != nil {
		e.logger.Error("Rolling back expired transaction failed.", "tx", t.id, "error", err)
		return
	}
	e.logger.Warn("Transaction expired and was rolled back.", "tx", t.id)
}
