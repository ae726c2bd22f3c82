// Package boltconnector stores models in a bbolt file: one bucket per model,
// one key per row, rows encoded as cty JSON objects. bbolt allows a single
// writer, so every write transaction first takes the connector's writer slot,
// which is what makes acquisition timeouts observable.
package boltconnector

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/ctxlog"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/record"
	"github.com/zclconf/go-cty/cty"
	bolt "go.etcd.io/bbolt"
	"golang.org/x/sync/semaphore"
)

// Name is reported by Connector.Name.
const Name = "bolt"

// Option configures a Connector.
type Option func(*Connector)

// WithPoolSize bounds the number of connections checked out at once.
func WithPoolSize(n int64) Option {
	return func(c *Connector) { c.poolSize = n }
}

// WithFileLockTimeout bounds how long Open waits for the file lock held by
// another process.
func WithFileLockTimeout(d time.Duration) Option {
	return func(c *Connector) { c.lockTimeout = d }
}

// Connector is the bbolt backend.
type Connector struct {
	db          *bolt.DB
	path        string
	poolSize    int64
	lockTimeout time.Duration

	pool   *semaphore.Weighted
	writer *semaphore.Weighted
}

var _ connector.Connector = (*Connector)(nil)

// Open opens (or creates) the database file at path.
func Open(path string, opts ...Option) (*Connector, error) {
	c := &Connector{path: path, poolSize: 10, lockTimeout: time.Second}
	for _, opt := range opts {
		opt(c)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: c.lockTimeout})
	if err != nil {
		return nil, connector.NewError(connector.ErrConnectionFailure, Name, fmt.Errorf("open %s: %w", path, err))
	}
	c.db = db
	c.pool = semaphore.NewWeighted(c.poolSize)
	c.writer = semaphore.NewWeighted(1)
	return c, nil
}

// Close closes the database file.
func (c *Connector) Close() error {
	return c.db.Close()
}

func (c *Connector) Name() string { return Name }

func (c *Connector) Capabilities() connector.Capabilities {
	return connector.Capabilities{Transactions: true, Returning: true}
}

// GetConnection checks out one of the pool's slots.
func (c *Connector) GetConnection(ctx context.Context) (connector.Connection, error) {
	if err := acquire(ctx, c.pool); err != nil {
		return nil, err
	}
	return &conn{c: c}, nil
}

func acquire(ctx context.Context, sem *semaphore.Weighted) error {
	if sem.TryAcquire(1) {
		return nil
	}
	if err := sem.Acquire(ctx, 1); err != nil {
		return connector.NewError(connector.ErrAcquisitionTimeout, Name, err)
	}
	return nil
}

type conn struct {
	c        *Connector
	released sync.Once
}

func (cn *conn) Close() error {
	cn.released.Do(func() { cn.c.pool.Release(1) })
	return nil
}

// StartTransaction takes the writer slot and opens a writable bbolt
// transaction. The slot is held until Commit or Rollback.
func (cn *conn) StartTransaction(ctx context.Context) (connector.Transaction, error) {
	if err := acquire(ctx, cn.c.writer); err != nil {
		return nil, err
	}
	btx, err := cn.c.db.Begin(true)
	if err != nil {
		cn.c.writer.Release(1)
		return nil, connector.NewError(connector.ErrConnectionFailure, Name, err)
	}
	ctxlog.FromContext(ctx).Debug("Write transaction opened.", "connector", Name, "path", cn.c.path)
	return &tx{c: cn.c, btx: btx}, nil
}

func (cn *conn) update(ctx context.Context, fn func(*bolt.Tx) error) error {
	if err := acquire(ctx, cn.c.writer); err != nil {
		return err
	}
	defer cn.c.writer.Release(1)
	return wrap(cn.c.db.Update(fn))
}

func (cn *conn) view(fn func(*bolt.Tx) error) error {
	return wrap(cn.c.db.View(fn))
}

func (cn *conn) CreateRecord(ctx context.Context, m *model.Model, args connector.WriteArgs) (out record.SingleRecord, err error) {
	err = cn.update(ctx, func(btx *bolt.Tx) error {
		out, err = create(btx, m, args)
		return err
	})
	return out, err
}

func (cn *conn) UpdateRecords(ctx context.Context, m *model.Model, f connector.Filter, args connector.WriteArgs) (out record.ManyRecords, err error) {
	err = cn.update(ctx, func(btx *bolt.Tx) error {
		out, err = update(btx, m, f, args)
		return err
	})
	return out, err
}

func (cn *conn) DeleteRecords(ctx context.Context, m *model.Model, f connector.Filter) (out record.ManyRecords, err error) {
	err = cn.update(ctx, func(btx *bolt.Tx) error {
		out, err = remove(btx, m, f)
		return err
	})
	return out, err
}

func (cn *conn) GetManyRecords(ctx context.Context, m *model.Model, f connector.Filter, columns []string) (out record.ManyRecords, err error) {
	err = cn.view(func(btx *bolt.Tx) error {
		out, err = find(btx, m, f, columns)
		return err
	})
	return out, err
}

func (cn *conn) QueryRaw(context.Context, string, []cty.Value) (record.ManyRecords, error) {
	return record.ManyRecords{}, errRaw
}

func (cn *conn) ExecuteRaw(context.Context, string, []cty.Value) (int, error) {
	return 0, errRaw
}

var errRaw = connector.Errorf(connector.ErrUnsupported, Name, "bbolt has no query language")

type tx struct {
	c *Connector

	mu     sync.Mutex
	btx    *bolt.Tx
	closed bool
}

func (t *tx) exec(fn func(*bolt.Tx) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return connector.NewError(connector.ErrTransactionClosed, Name, nil)
	}
	return fn(t.btx)
}

func (t *tx) CreateRecord(_ context.Context, m *model.Model, args connector.WriteArgs) (out record.SingleRecord, err error) {
	err = t.exec(func(btx *bolt.Tx) error {
		out, err = create(btx, m, args)
		return err
	})
	return out, err
}

func (t *tx) UpdateRecords(_ context.Context, m *model.Model, f connector.Filter, args connector.WriteArgs) (out record.ManyRecords, err error) {
	err = t.exec(func(btx *bolt.Tx) error {
		out, err = update(btx, m, f, args)
		return err
	})
	return out, err
}

func (t *tx) DeleteRecords(_ context.Context, m *model.Model, f connector.Filter) (out record.ManyRecords, err error) {
	err = t.exec(func(btx *bolt.Tx) error {
		out, err = remove(btx, m, f)
		return err
	})
	return out, err
}

func (t *tx) GetManyRecords(_ context.Context, m *model.Model, f connector.Filter, columns []string) (out record.ManyRecords, err error) {
	err = t.exec(func(btx *bolt.Tx) error {
		out, err = find(btx, m, f, columns)
		return err
	})
	return out, err
}

func (t *tx) QueryRaw(context.Context, string, []cty.Value) (record.ManyRecords, error) {
	return record.ManyRecords{}, errRaw
}

func (t *tx) ExecuteRaw(context.Context, string, []cty.Value) (int, error) {
	return 0, errRaw
}

func (t *tx) Commit(context.Context) error {
	return t.finish((*bolt.Tx).Commit)
}

func (t *tx) Rollback(context.Context) error {
	return t.finish((*bolt.Tx).Rollback)
}

func (t *tx) finish(end func(*bolt.Tx) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return connector.NewError(connector.ErrTransactionClosed, Name, nil)
	}
	t.closed = true
	defer t.c.writer.Release(1)
	return wrap(end(t.btx))
}

// wrap tags plain bbolt errors; connector errors pass through.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*connector.Error); ok {
		return err
	}
	return connector.NewError(connector.ErrQueryFailure, Name, err)
}
