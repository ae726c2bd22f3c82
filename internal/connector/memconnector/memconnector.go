// Package memconnector is an in-process backend. Tables are slices of rows
// guarded by one mutex. Transactions read and write a private snapshot and
// log their writes; commit replays the log onto the live tables, so writes
// committed in the meantime survive. Integer sequences always advance on the
// live tables. It backs the engine's tests and the "memory" datasource
// provider.
package memconnector

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/ctxlog"
	"github.com/specialistvlad/querycore/internal/model"
	"github.com/specialistvlad/querycore/internal/record"
	"github.com/zclconf/go-cty/cty"
	"golang.org/x/sync/semaphore"
)

// Name is reported by Connector.Name.
const Name = "memory"

// RawHandler answers raw queries. The memory backend has no query language of
// its own, so raw passthrough is only available when one is installed.
type RawHandler func(ctx context.Context, query string, params []cty.Value) (record.ManyRecords, error)

// Option configures a Connector.
type Option func(*Connector)

// WithPoolSize bounds the number of connections checked out at once.
func WithPoolSize(n int64) Option {
	return func(c *Connector) { c.poolSize = n }
}

// WithRawHandler installs the handler serving QueryRaw and ExecuteRaw.
func WithRawHandler(h RawHandler) Option {
	return func(c *Connector) { c.raw = h }
}

// Connector is the in-memory backend.
type Connector struct {
	poolSize int64
	pool     *semaphore.Weighted
	raw      RawHandler

	mu     sync.Mutex
	tables tables
}

var _ connector.Connector = (*Connector)(nil)

// New creates an empty in-memory backend.
func New(opts ...Option) *Connector {
	c := &Connector{poolSize: 10, tables: make(tables)}
	for _, opt := range opts {
		opt(c)
	}
	c.pool = semaphore.NewWeighted(c.poolSize)
	return c
}

func (c *Connector) Name() string { return Name }

func (c *Connector) Capabilities() connector.Capabilities {
	return connector.Capabilities{Transactions: true, RawQueries: c.raw != nil, Returning: true}
}

// GetConnection checks out one of the pool's slots.
func (c *Connector) GetConnection(ctx context.Context) (connector.Connection, error) {
	if !c.pool.TryAcquire(1) {
		ctxlog.FromContext(ctx).Debug("Connection pool saturated, waiting.", "connector", Name, "size", c.poolSize)
		if err := c.pool.Acquire(ctx, 1); err != nil {
			return nil, connector.NewError(connector.ErrAcquisitionTimeout, Name, err)
		}
	}
	return &conn{c: c}, nil
}

// conn runs statements directly against the shared tables.
type conn struct {
	c        *Connector
	released sync.Once
}

func (cn *conn) Close() error {
	cn.released.Do(func() { cn.c.pool.Release(1) })
	return nil
}

func (cn *conn) StartTransaction(ctx context.Context) (connector.Transaction, error) {
	cn.c.mu.Lock()
	snapshot := cn.c.tables.clone()
	cn.c.mu.Unlock()

	ctxlog.FromContext(ctx).Debug("Snapshot transaction opened.", "connector", Name)
	return &tx{c: cn.c, tables: snapshot}, nil
}

func (cn *conn) exec(fn func(tables) error) error {
	cn.c.mu.Lock()
	defer cn.c.mu.Unlock()
	return fn(cn.c.tables)
}

func (cn *conn) CreateRecord(ctx context.Context, m *model.Model, args connector.WriteArgs) (out record.SingleRecord, err error) {
	err = cn.exec(func(t tables) error {
		out, _, err = t.create(m, args, generator(func() int64 { return t.nextID(m) }))
		return err
	})
	return out, err
}

func (cn *conn) UpdateRecords(ctx context.Context, m *model.Model, f connector.Filter, args connector.WriteArgs) (out record.ManyRecords, err error) {
	err = cn.exec(func(t tables) error {
		out, err = t.update(m, f, args)
		return err
	})
	return out, err
}

func (cn *conn) DeleteRecords(ctx context.Context, m *model.Model, f connector.Filter) (out record.ManyRecords, err error) {
	err = cn.exec(func(t tables) error {
		out = t.delete(m, f)
		return nil
	})
	return out, err
}

func (cn *conn) GetManyRecords(ctx context.Context, m *model.Model, f connector.Filter, columns []string) (out record.ManyRecords, err error) {
	err = cn.exec(func(t tables) error {
		out, err = t.find(m, f, columns)
		return err
	})
	return out, err
}

func (cn *conn) QueryRaw(ctx context.Context, query string, params []cty.Value) (record.ManyRecords, error) {
	return cn.c.queryRaw(ctx, query, params)
}

func (cn *conn) ExecuteRaw(ctx context.Context, query string, params []cty.Value) (int, error) {
	res, err := cn.c.queryRaw(ctx, query, params)
	return res.Len(), err
}

func (c *Connector) queryRaw(ctx context.Context, query string, params []cty.Value) (record.ManyRecords, error) {
	if c.raw == nil {
		return record.ManyRecords{}, connector.Errorf(connector.ErrUnsupported, Name, "raw queries need a raw handler")
	}
	return c.raw(ctx, query, params)
}

// nextID draws from the live sequence of m.
func (c *Connector) nextID(m *model.Model) int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tables.nextID(m)
}

// tx works on a private copy of the tables. log holds its writes in order.
type tx struct {
	c *Connector

	mu     sync.Mutex
	tables tables
	log    []func(tables) error
	closed bool
}

func (t *tx) exec(fn func(tables) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return connector.NewError(connector.ErrTransactionClosed, Name, nil)
	}
	return fn(t.tables)
}

func (t *tx) CreateRecord(ctx context.Context, m *model.Model, args connector.WriteArgs) (out record.SingleRecord, err error) {
	err = t.exec(func(tb tables) error {
		var row connector.Row
		if out, row, err = tb.create(m, args, generator(func() int64 { return t.c.nextID(m) })); err != nil {
			return err
		}
		t.log = append(t.log, func(live tables) error {
			_, err := live.insert(m, row)
			return err
		})
		return nil
	})
	return out, err
}

func (t *tx) UpdateRecords(ctx context.Context, m *model.Model, f connector.Filter, args connector.WriteArgs) (out record.ManyRecords, err error) {
	err = t.exec(func(tb tables) error {
		if out, err = tb.update(m, f, args); err != nil {
			return err
		}
		t.log = append(t.log, func(live tables) error {
			_, err := live.update(m, f, args)
			return err
		})
		return nil
	})
	return out, err
}

func (t *tx) DeleteRecords(ctx context.Context, m *model.Model, f connector.Filter) (out record.ManyRecords, err error) {
	err = t.exec(func(tb tables) error {
		out = tb.delete(m, f)
		t.log = append(t.log, func(live tables) error {
			live.delete(m, f)
			return nil
		})
		return nil
	})
	return out, err
}

func (t *tx) GetManyRecords(ctx context.Context, m *model.Model, f connector.Filter, columns []string) (out record.ManyRecords, err error) {
	err = t.exec(func(tb tables) error {
		out, err = tb.find(m, f, columns)
		return err
	})
	return out, err
}

func (t *tx) QueryRaw(ctx context.Context, query string, params []cty.Value) (out record.ManyRecords, err error) {
	err = t.exec(func(tables) error {
		out, err = t.c.queryRaw(ctx, query, params)
		return err
	})
	return out, err
}

func (t *tx) ExecuteRaw(ctx context.Context, query string, params []cty.Value) (int, error) {
	res, err := t.QueryRaw(ctx, query, params)
	return res.Len(), err
}

// Commit replays the logged writes onto a copy of the live tables and swaps
// it in. A write that conflicts with data committed since the snapshot fails
// the commit and leaves the live tables untouched.
func (t *tx) Commit(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return connector.NewError(connector.ErrTransactionClosed, Name, nil)
	}
	t.closed = true
	t.tables = nil

	t.c.mu.Lock()
	defer t.c.mu.Unlock()
	staged := t.c.tables.clone()
	for _, apply := range t.log {
		if err := apply(staged); err != nil {
			ctxlog.FromContext(ctx).Debug("Snapshot transaction conflicts with committed data.", "connector", Name, "error", err)
			return err
		}
	}
	t.c.tables = staged

	ctxlog.FromContext(ctx).Debug("Snapshot transaction committed.", "connector", Name, slog.Int("writes", len(t.log)))
	return nil
}

func (t *tx) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return connector.NewError(connector.ErrTransactionClosed, Name, nil)
	}
	t.closed = true
	t.tables = nil
	t.log = nil
	return nil
}

func newUUID() string {
	return uuid.NewString()
}
