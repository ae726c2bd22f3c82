// Package sqlconnector runs the engine against a MySQL-compatible database
// through database/sql. Statements are generated per call with positional
// placeholders; rows written are read back by primary key so callers always
// receive every column, including generated ones.
package sqlconnector

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"sync"

	"github.com/go-sql-driver/mysql"
	"github.com/specialistvlad/querycore/internal/connector"
	"github.com/specialistvlad/querycore/internal/ctxlog"
	"golang.org/x/sync/semaphore"
)

// Name is reported by Connector.Name.
const Name = "mysql"

// Option configures a Connector.
type Option func(*Connector)

// WithPoolSize bounds the number of connections checked out at once. It is
// also applied as the database handle's open connection limit.
func WithPoolSize(n int64) Option {
	return func(c *Connector) { c.poolSize = n }
}

// Connector is the database/sql backend.
type Connector struct {
	db       *sql.DB
	poolSize int64
	pool     *semaphore.Weighted
}

var _ connector.Connector = (*Connector)(nil)

// Open opens a MySQL database from a DSN such as
// "user:pass@tcp(localhost:3306)/blog". No connection is made until first use.
func Open(dsn string, opts ...Option) (*Connector, error) {
	if _, err := mysql.ParseDSN(dsn); err != nil {
		return nil, connector.NewError(connector.ErrConnectionFailure, Name, fmt.Errorf("invalid dsn: %w", err))
	}
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, connector.NewError(connector.ErrConnectionFailure, Name, err)
	}
	return New(db, opts...), nil
}

// New wraps an already opened database handle.
func New(db *sql.DB, opts ...Option) *Connector {
	c := &Connector{db: db, poolSize: 10}
	for _, opt := range opts {
		opt(c)
	}
	db.SetMaxOpenConns(int(c.poolSize))
	c.pool = semaphore.NewWeighted(c.poolSize)
	return c
}

// Close closes the database handle.
func (c *Connector) Close() error {
	return c.db.Close()
}

func (c *Connector) Name() string { return Name }

func (c *Connector) Capabilities() connector.Capabilities {
	return connector.Capabilities{Transactions: true, RawQueries: true}
}

// GetConnection reserves a pool slot and pins one physical connection to it.
func (c *Connector) GetConnection(ctx context.Context) (connector.Connection, error) {
	if !c.pool.TryAcquire(1) {
		if err := c.pool.Acquire(ctx, 1); err != nil {
			return nil, connector.NewError(connector.ErrAcquisitionTimeout, Name, err)
		}
	}
	// The slot keeps check-outs within MaxOpenConns, so this never waits on
	// the pool and is not bounded by the acquisition deadline.
	sc, err := c.db.Conn(context.WithoutCancel(ctx))
	if err != nil {
		c.pool.Release(1)
		return nil, normalize(err)
	}
	return &conn{queries: queries{db: sc}, c: c, sc: sc}, nil
}

// execer is satisfied by both *sql.Conn and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

type conn struct {
	queries
	c        *Connector
	sc       *sql.Conn
	released sync.Once
}

func (cn *conn) Close() error {
	var err error
	cn.released.Do(func() {
		err = cn.sc.Close()
		cn.c.pool.Release(1)
	})
	return err
}

// StartTransaction opens a transaction on the checked-out connection. ctx
// bounds opening only; the transaction lives until Commit or Rollback.
func (cn *conn) StartTransaction(ctx context.Context) (connector.Transaction, error) {
	stx, err := cn.sc.BeginTx(context.WithoutCancel(ctx), nil)
	if err != nil {
		return nil, normalize(err)
	}
	ctxlog.FromContext(ctx).Debug("SQL transaction opened.", "connector", Name)
	return &tx{queries: queries{db: stx}, stx: stx}, nil
}

type tx struct {
	queries
	stx *sql.Tx
}

func (t *tx) Commit(context.Context) error {
	return normalize(t.stx.Commit())
}

func (t *tx) Rollback(context.Context) error {
	return normalize(t.stx.Rollback())
}

// MySQL server error numbers mapped onto connector error kinds.
const (
	errDuplicateEntry    = 1062
	errBadNull           = 1048
	errNoDefaultForField = 1364
	errLockWaitTimeout   = 1205
)

func normalize(err error) error {
	if err == nil {
		return nil
	}
	var ce *connector.Error
	if errors.As(err, &ce) {
		return err
	}
	if errors.Is(err, sql.ErrTxDone) {
		return connector.NewError(connector.ErrTransactionClosed, Name, err)
	}
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) {
		return connector.NewError(connector.ErrConnectionFailure, Name, err)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		switch mysqlErr.Number {
		case errDuplicateEntry:
			return connector.NewError(connector.ErrUniqueConstraint, Name, err)
		case errBadNull, errNoDefaultForField:
			return connector.NewError(connector.ErrNullConstraint, Name, err)
		case errLockWaitTimeout:
			return connector.NewError(connector.ErrAcquisitionTimeout, Name, err)
		}
	}
	return connector.NewError(connector.ErrQueryFailure, Name, err)
}
