package fbsql

import (
	"context"
	"database/sql/driver"
	"reflect"

	"github.com/pkg/errors"

	"github.com/firebolt-db/firebolt-sql-go/driverctx"
	fberr "github.com/firebolt-db/firebolt-sql-go/errors"
	fberrs "github.com/firebolt-db/firebolt-sql-go/internal/errors"
	"github.com/firebolt-db/firebolt-sql-go/internal/config"
	"github.com/firebolt-db/firebolt-sql-go/internal/rows"
	"github.com/firebolt-db/firebolt-sql-go/logger"
)

// conn adapts a Connection to database/sql.
type conn struct {
	id  string
	cfg *config.Config
	fbc *Connection
}

// The driver does not really implement prepared statements.
func (c *conn) Prepare(query string) (driver.Stmt, error) {
	return &stmt{conn: c, query: query}, nil
}

// The driver does not really implement prepared statements.
func (c *conn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	return &stmt{conn: c, query: query}, nil
}

func (c *conn) Close() error {
	log := logger.WithContext(c.id, "", "")
	log.Info().Msg("closing connection")

	err := c.fbc.Close()
	if err != nil && !errors.Is(err, fberr.ProtocolStateError) {
		log.Err(err).Msg("failed to close connection")
		return driver.ErrBadConn
	}
	return nil
}

// Not supported in Firebolt.
func (c *conn) Begin() (driver.Tx, error) {
	return nil, errors.New(fberrs.ErrTransactionsNotSupported)
}

// Not supported in Firebolt.
func (c *conn) BeginTx(ctx context.Context, opts driver.TxOptions) (driver.Tx, error) {
	return nil, errors.New(fberrs.ErrTransactionsNotSupported)
}

// Ping attempts to verify that the server is accessible.
// Returns ErrBadConn if ping fails and consequently DB.Ping will remove the conn from the pool.
func (c *conn) Ping(ctx context.Context) error {
	log := logger.WithContext(c.id, driverctx.CorrelationIdFromContext(ctx), "")
	ctx = driverctx.NewContextWithConnId(ctx, c.id)

	cur, err := c.fbc.Cursor()
	if err != nil {
		return driver.ErrBadConn
	}
	defer cur.Close()

	if _, err := cur.Execute(ctx, "SELECT 1", nil); err != nil {
		log.Err(err).Msg("firebolt: failed to ping")
		return driver.ErrBadConn
	}
	if _, err := cur.FetchAll(); err != nil {
		log.Err(err).Msg("firebolt: failed to ping")
		return driver.ErrBadConn
	}
	return nil
}

// ResetSession is called prior to executing a query on the connection.
// The session settings of the connection are kept.
func (c *conn) ResetSession(ctx context.Context) error {
	if c.fbc.Closed() {
		return driver.ErrBadConn
	}
	return nil
}

// IsValid signals whether a connection is valid or if it should be discarded.
func (c *conn) IsValid() bool {
	return !c.fbc.Closed()
}

// ExecContext executes a query that doesn't return rows, such
// as an INSERT or UPDATE.
//
// ExecContext honors the context timeout and return when it is canceled.
// Statement is not being supported in the driver, so the number of
// affected rows is always 0.
func (c *conn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	corrId := driverctx.CorrelationIdFromContext(ctx)
	log := logger.WithContext(c.id, corrId, "")
	msg, start := logger.Track("ExecContext")
	defer log.Duration(msg, start)

	cur, err := c.execute(ctx, query, args)
	if err != nil {
		log.Err(err).Msg("firebolt: failed to execute query")
		return nil, err
	}
	defer cur.Close()

	// read the response to its end so that statement errors are reported
	if _, err := cur.FetchAll(); err != nil {
		log.Err(err).Msg("firebolt: failed to execute query")
		return nil, err
	}

	return &result{}, nil
}

// QueryContext executes a query that may return rows, such as a
// SELECT.
//
// QueryContext honors the context timeout and return when it is canceled.
// Rows are decoded while they are scanned.
func (c *conn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	corrId := driverctx.CorrelationIdFromContext(ctx)
	log := logger.WithContext(c.id, corrId, "")
	msg, start := logger.Track("QueryContext")
	defer log.Duration(msg, start)

	cur, err := c.execute(ctx, query, args)
	if err != nil {
		log.Err(err).Msg("firebolt: failed to run query")
		return nil, err
	}

	return rows.NewRows(c.id, corrId, cur.QueryId(), cur)
}

// execute returns an executed cursor, closed again when execution fails.
func (c *conn) execute(ctx context.Context, query string, args []driver.NamedValue) (*Cursor, error) {
	ctx = driverctx.NewContextWithConnId(ctx, c.id)

	statement, err := SubstituteArgs(query, args)
	if err != nil {
		return nil, err
	}

	cur, err := c.fbc.Cursor()
	if err != nil {
		return nil, err
	}

	if _, err := cur.Execute(ctx, statement, nil); err != nil {
		_ = cur.Close()
		return nil, err
	}
	return cur, nil
}

// CheckNamedValue accepts slices so that they can be expanded into SQL lists.
// Everything else goes through the default conversion.
func (c *conn) CheckNamedValue(nv *driver.NamedValue) error {
	if nv.Value != nil {
		k := reflect.TypeOf(nv.Value).Kind()
		if (k == reflect.Slice || k == reflect.Array) && !isBytes(nv.Value) {
			return nil
		}
	}

	v, err := driver.DefaultParameterConverter.ConvertValue(nv.Value)
	if err != nil {
		return err
	}
	nv.Value = v
	return nil
}

func isBytes(v any) bool {
	_, ok := v.([]byte)
	return ok
}

var _ driver.Conn = (*conn)(nil)
var _ driver.Pinger = (*conn)(nil)
var _ driver.SessionResetter = (*conn)(nil)
var _ driver.Validator = (*conn)(nil)
var _ driver.ExecerContext = (*conn)(nil)
var _ driver.QueryerContext = (*conn)(nil)
var _ driver.ConnPrepareContext = (*conn)(nil)
var _ driver.ConnBeginTx = (*conn)(nil)
var _ driver.NamedValueChecker = (*conn)(nil)
