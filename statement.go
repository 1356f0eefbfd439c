package fbsql

import (
	"context"
	"database/sql/driver"

	"github.com/pkg/errors"

	fberrs "github.com/firebolt-db/firebolt-sql-go/internal/errors"
)

// stmt keeps the query text, arguments are inlined on every execution.
type stmt struct {
	conn  *conn
	query string
}

func (s *stmt) Close() error {
	return nil
}

// NumInput is unknown since both ? and %(name)s placeholders are accepted.
func (s *stmt) NumInput() int {
	return -1
}

// Deprecated: Use StmtExecContext instead.
func (s *stmt) Exec(args []driver.Value) (driver.Result, error) {
	return nil, errors.New(fberrs.ErrNotImplemented)
}

// Deprecated: Use StmtQueryContext instead.
func (s *stmt) Query(args []driver.Value) (driver.Rows, error) {
	return nil, errors.New(fberrs.ErrNotImplemented)
}

// ExecContext executes a query that doesn't return rows, such
// as an INSERT or UPDATE.
//
// ExecContext must honor the context timeout and return when it is canceled.
func (s *stmt) ExecContext(ctx context.Context, args []driver.NamedValue) (driver.Result, error) {
	return s.conn.ExecContext(ctx, s.query, args)
}

// QueryContext executes a query that may return rows, such as a
// SELECT.
//
// QueryContext must honor the context timeout and return when it is canceled.
func (s *stmt) QueryContext(ctx context.Context, args []driver.NamedValue) (driver.Rows, error) {
	return s.conn.QueryContext(ctx, s.query, args)
}

var _ driver.Stmt = (*stmt)(nil)
var _ driver.StmtExecContext = (*stmt)(nil)
var _ driver.StmtQueryContext = (*stmt)(nil)
