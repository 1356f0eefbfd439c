package fbsql

import (
	"context"
	"io"
	"iter"
	"regexp"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/firebolt-db/firebolt-sql-go/driverctx"
	fberrs "github.com/firebolt-db/firebolt-sql-go/internal/errors"
	"github.com/firebolt-db/firebolt-sql-go/internal/client"
	"github.com/firebolt-db/firebolt-sql-go/internal/rows/jsonstream"
	"github.com/firebolt-db/firebolt-sql-go/logger"
	"github.com/firebolt-db/firebolt-sql-go/rows"
)

// Cursor executes statements and fetches their rows.
//
// A cursor is created unopened, becomes executed after the first successful
// Execute and is closed by Close. Rows are decoded while they are fetched;
// only Execute waits for the first row, to describe the columns.
//
// A cursor must not be used from several goroutines at once.
type Cursor struct {
	conn *Connection

	mu        sync.Mutex
	executed  bool
	closed    bool
	arraySize int
	queryId   string

	description []rows.ColumnDescriptor

	// the first row, pushed back after describing the columns
	head *rows.Row
	// rows materialised by RowCount
	buffered []*rows.Row
	decoder  *jsonstream.Decoder
	body     io.ReadCloser

	logger_ *logger.FBLogger
}

func newCursor(conn *Connection) *Cursor {
	return &Cursor{conn: conn, arraySize: 1}
}

// SET <name> = <value>, where value is one token or one quoted literal.
// Anything else is sent to the engine as written.
var setStatement = regexp.MustCompile(`(?is)^\s*SET\s+([A-Za-z_][A-Za-z0-9_.]*)\s*=\s*('(?:[^']|'')*'|"[^"]*"|[^\s;'"]+)\s*;?\s*$`)

func parseSet(statement string) (name, value string, ok bool) {
	m := setStatement.FindStringSubmatch(statement)
	if m == nil {
		return "", "", false
	}
	value = m[2]
	switch value[0] {
	case '\'':
		value = strings.ReplaceAll(value[1:len(value)-1], "''", "'")
	case '"':
		value = value[1 : len(value)-1]
	}
	return m[1], value, true
}

// Execute runs statement after replacing its %(name)s placeholders with the
// escaped params. It waits for the first row to describe the result set.
// SET statements are not sent: they update the session settings of the
// connection. Executing again discards the previous result.
//
// The cursor is returned to allow chaining.
func (c *Cursor) Execute(ctx context.Context, statement string, params map[string]any) (*Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	ctx = c.conn.context(ctx)
	if c.closed {
		return nil, fberrs.NewProtocolStateError(ctx, fberrs.ErrCursorClosed)
	}

	query, err := ApplyParameters(statement, params)
	if err != nil {
		return nil, err
	}

	c.release()
	c.executed = false
	c.description = nil

	c.queryId = uuid.NewString()
	ctx = driverctx.NewContextWithQueryId(ctx, c.queryId)
	c.logger_ = logger.WithContext(c.conn.id, driverctx.CorrelationIdFromContext(ctx), c.queryId)
	msg, start := logger.Track("Execute")
	defer c.logger().Duration(msg, start)

	if name, value, ok := parseSet(query); ok {
		c.logger().Debug().Msgf("firebolt: session setting %s = %s", name, value)
		c.conn.setSetting(name, value)
		c.executed = true
		return c, nil
	}

	body, err := c.conn.transport.Submit(ctx, &client.QueryRequest{
		EngineURL: c.conn.engineURL,
		Database:  c.conn.cfg.Database,
		Query:     query,
		Settings:  c.conn.Settings(),
	})
	if err != nil {
		c.logger().Err(err).Msg("firebolt: query failed")
		return nil, err
	}
	c.body = body
	c.decoder = jsonstream.NewDecoder(ctx, jsonstream.ReaderChunks(body, c.conn.cfg.ChunkSize))

	first, err := c.decoder.Next()
	if err == io.EOF {
		c.logger().Debug().Msg("firebolt: empty result set")
		c.closeBody()
		c.executed = true
		return c, nil
	}
	if err != nil {
		c.release()
		return nil, err
	}

	description, err := rows.Describe(first)
	if err != nil {
		c.logger().Err(err).Msg("firebolt: could not describe result set")
		c.release()
		return nil, err
	}
	c.description = description
	if !c.conn.cfg.Header {
		c.head = first
	}
	c.executed = true

	return c, nil
}

// ExecuteMany is not supported.
func (c *Cursor) ExecuteMany(ctx context.Context, statement string, params []map[string]any) (*Cursor, error) {
	return nil, fberrs.NewProtocolStateError(c.conn.context(ctx), fberrs.ErrExecuteManyNotSupported)
}

// FetchOne returns the next row, or nil once the result set is exhausted.
func (c *Cursor) FetchOne() (*rows.Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkResult(); err != nil {
		return nil, err
	}
	return c.next()
}

// FetchMany returns up to size rows, fewer once the result set is exhausted.
// A size <= 0 fetches ArraySize rows.
func (c *Cursor) FetchMany(size int) ([]*rows.Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkResult(); err != nil {
		return nil, err
	}
	if size <= 0 {
		size = c.arraySize
	}

	result := make([]*rows.Row, 0, size)
	for len(result) < size {
		row, err := c.next()
		if err != nil {
			return result, err
		}
		if row == nil {
			break
		}
		result = append(result, row)
	}
	return result, nil
}

// FetchAll returns every remaining row.
func (c *Cursor) FetchAll() ([]*rows.Row, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkResult(); err != nil {
		return nil, err
	}
	return c.drain()
}

// RowCount returns the number of rows not fetched yet. It reads the rest of
// the result set into memory; later fetches return the same rows.
func (c *Cursor) RowCount() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkResult(); err != nil {
		return 0, err
	}

	remaining, err := c.drain()
	c.buffered = remaining
	return len(remaining), err
}

// All iterates over the remaining rows. Iteration stops after the first error.
func (c *Cursor) All() iter.Seq2[*rows.Row, error] {
	return func(yield func(*rows.Row, error) bool) {
		for {
			row, err := c.FetchOne()
			if err != nil {
				yield(nil, err)
				return
			}
			if row == nil || !yield(row, nil) {
				return
			}
		}
	}
}

// Description describes the columns of the result set, it is nil for an
// empty result.
func (c *Cursor) Description() ([]rows.ColumnDescriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.checkResult(); err != nil {
		return nil, err
	}
	return c.description, nil
}

// Truncated reports whether the response ended before the end of its rows.
// It is known once the result set has been read to its end.
func (c *Cursor) Truncated() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.decoder != nil && c.decoder.Truncated()
}

// ArraySize is the default number of rows returned by FetchMany.
func (c *Cursor) ArraySize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.arraySize
}

func (c *Cursor) SetArraySize(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if n > 0 {
		c.arraySize = n
	}
}

// QueryId identifies the last executed statement in logs.
func (c *Cursor) QueryId() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queryId
}

// SetInputSizes does nothing.
func (c *Cursor) SetInputSizes(sizes ...int) {}

// SetOutputSizes does nothing.
func (c *Cursor) SetOutputSizes(size int, column ...int) {}

// Closed reports whether Close has been called.
func (c *Cursor) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Close releases the result set. Closing twice is an error.
func (c *Cursor) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fberrs.NewProtocolStateError(c.conn.context(context.Background()), fberrs.ErrCursorClosed)
	}
	c.closed = true
	err := c.closeBody()
	c.head = nil
	c.buffered = nil
	c.mu.Unlock()

	c.conn.forget(c)
	return err
}

// checkResult reports a missing Execute before a closed cursor.
func (c *Cursor) checkResult() error {
	ctx := c.conn.context(context.Background())
	if !c.executed {
		return fberrs.NewProtocolStateError(ctx, fberrs.ErrCalledBeforeExecute)
	}
	if c.closed {
		return fberrs.NewProtocolStateError(ctx, fberrs.ErrCursorClosed)
	}
	return nil
}

// next returns the pushed back row, then the materialised rows, then the
// rows still to decode. It returns nil at the end.
func (c *Cursor) next() (*rows.Row, error) {
	if c.head != nil {
		row := c.head
		c.head = nil
		return row, nil
	}

	if len(c.buffered) > 0 {
		row := c.buffered[0]
		c.buffered[0] = nil
		c.buffered = c.buffered[1:]
		return row, nil
	}

	if c.body == nil {
		return nil, nil
	}

	row, err := c.decoder.Next()
	if err == io.EOF {
		c.closeBody()
		return nil, nil
	}
	if err != nil {
		c.logger().Err(err).Msg("firebolt: failed to read result set")
		c.closeBody()
		return nil, err
	}
	return row, nil
}

func (c *Cursor) drain() ([]*rows.Row, error) {
	result := []*rows.Row{}
	for {
		row, err := c.next()
		if err != nil {
			return result, err
		}
		if row == nil {
			return result, nil
		}
		result = append(result, row)
	}
}

// release drops the current result set.
func (c *Cursor) release() {
	c.closeBody()
	c.head = nil
	c.buffered = nil
	c.decoder = nil
}

func (c *Cursor) closeBody() error {
	if c.body == nil {
		return nil
	}
	err := c.body.Close()
	c.body = nil
	if err != nil && !strings.Contains(err.Error(), "closed") {
		c.logger().Err(err).Msg("firebolt: failed to close response body")
		return err
	}
	return nil
}

func (c *Cursor) logger() *logger.FBLogger {
	if c.logger_ == nil {
		c.logger_ = logger.WithContext(c.conn.id, "", c.queryId)
	}
	return c.logger_
}
