package rows

import (
	"database/sql"
	"database/sql/driver"
	"io"
	"math"
	"reflect"

	"github.com/goccy/go-json"
	"github.com/pkg/errors"

	fberr "github.com/firebolt-db/firebolt-sql-go/errors"
	fblog "github.com/firebolt-db/firebolt-sql-go/logger"
	fbrows "github.com/firebolt-db/firebolt-sql-go/rows"
)

// Cursor is the source of rows for a database/sql result set.
type Cursor interface {
	FetchOne() (*fbrows.Row, error)
	Description() ([]fbrows.ColumnDescriptor, error)
	Close() error
}

// rows implements the following interfaces from database.sql.driver
// Rows
// RowsColumnTypeScanType
// RowsColumnTypeDatabaseTypeName
// RowsColumnTypeNullable
// RowsColumnTypeLength
type rows struct {
	cursor Cursor

	// Column metadata inferred from the first row, nil for an empty result
	description []fbrows.ColumnDescriptor

	// Row number within the overall result set
	nextRowNumber int64

	closed bool

	logger_ *fblog.FBLogger
}

var _ driver.Rows = (*rows)(nil)
var _ driver.RowsColumnTypeScanType = (*rows)(nil)
var _ driver.RowsColumnTypeDatabaseTypeName = (*rows)(nil)
var _ driver.RowsColumnTypeNullable = (*rows)(nil)
var _ driver.RowsColumnTypeLength = (*rows)(nil)

// NewRows wraps an executed cursor. The ids are only used for logging.
func NewRows(connId, correlationId, queryId string, cursor Cursor) (driver.Rows, error) {
	logger := fblog.WithContext(connId, correlationId, queryId)

	if cursor == nil {
		logger.Error().Msg(errRowsNoCursor)
		return nil, errors.New(errRowsNoCursor)
	}

	description, err := cursor.Description()
	if err != nil {
		logger.Err(err).Msg(errRowsMetadataFetchFailed)
		return nil, err
	}

	logger.Debug().Msgf("firebolt: creating Rows, columns: %d", len(description))

	return &rows{
		cursor:      cursor,
		description: description,
		logger_:     logger,
	}, nil
}

// Columns returns the names of the columns. An empty result has no columns.
func (r *rows) Columns() []string {
	if err := isValidRows(r); err != nil {
		return []string{}
	}

	colNames := make([]string, len(r.description))
	for i := range r.description {
		colNames[i] = r.description[i].Name
	}
	return colNames
}

// Close closes the rows iterator and the underlying cursor.
func (r *rows) Close() error {
	if r == nil || r.closed {
		return nil
	}
	r.closed = true

	r.logger().Debug().Msgf("firebolt: closing Rows after %d rows", r.nextRowNumber)

	// the connection may already have closed the cursor
	if err := r.cursor.Close(); err != nil && !errors.Is(err, fberr.ProtocolStateError) {
		r.logger().Err(err).Msg(errRowsCloseFailed)
		return err
	}
	return nil
}

// Next is called to populate the next row of data into
// the provided slice. The provided slice will be the same
// size as the number of columns.
//
// Next returns io.EOF when there are no more rows.
func (r *rows) Next(dest []driver.Value) error {
	if err := isValidRows(r); err != nil {
		return err
	}

	row, err := r.cursor.FetchOne()
	if err != nil {
		return err
	}
	if row == nil {
		return io.EOF
	}

	if len(row.Values) != len(dest) {
		return errors.Errorf(errRowsColumnCountMismatch, len(row.Values), len(dest))
	}

	for i, v := range row.Values {
		dv, err := driverValue(v)
		if err != nil {
			return errors.Wrap(err, errRowsInvalidColumnIndex(i))
		}
		dest[i] = dv
	}

	r.nextRowNumber++
	return nil
}

// ColumnTypeScanType returns column's native type
func (r *rows) ColumnTypeScanType(index int) reflect.Type {
	column, err := r.getColumnMetadataByIndex(index)
	if err != nil {
		return scanTypeUnknown
	}

	return getScanType(column)
}

// ColumnTypeDatabaseTypeName returns column's database type name
func (r *rows) ColumnTypeDatabaseTypeName(index int) string {
	column, err := r.getColumnMetadataByIndex(index)
	if err != nil {
		return ""
	}

	return column.Type.DatabaseTypeName()
}

// ColumnTypeNullable returns a flag indicating whether the column is nullable.
// Only text columns are, since null is classified as text.
func (r *rows) ColumnTypeNullable(index int) (nullable, ok bool) {
	column, err := r.getColumnMetadataByIndex(index)
	if err != nil {
		return false, false
	}
	return column.NullOK, true
}

func (r *rows) ColumnTypeLength(index int) (length int64, ok bool) {
	column, err := r.getColumnMetadataByIndex(index)
	if err != nil {
		return 0, false
	}

	switch column.Type {
	case fbrows.String, fbrows.Array:
		return math.MaxInt64, true
	default:
		return 0, false
	}
}

var (
	scanTypeBoolean  = reflect.TypeOf(true)
	scanTypeFloat64  = reflect.TypeOf(float64(0))
	scanTypeString   = reflect.TypeOf(sql.NullString{})
	scanTypeRawBytes = reflect.TypeOf(sql.RawBytes{})
	scanTypeUnknown  = reflect.TypeOf(new(any))
)

// getScanType maps a column kind to a Go type. Number columns report float64,
// the widest type their values take: integral values are still delivered as
// int64 by Next and convert to float64 when scanned.
func getScanType(column *fbrows.ColumnDescriptor) reflect.Type {
	switch column.Type {
	case fbrows.String:
		return scanTypeString
	case fbrows.Number:
		return scanTypeFloat64
	case fbrows.Boolean:
		return scanTypeBoolean
	case fbrows.Array:
		return scanTypeRawBytes
	default:
		return scanTypeUnknown
	}
}

// driverValue converts a decoded value to a driver.Value. Arrays are
// delivered as their JSON text.
func driverValue(v any) (driver.Value, error) {
	switch t := v.(type) {
	case nil, string, bool, int64, float64:
		return t, nil
	case []any:
		b, err := json.Marshal(t)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return driver.DefaultParameterConverter.ConvertValue(v)
	}
}

// isValidRows checks that the row instance is not nil
// and that it has a cursor
func isValidRows(r *rows) error {
	if r == nil {
		return errors.New(errRowsNilRows)
	}

	if r.cursor == nil {
		r.logger().Error().Msg(errRowsNoCursor)
		return errors.New(errRowsNoCursor)
	}

	return nil
}

func (r *rows) getColumnMetadataByIndex(index int) (*fbrows.ColumnDescriptor, error) {
	if err := isValidRows(r); err != nil {
		return nil, err
	}

	if index < 0 || index >= len(r.description) {
		return nil, errors.New(errRowsInvalidColumnIndex(index))
	}

	return &r.description[index], nil
}

func (r *rows) logger() *fblog.FBLogger {
	if r.logger_ == nil {
		r.logger_ = fblog.Logger
	}
	return r.logger_
}
