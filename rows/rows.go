package rows

import (
	"context"
	"reflect"
	"strings"

	fberrs "github.com/firebolt-db/firebolt-sql-go/internal/errors"
)

// Row is one record of a result set. Columns are in the order the server
// sent them and every row of a result set shares the same column list.
type Row struct {
	Columns []string
	Values  []any
}

// Get returns the value of the named column.
func (r *Row) Get(column string) (any, bool) {
	for i, c := range r.Columns {
		if c == column {
			return r.Values[i], true
		}
	}
	return nil, false
}

// Len returns the number of columns.
func (r *Row) Len() int {
	return len(r.Values)
}

// Kind is the semantic type of a column, inferred from its values.
type Kind int

const (
	String  Kind = 1 // includes null
	Number  Kind = 2
	Boolean Kind = 3
	Array   Kind = 4
)

var kindNames = map[Kind]string{
	String:  "STRING",
	Number:  "NUMBER",
	Boolean: "BOOLEAN",
	Array:   "ARRAY",
}

func (k Kind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return "UNKNOWN"
}

var databaseTypeNames = map[Kind]string{
	String:  "TEXT",
	Number:  "DOUBLE",
	Boolean: "BOOLEAN",
	Array:   "ARRAY",
}

// DatabaseTypeName is the SQL type name reported to database/sql.
func (k Kind) DatabaseTypeName() string {
	return databaseTypeNames[k]
}

// ColumnDescriptor describes one column of a result set.
// The size, precision and scale fields are always nil, the service sends no schema.
type ColumnDescriptor struct {
	Name         string
	Type         Kind
	DisplaySize  *int64
	InternalSize *int64
	Precision    *int64
	Scale        *int64
	NullOK       bool
}

// Classify returns the kind of a single value.
//
// Strings and nil are String, then booleans, then numbers, then slices.
// Booleans are checked before numbers. Anything else is a type inference error.
func Classify(value any) (Kind, error) {
	if value == nil {
		return String, nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.String:
		return String, nil
	case reflect.Bool:
		return Boolean, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return Number, nil
	case reflect.Slice, reflect.Array:
		// raw bytes are not a list of values
		if rv.Type().Elem().Kind() != reflect.Uint8 {
			return Array, nil
		}
	}

	return 0, fberrs.NewTypeInferenceError(context.Background(), value)
}

// Describe returns one descriptor per column of row, in column order.
// Only String columns are nullable.
func Describe(row *Row) ([]ColumnDescriptor, error) {
	desc := make([]ColumnDescriptor, len(row.Columns))
	for i, name := range row.Columns {
		kind, err := Classify(row.Values[i])
		if err != nil {
			return nil, err
		}
		desc[i] = ColumnDescriptor{
			Name:   name,
			Type:   kind,
			NullOK: kind == String,
		}
	}
	return desc, nil
}

var typeNames = map[string]Kind{
	"char":             String,
	"text":             String,
	"varchar":          String,
	"string":           String,
	"float":            Number,
	"double":           Number,
	"double precision": Number,
	"boolean":          Boolean,
	"int":              Number,
	"integer":          Number,
	"bigint":           Number,
	"long":             Number,
	"timestamp":        String,
	"datetime":         String,
	"date":             String,
	"array":            Array,
}

// TypeForName maps a column type reported by INFORMATION_SCHEMA to a Kind.
// Array types such as "ARRAY(INT)" map to Array. Unknown names report false.
func TypeForName(typeName string) (Kind, bool) {
	name := strings.ToLower(strings.TrimSpace(typeName))
	if strings.HasPrefix(name, "array") {
		return Array, true
	}
	// NULLABLE(...) wrappers do not change the kind
	if strings.HasPrefix(name, "nullable(") && strings.HasSuffix(name, ")") {
		name = strings.TrimSuffix(strings.TrimPrefix(name, "nullable("), ")")
	}
	kind, ok := typeNames[name]
	return kind, ok
}
