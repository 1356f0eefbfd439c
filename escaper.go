package fbsql

import (
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	fberrs "github.com/firebolt-db/firebolt-sql-go/internal/errors"
)

const (
	TimeFmt = "2006-01-02 15:04:05.999999"
)

// Escape renders a value as a SQL literal.
//
// The wildcard "*" is passed through as is. Strings are single quoted with
// embedded quotes doubled, booleans are TRUE or FALSE, numbers are unquoted and
// slices become a comma separated list of their escaped elements.
func Escape(value any) (string, error) {
	if value != nil && reflect.ValueOf(value).Kind() == reflect.Ptr {
		rv := reflect.ValueOf(value)
		if rv.IsNil() {
			return "NULL", nil
		}
		return Escape(rv.Elem().Interface())
	}

	switch v := value.(type) {
	case nil:
		return "NULL", nil
	case string:
		if v == "*" {
			return v, nil
		}
		return quote(v), nil
	case []byte:
		return quote(string(v)), nil
	case bool:
		if v {
			return "TRUE", nil
		}
		return "FALSE", nil
	case int:
		return strconv.Itoa(v), nil
	case int8:
		return strconv.FormatInt(int64(v), 10), nil
	case int16:
		return strconv.FormatInt(int64(v), 10), nil
	case int32:
		return strconv.FormatInt(int64(v), 10), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint8:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint64:
		return strconv.FormatUint(v, 10), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'g', -1, 32), nil
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	case time.Time:
		return quote(v.Format(TimeFmt)), nil
	}

	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array:
		elems := make([]string, rv.Len())
		for i := range elems {
			s, err := Escape(rv.Index(i).Interface())
			if err != nil {
				return "", err
			}
			elems[i] = s
		}
		return strings.Join(elems, ", "), nil
	case reflect.String:
		return Escape(rv.String())
	case reflect.Bool:
		return Escape(rv.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return Escape(rv.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return Escape(rv.Uint())
	case reflect.Float32, reflect.Float64:
		return Escape(rv.Float())
	}

	return "", errors.Errorf("%s %T for value %v", fberrs.ErrUnsupportedParameter, value, value)
}

func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
