package fbsql

import (
	"database/sql/driver"
	"strings"

	"github.com/pkg/errors"

	fberrs "github.com/firebolt-db/firebolt-sql-go/internal/errors"
)

// ApplyParameters replaces every %(name)s placeholder of statement with the
// escaped value of params[name]. A doubled %% is a literal %. The statement is
// returned unchanged when params is empty.
func ApplyParameters(statement string, params map[string]any) (string, error) {
	if len(params) == 0 {
		return statement, nil
	}
	return substitute(statement, params, nil)
}

// SubstituteArgs inlines database/sql arguments into statement. Named
// arguments fill %(name)s placeholders and ordinal arguments fill ? placeholders
// in order. A doubled ?? is a literal ?.
func SubstituteArgs(statement string, args []driver.NamedValue) (string, error) {
	if len(args) == 0 {
		return statement, nil
	}

	var named map[string]any
	var ordinal []any
	for _, arg := range args {
		if arg.Name != "" {
			if named == nil {
				named = make(map[string]any)
			}
			named[arg.Name] = arg.Value
		} else {
			ordinal = append(ordinal, arg.Value)
		}
	}

	return substitute(statement, named, ordinal)
}

// substitute scans statement once so that escaped values are never scanned
// for placeholders themselves.
func substitute(statement string, named map[string]any, ordinal []any) (string, error) {
	var sb strings.Builder
	sb.Grow(len(statement))
	next := 0

	for i := 0; i < len(statement); {
		c := statement[i]

		switch {
		case c == '%' && named != nil:
			if strings.HasPrefix(statement[i:], "%%") {
				sb.WriteByte('%')
				i += 2
				continue
			}
			if strings.HasPrefix(statement[i:], "%(") {
				if end := strings.Index(statement[i+2:], ")s"); end >= 0 {
					name := statement[i+2 : i+2+end]
					v, ok := named[name]
					if !ok {
						return "", errors.Errorf("%s: %s", fberrs.ErrMissingParameter, name)
					}
					s, err := Escape(v)
					if err != nil {
						return "", err
					}
					sb.WriteString(s)
					i += end + 4
					continue
				}
			}

		case c == '?' && ordinal != nil:
			if strings.HasPrefix(statement[i:], "??") {
				sb.WriteByte('?')
				i += 2
				continue
			}
			if next >= len(ordinal) {
				return "", errors.Errorf("%s: placeholder %d", fberrs.ErrMissingParameter, next+1)
			}
			s, err := Escape(ordinal[next])
			if err != nil {
				return "", err
			}
			next++
			sb.WriteString(s)
			i++
			continue
		}

		sb.WriteByte(c)
		i++
	}

	if next < len(ordinal) {
		return "", errors.Errorf("firebolt: %d arguments given for %d placeholders", len(ordinal), next)
	}

	return sb.String(), nil
}
