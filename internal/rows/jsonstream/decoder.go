// Package jsonstream decodes the rows of a JSON query response while the body
// is still arriving.
//
// The service answers a query with a document of the form
//
//	{"meta": [...], "data": [{...}, {...}], "rows": 2, "statistics": {...}}
//
// The decoder scans the body byte by byte, so a chunk may end anywhere: inside a
// key, a string, an escape sequence or a number. Only one row object is buffered
// at a time. Everything before the top level "data" key is skipped and everything
// after the closing bracket of its array is ignored.
package jsonstream

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/goccy/go-json"

	fberrs "github.com/firebolt-db/firebolt-sql-go/internal/errors"
	fblog "github.com/firebolt-db/firebolt-sql-go/logger"
	"github.com/firebolt-db/firebolt-sql-go/rows"
)

type scanState int

const (
	// looking for the "data" key
	seekData scanState = iota
	// inside the data array, between rows
	inData
	// inside a row object
	inRow
	// the data array has been closed
	done
)

// the longest string worth remembering while looking for the data key
const maxKeyLen = len("data") + 1

// Decoder turns a sequence of body chunks into rows.
type Decoder struct {
	ctx    context.Context
	chunks ChunkIterator
	state  scanState

	// nesting depth, of the document while seeking and of the row while in a row
	depth    int
	inString bool
	escaped  bool

	key          []byte
	afterDataKey bool

	row     []byte
	columns []string

	pending []*rows.Row
	head    int

	eof       bool
	truncated bool
	err       error
}

// NewDecoder returns a decoder reading from chunks. ctx is only used to
// annotate errors.
func NewDecoder(ctx context.Context, chunks ChunkIterator) *Decoder {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Decoder{
		ctx:    ctx,
		chunks: chunks,
		key:    make([]byte, 0, maxKeyLen),
	}
}

// Next returns the next row, or io.EOF once the result set is exhausted.
// Rows decoded before a failure are returned before the failure itself.
func (d *Decoder) Next() (*rows.Row, error) {
	for {
		if d.head < len(d.pending) {
			r := d.pending[d.head]
			d.pending[d.head] = nil
			d.head++
			return r, nil
		}
		d.pending = d.pending[:0]
		d.head = 0

		if d.err != nil {
			return nil, d.err
		}
		if d.eof || d.state == done {
			return nil, io.EOF
		}

		chunk, err := d.chunks.Next()
		if len(chunk) > 0 {
			if ferr := d.Feed(chunk); ferr != nil {
				d.err = ferr
			}
		}
		if err == io.EOF {
			d.finish()
		} else if err != nil && d.err == nil {
			d.err = fberrs.NewTransportError(d.ctx, "failed reading query response", 0, err)
		}
	}
}

// Truncated reports whether the body ended before the data array was closed.
// Rows decoded up to that point have still been returned.
func (d *Decoder) Truncated() bool {
	return d.truncated
}

// Feed scans one chunk. Completed rows are queued for Next.
func (d *Decoder) Feed(chunk []byte) error {
	for i := 0; i < len(chunk); i++ {
		c := chunk[i]

		switch d.state {
		case seekData:
			d.seek(c)

		case inData:
			switch c {
			case ' ', '\t', '\n', '\r', ',', '[':
			case ']':
				d.state = done
				return nil
			case '{':
				d.state = inRow
				d.depth = 1
				d.row = append(d.row[:0], c)
			default:
				return d.malformed(fmt.Errorf("unexpected %q in data array", c))
			}

		case inRow:
			d.row = append(d.row, c)
			if d.inString {
				d.scanString(c)
				continue
			}
			switch c {
			case '"':
				d.inString = true
			case '{', '[':
				d.depth++
			case '}', ']':
				d.depth--
				if d.depth == 0 {
					if c != '}' {
						return d.malformed(fmt.Errorf("row closed by %q", c))
					}
					if err := d.emit(); err != nil {
						return err
					}
					d.state = inData
				}
			}

		case done:
			return nil
		}
	}
	return nil
}

func (d *Decoder) scanString(c byte) {
	switch {
	case d.escaped:
		d.escaped = false
	case c == '\\':
		d.escaped = true
	case c == '"':
		d.inString = false
	}
}

func (d *Decoder) seek(c byte) {
	if d.inString {
		if !d.escaped && c == '"' {
			d.inString = false
			d.afterDataKey = d.depth <= 1 && string(d.key) == "data"
			return
		}
		d.scanString(c)
		if len(d.key) < maxKeyLen {
			d.key = append(d.key, c)
		}
		return
	}

	switch c {
	case ' ', '\t', '\n', '\r':
		return
	case ':':
		if d.afterDataKey {
			d.afterDataKey = false
			d.state = inData
			d.depth = 0
			return
		}
	case '"':
		d.inString = true
		d.key = d.key[:0]
	case '{', '[':
		d.depth++
	case '}', ']':
		d.depth--
	}
	d.afterDataKey = false
}

func (d *Decoder) finish() {
	d.eof = true
	if d.state == inData || d.state == inRow {
		d.truncated = true
		fblog.Logger.Warn().Msg("firebolt: query response ended inside the data array")
	}
}

func (d *Decoder) emit() error {
	row, err := parseRow(d.row)
	if err != nil {
		return d.malformed(err)
	}

	if d.columns == nil {
		d.columns = row.Columns
	} else if !sameColumns(d.columns, row.Columns) {
		return d.malformed(fmt.Errorf("columns %v differ from %v", row.Columns, d.columns))
	} else {
		row.Columns = d.columns
	}

	d.pending = append(d.pending, row)
	return nil
}

func (d *Decoder) malformed(err error) error {
	return fberrs.NewTransportError(d.ctx, fberrs.ErrMalformedRow, 0, err)
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// parseRow decodes one complete JSON object, keeping the order of its keys.
// A repeated key keeps its first position and its last value.
func parseRow(b []byte) (*rows.Row, error) {
	row := &rows.Row{}
	index := map[string]int{}

	i := skipSpace(b, 0)
	if i >= len(b) || b[i] != '{' {
		return nil, fmt.Errorf("row is not an object")
	}
	i++

	for {
		i = skipSpace(b, i)
		if i >= len(b) {
			return nil, fmt.Errorf("unterminated row")
		}
		if b[i] == '}' && len(row.Columns) == 0 {
			return row, nil
		}
		if b[i] != '"' {
			return nil, fmt.Errorf("expected key at offset %d", i)
		}

		end := stringEnd(b, i)
		if end < 0 {
			return nil, fmt.Errorf("unterminated key at offset %d", i)
		}
		var key string
		if err := json.Unmarshal(b[i:end+1], &key); err != nil {
			return nil, err
		}

		i = skipSpace(b, end+1)
		if i >= len(b) || b[i] != ':' {
			return nil, fmt.Errorf("expected ':' after key %q", key)
		}

		start := i + 1
		i = valueEnd(b, start)
		raw := bytes.TrimSpace(b[start:i])
		if len(raw) == 0 || i >= len(b) {
			return nil, fmt.Errorf("missing value for key %q", key)
		}
		value, err := decodeValue(raw)
		if err != nil {
			return nil, fmt.Errorf("value for key %q: %w", key, err)
		}

		if pos, ok := index[key]; ok {
			row.Values[pos] = value
		} else {
			index[key] = len(row.Columns)
			row.Columns = append(row.Columns, key)
			row.Values = append(row.Values, value)
		}

		if b[i] == '}' {
			return row, nil
		}
		// b[i] == ','
		i++
	}
}

func skipSpace(b []byte, i int) int {
	for i < len(b) {
		switch b[i] {
		case ' ', '\t', '\n', '\r':
			i++
		default:
			return i
		}
	}
	return i
}

// stringEnd returns the index of the quote closing the string opened at b[i].
func stringEnd(b []byte, i int) int {
	escaped := false
	for j := i + 1; j < len(b); j++ {
		switch {
		case escaped:
			escaped = false
		case b[j] == '\\':
			escaped = true
		case b[j] == '"':
			return j
		}
	}
	return -1
}

// valueEnd returns the index of the ',' or '}' ending the member value starting at b[i].
func valueEnd(b []byte, i int) int {
	depth := 0
	for ; i < len(b); i++ {
		switch b[i] {
		case '"':
			end := stringEnd(b, i)
			if end < 0 {
				return len(b)
			}
			i = end
		case '{', '[':
			depth++
		case ']':
			depth--
		case '}':
			if depth == 0 {
				return i
			}
			depth--
		case ',':
			if depth == 0 {
				return i
			}
		}
	}
	return i
}

// decodeValue decodes exactly one JSON value. The streaming decoder is
// lenient with literals such as tru or nul and stops after the first value,
// so raw is checked by a full unmarshal first.
func decodeValue(raw []byte) (any, error) {
	var check json.RawMessage
	if err := json.Unmarshal(raw, &check); err != nil {
		return nil, err
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected data after value %s", raw)
	}
	return normalize(v), nil
}

// normalize converts numbers to int64 when they are integral and fit,
// to float64 otherwise.
func normalize(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(string(t), 10, 64); err == nil {
			return i
		}
		f, _ := strconv.ParseFloat(string(t), 64)
		return f
	case []any:
		for i := range t {
			t[i] = normalize(t[i])
		}
		return t
	case map[string]any:
		for k := range t {
			t[k] = normalize(t[k])
		}
		return t
	default:
		return v
	}
}
