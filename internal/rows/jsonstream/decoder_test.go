package jsonstream

import (
	"context"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	fberr "github.com/firebolt-db/firebolt-sql-go/errors"
	"github.com/firebolt-db/firebolt-sql-go/rows"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const prettyBody = `{
	"meta":
	[
		{
			"name": "id",
			"type": "Int32"
		},
		{
			"name": "data",
			"type": "String"
		}
	],

	"data":
	[
		{
			"id": 1,
			"data": "first \"quoted\" {not a row}"
		},
		{
			"id": 2,
			"data": "second, with ] and [ inside"
		}
	],

	"rows": 2,

	"statistics":
	{
		"elapsed": 0.000591,
		"rows_read": 2,
		"bytes_read": 10
	}
}
`

const compactBody = `{"meta":[{"name":"id","type":"Int32"},{"name":"data","type":"String"}],` +
	`"data":[{"id":1,"data":"first \"quoted\" {not a row}"},{"id":2,"data":"second, with ] and [ inside"}],` +
	`"rows":2,"statistics":{"elapsed":0.000591,"rows_read":2,"bytes_read":10}}`

var wantRows = []rows.Row{
	{Columns: []string{"id", "data"}, Values: []any{int64(1), `first "quoted" {not a row}`}},
	{Columns: []string{"id", "data"}, Values: []any{int64(2), "second, with ] and [ inside"}},
}

func collect(t *testing.T, d *Decoder) []rows.Row {
	t.Helper()
	var out []rows.Row
	for {
		r, err := d.Next()
		if err == io.EOF {
			return out
		}
		require.NoError(t, err)
		out = append(out, *r)
	}
}

func decodeChunks(t *testing.T, chunks ...string) ([]rows.Row, bool) {
	t.Helper()
	d := NewDecoder(context.Background(), SliceChunks(chunks...))
	got := collect(t, d)
	return got, d.Truncated()
}

// splitBytes returns body cut into one chunk per byte.
func splitBytes(body string) []string {
	out := make([]string, len(body))
	for i := range body {
		out[i] = body[i : i+1]
	}
	return out
}

func TestDecoderExampleScenario(t *testing.T) {
	pieces := []string{
		"\"data\":\n",
		"{\"id\": 1,",
		" \"name\": \"a\"}",
		",\n{\"id\": 2, \"name\": \"b\"}\n],\n",
	}
	want := []rows.Row{
		{Columns: []string{"id", "name"}, Values: []any{int64(1), "a"}},
		{Columns: []string{"id", "name"}, Values: []any{int64(2), "b"}},
	}

	// every way of grouping the four pieces into consecutive chunks
	for mask := 0; mask < 1<<(len(pieces)-1); mask++ {
		var chunks []string
		current := pieces[0]
		for i := 1; i < len(pieces); i++ {
			if mask&(1<<(i-1)) != 0 {
				chunks = append(chunks, current)
				current = pieces[i]
			} else {
				current += pieces[i]
			}
		}
		chunks = append(chunks, current)

		got, truncated := decodeChunks(t, chunks...)
		assert.Equal(t, want, got, "chunks %q", chunks)
		assert.False(t, truncated)
	}

	got, truncated := decodeChunks(t, splitBytes(strings.Join(pieces, ""))...)
	assert.Equal(t, want, got)
	assert.False(t, truncated)
}

func TestDecoderPartitionInvariance(t *testing.T) {
	for name, body := range map[string]string{"pretty": prettyBody, "compact": compactBody} {
		t.Run(name, func(t *testing.T) {
			got, truncated := decodeChunks(t, body)
			require.Equal(t, wantRows, got)
			assert.False(t, truncated)

			for i := 0; i <= len(body); i++ {
				got, _ := decodeChunks(t, body[:i], body[i:])
				require.Equal(t, wantRows, got, "split at %d", i)
			}

			got, _ = decodeChunks(t, splitBytes(body)...)
			assert.Equal(t, wantRows, got)
		})
	}

	t.Run("three way splits", func(t *testing.T) {
		body := compactBody
		for i := 0; i <= len(body); i += 3 {
			for j := i; j <= len(body); j += 5 {
				got, _ := decodeChunks(t, body[:i], body[i:j], body[j:])
				require.Equal(t, wantRows, got, "split at %d and %d", i, j)
			}
		}
	})
}

func TestDecoderReaderChunks(t *testing.T) {
	for _, size := range []int{0, 1, 2, 7, 64, 4096} {
		d := NewDecoder(context.Background(), ReaderChunks(strings.NewReader(prettyBody), size))
		assert.Equal(t, wantRows, collect(t, d), "chunk size %d", size)
		assert.False(t, d.Truncated())
	}

	d := NewDecoder(context.Background(), ReaderChunks(iotest.OneByteReader(strings.NewReader(compactBody)), 16))
	assert.Equal(t, wantRows, collect(t, d))

	d = NewDecoder(context.Background(), ReaderChunks(iotest.DataErrReader(strings.NewReader(compactBody)), 16))
	assert.Equal(t, wantRows, collect(t, d))
}

func TestDecoderValues(t *testing.T) {
	body := `{"data": [{"s": "xé\n", "n": null, "t": true, "f": false, "i": -42, "big": 9223372036854775808,
		"d": 1.5, "e": 1e3, "arr": [1, 2.5, "a", [true]], "empty": []}]}`
	got, _ := decodeChunks(t, body)
	require.Len(t, got, 1)

	row := got[0]
	assert.Equal(t, []string{"s", "n", "t", "f", "i", "big", "d", "e", "arr", "empty"}, row.Columns)
	assert.Equal(t, "xé\n", row.Values[0])
	assert.Nil(t, row.Values[1])
	assert.Equal(t, true, row.Values[2])
	assert.Equal(t, false, row.Values[3])
	assert.Equal(t, int64(-42), row.Values[4])
	assert.Equal(t, float64(9223372036854775808), row.Values[5])
	assert.Equal(t, 1.5, row.Values[6])
	assert.Equal(t, float64(1000), row.Values[7])
	assert.Equal(t, []any{int64(1), 2.5, "a", []any{true}}, row.Values[8])
	assert.Equal(t, []any{}, row.Values[9])
}

func TestDecoderColumnsShared(t *testing.T) {
	got, _ := decodeChunks(t, compactBody)
	require.Len(t, got, 2)
	assert.Same(t, &got[0].Columns[0], &got[1].Columns[0])
}

func TestDecoderEdgeCases(t *testing.T) {
	t.Run("empty data array", func(t *testing.T) {
		got, truncated := decodeChunks(t, `{"meta": [], "data": [], "rows": 0}`)
		assert.Empty(t, got)
		assert.False(t, truncated)
	})

	t.Run("no data key", func(t *testing.T) {
		got, truncated := decodeChunks(t, `{"query": {"query_id": "1"}, "statistics": {}}`)
		assert.Empty(t, got)
		assert.False(t, truncated)
	})

	t.Run("empty body", func(t *testing.T) {
		got, truncated := decodeChunks(t)
		assert.Empty(t, got)
		assert.False(t, truncated)
	})

	t.Run("nested data key is not the result", func(t *testing.T) {
		got, _ := decodeChunks(t, `{"meta": [{"name": "x", "extra": {"data": [{"bad": 1}]}}], "data": [{"x": 1}]}`)
		assert.Equal(t, []rows.Row{{Columns: []string{"x"}, Values: []any{int64(1)}}}, got)
	})

	t.Run("data string value is not the key", func(t *testing.T) {
		got, _ := decodeChunks(t, `{"meta": [{"name": "data", "type": "Int"}], "data": [{"data": 1}]}`)
		assert.Equal(t, []rows.Row{{Columns: []string{"data"}, Values: []any{int64(1)}}}, got)
	})

	t.Run("trailing content ignored", func(t *testing.T) {
		d := NewDecoder(context.Background(), SliceChunks(`{"data": [{"a": 1}], `, `garbage that is never read`))
		assert.Len(t, collect(t, d), 1)
		assert.False(t, d.Truncated())
	})

	t.Run("truncated inside a row", func(t *testing.T) {
		got, truncated := decodeChunks(t, `{"data": [{"a": 1}, {"a": 2}, {"a": `)
		assert.Equal(t, []rows.Row{
			{Columns: []string{"a"}, Values: []any{int64(1)}},
			{Columns: []string{"a"}, Values: []any{int64(2)}},
		}, got)
		assert.True(t, truncated)
	})

	t.Run("truncated between rows", func(t *testing.T) {
		got, truncated := decodeChunks(t, `{"data": [{"a": 1},`)
		assert.Len(t, got, 1)
		assert.True(t, truncated)
	})

	t.Run("empty object row", func(t *testing.T) {
		got, _ := decodeChunks(t, `{"data": [{}]}`)
		require.Len(t, got, 1)
		assert.Empty(t, got[0].Columns)
	})

	t.Run("repeated key keeps last value", func(t *testing.T) {
		got, _ := decodeChunks(t, `{"data": [{"a": 1, "b": 2, "a": 3}]}`)
		assert.Equal(t, []rows.Row{{Columns: []string{"a", "b"}, Values: []any{int64(3), int64(2)}}}, got)
	})
}

func TestDecoderErrors(t *testing.T) {
	t.Run("divergent columns", func(t *testing.T) {
		d := NewDecoder(context.Background(), SliceChunks(`{"data": [{"a": 1}, {"b": 2}]}`))
		_, err := d.Next()
		require.NoError(t, err)
		_, err = d.Next()
		require.Error(t, err)
		assert.True(t, errors.Is(err, fberr.TransportError))
		assert.Contains(t, err.Error(), "malformed result row")

		// the failure is sticky
		_, err2 := d.Next()
		assert.Equal(t, err, err2)
	})

	t.Run("scalar in data array", func(t *testing.T) {
		d := NewDecoder(context.Background(), SliceChunks(`{"data": [1, 2]}`))
		_, err := d.Next()
		assert.True(t, errors.Is(err, fberr.TransportError))
	})

	t.Run("invalid value", func(t *testing.T) {
		for _, value := range []string{`tru`, `nul`, `1x`, `"x"y`} {
			d := NewDecoder(context.Background(), SliceChunks(`{"data": [{"a": `+value+`}]}`))
			row, err := d.Next()
			assert.Nil(t, row, value)
			assert.True(t, errors.Is(err, fberr.TransportError), value)
		}
	})

	t.Run("read failure after rows", func(t *testing.T) {
		r := io.MultiReader(strings.NewReader(`{"data": [{"a": 1}, `), iotest.ErrReader(errors.New("connection reset")))
		d := NewDecoder(context.Background(), ReaderChunks(r, 0))
		row, err := d.Next()
		require.NoError(t, err)
		assert.Equal(t, []any{int64(1)}, row.Values)

		_, err = d.Next()
		require.Error(t, err)
		assert.True(t, errors.Is(err, fberr.TransportError))
		assert.Contains(t, err.Error(), "connection reset")
	})
}

func TestSliceChunks(t *testing.T) {
	it := SliceChunks("a", "", "b")
	for _, want := range []string{"a", "", "b"} {
		c, err := it.Next()
		require.NoError(t, err)
		assert.Equal(t, want, string(c))
	}
	_, err := it.Next()
	assert.Equal(t, io.EOF, err)
}
