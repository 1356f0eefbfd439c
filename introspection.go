package fbsql

import (
	"context"
	"fmt"
	"strings"

	"github.com/firebolt-db/firebolt-sql-go/rows"
)

// ColumnInfo describes a table column as reported by INFORMATION_SCHEMA.
type ColumnInfo struct {
	Name     string
	DataType string
	// Kind is the kind of DataType, unknown types have kind 0
	Kind     rows.Kind
	Nullable bool
}

// SchemaNames lists the databases of the account.
func (c *Connection) SchemaNames(ctx context.Context) ([]string, error) {
	result, err := c.query(ctx, "SELECT SCHEMA_NAME FROM INFORMATION_SCHEMA.DATABASES", nil)
	if err != nil {
		return nil, err
	}
	return stringColumn(result, "schema_name"), nil
}

// TableNames lists the tables of schema, or of every schema when it is empty.
func (c *Connection) TableNames(ctx context.Context, schema string) ([]string, error) {
	query := "SELECT TABLE_NAME FROM INFORMATION_SCHEMA.TABLES"
	params := map[string]any{}
	if schema != "" {
		query += " WHERE TABLE_SCHEMA = %(schema)s"
		params["schema"] = schema
	}

	result, err := c.query(ctx, query, params)
	if err != nil {
		return nil, err
	}
	return stringColumn(result, "table_name"), nil
}

// HasTable reports whether a table called name exists.
func (c *Connection) HasTable(ctx context.Context, name string) (bool, error) {
	result, err := c.query(ctx,
		"SELECT COUNT(*) AS count_ FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME = %(name)s",
		map[string]any{"name": name})
	if err != nil {
		return false, err
	}
	if len(result) == 0 {
		return false, nil
	}

	switch n := field(result[0], "count_").(type) {
	case int64:
		return n > 0, nil
	case float64:
		return n > 0, nil
	}
	return false, nil
}

// Columns describes the columns of table, optionally restricted to schema.
func (c *Connection) Columns(ctx context.Context, table, schema string) ([]ColumnInfo, error) {
	query := "SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE FROM INFORMATION_SCHEMA.COLUMNS WHERE TABLE_NAME = %(table)s"
	params := map[string]any{"table": table}
	if schema != "" {
		query += " AND TABLE_SCHEMA = %(schema)s"
		params["schema"] = schema
	}

	result, err := c.query(ctx, query, params)
	if err != nil {
		return nil, err
	}

	columns := make([]ColumnInfo, 0, len(result))
	for _, row := range result {
		info := ColumnInfo{
			Name:     fmt.Sprint(field(row, "column_name")),
			DataType: fmt.Sprint(field(row, "data_type")),
		}
		info.Kind, _ = rows.TypeForName(info.DataType)
		nullable, _ := field(row, "is_nullable").(string)
		info.Nullable = strings.EqualFold(nullable, "yes")
		columns = append(columns, info)
	}
	return columns, nil
}

// query runs statement on a short lived cursor and returns every row.
func (c *Connection) query(ctx context.Context, statement string, params map[string]any) ([]*rows.Row, error) {
	cur, err := c.Cursor()
	if err != nil {
		return nil, err
	}
	defer cur.Close()

	if _, err := cur.Execute(ctx, statement, params); err != nil {
		return nil, err
	}
	return cur.FetchAll()
}

// field looks a column up ignoring case, the service reports names as written
// in the query.
func field(row *rows.Row, name string) any {
	if v, ok := row.Get(name); ok {
		return v
	}
	for i, col := range row.Columns {
		if strings.EqualFold(col, name) {
			return row.Values[i]
		}
	}
	return nil
}

func stringColumn(result []*rows.Row, name string) []string {
	values := make([]string, 0, len(result))
	for _, row := range result {
		if v, ok := field(row, name).(string); ok {
			values = append(values, v)
		}
	}
	return values
}
