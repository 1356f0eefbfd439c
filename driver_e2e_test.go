package fbsql

import (
	"context"
	"database/sql"
	"os"
	"testing"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// GetEnvOrSkipTest proceeds with test only with that env variable.
// Variables may also come from a .env file in the package directory.
func GetEnvOrSkipTest(t *testing.T, name string) string {
	_ = godotenv.Load()
	value := os.Getenv(name)
	if value == "" {
		t.Skipf("Environment variable %s is missing", name)
	}
	return value
}

func e2eOptions(t *testing.T) []ConnOption {
	opts := []ConnOption{
		WithUsername(GetEnvOrSkipTest(t, "FIREBOLT_USERNAME")),
		WithPassword(GetEnvOrSkipTest(t, "FIREBOLT_PASSWORD")),
		WithDatabase(GetEnvOrSkipTest(t, "FIREBOLT_DATABASE")),
	}
	if engine := os.Getenv("FIREBOLT_ENGINE"); engine != "" {
		opts = append(opts, WithEngineName(engine))
	}
	return opts
}

func TestE2ESelectOne(t *testing.T) {
	opts := e2eOptions(t)
	ctx := context.Background()

	c, err := Connect(ctx, opts...)
	require.NoError(t, err)
	defer c.Close()

	cur, err := c.Cursor()
	require.NoError(t, err)

	_, err = cur.Execute(ctx, "SELECT 1", nil)
	require.NoError(t, err)

	description, err := cur.Description()
	require.NoError(t, err)
	require.Len(t, description, 1)

	all, err := cur.FetchAll()
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, []any{int64(1)}, all[0].Values)
	assert.False(t, cur.Truncated())
}

func TestE2EDatabaseSQL(t *testing.T) {
	opts := e2eOptions(t)
	ctx := context.Background()

	connector, err := NewConnector(opts...)
	require.NoError(t, err)

	db := sql.OpenDB(connector)
	defer db.Close()

	require.NoError(t, db.PingContext(ctx))

	var n int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_NAME <> ?", "").Scan(&n))
	assert.GreaterOrEqual(t, n, 0)
}

func TestE2EIntrospection(t *testing.T) {
	opts := e2eOptions(t)
	ctx := context.Background()

	c, err := Connect(ctx, opts...)
	require.NoError(t, err)
	defer c.Close()

	schemas, err := c.SchemaNames(ctx)
	require.NoError(t, err)
	assert.Contains(t, schemas, c.Database())
}
