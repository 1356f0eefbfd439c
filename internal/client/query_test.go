package client

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/firebolt-db/firebolt-sql-go/auth/tokenprovider"
	fberr "github.com/firebolt-db/firebolt-sql-go/errors"
	"github.com/firebolt-db/firebolt-sql-go/internal/config"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPQueryTransport(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		switch string(body) {
		case "SELECT 1":
			assert.Equal(t, "sales", r.URL.Query().Get("database"))
			assert.Equal(t, "0", r.URL.Query().Get("use_standard_sql"))
			_, _ = w.Write([]byte(`{"meta": [], "data": [{"1": 1}], "rows": 1}`))
		case "SLOW":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte(`{}`))
		default:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte("Syntax error"))
		}
	}))
	defer server.Close()

	cfg := config.WithDefaults()
	cfg.RetryWaitMin = time.Millisecond
	cfg.RetryWaitMax = time.Millisecond
	httpClient := RetryableClient(cfg, tokenprovider.NewAuthenticator(tokenprovider.NewStaticTokenProvider("tok")))

	t.Run("body is returned unread", func(t *testing.T) {
		transport := NewQueryTransport(httpClient, 0)
		body, err := transport.Submit(context.Background(), &QueryRequest{
			EngineURL: server.URL,
			Database:  "sales",
			Query:     "SELECT 1",
			Settings:  map[string]string{"use_standard_sql": "0"},
		})
		require.NoError(t, err)
		defer body.Close()

		b, err := io.ReadAll(body)
		require.NoError(t, err)
		assert.Equal(t, `{"meta": [], "data": [{"1": 1}], "rows": 1}`, string(b))
	})

	t.Run("failed statement is a transport error and is not retried", func(t *testing.T) {
		atomic.StoreInt32(&calls, 0)
		transport := NewQueryTransport(httpClient, 0)
		_, err := transport.Submit(context.Background(), &QueryRequest{EngineURL: server.URL, Database: "sales", Query: "SELEC 1"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, fberr.TransportError))
		assert.Contains(t, err.Error(), "DB-API Exception")
		assert.Contains(t, err.Error(), "Syntax error")

		var te fberr.FBTransportError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, http.StatusBadRequest, te.StatusCode())
		assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	})

	t.Run("timeout", func(t *testing.T) {
		transport := NewQueryTransport(httpClient, 20*time.Millisecond)
		_, err := transport.Submit(context.Background(), &QueryRequest{EngineURL: server.URL, Database: "sales", Query: "SLOW"})
		require.Error(t, err)
		assert.True(t, errors.Is(err, fberr.TransportError))
	})
}

func TestQueryURL(t *testing.T) {
	u, err := queryURL(&QueryRequest{EngineURL: "sales.app.firebolt.io", Database: "sales"})
	require.NoError(t, err)
	assert.Equal(t, "https://sales.app.firebolt.io/?database=sales", u)

	u, err = queryURL(&QueryRequest{
		EngineURL: "http://localhost:8123",
		Database:  "db",
		Settings:  map[string]string{"b": "2", "a": "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8123/?a=1&b=2&database=db", u)
}
