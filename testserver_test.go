package fbsql

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
)

// serverHandler stands in for the control API and one engine. Every hook is
// optional, the defaults log in, resolve every database and engine to the
// engine at /engine and answer queries with an empty result.
type serverHandler struct {
	login               func(w http.ResponseWriter, body map[string]string)
	refresh             func(w http.ResponseWriter, body map[string]string)
	engineURLByDatabase func(w http.ResponseWriter, database string)
	engines             func(w http.ResponseWriter, nameContains string)
	query               func(w http.ResponseWriter, statement string, params url.Values)

	url string

	mu       sync.Mutex
	requests []recordedRequest
}

type recordedRequest struct {
	Path          string
	Query         url.Values
	Body          string
	Authorization string
}

func (h *serverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	h.mu.Lock()
	h.requests = append(h.requests, recordedRequest{
		Path:          r.URL.Path,
		Query:         r.URL.Query(),
		Body:          string(body),
		Authorization: r.Header.Get("Authorization"),
	})
	h.mu.Unlock()

	switch {
	case r.URL.Path == "/auth/v1/login":
		var req map[string]string
		_ = json.Unmarshal(body, &req)
		if h.login != nil {
			h.login(w, req)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "access", "refresh_token": "refresh", "expires_in": 3600})

	case r.URL.Path == "/auth/v1/refresh":
		var req map[string]string
		_ = json.Unmarshal(body, &req)
		if h.refresh != nil {
			h.refresh(w, req)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"access_token": "refreshed", "expires_in": 3600})

	case r.URL.Path == "/core/v1/account/engines:getURLByDatabaseName":
		database := r.URL.Query().Get("database_name")
		if h.engineURLByDatabase != nil {
			h.engineURLByDatabase(w, database)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"engine_url": h.url + "/engine"})

	case r.URL.Path == "/core/v1/account/engines":
		name := r.URL.Query().Get("filter.name_contains")
		if h.engines != nil {
			h.engines(w, name)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"edges": []any{
			map[string]any{"node": map[string]any{"name": name, "endpoint": h.url + "/engine"}},
		}})

	case strings.HasPrefix(r.URL.Path, "/engine"):
		if h.query != nil {
			h.query(w, string(body), r.URL.Query())
			return
		}
		if strings.TrimSpace(string(body)) == "SELECT 1" {
			w.WriteHeader(http.StatusOK)
			_, _ = io.WriteString(w, `{"meta":[{"name":"1","type":"UInt8"}],"data":[{"1":1}],"rows":1}`)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"meta":[],"data":[],"rows":0}`)

	default:
		http.NotFound(w, r)
	}
}

// queries returns the statements the engine received.
func (h *serverHandler) queries() []recordedRequest {
	h.mu.Lock()
	defer h.mu.Unlock()

	var queries []recordedRequest
	for _, r := range h.requests {
		if strings.HasPrefix(r.Path, "/engine") {
			queries = append(queries, r)
		}
	}
	return queries
}

func (h *serverHandler) count(path string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := 0
	for _, r := range h.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

func initTestServer(t *testing.T, handler *serverHandler) *httptest.Server {
	ts := httptest.NewServer(handler)
	handler.url = ts.URL
	t.Cleanup(ts.Close)
	return ts
}

// testOptions connect to ts with a password login and no retries.
func testOptions(ts *httptest.Server, options ...ConnOption) []ConnOption {
	opts := []ConnOption{
		WithAPIEndpoint(ts.URL),
		WithUsername("user@example.com"),
		WithPassword("secret"),
		WithDatabase("db"),
	}
	opts = append(opts, options...)
	return append(opts, WithRetries(-1, time.Millisecond, time.Millisecond))
}

func connectTestServer(t *testing.T, handler *serverHandler, options ...ConnOption) *Connection {
	ts := initTestServer(t, handler)
	c, err := Connect(context.Background(), testOptions(ts, options...)...)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	return c
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
