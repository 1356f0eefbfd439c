package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/firebolt-db/firebolt-sql-go/driverctx"
	fberrs "github.com/firebolt-db/firebolt-sql-go/internal/errors"
	"github.com/firebolt-db/firebolt-sql-go/logger"
	"github.com/pkg/errors"
)

// QueryRequest is one statement submitted to an engine.
type QueryRequest struct {
	EngineURL string
	Database  string
	Query     string
	// session settings sent as query parameters
	Settings map[string]string
}

// QueryTransport submits a statement and returns the response body unread.
// The caller must close the body.
type QueryTransport interface {
	Submit(ctx context.Context, req *QueryRequest) (io.ReadCloser, error)
}

// HTTPQueryTransport posts statements to an engine over HTTP.
//
//	POST https://{engine}/?database={db}&{settings}   body: the statement
type HTTPQueryTransport struct {
	httpClient *http.Client
	timeout    time.Duration
}

var _ QueryTransport = (*HTTPQueryTransport)(nil)

// NewQueryTransport returns a transport using httpClient, which is expected
// to authenticate its requests. A positive timeout bounds the whole request,
// including reading the body.
func NewQueryTransport(httpClient *http.Client, timeout time.Duration) *HTTPQueryTransport {
	return &HTTPQueryTransport{httpClient: httpClient, timeout: timeout}
}

func (t *HTTPQueryTransport) Submit(ctx context.Context, qr *QueryRequest) (io.ReadCloser, error) {
	log := logger.WithContext(driverctx.ConnIdFromContext(ctx), driverctx.CorrelationIdFromContext(ctx), driverctx.QueryIdFromContext(ctx))
	msg, start := logger.Track("Submit")
	defer log.Duration(msg, start)

	u, err := queryURL(qr)
	if err != nil {
		return nil, fberrs.NewTransportError(ctx, fberrs.ErrInvalidURL, 0, err)
	}

	cancel := context.CancelFunc(func() {})
	if t.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
	}

	req, err := http.NewRequestWithContext(withClientMethod(ctx, executeQuery), http.MethodPost, u, strings.NewReader(qr.Query))
	if err != nil {
		cancel()
		return nil, fberrs.NewTransportError(ctx, fberrs.ErrInvalidURL, 0, err)
	}
	req.Header.Set("Content-Type", "text/plain;charset=UTF-8")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		cancel()
		log.Err(err).Msg("query request failed")
		return nil, fberrs.NewTransportError(ctx, fberrs.ErrQueryExecution, 0, err)
	}

	if resp.StatusCode != http.StatusOK {
		defer cancel()
		defer resp.Body.Close()
		// error bodies are short, anything past the limit is dropped
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		log.Error().Msgf("query failed with status %d", resp.StatusCode)
		return nil, fberrs.NewTransportError(ctx, fberrs.ErrQueryExecution, resp.StatusCode,
			errors.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))))
	}

	return &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}, nil
}

func queryURL(qr *QueryRequest) (string, error) {
	engineURL := qr.EngineURL
	if !strings.HasPrefix(engineURL, "http://") && !strings.HasPrefix(engineURL, "https://") {
		engineURL = "https://" + engineURL
	}

	u, err := url.Parse(engineURL)
	if err != nil {
		return "", err
	}
	if u.Path == "" {
		u.Path = "/"
	}

	params := u.Query()
	for k, v := range qr.Settings {
		params.Set(k, v)
	}
	params.Set("database", qr.Database)
	u.RawQuery = params.Encode()

	return u.String(), nil
}

// cancelOnClose releases the request context when the body is closed.
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
