package client

import (
	"context"
	"crypto/x509"
	"fmt"
	"math"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"runtime"
	"strconv"
	"time"

	"github.com/firebolt-db/firebolt-sql-go/auth"
	"github.com/firebolt-db/firebolt-sql-go/internal/config"
	"github.com/firebolt-db/firebolt-sql-go/logger"
	"github.com/hashicorp/go-retryablehttp"
)

type contextKey int

const (
	ClientMethod contextKey = iota
)

//go:generate go run golang.org/x/tools/cmd/stringer -type=clientMethod

type clientMethod int

const (
	unknown clientMethod = iota
	getEngineURLByDatabase
	getEngineByName
	executeQuery
)

// a query is not idempotent, resubmitting it after the server has seen it may run it twice
var nonRetryableClientMethods map[clientMethod]any = map[clientMethod]any{
	executeQuery: struct{}{},
}

func withClientMethod(ctx context.Context, method clientMethod) context.Context {
	return context.WithValue(ctx, ClientMethod, method)
}

// RetryableClient returns an *http.Client that retries requests according to
// RetryPolicy. Requests made with a nil Authenticator are sent as is.
func RetryableClient(cfg *config.Config, authr auth.Authenticator) *http.Client {
	httpclient := PooledClient(cfg, authr)
	retryableClient := &retryablehttp.Client{
		HTTPClient:   httpclient,
		Logger:       &leveledLogger{},
		RetryWaitMin: cfg.RetryWaitMin,
		RetryWaitMax: cfg.RetryWaitMax,
		RetryMax:     cfg.RetryMax,
		ErrorHandler: errorHandler,
		CheckRetry:   RetryPolicy,
		Backoff:      backoff,
	}
	return retryableClient.StandardClient()
}

// PooledTransport returns a new http.Transport with similar default values to
// http.DefaultTransport. Do not use this for transient transports as it can
// leak file descriptors over time.
func PooledTransport(cfg *config.Config) *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSClientConfig:       cfg.TLSConfig,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       180 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConnsPerHost:   runtime.GOMAXPROCS(0) + 1,
	}
}

// PooledClient returns a new http.Client over a pooled transport, or over
// cfg.Transport when one is configured.
func PooledClient(cfg *config.Config, authr auth.Authenticator) *http.Client {
	var tr http.RoundTripper
	if cfg.Transport != nil {
		tr = cfg.Transport
	} else {
		tr = PooledTransport(cfg)
	}

	tr = &Transport{
		Base:      tr,
		Authr:     authr,
		UserAgent: userAgent(cfg),
	}

	// no client timeout: result bodies are streamed for as long as the caller
	// keeps fetching, deadlines come from the request context
	return &http.Client{
		Transport: tr,
	}
}

// Transport adds the user agent and, when an Authenticator is set, the
// authorization header to every request.
type Transport struct {
	Base      http.RoundTripper
	Authr     auth.Authenticator
	UserAgent string
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	msg, start := logger.Track("RoundTrip")
	defer logger.Duration(msg, start)

	// the request must not be modified, clone it before setting headers
	req2 := req.Clone(req.Context())
	if t.UserAgent != "" {
		req2.Header.Set("User-Agent", t.UserAgent)
	}
	if t.Authr != nil {
		if err := t.Authr.Authenticate(req2); err != nil {
			return nil, err
		}
	}

	return t.Base.RoundTrip(req2)
}

func userAgent(cfg *config.Config) string {
	ua := fmt.Sprintf("%s/%s", cfg.DriverName, cfg.DriverVersion)
	if cfg.UserAgentEntry != "" {
		ua = fmt.Sprintf("%s (%s)", ua, cfg.UserAgentEntry)
	}
	return ua
}

type leveledLogger struct{}

func (l *leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	logger.Error().Msg(fmt.Sprint(msg, keysAndValues))
}

func (l *leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	logger.Info().Msg(fmt.Sprint(msg, keysAndValues))
}

func (l *leveledLogger) Debug(msg string, keysAndValues ...interface{}) {
	logger.Debug().Msg(fmt.Sprint(msg, keysAndValues))
}

func (l *leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	logger.Warn().Msg(fmt.Sprint(msg, keysAndValues))
}

var _ retryablehttp.LeveledLogger = (*leveledLogger)(nil)

// errorHandler hands the last response back to the caller once retries are
// exhausted so the status code can be reported.
func errorHandler(resp *http.Response, err error, numTries int) (*http.Response, error) {
	if resp != nil {
		logger.Debug().Msgf("giving up after %d attempt(s), status %d", numTries, resp.StatusCode)
		return resp, nil
	}

	if err == nil {
		err = fmt.Errorf("request error after %d attempt(s)", numTries)
	}
	return nil, fmt.Errorf("giving up after %d attempt(s): %w", numTries, err)
}

var (
	// A regular expression to match the error returned by net/http when the
	// configured number of redirects is exhausted. This error isn't typed
	// specifically so we resort to matching on the error string.
	redirectsErrorRe = regexp.MustCompile(`stopped after \d+ redirects\z`)

	// A regular expression to match the error returned by net/http when the
	// scheme specified in the URL is invalid. This error isn't typed
	// specifically so we resort to matching on the error string.
	schemeErrorRe = regexp.MustCompile(`unsupported protocol scheme`)

	// A regular expression to match the error returned by net/http when the
	// TLS certificate is not trusted. This error isn't typed
	// specifically so we resort to matching on the error string.
	notTrustedErrorRe = regexp.MustCompile(`certificate is not trusted`)
)

// RetryPolicy decides whether a request is retried.
// Cancelled contexts are never retried. Connection errors and 5xx responses
// are retried unless the request is a query submission. 429 and 503 always
// are, since the server rejected the request before running it.
func RetryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	// do not retry on context.Canceled or context.DeadlineExceeded
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	caller, _ := ctx.Value(ClientMethod).(clientMethod)
	_, nonRetryableClientMethod := nonRetryableClientMethods[caller]

	if err != nil {
		if isRetryableError(err) && !nonRetryableClientMethod {
			return true, nil
		}
		return false, err
	}

	if resp == nil {
		return false, nil
	}

	// 429 Too Many Requests or 503 service unavailable is recoverable. Sometimes the server puts
	// a Retry-After response header to indicate when the server is
	// available to start processing request from client.
	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable {
		return true, nil
	}

	// Check the response code. We retry on 500-range responses to allow
	// the server time to recover. This will catch invalid response codes
	// as well, like 0 and 999.
	if !nonRetryableClientMethod && (resp.StatusCode == 0 || (resp.StatusCode >= 500 && resp.StatusCode != http.StatusNotImplemented)) {
		return true, fmt.Errorf("unexpected HTTP status %s", resp.Status)
	}

	return false, nil
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}

	if v, ok := err.(*url.Error); ok {
		s := v.Error()
		if redirectsErrorRe.MatchString(s) {
			return false
		}
		if schemeErrorRe.MatchString(s) {
			return false
		}
		if notTrustedErrorRe.MatchString(s) {
			return false
		}
		if _, ok := v.Err.(x509.UnknownAuthorityError); ok {
			return false
		}
	}

	return true
}

// backoff honours a Retry-After header in seconds and otherwise waits
// exponentially longer between min and max.
func backoff(min, max time.Duration, attemptNum int, resp *http.Response) time.Duration {
	if resp != nil && (resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode == http.StatusServiceUnavailable) {
		if s, ok := resp.Header["Retry-After"]; ok {
			if sleep, err := strconv.ParseInt(s[0], 10, 64); err == nil {
				wait := time.Second * time.Duration(sleep)
				if wait > max {
					wait = max
				}
				return wait
			}
		}
	}

	wait := time.Duration(math.Pow(2, float64(attemptNum)) * float64(min))
	if wait < min || wait > max {
		wait = max
	}
	return wait
}
