package fbsql

import (
	"context"
	"database/sql/driver"
	"net/http"
	"time"

	"github.com/firebolt-db/firebolt-sql-go/auth"
	"github.com/firebolt-db/firebolt-sql-go/auth/m2m"
	"github.com/firebolt-db/firebolt-sql-go/auth/tokenprovider"
	fberrs "github.com/firebolt-db/firebolt-sql-go/internal/errors"
	"github.com/firebolt-db/firebolt-sql-go/internal/client"
	"github.com/firebolt-db/firebolt-sql-go/internal/config"
	"github.com/firebolt-db/firebolt-sql-go/logger"
)

type connector struct {
	cfg *config.Config

	// shared by every connection of the connector, used for login and
	// engine resolution
	client   *http.Client
	provider tokenprovider.TokenProvider
}

// Connect returns a connection to the Firebolt database.
func (c *connector) Connect(ctx context.Context) (driver.Conn, error) {
	fbc, err := connect(ctx, c.cfg, c.provider, client.NewControlAPI(c.cfg, c.client))
	if err != nil {
		return nil, err
	}

	return &conn{id: fbc.id, cfg: c.cfg, fbc: fbc}, nil
}

// Driver returns underlying fireboltDriver for compatibility with sql.DB Driver method
func (c *connector) Driver() driver.Driver {
	return &fireboltDriver{}
}

var _ driver.Connector = (*connector)(nil)

type ConnOption func(*config.Config)

// NewConnector creates a connection that can be used with `sql.OpenDB()`.
// This is an easier way to set up the DB instead of having to construct a DSN string.
func NewConnector(options ...ConnOption) (driver.Connector, error) {
	return newConnector(newConfig(options...))
}

func newConnector(cfg *config.Config) (driver.Connector, error) {
	httpClient := client.RetryableClient(cfg, nil)
	provider, err := newTokenProvider(cfg, httpClient)
	if err != nil {
		return nil, err
	}

	return &connector{cfg: cfg, client: httpClient, provider: provider}, nil
}

func newConfig(options ...ConnOption) *config.Config {
	// config with default options
	cfg := config.WithDefaults()
	for _, opt := range options {
		opt(cfg)
	}

	// one connection pool for every client built from this config
	if cfg.Transport == nil {
		cfg.Transport = client.PooledTransport(cfg)
	}
	return cfg
}

// newTokenProvider picks the authentication method from the configured
// credentials. Tokens are cached and shared by every connection of the config.
func newTokenProvider(cfg *config.Config, httpClient *http.Client) (tokenprovider.TokenProvider, error) {
	var provider tokenprovider.TokenProvider
	switch cfg.AuthType() {
	case auth.AuthTypeCustom:
		provider = cfg.TokenProvider
	case auth.AuthTypeAccessToken:
		provider = tokenprovider.NewStaticTokenProvider(cfg.AccessToken)
	case auth.AuthTypeServiceAccount:
		provider = m2m.NewTokenProvider(cfg.ClientID, cfg.ClientSecret, cfg.APIEndpoint, httpClient)
	case auth.AuthTypePassword:
		provider = tokenprovider.NewPasswordTokenProvider(cfg.APIEndpoint, cfg.Username, cfg.Password, httpClient)
	default:
		logger.Error().Msg(fberrs.ErrNoCredentials)
		return nil, fberrs.NewAuthenticationError(context.Background(), fberrs.ErrNoCredentials, nil)
	}

	logger.Debug().Msgf("firebolt: using %s token provider for %s authentication", provider.Name(), cfg.AuthType())
	return tokenprovider.NewCachedTokenProvider(provider), nil
}

// WithUsername sets the user name used to log in. Mandatory unless another
// authentication method is set.
func WithUsername(username string) ConnOption {
	return func(c *config.Config) {
		c.Username = username
	}
}

// WithPassword sets the password used to log in.
func WithPassword(password string) ConnOption {
	return func(c *config.Config) {
		c.Password = password
	}
}

// WithClientCredentials authenticates as a service account.
func WithClientCredentials(clientID, clientSecret string) ConnOption {
	return func(c *config.Config) {
		c.ClientID = clientID
		c.ClientSecret = clientSecret
	}
}

// WithAccessToken skips login and uses the given token.
func WithAccessToken(token string) ConnOption {
	return func(c *config.Config) {
		c.AccessToken = token
	}
}

// WithTokenProvider sets a custom source of access tokens. It takes
// precedence over every other authentication option.
func WithTokenProvider(provider tokenprovider.TokenProvider) ConnOption {
	return func(c *config.Config) {
		c.TokenProvider = provider
	}
}

// WithDatabase sets the database queries run against. Mandatory.
func WithDatabase(database string) ConnOption {
	return func(c *config.Config) {
		c.Database = database
	}
}

// WithEngineName resolves the engine by name instead of by database.
func WithEngineName(engine string) ConnOption {
	return func(c *config.Config) {
		c.EngineName = engine
	}
}

// WithEngineURL skips engine resolution.
func WithEngineURL(engineURL string) ConnOption {
	return func(c *config.Config) {
		c.EngineURL = engineURL
	}
}

// WithAPIEndpoint sets the control API. Default is https://api.app.firebolt.io,
// or the FIREBOLT_BASE_URL environment variable when it is set.
func WithAPIEndpoint(endpoint string) ConnOption {
	return func(c *config.Config) {
		c.APIEndpoint = endpoint
		c.UserConfig = c.UserConfig.WithDefaults()
	}
}

// WithAccount sets the account name.
func WithAccount(account string) ConnOption {
	return func(c *config.Config) {
		c.Account = account
	}
}

// WithHeader treats the first row of every result set as a header: it
// describes the columns but is not returned.
func WithHeader(header bool) ConnOption {
	return func(c *config.Config) {
		c.Header = header
	}
}

// WithChunkSize sets the number of bytes read from a response at a time. Default is 4096.
func WithChunkSize(n int) ConnOption {
	return func(c *config.Config) {
		if n > 0 {
			c.ChunkSize = n
		}
	}
}

// WithTimeout adds timeout for the server query execution. Default is no timeout.
func WithTimeout(n time.Duration) ConnOption {
	return func(c *config.Config) {
		c.QueryTimeout = n
	}
}

// WithRetries sets the retry policy of control API requests.
// A negative retryMax disables retries.
func WithRetries(retryMax int, retryWaitMin time.Duration, retryWaitMax time.Duration) ConnOption {
	return func(c *config.Config) {
		if retryWaitMin > 0 {
			c.RetryWaitMin = retryWaitMin
		}
		if retryWaitMax > 0 {
			c.RetryWaitMax = retryWaitMax
		}
		c.RetryMax = retryMax
		if retryMax < 0 {
			c.RetryMax = 0
		}
	}
}

// WithSessionParams sets settings sent with every query, as a SET statement would.
func WithSessionParams(params map[string]string) ConnOption {
	return func(c *config.Config) {
		for k, v := range params {
			c.SessionParams[k] = v
		}
	}
}

// WithUserAgentEntry is used to identify partners. Set as a string with format <isv-name+product-name>.
func WithUserAgentEntry(entry string) ConnOption {
	return func(c *config.Config) {
		c.UserAgentEntry = entry
	}
}

// WithTransport sets the round tripper of every HTTP request.
func WithTransport(t http.RoundTripper) ConnOption {
	return func(c *config.Config) {
		c.Transport = t
	}
}
