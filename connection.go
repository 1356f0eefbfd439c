package fbsql

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/firebolt-db/firebolt-sql-go/auth/tokenprovider"
	"github.com/firebolt-db/firebolt-sql-go/driverctx"
	fberr "github.com/firebolt-db/firebolt-sql-go/errors"
	fberrs "github.com/firebolt-db/firebolt-sql-go/internal/errors"
	"github.com/firebolt-db/firebolt-sql-go/internal/client"
	"github.com/firebolt-db/firebolt-sql-go/internal/config"
	"github.com/firebolt-db/firebolt-sql-go/logger"
)

// Connection is an authenticated session with one engine. It owns the
// cursors it creates and the session settings sent with every query.
//
// Cursors of one connection may be used from different goroutines.
type Connection struct {
	id  string
	cfg *config.Config

	// read only after Connect
	accessToken  string
	refreshToken string
	engineURL    string
	transport    client.QueryTransport

	mu       sync.Mutex
	cursors  []*Cursor
	settings map[string]string
	closed   bool

	logger_ *logger.FBLogger
}

// Connect logs in, resolves the engine of the configured database and
// returns a connection to it.
func Connect(ctx context.Context, options ...ConnOption) (*Connection, error) {
	cfg := newConfig(options...)

	httpClient := client.RetryableClient(cfg, nil)
	provider, err := newTokenProvider(cfg, httpClient)
	if err != nil {
		return nil, err
	}

	return connect(ctx, cfg, provider, client.NewControlAPI(cfg, httpClient))
}

// ConnectDSN is Connect with the settings of a DSN. Options are applied after
// the DSN.
func ConnectDSN(ctx context.Context, dsn string, options ...ConnOption) (*Connection, error) {
	ucfg, err := config.ParseDSN(dsn)
	if err != nil {
		return nil, err
	}

	return Connect(ctx, append([]ConnOption{withUserConfig(ucfg)}, options...)...)
}

func withUserConfig(ucfg config.UserConfig) ConnOption {
	return func(c *config.Config) {
		c.UserConfig = ucfg.WithDefaults()
	}
}

func connect(ctx context.Context, cfg *config.Config, provider tokenprovider.TokenProvider, resolver client.EndpointResolver) (*Connection, error) {
	connId := uuid.NewString()
	ctx = driverctx.NewContextWithConnId(ctx, connId)
	log := logger.WithContext(connId, driverctx.CorrelationIdFromContext(ctx), "")
	msg, start := logger.Track("Connect")
	defer log.Duration(msg, start)

	if cfg.Database == "" {
		log.Error().Msg(fberrs.ErrNoDatabase)
		return nil, errors.New(fberrs.ErrNoDatabase)
	}

	accessToken, refreshToken, err := login(ctx, provider)
	if err != nil {
		log.Err(err).Msg("firebolt: login failed")
		return nil, err
	}

	engineURL := cfg.EngineURL
	if engineURL == "" {
		ref := client.EngineRef{Database: cfg.Database, EngineName: cfg.EngineName}
		engineURL, err = resolver.ResolveEngineURL(ctx, ref, accessToken)
		if err != nil {
			log.Err(err).Msg("firebolt: engine resolution failed")
			return nil, err
		}
	}
	log.Debug().Msgf("firebolt: connected to engine %s for database %s", engineURL, cfg.Database)

	queryAuth := tokenprovider.NewAuthenticator(tokenprovider.NewStaticTokenProviderWithRefresh(accessToken, refreshToken))
	transport := client.NewQueryTransport(client.RetryableClient(cfg, queryAuth), cfg.QueryTimeout)

	settings := make(map[string]string, len(cfg.SessionParams))
	for k, v := range cfg.SessionParams {
		settings[k] = v
	}

	return &Connection{
		id:           connId,
		cfg:          cfg,
		accessToken:  accessToken,
		refreshToken: refreshToken,
		engineURL:    engineURL,
		transport:    transport,
		settings:     settings,
		logger_:      log,
	}, nil
}

// login returns an access and a refresh token. An empty access token is
// exchanged once through the refresh flow. Every failure is reported as
// invalid credentials.
func login(ctx context.Context, provider tokenprovider.TokenProvider) (string, string, error) {
	token, err := provider.GetToken(ctx)
	if err != nil {
		if !errors.Is(err, fberr.InvalidCredentials) {
			err = fberrs.NewInvalidCredentialsError(ctx, fberrs.ErrAccessToken, err)
		}
		return "", "", err
	}
	if token.AccessToken != "" {
		return token.AccessToken, token.RefreshToken, nil
	}

	refresher, ok := provider.(tokenprovider.Refresher)
	if !ok || token.RefreshToken == "" {
		return "", "", fberrs.NewInvalidCredentialsError(ctx, fberrs.ErrAccessToken, errors.New("empty access token"))
	}

	refreshed, err := refresher.Refresh(ctx, token.RefreshToken)
	if err != nil {
		return "", "", fberrs.NewInvalidCredentialsError(ctx, fberrs.ErrRefreshAccessToken, err)
	}
	if refreshed.AccessToken == "" {
		return "", "", fberrs.NewInvalidCredentialsError(ctx, fberrs.ErrRefreshAccessToken, errors.New("empty access token"))
	}

	refreshToken := refreshed.RefreshToken
	if refreshToken == "" {
		refreshToken = token.RefreshToken
	}
	return refreshed.AccessToken, refreshToken, nil
}

// Cursor returns a new cursor owned by the connection.
func (c *Connection) Cursor() (*Cursor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fberrs.NewProtocolStateError(c.context(context.Background()), fberrs.ErrConnectionClosed)
	}

	cur := newCursor(c)
	c.cursors = append(c.cursors, cur)
	return cur, nil
}

// Close closes every cursor of the connection. Closing twice is an error.
func (c *Connection) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return fberrs.NewProtocolStateError(c.context(context.Background()), fberrs.ErrConnectionClosed)
	}
	c.closed = true
	cursors := c.cursors
	c.cursors = nil
	c.mu.Unlock()

	c.logger().Debug().Msgf("firebolt: closing connection with %d cursors", len(cursors))

	for _, cur := range cursors {
		if err := cur.Close(); err != nil && !errors.Is(err, fberr.ProtocolStateError) {
			c.logger().Err(err).Msg("firebolt: failed to close cursor")
		}
	}
	return nil
}

// Closed reports whether Close has been called.
func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Commit does nothing, the service has no transactions.
func (c *Connection) Commit() error {
	return c.checkOpen()
}

// Rollback does nothing, the service has no transactions.
func (c *Connection) Rollback() error {
	return c.checkOpen()
}

func (c *Connection) AccessToken() string {
	return c.accessToken
}

func (c *Connection) RefreshToken() string {
	return c.refreshToken
}

func (c *Connection) EngineURL() string {
	return c.engineURL
}

func (c *Connection) Database() string {
	return c.cfg.Database
}

// Settings returns a copy of the session settings.
func (c *Connection) Settings() map[string]string {
	c.mu.Lock()
	defer c.mu.Unlock()

	settings := make(map[string]string, len(c.settings))
	for k, v := range c.settings {
		settings[k] = v
	}
	return settings
}

// ResetSettings drops every session setting, including the configured ones.
func (c *Connection) ResetSettings() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings = make(map[string]string)
}

func (c *Connection) setSetting(name, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.settings[name] = value
}

// forget drops a closed cursor from the connection.
func (c *Connection) forget(cur *Cursor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.cursors {
		if c.cursors[i] == cur {
			c.cursors = append(c.cursors[:i], c.cursors[i+1:]...)
			return
		}
	}
}

func (c *Connection) checkOpen() error {
	if c.Closed() {
		return fberrs.NewProtocolStateError(c.context(context.Background()), fberrs.ErrConnectionClosed)
	}
	return nil
}

// context adds the connection id to ctx.
func (c *Connection) context(ctx context.Context) context.Context {
	if driverctx.ConnIdFromContext(ctx) == c.id {
		return ctx
	}
	return driverctx.NewContextWithConnId(ctx, c.id)
}

func (c *Connection) logger() *logger.FBLogger {
	if c.logger_ == nil {
		c.logger_ = logger.WithContext(c.id, "", "")
	}
	return c.logger_
}
