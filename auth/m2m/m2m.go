package m2m

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/firebolt-db/firebolt-sql-go/auth/tokenprovider"
	fberrs "github.com/firebolt-db/firebolt-sql-go/internal/errors"
	"github.com/firebolt-db/firebolt-sql-go/logger"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const tokenPath = "auth/v1/token"

// NewTokenProvider returns a provider for service accounts using the OAuth2
// client credentials grant against the control API at apiEndpoint.
// A nil httpClient uses http.DefaultClient.
func NewTokenProvider(clientID, clientSecret, apiEndpoint string, httpClient *http.Client) *ClientCredentialsProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ClientCredentialsProvider{
		config:     GetConfig(apiEndpoint, clientID, clientSecret),
		httpClient: httpClient,
	}
}

// ClientCredentialsProvider authenticates a service account.
type ClientCredentialsProvider struct {
	config      clientcredentials.Config
	httpClient  *http.Client
	tokenSource oauth2.TokenSource
	mx          sync.Mutex
}

var _ tokenprovider.TokenProvider = (*ClientCredentialsProvider)(nil)

// GetToken returns the current service account token, fetching a new one
// when the previous one expired.
func (c *ClientCredentialsProvider) GetToken(ctx context.Context) (*tokenprovider.Token, error) {
	c.mx.Lock()
	defer c.mx.Unlock()

	if c.tokenSource == nil {
		// the token source keeps the client from this context for every later fetch
		c.tokenSource = GetTokenSource(context.WithValue(context.Background(), oauth2.HTTPClient, c.httpClient), c.config)
	}

	token, err := c.tokenSource.Token()
	if err != nil {
		logger.Err(err).Msg("failed to get service account token")
		if retrieveErr, ok := err.(*oauth2.RetrieveError); ok && retrieveErr.Response != nil &&
			(retrieveErr.Response.StatusCode == http.StatusUnauthorized || retrieveErr.Response.StatusCode == http.StatusForbidden) {
			return nil, fberrs.NewInvalidCredentialsError(ctx, fberrs.ErrAccessToken, err)
		}
		return nil, fberrs.NewAuthenticationError(ctx, fberrs.ErrAccessToken, err)
	}
	logger.Debug().Msgf("service account token fetched for %s", c.config.ClientID)

	return &tokenprovider.Token{
		AccessToken:  token.AccessToken,
		TokenType:    token.Type(),
		ExpiresAt:    token.Expiry,
		RefreshToken: token.RefreshToken,
	}, nil
}

func (c *ClientCredentialsProvider) Name() string {
	return "service-account"
}

func GetTokenSource(ctx context.Context, config clientcredentials.Config) oauth2.TokenSource {
	return config.TokenSource(ctx)
}

// GetConfig builds the client credentials configuration. The audience is the
// control API itself.
func GetConfig(apiEndpoint, clientID, clientSecret string) clientcredentials.Config {
	apiEndpoint = strings.TrimRight(apiEndpoint, "/")
	audience := apiEndpoint
	if u, err := url.Parse(apiEndpoint); err == nil && u.Host != "" {
		audience = "https://" + u.Host
	}

	return clientcredentials.Config{
		ClientID:       clientID,
		ClientSecret:   clientSecret,
		TokenURL:       apiEndpoint + "/" + tokenPath,
		EndpointParams: url.Values{"audience": {audience}},
	}
}
