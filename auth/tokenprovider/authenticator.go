package tokenprovider

import (
	"context"
	"net/http"

	"github.com/firebolt-db/firebolt-sql-go/auth"
	fberrs "github.com/firebolt-db/firebolt-sql-go/internal/errors"
	"github.com/firebolt-db/firebolt-sql-go/logger"
	"github.com/pkg/errors"
)

// TokenProviderAuthenticator implements auth.Authenticator using a TokenProvider.
// Caching and refresh are left to the provider.
type TokenProviderAuthenticator struct {
	provider TokenProvider
}

// NewAuthenticator creates an authenticator from a token provider
func NewAuthenticator(provider TokenProvider) auth.Authenticator {
	return &TokenProviderAuthenticator{
		provider: provider,
	}
}

// Authenticate implements auth.Authenticator
func (a *TokenProviderAuthenticator) Authenticate(r *http.Request) error {
	ctx := r.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	token, err := a.provider.GetToken(ctx)
	if err != nil {
		return fberrs.WrapErr(err, "token provider authenticator: failed to get token")
	}

	if token.AccessToken == "" {
		return errors.New("token provider authenticator: empty access token")
	}

	token.SetAuthHeader(r)
	logger.Debug().Msgf("token provider authenticator: authenticated using provider %s", a.provider.Name())

	return nil
}
