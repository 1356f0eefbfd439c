package tokenprovider

import (
	"context"
	"fmt"
	"sync"
	"time"

	fberrs "github.com/firebolt-db/firebolt-sql-go/internal/errors"
	"github.com/firebolt-db/firebolt-sql-go/logger"
)

// CachedTokenProvider wraps another provider and caches tokens.
// Tokens close to expiry are renewed with their refresh token when the
// wrapped provider is a Refresher, and by a fresh GetToken otherwise.
type CachedTokenProvider struct {
	provider TokenProvider
	cache    *Token
	mutex    sync.RWMutex
	// RefreshThreshold determines when to refresh (default 5 minutes before expiry)
	RefreshThreshold time.Duration
}

var _ TokenProvider = (*CachedTokenProvider)(nil)
var _ Refresher = (*CachedTokenProvider)(nil)

// NewCachedTokenProvider creates a caching wrapper around any token provider
func NewCachedTokenProvider(provider TokenProvider) *CachedTokenProvider {
	return &CachedTokenProvider{
		provider:         provider,
		RefreshThreshold: 5 * time.Minute,
	}
}

// GetToken retrieves a token, using cache if available and valid
func (p *CachedTokenProvider) GetToken(ctx context.Context) (*Token, error) {
	p.mutex.RLock()
	cached := p.cache
	p.mutex.RUnlock()

	if cached != nil && !p.shouldRefresh(cached) {
		logger.Debug().Msgf("cached token provider: using cached token for provider %s", p.provider.Name())
		return cached, nil
	}

	p.mutex.Lock()
	defer p.mutex.Unlock()

	// Double-check after acquiring write lock
	if p.cache != nil && !p.shouldRefresh(p.cache) {
		return p.cache, nil
	}

	if p.cache != nil && p.cache.RefreshToken != "" {
		if refresher, ok := p.provider.(Refresher); ok {
			token, err := refresher.Refresh(ctx, p.cache.RefreshToken)
			if err == nil && token.AccessToken != "" {
				p.cache = token
				return token, nil
			}
			logger.Debug().Msgf("cached token provider: refresh failed for provider %s, logging in again", p.provider.Name())
		}
	}

	logger.Debug().Msgf("cached token provider: fetching new token from provider %s", p.provider.Name())
	token, err := p.provider.GetToken(ctx)
	if err != nil {
		return nil, fberrs.WrapErr(err, "cached token provider: failed to get token")
	}

	// tokens without an access token are never cached, the caller has to refresh them
	if token.AccessToken != "" {
		p.cache = token
	}
	return token, nil
}

// Refresh renews the token through the wrapped provider and caches the result.
func (p *CachedTokenProvider) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	refresher, ok := p.provider.(Refresher)
	if !ok {
		return nil, fmt.Errorf("cached token provider: provider %s cannot refresh tokens", p.provider.Name())
	}

	token, err := refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	p.mutex.Lock()
	if token.AccessToken != "" {
		p.cache = token
	}
	p.mutex.Unlock()
	return token, nil
}

// shouldRefresh determines if a token should be refreshed
func (p *CachedTokenProvider) shouldRefresh(token *Token) bool {
	if token == nil {
		return true
	}

	// If no expiry time, assume token doesn't expire
	if token.ExpiresAt.IsZero() {
		return false
	}

	refreshAt := token.ExpiresAt.Add(-p.RefreshThreshold)
	return time.Now().After(refreshAt)
}

// Name returns the provider name
func (p *CachedTokenProvider) Name() string {
	return fmt.Sprintf("cached[%s]", p.provider.Name())
}

// ClearCache clears the cached token
func (p *CachedTokenProvider) ClearCache() {
	p.mutex.Lock()
	p.cache = nil
	p.mutex.Unlock()
}
