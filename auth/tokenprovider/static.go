package tokenprovider

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

// StaticTokenProvider provides a static token that never changes
type StaticTokenProvider struct {
	token        string
	refreshToken string
	tokenType    string
}

// NewStaticTokenProvider creates a provider with a static token
func NewStaticTokenProvider(token string) *StaticTokenProvider {
	return &StaticTokenProvider{
		token:     token,
		tokenType: "Bearer",
	}
}

// NewStaticTokenProviderWithRefresh creates a provider for a token pair obtained elsewhere
func NewStaticTokenProviderWithRefresh(token, refreshToken string) *StaticTokenProvider {
	return &StaticTokenProvider{
		token:        token,
		refreshToken: refreshToken,
		tokenType:    "Bearer",
	}
}

// GetToken returns the static token
func (p *StaticTokenProvider) GetToken(ctx context.Context) (*Token, error) {
	if p.token == "" {
		return nil, errors.New("static token provider: token is empty")
	}

	return &Token{
		AccessToken:  p.token,
		TokenType:    p.tokenType,
		RefreshToken: p.refreshToken,
		ExpiresAt:    time.Time{}, // Static tokens don't expire
	}, nil
}

// Name returns the provider name
func (p *StaticTokenProvider) Name() string {
	return "static"
}
