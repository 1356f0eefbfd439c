package tokenprovider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"

	fberrs "github.com/firebolt-db/firebolt-sql-go/internal/errors"
	"github.com/firebolt-db/firebolt-sql-go/logger"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const (
	loginPath   = "auth/v1/login"
	refreshPath = "auth/v1/refresh"
)

// PasswordTokenProvider logs in to the control API with a username and password.
//
//	POST {api}/auth/v1/login   {"username": ..., "password": ...}
//	POST {api}/auth/v1/refresh {"refresh_token": ...}
type PasswordTokenProvider struct {
	username   string
	password   string
	loginURL   string
	refreshURL string
	httpClient *http.Client
}

var _ TokenProvider = (*PasswordTokenProvider)(nil)
var _ Refresher = (*PasswordTokenProvider)(nil)

// NewPasswordTokenProvider creates a provider for the control API at apiEndpoint.
// A nil httpClient uses http.DefaultClient.
func NewPasswordTokenProvider(apiEndpoint, username, password string, httpClient *http.Client) *PasswordTokenProvider {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	base := strings.TrimRight(apiEndpoint, "/") + "/"
	return &PasswordTokenProvider{
		username:   username,
		password:   password,
		loginURL:   base + loginPath,
		refreshURL: base + refreshPath,
		httpClient: httpClient,
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
	TokenType    string `json:"token_type"`
}

// GetToken logs in and returns the access and refresh tokens.
// Rejected credentials are reported as an invalid credentials error.
func (p *PasswordTokenProvider) GetToken(ctx context.Context) (*Token, error) {
	status, resp, err := p.post(ctx, p.loginURL, loginRequest{Username: p.username, Password: p.password})
	if err != nil {
		if status == http.StatusUnauthorized || status == http.StatusForbidden {
			return nil, fberrs.NewInvalidCredentialsError(ctx, fberrs.ErrAccessToken, err)
		}
		return nil, fberrs.NewAuthenticationError(ctx, fberrs.ErrAccessToken, err)
	}

	logger.Debug().Msgf("password token provider: logged in as %s", p.username)
	return resp.toToken(), nil
}

// Refresh exchanges a refresh token for a new access token.
// The returned token keeps the refresh token it was obtained with.
func (p *PasswordTokenProvider) Refresh(ctx context.Context, refreshToken string) (*Token, error) {
	if refreshToken == "" {
		return nil, fberrs.NewAuthenticationError(ctx, fberrs.ErrRefreshAccessToken, errors.New("empty refresh token"))
	}

	_, resp, err := p.post(ctx, p.refreshURL, refreshRequest{RefreshToken: refreshToken})
	if err != nil {
		return nil, fberrs.NewAuthenticationError(ctx, fberrs.ErrRefreshAccessToken, err)
	}

	token := resp.toToken()
	if token.RefreshToken == "" {
		token.RefreshToken = refreshToken
	}
	logger.Debug().Msg("password token provider: access token refreshed")
	return token, nil
}

// Name returns the provider name
func (p *PasswordTokenProvider) Name() string {
	return "password"
}

func (p *PasswordTokenProvider) post(ctx context.Context, url string, payload any) (int, *tokenResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, errors.Wrap(err, "failed to encode request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Content-Type", "application/json;charset=UTF-8")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return 0, nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, "failed to read response")
	}

	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil, errors.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var tr tokenResponse
	if err := json.Unmarshal(respBody, &tr); err != nil {
		return resp.StatusCode, nil, errors.Wrap(err, "failed to parse response")
	}
	if tr.AccessToken == "" && tr.RefreshToken == "" {
		return resp.StatusCode, nil, errors.New("response carries no tokens")
	}

	return resp.StatusCode, &tr, nil
}

func (tr *tokenResponse) toToken() *Token {
	return &Token{
		AccessToken:  tr.AccessToken,
		TokenType:    tr.TokenType,
		RefreshToken: tr.RefreshToken,
		ExpiresAt:    expiresAt(tr.AccessToken, tr.ExpiresIn),
		Scopes:       strings.Fields(tr.Scope),
	}
}
