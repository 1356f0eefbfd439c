package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/firebolt-db/firebolt-sql-go/internal/config"
	fberrs "github.com/firebolt-db/firebolt-sql-go/internal/errors"
	"github.com/firebolt-db/firebolt-sql-go/logger"
	"github.com/goccy/go-json"
	"github.com/pkg/errors"
)

const (
	engineURLByDatabasePath = "core/v1/account/engines:getURLByDatabaseName"
	enginesPath             = "core/v1/account/engines"
)

// EngineRef names the engine a connection runs its queries on. When
// EngineName is set the engine is looked up by name, otherwise the default
// engine of Database is used.
type EngineRef struct {
	Database   string
	EngineName string
}

// EndpointResolver maps a database or engine name to the url of a running engine.
type EndpointResolver interface {
	ResolveEngineURL(ctx context.Context, ref EngineRef, accessToken string) (string, error)
}

// ControlAPI resolves engine endpoints through the account API.
type ControlAPI struct {
	cfg        *config.Config
	httpClient *http.Client
}

var _ EndpointResolver = (*ControlAPI)(nil)

func NewControlAPI(cfg *config.Config, httpClient *http.Client) *ControlAPI {
	return &ControlAPI{cfg: cfg, httpClient: httpClient}
}

// ResolveEngineURL resolves ref. Failures are reported as a schema not found
// error for database lookups and as an engine not found error for engine lookups.
func (c *ControlAPI) ResolveEngineURL(ctx context.Context, ref EngineRef, accessToken string) (string, error) {
	if ref.EngineName != "" {
		return c.EngineURLByName(ctx, ref.EngineName, accessToken)
	}
	return c.EngineURLByDatabase(ctx, ref.Database, accessToken)
}

type engineURLResponse struct {
	EngineURL string `json:"engine_url"`
}

// EngineURLByDatabase returns the url of the default engine of database.
//
//	GET {api}/core/v1/account/engines:getURLByDatabaseName?database_name=...
func (c *ControlAPI) EngineURLByDatabase(ctx context.Context, database, accessToken string) (string, error) {
	msg, start := logger.Track("EngineURLByDatabase")
	defer logger.Duration(msg, start)

	u := c.cfg.ToAPIURL(engineURLByDatabasePath) + "?" + url.Values{"database_name": {database}}.Encode()

	var resp engineURLResponse
	if err := c.get(withClientMethod(ctx, getEngineURLByDatabase), u, accessToken, &resp); err != nil {
		return "", fberrs.NewSchemaNotFoundError(ctx, database, err)
	}
	if resp.EngineURL == "" {
		return "", fberrs.NewSchemaNotFoundError(ctx, database, errors.New("empty engine url"))
	}

	return resp.EngineURL, nil
}

type enginesResponse struct {
	Edges []struct {
		Node struct {
			Name     string `json:"name"`
			Endpoint string `json:"endpoint"`
		} `json:"node"`
	} `json:"edges"`
}

// EngineURLByName returns the endpoint of the engine called name. The API
// matches on substrings, an exact name match is preferred over the first result.
//
//	GET {api}/core/v1/account/engines?filter.name_contains=...
func (c *ControlAPI) EngineURLByName(ctx context.Context, name, accessToken string) (string, error) {
	msg, start := logger.Track("EngineURLByName")
	defer logger.Duration(msg, start)

	u := c.cfg.ToAPIURL(enginesPath) + "?" + url.Values{"filter.name_contains": {name}}.Encode()

	var resp enginesResponse
	if err := c.get(withClientMethod(ctx, getEngineByName), u, accessToken, &resp); err != nil {
		return "", fberrs.NewEngineNotFoundError(ctx, name, err)
	}

	endpoint := ""
	for _, edge := range resp.Edges {
		if edge.Node.Name == name {
			endpoint = edge.Node.Endpoint
			break
		}
		if endpoint == "" {
			endpoint = edge.Node.Endpoint
		}
	}
	if endpoint == "" {
		return "", fberrs.NewEngineNotFoundError(ctx, name, errors.New("no matching engine"))
	}

	return endpoint, nil
}

func (c *ControlAPI) get(ctx context.Context, u, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, fberrs.ErrInvalidURL)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	return errors.Wrap(json.Unmarshal(body, out), "failed to parse response")
}
