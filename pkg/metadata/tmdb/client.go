package tmdb

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/robinjoseph08/golib/logger"
	"github.com/segmentio/encoding/json"
)

const DefaultBaseURL = "https://api.themoviedb.org/3"

var (
	ErrAPIKeyMissing = errors.New("tmdb api key is not configured")
	ErrUnauthorized  = errors.New("tmdb rejected the api key")
	ErrRateLimited   = errors.New("tmdb rate limit reached")
	ErrAPI           = errors.New("tmdb api error")

	errNotFound = errors.New("tmdb resource not found")
)

type Config struct {
	APIKey   string
	BaseURL  string
	Language string
}

type client struct {
	httpClient *http.Client
	config     Config
}

func newClient(cfg Config) *client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		config:     cfg,
	}
}

// get requests path with params and decodes the JSON body into result. A 404 yields
// errNotFound.
func (c *client) get(ctx context.Context, path string, params url.Values, result interface{}) error {
	if params == nil {
		params = url.Values{}
	}
	params.Set("api_key", c.config.APIKey)
	if c.config.Language != "" {
		params.Set("language", c.config.Language)
	}
	endpoint := c.config.BaseURL + path

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "tmdb request failed")
	}
	defer resp.Body.Close()

	logger.FromContext(ctx).Debug("tmdb request", logger.Data{
		"path":     path,
		"status":   resp.StatusCode,
		"duration": time.Since(start).String(),
	})

	if resp.StatusCode != http.StatusOK {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)

		switch resp.StatusCode {
		case http.StatusNotFound:
			return errNotFound
		case http.StatusUnauthorized:
			return ErrUnauthorized
		case http.StatusTooManyRequests:
			return ErrRateLimited
		}
		return errors.Wrap(ErrAPI, fmt.Sprintf("status %d: %s", resp.StatusCode, errResp.StatusMessage))
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return errors.Wrap(err, "failed to decode tmdb response")
	}
	return nil
}
