// Package deezer provides a client for the Deezer public API.
package deezer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/tunedeck/playd/internal/domain/track"
)

// ErrNotFound is returned when the requested track does not exist.
var ErrNotFound = errors.New("track not found")

// requestTimeout bounds every catalog request; in-flight requests are
// aborted once it elapses and the failure is surfaced to the caller.
const requestTimeout = 10 * time.Second

// Client is a Deezer API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// Config represents Deezer client configuration.
type Config struct {
	BaseURL string
}

// SearchResponse represents the response from the /search endpoint.
type SearchResponse struct {
	Data  []track.Track `json:"data"`
	Total int           `json:"total"`
	Next  string        `json:"next,omitempty"`
}

// apiError represents an error envelope from the Deezer API.
// Deezer answers 200 with an error body instead of a non-2xx status.
type apiError struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

const codeNoData = 800

// New creates a new Deezer client.
func New(cfg Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = "https://api.deezer.com"
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		// The public API allows 50 requests per 5 seconds.
		limiter: rate.NewLimiter(rate.Limit(10), 10),
	}
}

// Search searches the catalog for tracks matching a free-text query.
func (c *Client) Search(ctx context.Context, query string) ([]track.Track, int, error) {
	if query == "" {
		return nil, 0, errors.New("search query is required")
	}

	params := url.Values{}
	params.Set("q", query)

	body, err := c.get(ctx, "/search", params)
	if err != nil {
		return nil, 0, err
	}

	var response SearchResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, 0, errors.Wrap(err, "failed to parse response")
	}

	return response.Data, response.Total, nil
}

// GetTrack retrieves a single track by its catalog ID.
func (c *Client) GetTrack(ctx context.Context, id int64) (*track.Track, error) {
	body, err := c.get(ctx, fmt.Sprintf("/track/%d", id), nil)
	if err != nil {
		return nil, err
	}

	var t track.Track
	if err := json.Unmarshal(body, &t); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}

	return &t, nil
}

// get performs a rate-limited GET against the API and returns the raw body
// after checking both the HTTP status and the Deezer error envelope.
func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(err, "rate limiter wait failed")
	}

	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	var envelope apiError
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Code != 0 {
		if envelope.Error.Code == codeNoData {
			return nil, errors.Wrapf(ErrNotFound, "deezer API error %d", envelope.Error.Code)
		}
		return nil, errors.Newf("deezer API error %d: %s", envelope.Error.Code, envelope.Error.Message)
	}

	return body, nil
}
