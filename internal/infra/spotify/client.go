// Package spotify provides a catalog client backed by the Spotify API.
package spotify

import (
	"context"
	"hash/fnv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/tunedeck/playd/internal/domain/track"
)

// ErrNotFound is returned for track lookups; catalog track IDs are numeric
// and cannot be resolved against Spotify's base62 identifiers, so lookup is
// served by the primary catalog only.
var ErrNotFound = errors.New("track not found")

// Client is a Spotify catalog client.
// Spotify exposes 30-second preview URLs on tracks, which makes it a usable
// fallback catalog when the primary one is unreachable.
type Client struct {
	client     *spotify.Client
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
}

// New creates a new Spotify client.
func New(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
	)

	// Token refresh is handled by the oauth2 transport.
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}

	httpClient := auth.Client(ctx, token)

	return &Client{
		client:     spotify.New(httpClient),
		maxRetries: 3,
		retryDelay: time.Second,
	}, nil
}

// Search searches Spotify for tracks matching a free-text query.
// Tracks without a preview URL are skipped, they cannot be played here.
func (c *Client) Search(ctx context.Context, query string) ([]track.Track, int, error) {
	if query == "" {
		return nil, 0, errors.New("search query is required")
	}

	var result *spotify.SearchResult
	err := c.retry(func() error {
		r, err := c.client.Search(ctx, query, spotify.SearchTypeTrack, spotify.Limit(25))
		if err != nil {
			return err
		}
		result = r
		return nil
	})
	if err != nil {
		return nil, 0, errors.Wrap(err, "failed to search")
	}

	tracks := make([]track.Track, 0, len(result.Tracks.Tracks))
	for _, t := range result.Tracks.Tracks {
		if t.PreviewURL == "" {
			continue
		}
		tracks = append(tracks, *convertTrack(&t))
	}

	return tracks, int(result.Tracks.Total), nil
}

// GetTrack always fails with ErrNotFound; see the sentinel's doc comment.
func (c *Client) GetTrack(_ context.Context, id int64) (*track.Track, error) {
	return nil, errors.Wrapf(ErrNotFound, "track %d", id)
}

// convertTrack converts a Spotify FullTrack to a domain Track.
// The numeric track identity is derived from the Spotify ID with FNV-1a,
// which is stable across calls so library snapshots stay consistent.
func convertTrack(t *spotify.FullTrack) *track.Track {
	var artist track.Artist
	if len(t.Artists) > 0 {
		artist = track.Artist{
			ID:   deriveID(string(t.Artists[0].ID)),
			Name: t.Artists[0].Name,
		}
	}

	album := track.Album{
		ID:    deriveID(string(t.Album.ID)),
		Title: t.Album.Name,
	}
	// Spotify orders images largest first.
	if len(t.Album.Images) > 0 {
		album.CoverMedium = t.Album.Images[0].URL
	}
	if len(t.Album.Images) > 1 {
		album.CoverSmall = t.Album.Images[len(t.Album.Images)-1].URL
	}

	return &track.Track{
		ID:              deriveID(string(t.ID)),
		Title:           t.Name,
		DurationSeconds: int(t.Duration / 1000),
		PreviewURL:      t.PreviewURL,
		Artist:          artist,
		Album:           album,
	}
}

// deriveID maps a base62 Spotify ID onto a stable positive integer.
func deriveID(id string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	v := int64(h.Sum64())
	if v < 0 {
		v = -v
	}
	return v
}

// retry retries an operation with linear backoff.
func (c *Client) retry(fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			time.Sleep(c.retryDelay * time.Duration(i+1))
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}
