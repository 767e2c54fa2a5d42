// Package supastore implements the library store against a Supabase-style
// REST row API (PostgREST filters plus the storage object API).
package supastore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tunedeck/playd/internal/app/store"
	"github.com/tunedeck/playd/internal/domain/library"
	"github.com/tunedeck/playd/internal/domain/playlist"
	"github.com/tunedeck/playd/internal/domain/track"
)

const requestTimeout = 10 * time.Second

// Collection names, matching the hosted schema.
const (
	tablePlaylists      = "playlists"
	tablePlaylistTracks = "playlist_tracks"
	tableFavorites      = "favorite_tracks"
	tableRecentlyPlayed = "recently_played"
)

// Client is a REST row store client.
type Client struct {
	baseURL     string
	apiKey      string
	accessToken string
	bucket      string
	httpClient  *http.Client
}

// Config represents client configuration.
type Config struct {
	BaseURL     string // project base URL, no trailing slash
	APIKey      string // anon/service API key
	AccessToken string // user JWT; falls back to APIKey when empty
	CoverBucket string // storage bucket for playlist covers
}

// New creates a new REST store client.
func New(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	if cfg.APIKey == "" {
		return nil, errors.New("API key is required")
	}

	token := cfg.AccessToken
	if token == "" {
		token = cfg.APIKey
	}
	bucket := cfg.CoverBucket
	if bucket == "" {
		bucket = "playlist-covers"
	}

	return &Client{
		baseURL:     cfg.BaseURL,
		apiKey:      cfg.APIKey,
		accessToken: token,
		bucket:      bucket,
		httpClient:  &http.Client{Timeout: requestTimeout},
	}, nil
}

// Row DTOs. track_data is the denormalized snapshot column.

type playlistRow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CoverURL    string    `json:"cover_url"`
	UserID      string    `json:"user_id"`
	CreatedAt   time.Time `json:"created_at"`
}

func (r playlistRow) toDomain() playlist.Playlist {
	return playlist.Playlist{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		CoverURL:    r.CoverURL,
		OwnerID:     r.UserID,
		CreatedAt:   r.CreatedAt,
	}
}

type entryRow struct {
	PlaylistID string      `json:"playlist_id"`
	TrackID    string      `json:"track_id"`
	Position   int         `json:"position"`
	TrackData  track.Track `json:"track_data"`
	CreatedAt  time.Time   `json:"created_at"`
}

type favoriteRow struct {
	UserID    string      `json:"user_id"`
	TrackID   string      `json:"track_id"`
	TrackData track.Track `json:"track_data"`
	CreatedAt time.Time   `json:"created_at"`
}

type recentRow struct {
	UserID    string      `json:"user_id"`
	TrackID   string      `json:"track_id"`
	TrackData track.Track `json:"track_data"`
	PlayedAt  time.Time   `json:"played_at"`
}

// GetPlaylist retrieves a playlist by id, scoped to its owner.
func (c *Client) GetPlaylist(ctx context.Context, id, ownerID string) (*playlist.Playlist, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("id", "eq."+id)
	params.Set("user_id", "eq."+ownerID)
	params.Set("limit", "1")

	var rows []playlistRow
	if err := c.get(ctx, tablePlaylists, params, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(store.ErrNotFound, "playlist %s", id)
	}
	p := rows[0].toDomain()
	return &p, nil
}

// ListPlaylists returns all playlists owned by a user, newest first.
func (c *Client) ListPlaylists(ctx context.Context, ownerID string) ([]playlist.Playlist, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("user_id", "eq."+ownerID)
	params.Set("order", "created_at.desc")

	var rows []playlistRow
	if err := c.get(ctx, tablePlaylists, params, &rows); err != nil {
		return nil, err
	}
	playlists := make([]playlist.Playlist, len(rows))
	for i, r := range rows {
		playlists[i] = r.toDomain()
	}
	return playlists, nil
}

// InsertPlaylist inserts a playlist row and returns the stored representation.
func (c *Client) InsertPlaylist(ctx context.Context, p playlist.Playlist) (*playlist.Playlist, error) {
	payload := map[string]any{
		"id":          p.ID,
		"name":        p.Name,
		"description": p.Description,
		"cover_url":   p.CoverURL,
		"user_id":     p.OwnerID,
	}

	var rows []playlistRow
	if err := c.mutate(ctx, "POST", tablePlaylists, nil, payload, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.New("insert returned no representation")
	}
	stored := rows[0].toDomain()
	return &stored, nil
}

// UpdatePlaylist applies a partial update scoped by id and owner.
func (c *Client) UpdatePlaylist(ctx context.Context, id, ownerID string, patch store.PlaylistPatch) (*playlist.Playlist, error) {
	payload := map[string]any{}
	if patch.Name != nil {
		payload["name"] = *patch.Name
	}
	if patch.Description != nil {
		payload["description"] = *patch.Description
	}
	if patch.CoverURL != nil {
		payload["cover_url"] = *patch.CoverURL
	}
	if len(payload) == 0 {
		return c.GetPlaylist(ctx, id, ownerID)
	}

	params := url.Values{}
	params.Set("id", "eq."+id)
	params.Set("user_id", "eq."+ownerID)

	var rows []playlistRow
	if err := c.mutate(ctx, "PATCH", tablePlaylists, params, payload, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(store.ErrNotFound, "playlist %s", id)
	}
	stored := rows[0].toDomain()
	return &stored, nil
}

// DeletePlaylist removes a playlist row scoped by id and owner.
func (c *Client) DeletePlaylist(ctx context.Context, id, ownerID string) error {
	params := url.Values{}
	params.Set("id", "eq."+id)
	params.Set("user_id", "eq."+ownerID)
	return c.mutate(ctx, "DELETE", tablePlaylists, params, nil, nil)
}

// ListPlaylistEntries returns a playlist's entries ordered by position.
func (c *Client) ListPlaylistEntries(ctx context.Context, playlistID string) ([]playlist.TrackEntry, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("playlist_id", "eq."+playlistID)
	params.Set("order", "position.asc")

	var rows []entryRow
	if err := c.get(ctx, tablePlaylistTracks, params, &rows); err != nil {
		return nil, err
	}
	entries := make([]playlist.TrackEntry, len(rows))
	for i, r := range rows {
		entries[i] = playlist.TrackEntry{
			PlaylistID: r.PlaylistID,
			TrackID:    r.TrackID,
			Position:   r.Position,
			Track:      r.TrackData,
			AddedAt:    r.CreatedAt,
		}
	}
	return entries, nil
}

// InsertPlaylistEntry inserts a membership row.
func (c *Client) InsertPlaylistEntry(ctx context.Context, e playlist.TrackEntry) error {
	payload := map[string]any{
		"playlist_id": e.PlaylistID,
		"track_id":    e.TrackID,
		"position":    e.Position,
		"track_data":  e.Track,
	}
	return c.mutate(ctx, "POST", tablePlaylistTracks, nil, payload, nil)
}

// DeletePlaylistEntry deletes one membership row by composite key.
func (c *Client) DeletePlaylistEntry(ctx context.Context, playlistID, trackID string) error {
	params := url.Values{}
	params.Set("playlist_id", "eq."+playlistID)
	params.Set("track_id", "eq."+trackID)
	return c.mutate(ctx, "DELETE", tablePlaylistTracks, params, nil, nil)
}

// DeletePlaylistEntries deletes all membership rows of a playlist.
func (c *Client) DeletePlaylistEntries(ctx context.Context, playlistID string) error {
	params := url.Values{}
	params.Set("playlist_id", "eq."+playlistID)
	return c.mutate(ctx, "DELETE", tablePlaylistTracks, params, nil, nil)
}

// GetFavorite retrieves one favorite row, or store.ErrNotFound.
func (c *Client) GetFavorite(ctx context.Context, userID, trackID string) (*library.FavoriteEntry, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("user_id", "eq."+userID)
	params.Set("track_id", "eq."+trackID)
	params.Set("limit", "1")

	var rows []favoriteRow
	if err := c.get(ctx, tableFavorites, params, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(store.ErrNotFound, "favorite %s", trackID)
	}
	r := rows[0]
	return &library.FavoriteEntry{
		UserID:    r.UserID,
		TrackID:   r.TrackID,
		Track:     r.TrackData,
		CreatedAt: r.CreatedAt,
	}, nil
}

// ListFavorites returns all favorites of a user, newest first.
func (c *Client) ListFavorites(ctx context.Context, userID string) ([]library.FavoriteEntry, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("user_id", "eq."+userID)
	params.Set("order", "created_at.desc")

	var rows []favoriteRow
	if err := c.get(ctx, tableFavorites, params, &rows); err != nil {
		return nil, err
	}
	entries := make([]library.FavoriteEntry, len(rows))
	for i, r := range rows {
		entries[i] = library.FavoriteEntry{
			UserID:    r.UserID,
			TrackID:   r.TrackID,
			Track:     r.TrackData,
			CreatedAt: r.CreatedAt,
		}
	}
	return entries, nil
}

// InsertFavorite inserts a favorite row with the track snapshot.
func (c *Client) InsertFavorite(ctx context.Context, e library.FavoriteEntry) error {
	payload := map[string]any{
		"user_id":    e.UserID,
		"track_id":   e.TrackID,
		"track_data": e.Track,
	}
	return c.mutate(ctx, "POST", tableFavorites, nil, payload, nil)
}

// DeleteFavorite deletes a favorite row by composite key.
func (c *Client) DeleteFavorite(ctx context.Context, userID, trackID string) error {
	params := url.Values{}
	params.Set("user_id", "eq."+userID)
	params.Set("track_id", "eq."+trackID)
	return c.mutate(ctx, "DELETE", tableFavorites, params, nil, nil)
}

// GetRecentlyPlayed retrieves one history row, or store.ErrNotFound.
func (c *Client) GetRecentlyPlayed(ctx context.Context, userID, trackID string) (*library.RecentlyPlayedEntry, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("user_id", "eq."+userID)
	params.Set("track_id", "eq."+trackID)
	params.Set("limit", "1")

	var rows []recentRow
	if err := c.get(ctx, tableRecentlyPlayed, params, &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, errors.Wrapf(store.ErrNotFound, "recently played %s", trackID)
	}
	r := rows[0]
	return &library.RecentlyPlayedEntry{
		UserID:   r.UserID,
		TrackID:  r.TrackID,
		Track:    r.TrackData,
		PlayedAt: r.PlayedAt,
	}, nil
}

// ListRecentlyPlayed returns history rows newest first; limit 0 is unbounded.
func (c *Client) ListRecentlyPlayed(ctx context.Context, userID string, limit int) ([]library.RecentlyPlayedEntry, error) {
	params := url.Values{}
	params.Set("select", "*")
	params.Set("user_id", "eq."+userID)
	params.Set("order", "played_at.desc")
	if limit > 0 {
		params.Set("limit", fmt.Sprintf("%d", limit))
	}

	var rows []recentRow
	if err := c.get(ctx, tableRecentlyPlayed, params, &rows); err != nil {
		return nil, err
	}
	entries := make([]library.RecentlyPlayedEntry, len(rows))
	for i, r := range rows {
		entries[i] = library.RecentlyPlayedEntry{
			UserID:   r.UserID,
			TrackID:  r.TrackID,
			Track:    r.TrackData,
			PlayedAt: r.PlayedAt,
		}
	}
	return entries, nil
}

// InsertRecentlyPlayed inserts a history row stamped with playedAt.
func (c *Client) InsertRecentlyPlayed(ctx context.Context, e library.RecentlyPlayedEntry, playedAt time.Time) error {
	payload := map[string]any{
		"user_id":    e.UserID,
		"track_id":   e.TrackID,
		"track_data": e.Track,
		"played_at":  playedAt.UTC().Format(time.RFC3339Nano),
	}
	return c.mutate(ctx, "POST", tableRecentlyPlayed, nil, payload, nil)
}

// DeleteRecentlyPlayed deletes a history row by composite key.
func (c *Client) DeleteRecentlyPlayed(ctx context.Context, userID, trackID string) error {
	params := url.Values{}
	params.Set("user_id", "eq."+userID)
	params.Set("track_id", "eq."+trackID)
	return c.mutate(ctx, "DELETE", tableRecentlyPlayed, params, nil, nil)
}

// Upload stores an object in the cover bucket and returns its public URL.
func (c *Client) Upload(ctx context.Context, path string, data []byte, contentType string) (string, error) {
	reqURL := fmt.Sprintf("%s/storage/v1/object/%s/%s", c.baseURL, c.bucket, path)

	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewReader(data))
	if err != nil {
		return "", errors.Wrap(err, "failed to create request")
	}
	c.setAuthHeaders(req)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return "", errors.Newf("upload failed with status %d: %s", resp.StatusCode, string(body))
	}

	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", c.baseURL, c.bucket, path), nil
}

// get performs a filtered select and decodes the row array into out.
func (c *Client) get(ctx context.Context, table string, params url.Values, out any) error {
	reqURL := c.restURL(table, params)

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	c.setAuthHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return errors.Newf("select from %s failed with status %d: %s", table, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to parse response")
	}
	return nil
}

// mutate performs an insert, update or delete. When out is non-nil the
// stored representation is requested and decoded into it.
func (c *Client) mutate(ctx context.Context, method, table string, params url.Values, payload, out any) error {
	var bodyReader io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return errors.Wrap(err, "failed to encode payload")
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.restURL(table, params), bodyReader)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	c.setAuthHeaders(req)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if out != nil {
		req.Header.Set("Prefer", "return=representation")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "failed to read response body")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// 409 is the unique-constraint answer for duplicate inserts.
		if resp.StatusCode == http.StatusConflict {
			return errors.Wrapf(store.ErrConflict, "%s %s", method, table)
		}
		return errors.Newf("%s on %s failed with status %d: %s", method, table, resp.StatusCode, string(body))
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return errors.Wrap(err, "failed to parse representation")
		}
	}
	return nil
}

func (c *Client) restURL(table string, params url.Values) string {
	reqURL := fmt.Sprintf("%s/rest/v1/%s", c.baseURL, table)
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}
	return reqURL
}

func (c *Client) setAuthHeaders(req *http.Request) {
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Accept", "application/json")
}

// Verify contract satisfaction at compile time.
var (
	_ store.Store         = (*Client)(nil)
	_ store.ObjectStorage = (*Client)(nil)
)
