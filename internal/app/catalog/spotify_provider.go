package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/tunedeck/playd/internal/domain/track"
	"github.com/tunedeck/playd/internal/infra/spotify"
)

// SpotifyProviderConfig holds settings for the Spotify provider.
type SpotifyProviderConfig struct {
	ClientID     string `yaml:"client_id" mapstructure:"client_id" validate:"required"`
	ClientSecret string `yaml:"client_secret" mapstructure:"client_secret" validate:"required"`
	RefreshToken string `yaml:"refresh_token" mapstructure:"refresh_token" validate:"required"`
}

// SpotifyProvider serves the catalog contract from the Spotify API.
// It is a search-only fallback: numeric track IDs belong to the primary
// catalog and cannot be looked up here.
type SpotifyProvider struct {
	client *spotify.Client
}

// NewSpotifyProvider creates a Spotify-backed catalog provider.
func NewSpotifyProvider(ctx context.Context, settings map[string]any) (*SpotifyProvider, error) {
	var config SpotifyProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	client, err := spotify.New(ctx, spotify.Config{
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		RefreshToken: config.RefreshToken,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create spotify client")
	}

	return &SpotifyProvider{client: client}, nil
}

// Name returns the provider name.
func (p *SpotifyProvider) Name() string {
	return "spotify"
}

// Search returns a page of tracks matching the query.
func (p *SpotifyProvider) Search(ctx context.Context, query string) (*SearchResult, error) {
	tracks, total, err := p.client.Search(ctx, query)
	if err != nil {
		return nil, errors.Mark(err, ErrUnavailable)
	}
	return &SearchResult{Tracks: tracks, Total: total}, nil
}

// GetTrack retrieves a single track by catalog ID.
func (p *SpotifyProvider) GetTrack(ctx context.Context, id int64) (*track.Track, error) {
	t, err := p.client.GetTrack(ctx, id)
	if err != nil {
		return nil, errors.Mark(err, ErrNotFound)
	}
	return t, nil
}
