package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/mitchellh/mapstructure"

	"github.com/tunedeck/playd/internal/domain/track"
	"github.com/tunedeck/playd/internal/infra/deezer"
)

// DeezerProviderConfig holds settings for the Deezer provider.
type DeezerProviderConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// DeezerProvider serves the catalog contract from the Deezer public API.
type DeezerProvider struct {
	client *deezer.Client
}

// NewDeezerProvider creates a Deezer-backed catalog provider.
func NewDeezerProvider(settings map[string]any) (*DeezerProvider, error) {
	var config DeezerProviderConfig
	if err := mapstructure.Decode(settings, &config); err != nil {
		return nil, errors.Wrap(err, "failed to decode settings")
	}
	if err := defaults.Set(&config); err != nil {
		return nil, errors.Wrap(err, "failed to set defaults")
	}
	if err := validator.New().Struct(config); err != nil {
		return nil, errors.Wrap(err, "validation failed")
	}

	return &DeezerProvider{
		client: deezer.New(deezer.Config{BaseURL: config.BaseURL}),
	}, nil
}

// Name returns the provider name.
func (p *DeezerProvider) Name() string {
	return "deezer"
}

// Search returns a page of tracks matching the query.
func (p *DeezerProvider) Search(ctx context.Context, query string) (*SearchResult, error) {
	tracks, total, err := p.client.Search(ctx, query)
	if err != nil {
		return nil, errors.Mark(err, ErrUnavailable)
	}
	return &SearchResult{Tracks: tracks, Total: total}, nil
}

// GetTrack retrieves a single track by catalog ID.
func (p *DeezerProvider) GetTrack(ctx context.Context, id int64) (*track.Track, error) {
	t, err := p.client.GetTrack(ctx, id)
	if err != nil {
		if errors.Is(err, deezer.ErrNotFound) {
			return nil, errors.Mark(err, ErrNotFound)
		}
		return nil, errors.Mark(err, ErrUnavailable)
	}
	return t, nil
}
