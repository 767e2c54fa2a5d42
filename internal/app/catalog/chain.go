package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/tunedeck/playd/internal/domain/track"
)

// ProviderWithMetadata wraps a provider with its display metadata.
type ProviderWithMetadata struct {
	Provider    Provider
	DisplayName string
}

// Chain tries multiple catalog providers in order until one succeeds.
type Chain struct {
	providers []ProviderWithMetadata
}

// NewChain creates a new provider chain.
func NewChain(providers []ProviderWithMetadata) *Chain {
	return &Chain{
		providers: providers,
	}
}

// Name returns the chain name.
func (c *Chain) Name() string {
	return "provider_chain"
}

// Search queries providers in order and returns the first successful page.
func (c *Chain) Search(ctx context.Context, query string) (*SearchResult, error) {
	var lastErr error

	for i, pm := range c.providers {
		zlog.Debug().Msgf("catalog: trying provider: index=%d total=%d name=%s",
			i+1, len(c.providers), pm.Provider.Name())

		result, err := pm.Provider.Search(ctx, query)
		if err != nil {
			zlog.Warn().Msgf("catalog: provider search failed, trying next: provider=%s error=%v",
				pm.Provider.Name(), err)
			lastErr = err
			continue
		}

		return result, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no catalog providers configured")
	}
	return nil, errors.Mark(errors.Wrap(lastErr, "all catalog providers failed"), ErrUnavailable)
}

// GetTrack resolves a track ID against providers in order. A provider that
// does not know the ID answers ErrNotFound and the next one is tried.
func (c *Chain) GetTrack(ctx context.Context, id int64) (*track.Track, error) {
	var lastErr error

	for _, pm := range c.providers {
		t, err := pm.Provider.GetTrack(ctx, id)
		if err != nil {
			lastErr = err
			continue
		}
		return t, nil
	}

	if lastErr == nil {
		lastErr = errors.New("no catalog providers configured")
	}
	return nil, errors.Wrapf(lastErr, "track %d not resolvable", id)
}

// Verify Chain satisfies the provider contract at compile time.
var _ Provider = (*Chain)(nil)
