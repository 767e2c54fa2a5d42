package catalog

import (
	"context"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/tunedeck/playd/internal/infra/config"
)

// NewChainFromConfig creates a provider chain from configuration.
func NewChainFromConfig(ctx context.Context, cfg *config.Config) (*Chain, error) {
	if len(cfg.Catalog.Providers) == 0 {
		return nil, errors.New("no catalog providers configured")
	}

	var providers []ProviderWithMetadata

	for i, pcfg := range cfg.Catalog.Providers {
		var provider Provider
		var err error
		zlog.Debug().Msgf("creating catalog provider: index=%d type=%s", i+1, pcfg.Type)
		switch pcfg.Type {
		case "deezer":
			provider, err = NewDeezerProvider(pcfg.Settings)

		case "spotify":
			provider, err = NewSpotifyProvider(ctx, pcfg.Settings)

		default:
			return nil, errors.Newf("unsupported provider type: %s (provider index %d)", pcfg.Type, i)
		}

		if err != nil {
			return nil, errors.Wrapf(err, "failed to create provider (index %d, type %s)", i, pcfg.Type)
		}

		displayName := pcfg.DisplayName
		if displayName == "" {
			displayName = provider.Name()
		}

		providers = append(providers, ProviderWithMetadata{
			Provider:    provider,
			DisplayName: displayName,
		})

		zlog.Info().Msgf("registered catalog provider: index=%d type=%s display_name=%s", i+1, pcfg.Type, displayName)
	}

	return NewChain(providers), nil
}
