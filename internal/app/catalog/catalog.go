// Package catalog provides the track catalog contract and its providers.
package catalog

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/tunedeck/playd/internal/domain/track"
)

// Errors
var (
	// ErrUnavailable marks catalog or transport failures, including timeouts.
	ErrUnavailable = errors.New("catalog unavailable")
	// ErrNotFound is returned when a referenced track does not exist.
	ErrNotFound = errors.New("track not found")
)

// SearchResult holds one page of search results.
type SearchResult struct {
	Tracks []track.Track
	Total  int
}

// Provider is a track catalog backend.
type Provider interface {
	// Name returns the provider name for logging.
	Name() string
	// Search returns a page of tracks matching a free-text query.
	Search(ctx context.Context, query string) (*SearchResult, error)
	// GetTrack retrieves a single track by catalog ID.
	GetTrack(ctx context.Context, id int64) (*track.Track, error)
}
