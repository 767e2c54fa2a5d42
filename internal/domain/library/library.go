// Package library provides the personal library row entities.
package library

import (
	"time"

	"github.com/tunedeck/playd/internal/domain/track"
)

// FavoriteEntry represents a favorited track.
// Presence of a row is the sole favorite-status signal; the (UserID, TrackID)
// pair is unique in steady state.
type FavoriteEntry struct {
	UserID    string      // Owning user ID
	TrackID   string      // Catalog track ID (decimal string)
	Track     track.Track // Denormalized track snapshot
	CreatedAt time.Time   // Server-assigned creation time
}

// RecentlyPlayedEntry represents a listening-history row.
// Replaying a track re-stamps its row with a fresh PlayedAt (move-to-front),
// so in steady state at most one row exists per (UserID, TrackID).
type RecentlyPlayedEntry struct {
	UserID   string      // Owning user ID
	TrackID  string      // Catalog track ID (decimal string)
	Track    track.Track // Denormalized track snapshot
	PlayedAt time.Time   // Last playback time
}
