// Package playlist provides the Playlist domain entities.
package playlist

import (
	"sort"
	"time"

	"github.com/tunedeck/playd/internal/domain/track"
)

// Playlist represents a user-owned playlist.
// A playlist is mutated only by its owner.
type Playlist struct {
	ID          string    // Row ID (UUID)
	Name        string    // Playlist name
	Description string    // Playlist description
	CoverURL    string    // Public cover image URL (optional)
	OwnerID     string    // Owning user ID
	CreatedAt   time.Time // Server-assigned creation time
}

// TrackEntry represents a track's membership in a playlist.
// Within one playlist, positions are unique and define playback order.
// Positions are assigned at insertion time as max+1 and are never renumbered
// on deletion, so gaps are expected.
type TrackEntry struct {
	PlaylistID string      // Owning playlist ID
	TrackID    string      // Catalog track ID (decimal string)
	Position   int         // Ordering key, zero-based
	Track      track.Track // Denormalized track snapshot
	AddedAt    time.Time   // Server-assigned insertion time
}

// NextPosition returns the position a newly appended entry should take:
// max(position)+1, or 0 for an empty playlist. Gaps in the existing
// positions do not matter, only the maximum does.
func NextPosition(entries []TrackEntry) int {
	next := 0
	for _, e := range entries {
		if e.Position >= next {
			next = e.Position + 1
		}
	}
	return next
}

// SortByPosition orders entries ascending by position in place.
func SortByPosition(entries []TrackEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Position < entries[j].Position
	})
}

// Tracks returns the track snapshots in entry order.
func Tracks(entries []TrackEntry) []track.Track {
	tracks := make([]track.Track, len(entries))
	for i, e := range entries {
		tracks[i] = e.Track
	}
	return tracks
}

// TotalDuration returns the total duration of all entries in seconds.
func TotalDuration(entries []TrackEntry) int64 {
	var total int64
	for _, e := range entries {
		total += int64(e.Track.DurationSeconds)
	}
	return total
}
