// Package store defines the remote library store contract.
//
// The store is a row-oriented remote backend with per-user row ownership and
// server-assigned timestamps. Implementations expose only filtered
// single-statement primitives; all read-modify-write logic lives in the
// library service on top of them.
package store

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/tunedeck/playd/internal/domain/library"
	"github.com/tunedeck/playd/internal/domain/playlist"
)

// Errors
var (
	// ErrNotFound is returned when a referenced row does not exist.
	ErrNotFound = errors.New("row not found")
	// ErrConflict is returned when a unique constraint rejects an insert.
	ErrConflict = errors.New("row already exists")
)

// PlaylistPatch holds a partial playlist update. Nil fields are untouched.
type PlaylistPatch struct {
	Name        *string
	Description *string
	CoverURL    *string
}

// Store is the remote library row store.
// Every operation is scoped to the owning user where the collection has an
// owner column; no operation spans more than one statement.
type Store interface {
	// Playlists
	GetPlaylist(ctx context.Context, id, ownerID string) (*playlist.Playlist, error)
	ListPlaylists(ctx context.Context, ownerID string) ([]playlist.Playlist, error)
	InsertPlaylist(ctx context.Context, p playlist.Playlist) (*playlist.Playlist, error)
	UpdatePlaylist(ctx context.Context, id, ownerID string, patch PlaylistPatch) (*playlist.Playlist, error)
	DeletePlaylist(ctx context.Context, id, ownerID string) error

	// Playlist track entries, ordered ascending by position.
	ListPlaylistEntries(ctx context.Context, playlistID string) ([]playlist.TrackEntry, error)
	InsertPlaylistEntry(ctx context.Context, e playlist.TrackEntry) error
	DeletePlaylistEntry(ctx context.Context, playlistID, trackID string) error
	DeletePlaylistEntries(ctx context.Context, playlistID string) error

	// Favorites
	GetFavorite(ctx context.Context, userID, trackID string) (*library.FavoriteEntry, error)
	ListFavorites(ctx context.Context, userID string) ([]library.FavoriteEntry, error)
	InsertFavorite(ctx context.Context, e library.FavoriteEntry) error
	DeleteFavorite(ctx context.Context, userID, trackID string) error

	// Recently played, ordered descending by played_at.
	// A limit of 0 means unbounded.
	GetRecentlyPlayed(ctx context.Context, userID, trackID string) (*library.RecentlyPlayedEntry, error)
	ListRecentlyPlayed(ctx context.Context, userID string, limit int) ([]library.RecentlyPlayedEntry, error)
	InsertRecentlyPlayed(ctx context.Context, e library.RecentlyPlayedEntry, playedAt time.Time) error
	DeleteRecentlyPlayed(ctx context.Context, userID, trackID string) error
}

// ObjectStorage uploads binary objects and returns their public URL.
type ObjectStorage interface {
	Upload(ctx context.Context, path string, data []byte, contentType string) (string, error)
}
