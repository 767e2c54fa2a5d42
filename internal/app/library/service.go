// Package library implements the user's music library: favorites, playback
// history, and playlists, kept in a remote or local store.
package library

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	"github.com/tunedeck/playd/internal/app/store"
	"github.com/tunedeck/playd/internal/domain/library"
	"github.com/tunedeck/playd/internal/domain/playlist"
	"github.com/tunedeck/playd/internal/domain/track"
)

var (
	// ErrNotAuthenticated is returned when no user is configured.
	ErrNotAuthenticated = errors.New("not authenticated")
	// ErrValidation is returned for malformed input.
	ErrValidation = errors.New("validation failed")
)

const defaultRecentLimit = 20

// Config carries service parameters.
type Config struct {
	// OwnerID identifies the user all operations are scoped to.
	OwnerID string
	// ShareBaseURL is the public site prefix for share links.
	ShareBaseURL string
	// RecentLimit caps RecentlyPlayed; zero means the default of 20.
	RecentLimit int
}

// Service coordinates library operations against a row store.
type Service struct {
	store       store.Store
	objects     store.ObjectStorage
	ownerID     string
	shareBase   string
	recentLimit int
	now         func() time.Time
}

// New creates a library service. objects may be nil when the backing store
// has no object storage; playlist covers are then unsupported.
func New(s store.Store, objects store.ObjectStorage, cfg Config) *Service {
	limit := cfg.RecentLimit
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	return &Service{
		store:       s,
		objects:     objects,
		ownerID:     cfg.OwnerID,
		shareBase:   strings.TrimRight(cfg.ShareBaseURL, "/"),
		recentLimit: limit,
		now:         time.Now,
	}
}

func (s *Service) requireOwner() error {
	if s.ownerID == "" {
		return ErrNotAuthenticated
	}
	return nil
}

// ToggleFavorite flips a track's favorite status and reports the new state:
// true when the track is now a favorite.
func (s *Service) ToggleFavorite(ctx context.Context, t track.Track) (bool, error) {
	if err := s.requireOwner(); err != nil {
		return false, err
	}

	_, err := s.store.GetFavorite(ctx, s.ownerID, t.Key())
	switch {
	case err == nil:
		if err := s.store.DeleteFavorite(ctx, s.ownerID, t.Key()); err != nil {
			return false, errors.Wrap(err, "failed to remove favorite")
		}
		return false, nil
	case errors.Is(err, store.ErrNotFound):
		err := s.store.InsertFavorite(ctx, library.FavoriteEntry{
			UserID:  s.ownerID,
			TrackID: t.Key(),
			Track:   t,
		})
		if err != nil {
			return false, errors.Wrap(err, "failed to add favorite")
		}
		return true, nil
	default:
		return false, errors.Wrap(err, "failed to check favorite")
	}
}

// IsFavorite reports whether a track is currently a favorite.
func (s *Service) IsFavorite(ctx context.Context, trackID string) (bool, error) {
	if err := s.requireOwner(); err != nil {
		return false, err
	}
	_, err := s.store.GetFavorite(ctx, s.ownerID, trackID)
	if errors.Is(err, store.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to check favorite")
	}
	return true, nil
}

// Favorites returns the user's favorites, newest first.
func (s *Service) Favorites(ctx context.Context) ([]library.FavoriteEntry, error) {
	if err := s.requireOwner(); err != nil {
		return nil, err
	}
	entries, err := s.store.ListFavorites(ctx, s.ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list favorites")
	}
	return entries, nil
}

// RecordRecentlyPlayed moves a track to the front of the playback history.
// A replayed track keeps a single row carrying the latest play time.
func (s *Service) RecordRecentlyPlayed(ctx context.Context, t track.Track) error {
	if err := s.requireOwner(); err != nil {
		return err
	}

	if err := s.store.DeleteRecentlyPlayed(ctx, s.ownerID, t.Key()); err != nil {
		return errors.Wrap(err, "failed to clear previous play")
	}
	err := s.store.InsertRecentlyPlayed(ctx, library.RecentlyPlayedEntry{
		UserID:  s.ownerID,
		TrackID: t.Key(),
		Track:   t,
	}, s.now())
	if err != nil {
		return errors.Wrap(err, "failed to record play")
	}
	return nil
}

// RecentlyPlayed returns the newest history entries, capped by the
// configured limit.
func (s *Service) RecentlyPlayed(ctx context.Context) ([]library.RecentlyPlayedEntry, error) {
	if err := s.requireOwner(); err != nil {
		return nil, err
	}
	entries, err := s.store.ListRecentlyPlayed(ctx, s.ownerID, s.recentLimit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recently played")
	}
	return entries, nil
}

// RecentlyPlayedAll returns the full history, newest first, with at most one
// entry per track. Rows written before the move-to-front discipline existed
// may repeat a track; only the latest play survives.
func (s *Service) RecentlyPlayedAll(ctx context.Context) ([]library.RecentlyPlayedEntry, error) {
	if err := s.requireOwner(); err != nil {
		return nil, err
	}
	entries, err := s.store.ListRecentlyPlayed(ctx, s.ownerID, 0)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list recently played")
	}

	seen := make(map[string]struct{}, len(entries))
	deduped := entries[:0]
	for _, e := range entries {
		if _, ok := seen[e.TrackID]; ok {
			continue
		}
		seen[e.TrackID] = struct{}{}
		deduped = append(deduped, e)
	}
	return deduped, nil
}

// CoverUpload is an image to store as a playlist cover.
type CoverUpload struct {
	Data        []byte
	ContentType string
}

// CreatePlaylist creates a playlist owned by the configured user. When a
// cover is given it is uploaded first; a failed upload leaves no row behind.
func (s *Service) CreatePlaylist(ctx context.Context, name, description string, cover *CoverUpload) (*playlist.Playlist, error) {
	if err := s.requireOwner(); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.Wrap(ErrValidation, "playlist name is empty")
	}

	coverURL := ""
	if cover != nil {
		url, err := s.uploadCover(ctx, cover)
		if err != nil {
			return nil, err
		}
		coverURL = url
	}

	p, err := s.store.InsertPlaylist(ctx, playlist.Playlist{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		CoverURL:    coverURL,
		OwnerID:     s.ownerID,
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to create playlist")
	}
	return p, nil
}

// PlaylistUpdate carries the fields of a playlist edit; nil fields are left
// unchanged.
type PlaylistUpdate struct {
	Name        *string
	Description *string
	Cover       *CoverUpload
}

// UpdatePlaylist edits a playlist's metadata.
func (s *Service) UpdatePlaylist(ctx context.Context, id string, update PlaylistUpdate) (*playlist.Playlist, error) {
	if err := s.requireOwner(); err != nil {
		return nil, err
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, errors.Wrap(ErrValidation, "playlist name is empty")
	}

	patch := store.PlaylistPatch{
		Name:        update.Name,
		Description: update.Description,
	}
	if update.Cover != nil {
		url, err := s.uploadCover(ctx, update.Cover)
		if err != nil {
			return nil, err
		}
		patch.CoverURL = &url
	}

	p, err := s.store.UpdatePlaylist(ctx, id, s.ownerID, patch)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update playlist")
	}
	return p, nil
}

// DeletePlaylist removes a playlist and its entries. Entries go first so a
// store without referential actions is never left with orphan rows.
func (s *Service) DeletePlaylist(ctx context.Context, id string) error {
	if err := s.requireOwner(); err != nil {
		return err
	}
	if _, err := s.store.GetPlaylist(ctx, id, s.ownerID); err != nil {
		return errors.Wrap(err, "failed to load playlist")
	}
	if err := s.store.DeletePlaylistEntries(ctx, id); err != nil {
		return errors.Wrap(err, "failed to delete playlist entries")
	}
	if err := s.store.DeletePlaylist(ctx, id, s.ownerID); err != nil {
		return errors.Wrap(err, "failed to delete playlist")
	}
	return nil
}

// Playlists returns the user's playlists, newest first.
func (s *Service) Playlists(ctx context.Context) ([]playlist.Playlist, error) {
	if err := s.requireOwner(); err != nil {
		return nil, err
	}
	playlists, err := s.store.ListPlaylists(ctx, s.ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list playlists")
	}
	return playlists, nil
}

// Playlist returns one playlist by id.
func (s *Service) Playlist(ctx context.Context, id string) (*playlist.Playlist, error) {
	if err := s.requireOwner(); err != nil {
		return nil, err
	}
	p, err := s.store.GetPlaylist(ctx, id, s.ownerID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to load playlist")
	}
	return p, nil
}

// AddTrack appends a track to a playlist. The new entry is placed after the
// current highest position; gaps left by removals are never reused.
func (s *Service) AddTrack(ctx context.Context, playlistID string, t track.Track) error {
	if err := s.requireOwner(); err != nil {
		return err
	}
	if _, err := s.store.GetPlaylist(ctx, playlistID, s.ownerID); err != nil {
		return errors.Wrap(err, "failed to load playlist")
	}

	entries, err := s.store.ListPlaylistEntries(ctx, playlistID)
	if err != nil {
		return errors.Wrap(err, "failed to list playlist entries")
	}

	err = s.store.InsertPlaylistEntry(ctx, playlist.TrackEntry{
		PlaylistID: playlistID,
		TrackID:    t.Key(),
		Position:   playlist.NextPosition(entries),
		Track:      t,
	})
	if err != nil {
		return errors.Wrap(err, "failed to add track")
	}
	return nil
}

// RemoveTrack removes one track from a playlist. Remaining entries keep
// their positions.
func (s *Service) RemoveTrack(ctx context.Context, playlistID, trackID string) error {
	if err := s.requireOwner(); err != nil {
		return err
	}
	if _, err := s.store.GetPlaylist(ctx, playlistID, s.ownerID); err != nil {
		return errors.Wrap(err, "failed to load playlist")
	}
	if err := s.store.DeletePlaylistEntry(ctx, playlistID, trackID); err != nil {
		return errors.Wrap(err, "failed to remove track")
	}
	return nil
}

// PlaylistTracks returns a playlist's entries in position order.
func (s *Service) PlaylistTracks(ctx context.Context, playlistID string) ([]playlist.TrackEntry, error) {
	if err := s.requireOwner(); err != nil {
		return nil, err
	}
	if _, err := s.store.GetPlaylist(ctx, playlistID, s.ownerID); err != nil {
		return nil, errors.Wrap(err, "failed to load playlist")
	}
	entries, err := s.store.ListPlaylistEntries(ctx, playlistID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list playlist entries")
	}
	return entries, nil
}

// ShareLink builds the public URL for a playlist.
func (s *Service) ShareLink(playlistID string) string {
	return s.shareBase + "/playlist/" + playlistID
}

func (s *Service) uploadCover(ctx context.Context, cover *CoverUpload) (string, error) {
	if s.objects == nil {
		return "", errors.Wrap(ErrValidation, "store has no object storage")
	}
	path := fmt.Sprintf("%s/%d.%s", s.ownerID, s.now().UnixMilli(), coverExtension(cover.ContentType))
	url, err := s.objects.Upload(ctx, path, cover.Data, cover.ContentType)
	if err != nil {
		return "", errors.Wrap(err, "failed to upload cover")
	}
	return url, nil
}

func coverExtension(contentType string) string {
	switch contentType {
	case "image/png":
		return "png"
	case "image/gif":
		return "gif"
	case "image/webp":
		return "webp"
	default:
		return "jpg"
	}
}
