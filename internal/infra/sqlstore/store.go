// Package sqlstore implements the library store on a SQL database.
//
// The same implementation serves Postgres (driver "postgres") and SQLite
// (driver "sqlite3"); queries are written with ? placeholders and rebound
// to the driver's dialect.
package sqlstore

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/tunedeck/playd/internal/app/store"
	"github.com/tunedeck/playd/internal/domain/library"
	"github.com/tunedeck/playd/internal/domain/playlist"
	"github.com/tunedeck/playd/internal/domain/track"
)

// Store is a SQL-backed library store.
type Store struct {
	db *sqlx.DB
}

// Open connects to the database and bootstraps the schema.
func Open(driver, dsn string) (*Store, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open database")
	}

	// A pooled in-memory SQLite would give every connection its own database.
	if driver == "sqlite3" {
		db.SetMaxOpenConns(1)
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	// SQLite ships with referential actions disabled.
	if driver == "sqlite3" {
		if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
			return nil, errors.Wrap(err, "failed to enable foreign keys")
		}
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, errors.Wrap(err, "failed to bootstrap schema")
		}
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

type playlistRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	Description string    `db:"description"`
	CoverURL    string    `db:"cover_url"`
	UserID      string    `db:"user_id"`
	CreatedAt   time.Time `db:"created_at"`
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
	PlaylistID string    `db:"playlist_id"`
	TrackID    string    `db:"track_id"`
	Position   int       `db:"position"`
	TrackData  []byte    `db:"track_data"`
	CreatedAt  time.Time `db:"created_at"`
}

type snapshotRow struct {
	UserID    string    `db:"user_id"`
	TrackID   string    `db:"track_id"`
	TrackData []byte    `db:"track_data"`
	CreatedAt time.Time `db:"created_at"`
}

type recentSQLRow struct {
	UserID    string    `db:"user_id"`
	TrackID   string    `db:"track_id"`
	TrackData []byte    `db:"track_data"`
	PlayedAt  time.Time `db:"played_at"`
}

// GetPlaylist retrieves a playlist by id, scoped to its owner.
func (s *Store) GetPlaylist(ctx context.Context, id, ownerID string) (*playlist.Playlist, error) {
	query := s.db.Rebind(`SELECT id, name, description, cover_url, user_id, created_at
		FROM playlists WHERE id = ? AND user_id = ?`)

	var row playlistRow
	if err := s.db.GetContext(ctx, &row, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(store.ErrNotFound, "playlist %s", id)
		}
		return nil, errors.Wrap(err, "failed to select playlist")
	}
	p := row.toDomain()
	return &p, nil
}

// ListPlaylists returns all playlists owned by a user, newest first.
func (s *Store) ListPlaylists(ctx context.Context, ownerID string) ([]playlist.Playlist, error) {
	query := s.db.Rebind(`SELECT id, name, description, cover_url, user_id, created_at
		FROM playlists WHERE user_id = ? ORDER BY created_at DESC`)

	var rows []playlistRow
	if err := s.db.SelectContext(ctx, &rows, query, ownerID); err != nil {
		return nil, errors.Wrap(err, "failed to select playlists")
	}
	playlists := make([]playlist.Playlist, len(rows))
	for i, r := range rows {
		playlists[i] = r.toDomain()
	}
	return playlists, nil
}

// InsertPlaylist inserts a playlist row and returns the stored row with its
// server-assigned creation time.
func (s *Store) InsertPlaylist(ctx context.Context, p playlist.Playlist) (*playlist.Playlist, error) {
	query := s.db.Rebind(`INSERT INTO playlists (id, name, description, cover_url, user_id)
		VALUES (?, ?, ?, ?, ?)`)

	if _, err := s.db.ExecContext(ctx, query, p.ID, p.Name, p.Description, p.CoverURL, p.OwnerID); err != nil {
		if isConflict(err) {
			return nil, errors.Wrapf(store.ErrConflict, "playlist %s", p.ID)
		}
		return nil, errors.Wrap(err, "failed to insert playlist")
	}

	return s.GetPlaylist(ctx, p.ID, p.OwnerID)
}

// UpdatePlaylist applies a partial update scoped by id and owner.
func (s *Store) UpdatePlaylist(ctx context.Context, id, ownerID string, patch store.PlaylistPatch) (*playlist.Playlist, error) {
	sets := make([]string, 0, 3)
	args := make([]any, 0, 5)
	if patch.Name != nil {
		sets = append(sets, "name = ?")
		args = append(args, *patch.Name)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.CoverURL != nil {
		sets = append(sets, "cover_url = ?")
		args = append(args, *patch.CoverURL)
	}
	if len(sets) == 0 {
		return s.GetPlaylist(ctx, id, ownerID)
	}
	args = append(args, id, ownerID)

	query := s.db.Rebind(`UPDATE playlists SET ` + strings.Join(sets, ", ") + ` WHERE id = ? AND user_id = ?`)
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to update playlist")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, errors.Wrapf(store.ErrNotFound, "playlist %s", id)
	}

	return s.GetPlaylist(ctx, id, ownerID)
}

// DeletePlaylist removes a playlist row scoped by id and owner.
// Membership rows fall with it through the schema's cascade.
func (s *Store) DeletePlaylist(ctx context.Context, id, ownerID string) error {
	query := s.db.Rebind(`DELETE FROM playlists WHERE id = ? AND user_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, id, ownerID); err != nil {
		return errors.Wrap(err, "failed to delete playlist")
	}
	return nil
}

// ListPlaylistEntries returns a playlist's entries ordered by position.
func (s *Store) ListPlaylistEntries(ctx context.Context, playlistID string) ([]playlist.TrackEntry, error) {
	query := s.db.Rebind(`SELECT playlist_id, track_id, position, track_data, created_at
		FROM playlist_tracks WHERE playlist_id = ? ORDER BY position ASC`)

	var rows []entryRow
	if err := s.db.SelectContext(ctx, &rows, query, playlistID); err != nil {
		return nil, errors.Wrap(err, "failed to select playlist entries")
	}

	entries := make([]playlist.TrackEntry, len(rows))
	for i, r := range rows {
		t, err := track.FromSnapshot(r.TrackData)
		if err != nil {
			return nil, errors.Wrapf(err, "corrupt snapshot for track %s", r.TrackID)
		}
		entries[i] = playlist.TrackEntry{
			PlaylistID: r.PlaylistID,
			TrackID:    r.TrackID,
			Position:   r.Position,
			Track:      *t,
			AddedAt:    r.CreatedAt,
		}
	}
	return entries, nil
}

// InsertPlaylistEntry inserts a membership row.
func (s *Store) InsertPlaylistEntry(ctx context.Context, e playlist.TrackEntry) error {
	snapshot, err := e.Track.Snapshot()
	if err != nil {
		return errors.Wrap(err, "failed to encode snapshot")
	}

	query := s.db.Rebind(`INSERT INTO playlist_tracks (playlist_id, track_id, position, track_data)
		VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, e.PlaylistID, e.TrackID, e.Position, snapshot); err != nil {
		if isConflict(err) {
			return errors.Wrapf(store.ErrConflict, "entry %s/%s", e.PlaylistID, e.TrackID)
		}
		return errors.Wrap(err, "failed to insert playlist entry")
	}
	return nil
}

// DeletePlaylistEntry deletes one membership row by composite key.
func (s *Store) DeletePlaylistEntry(ctx context.Context, playlistID, trackID string) error {
	query := s.db.Rebind(`DELETE FROM playlist_tracks WHERE playlist_id = ? AND track_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, playlistID, trackID); err != nil {
		return errors.Wrap(err, "failed to delete playlist entry")
	}
	return nil
}

// DeletePlaylistEntries deletes all membership rows of a playlist.
func (s *Store) DeletePlaylistEntries(ctx context.Context, playlistID string) error {
	query := s.db.Rebind(`DELETE FROM playlist_tracks WHERE playlist_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, playlistID); err != nil {
		return errors.Wrap(err, "failed to delete playlist entries")
	}
	return nil
}

// GetFavorite retrieves one favorite row, or store.ErrNotFound.
func (s *Store) GetFavorite(ctx context.Context, userID, trackID string) (*library.FavoriteEntry, error) {
	query := s.db.Rebind(`SELECT user_id, track_id, track_data, created_at
		FROM favorite_tracks WHERE user_id = ? AND track_id = ?`)

	var row snapshotRow
	if err := s.db.GetContext(ctx, &row, query, userID, trackID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(store.ErrNotFound, "favorite %s", trackID)
		}
		return nil, errors.Wrap(err, "failed to select favorite")
	}

	t, err := track.FromSnapshot(row.TrackData)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt snapshot for track %s", trackID)
	}
	return &library.FavoriteEntry{
		UserID:    row.UserID,
		TrackID:   row.TrackID,
		Track:     *t,
		CreatedAt: row.CreatedAt,
	}, nil
}

// ListFavorites returns all favorites of a user, newest first.
func (s *Store) ListFavorites(ctx context.Context, userID string) ([]library.FavoriteEntry, error) {
	query := s.db.Rebind(`SELECT user_id, track_id, track_data, created_at
		FROM favorite_tracks WHERE user_id = ? ORDER BY created_at DESC, track_id DESC`)

	var rows []snapshotRow
	if err := s.db.SelectContext(ctx, &rows, query, userID); err != nil {
		return nil, errors.Wrap(err, "failed to select favorites")
	}

	entries := make([]library.FavoriteEntry, len(rows))
	for i, r := range rows {
		t, err := track.FromSnapshot(r.TrackData)
		if err != nil {
			return nil, errors.Wrapf(err, "corrupt snapshot for track %s", r.TrackID)
		}
		entries[i] = library.FavoriteEntry{
			UserID:    r.UserID,
			TrackID:   r.TrackID,
			Track:     *t,
			CreatedAt: r.CreatedAt,
		}
	}
	return entries, nil
}

// InsertFavorite inserts a favorite row with the track snapshot.
// The primary key turns a duplicate insert into store.ErrConflict, which
// narrows the concurrent-toggle race to a visible failure.
func (s *Store) InsertFavorite(ctx context.Context, e library.FavoriteEntry) error {
	snapshot, err := e.Track.Snapshot()
	if err != nil {
		return errors.Wrap(err, "failed to encode snapshot")
	}

	query := s.db.Rebind(`INSERT INTO favorite_tracks (user_id, track_id, track_data) VALUES (?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, e.UserID, e.TrackID, snapshot); err != nil {
		if isConflict(err) {
			return errors.Wrapf(store.ErrConflict, "favorite %s", e.TrackID)
		}
		return errors.Wrap(err, "failed to insert favorite")
	}
	return nil
}

// DeleteFavorite deletes a favorite row by composite key.
func (s *Store) DeleteFavorite(ctx context.Context, userID, trackID string) error {
	query := s.db.Rebind(`DELETE FROM favorite_tracks WHERE user_id = ? AND track_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, userID, trackID); err != nil {
		return errors.Wrap(err, "failed to delete favorite")
	}
	return nil
}

// GetRecentlyPlayed retrieves one history row, or store.ErrNotFound.
func (s *Store) GetRecentlyPlayed(ctx context.Context, userID, trackID string) (*library.RecentlyPlayedEntry, error) {
	query := s.db.Rebind(`SELECT user_id, track_id, track_data, played_at
		FROM recently_played WHERE user_id = ? AND track_id = ?`)

	var row recentSQLRow
	if err := s.db.GetContext(ctx, &row, query, userID, trackID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Wrapf(store.ErrNotFound, "recently played %s", trackID)
		}
		return nil, errors.Wrap(err, "failed to select recently played")
	}

	t, err := track.FromSnapshot(row.TrackData)
	if err != nil {
		return nil, errors.Wrapf(err, "corrupt snapshot for track %s", trackID)
	}
	return &library.RecentlyPlayedEntry{
		UserID:   row.UserID,
		TrackID:  row.TrackID,
		Track:    *t,
		PlayedAt: row.PlayedAt,
	}, nil
}

// ListRecentlyPlayed returns history rows newest first; limit 0 is unbounded.
func (s *Store) ListRecentlyPlayed(ctx context.Context, userID string, limit int) ([]library.RecentlyPlayedEntry, error) {
	q := `SELECT user_id, track_id, track_data, played_at
		FROM recently_played WHERE user_id = ? ORDER BY played_at DESC, track_id DESC`
	args := []any{userID}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows []recentSQLRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "failed to select recently played")
	}

	entries := make([]library.RecentlyPlayedEntry, len(rows))
	for i, r := range rows {
		t, err := track.FromSnapshot(r.TrackData)
		if err != nil {
			return nil, errors.Wrapf(err, "corrupt snapshot for track %s", r.TrackID)
		}
		entries[i] = library.RecentlyPlayedEntry{
			UserID:   r.UserID,
			TrackID:  r.TrackID,
			Track:    *t,
			PlayedAt: r.PlayedAt,
		}
	}
	return entries, nil
}

// InsertRecentlyPlayed inserts a history row stamped with playedAt.
func (s *Store) InsertRecentlyPlayed(ctx context.Context, e library.RecentlyPlayedEntry, playedAt time.Time) error {
	snapshot, err := e.Track.Snapshot()
	if err != nil {
		return errors.Wrap(err, "failed to encode snapshot")
	}

	query := s.db.Rebind(`INSERT INTO recently_played (user_id, track_id, track_data, played_at)
		VALUES (?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, e.UserID, e.TrackID, snapshot, playedAt.UTC()); err != nil {
		if isConflict(err) {
			return errors.Wrapf(store.ErrConflict, "recently played %s", e.TrackID)
		}
		return errors.Wrap(err, "failed to insert recently played")
	}
	return nil
}

// DeleteRecentlyPlayed deletes a history row by composite key.
func (s *Store) DeleteRecentlyPlayed(ctx context.Context, userID, trackID string) error {
	query := s.db.Rebind(`DELETE FROM recently_played WHERE user_id = ? AND track_id = ?`)
	if _, err := s.db.ExecContext(ctx, query, userID, trackID); err != nil {
		return errors.Wrap(err, "failed to delete recently played")
	}
	return nil
}

// isConflict detects unique-constraint violations across both drivers.
func isConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key")
}

// Verify contract satisfaction at compile time.
var _ store.Store = (*Store)(nil)
