package sqlstore

// Schema statements are written in the dialect subset shared by Postgres
// and SQLite. The composite primary keys back the one-row-per-pair
// invariants: a duplicate favorite or history insert fails with a
// constraint error instead of creating a second row.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS playlists (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT '',
		cover_url TEXT NOT NULL DEFAULT '',
		user_id TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS playlist_tracks (
		playlist_id TEXT NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
		track_id TEXT NOT NULL,
		position INTEGER NOT NULL,
		track_data TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (playlist_id, track_id)
	)`,
	`CREATE TABLE IF NOT EXISTS favorite_tracks (
		user_id TEXT NOT NULL,
		track_id TEXT NOT NULL,
		track_data TEXT NOT NULL,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, track_id)
	)`,
	`CREATE TABLE IF NOT EXISTS recently_played (
		user_id TEXT NOT NULL,
		track_id TEXT NOT NULL,
		track_data TEXT NOT NULL,
		played_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (user_id, track_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_playlists_user ON playlists (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_favorites_user ON favorite_tracks (user_id)`,
	`CREATE INDEX IF NOT EXISTS idx_recent_user ON recently_played (user_id)`,
}
