package library

import (
	"context"
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tunedeck/playd/internal/app/store"
	"github.com/tunedeck/playd/internal/domain/library"
	"github.com/tunedeck/playd/internal/domain/playlist"
	"github.com/tunedeck/playd/internal/domain/track"
)

type fakeStore struct {
	playlists map[string]playlist.Playlist
	entries   map[string][]playlist.TrackEntry
	favorites map[string]library.FavoriteEntry
	recent    []library.RecentlyPlayedEntry

	uploads []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		playlists: make(map[string]playlist.Playlist),
		entries:   make(map[string][]playlist.TrackEntry),
		favorites: make(map[string]library.FavoriteEntry),
	}
}

func favKey(userID, trackID string) string { return userID + "/" + trackID }

func (f *fakeStore) GetPlaylist(_ context.Context, id, ownerID string) (*playlist.Playlist, error) {
	p, ok := f.playlists[id]
	if !ok || p.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (f *fakeStore) ListPlaylists(_ context.Context, ownerID string) ([]playlist.Playlist, error) {
	var out []playlist.Playlist
	for _, p := range f.playlists {
		if p.OwnerID == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) InsertPlaylist(_ context.Context, p playlist.Playlist) (*playlist.Playlist, error) {
	if _, ok := f.playlists[p.ID]; ok {
		return nil, store.ErrConflict
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}
	f.playlists[p.ID] = p
	return &p, nil
}

func (f *fakeStore) UpdatePlaylist(_ context.Context, id, ownerID string, patch store.PlaylistPatch) (*playlist.Playlist, error) {
	p, ok := f.playlists[id]
	if !ok || p.OwnerID != ownerID {
		return nil, store.ErrNotFound
	}
	if patch.Name != nil {
		p.Name = *patch.Name
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.CoverURL != nil {
		p.CoverURL = *patch.CoverURL
	}
	f.playlists[id] = p
	return &p, nil
}

func (f *fakeStore) DeletePlaylist(_ context.Context, id, ownerID string) error {
	p, ok := f.playlists[id]
	if ok && p.OwnerID == ownerID {
		delete(f.playlists, id)
	}
	return nil
}

func (f *fakeStore) ListPlaylistEntries(_ context.Context, playlistID string) ([]playlist.TrackEntry, error) {
	entries := append([]playlist.TrackEntry(nil), f.entries[playlistID]...)
	playlist.SortByPosition(entries)
	return entries, nil
}

func (f *fakeStore) InsertPlaylistEntry(_ context.Context, e playlist.TrackEntry) error {
	for _, existing := range f.entries[e.PlaylistID] {
		if existing.TrackID == e.TrackID {
			return store.ErrConflict
		}
	}
	f.entries[e.PlaylistID] = append(f.entries[e.PlaylistID], e)
	return nil
}

func (f *fakeStore) DeletePlaylistEntry(_ context.Context, playlistID, trackID string) error {
	entries := f.entries[playlistID]
	for i, e := range entries {
		if e.TrackID == trackID {
			f.entries[playlistID] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	return nil
}

func (f *fakeStore) DeletePlaylistEntries(_ context.Context, playlistID string) error {
	delete(f.entries, playlistID)
	return nil
}

func (f *fakeStore) GetFavorite(_ context.Context, userID, trackID string) (*library.FavoriteEntry, error) {
	e, ok := f.favorites[favKey(userID, trackID)]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &e, nil
}

func (f *fakeStore) ListFavorites(_ context.Context, userID string) ([]library.FavoriteEntry, error) {
	var out []library.FavoriteEntry
	for _, e := range f.favorites {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (f *fakeStore) InsertFavorite(_ context.Context, e library.FavoriteEntry) error {
	key := favKey(e.UserID, e.TrackID)
	if _, ok := f.favorites[key]; ok {
		return store.ErrConflict
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	f.favorites[key] = e
	return nil
}

func (f *fakeStore) DeleteFavorite(_ context.Context, userID, trackID string) error {
	delete(f.favorites, favKey(userID, trackID))
	return nil
}

func (f *fakeStore) GetRecentlyPlayed(_ context.Context, userID, trackID string) (*library.RecentlyPlayedEntry, error) {
	for _, e := range f.recent {
		if e.UserID == userID && e.TrackID == trackID {
			return &e, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) ListRecentlyPlayed(_ context.Context, userID string, limit int) ([]library.RecentlyPlayedEntry, error) {
	var out []library.RecentlyPlayedEntry
	for _, e := range f.recent {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayedAt.After(out[j].PlayedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) InsertRecentlyPlayed(_ context.Context, e library.RecentlyPlayedEntry, playedAt time.Time) error {
	e.PlayedAt = playedAt
	f.recent = append(f.recent, e)
	return nil
}

func (f *fakeStore) DeleteRecentlyPlayed(_ context.Context, userID, trackID string) error {
	kept := f.recent[:0]
	for _, e := range f.recent {
		if e.UserID == userID && e.TrackID == trackID {
			continue
		}
		kept = append(kept, e)
	}
	f.recent = kept
	return nil
}

func (f *fakeStore) Upload(_ context.Context, path string, _ []byte, _ string) (string, error) {
	f.uploads = append(f.uploads, path)
	return "https://objects.example.com/" + path, nil
}

var (
	_ store.Store         = (*fakeStore)(nil)
	_ store.ObjectStorage = (*fakeStore)(nil)
)

func newTestService(t *testing.T) (*Service, *fakeStore) {
	t.Helper()
	fs := newFakeStore()
	svc := New(fs, fs, Config{
		OwnerID:      "user-1",
		ShareBaseURL: "https://playd.app/",
	})
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	}
	return svc, fs
}

func testTrack(id int64, title string) track.Track {
	return track.Track{
		ID:              id,
		Title:           title,
		DurationSeconds: 30,
		PreviewURL:      fmt.Sprintf("https://cdn.example.com/%d.mp3", id),
		Artist:          track.Artist{ID: 1, Name: "Artist"},
	}
}

func TestToggleFavorite(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	tr := testTrack(42, "Song")

	on, err := svc.ToggleFavorite(ctx, tr)
	require.NoError(t, err)
	assert.True(t, on)

	fav, err := svc.IsFavorite(ctx, tr.Key())
	require.NoError(t, err)
	assert.True(t, fav)

	// A second toggle restores the original state.
	on, err = svc.ToggleFavorite(ctx, tr)
	require.NoError(t, err)
	assert.False(t, on)

	fav, err = svc.IsFavorite(ctx, tr.Key())
	require.NoError(t, err)
	assert.False(t, fav)

	entries, err := svc.Favorites(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRequireOwner(t *testing.T) {
	fs := newFakeStore()
	svc := New(fs, fs, Config{ShareBaseURL: "https://playd.app"})
	ctx := context.Background()

	_, err := svc.ToggleFavorite(ctx, testTrack(1, "T"))
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
	_, err = svc.Playlists(ctx)
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
	err = svc.RecordRecentlyPlayed(ctx, testTrack(1, "T"))
	assert.True(t, errors.Is(err, ErrNotAuthenticated))
}

func TestRecordRecentlyPlayed_MoveToFront(t *testing.T) {
	svc, fs := newTestService(t)
	ctx := context.Background()

	a := testTrack(1, "A")
	b := testTrack(2, "B")
	require.NoError(t, svc.RecordRecentlyPlayed(ctx, a))
	require.NoError(t, svc.RecordRecentlyPlayed(ctx, b))
	require.NoError(t, svc.RecordRecentlyPlayed(ctx, a))

	entries, err := svc.RecentlyPlayed(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2, "replay must not duplicate the row")
	assert.Equal(t, "A", entries[0].Track.Title)
	assert.Equal(t, "B", entries[1].Track.Title)
	assert.True(t, entries[0].PlayedAt.After(entries[1].PlayedAt))
	assert.Len(t, fs.recent, 2)
}

func TestRecentlyPlayed_Cap(t *testing.T) {
	fs := newFakeStore()
	svc := New(fs, fs, Config{OwnerID: "user-1", ShareBaseURL: "https://playd.app", RecentLimit: 3})
	ctx := context.Background()

	for i := int64(1); i <= 5; i++ {
		require.NoError(t, svc.RecordRecentlyPlayed(ctx, testTrack(i, "T")))
	}

	entries, err := svc.RecentlyPlayed(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "5", entries[0].TrackID)
}

func TestRecentlyPlayedAll_Dedupes(t *testing.T) {
	svc, fs := newTestService(t)
	ctx := context.Background()

	// Seed duplicate rows directly, the shape left by writers that predate
	// the move-to-front discipline.
	tr := testTrack(7, "Old")
	fs.recent = append(fs.recent,
		library.RecentlyPlayedEntry{UserID: "user-1", TrackID: tr.Key(), Track: tr, PlayedAt: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)},
		library.RecentlyPlayedEntry{UserID: "user-1", TrackID: tr.Key(), Track: tr, PlayedAt: time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)},
	)
	require.NoError(t, svc.RecordRecentlyPlayed(ctx, testTrack(8, "New")))

	entries, err := svc.RecentlyPlayedAll(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "8", entries[0].TrackID)
	assert.Equal(t, "7", entries[1].TrackID)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), entries[1].PlayedAt, "latest play wins")
}

func TestCreatePlaylist(t *testing.T) {
	svc, fs := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePlaylist(ctx, "Road Trip", "windows down", nil)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "user-1", p.OwnerID)
	assert.Empty(t, fs.uploads)

	_, err = svc.CreatePlaylist(ctx, "   ", "", nil)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestCreatePlaylist_WithCover(t *testing.T) {
	svc, fs := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePlaylist(ctx, "Covers", "", &CoverUpload{
		Data:        []byte("png-bytes"),
		ContentType: "image/png",
	})
	require.NoError(t, err)
	require.Len(t, fs.uploads, 1)
	assert.Regexp(t, `^user-1/\d+\.png$`, fs.uploads[0])
	assert.Equal(t, "https://objects.example.com/"+fs.uploads[0], p.CoverURL)
}

func TestUpdatePlaylist(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePlaylist(ctx, "Old", "keep me", nil)
	require.NoError(t, err)

	name := "New"
	updated, err := svc.UpdatePlaylist(ctx, p.ID, PlaylistUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Name)
	assert.Equal(t, "keep me", updated.Description)

	empty := ""
	_, err = svc.UpdatePlaylist(ctx, p.ID, PlaylistUpdate{Name: &empty})
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestDeletePlaylist_RemovesEntriesFirst(t *testing.T) {
	svc, fs := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePlaylist(ctx, "Doomed", "", nil)
	require.NoError(t, err)
	require.NoError(t, svc.AddTrack(ctx, p.ID, testTrack(1, "A")))

	require.NoError(t, svc.DeletePlaylist(ctx, p.ID))
	assert.Empty(t, fs.playlists)
	assert.Empty(t, fs.entries[p.ID])

	err = svc.DeletePlaylist(ctx, "missing")
	assert.True(t, errors.Is(err, store.ErrNotFound))
}

func TestAddTrack_Positions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePlaylist(ctx, "Ordered", "", nil)
	require.NoError(t, err)

	for i, id := range []int64{10, 20, 30} {
		require.NoError(t, svc.AddTrack(ctx, p.ID, testTrack(id, fmt.Sprintf("T%d", i))))
	}

	entries, err := svc.PlaylistTracks(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, e := range entries {
		assert.Equal(t, i, e.Position)
	}

	// Duplicate membership is rejected.
	err = svc.AddTrack(ctx, p.ID, testTrack(10, "T0"))
	assert.True(t, errors.Is(err, store.ErrConflict))
}

func TestRemoveTrack_PreservesPositions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	p, err := svc.CreatePlaylist(ctx, "Road Trip", "", nil)
	require.NoError(t, err)

	a := testTrack(1, "A")
	b := testTrack(2, "B")
	c := testTrack(3, "C")
	require.NoError(t, svc.AddTrack(ctx, p.ID, a))
	require.NoError(t, svc.AddTrack(ctx, p.ID, b))
	require.NoError(t, svc.RemoveTrack(ctx, p.ID, a.Key()))
	require.NoError(t, svc.AddTrack(ctx, p.ID, c))

	entries, err := svc.PlaylistTracks(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "B", entries[0].Track.Title)
	assert.Equal(t, 1, entries[0].Position, "surviving entry keeps its position")
	assert.Equal(t, "C", entries[1].Track.Title)
	assert.Equal(t, 2, entries[1].Position, "new entry goes after the highest position")
}

func TestShareLink(t *testing.T) {
	svc, _ := newTestService(t)
	assert.Equal(t, "https://playd.app/playlist/pl-9", svc.ShareLink("pl-9"))
}
