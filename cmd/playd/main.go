// Package main provides the playd CLI entry point.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/tunedeck/playd/internal/app/catalog"
	"github.com/tunedeck/playd/internal/app/library"
	"github.com/tunedeck/playd/internal/app/notify"
	"github.com/tunedeck/playd/internal/app/player"
	"github.com/tunedeck/playd/internal/app/store"
	"github.com/tunedeck/playd/internal/domain/playlist"
	"github.com/tunedeck/playd/internal/domain/track"
	"github.com/tunedeck/playd/internal/infra/audio"
	"github.com/tunedeck/playd/internal/infra/config"
	"github.com/tunedeck/playd/internal/infra/logger"
	"github.com/tunedeck/playd/internal/infra/sqlstore"
	"github.com/tunedeck/playd/internal/infra/supastore"
)

var (
	app        = kingpin.New("playd", "Preview player for your music library")
	configPath = app.Flag("config", "Path to config file").Default("config/playd.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()

	// search command
	searchCmd   = app.Command("search", "Search the track catalog")
	searchQuery = searchCmd.Arg("query", "Search query").Required().Strings()

	// play command
	playCmd      = app.Command("play", "Play track previews")
	playIDs      = playCmd.Arg("track-id", "Track IDs to play in order").Int64List()
	playPlaylist = playCmd.Flag("playlist", "Queue a playlist instead of track IDs").String()
	playVolume   = playCmd.Flag("volume", "Initial volume (0.0-1.0)").Default("-1").Float64()

	// fav command
	favCmd     = app.Command("fav", "Toggle a track's favorite status")
	favTrackID = favCmd.Arg("track-id", "Track ID").Required().Int64()

	// favs command
	favsCmd = app.Command("favs", "List favorite tracks")

	// recent command
	recentCmd = app.Command("recent", "List recently played tracks")
	recentAll = recentCmd.Flag("all", "Show the full history instead of the latest few").Bool()

	// playlist commands
	playlistCmd = app.Command("playlist", "Manage playlists")

	plCreateCmd   = playlistCmd.Command("create", "Create a playlist")
	plCreateName  = plCreateCmd.Arg("name", "Playlist name").Required().String()
	plCreateDesc  = plCreateCmd.Flag("description", "Playlist description").String()
	plCreateCover = plCreateCmd.Flag("cover", "Path to a cover image").String()

	plListCmd = playlistCmd.Command("ls", "List playlists")

	plTracksCmd = playlistCmd.Command("tracks", "List a playlist's tracks")
	plTracksID  = plTracksCmd.Arg("playlist-id", "Playlist ID").Required().String()

	plAddCmd     = playlistCmd.Command("add", "Add a track to a playlist")
	plAddID      = plAddCmd.Arg("playlist-id", "Playlist ID").Required().String()
	plAddTrackID = plAddCmd.Arg("track-id", "Track ID").Required().Int64()

	plRemoveCmd     = playlistCmd.Command("remove", "Remove a track from a playlist")
	plRemoveID      = plRemoveCmd.Arg("playlist-id", "Playlist ID").Required().String()
	plRemoveTrackID = plRemoveCmd.Arg("track-id", "Track ID").Required().String()

	plDeleteCmd = playlistCmd.Command("rm", "Delete a playlist")
	plDeleteID  = plDeleteCmd.Arg("playlist-id", "Playlist ID").Required().String()

	plShareCmd = playlistCmd.Command("share", "Print a playlist's share link")
	plShareID  = plShareCmd.Arg("playlist-id", "Playlist ID").Required().String()
)

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	loggerConfig := logger.Config{Output: "stderr", Level: "warn"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	switch command {
	case searchCmd.FullCommand():
		err = runSearch(ctx, cfg, strings.Join(*searchQuery, " "))
	case playCmd.FullCommand():
		err = runPlay(ctx, cfg, *playIDs, *playPlaylist, *playVolume)
	case favCmd.FullCommand():
		err = runFav(ctx, cfg, *favTrackID)
	case favsCmd.FullCommand():
		err = runFavs(ctx, cfg)
	case recentCmd.FullCommand():
		err = runRecent(ctx, cfg, *recentAll)
	case plCreateCmd.FullCommand():
		err = runPlaylistCreate(ctx, cfg, *plCreateName, *plCreateDesc, *plCreateCover)
	case plListCmd.FullCommand():
		err = runPlaylistList(ctx, cfg)
	case plTracksCmd.FullCommand():
		err = runPlaylistTracks(ctx, cfg, *plTracksID)
	case plAddCmd.FullCommand():
		err = runPlaylistAdd(ctx, cfg, *plAddID, *plAddTrackID)
	case plRemoveCmd.FullCommand():
		err = runPlaylistRemove(ctx, cfg, *plRemoveID, *plRemoveTrackID)
	case plDeleteCmd.FullCommand():
		err = runPlaylistDelete(ctx, cfg, *plDeleteID)
	case plShareCmd.FullCommand():
		err = runPlaylistShare(ctx, cfg, *plShareID)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// openStore builds the configured store backend. The second return value is
// nil when the backend has no object storage.
func openStore(cfg *config.Config) (store.Store, store.ObjectStorage, func(), error) {
	switch cfg.Store.Backend {
	case "rest":
		client, err := supastore.New(supastore.Config{
			BaseURL:     cfg.Store.REST.BaseURL,
			APIKey:      cfg.Store.REST.APIKey,
			AccessToken: cfg.Store.REST.AccessToken,
			CoverBucket: cfg.Store.REST.CoverBucket,
		})
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "failed to create REST store")
		}
		return client, client, func() {}, nil
	default:
		s, err := sqlstore.Open(cfg.SQLDriver(), cfg.Store.SQL.DSN)
		if err != nil {
			return nil, nil, nil, errors.Wrap(err, "failed to open SQL store")
		}
		return s, nil, func() { _ = s.Close() }, nil
	}
}

func openLibrary(cfg *config.Config) (*library.Service, func(), error) {
	s, objects, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, nil, err
	}
	svc := library.New(s, objects, library.Config{
		OwnerID:      cfg.Store.UserID,
		ShareBaseURL: cfg.Share.BaseURL,
		RecentLimit:  cfg.Playback.RecentLimit,
	})
	return svc, closeStore, nil
}

func runSearch(ctx context.Context, cfg *config.Config, query string) error {
	chain, err := catalog.NewChainFromConfig(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := chain.Search(ctx, query)
	if err != nil {
		return err
	}

	fmt.Printf("%d tracks (showing %d)\n", result.Total, len(result.Tracks))
	for _, t := range result.Tracks {
		preview := ""
		if !t.HasPreview() {
			preview = "  (no preview)"
		}
		fmt.Printf("%12d  %-40s %-30s %s%s\n", t.ID, clip(t.Title, 40), clip(t.Artist.Name, 30), formatDuration(t.Duration()), preview)
	}
	return nil
}

func runPlay(ctx context.Context, cfg *config.Config, ids []int64, playlistID string, volume float64) error {
	chain, err := catalog.NewChainFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	lib, closeStore, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var tracks []track.Track
	switch {
	case playlistID != "":
		entries, err := lib.PlaylistTracks(ctx, playlistID)
		if err != nil {
			return err
		}
		tracks = playlist.Tracks(entries)
	case len(ids) > 0:
		for _, id := range ids {
			t, err := chain.GetTrack(ctx, id)
			if err != nil {
				return errors.Wrapf(err, "track %d", id)
			}
			tracks = append(tracks, *t)
		}
	default:
		return errors.New("nothing to play: give track IDs or --playlist")
	}

	if volume < 0 {
		volume = cfg.Playback.InitialVolume
	}

	engine := player.New(audio.NewOpener(), lib, player.Config{InitialVolume: volume})
	defer engine.Close()

	notifier := notify.NewManager()
	defer notifier.Close()
	go notifier.Run(engine.Events())
	_, events := notifier.Subscribe()

	engine.EnqueueAll(tracks)
	if err := engine.PlayNext(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case ev := <-events:
			switch ev.Type {
			case player.EventTrackStarted:
				fmt.Printf("> %s - %s\n", ev.Track.Title, ev.Track.Artist.Name)
				if artwork := ev.Track.Artwork(); artwork != "" {
					fmt.Printf("  %s\n", artwork)
				}
			case player.EventTrackEnded:
				fmt.Println()
			case player.EventQueueEmpty:
				fmt.Println("Queue finished.")
				return nil
			}
		case <-sigCh:
			fmt.Println("\nStopping.")
			return nil
		case <-time.After(time.Second):
			if current, ok := engine.Current(); ok && engine.State() == player.StatePlaying {
				pos, dur := engine.Progress()
				fmt.Printf("\r  %s / %s  %s", formatDuration(pos), formatDuration(dur), clip(current.Title, 40))
			}
		}
	}
}

func runFav(ctx context.Context, cfg *config.Config, trackID int64) error {
	chain, err := catalog.NewChainFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	lib, closeStore, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	t, err := chain.GetTrack(ctx, trackID)
	if err != nil {
		return errors.Wrapf(err, "track %d", trackID)
	}

	on, err := lib.ToggleFavorite(ctx, *t)
	if err != nil {
		return err
	}
	if on {
		fmt.Printf("Added favorite: %s - %s\n", t.Title, t.Artist.Name)
	} else {
		fmt.Printf("Removed favorite: %s - %s\n", t.Title, t.Artist.Name)
	}
	return nil
}

func runFavs(ctx context.Context, cfg *config.Config) error {
	lib, closeStore, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	entries, err := lib.Favorites(ctx)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%12s  %-40s %-30s %s\n", e.TrackID, clip(e.Track.Title, 40), clip(e.Track.Artist.Name, 30), e.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runRecent(ctx context.Context, cfg *config.Config, all bool) error {
	lib, closeStore, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	list := lib.RecentlyPlayed
	if all {
		list = lib.RecentlyPlayedAll
	}
	recent, err := list(ctx)
	if err != nil {
		return err
	}
	for _, e := range recent {
		fmt.Printf("%12s  %-40s %-30s %s\n", e.TrackID, clip(e.Track.Title, 40), clip(e.Track.Artist.Name, 30), e.PlayedAt.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

func runPlaylistCreate(ctx context.Context, cfg *config.Config, name, description, coverPath string) error {
	lib, closeStore, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	var cover *library.CoverUpload
	if coverPath != "" {
		data, err := os.ReadFile(coverPath)
		if err != nil {
			return errors.Wrap(err, "failed to read cover image")
		}
		cover = &library.CoverUpload{
			Data:        data,
			ContentType: http.DetectContentType(data),
		}
	}

	p, err := lib.CreatePlaylist(ctx, name, description, cover)
	if err != nil {
		return err
	}
	fmt.Printf("Created playlist %s (%s)\n", p.Name, p.ID)
	return nil
}

func runPlaylistList(ctx context.Context, cfg *config.Config) error {
	lib, closeStore, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	playlists, err := lib.Playlists(ctx)
	if err != nil {
		return err
	}
	for _, p := range playlists {
		fmt.Printf("%-36s  %-30s %s\n", p.ID, clip(p.Name, 30), p.CreatedAt.Local().Format("2006-01-02"))
	}
	return nil
}

func runPlaylistTracks(ctx context.Context, cfg *config.Config, playlistID string) error {
	lib, closeStore, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	entries, err := lib.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Printf("%4d  %12s  %-40s %-30s %s\n", e.Position, e.TrackID, clip(e.Track.Title, 40), clip(e.Track.Artist.Name, 30), formatDuration(e.Track.Duration()))
	}
	total := time.Duration(playlist.TotalDuration(entries)) * time.Second
	fmt.Printf("%d tracks, %s\n", len(entries), formatDuration(total))
	return nil
}

func runPlaylistAdd(ctx context.Context, cfg *config.Config, playlistID string, trackID int64) error {
	chain, err := catalog.NewChainFromConfig(ctx, cfg)
	if err != nil {
		return err
	}
	lib, closeStore, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	t, err := chain.GetTrack(ctx, trackID)
	if err != nil {
		return errors.Wrapf(err, "track %d", trackID)
	}
	if err := lib.AddTrack(ctx, playlistID, *t); err != nil {
		return err
	}
	fmt.Printf("Added %s - %s\n", t.Title, t.Artist.Name)
	return nil
}

func runPlaylistRemove(ctx context.Context, cfg *config.Config, playlistID, trackID string) error {
	lib, closeStore, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := lib.RemoveTrack(ctx, playlistID, trackID); err != nil {
		return err
	}
	fmt.Println("Removed.")
	return nil
}

func runPlaylistDelete(ctx context.Context, cfg *config.Config, playlistID string) error {
	lib, closeStore, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	if err := lib.DeletePlaylist(ctx, playlistID); err != nil {
		return err
	}
	fmt.Println("Deleted.")
	return nil
}

func runPlaylistShare(ctx context.Context, cfg *config.Config, playlistID string) error {
	lib, closeStore, err := openLibrary(cfg)
	if err != nil {
		return err
	}
	defer closeStore()

	// Verify the playlist exists before handing out a link.
	if _, err := lib.Playlist(ctx, playlistID); err != nil {
		return err
	}
	fmt.Println(lib.ShareLink(playlistID))
	return nil
}

func clip(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	m := int(d.Minutes())
	s := int(d.Seconds()) % 60
	return strconv.Itoa(m) + ":" + fmt.Sprintf("%02d", s)
}
