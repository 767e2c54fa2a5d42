// Package track provides the Track domain entity.
package track

import (
	"encoding/json"
	"strconv"
	"time"
)

// Artist holds the artist portion of a catalog track.
type Artist struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	PictureSmall  string `json:"picture_small"`
	PictureMedium string `json:"picture_medium"`
}

// Album holds the album portion of a catalog track.
type Album struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	CoverSmall  string `json:"cover_small"`
	CoverMedium string `json:"cover_medium"`
}

// Track represents a catalog track entity.
// The JSON shape matches the catalog payload, so a marshaled Track is the
// snapshot embedded into library rows and library views render without a
// live catalog lookup. Tracks are immutable once fetched.
type Track struct {
	ID              int64  `json:"id"`
	Title           string `json:"title"`
	DurationSeconds int    `json:"duration"`
	PreviewURL      string `json:"preview"`
	Artist          Artist `json:"artist"`
	Album           Album  `json:"album"`
}

// Key returns the track identity as a decimal string, the form used as the
// row key in library collections.
func (t *Track) Key() string {
	return strconv.FormatInt(t.ID, 10)
}

// Duration returns the track duration.
func (t *Track) Duration() time.Duration {
	return time.Duration(t.DurationSeconds) * time.Second
}

// HasPreview reports whether the track carries a playable preview URL.
func (t *Track) HasPreview() bool {
	return t.PreviewURL != ""
}

// Artwork returns the best available artwork URL, preferring album covers
// over artist pictures.
func (t *Track) Artwork() string {
	if t.Album.CoverMedium != "" {
		return t.Album.CoverMedium
	}
	if t.Album.CoverSmall != "" {
		return t.Album.CoverSmall
	}
	if t.Artist.PictureMedium != "" {
		return t.Artist.PictureMedium
	}
	return t.Artist.PictureSmall
}

// Snapshot returns the denormalized JSON form stored in library rows.
func (t *Track) Snapshot() ([]byte, error) {
	return json.Marshal(t)
}

// FromSnapshot decodes a library row snapshot back into a Track.
func FromSnapshot(data []byte) (*Track, error) {
	var t Track
	if err := json.Unmarshal(data, &t); err != nil {
		return nil, err
	}
	return &t, nil
}
