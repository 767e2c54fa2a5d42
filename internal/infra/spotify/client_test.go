package spotify

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/zmb3/spotify/v2"
)

func TestDeriveID(t *testing.T) {
	a := deriveID("4uLU6hMCjMI75M1A2tKUQC")
	b := deriveID("4uLU6hMCjMI75M1A2tKUQC")
	c := deriveID("7ouMYWpwJ422jRcDASZB7P")

	assert.Equal(t, a, b, "same input must derive the same ID")
	assert.NotEqual(t, a, c)
	assert.Positive(t, a)
	assert.Positive(t, c)
}

func TestConvertTrack(t *testing.T) {
	full := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			ID:         "4uLU6hMCjMI75M1A2tKUQC",
			Name:       "Never Gonna Give You Up",
			Duration:   213573,
			PreviewURL: "https://p.scdn.co/mp3-preview/abc",
			Artists: []spotify.SimpleArtist{
				{ID: "0gxyHStUsqpMadRV0Di1Qt", Name: "Rick Astley"},
			},
		},
		Album: spotify.SimpleAlbum{
			ID:   "6XhjNHCyCDyyGJRM5mg40G",
			Name: "Whenever You Need Somebody",
			Images: []spotify.Image{
				{URL: "https://i.scdn.co/image/large"},
				{URL: "https://i.scdn.co/image/medium"},
				{URL: "https://i.scdn.co/image/small"},
			},
		},
	}

	tr := convertTrack(full)

	assert.Equal(t, "Never Gonna Give You Up", tr.Title)
	assert.Equal(t, 213, tr.DurationSeconds)
	assert.Equal(t, "https://p.scdn.co/mp3-preview/abc", tr.PreviewURL)
	assert.Equal(t, "Rick Astley", tr.Artist.Name)
	assert.Equal(t, "Whenever You Need Somebody", tr.Album.Title)
	assert.Equal(t, "https://i.scdn.co/image/large", tr.Album.CoverMedium)
	assert.Equal(t, "https://i.scdn.co/image/small", tr.Album.CoverSmall)
	assert.Equal(t, deriveID("4uLU6hMCjMI75M1A2tKUQC"), tr.ID)
	assert.True(t, tr.HasPreview())
}

func TestConvertTrack_NoImages(t *testing.T) {
	full := &spotify.FullTrack{
		SimpleTrack: spotify.SimpleTrack{
			ID:         "abc",
			Name:       "Untitled",
			PreviewURL: "https://p.scdn.co/mp3-preview/x",
		},
	}

	tr := convertTrack(full)

	assert.Empty(t, tr.Album.CoverMedium)
	assert.Empty(t, tr.Artwork())
}
