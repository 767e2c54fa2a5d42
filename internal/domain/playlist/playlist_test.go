package playlist

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tunedeck/playd/internal/domain/track"
)

func TestNextPosition(t *testing.T) {
	tests := []struct {
		name     string
		entries  []TrackEntry
		expected int
	}{
		{
			name:     "empty playlist",
			entries:  []TrackEntry{},
			expected: 0,
		},
		{
			name: "dense positions",
			entries: []TrackEntry{
				{TrackID: "1", Position: 0},
				{TrackID: "2", Position: 1},
				{TrackID: "3", Position: 2},
			},
			expected: 3,
		},
		{
			name: "positions with gaps",
			entries: []TrackEntry{
				{TrackID: "2", Position: 1},
				{TrackID: "5", Position: 4},
			},
			expected: 5,
		},
		{
			name: "unordered input",
			entries: []TrackEntry{
				{TrackID: "5", Position: 4},
				{TrackID: "2", Position: 1},
			},
			expected: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NextPosition(tt.entries))
		})
	}
}

func TestSortByPosition(t *testing.T) {
	entries := []TrackEntry{
		{TrackID: "c", Position: 5},
		{TrackID: "a", Position: 0},
		{TrackID: "b", Position: 2},
	}

	SortByPosition(entries)

	assert.Equal(t, "a", entries[0].TrackID)
	assert.Equal(t, "b", entries[1].TrackID)
	assert.Equal(t, "c", entries[2].TrackID)
}

func TestTracks(t *testing.T) {
	entries := []TrackEntry{
		{TrackID: "1", Track: track.Track{ID: 1, Title: "First"}},
		{TrackID: "2", Track: track.Track{ID: 2, Title: "Second"}},
	}

	tracks := Tracks(entries)

	assert.Len(t, tracks, 2)
	assert.Equal(t, "First", tracks[0].Title)
	assert.Equal(t, "Second", tracks[1].Title)
}

func TestTotalDuration(t *testing.T) {
	tests := []struct {
		name     string
		entries  []TrackEntry
		expected int64
	}{
		{
			name:     "empty playlist",
			entries:  []TrackEntry{},
			expected: 0,
		},
		{
			name: "multiple tracks",
			entries: []TrackEntry{
				{Track: track.Track{DurationSeconds: 120}},
				{Track: track.Track{DurationSeconds: 210}},
				{Track: track.Track{DurationSeconds: 240}},
			},
			expected: 570,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, TotalDuration(tt.entries))
		})
	}
}
