package player

import (
	"context"
	"time"
)

// Handle is one loaded audio stream. The engine holds at most one open
// handle at a time; opening a new one always closes the previous one first.
type Handle interface {
	// Play starts or resumes playback.
	Play() error
	// Pause suspends playback, keeping the position.
	Pause()
	// SetVolume sets the playback level in [0, 1].
	SetVolume(level float64)
	// Position returns the current playback position.
	Position() time.Duration
	// Duration returns the stream length, zero when unknown.
	Duration() time.Duration
	// Finished is closed when the stream plays to its end. It never fires
	// for a paused or closed handle.
	Finished() <-chan struct{}
	// Close releases the stream. A closed handle fires no further events.
	Close() error
}

// Opener produces handles from preview URLs.
type Opener interface {
	Open(ctx context.Context, url string) (Handle, error)
}
