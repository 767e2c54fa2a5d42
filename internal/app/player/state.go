// Package player provides preview playback with a single active audio
// handle, a play queue, and autoplay.
package player

// State represents the playback state.
type State int

const (
	StateIdle    State = iota // No track loaded
	StatePaused               // Track loaded, not playing
	StatePlaying              // Track is playing
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePaused:
		return "paused"
	case StatePlaying:
		return "playing"
	default:
		return "unknown"
	}
}
