package player

import "github.com/tunedeck/playd/internal/domain/track"

// EventType represents a playback event type.
type EventType int

const (
	EventTrackStarted EventType = iota // A new track was loaded
	EventTrackEnded                    // Track played to completion
	EventStateChanged                  // Playback state changed (pause/resume/volume)
	EventQueueEmpty                    // Autoplay found the queue empty
)

// String returns the string representation of the event type.
func (e EventType) String() string {
	switch e {
	case EventTrackStarted:
		return "track_started"
	case EventTrackEnded:
		return "track_ended"
	case EventStateChanged:
		return "state_changed"
	case EventQueueEmpty:
		return "queue_empty"
	default:
		return "unknown"
	}
}

// Event represents a playback event.
type Event struct {
	Type  EventType
	Track *track.Track // Affected track (nil for queue events)
	State State        // Engine state after the event
}
