package player

import (
	"context"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"

	"github.com/tunedeck/playd/internal/domain/track"
)

// Errors
var (
	ErrNoTrack    = errors.New("no track loaded")
	ErrNotPlaying = errors.New("not playing")
	ErrNoHistory  = errors.New("no previous track")
	ErrNoPreview  = errors.New("track has no preview")
)

// Recorder receives play notifications for the listening history.
type Recorder interface {
	RecordRecentlyPlayed(ctx context.Context, t track.Track) error
}

// Config holds engine configuration.
type Config struct {
	InitialVolume float64 // Playback level in [0, 1]
}

const recordTimeout = 5 * time.Second

// Engine manages preview playback with an internal queue. At most one audio
// handle is open at any time; loading a track closes the previous handle
// before opening the new one.
type Engine struct {
	mu sync.RWMutex

	opener   Opener
	recorder Recorder

	// Current handle state. generation invalidates watchers of replaced
	// handles.
	handle     Handle
	generation uint64
	current    *track.Track
	state      State
	volume     float64

	// Queue management
	queue  []track.Track
	played []track.Track

	// Events
	eventCh chan Event

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a playback engine. recorder may be nil; plays are then not
// recorded.
func New(opener Opener, recorder Recorder, config Config) *Engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &Engine{
		opener:   opener,
		recorder: recorder,
		state:    StateIdle,
		volume:   clampVolume(config.InitialVolume),
		eventCh:  make(chan Event, 10),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Events returns the event channel.
func (e *Engine) Events() <-chan Event {
	return e.eventCh
}

// SetTrack loads a track, replacing whatever is loaded. The track comes up
// paused; call Play to start it.
func (e *Engine) SetTrack(ctx context.Context, t track.Track) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.loadLocked(ctx, t)
}

// Play resumes the loaded track. With nothing loaded it changes nothing;
// the queue stays untouched. Use PlayNext to start queue playback.
func (e *Engine) Play() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.state {
	case StatePlaying:
		return nil
	case StatePaused:
		return e.startLocked()
	default:
		return ErrNoTrack
	}
}

// Pause pauses the current playback.
func (e *Engine) Pause() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return ErrNoTrack
	}
	if e.state != StatePlaying {
		return ErrNotPlaying
	}

	e.handle.Pause()
	e.state = StatePaused
	e.sendEventLocked(Event{Type: EventStateChanged, Track: e.current, State: e.state})
	return nil
}

// Toggle flips between playing and paused.
func (e *Engine) Toggle() error {
	e.mu.Lock()
	playing := e.state == StatePlaying
	e.mu.Unlock()

	if playing {
		return e.Pause()
	}
	return e.Play()
}

// PlayNext plays the next queued track. The current track, if any, moves to
// the played history. An empty queue leaves the engine as it is.
func (e *Engine) PlayNext(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.queue) == 0 {
		return nil
	}

	next := e.queue[0]
	e.queue = e.queue[1:]

	if e.current != nil {
		e.played = append(e.played, *e.current)
	}

	if err := e.loadLocked(ctx, next); err != nil {
		return err
	}
	return e.startLocked()
}

// PlayPrevious replays the most recent track from the played history. The
// current track, if any, goes back to the front of the queue.
func (e *Engine) PlayPrevious(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.played) == 0 {
		return ErrNoHistory
	}

	prev := e.played[len(e.played)-1]
	e.played = e.played[:len(e.played)-1]

	if e.current != nil {
		e.queue = append([]track.Track{*e.current}, e.queue...)
	}

	if err := e.loadLocked(ctx, prev); err != nil {
		return err
	}
	return e.startLocked()
}

// SetVolume sets the playback level, clamped to [0, 1]. The level persists
// across track changes and applies even when nothing is loaded.
func (e *Engine) SetVolume(level float64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.volume = clampVolume(level)
	if e.handle != nil {
		e.handle.SetVolume(e.volume)
	}
}

// Volume returns the current playback level.
func (e *Engine) Volume() float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.volume
}

// Enqueue adds a track to the end of the queue.
func (e *Engine) Enqueue(t track.Track) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = append(e.queue, t)
}

// EnqueueAll adds multiple tracks to the end of the queue.
func (e *Engine) EnqueueAll(ts []track.Track) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queue = append(e.queue, ts...)
}

// ClearQueue removes all queued tracks and returns them.
func (e *Engine) ClearQueue() []track.Track {
	e.mu.Lock()
	defer e.mu.Unlock()

	removed := e.queue
	e.queue = nil
	return removed
}

// Queue returns a copy of the queued tracks.
func (e *Engine) Queue() []track.Track {
	e.mu.RLock()
	defer e.mu.RUnlock()

	result := make([]track.Track, len(e.queue))
	copy(result, e.queue)
	return result
}

// State returns the current playback state.
func (e *Engine) State() State {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// Current returns the loaded track.
func (e *Engine) Current() (*track.Track, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.current == nil {
		return nil, false
	}
	t := *e.current
	return &t, true
}

// Progress returns the playback position and total duration of the loaded
// stream. Both are zero when nothing is loaded.
func (e *Engine) Progress() (position, duration time.Duration) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.handle == nil {
		return 0, 0
	}
	return e.handle.Position(), e.handle.Duration()
}

// Close releases the audio handle and stops the engine.
func (e *Engine) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.cancel()
	e.closeHandleLocked()
	e.current = nil
	e.state = StateIdle
	close(e.eventCh)
}

// loadLocked opens a handle for t, replacing the current one. The new track
// comes up paused. A failed open leaves the engine idle with nothing loaded.
// Must be called with lock held.
func (e *Engine) loadLocked(ctx context.Context, t track.Track) error {
	if !t.HasPreview() {
		return errors.Wrapf(ErrNoPreview, "track %s", t.Key())
	}

	e.closeHandleLocked()
	e.current = nil
	e.state = StateIdle

	h, err := e.opener.Open(ctx, t.PreviewURL)
	if err != nil {
		return errors.Wrapf(err, "failed to load track %s", t.Key())
	}

	e.handle = h
	e.current = &t
	e.state = StatePaused
	h.SetVolume(e.volume)

	// Watch for the stream's natural end. The generation check discards
	// fires from handles that were replaced in the meantime.
	gen := e.generation
	go func() {
		select {
		case <-h.Finished():
			e.onFinished(gen)
		case <-e.ctx.Done():
		}
	}()

	e.sendEventLocked(Event{Type: EventTrackStarted, Track: e.current, State: e.state})
	e.recordPlay(t)

	return nil
}

// startLocked resumes the loaded handle. Must be called with lock held.
func (e *Engine) startLocked() error {
	if e.handle == nil {
		return ErrNoTrack
	}
	if err := e.handle.Play(); err != nil {
		return errors.Wrap(err, "failed to start playback")
	}
	e.state = StatePlaying
	e.sendEventLocked(Event{Type: EventStateChanged, Track: e.current, State: e.state})
	return nil
}

// onFinished handles the natural end of a stream.
func (e *Engine) onFinished(gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	// A stale watcher: its handle was already replaced or closed.
	if gen != e.generation || e.current == nil {
		return
	}

	ended := *e.current
	e.played = append(e.played, ended)
	e.closeHandleLocked()
	e.current = nil
	e.state = StateIdle

	e.sendEventLocked(Event{Type: EventTrackEnded, Track: &ended, State: e.state})

	if len(e.queue) == 0 {
		e.sendEventLocked(Event{Type: EventQueueEmpty, State: e.state})
		return
	}

	next := e.queue[0]
	e.queue = e.queue[1:]
	if err := e.loadLocked(e.ctx, next); err != nil {
		zlog.Warn().Err(err).Msgf("player: autoplay failed: track=%s", next.Key())
		return
	}
	if err := e.startLocked(); err != nil {
		zlog.Warn().Err(err).Msgf("player: autoplay failed: track=%s", next.Key())
	}
}

// closeHandleLocked closes the active handle and invalidates its watcher.
// Must be called with lock held.
func (e *Engine) closeHandleLocked() {
	if e.handle == nil {
		return
	}
	e.generation++
	if err := e.handle.Close(); err != nil {
		zlog.Warn().Err(err).Msg("player: failed to close handle")
	}
	e.handle = nil
}

// recordPlay notifies the recorder without holding up playback. A failed
// write only costs a history entry.
func (e *Engine) recordPlay(t track.Track) {
	if e.recorder == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		defer cancel()
		if err := e.recorder.RecordRecentlyPlayed(ctx, t); err != nil {
			zlog.Warn().Err(err).Msgf("player: failed to record play: track=%s", t.Key())
		}
	}()
}

// sendEventLocked sends an event without blocking. Must be called with lock
// held.
func (e *Engine) sendEventLocked(ev Event) {
	select {
	case e.eventCh <- ev:
	case <-e.ctx.Done():
	default:
		// Channel full, drop event
	}
}

func clampVolume(level float64) float64 {
	if level < 0 {
		return 0
	}
	if level > 1 {
		return 1
	}
	return level
}
