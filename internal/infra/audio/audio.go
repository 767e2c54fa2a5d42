// Package audio plays preview streams through the system speaker.
package audio

import (
	"bytes"
	"context"
	"io"
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/tunedeck/playd/internal/app/player"
)

const (
	fetchTimeout = 30 * time.Second
	// Previews are short clips; cap the download to catch runaway bodies.
	maxPreviewBytes = 16 << 20
)

// The speaker is process-global and initialized with the first stream's
// sample rate; later streams at other rates are resampled to it.
var (
	speakerMu   sync.Mutex
	speakerRate beep.SampleRate
	speakerInit bool
)

// Opener fetches preview URLs and opens them as playable handles.
type Opener struct {
	client *http.Client
}

// NewOpener creates an audio opener.
func NewOpener() *Opener {
	return &Opener{
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// Open downloads the preview and hands it to the speaker, paused.
func (o *Opener) Open(ctx context.Context, url string) (player.Handle, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := o.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to fetch preview")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("preview fetch returned status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxPreviewBytes))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read preview")
	}

	streamer, format, err := mp3.Decode(io.NopCloser(bytes.NewReader(data)))
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode preview")
	}

	speakerMu.Lock()
	if !speakerInit {
		if err := speaker.Init(format.SampleRate, format.SampleRate.N(time.Second/10)); err != nil {
			speakerMu.Unlock()
			_ = streamer.Close()
			return nil, errors.Wrap(err, "failed to initialize speaker")
		}
		speakerRate = format.SampleRate
		speakerInit = true
	}
	rate := speakerRate
	speakerMu.Unlock()

	var source beep.Streamer = streamer
	if format.SampleRate != rate {
		source = beep.Resample(4, format.SampleRate, rate, streamer)
	}

	h := &handle{
		streamer: streamer,
		format:   format,
		finished: make(chan struct{}),
	}
	h.ctrl = &beep.Ctrl{Streamer: source, Paused: true}
	h.volume = &effects.Volume{Streamer: h.ctrl, Base: 2}

	speaker.Play(beep.Seq(h.volume, beep.Callback(func() {
		close(h.finished)
	})))

	return h, nil
}

// handle drives one decoded stream sitting in the speaker mixer.
type handle struct {
	mu       sync.Mutex
	closed   bool
	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	finished chan struct{}
}

func (h *handle) Play() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return errors.New("handle is closed")
	}

	speaker.Lock()
	h.ctrl.Paused = false
	speaker.Unlock()
	return nil
}

func (h *handle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	speaker.Lock()
	h.ctrl.Paused = true
	speaker.Unlock()
}

func (h *handle) SetVolume(level float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}

	speaker.Lock()
	h.volume.Silent = level <= 0
	h.volume.Volume = levelToVolume(level)
	speaker.Unlock()
}

func (h *handle) Position() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0
	}

	speaker.Lock()
	pos := h.format.SampleRate.D(h.streamer.Position())
	speaker.Unlock()
	return pos
}

func (h *handle) Duration() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return 0
	}
	return h.format.SampleRate.D(h.streamer.Len())
}

func (h *handle) Finished() <-chan struct{} {
	return h.finished
}

// Close silences the handle and releases the decoder. Only one handle is
// live at a time, so clearing the mixer removes exactly this stream.
func (h *handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true

	speaker.Clear()
	return h.streamer.Close()
}

// levelToVolume converts a 0.0-1.0 level to beep's logarithmic scale:
// 1.0 -> 0, 0.5 -> -1, 0.25 -> -2, 0 -> -10 (effectively silent).
func levelToVolume(level float64) float64 {
	if level <= 0 {
		return -10
	}
	if level >= 1 {
		return 0
	}
	return math.Log2(level)
}

// Verify contract satisfaction at compile time.
var _ player.Opener = (*Opener)(nil)
