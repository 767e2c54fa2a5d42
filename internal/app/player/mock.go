package player

import (
	"context"
	"sync"
	"time"
)

// MockHandle is a test double for Handle.
type MockHandle struct {
	mu       sync.Mutex
	url      string
	playing  bool
	closed   bool
	volume   float64
	playErr  error
	position time.Duration
	duration time.Duration
	finished chan struct{}
}

// NewMockHandle creates a mock handle for testing.
func NewMockHandle(url string) *MockHandle {
	return &MockHandle{
		url:      url,
		volume:   -1,
		finished: make(chan struct{}),
	}
}

func (m *MockHandle) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playErr != nil {
		return m.playErr
	}
	m.playing = true
	return nil
}

func (m *MockHandle) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
}

func (m *MockHandle) SetVolume(level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = level
}

func (m *MockHandle) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *MockHandle) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *MockHandle) Finished() <-chan struct{} {
	return m.finished
}

func (m *MockHandle) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Test helpers

func (m *MockHandle) URL() string { return m.url }

func (m *MockHandle) Playing() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *MockHandle) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

func (m *MockHandle) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *MockHandle) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

func (m *MockHandle) SetPosition(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = d
}

func (m *MockHandle) SetStreamDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

// SimulateFinished simulates the stream playing to its end.
func (m *MockHandle) SimulateFinished() {
	close(m.finished)
}

// MockOpener is a test double for Opener. It records every opened handle.
type MockOpener struct {
	mu      sync.Mutex
	openErr error
	handles []*MockHandle
}

// NewMockOpener creates a mock opener for testing.
func NewMockOpener() *MockOpener {
	return &MockOpener{}
}

func (o *MockOpener) Open(_ context.Context, url string) (Handle, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.openErr != nil {
		return nil, o.openErr
	}
	h := NewMockHandle(url)
	o.handles = append(o.handles, h)
	return h, nil
}

// Test helpers

func (o *MockOpener) SetOpenError(err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.openErr = err
}

// Handles returns every handle opened so far.
func (o *MockOpener) Handles() []*MockHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*MockHandle(nil), o.handles...)
}

// Last returns the most recently opened handle.
func (o *MockOpener) Last() *MockHandle {
	o.mu.Lock()
	defer o.mu.Unlock()
	if len(o.handles) == 0 {
		return nil
	}
	return o.handles[len(o.handles)-1]
}

// Verify the mocks implement their contracts at compile time.
var (
	_ Handle = (*MockHandle)(nil)
	_ Opener = (*MockOpener)(nil)
)
