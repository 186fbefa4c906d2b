package audio

import (
	"sync"
	"time"
)

// Mock is a test double for Output.
type Mock struct {
	mu         sync.Mutex
	playing    bool
	position   time.Duration
	duration   time.Duration
	playErr    error
	loadCalls  []string
	seekCalls  []time.Duration
	volume     float64
	progressCh chan time.Duration
	endedCh    chan struct{}
	errCh      chan error
}

// NewMock creates a new mock output for testing.
func NewMock() *Mock {
	return &Mock{
		volume:     1,
		progressCh: make(chan time.Duration, 16),
		endedCh:    make(chan struct{}, 1),
		errCh:      make(chan error, 1),
	}
}

func (m *Mock) Load(url string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loadCalls = append(m.loadCalls, url)
	m.position = 0
	m.playing = false
}

func (m *Mock) Play() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.playErr != nil {
		return m.playErr
	}
	m.playing = true
	return nil
}

func (m *Mock) Pause() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playing = false
}

func (m *Mock) Seek(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seekCalls = append(m.seekCalls, pos)
	m.position = pos
}

func (m *Mock) SetVolume(level float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.volume = level
}

func (m *Mock) Position() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.position
}

func (m *Mock) Duration() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.duration
}

func (m *Mock) Progress() <-chan time.Duration { return m.progressCh }

func (m *Mock) Ended() <-chan struct{} { return m.endedCh }

func (m *Mock) Errors() <-chan error { return m.errCh }

func (m *Mock) Close() error { return nil }

// Test helpers

func (m *Mock) SetPlayError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.playErr = err
}

func (m *Mock) SetPosition(pos time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.position = pos
}

func (m *Mock) SetDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.duration = d
}

func (m *Mock) IsPlaying() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.playing
}

func (m *Mock) Volume() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.volume
}

func (m *Mock) LoadCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.loadCalls...)
}

func (m *Mock) SeekCalls() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.seekCalls...)
}

// SimulateEnded simulates the current media playing to completion.
func (m *Mock) SimulateEnded() {
	select {
	case m.endedCh <- struct{}{}:
	default:
	}
}

// SimulateProgress simulates a position tick.
func (m *Mock) SimulateProgress(pos time.Duration) {
	m.mu.Lock()
	m.position = pos
	m.mu.Unlock()
	select {
	case m.progressCh <- pos:
	default:
	}
}

// SimulateError simulates a deferred load or decode failure.
func (m *Mock) SimulateError(err error) {
	select {
	case m.errCh <- err:
	default:
	}
}

// Verify Mock implements Output at compile time.
var _ Output = (*Mock)(nil)
