package audio

import (
	"bytes"
	"fmt"
	"io"
	"math"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/effects"
	"github.com/gopxl/beep/v2/mp3"
	"github.com/gopxl/beep/v2/speaker"
)

const (
	// speakerRate is the fixed device sample rate; every stream is
	// resampled to it so the device is initialized exactly once.
	speakerRate      = beep.SampleRate(44100)
	resampleQuality  = 4
	progressInterval = 500 * time.Millisecond
)

// Speaker renders MP3 streams fetched over HTTP through the system audio
// device. It implements Output.
type Speaker struct {
	mu sync.Mutex

	httpClient *http.Client

	streamer beep.StreamSeekCloser
	format   beep.Format
	ctrl     *beep.Ctrl
	volume   *effects.Volume
	level    float64

	// pendingPlay remembers a Play issued while the stream was still
	// being fetched; the staged stream then starts unpaused.
	pendingPlay bool

	// generation identifies the latest Load; anything resolving for an
	// older generation is discarded. Atomic because the end-of-stream
	// callback runs on the device goroutine, which must not take s.mu.
	generation atomic.Uint64

	progressCh chan time.Duration
	endedCh    chan struct{}
	errCh      chan error

	done   chan struct{}
	closed bool
}

// NewSpeaker initializes the audio device and returns a Speaker.
func NewSpeaker() (*Speaker, error) {
	if err := speaker.Init(speakerRate, speakerRate.N(time.Second/10)); err != nil {
		return nil, fmt.Errorf("init speaker: %w", err)
	}

	s := &Speaker{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		level:      1,
		progressCh: make(chan time.Duration, 16),
		endedCh:    make(chan struct{}, 1),
		errCh:      make(chan error, 1),
		done:       make(chan struct{}),
	}
	go s.tickProgress()
	return s, nil
}

// Load fetches and decodes the URL in the background, replacing whatever
// was playing. The fetch for a previous Load is implicitly abandoned.
func (s *Speaker) Load(url string) {
	gen := s.generation.Add(1)
	s.mu.Lock()
	s.pendingPlay = false
	s.stopLocked()
	s.mu.Unlock()

	go s.fetchAndStage(gen, url)
}

func (s *Speaker) fetchAndStage(gen uint64, url string) {
	resp, err := s.httpClient.Get(url)
	if err != nil {
		s.reportError(gen, fmt.Errorf("%w: fetch: %v", ErrUnsupported, err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		s.reportError(gen, fmt.Errorf("%w: fetch status %d", ErrUnsupported, resp.StatusCode))
		return
	}

	// The decoder needs a seekable source; the stream is buffered in
	// memory for the lifetime of the track only.
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		s.reportError(gen, fmt.Errorf("%w: read stream: %v", ErrUnsupported, err))
		return
	}

	streamer, format, err := mp3.Decode(nopSeekCloser{bytes.NewReader(data)})
	if err != nil {
		s.reportError(gen, fmt.Errorf("%w: decode: %v", ErrUnsupported, err))
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation.Load() || s.closed {
		_ = streamer.Close()
		return
	}

	s.streamer = streamer
	s.format = format

	resampled := beep.Resample(resampleQuality, format.SampleRate, speakerRate, streamer)
	s.ctrl = &beep.Ctrl{Streamer: resampled, Paused: !s.pendingPlay}
	s.volume = &effects.Volume{Streamer: s.ctrl, Base: 2}
	s.applyVolumeLocked()

	speaker.Play(beep.Seq(s.volume, beep.Callback(func() {
		s.trackFinished(gen)
	})))
}

// Play starts or resumes rendering. If the stream is still being fetched
// it starts as soon as staging completes (Load stages streams paused only
// until the first Play flips the pending flag via ctrl).
func (s *Speaker) Play() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrAborted
	}
	if s.ctrl != nil {
		speaker.Lock()
		s.ctrl.Paused = false
		speaker.Unlock()
	}
	// No staged stream yet: the pending generation will start unpaused.
	s.pendingPlay = true
	return nil
}

// Pause suspends rendering.
func (s *Speaker) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingPlay = false
	if s.ctrl == nil {
		return
	}
	speaker.Lock()
	s.ctrl.Paused = true
	speaker.Unlock()
}

// Seek moves the playback position within the current stream.
func (s *Speaker) Seek(pos time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return
	}
	speaker.Lock()
	_ = s.streamer.Seek(clampSample(s.format.SampleRate.N(pos), s.streamer.Len()))
	speaker.Unlock()
}

// SetVolume maps a linear 0..1 level onto the exponential volume effect.
func (s *Speaker) SetVolume(level float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.level = math.Min(1, math.Max(0, level))
	s.applyVolumeLocked()
}

func (s *Speaker) applyVolumeLocked() {
	if s.volume == nil {
		return
	}
	speaker.Lock()
	if s.level == 0 {
		s.volume.Silent = true
	} else {
		s.volume.Silent = false
		s.volume.Volume = math.Log2(s.level)
	}
	speaker.Unlock()
}

// Position returns the playback position within the current stream.
func (s *Speaker) Position() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return 0
	}
	speaker.Lock()
	pos := s.streamer.Position()
	speaker.Unlock()
	return s.format.SampleRate.D(pos)
}

// Duration returns the total length of the current stream, or 0 while no
// stream is staged.
func (s *Speaker) Duration() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.streamer == nil {
		return 0
	}
	return s.format.SampleRate.D(s.streamer.Len())
}

func (s *Speaker) Progress() <-chan time.Duration { return s.progressCh }

func (s *Speaker) Ended() <-chan struct{} { return s.endedCh }

func (s *Speaker) Errors() <-chan error { return s.errCh }

// Close releases the device and stops background work.
func (s *Speaker) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	s.stopLocked()
	return nil
}

// stopLocked tears down the staged stream. Callers hold s.mu.
func (s *Speaker) stopLocked() {
	speaker.Clear()
	if s.streamer != nil {
		_ = s.streamer.Close()
		s.streamer = nil
	}
	s.ctrl = nil
	s.volume = nil
}

// trackFinished runs on the device goroutine; it must not take s.mu.
func (s *Speaker) trackFinished(gen uint64) {
	if gen != s.generation.Load() {
		return
	}
	select {
	case <-s.done:
	case s.endedCh <- struct{}{}:
	default:
	}
}

func (s *Speaker) reportError(gen uint64, err error) {
	if gen != s.generation.Load() {
		// A newer load owns the output; surfacing this would cause a
		// spurious paused state.
		return
	}
	select {
	case <-s.done:
	case s.errCh <- err:
	default:
	}
}

func (s *Speaker) tickProgress() {
	ticker := time.NewTicker(progressInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			s.mu.Lock()
			rendering := s.ctrl != nil && !s.ctrl.Paused
			s.mu.Unlock()
			if !rendering {
				continue
			}
			select {
			case s.progressCh <- s.Position():
			default:
			}
		}
	}
}

func clampSample(n, max int) int {
	if n < 0 {
		return 0
	}
	if n >= max {
		return max - 1
	}
	return n
}

// nopSeekCloser adds a no-op Close to an in-memory reader so it satisfies
// the decoder's ReadCloser requirement while staying seekable.
type nopSeekCloser struct {
	*bytes.Reader
}

func (nopSeekCloser) Close() error { return nil }

// Verify Speaker implements Output at compile time.
var _ Output = (*Speaker)(nil)
