// Package session owns the playback session: what is playing, what plays
// next, and the recently-played history. All mutations go through the
// Controller; the UI layer only reads derived state and subscribes to
// events.
package session

import (
	"errors"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/lmartel/cadenza/internal/audio"
	"github.com/lmartel/cadenza/internal/catalog"
	"github.com/lmartel/cadenza/internal/collection"
	"github.com/lmartel/cadenza/internal/navigation"
	"github.com/lmartel/cadenza/internal/queue"
)

// restartThreshold separates "previous" restarting the current track from
// navigating to the previous one.
const restartThreshold = 3 * time.Second

// ContextFunc supplies a navigation context on demand (e.g. the current
// search results, or the full known catalog).
type ContextFunc func() []catalog.Track

// Status is a read-only snapshot of the session state.
type Status struct {
	Current  *catalog.Track
	Playing  bool
	Shuffle  bool
	Liked    bool
	Elapsed  time.Duration
	Duration time.Duration
	Volume   float64
}

// Controller is the playback state machine. It is the only owner of the
// audio output; user intents and output events are serialized through its
// mutex, and the most recent play intent always wins.
type Controller struct {
	mu sync.Mutex

	out     audio.Output
	queue   *queue.Manager
	history *History
	rng     *rand.Rand

	current  *catalog.Track
	playing  bool
	shuffle  bool
	elapsed  time.Duration
	duration time.Duration
	volume   float64

	browse  ContextFunc
	library ContextFunc
	liked   func(trackID string) bool

	subs   []*Subscription
	subsMu sync.RWMutex

	done   chan struct{}
	closed bool
}

// New creates a controller over the given output and queues and starts
// consuming output events.
func New(out audio.Output, q *queue.Manager) *Controller {
	c := &Controller{
		out:     out,
		queue:   q,
		history: NewHistory(),
		rng:     rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
		volume:  1,
		done:    make(chan struct{}),
	}
	go c.consumeOutput()
	return c
}

// SetBrowseContext sets the provider for the user's current browse
// context (e.g. search results while the search view is active).
func (c *Controller) SetBrowseContext(fn ContextFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.browse = fn
}

// SetLibraryContext sets the full-catalog fallback context.
func (c *Controller) SetLibraryContext(fn ContextFunc) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.library = fn
}

// SetLikedResolver sets the lookup used to decorate Status with the
// current track's liked flag.
func (c *Controller) SetLikedResolver(fn func(trackID string) bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.liked = fn
}

// SetRand replaces the randomness source. Tests use a seeded one.
func (c *Controller) SetRand(rng *rand.Rand) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rng = rng
}

// PlayTrack plays a track immediately. A non-nil context replaces the
// active queue. Playing the track that is already current toggles
// play/pause instead.
func (c *Controller) PlayTrack(t catalog.Track, context []catalog.Track) {
	c.mu.Lock()
	c.history.Record(t)
	if context != nil {
		c.queue.SetActive(context)
	}
	if c.current != nil && c.current.ID == t.ID {
		c.mu.Unlock()
		c.TogglePlayPause()
		return
	}
	c.startTrack(t)
}

// PlayCollection starts playback of a collection: the first track in
// sequential mode, a uniformly random member in shuffle mode. Empty
// collections are a no-op.
func (c *Controller) PlayCollection(col *collection.Collection, shuffle bool) {
	if col == nil || col.Len() == 0 {
		return
	}
	tracks := append([]catalog.Track(nil), col.Tracks...)

	c.mu.Lock()
	c.queue.SetActive(tracks)
	c.shuffle = shuffle
	t := tracks[0]
	if shuffle {
		t = tracks[c.rng.IntN(len(tracks))]
	}
	c.history.Record(t)
	c.startTrack(t)
}

// TogglePlayPause flips the playing flag. A resume refused by the
// platform forces the flag back to paused; the failure is otherwise
// swallowed.
func (c *Controller) TogglePlayPause() {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	cur := *c.current

	if c.playing {
		c.playing = false
		st := c.stateLocked()
		c.mu.Unlock()
		c.out.Pause()
		c.publishState(st)
		return
	}

	if !cur.Playable() {
		c.mu.Unlock()
		return
	}
	c.playing = true
	st := c.stateLocked()
	c.mu.Unlock()
	c.publishState(st)
	if err := c.out.Play(); err != nil {
		c.resolvePlayError(cur.ID, err)
	}
}

// Next advances playback. A pending manual-queue entry always wins,
// regardless of shuffle or context; otherwise the resolved context is
// navigated.
func (c *Controller) Next() {
	c.mu.Lock()
	if t, ok := c.queue.DequeueNext(); ok {
		c.startTrack(t)
		return
	}
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	context := c.resolveContextLocked()
	next, ok := navigation.Next(c.rng, context, *c.current, c.shuffle)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.startTrack(next)
}

// Prev restarts the current track when more than three seconds in;
// otherwise it navigates to the previous track of the resolved context.
func (c *Controller) Prev() {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}

	if c.out.Position() > restartThreshold {
		c.elapsed = 0
		pe := ProgressChange{Elapsed: 0, Duration: c.duration}
		c.mu.Unlock()
		c.out.Seek(0)
		c.publishProgress(pe)
		return
	}

	context := c.resolveContextLocked()
	prev, ok := navigation.Prev(c.rng, context, *c.current, c.shuffle)
	if !ok {
		c.mu.Unlock()
		return
	}
	c.startTrack(prev)
}

// Enqueue appends a track to the manual "play next" queue.
func (c *Controller) Enqueue(t catalog.Track) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Enqueue(t)
}

// Seek moves the playback position and updates elapsed.
func (c *Controller) Seek(pos time.Duration) {
	c.mu.Lock()
	if c.current == nil {
		c.mu.Unlock()
		return
	}
	if pos < 0 {
		pos = 0
	}
	if c.duration > 0 && pos > c.duration {
		pos = c.duration
	}
	c.elapsed = pos
	pe := ProgressChange{Elapsed: pos, Duration: c.duration}
	c.mu.Unlock()
	c.out.Seek(pos)
	c.publishProgress(pe)
}

// SetVolume passes the output level through, clamped to 0..1.
func (c *Controller) SetVolume(level float64) {
	if level < 0 {
		level = 0
	}
	if level > 1 {
		level = 1
	}
	c.mu.Lock()
	c.volume = level
	c.mu.Unlock()
	c.out.SetVolume(level)
}

// ToggleShuffle flips the shuffle flag. The active queue is untouched;
// only the navigation path changes.
func (c *Controller) ToggleShuffle() {
	c.mu.Lock()
	c.shuffle = !c.shuffle
	st := c.stateLocked()
	c.mu.Unlock()
	c.publishState(st)
}

// SetShuffle restores a persisted shuffle flag.
func (c *Controller) SetShuffle(on bool) {
	c.mu.Lock()
	c.shuffle = on
	c.mu.Unlock()
}

// Status returns a snapshot of the session state.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := Status{
		Playing:  c.playing,
		Shuffle:  c.shuffle,
		Elapsed:  c.elapsed,
		Duration: c.duration,
		Volume:   c.volume,
	}
	if c.current != nil {
		cur := *c.current
		s.Current = &cur
		if c.liked != nil {
			s.Liked = c.liked(cur.ID)
		}
	}
	return s
}

// RecentlyPlayed returns the history, most recent first.
func (c *Controller) RecentlyPlayed() []HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Entries()
}

// RestoreHistory seeds the history from persisted entries.
func (c *Controller) RestoreHistory(entries []HistoryEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history.Restore(entries)
}

// ManualQueue returns a copy of the pending manual queue.
func (c *Controller) ManualQueue() []catalog.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Manual()
}

// ActiveQueue returns a copy of the contextual queue.
func (c *Controller) ActiveQueue() []catalog.Track {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.queue.Active()
}

// Subscribe creates a new event subscription.
func (c *Controller) Subscribe() *Subscription {
	c.subsMu.Lock()
	defer c.subsMu.Unlock()
	sub := newSubscription()
	c.subs = append(c.subs, sub)
	return sub
}

// Close stops event consumption, signals subscribers, and releases the
// audio output.
func (c *Controller) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	c.mu.Unlock()

	c.subsMu.Lock()
	for _, sub := range c.subs {
		sub.close()
	}
	c.subs = nil
	c.subsMu.Unlock()

	return c.out.Close()
}

// startTrack makes t the current track, publishes the change, and starts
// the output when the track is playable. An unplayable track is selected
// but left paused. Callers hold c.mu; startTrack releases it.
func (c *Controller) startTrack(t catalog.Track) {
	prev := c.current
	cur := t
	c.current = &cur
	c.elapsed = 0
	c.duration = time.Duration(t.DurationSeconds) * time.Second
	c.playing = t.Playable()
	tc := TrackChange{Previous: prev, Current: t}
	st := c.stateLocked()
	c.mu.Unlock()

	c.publishTrack(tc)
	c.publishState(st)

	if !t.Playable() {
		return
	}
	// Load implicitly cancels any in-flight load for the previous track.
	c.out.Load(t.AudioURL)
	if err := c.out.Play(); err != nil {
		c.resolvePlayError(t.ID, err)
	}
}

// resolvePlayError handles a play refusal. The identity captured at call
// time decides whether the result still matters: if the current track has
// changed since, the resolution is stale and discarded.
func (c *Controller) resolvePlayError(trackID string, err error) {
	if errors.Is(err, audio.ErrAborted) {
		// Superseded by a newer request; not a failure.
		return
	}
	c.mu.Lock()
	if c.current == nil || c.current.ID != trackID {
		c.mu.Unlock()
		return
	}
	wasPlaying := c.playing
	c.playing = false
	st := c.stateLocked()
	c.mu.Unlock()

	if wasPlaying {
		c.publishState(st)
	}
	c.publishError(ErrorEvent{Op: "play", Err: err})
}

// resolveContextLocked applies the context resolution policy: the active
// queue when non-empty, else the browse context, else the full catalog.
func (c *Controller) resolveContextLocked() []catalog.Track {
	if active := c.queue.Active(); len(active) > 0 {
		return active
	}
	var context []catalog.Track
	if c.browse != nil {
		context = c.browse()
	}
	if len(context) == 0 && c.library != nil {
		context = c.library()
	}
	return context
}

func (c *Controller) stateLocked() StateChange {
	return StateChange{Playing: c.playing, Shuffle: c.shuffle}
}

// consumeOutput is the single consumer of output events. A track running
// to completion is equivalent to the user pressing next.
func (c *Controller) consumeOutput() {
	for {
		select {
		case <-c.done:
			return
		case pos := <-c.out.Progress():
			c.onProgress(pos)
		case <-c.out.Ended():
			c.Next()
		case err := <-c.out.Errors():
			c.onOutputError(err)
		}
	}
}

func (c *Controller) onProgress(pos time.Duration) {
	c.mu.Lock()
	if d := c.out.Duration(); d > 0 {
		c.duration = d
	}
	if c.duration > 0 && pos > c.duration {
		pos = c.duration
	}
	c.elapsed = pos
	pe := ProgressChange{Elapsed: c.elapsed, Duration: c.duration}
	c.mu.Unlock()
	c.publishProgress(pe)
}

// onOutputError degrades to a paused state. No auto-advance: skipping on
// error can loop forever through a broken context.
func (c *Controller) onOutputError(err error) {
	if errors.Is(err, audio.ErrAborted) {
		return
	}
	c.mu.Lock()
	wasPlaying := c.playing
	c.playing = false
	st := c.stateLocked()
	c.mu.Unlock()

	if wasPlaying {
		c.publishState(st)
	}
	c.publishError(ErrorEvent{Op: "load", Err: err})
}

func (c *Controller) publishTrack(e TrackChange) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, sub := range c.subs {
		sub.sendTrack(e)
	}
}

func (c *Controller) publishState(e StateChange) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, sub := range c.subs {
		sub.sendState(e)
	}
}

func (c *Controller) publishProgress(e ProgressChange) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, sub := range c.subs {
		sub.sendProgress(e)
	}
}

func (c *Controller) publishError(e ErrorEvent) {
	c.subsMu.RLock()
	defer c.subsMu.RUnlock()
	for _, sub := range c.subs {
		sub.sendError(e)
	}
}
