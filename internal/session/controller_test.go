package session

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/lmartel/cadenza/internal/audio"
	"github.com/lmartel/cadenza/internal/catalog"
	"github.com/lmartel/cadenza/internal/collection"
	"github.com/lmartel/cadenza/internal/queue"
)

func mkTrack(id, artist string) catalog.Track {
	return catalog.Track{
		ID:              id,
		Title:           "title-" + id,
		Artist:          artist,
		DurationSeconds: 180,
		AudioURL:        "https://cdn.example/" + id + ".mp3",
	}
}

func newTestController(t *testing.T) (*Controller, *audio.Mock) {
	t.Helper()
	out := audio.NewMock()
	c := New(out, queue.NewManager())
	c.SetRand(rand.New(rand.NewPCG(1, 2)))
	t.Cleanup(func() { _ = c.Close() })
	return c, out
}

func TestPlayTrackStartsPlayback(t *testing.T) {
	c, out := newTestController(t)
	a := mkTrack("a", "X")
	b := mkTrack("b", "Y")

	c.PlayTrack(a, []catalog.Track{a, b})

	st := c.Status()
	require.NotNil(t, st.Current)
	require.Equal(t, "a", st.Current.ID)
	require.True(t, st.Playing)
	require.Equal(t, []string{a.AudioURL}, out.LoadCalls())
	require.Equal(t, []catalog.Track{a, b}, c.ActiveQueue())
}

func TestPlayTrackSameTrackToggles(t *testing.T) {
	c, out := newTestController(t)
	a := mkTrack("a", "X")

	c.PlayTrack(a, []catalog.Track{a})
	require.True(t, c.Status().Playing)

	c.PlayTrack(a, nil)
	require.False(t, c.Status().Playing)
	require.False(t, out.IsPlaying())

	c.PlayTrack(a, nil)
	require.True(t, c.Status().Playing)
	// The toggle must not reload the stream.
	require.Len(t, out.LoadCalls(), 1)
}

func TestPlayTrackNilContextKeepsQueue(t *testing.T) {
	c, _ := newTestController(t)
	a := mkTrack("a", "X")
	b := mkTrack("b", "Y")

	c.PlayTrack(a, []catalog.Track{a, b})
	c.PlayTrack(b, nil)

	require.Equal(t, []catalog.Track{a, b}, c.ActiveQueue())
	require.Equal(t, "b", c.Status().Current.ID)
}

func TestManualQueueBeatsContext(t *testing.T) {
	c, _ := newTestController(t)
	a := mkTrack("a", "X")
	b := mkTrack("b", "Y")
	x := mkTrack("x", "Z")
	col := collection.New("id1", "Mix", []catalog.Track{a, b})

	c.PlayCollection(col, false)
	require.Equal(t, "a", c.Status().Current.ID)

	c.Enqueue(x)
	c.Next()
	require.Equal(t, "x", c.Status().Current.ID)
	require.Empty(t, c.ManualQueue())

	// The manual track is gone; navigation resumes over the context.
	// x is not a member, so the context restarts from its head.
	c.Next()
	require.Equal(t, "a", c.Status().Current.ID)
}

func TestManualQueueOrderIsFIFO(t *testing.T) {
	c, _ := newTestController(t)
	a := mkTrack("a", "X")
	x := mkTrack("x", "Y")
	y := mkTrack("y", "Z")

	c.PlayTrack(a, []catalog.Track{a})
	c.Enqueue(x)
	c.Enqueue(y)

	c.Next()
	require.Equal(t, "x", c.Status().Current.ID)
	c.Next()
	require.Equal(t, "y", c.Status().Current.ID)
}

func TestNextWrapsSequentially(t *testing.T) {
	c, _ := newTestController(t)
	a := mkTrack("a", "X")
	b := mkTrack("b", "Y")
	col := collection.New("id1", "Mix", []catalog.Track{a, b})

	c.PlayCollection(col, false)
	c.Next()
	require.Equal(t, "b", c.Status().Current.ID)
	c.Next()
	require.Equal(t, "a", c.Status().Current.ID)
}

func TestNextWithoutCurrentIsNoop(t *testing.T) {
	c, out := newTestController(t)
	c.Next()
	require.Nil(t, c.Status().Current)
	require.Empty(t, out.LoadCalls())
}

func TestPrevRestartsWhenPastThreshold(t *testing.T) {
	c, out := newTestController(t)
	a := mkTrack("a", "X")
	b := mkTrack("b", "Y")
	col := collection.New("id1", "Mix", []catalog.Track{a, b})

	c.PlayCollection(col, false)
	c.Next()
	out.SetPosition(5 * time.Second)

	c.Prev()

	st := c.Status()
	require.Equal(t, "b", st.Current.ID, "restart must not change the track")
	require.True(t, st.Playing)
	require.Equal(t, []time.Duration{0}, out.SeekCalls())
	require.Equal(t, time.Duration(0), st.Elapsed)
}

func TestPrevNavigatesWhenEarly(t *testing.T) {
	c, out := newTestController(t)
	a := mkTrack("a", "X")
	b := mkTrack("b", "Y")
	col := collection.New("id1", "Mix", []catalog.Track{a, b})

	c.PlayCollection(col, false)
	c.Next()
	out.SetPosition(time.Second)

	c.Prev()
	require.Equal(t, "a", c.Status().Current.ID)

	// Wrap backwards from the head.
	out.SetPosition(0)
	c.Prev()
	require.Equal(t, "b", c.Status().Current.ID)
}

func TestPlayCollectionSequentialStartsAtHead(t *testing.T) {
	c, _ := newTestController(t)
	a := mkTrack("a", "X")
	b := mkTrack("b", "Y")
	col := collection.New("id1", "Mix", []catalog.Track{a, b})

	c.PlayCollection(col, false)

	st := c.Status()
	require.Equal(t, "a", st.Current.ID)
	require.False(t, st.Shuffle)
}

func TestPlayCollectionShufflePicksMember(t *testing.T) {
	c, _ := newTestController(t)
	tracks := []catalog.Track{mkTrack("a", "X"), mkTrack("b", "Y"), mkTrack("c", "Z")}
	col := collection.New("id1", "Mix", tracks)

	c.PlayCollection(col, true)

	st := c.Status()
	require.True(t, st.Shuffle)
	require.Contains(t, []string{"a", "b", "c"}, st.Current.ID)
}

func TestPlayCollectionEmptyIsNoop(t *testing.T) {
	c, out := newTestController(t)
	col := collection.New("id1", "Empty", nil)

	c.PlayCollection(col, false)
	c.PlayCollection(nil, true)

	require.Nil(t, c.Status().Current)
	require.Empty(t, out.LoadCalls())
}

func TestBlockedResumeForcesPaused(t *testing.T) {
	c, out := newTestController(t)
	a := mkTrack("a", "X")
	out.SetPlayError(audio.ErrBlocked)

	c.PlayTrack(a, []catalog.Track{a})

	st := c.Status()
	require.Equal(t, "a", st.Current.ID, "the track stays selected")
	require.False(t, st.Playing)

	out.SetPlayError(nil)
	c.TogglePlayPause()
	require.True(t, c.Status().Playing)
}

func TestUnplayableTrackSelectsButStaysPaused(t *testing.T) {
	c, out := newTestController(t)
	a := mkTrack("a", "X")
	a.AudioURL = ""

	c.PlayTrack(a, []catalog.Track{a})

	st := c.Status()
	require.Equal(t, "a", st.Current.ID)
	require.False(t, st.Playing)
	require.Empty(t, out.LoadCalls())

	// Resume attempts on an unplayable track are refused silently.
	c.TogglePlayPause()
	require.False(t, c.Status().Playing)
}

func TestEndedAdvancesToNextTrack(t *testing.T) {
	c, out := newTestController(t)
	a := mkTrack("a", "X")
	b := mkTrack("b", "Y")
	col := collection.New("id1", "Mix", []catalog.Track{a, b})

	c.PlayCollection(col, false)
	out.SimulateEnded()

	require.Eventually(t, func() bool {
		st := c.Status()
		return st.Current != nil && st.Current.ID == "b"
	}, time.Second, 5*time.Millisecond)
}

func TestOutputErrorPausesPlayback(t *testing.T) {
	c, out := newTestController(t)
	a := mkTrack("a", "X")

	c.PlayTrack(a, []catalog.Track{a})
	require.True(t, c.Status().Playing)

	out.SimulateError(fmt.Errorf("%w: decode", audio.ErrUnsupported))

	require.Eventually(t, func() bool {
		return !c.Status().Playing
	}, time.Second, 5*time.Millisecond)
	require.Equal(t, "a", c.Status().Current.ID)
}

func TestAbortedErrorIsIgnored(t *testing.T) {
	c, out := newTestController(t)
	a := mkTrack("a", "X")

	c.PlayTrack(a, []catalog.Track{a})
	out.SimulateError(fmt.Errorf("superseded: %w", audio.ErrAborted))

	// Give the event loop a chance to (wrongly) react.
	time.Sleep(50 * time.Millisecond)
	require.True(t, c.Status().Playing)
}

func TestSeekClampsToDuration(t *testing.T) {
	c, out := newTestController(t)
	a := mkTrack("a", "X")
	c.PlayTrack(a, []catalog.Track{a})

	c.Seek(10 * time.Minute)
	require.Equal(t, 3*time.Minute, c.Status().Elapsed)

	c.Seek(-time.Second)
	require.Equal(t, time.Duration(0), c.Status().Elapsed)
	require.Len(t, out.SeekCalls(), 2)
}

func TestSetVolumeClampsAndForwards(t *testing.T) {
	c, out := newTestController(t)

	c.SetVolume(1.5)
	require.Equal(t, 1.0, out.Volume())
	c.SetVolume(-0.2)
	require.Equal(t, 0.0, out.Volume())
	c.SetVolume(0.4)
	require.Equal(t, 0.4, c.Status().Volume)
}

func TestToggleShuffleEmitsState(t *testing.T) {
	c, _ := newTestController(t)
	sub := c.Subscribe()

	c.ToggleShuffle()
	require.True(t, c.Status().Shuffle)

	select {
	case e := <-sub.StateChanged:
		require.True(t, e.Shuffle)
	case <-time.After(time.Second):
		t.Fatal("no state event")
	}
}

func TestBrowseContextUsedWhenQueueEmpty(t *testing.T) {
	c, _ := newTestController(t)
	a := mkTrack("a", "X")
	b := mkTrack("b", "Y")
	c.SetBrowseContext(func() []catalog.Track { return []catalog.Track{a, b} })

	c.PlayTrack(a, nil)
	c.Next()
	require.Equal(t, "b", c.Status().Current.ID)
}

func TestLibraryContextIsFallback(t *testing.T) {
	c, _ := newTestController(t)
	a := mkTrack("a", "X")
	b := mkTrack("b", "Y")
	c.SetBrowseContext(func() []catalog.Track { return nil })
	c.SetLibraryContext(func() []catalog.Track { return []catalog.Track{a, b} })

	c.PlayTrack(b, nil)
	c.Next()
	require.Equal(t, "a", c.Status().Current.ID)
}

func TestPlaysAreRecordedInHistory(t *testing.T) {
	c, _ := newTestController(t)
	a := mkTrack("a", "X")
	b := mkTrack("b", "Y")

	c.PlayTrack(a, []catalog.Track{a, b})
	c.PlayTrack(b, nil)

	entries := c.RecentlyPlayed()
	require.Len(t, entries, 2)
	require.Equal(t, "b", entries[0].Track.ID)
	require.Equal(t, "a", entries[1].Track.ID)
}

func TestNextDoesNotRecordHistory(t *testing.T) {
	c, _ := newTestController(t)
	a := mkTrack("a", "X")
	b := mkTrack("b", "Y")

	c.PlayTrack(a, []catalog.Track{a, b})
	c.Next()

	// Only the explicit play lands in history; auto-advance does not.
	entries := c.RecentlyPlayed()
	require.Len(t, entries, 1)
	require.Equal(t, "a", entries[0].Track.ID)
}

func TestTrackChangeEvents(t *testing.T) {
	c, _ := newTestController(t)
	sub := c.Subscribe()
	a := mkTrack("a", "X")
	b := mkTrack("b", "Y")

	c.PlayTrack(a, []catalog.Track{a, b})
	c.PlayTrack(b, nil)

	e := <-sub.TrackChanged
	require.Nil(t, e.Previous)
	require.Equal(t, "a", e.Current.ID)

	e = <-sub.TrackChanged
	require.NotNil(t, e.Previous)
	require.Equal(t, "a", e.Previous.ID)
	require.Equal(t, "b", e.Current.ID)
}

func TestStalePlayErrorIsDiscarded(t *testing.T) {
	c, _ := newTestController(t)
	a := mkTrack("a", "X")
	b := mkTrack("b", "Y")

	c.PlayTrack(b, []catalog.Track{a, b})
	require.True(t, c.Status().Playing)

	// A refusal that resolves after the session moved on must not pause
	// the newer track.
	c.resolvePlayError("a", errors.New("NotAllowedError"))
	require.True(t, c.Status().Playing)
}

func TestCloseSignalsSubscribers(t *testing.T) {
	out := audio.NewMock()
	c := New(out, queue.NewManager())
	sub := c.Subscribe()

	require.NoError(t, c.Close())
	select {
	case <-sub.Done:
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
	require.NoError(t, c.Close(), "close is idempotent")
}
