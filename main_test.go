package main

import (
	"fmt"
	"testing"
	"time"

	"github.com/lmartel/cadenza/internal/audio"
	"github.com/lmartel/cadenza/internal/catalog"
	"github.com/lmartel/cadenza/internal/queue"
	"github.com/lmartel/cadenza/internal/session"
)

// The controller's event goroutine resolves the browse context when a
// track runs out while the command loop may be replacing the search
// results. Both sides must go through the guarded accessors; run with
// -race to catch regressions.
func TestSearchResultsSafeDuringAutoAdvance(t *testing.T) {
	out := audio.NewMock()
	a := &app{controller: session.New(out, queue.NewManager())}
	t.Cleanup(func() { _ = a.controller.Close() })
	a.controller.SetBrowseContext(a.searchResults)

	tracks := make([]catalog.Track, 4)
	for i := range tracks {
		tracks[i] = catalog.Track{
			ID:              fmt.Sprintf("t%d", i),
			Artist:          "A",
			DurationSeconds: 180,
			AudioURL:        fmt.Sprintf("https://cdn.example/t%d.mp3", i),
		}
	}
	a.setSearchResults(tracks)
	a.controller.PlayTrack(tracks[0], nil)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			a.setSearchResults(tracks[i%len(tracks):])
		}
	}()

	for i := 0; i < 200; i++ {
		out.SimulateEnded()
	}
	<-done

	// The writer finished; one more advance still resolves a context.
	out.SimulateEnded()
	deadline := time.After(time.Second)
	for a.controller.Status().Current == nil {
		select {
		case <-deadline:
			t.Fatal("no current track after auto-advance")
		default:
			time.Sleep(5 * time.Millisecond)
		}
	}
}
