package session

import (
	"fmt"
	"testing"
	"time"

	"github.com/lmartel/cadenza/internal/catalog"
)

func TestHistoryRecordMostRecentFirst(t *testing.T) {
	h := NewHistory()
	h.Record(catalog.Track{ID: "a"})
	h.Record(catalog.Track{ID: "b"})
	h.Record(catalog.Track{ID: "c"})

	tracks := h.Tracks()
	if len(tracks) != 3 {
		t.Fatalf("len = %d, want 3", len(tracks))
	}
	for i, want := range []string{"c", "b", "a"} {
		if tracks[i].ID != want {
			t.Errorf("tracks[%d] = %q, want %q", i, tracks[i].ID, want)
		}
	}
}

func TestHistoryDedupeMovesToFront(t *testing.T) {
	h := NewHistory()
	h.Record(catalog.Track{ID: "a"})
	h.Record(catalog.Track{ID: "b"})
	h.Record(catalog.Track{ID: "a"})

	tracks := h.Tracks()
	if len(tracks) != 2 {
		t.Fatalf("len = %d, want 2", len(tracks))
	}
	if tracks[0].ID != "a" || tracks[1].ID != "b" {
		t.Errorf("order = %q,%q, want a,b", tracks[0].ID, tracks[1].ID)
	}
}

func TestHistoryCapEvictsOldest(t *testing.T) {
	h := NewHistory()
	for i := 0; i < 25; i++ {
		h.Record(catalog.Track{ID: fmt.Sprintf("t%02d", i)})
	}

	if h.Len() != historyCap {
		t.Fatalf("len = %d, want %d", h.Len(), historyCap)
	}
	tracks := h.Tracks()
	if tracks[0].ID != "t24" {
		t.Errorf("front = %q, want t24", tracks[0].ID)
	}
	if tracks[len(tracks)-1].ID != "t05" {
		t.Errorf("back = %q, want t05", tracks[len(tracks)-1].ID)
	}
}

func TestHistoryTimestamps(t *testing.T) {
	h := NewHistory()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ticks := 0
	h.now = func() time.Time {
		ticks++
		return base.Add(time.Duration(ticks) * time.Minute)
	}

	h.Record(catalog.Track{ID: "a"})
	h.Record(catalog.Track{ID: "b"})

	entries := h.Entries()
	if !entries[0].PlayedAt.After(entries[1].PlayedAt) {
		t.Error("newest entry should carry the latest timestamp")
	}
}

func TestHistoryRestoreTruncates(t *testing.T) {
	h := NewHistory()
	var seed []HistoryEntry
	for i := 0; i < 30; i++ {
		seed = append(seed, HistoryEntry{Track: catalog.Track{ID: fmt.Sprintf("t%02d", i)}})
	}
	h.Restore(seed)

	if h.Len() != historyCap {
		t.Fatalf("len = %d, want %d", h.Len(), historyCap)
	}
	if h.Tracks()[0].ID != "t00" {
		t.Errorf("front = %q, want t00", h.Tracks()[0].ID)
	}
}
