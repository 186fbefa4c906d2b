package state

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/lmartel/cadenza/internal/catalog"
	"github.com/lmartel/cadenza/internal/session"
)

func openTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := OpenPath(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { m.Close() })
	return m
}

func TestGetPlayerDefaults(t *testing.T) {
	m := openTestManager(t)

	got, err := m.GetPlayer()
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if got.Volume != 1.0 || got.Shuffle || got.AuthToken != "" {
		t.Errorf("defaults = %+v, want volume 1.0, shuffle off, no token", got)
	}
}

func TestPlayerRoundTrip(t *testing.T) {
	m := openTestManager(t)

	want := PlayerState{Volume: 0.6, Shuffle: true, AuthToken: "tok123"}
	if err := savePlayer(m.db, want); err != nil {
		t.Fatalf("savePlayer: %v", err)
	}

	got, err := m.GetPlayer()
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if *got != want {
		t.Errorf("got %+v, want %+v", *got, want)
	}
}

func TestSavePlayerDebounces(t *testing.T) {
	m := openTestManager(t)

	m.SavePlayer(PlayerState{Volume: 0.2})
	m.SavePlayer(PlayerState{Volume: 0.8})

	// Before the debounce fires nothing is written yet.
	got, err := m.GetPlayer()
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if got.Volume != 1.0 {
		t.Errorf("volume written before debounce: %v", got.Volume)
	}

	deadline := time.After(3 * time.Second)
	for {
		got, err = m.GetPlayer()
		if err != nil {
			t.Fatalf("GetPlayer: %v", err)
		}
		if got.Volume == 0.8 {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("volume = %v, want 0.8 after debounce", got.Volume)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func TestCloseFlushesPending(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	m, err := OpenPath(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	m.SavePlayer(PlayerState{Volume: 0.3, Shuffle: true})
	if err := m.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	m2, err := OpenPath(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer m2.Close()

	got, err := m2.GetPlayer()
	if err != nil {
		t.Fatalf("GetPlayer: %v", err)
	}
	if got.Volume != 0.3 || !got.Shuffle {
		t.Errorf("pending state not flushed on close: %+v", got)
	}
}

func TestHistoryRoundTrip(t *testing.T) {
	m := openTestManager(t)

	played := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)
	entries := []session.HistoryEntry{
		{Track: catalog.Track{ID: "b", Title: "B", Artist: "Artist B",
			DurationSeconds: 200, AudioURL: "https://cdn/b.mp3"}, PlayedAt: played},
		{Track: catalog.Track{ID: "a", Title: "A"}, PlayedAt: played.Add(-time.Hour)},
	}
	if err := m.SaveHistory(entries); err != nil {
		t.Fatalf("SaveHistory: %v", err)
	}

	got, err := m.GetHistory()
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Track.ID != "b" || got[1].Track.ID != "a" {
		t.Errorf("order not preserved: %q, %q", got[0].Track.ID, got[1].Track.ID)
	}
	if got[0].Track.DurationSeconds != 200 || got[0].Track.AudioURL != "https://cdn/b.mp3" {
		t.Errorf("track fields not preserved: %+v", got[0].Track)
	}
	if !got[0].PlayedAt.Equal(played) {
		t.Errorf("PlayedAt = %v, want %v", got[0].PlayedAt, played)
	}
}

func TestSaveHistoryReplaces(t *testing.T) {
	m := openTestManager(t)

	first := []session.HistoryEntry{{Track: catalog.Track{ID: "a", Title: "A"}, PlayedAt: time.Now()}}
	if err := m.SaveHistory(first); err != nil {
		t.Fatalf("SaveHistory: %v", err)
	}

	second := []session.HistoryEntry{{Track: catalog.Track{ID: "b", Title: "B"}, PlayedAt: time.Now()}}
	if err := m.SaveHistory(second); err != nil {
		t.Fatalf("SaveHistory: %v", err)
	}

	got, err := m.GetHistory()
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(got) != 1 || got[0].Track.ID != "b" {
		t.Errorf("history not replaced: %+v", got)
	}
}
