package session

import (
	"time"

	"github.com/lmartel/cadenza/internal/catalog"
)

// historyCap bounds the recently-played list.
const historyCap = 20

// HistoryEntry is one recently-played record.
type HistoryEntry struct {
	Track    catalog.Track
	PlayedAt time.Time
}

// History is the bounded most-recently-played list. Records are
// move-to-front with dedupe by track ID; the oldest entry is evicted at
// the cap. Pure and synchronous.
type History struct {
	entries []HistoryEntry
	now     func() time.Time
}

// NewHistory creates an empty history.
func NewHistory() *History {
	return &History{now: time.Now}
}

// Record inserts the track at the front, removing any previous entry for
// the same ID and evicting beyond the cap.
func (h *History) Record(t catalog.Track) {
	kept := make([]HistoryEntry, 0, len(h.entries)+1)
	kept = append(kept, HistoryEntry{Track: t, PlayedAt: h.now()})
	for _, e := range h.entries {
		if e.Track.ID != t.ID {
			kept = append(kept, e)
		}
	}
	if len(kept) > historyCap {
		kept = kept[:historyCap]
	}
	h.entries = kept
}

// Entries returns a copy of the history, most recent first.
func (h *History) Entries() []HistoryEntry {
	out := make([]HistoryEntry, len(h.entries))
	copy(out, h.entries)
	return out
}

// Tracks returns the recently-played tracks, most recent first.
func (h *History) Tracks() []catalog.Track {
	out := make([]catalog.Track, len(h.entries))
	for i, e := range h.entries {
		out[i] = e.Track
	}
	return out
}

// Len returns the number of recorded entries.
func (h *History) Len() int {
	return len(h.entries)
}

// Restore seeds the history from persisted entries, most recent first.
func (h *History) Restore(entries []HistoryEntry) {
	if len(entries) > historyCap {
		entries = entries[:historyCap]
	}
	h.entries = append([]HistoryEntry(nil), entries...)
}
