// Package queue owns the two orderings that decide what plays next: the
// manual "play next" FIFO and the active contextual queue (the collection
// or result list the user started playback from).
package queue

import "github.com/lmartel/cadenza/internal/catalog"

// Manager holds both queues. It is not safe for concurrent use; the
// playback controller serializes access.
type Manager struct {
	manual []catalog.Track
	active []catalog.Track
}

// NewManager creates an empty queue manager.
func NewManager() *Manager {
	return &Manager{}
}

// Enqueue appends a track to the manual queue.
func (m *Manager) Enqueue(t catalog.Track) {
	m.manual = append(m.manual, t)
}

// DequeueNext pops the head of the manual queue. Manual entries are always
// consumed strictly before contextual navigation.
func (m *Manager) DequeueNext() (catalog.Track, bool) {
	if len(m.manual) == 0 {
		return catalog.Track{}, false
	}
	head := m.manual[0]
	m.manual = m.manual[1:]
	return head, true
}

// HasManual reports whether any manual entries are pending.
func (m *Manager) HasManual() bool {
	return len(m.manual) > 0
}

// Manual returns a copy of the pending manual queue.
func (m *Manager) Manual() []catalog.Track {
	out := make([]catalog.Track, len(m.manual))
	copy(out, m.manual)
	return out
}

// SetActive replaces the contextual queue entirely.
func (m *Manager) SetActive(tracks []catalog.Track) {
	m.active = make([]catalog.Track, len(tracks))
	copy(m.active, tracks)
}

// Active returns a copy of the contextual queue.
func (m *Manager) Active() []catalog.Track {
	out := make([]catalog.Track, len(m.active))
	copy(out, m.active)
	return out
}

// HasActive reports whether a contextual queue is set.
func (m *Manager) HasActive() bool {
	return len(m.active) > 0
}
