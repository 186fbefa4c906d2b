// Package collection models the ordered track collections (playlists) the
// session works with: curated read-only system collections seeded from the
// catalog, and fully mutable user collections synced to the remote store.
package collection

import (
	"errors"
	"fmt"

	"github.com/lmartel/cadenza/internal/catalog"
)

var (
	// ErrSystem is returned for membership, rename or delete attempts on
	// a system collection.
	ErrSystem = errors.New("system collection is read-only")
	// ErrEmptyName is returned when a collection name is blank.
	ErrEmptyName = errors.New("collection name is empty")
)

// Collection is an ordered sequence of tracks with derived metadata.
// Tracks are unique by ID; the description always reads "{n} songs" for
// user collections and is recomputed on every membership change.
type Collection struct {
	ID          string
	Name        string
	Description string
	CoverURL    string
	Tracks      []catalog.Track
	IsSystem    bool
}

// New creates a user collection. The description and default cover are
// derived from the initial members.
func New(id, name string, tracks []catalog.Track) *Collection {
	c := &Collection{
		ID:     id,
		Name:   name,
		Tracks: append([]catalog.Track(nil), tracks...),
	}
	c.refresh()
	return c
}

// NewSystem creates a read-only system collection with a curated
// description. System collections are never persisted remotely.
func NewSystem(id, name, description string, tracks []catalog.Track) *Collection {
	c := &Collection{
		ID:          id,
		Name:        name,
		Description: description,
		Tracks:      append([]catalog.Track(nil), tracks...),
		IsSystem:    true,
	}
	if len(c.Tracks) > 0 {
		c.CoverURL = c.Tracks[0].CoverURL
	}
	return c
}

// Restore rebuilds a collection exactly as stored, without recomputing
// derived fields. Used when loading from the remote store.
func Restore(id, name, description, coverURL string, tracks []catalog.Track, isSystem bool) *Collection {
	return &Collection{
		ID:          id,
		Name:        name,
		Description: description,
		CoverURL:    coverURL,
		Tracks:      append([]catalog.Track(nil), tracks...),
		IsSystem:    isSystem,
	}
}

// Clone returns a deep copy safe to hand across goroutine boundaries.
func (c *Collection) Clone() *Collection {
	out := *c
	out.Tracks = append([]catalog.Track(nil), c.Tracks...)
	return &out
}

// Len returns the number of member tracks.
func (c *Collection) Len() int {
	return len(c.Tracks)
}

// Contains reports whether the track with the given ID is a member.
func (c *Collection) Contains(trackID string) bool {
	return catalog.IndexByID(c.Tracks, trackID) >= 0
}

// Add appends a track. It reports whether membership changed: duplicates
// by ID are a silent no-op. System collections reject the mutation.
func (c *Collection) Add(t catalog.Track) (bool, error) {
	if c.IsSystem {
		return false, ErrSystem
	}
	if c.Contains(t.ID) {
		return false, nil
	}
	c.Tracks = append(c.Tracks, t)
	c.refresh()
	return true, nil
}

// Remove drops the track with the given ID. It reports whether membership
// changed. System collections reject the mutation.
func (c *Collection) Remove(trackID string) (bool, error) {
	if c.IsSystem {
		return false, ErrSystem
	}
	idx := catalog.IndexByID(c.Tracks, trackID)
	if idx < 0 {
		return false, nil
	}
	c.Tracks = append(c.Tracks[:idx], c.Tracks[idx+1:]...)
	c.refresh()
	return true, nil
}

// Rename changes the collection name. System collections reject it.
func (c *Collection) Rename(name string) error {
	if c.IsSystem {
		return ErrSystem
	}
	if name == "" {
		return ErrEmptyName
	}
	c.Name = name
	return nil
}

// refresh recomputes the derived description and default cover, atomically
// with the membership change that triggered it.
func (c *Collection) refresh() {
	c.Description = fmt.Sprintf("%d songs", len(c.Tracks))
	if c.CoverURL == "" && len(c.Tracks) > 0 {
		c.CoverURL = c.Tracks[0].CoverURL
	}
}
