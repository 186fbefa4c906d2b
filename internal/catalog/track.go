package catalog

import "strings"

// Track is an immutable catalog entry. Tracks are shared by reference
// across collections, queues and history; only container membership ever
// changes. Equality is by ID.
type Track struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Artist          string `json:"artist"`
	Album           string `json:"album"`
	CoverURL        string `json:"coverUrl"`
	DurationSeconds int    `json:"duration"`
	AudioURL        string `json:"audioUrl,omitempty"`
}

// Playable reports whether the track has a resolvable audio source.
// Unplayable tracks are filtered out of playable contexts.
func (t Track) Playable() bool {
	return t.AudioURL != ""
}

// MainArtist returns the first artist name when Artist holds several
// names joined by "," or "&".
func (t Track) MainArtist() string {
	name := t.Artist
	if i := strings.IndexByte(name, ','); i >= 0 {
		name = name[:i]
	}
	if i := strings.IndexByte(name, '&'); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSpace(name)
}

// IndexByID returns the position of the track with the given ID in
// tracks, or -1 if absent.
func IndexByID(tracks []Track, id string) int {
	for i := range tracks {
		if tracks[i].ID == id {
			return i
		}
	}
	return -1
}
