package remote

import (
	"time"

	"github.com/lmartel/cadenza/internal/catalog"
)

// PlaylistDoc is the wire form of a collection. The description travels
// with the document rather than being derived client-side on read, so a
// stale count is corrected by the next membership write.
type PlaylistDoc struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	CoverURL    string          `json:"coverUrl"`
	Tracks      []catalog.Track `json:"tracks"`
	IsSystem    bool            `json:"isSystem"`
	UpdatedAt   time.Time       `json:"updatedAt,omitempty"`
}

// Profile is the editable slice of a user document.
type Profile struct {
	DisplayName string `json:"displayName"`
	PhotoURL    string `json:"photoUrl,omitempty"`
}

// Event is a push notification that remote user data changed, carrying
// the full replacement snapshot for the affected collection set.
type Event struct {
	Kind      string          `json:"kind"`
	Liked     []catalog.Track `json:"liked,omitempty"`
	Playlists []PlaylistDoc   `json:"playlists,omitempty"`
}

// Event kinds.
const (
	EventLiked     = "liked"
	EventPlaylists = "playlists"
)
