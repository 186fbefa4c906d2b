package session

import (
	"time"

	"github.com/lmartel/cadenza/internal/catalog"
)

// TrackChange is emitted when the current track changes. It is not
// emitted for play/pause toggles or restarts of the same track.
type TrackChange struct {
	Previous *catalog.Track
	Current  catalog.Track
}

// StateChange is emitted when the playing or shuffle flag flips.
type StateChange struct {
	Playing bool
	Shuffle bool
}

// ProgressChange is emitted on position ticks and seeks.
type ProgressChange struct {
	Elapsed  time.Duration
	Duration time.Duration
}

// ErrorEvent is emitted when playback degrades. Superseded loads are
// filtered out before this point; everything arriving here is a genuine
// failure, already handled by falling back to a paused state.
type ErrorEvent struct {
	Op  string
	Err error
}
