// Package errmsg provides consistent error formatting for user-facing messages.
package errmsg

import "fmt"

// Op represents an operation that can fail.
type Op string

// Operation constants - grouped by domain.
const (
	// Catalog operations
	OpSearch    Op = "search the catalog"
	OpRecommend Op = "load recommendations"

	// Playback operations
	OpPlaybackStart Op = "start playback"
	OpPlaybackSeek  Op = "seek"

	// Library operations
	OpLikeToggle    Op = "update liked songs"
	OpLibraryLoad   Op = "load your library"
	OpProfileUpdate Op = "update profile"

	// Playlist operations
	OpPlaylistCreate   Op = "create playlist"
	OpPlaylistRename   Op = "rename playlist"
	OpPlaylistDelete   Op = "delete playlist"
	OpPlaylistAddTrack Op = "add track to playlist"
	OpPlaylistRemove   Op = "remove track from playlist"
	OpPlaylistPlay     Op = "play playlist"

	// Auth operations
	OpLogin  Op = "sign in"
	OpLogout Op = "sign out"

	// Initialization
	OpInitialize Op = "initialize application"
)

// Format creates a user-friendly error message.
func Format(op Op, err error) string {
	if err == nil {
		return ""
	}
	return fmt.Sprintf("Failed to %s: %v", op, err)
}

// FormatWith creates an error message with additional context.
func FormatWith(op Op, context string, err error) string {
	if err == nil {
		return ""
	}
	if context == "" {
		return Format(op, err)
	}
	return fmt.Sprintf("Failed to %s '%s': %v", op, context, err)
}
