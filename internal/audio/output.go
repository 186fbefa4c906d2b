// Package audio wraps the single physical audio-rendering resource. Only
// the playback controller talks to it.
package audio

import (
	"errors"
	"time"
)

var (
	// ErrAborted marks a load or play superseded by a newer request.
	// It is a normal cancellation, not a failure.
	ErrAborted = errors.New("superseded by a newer load")
	// ErrBlocked means the platform refused to start playback.
	ErrBlocked = errors.New("playback blocked by platform policy")
	// ErrUnsupported means the media could not be fetched or decoded.
	ErrUnsupported = errors.New("unsupported media")
)

// Output is the playable media handle contract.
//
// Load and Play return quickly; slow work (fetching, decoding) happens in
// the background and deferred failures surface on Errors. A Load implicitly
// cancels any in-flight load or play for the previous source; events for a
// superseded source are either dropped or reported as ErrAborted.
type Output interface {
	// Load points the output at a new media URL and resets the position.
	Load(url string)
	// Play starts or resumes rendering. An immediate refusal (ErrBlocked,
	// ErrUnsupported) is returned synchronously.
	Play() error
	// Pause suspends rendering, keeping the position.
	Pause()
	// Seek moves the playback position.
	Seek(pos time.Duration)
	// SetVolume sets the output level, 0.0 (silent) to 1.0 (full).
	SetVolume(level float64)

	Position() time.Duration
	Duration() time.Duration

	// Progress ticks with the current position while rendering.
	Progress() <-chan time.Duration
	// Ended fires when the current media plays to completion.
	Ended() <-chan struct{}
	// Errors delivers deferred load/decode failures.
	Errors() <-chan error

	Close() error
}
