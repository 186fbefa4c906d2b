// Package navigation computes the next and previous track for a playback
// context. It is pure: all state lives with the caller, randomness is
// injected.
package navigation

import (
	"math/rand/v2"

	"github.com/lmartel/cadenza/internal/catalog"
)

// artistAffinity is the probability that a shuffled step stays with the
// current artist when same-artist candidates exist.
const artistAffinity = 0.25

// Next returns the track to play after current. The second return is false
// when context is empty. A current track absent from context is treated as
// index -1, so sequential navigation restarts at the head.
//
// Shuffled next is a memoryless biased random walk, not a shuffled
// permutation: it excludes the current track when it can (a single-track
// context repeats itself) and with probability 0.25 prefers candidates by
// the same artist.
func Next(rng *rand.Rand, context []catalog.Track, current catalog.Track, shuffled bool) (catalog.Track, bool) {
	if len(context) == 0 {
		return catalog.Track{}, false
	}

	if !shuffled {
		idx := catalog.IndexByID(context, current.ID)
		if idx == -1 {
			return context[0], true
		}
		return context[(idx+1)%len(context)], true
	}

	pool := excludeID(context, current.ID)
	if len(pool) == 0 {
		pool = context
	}

	sameArtist := filterArtist(pool, current.Artist)
	if len(sameArtist) > 0 && rng.Float64() < artistAffinity {
		return sameArtist[rng.IntN(len(sameArtist))], true
	}
	return pool[rng.IntN(len(pool))], true
}

// Prev returns the track to play before current. Shuffled prev draws
// uniformly from the full context, current included; the asymmetry with
// Next is inherited behavior and kept on purpose.
func Prev(rng *rand.Rand, context []catalog.Track, current catalog.Track, shuffled bool) (catalog.Track, bool) {
	if len(context) == 0 {
		return catalog.Track{}, false
	}

	if shuffled {
		return context[rng.IntN(len(context))], true
	}

	idx := catalog.IndexByID(context, current.ID)
	if idx == -1 {
		return context[0], true
	}
	return context[(idx-1+len(context))%len(context)], true
}

func excludeID(tracks []catalog.Track, id string) []catalog.Track {
	out := make([]catalog.Track, 0, len(tracks))
	for _, t := range tracks {
		if t.ID != id {
			out = append(out, t)
		}
	}
	return out
}

func filterArtist(tracks []catalog.Track, artist string) []catalog.Track {
	var out []catalog.Track
	for _, t := range tracks {
		if t.Artist == artist {
			out = append(out, t)
		}
	}
	return out
}
