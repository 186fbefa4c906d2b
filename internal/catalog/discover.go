package catalog

import (
	"context"
	"math/rand/v2"
)

// discoverLimit caps both recommendation and suggestion lists.
const discoverLimit = 15

// Recommendations fetches tracks related to a seed track by searching for
// the main artist's hits. The seed itself is excluded.
func (c *Client) Recommendations(ctx context.Context, seed Track) ([]Track, error) {
	artist := seed.MainArtist()
	if artist == "" {
		return nil, nil
	}

	results, err := c.Search(ctx, artist+" hits", discoverLimit+1)
	if err != nil {
		return nil, err
	}

	out := make([]Track, 0, discoverLimit)
	for _, t := range results {
		if t.ID == seed.ID {
			continue
		}
		out = append(out, t)
		if len(out) == discoverLimit {
			break
		}
	}
	return out, nil
}

// Suggestions samples up to discoverLimit tracks from the pool without
// replacement, deduplicated by ID.
func Suggestions(rng *rand.Rand, pool []Track) []Track {
	seen := make(map[string]struct{}, len(pool))
	unique := make([]Track, 0, len(pool))
	for _, t := range pool {
		if _, dup := seen[t.ID]; dup {
			continue
		}
		seen[t.ID] = struct{}{}
		unique = append(unique, t)
	}

	rng.Shuffle(len(unique), func(i, j int) {
		unique[i], unique[j] = unique[j], unique[i]
	})
	if len(unique) > discoverLimit {
		unique = unique[:discoverLimit]
	}
	return unique
}
