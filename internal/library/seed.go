package library

import (
	"context"

	"go.uber.org/zap"

	"github.com/lmartel/cadenza/internal/catalog"
	"github.com/lmartel/cadenza/internal/collection"
)

// seedMinTracks is the minimum search yield for a curated query to become
// a system collection; thinner results make a poor playlist.
const seedMinTracks = 5

// Searcher is the catalog surface seeding needs.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]catalog.Track, error)
}

// SeedSystemCollections fills in any missing curated system collections
// from catalog searches. Queries already present locally are skipped, and
// queries yielding seedMinTracks tracks or fewer are discarded.
func (e *Engine) SeedSystemCollections(ctx context.Context, cat Searcher) error {
	for _, seed := range catalog.SeedQueries() {
		e.mu.Lock()
		_, exists := e.collections[seed.ID]
		e.mu.Unlock()
		if exists {
			continue
		}

		tracks, err := cat.Search(ctx, seed.Query, 50)
		if err != nil {
			return err
		}
		if len(tracks) <= seedMinTracks {
			e.log.Debug("seed query too thin, skipped",
				zap.String("query", seed.Query), zap.Int("tracks", len(tracks)))
			continue
		}

		col := collection.NewSystem(seed.ID, seed.Name, seed.Description, tracks)
		e.mu.Lock()
		e.collections[col.ID] = col
		e.order = append(e.order, col.ID)
		e.mu.Unlock()
	}

	e.emit(Change{Kind: CollectionsChanged})
	return nil
}
