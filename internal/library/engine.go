// Package library owns the user's synced data: the liked list and the
// collections. Mutations apply locally first and reconcile with the
// backend in the background; a failed like write rolls the local state
// back, while a failed collection write is logged and left standing.
package library

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lmartel/cadenza/internal/catalog"
	"github.com/lmartel/cadenza/internal/collection"
	"github.com/lmartel/cadenza/internal/identity"
	"github.com/lmartel/cadenza/internal/remote"
)

// ErrAuthRequired is returned when a mutation needs a signed-in user.
var ErrAuthRequired = identity.ErrNotAuthenticated

// ErrNotFound is returned for operations on an unknown collection.
var ErrNotFound = errors.New("collection not found")

// Store is the backend surface the engine writes through. *remote.Client
// implements it; tests substitute a fake.
type Store interface {
	LikedTracks(ctx context.Context, userID string) ([]catalog.Track, error)
	SaveLikedTracks(ctx context.Context, userID string, tracks []catalog.Track) error
	Playlists(ctx context.Context, userID string) ([]remote.PlaylistDoc, error)
	SavePlaylist(ctx context.Context, userID string, doc remote.PlaylistDoc) error
	DeletePlaylist(ctx context.Context, userID, playlistID string) error
	UpdateProfile(ctx context.Context, userID string, p remote.Profile) error
}

// ChangeKind classifies engine change events.
type ChangeKind int

const (
	LikedChanged ChangeKind = iota + 1
	CollectionsChanged
	MutationFailed
	AuthRequired
)

// Change notifies subscribers that engine state moved.
type Change struct {
	Kind ChangeKind
	Err  error
}

const likedKey = "liked"

// Engine holds the liked list and collections and reconciles local
// mutations with the backend.
type Engine struct {
	mu sync.Mutex

	store Store
	ids   *identity.Manager
	log   *zap.Logger

	liked       []catalog.Track
	collections map[string]*collection.Collection
	order       []string

	// pending tracks the latest write generation per key; a completing
	// write that is no longer latest has been superseded and must not
	// touch local state.
	pending map[string]uint64

	wg     sync.WaitGroup
	events chan Change
}

func NewEngine(store Store, ids *identity.Manager, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{
		store:       store,
		ids:         ids,
		log:         log,
		collections: make(map[string]*collection.Collection),
		pending:     make(map[string]uint64),
		events:      make(chan Change, 32),
	}
}

// Events returns the change feed. Sends are non-blocking; a slow consumer
// drops events.
func (e *Engine) Events() <-chan Change { return e.events }

// Wait blocks until all in-flight reconciliation writes settle.
func (e *Engine) Wait() { e.wg.Wait() }

// IsLiked reports whether the track is in the liked list.
func (e *Engine) IsLiked(trackID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.likedIndexLocked(trackID) >= 0
}

// Liked returns a copy of the liked list, newest first.
func (e *Engine) Liked() []catalog.Track {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]catalog.Track(nil), e.liked...)
}

// ToggleLike flips the track's liked state locally and writes the full
// list through. If the write fails while still being the latest like
// mutation, the list rolls back to its pre-mutation content.
func (e *Engine) ToggleLike(t catalog.Track) error {
	userID, err := e.ids.UserID()
	if err != nil {
		return ErrAuthRequired
	}

	e.mu.Lock()
	before := append([]catalog.Track(nil), e.liked...)
	if i := e.likedIndexLocked(t.ID); i >= 0 {
		e.liked = append(e.liked[:i], e.liked[i+1:]...)
	} else {
		e.liked = append([]catalog.Track{t}, e.liked...)
	}
	after := append([]catalog.Track(nil), e.liked...)
	gen := e.bumpLocked(likedKey)
	e.mu.Unlock()

	e.emit(Change{Kind: LikedChanged})

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		err := e.store.SaveLikedTracks(context.Background(), userID, after)
		if err == nil {
			return
		}
		e.handleAuthErr(err)

		e.mu.Lock()
		stale := e.pending[likedKey] != gen
		if !stale {
			e.liked = before
		}
		e.mu.Unlock()
		if stale {
			// A newer like mutation owns the list now.
			return
		}
		e.log.Warn("liked write failed, rolled back", zap.Error(err))
		e.emit(Change{Kind: LikedChanged})
		e.emit(Change{Kind: MutationFailed, Err: fmt.Errorf("save liked: %w", err)})
	}()
	return nil
}

// Collections returns the collections in insertion order.
func (e *Engine) Collections() []*collection.Collection {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*collection.Collection, 0, len(e.order))
	for _, id := range e.order {
		if c, ok := e.collections[id]; ok {
			out = append(out, c.Clone())
		}
	}
	return out
}

// Collection returns one collection by ID.
func (e *Engine) Collection(id string) (*collection.Collection, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	c, ok := e.collections[id]
	if !ok {
		return nil, false
	}
	return c.Clone(), true
}

// CreateCollection makes a new user collection and writes it through.
func (e *Engine) CreateCollection(name string, tracks []catalog.Track) (*collection.Collection, error) {
	userID, err := e.ids.UserID()
	if err != nil {
		return nil, ErrAuthRequired
	}
	col := collection.New(uuid.NewString(), name, tracks)
	if err := col.Rename(name); err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.collections[col.ID] = col
	e.order = append(e.order, col.ID)
	e.mu.Unlock()

	e.emit(Change{Kind: CollectionsChanged})
	e.saveCollection(userID, col.Clone())
	return col.Clone(), nil
}

// DeleteCollection removes a user collection. System collections refuse.
func (e *Engine) DeleteCollection(id string) error {
	userID, err := e.ids.UserID()
	if err != nil {
		return ErrAuthRequired
	}

	e.mu.Lock()
	col, ok := e.collections[id]
	if !ok {
		e.mu.Unlock()
		return ErrNotFound
	}
	if col.IsSystem {
		e.mu.Unlock()
		return collection.ErrSystem
	}
	delete(e.collections, id)
	for i, oid := range e.order {
		if oid == id {
			e.order = append(e.order[:i], e.order[i+1:]...)
			break
		}
	}
	gen := e.bumpLocked("playlist:" + id)
	e.mu.Unlock()

	e.emit(Change{Kind: CollectionsChanged})

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.store.DeletePlaylist(context.Background(), userID, id); err != nil {
			e.handleAuthErr(err)
			e.mu.Lock()
			stale := e.pending["playlist:"+id] != gen
			e.mu.Unlock()
			if !stale {
				// Local delete stands; the feed will resurrect the
				// collection if the backend still has it.
				e.log.Warn("playlist delete failed",
					zap.String("playlist", id), zap.Error(err))
			}
		}
	}()
	return nil
}

// AddToCollection appends the track and writes the collection through.
// Duplicates are a silent no-op.
func (e *Engine) AddToCollection(colID string, t catalog.Track) error {
	return e.mutateCollection(colID, func(c *collection.Collection) (bool, error) {
		return c.Add(t)
	})
}

// RemoveFromCollection drops the track and writes the collection through.
func (e *Engine) RemoveFromCollection(colID, trackID string) error {
	return e.mutateCollection(colID, func(c *collection.Collection) (bool, error) {
		return c.Remove(trackID)
	})
}

// RenameCollection renames a user collection and writes it through.
func (e *Engine) RenameCollection(colID, name string) error {
	return e.mutateCollection(colID, func(c *collection.Collection) (bool, error) {
		if err := c.Rename(name); err != nil {
			return false, err
		}
		return true, nil
	})
}

func (e *Engine) mutateCollection(colID string, mutate func(*collection.Collection) (bool, error)) error {
	userID, err := e.ids.UserID()
	if err != nil {
		return ErrAuthRequired
	}

	e.mu.Lock()
	col, ok := e.collections[colID]
	if !ok {
		e.mu.Unlock()
		return ErrNotFound
	}
	changed, err := mutate(col)
	if err != nil || !changed {
		e.mu.Unlock()
		return err
	}
	snapshot := col.Clone()
	e.mu.Unlock()

	e.emit(Change{Kind: CollectionsChanged})
	e.saveCollection(userID, snapshot)
	return nil
}

// saveCollection writes one collection through in the background. A
// failure is logged only: the local state keeps the user's intent and the
// next successful write or remote event reconverges.
func (e *Engine) saveCollection(userID string, col *collection.Collection) {
	key := "playlist:" + col.ID
	e.mu.Lock()
	gen := e.bumpLocked(key)
	e.mu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		err := e.store.SavePlaylist(context.Background(), userID, docFromCollection(col))
		if err == nil {
			return
		}
		e.handleAuthErr(err)
		e.mu.Lock()
		stale := e.pending[key] != gen
		e.mu.Unlock()
		if !stale {
			e.log.Warn("playlist write failed",
				zap.String("playlist", col.ID), zap.Error(err))
		}
	}()
}

// UpdateProfile applies the edit to the local session immediately and
// writes it through. Like collection writes, a failure is logged only.
func (e *Engine) UpdateProfile(p remote.Profile) error {
	userID, err := e.ids.UserID()
	if err != nil {
		return ErrAuthRequired
	}

	e.ids.Update(func(s *identity.Session) {
		s.DisplayName = p.DisplayName
		if p.PhotoURL != "" {
			s.AvatarURL = p.PhotoURL
		}
	})

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if err := e.store.UpdateProfile(context.Background(), userID, p); err != nil {
			e.handleAuthErr(err)
			e.log.Warn("profile write failed", zap.Error(err))
		}
	}()
	return nil
}

// LoadRemote replaces local state with the user's remote data.
func (e *Engine) LoadRemote(ctx context.Context) error {
	userID, err := e.ids.UserID()
	if err != nil {
		return ErrAuthRequired
	}

	liked, err := e.store.LikedTracks(ctx, userID)
	if err != nil {
		e.handleAuthErr(err)
		return fmt.Errorf("load liked: %w", err)
	}
	docs, err := e.store.Playlists(ctx, userID)
	if err != nil {
		e.handleAuthErr(err)
		return fmt.Errorf("load playlists: %w", err)
	}

	e.mu.Lock()
	e.liked = liked
	e.replaceCollectionsLocked(docs)
	e.mu.Unlock()

	e.emit(Change{Kind: LikedChanged})
	e.emit(Change{Kind: CollectionsChanged})
	return nil
}

// ApplyRemoteEvent merges a push event by wholesale replacement of the
// affected set. Remote is the source of truth once an event arrives.
func (e *Engine) ApplyRemoteEvent(ev remote.Event) {
	switch ev.Kind {
	case remote.EventLiked:
		e.mu.Lock()
		e.liked = append([]catalog.Track(nil), ev.Liked...)
		// The push owns the list now; an in-flight like write that fails
		// after this point is stale and must not roll back.
		e.bumpLocked(likedKey)
		e.mu.Unlock()
		e.emit(Change{Kind: LikedChanged})
	case remote.EventPlaylists:
		e.mu.Lock()
		e.replaceCollectionsLocked(ev.Playlists)
		e.mu.Unlock()
		e.emit(Change{Kind: CollectionsChanged})
	default:
		e.log.Debug("unknown remote event", zap.String("kind", ev.Kind))
	}
}

// Reset drops the local user data on sign-out. System collections are
// not user data and survive.
func (e *Engine) Reset() {
	e.mu.Lock()
	e.liked = nil
	e.replaceCollectionsLocked(nil)
	e.pending = make(map[string]uint64)
	e.mu.Unlock()

	e.emit(Change{Kind: LikedChanged})
	e.emit(Change{Kind: CollectionsChanged})
}

// replaceCollectionsLocked swaps the user collections for the given docs.
// System collections are never persisted remotely, so the ones already
// held are carried over.
func (e *Engine) replaceCollectionsLocked(docs []remote.PlaylistDoc) {
	next := make(map[string]*collection.Collection, len(docs))
	var order []string
	for _, id := range e.order {
		if c, ok := e.collections[id]; ok && c.IsSystem {
			next[id] = c
			order = append(order, id)
		}
	}
	for _, doc := range docs {
		col := collectionFromDoc(doc)
		if _, ok := next[col.ID]; ok {
			continue
		}
		next[col.ID] = col
		order = append(order, col.ID)
	}
	e.collections = next
	e.order = order
}

func (e *Engine) likedIndexLocked(trackID string) int {
	for i, t := range e.liked {
		if t.ID == trackID {
			return i
		}
	}
	return -1
}

func (e *Engine) bumpLocked(key string) uint64 {
	e.pending[key]++
	return e.pending[key]
}

func (e *Engine) handleAuthErr(err error) {
	if !errors.Is(err, remote.ErrUnauthorized) {
		return
	}
	e.ids.Clear()
	e.emit(Change{Kind: AuthRequired, Err: err})
}

func (e *Engine) emit(c Change) {
	select {
	case e.events <- c:
	default:
	}
}
