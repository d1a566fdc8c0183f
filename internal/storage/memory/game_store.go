package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

// GameStore keeps games in memory. Batches stage their writes and apply them
// under the store lock on Commit.
type GameStore struct {
	mu     sync.RWMutex
	games  map[int64]catalog.Game
	bySlug map[string]int64
	nextID int64
}

// NewGameStore constructs an empty GameStore.
func NewGameStore() *GameStore {
	return &GameStore{
		games:  make(map[int64]catalog.Game),
		bySlug: make(map[string]int64),
	}
}

func (s *GameStore) allocateID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	return s.nextID
}

// Begin opens a batch.
func (s *GameStore) Begin(_ context.Context) (catalog.GameBatch, error) {
	return &gameBatch{
		store:  s,
		staged: make(map[string]catalog.Game),
	}, nil
}

// ListGames returns games ordered by ID.
func (s *GameStore) ListGames(_ context.Context, limit, offset int) ([]catalog.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	all := make([]catalog.Game, 0, len(s.games))
	for _, g := range s.games {
		all = append(all, g)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })
	if offset >= len(all) {
		return []catalog.Game{}, nil
	}
	all = all[offset:]
	if limit > 0 && limit < len(all) {
		all = all[:limit]
	}
	return all, nil
}

// GetGame fetches one game.
func (s *GameStore) GetGame(_ context.Context, id int64) (catalog.Game, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.games[id]
	if !ok {
		return catalog.Game{}, fmt.Errorf("game %d: %w", id, catalog.ErrNotFound)
	}
	return g, nil
}

// CreateGame inserts a game; a duplicate slug yields ErrConflict.
func (s *GameStore) CreateGame(_ context.Context, game catalog.Game) (catalog.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.bySlug[game.Slug]; exists {
		return catalog.Game{}, fmt.Errorf("game slug %q: %w", game.Slug, catalog.ErrConflict)
	}
	s.nextID++
	game.ID = s.nextID
	s.games[game.ID] = game
	s.bySlug[game.Slug] = game.ID
	return game, nil
}

// UpdateGame applies a partial update.
func (s *GameStore) UpdateGame(_ context.Context, id int64, update catalog.GameUpdate) (catalog.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return catalog.Game{}, fmt.Errorf("game %d: %w", id, catalog.ErrNotFound)
	}
	g = update.Apply(g)
	s.games[id] = g
	return g, nil
}

// DeleteGame removes one game.
func (s *GameStore) DeleteGame(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.games[id]
	if !ok {
		return fmt.Errorf("game %d: %w", id, catalog.ErrNotFound)
	}
	delete(s.games, id)
	delete(s.bySlug, g.Slug)
	return nil
}

// DeleteAllGames empties the store.
func (s *GameStore) DeleteAllGames(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games = make(map[int64]catalog.Game)
	s.bySlug = make(map[string]int64)
	return nil
}

func (s *GameStore) findBySlug(slug string) (catalog.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.bySlug[slug]
	if !ok {
		return catalog.Game{}, false
	}
	return s.games[id], true
}

type gameBatch struct {
	store  *GameStore
	staged map[string]catalog.Game
	order  []string
	done   bool
}

func (b *gameBatch) FindBySlug(_ context.Context, slug string) (catalog.Game, bool, error) {
	if b.done {
		return catalog.Game{}, false, errBatchClosed
	}
	if g, ok := b.staged[slug]; ok {
		return g, true, nil
	}
	g, ok := b.store.findBySlug(slug)
	return g, ok, nil
}

func (b *gameBatch) Create(_ context.Context, game catalog.Game) (catalog.Game, error) {
	if b.done {
		return catalog.Game{}, errBatchClosed
	}
	if _, ok := b.staged[game.Slug]; ok {
		return catalog.Game{}, fmt.Errorf("game slug %q: %w", game.Slug, catalog.ErrConflict)
	}
	if _, ok := b.store.findBySlug(game.Slug); ok {
		return catalog.Game{}, fmt.Errorf("game slug %q: %w", game.Slug, catalog.ErrConflict)
	}
	game.ID = b.store.allocateID()
	b.stage(game)
	return game, nil
}

func (b *gameBatch) Update(_ context.Context, game catalog.Game) error {
	if b.done {
		return errBatchClosed
	}
	if game.ID == 0 {
		return fmt.Errorf("update game %q without id: %w", game.Slug, catalog.ErrNotFound)
	}
	b.stage(game)
	return nil
}

func (b *gameBatch) stage(game catalog.Game) {
	if _, ok := b.staged[game.Slug]; !ok {
		b.order = append(b.order, game.Slug)
	}
	b.staged[game.Slug] = game
}

func (b *gameBatch) Commit(_ context.Context) error {
	if b.done {
		return errBatchClosed
	}
	b.done = true
	s := b.store
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, slug := range b.order {
		g := b.staged[slug]
		if id, ok := s.bySlug[slug]; ok && id != g.ID {
			return fmt.Errorf("game slug %q: %w", slug, catalog.ErrConflict)
		}
	}
	for _, slug := range b.order {
		g := b.staged[slug]
		s.games[g.ID] = g
		s.bySlug[slug] = g.ID
	}
	return nil
}

func (b *gameBatch) Rollback(_ context.Context) error {
	b.done = true
	b.staged = nil
	b.order = nil
	return nil
}
