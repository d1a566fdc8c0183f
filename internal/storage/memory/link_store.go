package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

type entityGetter interface {
	GetEntity(ctx context.Context, kind catalog.EntityKind, id int64) (catalog.NamedEntity, error)
}

// LinkStore keeps game to genre and game to platform links in memory. Links
// whose game or entity has been deleted are dropped when read.
type LinkStore struct {
	games    gameGetter
	entities entityGetter
	mu       sync.Mutex
	tables   map[catalog.LinkKind]map[catalog.GameLink]struct{}
}

// NewLinkStore constructs an empty LinkStore.
func NewLinkStore(games gameGetter, entities entityGetter) *LinkStore {
	tables := make(map[catalog.LinkKind]map[catalog.GameLink]struct{}, len(catalog.LinkKinds))
	for _, kind := range catalog.LinkKinds {
		tables[kind] = make(map[catalog.GameLink]struct{})
	}
	return &LinkStore{games: games, entities: entities, tables: tables}
}

func (s *LinkStore) table(kind catalog.LinkKind) (map[catalog.GameLink]struct{}, error) {
	t, ok := s.tables[kind]
	if !ok {
		return nil, fmt.Errorf("link kind %q: %w", kind, catalog.ErrNotFound)
	}
	return t, nil
}

// resolve reports whether both ends of link exist.
func (s *LinkStore) resolve(ctx context.Context, kind catalog.LinkKind, link catalog.GameLink) (bool, error) {
	ok, err := gameExists(ctx, s.games, link.GameID)
	if err != nil || !ok {
		return false, err
	}
	_, err = s.entities.GetEntity(ctx, kind.Target(), link.EntityID)
	if errors.Is(err, catalog.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ListLinks returns links ordered by game then entity.
func (s *LinkStore) ListLinks(ctx context.Context, kind catalog.LinkKind, gameID int64) ([]catalog.GameLink, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(kind)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.GameLink, 0, len(t))
	for link := range t {
		if gameID != 0 && link.GameID != gameID {
			continue
		}
		live, err := s.resolve(ctx, kind, link)
		if err != nil {
			return nil, err
		}
		if !live {
			delete(t, link)
			continue
		}
		out = append(out, link)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].GameID != out[j].GameID {
			return out[i].GameID < out[j].GameID
		}
		return out[i].EntityID < out[j].EntityID
	})
	return out, nil
}

// CreateLink adds a link between existing rows. Repeating a link is a conflict.
func (s *LinkStore) CreateLink(ctx context.Context, kind catalog.LinkKind, link catalog.GameLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(kind)
	if err != nil {
		return err
	}
	live, err := s.resolve(ctx, kind, link)
	if err != nil {
		return err
	}
	if !live {
		return fmt.Errorf("%s %d/%d: %w", kind, link.GameID, link.EntityID, catalog.ErrNotFound)
	}
	if _, dup := t[link]; dup {
		return fmt.Errorf("%s %d/%d: %w", kind, link.GameID, link.EntityID, catalog.ErrConflict)
	}
	t[link] = struct{}{}
	return nil
}

// DeleteLink removes one link.
func (s *LinkStore) DeleteLink(_ context.Context, kind catalog.LinkKind, link catalog.GameLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(kind)
	if err != nil {
		return err
	}
	if _, ok := t[link]; !ok {
		return fmt.Errorf("%s %d/%d: %w", kind, link.GameID, link.EntityID, catalog.ErrNotFound)
	}
	delete(t, link)
	return nil
}

// DeleteAllLinks clears one association table.
func (s *LinkStore) DeleteAllLinks(_ context.Context, kind catalog.LinkKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.table(kind); err != nil {
		return err
	}
	s.tables[kind] = make(map[catalog.GameLink]struct{})
	return nil
}
