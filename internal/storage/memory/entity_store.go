package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

var errBatchClosed = errors.New("batch already closed")

// EntityStore keeps publishers, developers, genres and platforms in memory.
type EntityStore struct {
	mu     sync.RWMutex
	tables map[catalog.EntityKind]map[int64]catalog.NamedEntity
	nextID int64
}

// NewEntityStore constructs an empty EntityStore.
func NewEntityStore() *EntityStore {
	tables := make(map[catalog.EntityKind]map[int64]catalog.NamedEntity, len(catalog.EntityKinds))
	for _, kind := range catalog.EntityKinds {
		tables[kind] = make(map[int64]catalog.NamedEntity)
	}
	return &EntityStore{tables: tables}
}

func (s *EntityStore) table(kind catalog.EntityKind) (map[int64]catalog.NamedEntity, error) {
	t, ok := s.tables[kind]
	if !ok {
		return nil, fmt.Errorf("entity kind %q: %w", kind, catalog.ErrNotFound)
	}
	return t, nil
}

// ListEntities returns all rows of kind ordered by ID.
func (s *EntityStore) ListEntities(_ context.Context, kind catalog.EntityKind) ([]catalog.NamedEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(kind)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.NamedEntity, 0, len(t))
	for _, e := range t {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetEntity fetches one row.
func (s *EntityStore) GetEntity(_ context.Context, kind catalog.EntityKind, id int64) (catalog.NamedEntity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, err := s.table(kind)
	if err != nil {
		return catalog.NamedEntity{}, err
	}
	e, ok := t[id]
	if !ok {
		return catalog.NamedEntity{}, fmt.Errorf("%s %d: %w", kind, id, catalog.ErrNotFound)
	}
	return e, nil
}

// CreateEntity inserts a row; names are unique per kind.
func (s *EntityStore) CreateEntity(_ context.Context, kind catalog.EntityKind, entity catalog.NamedEntity) (catalog.NamedEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(kind)
	if err != nil {
		return catalog.NamedEntity{}, err
	}
	if nameTaken(t, entity.Name, 0) {
		return catalog.NamedEntity{}, fmt.Errorf("%s name %q: %w", kind, entity.Name, catalog.ErrConflict)
	}
	if !kind.HasWebsite() {
		entity.Website = nil
	}
	s.nextID++
	entity.ID = s.nextID
	t[entity.ID] = entity
	return entity, nil
}

// UpdateEntity replaces name and website of an existing row.
func (s *EntityStore) UpdateEntity(
	_ context.Context,
	kind catalog.EntityKind,
	id int64,
	entity catalog.NamedEntity,
) (catalog.NamedEntity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(kind)
	if err != nil {
		return catalog.NamedEntity{}, err
	}
	if _, ok := t[id]; !ok {
		return catalog.NamedEntity{}, fmt.Errorf("%s %d: %w", kind, id, catalog.ErrNotFound)
	}
	if nameTaken(t, entity.Name, id) {
		return catalog.NamedEntity{}, fmt.Errorf("%s name %q: %w", kind, entity.Name, catalog.ErrConflict)
	}
	if !kind.HasWebsite() {
		entity.Website = nil
	}
	entity.ID = id
	t[id] = entity
	return entity, nil
}

// DeleteEntity removes a row.
func (s *EntityStore) DeleteEntity(_ context.Context, kind catalog.EntityKind, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, err := s.table(kind)
	if err != nil {
		return err
	}
	if _, ok := t[id]; !ok {
		return fmt.Errorf("%s %d: %w", kind, id, catalog.ErrNotFound)
	}
	delete(t, id)
	return nil
}

func nameTaken(t map[int64]catalog.NamedEntity, name string, except int64) bool {
	for id, e := range t {
		if id != except && e.Name == name {
			return true
		}
	}
	return false
}
