package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

type gameGetter interface {
	GetGame(ctx context.Context, id int64) (catalog.Game, error)
}

// PriceOfferStore keeps price offers in memory. Offers whose game has been
// deleted are dropped the next time they are read.
type PriceOfferStore struct {
	games  gameGetter
	mu     sync.Mutex
	offers map[int64]catalog.PriceOffer
	nextID int64
}

// NewPriceOfferStore constructs an empty PriceOfferStore checking game ids
// against games.
func NewPriceOfferStore(games gameGetter) *PriceOfferStore {
	return &PriceOfferStore{games: games, offers: make(map[int64]catalog.PriceOffer)}
}

// gameExists reports whether id names a live game.
func gameExists(ctx context.Context, games gameGetter, id int64) (bool, error) {
	_, err := games.GetGame(ctx, id)
	if errors.Is(err, catalog.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// prune drops o when its game is gone. Callers hold s.mu.
func (s *PriceOfferStore) prune(ctx context.Context, o catalog.PriceOffer) (bool, error) {
	ok, err := gameExists(ctx, s.games, o.GameID)
	if err != nil {
		return false, err
	}
	if !ok {
		delete(s.offers, o.ID)
	}
	return ok, nil
}

// ListPriceOffers returns offers ordered by ID, optionally for one game.
func (s *PriceOfferStore) ListPriceOffers(ctx context.Context, gameID int64) ([]catalog.PriceOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.PriceOffer, 0, len(s.offers))
	for _, o := range s.offers {
		if gameID != 0 && o.GameID != gameID {
			continue
		}
		live, err := s.prune(ctx, o)
		if err != nil {
			return nil, err
		}
		if live {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetPriceOffer fetches one offer.
func (s *PriceOfferStore) GetPriceOffer(ctx context.Context, id int64) (catalog.PriceOffer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.offers[id]
	if ok {
		live, err := s.prune(ctx, o)
		if err != nil {
			return catalog.PriceOffer{}, err
		}
		ok = live
	}
	if !ok {
		return catalog.PriceOffer{}, fmt.Errorf("price offer %d: %w", id, catalog.ErrNotFound)
	}
	return o, nil
}

// CreatePriceOffer inserts an offer for an existing game.
func (s *PriceOfferStore) CreatePriceOffer(ctx context.Context, offer catalog.PriceOffer) (catalog.PriceOffer, error) {
	ok, err := gameExists(ctx, s.games, offer.GameID)
	if err != nil {
		return catalog.PriceOffer{}, err
	}
	if !ok {
		return catalog.PriceOffer{}, fmt.Errorf("game %d: %w", offer.GameID, catalog.ErrNotFound)
	}
	if offer.Currency == "" {
		offer.Currency = catalog.DefaultCurrency
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	offer.ID = s.nextID
	s.offers[offer.ID] = offer
	return offer, nil
}

// UpdatePriceOffer replaces the price fields of an offer. The game id is kept.
func (s *PriceOfferStore) UpdatePriceOffer(
	ctx context.Context,
	id int64,
	offer catalog.PriceOffer,
) (catalog.PriceOffer, error) {
	current, err := s.GetPriceOffer(ctx, id)
	if err != nil {
		return catalog.PriceOffer{}, err
	}
	if offer.Currency == "" {
		offer.Currency = catalog.DefaultCurrency
	}
	offer.ID = id
	offer.GameID = current.GameID
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.offers[id]; !ok {
		return catalog.PriceOffer{}, fmt.Errorf("price offer %d: %w", id, catalog.ErrNotFound)
	}
	s.offers[id] = offer
	return offer, nil
}

// DeletePriceOffer removes one offer.
func (s *PriceOfferStore) DeletePriceOffer(ctx context.Context, id int64) error {
	if _, err := s.GetPriceOffer(ctx, id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.offers, id)
	return nil
}

// DeleteAllPriceOffers clears the store.
func (s *PriceOfferStore) DeleteAllPriceOffers(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offers = make(map[int64]catalog.PriceOffer)
	return nil
}
