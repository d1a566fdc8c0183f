package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

const offerColumns = `id, game_id, original_price_cents, discounted_price_cents, currency, starts_at, ends_at, scraped_at`

// PriceOfferStore persists price offers in the price_offers table.
type PriceOfferStore struct {
	db DB
}

// NewPriceOfferStore constructs a PriceOfferStore over db.
func NewPriceOfferStore(db DB) (*PriceOfferStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &PriceOfferStore{db: db}, nil
}

func scanOffer(row pgx.Row) (catalog.PriceOffer, error) {
	var o catalog.PriceOffer
	err := row.Scan(
		&o.ID, &o.GameID, &o.OriginalPriceCents, &o.DiscountedPriceCents,
		&o.Currency, &o.StartsAt, &o.EndsAt, &o.ScrapedAt,
	)
	return o, err
}

// ListPriceOffers returns offers ordered by id, optionally for one game.
func (s *PriceOfferStore) ListPriceOffers(ctx context.Context, gameID int64) ([]catalog.PriceOffer, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if gameID != 0 {
		rows, err = s.db.Query(ctx,
			`SELECT `+offerColumns+` FROM price_offers WHERE game_id = $1 ORDER BY id`, gameID)
	} else {
		rows, err = s.db.Query(ctx, `SELECT `+offerColumns+` FROM price_offers ORDER BY id`)
	}
	if err != nil {
		return nil, fmt.Errorf("list price offers: %w", err)
	}
	defer rows.Close()

	out := []catalog.PriceOffer{}
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan price offer: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list price offers: %w", err)
	}
	return out, nil
}

// GetPriceOffer fetches one offer.
func (s *PriceOfferStore) GetPriceOffer(ctx context.Context, id int64) (catalog.PriceOffer, error) {
	o, err := scanOffer(s.db.QueryRow(ctx, `SELECT `+offerColumns+` FROM price_offers WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.PriceOffer{}, fmt.Errorf("price offer %d: %w", id, catalog.ErrNotFound)
	}
	if err != nil {
		return catalog.PriceOffer{}, fmt.Errorf("get price offer %d: %w", id, err)
	}
	return o, nil
}

// CreatePriceOffer inserts an offer; an unknown game yields catalog.ErrNotFound.
func (s *PriceOfferStore) CreatePriceOffer(ctx context.Context, offer catalog.PriceOffer) (catalog.PriceOffer, error) {
	if offer.Currency == "" {
		offer.Currency = catalog.DefaultCurrency
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO price_offers (game_id, original_price_cents, discounted_price_cents, currency, starts_at, ends_at, scraped_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING id`,
		offer.GameID, offer.OriginalPriceCents, offer.DiscountedPriceCents,
		offer.Currency, offer.StartsAt, offer.EndsAt, offer.ScrapedAt,
	).Scan(&offer.ID)
	if isForeignKeyViolation(err) {
		return catalog.PriceOffer{}, fmt.Errorf("game %d: %w", offer.GameID, catalog.ErrNotFound)
	}
	if err != nil {
		return catalog.PriceOffer{}, fmt.Errorf("insert price offer: %w", err)
	}
	return offer, nil
}

// UpdatePriceOffer replaces the price fields of an offer. The game id is kept.
func (s *PriceOfferStore) UpdatePriceOffer(
	ctx context.Context,
	id int64,
	offer catalog.PriceOffer,
) (catalog.PriceOffer, error) {
	if offer.Currency == "" {
		offer.Currency = catalog.DefaultCurrency
	}
	updated, err := scanOffer(s.db.QueryRow(ctx,
		`UPDATE price_offers SET original_price_cents = $2, discounted_price_cents = $3, currency = $4,
		 starts_at = $5, ends_at = $6, scraped_at = $7 WHERE id = $1 RETURNING `+offerColumns,
		id, offer.OriginalPriceCents, offer.DiscountedPriceCents,
		offer.Currency, offer.StartsAt, offer.EndsAt, offer.ScrapedAt,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.PriceOffer{}, fmt.Errorf("price offer %d: %w", id, catalog.ErrNotFound)
	}
	if err != nil {
		return catalog.PriceOffer{}, fmt.Errorf("update price offer %d: %w", id, err)
	}
	return updated, nil
}

// DeletePriceOffer removes one offer.
func (s *PriceOfferStore) DeletePriceOffer(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM price_offers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete price offer %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("price offer %d: %w", id, catalog.ErrNotFound)
	}
	return nil
}

// DeleteAllPriceOffers empties the table.
func (s *PriceOfferStore) DeleteAllPriceOffers(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM price_offers`); err != nil {
		return fmt.Errorf("delete price offers: %w", err)
	}
	return nil
}
