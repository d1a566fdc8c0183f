package catalog

import "time"

// DefaultCurrency is stored when an offer names none.
const DefaultCurrency = "USD"

// PriceOffer is one observed price for a game. Prices are in minor units.
type PriceOffer struct {
	ID                   int64      `json:"id"`
	GameID               int64      `json:"game_id"`
	OriginalPriceCents   *int       `json:"original_price_cents"`
	DiscountedPriceCents *int       `json:"discounted_price_cents"`
	Currency             string     `json:"currency"`
	StartsAt             *time.Time `json:"starts_at"`
	EndsAt               *time.Time `json:"ends_at"`
	ScrapedAt            *time.Time `json:"scraped_at"`
}

// LinkKind names a game association table.
type LinkKind string

// Association tables exposed through the CRUD API.
const (
	LinkGenres    LinkKind = "game_genres"
	LinkPlatforms LinkKind = "game_platforms"
)

// LinkKinds lists every supported association table.
var LinkKinds = []LinkKind{LinkGenres, LinkPlatforms}

// Target is the lookup table a link points at.
func (k LinkKind) Target() EntityKind {
	switch k {
	case LinkGenres:
		return KindGenre
	case LinkPlatforms:
		return KindPlatform
	default:
		return ""
	}
}

// Column is the foreign key column naming the linked entity.
func (k LinkKind) Column() string {
	switch k {
	case LinkGenres:
		return "genre_id"
	case LinkPlatforms:
		return "platform_id"
	default:
		return ""
	}
}

// Valid reports whether k is a known kind.
func (k LinkKind) Valid() bool {
	return k.Target() != ""
}

// GameLink associates a game with a genre or platform.
type GameLink struct {
	GameID   int64
	EntityID int64
}
