package catalog

import (
	"context"
	"io"
	"time"
)

// Fetcher fetches a URL and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (Page, error)
}

// RetryPolicy decides whether and when a failed fetch is attempted again.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
	MaxAttempts() int
}

// GameBatch is a unit of work over game records. Writes become visible to
// later lookups in the same batch and are persisted together on Commit.
type GameBatch interface {
	FindBySlug(ctx context.Context, slug string) (Game, bool, error)
	Create(ctx context.Context, game Game) (Game, error)
	Update(ctx context.Context, game Game) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// GameStore persists game records.
type GameStore interface {
	Begin(ctx context.Context) (GameBatch, error)
	ListGames(ctx context.Context, limit, offset int) ([]Game, error)
	GetGame(ctx context.Context, id int64) (Game, error)
	CreateGame(ctx context.Context, game Game) (Game, error)
	UpdateGame(ctx context.Context, id int64, update GameUpdate) (Game, error)
	DeleteGame(ctx context.Context, id int64) error
	DeleteAllGames(ctx context.Context) error
}

// EntityStore persists the passive lookup tables.
type EntityStore interface {
	ListEntities(ctx context.Context, kind EntityKind) ([]NamedEntity, error)
	GetEntity(ctx context.Context, kind EntityKind, id int64) (NamedEntity, error)
	CreateEntity(ctx context.Context, kind EntityKind, entity NamedEntity) (NamedEntity, error)
	UpdateEntity(ctx context.Context, kind EntityKind, id int64, entity NamedEntity) (NamedEntity, error)
	DeleteEntity(ctx context.Context, kind EntityKind, id int64) error
}

// PriceOfferStore persists price offers. A zero gameID lists every offer.
type PriceOfferStore interface {
	ListPriceOffers(ctx context.Context, gameID int64) ([]PriceOffer, error)
	GetPriceOffer(ctx context.Context, id int64) (PriceOffer, error)
	CreatePriceOffer(ctx context.Context, offer PriceOffer) (PriceOffer, error)
	UpdatePriceOffer(ctx context.Context, id int64, offer PriceOffer) (PriceOffer, error)
	DeletePriceOffer(ctx context.Context, id int64) error
	DeleteAllPriceOffers(ctx context.Context) error
}

// LinkStore persists game associations. A zero gameID lists every link.
type LinkStore interface {
	ListLinks(ctx context.Context, kind LinkKind, gameID int64) ([]GameLink, error)
	CreateLink(ctx context.Context, kind LinkKind, link GameLink) error
	DeleteLink(ctx context.Context, kind LinkKind, link GameLink) error
	DeleteAllLinks(ctx context.Context, kind LinkKind) error
}

// RunStore tracks pipeline run metadata.
type RunStore interface {
	CreateRun(ctx context.Context, run Run) error
	UpdateRunStatus(ctx context.Context, runID string, status RunStatus, result *PipelineResult, errText string) error
	GetRun(ctx context.Context, runID string) (Run, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, r io.Reader) (string, error)
}

// Publisher pushes run events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Queue provides enqueue/dequeue semantics for background runs.
type Queue interface {
	Enqueue(ctx context.Context, item QueueItem) error
	Dequeue(ctx context.Context) (QueueItem, error)
}

// Runner executes one scrape-and-upsert pass.
type Runner interface {
	Run(ctx context.Context) (PipelineResult, error)
}

// ArchiveNamer derives the blob path an archived page is stored under.
type ArchiveNamer interface {
	ObjectPath(day time.Time, body []byte) string
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
