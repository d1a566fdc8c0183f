package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

const gameColumns = `id, slug, title, description, release_date, publisher_id, developer_id`

// GameStore persists games in Postgres.
type GameStore struct {
	db DB
}

// NewGameStore constructs a GameStore over db.
func NewGameStore(db DB) (*GameStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &GameStore{db: db}, nil
}

// Begin opens a transaction-backed batch.
func (s *GameStore) Begin(ctx context.Context) (catalog.GameBatch, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return &gameBatch{tx: tx}, nil
}

// ListGames returns a page of games ordered by id.
func (s *GameStore) ListGames(ctx context.Context, limit, offset int) ([]catalog.Game, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+gameColumns+` FROM games ORDER BY id LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	defer rows.Close()

	games := []catalog.Game{}
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("scan game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list games: %w", err)
	}
	return games, nil
}

// GetGame fetches one game by id.
func (s *GameStore) GetGame(ctx context.Context, id int64) (catalog.Game, error) {
	return getGame(ctx, s.db, id, false)
}

// CreateGame inserts a game; a duplicate slug yields catalog.ErrConflict.
func (s *GameStore) CreateGame(ctx context.Context, game catalog.Game) (catalog.Game, error) {
	return insertGame(ctx, s.db, game)
}

// UpdateGame applies a partial update inside a transaction.
func (s *GameStore) UpdateGame(ctx context.Context, id int64, update catalog.GameUpdate) (catalog.Game, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return catalog.Game{}, fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	current, err := getGame(ctx, tx, id, true)
	if err != nil {
		return catalog.Game{}, err
	}
	next := update.Apply(current)
	if err := updateGame(ctx, tx, next); err != nil {
		return catalog.Game{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return catalog.Game{}, fmt.Errorf("commit update: %w", err)
	}
	return next, nil
}

// DeleteGame removes one game.
func (s *GameStore) DeleteGame(ctx context.Context, id int64) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM games WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete game %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("game %d: %w", id, catalog.ErrNotFound)
	}
	return nil
}

// DeleteAllGames removes every game.
func (s *GameStore) DeleteAllGames(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, `DELETE FROM games`); err != nil {
		return fmt.Errorf("delete games: %w", err)
	}
	return nil
}

type gameBatch struct {
	tx pgx.Tx
}

func (b *gameBatch) FindBySlug(ctx context.Context, slug string) (catalog.Game, bool, error) {
	row := b.tx.QueryRow(ctx, `SELECT `+gameColumns+` FROM games WHERE slug = $1 FOR UPDATE`, slug)
	g, err := scanGame(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Game{}, false, nil
	}
	if err != nil {
		return catalog.Game{}, false, fmt.Errorf("find game %q: %w", slug, err)
	}
	return g, true, nil
}

func (b *gameBatch) Create(ctx context.Context, game catalog.Game) (catalog.Game, error) {
	return insertGame(ctx, b.tx, game)
}

func (b *gameBatch) Update(ctx context.Context, game catalog.Game) error {
	return updateGame(ctx, b.tx, game)
}

func (b *gameBatch) Commit(ctx context.Context) error {
	if err := b.tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (b *gameBatch) Rollback(ctx context.Context) error {
	if err := b.tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("rollback tx: %w", err)
	}
	return nil
}

func getGame(ctx context.Context, q querier, id int64, forUpdate bool) (catalog.Game, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	g, err := scanGame(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.Game{}, fmt.Errorf("game %d: %w", id, catalog.ErrNotFound)
	}
	if err != nil {
		return catalog.Game{}, fmt.Errorf("get game %d: %w", id, err)
	}
	return g, nil
}

func insertGame(ctx context.Context, q querier, game catalog.Game) (catalog.Game, error) {
	err := q.QueryRow(ctx, `
INSERT INTO games (slug, title, description, release_date, publisher_id, developer_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id`,
		game.Slug,
		game.Title,
		game.Description,
		dateArg(game.ReleaseDate),
		game.PublisherID,
		game.DeveloperID,
	).Scan(&game.ID)
	if isUniqueViolation(err) {
		return catalog.Game{}, fmt.Errorf("game slug %q: %w", game.Slug, catalog.ErrConflict)
	}
	if err != nil {
		return catalog.Game{}, fmt.Errorf("insert game %q: %w", game.Slug, err)
	}
	return game, nil
}

func updateGame(ctx context.Context, q querier, game catalog.Game) error {
	tag, err := q.Exec(ctx, `
UPDATE games
SET title = $2, description = $3, release_date = $4, publisher_id = $5, developer_id = $6
WHERE id = $1`,
		game.ID,
		game.Title,
		game.Description,
		dateArg(game.ReleaseDate),
		game.PublisherID,
		game.DeveloperID,
	)
	if err != nil {
		return fmt.Errorf("update game %d: %w", game.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("game %d: %w", game.ID, catalog.ErrNotFound)
	}
	return nil
}

func scanGame(row pgx.Row) (catalog.Game, error) {
	var (
		g           catalog.Game
		releaseDate *time.Time
	)
	if err := row.Scan(&g.ID, &g.Slug, &g.Title, &g.Description, &releaseDate, &g.PublisherID, &g.DeveloperID); err != nil {
		return catalog.Game{}, err
	}
	if releaseDate != nil {
		d := catalog.DateFromTime(*releaseDate)
		g.ReleaseDate = &d
	}
	return g, nil
}

func dateArg(d *catalog.Date) *time.Time {
	if d == nil {
		return nil
	}
	t := d.Time
	return &t
}
