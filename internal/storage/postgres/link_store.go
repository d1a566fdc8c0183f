package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

// LinkStore persists the game_genres and game_platforms tables.
type LinkStore struct {
	db DB
}

// NewLinkStore constructs a LinkStore over db.
func NewLinkStore(db DB) (*LinkStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &LinkStore{db: db}, nil
}

func linkTable(kind catalog.LinkKind) (string, string, error) {
	table := string(kind)
	if !kind.Valid() || !validTableName.MatchString(table) {
		return "", "", fmt.Errorf("link kind %q: %w", kind, catalog.ErrNotFound)
	}
	return table, kind.Column(), nil
}

// ListLinks returns links ordered by game then entity.
func (s *LinkStore) ListLinks(ctx context.Context, kind catalog.LinkKind, gameID int64) ([]catalog.GameLink, error) {
	table, column, err := linkTable(kind)
	if err != nil {
		return nil, err
	}
	var rows pgx.Rows
	if gameID != 0 {
		rows, err = s.db.Query(ctx,
			fmt.Sprintf(`SELECT game_id, %[1]s FROM %[2]s WHERE game_id = $1 ORDER BY game_id, %[1]s`, column, table),
			gameID)
	} else {
		rows, err = s.db.Query(ctx, fmt.Sprintf(`SELECT game_id, %[1]s FROM %[2]s ORDER BY game_id, %[1]s`, column, table))
	}
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	out := []catalog.GameLink{}
	for rows.Next() {
		var link catalog.GameLink
		if err := rows.Scan(&link.GameID, &link.EntityID); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, link)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return out, nil
}

// CreateLink inserts a link. A repeat yields catalog.ErrConflict and a
// missing game or entity yields catalog.ErrNotFound.
func (s *LinkStore) CreateLink(ctx context.Context, kind catalog.LinkKind, link catalog.GameLink) error {
	table, column, err := linkTable(kind)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(ctx,
		fmt.Sprintf(`INSERT INTO %s (game_id, %s) VALUES ($1, $2)`, table, column),
		link.GameID, link.EntityID)
	switch {
	case isUniqueViolation(err):
		return fmt.Errorf("%s %d/%d: %w", table, link.GameID, link.EntityID, catalog.ErrConflict)
	case isForeignKeyViolation(err):
		return fmt.Errorf("%s %d/%d: %w", table, link.GameID, link.EntityID, catalog.ErrNotFound)
	case err != nil:
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

// DeleteLink removes one link.
func (s *LinkStore) DeleteLink(ctx context.Context, kind catalog.LinkKind, link catalog.GameLink) error {
	table, column, err := linkTable(kind)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx,
		fmt.Sprintf(`DELETE FROM %s WHERE game_id = $1 AND %s = $2`, table, column),
		link.GameID, link.EntityID)
	if err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d/%d: %w", table, link.GameID, link.EntityID, catalog.ErrNotFound)
	}
	return nil
}

// DeleteAllLinks empties one association table.
func (s *LinkStore) DeleteAllLinks(ctx context.Context, kind catalog.LinkKind) error {
	table, _, err := linkTable(kind)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
		return fmt.Errorf("delete %s: %w", table, err)
	}
	return nil
}
