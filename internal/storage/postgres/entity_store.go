package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// EntityStore persists publishers, developers, genres and platforms. Each
// kind maps to a table of the same name.
type EntityStore struct {
	db DB
}

// NewEntityStore constructs an EntityStore over db.
func NewEntityStore(db DB) (*EntityStore, error) {
	if db == nil {
		return nil, fmt.Errorf("db is required")
	}
	return &EntityStore{db: db}, nil
}

func tableFor(kind catalog.EntityKind) (string, string, error) {
	table := string(kind)
	if !kind.Valid() || !validTableName.MatchString(table) {
		return "", "", fmt.Errorf("entity kind %q: %w", kind, catalog.ErrNotFound)
	}
	website := "NULL::text"
	if kind.HasWebsite() {
		website = "website"
	}
	return table, website, nil
}

// ListEntities returns every row of kind ordered by id.
func (s *EntityStore) ListEntities(ctx context.Context, kind catalog.EntityKind) ([]catalog.NamedEntity, error) {
	table, website, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(ctx, fmt.Sprintf(`SELECT id, name, %s FROM %s ORDER BY id`, website, table))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	defer rows.Close()

	out := []catalog.NamedEntity{}
	for rows.Next() {
		var e catalog.NamedEntity
		if err := rows.Scan(&e.ID, &e.Name, &e.Website); err != nil {
			return nil, fmt.Errorf("scan %s: %w", table, err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", table, err)
	}
	return out, nil
}

// GetEntity fetches one row.
func (s *EntityStore) GetEntity(ctx context.Context, kind catalog.EntityKind, id int64) (catalog.NamedEntity, error) {
	table, website, err := tableFor(kind)
	if err != nil {
		return catalog.NamedEntity{}, err
	}
	var e catalog.NamedEntity
	err = s.db.QueryRow(ctx, fmt.Sprintf(`SELECT id, name, %s FROM %s WHERE id = $1`, website, table), id).
		Scan(&e.ID, &e.Name, &e.Website)
	if errors.Is(err, pgx.ErrNoRows) {
		return catalog.NamedEntity{}, fmt.Errorf("%s %d: %w", table, id, catalog.ErrNotFound)
	}
	if err != nil {
		return catalog.NamedEntity{}, fmt.Errorf("get %s %d: %w", table, id, err)
	}
	return e, nil
}

// CreateEntity inserts a row; a duplicate name yields catalog.ErrConflict.
func (s *EntityStore) CreateEntity(
	ctx context.Context,
	kind catalog.EntityKind,
	entity catalog.NamedEntity,
) (catalog.NamedEntity, error) {
	table, _, err := tableFor(kind)
	if err != nil {
		return catalog.NamedEntity{}, err
	}
	var row pgx.Row
	if kind.HasWebsite() {
		row = s.db.QueryRow(ctx,
			fmt.Sprintf(`INSERT INTO %s (name, website) VALUES ($1, $2) RETURNING id`, table),
			entity.Name, entity.Website)
	} else {
		entity.Website = nil
		row = s.db.QueryRow(ctx, fmt.Sprintf(`INSERT INTO %s (name) VALUES ($1) RETURNING id`, table), entity.Name)
	}
	err = row.Scan(&entity.ID)
	if isUniqueViolation(err) {
		return catalog.NamedEntity{}, fmt.Errorf("%s name %q: %w", table, entity.Name, catalog.ErrConflict)
	}
	if err != nil {
		return catalog.NamedEntity{}, fmt.Errorf("insert %s: %w", table, err)
	}
	return entity, nil
}

// UpdateEntity replaces name (and website where the kind has one).
func (s *EntityStore) UpdateEntity(
	ctx context.Context,
	kind catalog.EntityKind,
	id int64,
	entity catalog.NamedEntity,
) (catalog.NamedEntity, error) {
	table, _, err := tableFor(kind)
	if err != nil {
		return catalog.NamedEntity{}, err
	}
	var (
		query string
		args  []any
	)
	if kind.HasWebsite() {
		query = fmt.Sprintf(`UPDATE %s SET name = $2, website = $3 WHERE id = $1`, table)
		args = []any{id, entity.Name, entity.Website}
	} else {
		entity.Website = nil
		query = fmt.Sprintf(`UPDATE %s SET name = $2 WHERE id = $1`, table)
		args = []any{id, entity.Name}
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if isUniqueViolation(err) {
		return catalog.NamedEntity{}, fmt.Errorf("%s name %q: %w", table, entity.Name, catalog.ErrConflict)
	}
	if err != nil {
		return catalog.NamedEntity{}, fmt.Errorf("update %s %d: %w", table, id, err)
	}
	if tag.RowsAffected() == 0 {
		return catalog.NamedEntity{}, fmt.Errorf("%s %d: %w", table, id, catalog.ErrNotFound)
	}
	entity.ID = id
	return entity, nil
}

// DeleteEntity removes a row.
func (s *EntityStore) DeleteEntity(ctx context.Context, kind catalog.EntityKind, id int64) error {
	table, _, err := tableFor(kind)
	if err != nil {
		return err
	}
	tag, err := s.db.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, table), id)
	if err != nil {
		return fmt.Errorf("delete %s %d: %w", table, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%s %d: %w", table, id, catalog.ErrNotFound)
	}
	return nil
}
