package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

var gameCols = []string{"id", "slug", "title", "description", "release_date", "publisher_id", "developer_id"}

func strPtr(s string) *string { return &s }

func newMock(t *testing.T) pgxmock.PgxPoolIface {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock
}

func TestNewStoresRequireDB(t *testing.T) {
	t.Parallel()

	_, err := NewGameStore(nil)
	require.Error(t, err)
	_, err = NewEntityStore(nil)
	require.Error(t, err)
	_, err = NewRunStore(nil)
	require.Error(t, err)
	_, err = Open(context.Background(), Config{})
	require.Error(t, err)
}

func TestMigrateAppliesSchema(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS publishers").
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, Migrate(context.Background(), mock))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGameBatchUpsertFlow(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	store, err := NewGameStore(mock)
	require.NoError(t, err)
	ctx := context.Background()
	released := time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM games WHERE slug").
		WithArgs("alpha").
		WillReturnRows(mock.NewRows(gameCols))
	mock.ExpectQuery("INSERT INTO games").
		WithArgs("alpha", "Alpha", (*string)(nil), (*time.Time)(nil), (*int64)(nil), (*int64)(nil)).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectQuery("FROM games WHERE slug").
		WithArgs("beta").
		WillReturnRows(mock.NewRows(gameCols).
			AddRow(int64(3), "beta", "Beta", strPtr("old"), &released, nil, nil))
	mock.ExpectExec("UPDATE games").
		WithArgs(int64(3), "Beta 2", (*string)(nil), &released, (*int64)(nil), (*int64)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	batch, err := store.Begin(ctx)
	require.NoError(t, err)

	_, found, err := batch.FindBySlug(ctx, "alpha")
	require.NoError(t, err)
	require.False(t, found)
	created, err := batch.Create(ctx, catalog.Game{Slug: "alpha", Title: "Alpha"})
	require.NoError(t, err)
	require.Equal(t, int64(7), created.ID)

	beta, found, err := batch.FindBySlug(ctx, "beta")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "old", *beta.Description)
	require.Equal(t, "2021-03-04", beta.ReleaseDate.String())

	beta.Title = "Beta 2"
	beta.Description = nil
	require.NoError(t, batch.Update(ctx, beta))
	require.NoError(t, batch.Commit(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGameBatchRollback(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	store, err := NewGameStore(mock)
	require.NoError(t, err)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO games").
		WithArgs("dup", "Dup", (*string)(nil), (*time.Time)(nil), (*int64)(nil), (*int64)(nil)).
		WillReturnError(&pgconn.PgError{Code: uniqueViolation})
	mock.ExpectRollback()

	batch, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = batch.Create(ctx, catalog.Game{Slug: "dup", Title: "Dup"})
	require.ErrorIs(t, err, catalog.ErrConflict)
	require.NoError(t, batch.Rollback(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestListAndGetGames(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	store, err := NewGameStore(mock)
	require.NoError(t, err)
	ctx := context.Background()

	mock.ExpectQuery("FROM games ORDER BY id LIMIT").
		WithArgs(2, 0).
		WillReturnRows(mock.NewRows(gameCols).
			AddRow(int64(1), "a", "A", nil, nil, nil, nil).
			AddRow(int64(2), "b", "B", strPtr("desc"), nil, nil, nil))
	mock.ExpectQuery("FROM games WHERE id").
		WithArgs(int64(9)).
		WillReturnRows(mock.NewRows(gameCols))

	games, err := store.ListGames(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, games, 2)
	require.Nil(t, games[0].Description)
	require.Equal(t, "desc", *games[1].Description)

	_, err = store.GetGame(ctx, 9)
	require.ErrorIs(t, err, catalog.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateGamePartial(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	store, err := NewGameStore(mock)
	require.NoError(t, err)
	ctx := context.Background()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM games WHERE id").
		WithArgs(int64(4)).
		WillReturnRows(mock.NewRows(gameCols).AddRow(int64(4), "d", "D", strPtr("keep"), nil, nil, nil))
	mock.ExpectExec("UPDATE games").
		WithArgs(int64(4), "New D", strPtr("keep"), (*time.Time)(nil), (*int64)(nil), (*int64)(nil)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectCommit()

	got, err := store.UpdateGame(ctx, 4, catalog.GameUpdate{Title: strPtr("New D")})
	require.NoError(t, err)
	require.Equal(t, "New D", got.Title)
	require.Equal(t, "keep", *got.Description)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateAndDeleteGames(t *testing.T) {
	t.Parallel()

	mock := newMock(t)
	store, err := NewGameStore(mock)
	require.NoError(t, err)
	ctx := context.Background()

	mock.ExpectQuery("INSERT INTO games").
		WithArgs("e", "E", (*string)(nil), (*time.Time)(nil), (*int64)(nil), (*int64)(nil)).
		WillReturnRows(mock.NewRows([]string{"id"}).AddRow(int64(11)))
	mock.ExpectExec("DELETE FROM games WHERE id").
		WithArgs(int64(11)).
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec("DELETE FROM games WHERE id").
		WithArgs(int64(12)).
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	mock.ExpectExec("DELETE FROM games").
		WillReturnResult(pgxmock.NewResult("DELETE", 5))

	g, err := store.CreateGame(ctx, catalog.Game{Slug: "e", Title: "E"})
	require.NoError(t, err)
	require.Equal(t, int64(11), g.ID)
	require.NoError(t, store.DeleteGame(ctx, 11))
	require.ErrorIs(t, store.DeleteGame(ctx, 12), catalog.ErrNotFound)
	require.NoError(t, store.DeleteAllGames(ctx))
	require.NoError(t, mock.ExpectationsWereMet())
}
