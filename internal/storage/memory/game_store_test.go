package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

func strPtr(s string) *string { return &s }

func TestGameStoreCRUD(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewGameStore()

	a, err := store.CreateGame(ctx, catalog.Game{Slug: "alpha", Title: "Alpha"})
	require.NoError(t, err)
	require.NotZero(t, a.ID)
	_, err = store.CreateGame(ctx, catalog.Game{Slug: "alpha", Title: "Again"})
	require.ErrorIs(t, err, catalog.ErrConflict)

	b, err := store.CreateGame(ctx, catalog.Game{Slug: "beta", Title: "Beta"})
	require.NoError(t, err)

	page, err := store.ListGames(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, page, 1)
	require.Equal(t, "beta", page[0].Slug)

	empty, err := store.ListGames(ctx, 10, 5)
	require.NoError(t, err)
	require.Empty(t, empty)

	updated, err := store.UpdateGame(ctx, b.ID, catalog.GameUpdate{Description: strPtr("desc")})
	require.NoError(t, err)
	require.Equal(t, "Beta", updated.Title)
	require.Equal(t, "desc", *updated.Description)

	_, err = store.UpdateGame(ctx, 999, catalog.GameUpdate{})
	require.ErrorIs(t, err, catalog.ErrNotFound)

	require.NoError(t, store.DeleteGame(ctx, a.ID))
	_, err = store.GetGame(ctx, a.ID)
	require.ErrorIs(t, err, catalog.ErrNotFound)
	require.ErrorIs(t, store.DeleteGame(ctx, a.ID), catalog.ErrNotFound)

	// The slug is free again once deleted.
	_, err = store.CreateGame(ctx, catalog.Game{Slug: "alpha", Title: "Alpha"})
	require.NoError(t, err)

	require.NoError(t, store.DeleteAllGames(ctx))
	all, err := store.ListGames(ctx, 50, 0)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestGameBatchStagesUntilCommit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewGameStore()
	existing, err := store.CreateGame(ctx, catalog.Game{Slug: "old", Title: "Old"})
	require.NoError(t, err)

	batch, err := store.Begin(ctx)
	require.NoError(t, err)

	created, err := batch.Create(ctx, catalog.Game{Slug: "new", Title: "New"})
	require.NoError(t, err)

	found, ok, err := batch.FindBySlug(ctx, "new")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, created.ID, found.ID)

	_, err = batch.Create(ctx, catalog.Game{Slug: "new"})
	require.ErrorIs(t, err, catalog.ErrConflict)

	existing.Title = "Renamed"
	require.NoError(t, batch.Update(ctx, existing))

	// Nothing is visible outside the batch yet.
	all, err := store.ListGames(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Old", all[0].Title)

	require.NoError(t, batch.Commit(ctx))
	all, err = store.ListGames(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, "Renamed", all[0].Title)
	require.Equal(t, "new", all[1].Slug)

	require.ErrorIs(t, batch.Commit(ctx), errBatchClosed)
}

func TestGameBatchRollbackDiscards(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewGameStore()
	batch, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = batch.Create(ctx, catalog.Game{Slug: "ghost", Title: "Ghost"})
	require.NoError(t, err)
	require.NoError(t, batch.Rollback(ctx))

	all, err := store.ListGames(ctx, 50, 0)
	require.NoError(t, err)
	require.Empty(t, all)
	_, _, err = batch.FindBySlug(ctx, "ghost")
	require.ErrorIs(t, err, errBatchClosed)
}

func TestGameBatchCommitDetectsConcurrentCreate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	store := NewGameStore()
	batch, err := store.Begin(ctx)
	require.NoError(t, err)
	_, err = batch.Create(ctx, catalog.Game{Slug: "race", Title: "Race"})
	require.NoError(t, err)

	_, err = store.CreateGame(ctx, catalog.Game{Slug: "race", Title: "Winner"})
	require.NoError(t, err)

	require.ErrorIs(t, batch.Commit(ctx), catalog.ErrConflict)
	all, err := store.ListGames(ctx, 50, 0)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "Winner", all[0].Title)
}
