package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/game-catalog/internal/catalog"
)

func TestLinkStoreLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	games := NewGameStore()
	entities := NewEntityStore()
	store := NewLinkStore(games, entities)

	alpha, err := games.CreateGame(ctx, catalog.Game{Slug: "alpha", Title: "Alpha"})
	require.NoError(t, err)
	beta, err := games.CreateGame(ctx, catalog.Game{Slug: "beta", Title: "Beta"})
	require.NoError(t, err)
	rpg, err := entities.CreateEntity(ctx, catalog.KindGenre, catalog.NamedEntity{Name: "RPG"})
	require.NoError(t, err)
	pc, err := entities.CreateEntity(ctx, catalog.KindPlatform, catalog.NamedEntity{Name: "PC"})
	require.NoError(t, err)

	require.NoError(t, store.CreateLink(ctx, catalog.LinkGenres, catalog.GameLink{GameID: beta.ID, EntityID: rpg.ID}))
	require.NoError(t, store.CreateLink(ctx, catalog.LinkGenres, catalog.GameLink{GameID: alpha.ID, EntityID: rpg.ID}))
	require.ErrorIs(t,
		store.CreateLink(ctx, catalog.LinkGenres, catalog.GameLink{GameID: alpha.ID, EntityID: rpg.ID}),
		catalog.ErrConflict)

	// A platform id is not a genre id.
	require.ErrorIs(t,
		store.CreateLink(ctx, catalog.LinkGenres, catalog.GameLink{GameID: alpha.ID, EntityID: pc.ID}),
		catalog.ErrNotFound)
	require.NoError(t, store.CreateLink(ctx, catalog.LinkPlatforms, catalog.GameLink{GameID: alpha.ID, EntityID: pc.ID}))

	links, err := store.ListLinks(ctx, catalog.LinkGenres, 0)
	require.NoError(t, err)
	require.Equal(t, []catalog.GameLink{
		{GameID: alpha.ID, EntityID: rpg.ID},
		{GameID: beta.ID, EntityID: rpg.ID},
	}, links)

	links, err = store.ListLinks(ctx, catalog.LinkPlatforms, beta.ID)
	require.NoError(t, err)
	require.Empty(t, links)

	require.NoError(t, store.DeleteLink(ctx, catalog.LinkGenres, catalog.GameLink{GameID: beta.ID, EntityID: rpg.ID}))
	require.ErrorIs(t,
		store.DeleteLink(ctx, catalog.LinkGenres, catalog.GameLink{GameID: beta.ID, EntityID: rpg.ID}),
		catalog.ErrNotFound)

	require.NoError(t, store.DeleteAllLinks(ctx, catalog.LinkPlatforms))
	links, err = store.ListLinks(ctx, catalog.LinkPlatforms, 0)
	require.NoError(t, err)
	require.Empty(t, links)

	_, err = store.ListLinks(ctx, catalog.LinkKind("game_tags"), 0)
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestLinkStoreDropsOrphans(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	games := NewGameStore()
	entities := NewEntityStore()
	store := NewLinkStore(games, entities)

	game, err := games.CreateGame(ctx, catalog.Game{Slug: "alpha", Title: "Alpha"})
	require.NoError(t, err)
	pc, err := entities.CreateEntity(ctx, catalog.KindPlatform, catalog.NamedEntity{Name: "PC"})
	require.NoError(t, err)
	require.NoError(t, store.CreateLink(ctx, catalog.LinkPlatforms, catalog.GameLink{GameID: game.ID, EntityID: pc.ID}))

	require.NoError(t, entities.DeleteEntity(ctx, catalog.KindPlatform, pc.ID))
	links, err := store.ListLinks(ctx, catalog.LinkPlatforms, 0)
	require.NoError(t, err)
	require.Empty(t, links)
}
