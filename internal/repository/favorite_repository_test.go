package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storagedrive/internal/domain"
	"storagedrive/internal/repository/repotest"
)

func TestFavoriteRepository(t *testing.T) {
	store := repotest.NewStore(t, 0)
	ctx := context.Background()

	folder := newFolder("u1", nil, "docs")
	require.NoError(t, store.Folders.Create(ctx, folder))
	item := newItem("u1", folder.ID, "a", 1)
	require.NoError(t, store.Items.Create(ctx, item))

	fav := func(owner string) *domain.Favorite {
		return &domain.Favorite{ID: uuid.NewString(), OwnerID: owner, ItemID: item.ID, CreatedAt: time.Now().UTC()}
	}

	require.NoError(t, store.Favorites.Create(ctx, fav("u1")))
	require.ErrorIs(t, store.Favorites.Create(ctx, fav("u1")), domain.ErrAlreadyFavorited)
	require.NoError(t, store.Favorites.Create(ctx, fav("u2")))

	count, err := store.Favorites.CountByItem(ctx, item.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	items, total, err := store.Favorites.ListItems(ctx, "u2", domain.Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, items, 1)
	assert.Equal(t, item.ID, items[0].ID)

	removed, err := store.Favorites.Delete(ctx, "u1", item.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.Favorites.Delete(ctx, "u1", item.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	exists, err := store.Favorites.Exists(ctx, "u2", item.ID)
	require.NoError(t, err)
	assert.True(t, exists)
}
