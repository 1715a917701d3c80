package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storagedrive/internal/domain"
)

func (e *testEnv) isFavoriteFlag(t *testing.T, itemID string) bool {
	t.Helper()
	item, err := e.store.Items.GetActive(context.Background(), itemID)
	require.NoError(t, err)
	return item.IsFavorite
}

func TestFavoriteAddRemove(t *testing.T) {
	env := newTestEnv(t, 1000)
	ctx := context.Background()

	folder := env.folder(t, "u1", "docs", nil)
	item := env.note(t, "u1", folder.ID, "todo", "x")

	require.NoError(t, env.favorites.AddFavorite(ctx, "u1", item.ID))
	require.ErrorIs(t, env.favorites.AddFavorite(ctx, "u1", item.ID), domain.ErrAlreadyFavorited)
	assert.True(t, env.isFavoriteFlag(t, item.ID))

	ok, err := env.favorites.IsFavorited(ctx, "u1", item.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, env.favorites.RemoveFavorite(ctx, "u1", item.ID))
	assert.False(t, env.isFavoriteFlag(t, item.ID))

	require.ErrorIs(t, env.favorites.RemoveFavorite(ctx, "u1", item.ID), domain.ErrNotFound)
	require.ErrorIs(t, env.favorites.AddFavorite(ctx, "u1", "missing"), domain.ErrNotFound)
}

func TestFavoriteSharedByTwoUsers(t *testing.T) {
	env := newTestEnv(t, 1000)
	ctx := context.Background()

	folder := env.folder(t, "u1", "docs", nil)
	item := env.note(t, "u1", folder.ID, "todo", "x")

	require.NoError(t, env.favorites.AddFavorite(ctx, "u1", item.ID))
	require.NoError(t, env.favorites.AddFavorite(ctx, "u2", item.ID))

	require.NoError(t, env.favorites.RemoveFavorite(ctx, "u1", item.ID))
	assert.True(t, env.isFavoriteFlag(t, item.ID), "another favorite still references the item")

	require.NoError(t, env.favorites.RemoveFavorite(ctx, "u2", item.ID))
	assert.False(t, env.isFavoriteFlag(t, item.ID))
}

func TestFavoriteToggle(t *testing.T) {
	env := newTestEnv(t, 1000)
	ctx := context.Background()

	folder := env.folder(t, "u1", "docs", nil)
	item := env.note(t, "u1", folder.ID, "todo", "x")

	on, err := env.favorites.ToggleFavorite(ctx, "u1", item.ID)
	require.NoError(t, err)
	assert.True(t, on)
	assert.True(t, env.isFavoriteFlag(t, item.ID))

	on, err = env.favorites.ToggleFavorite(ctx, "u1", item.ID)
	require.NoError(t, err)
	assert.False(t, on)
	assert.False(t, env.isFavoriteFlag(t, item.ID))

	_, err = env.favorites.ToggleFavorite(ctx, "u1", "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)

	actions := env.recorder.actions()
	assert.Equal(t, []domain.ActivityAction{domain.ActionFavorited, domain.ActionUnfavorited}, actions[len(actions)-2:])
}

func TestListFavoritesSkipsDeletedItems(t *testing.T) {
	env := newTestEnv(t, 1000)
	ctx := context.Background()

	folder := env.folder(t, "u1", "docs", nil)
	a := env.note(t, "u1", folder.ID, "a", "x")
	b := env.note(t, "u1", folder.ID, "b", "x")
	require.NoError(t, env.favorites.AddFavorite(ctx, "u1", a.ID))
	require.NoError(t, env.favorites.AddFavorite(ctx, "u1", b.ID))
	require.NoError(t, env.items.DeleteItem(ctx, "u1", a.ID))

	page, err := env.favorites.ListFavorites(ctx, "u1", domain.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, b.ID, page.Items[0].ID)
	assert.True(t, page.Items[0].IsFavorite)

	// удаленный элемент нельзя добавить в избранное
	require.ErrorIs(t, env.favorites.AddFavorite(ctx, "u2", a.ID), domain.ErrNotFound)
}
