package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storagedrive/internal/domain"
)

func TestCopyFolderDuplicatesSubtree(t *testing.T) {
	env := newTestEnv(t, 1000)
	ctx := context.Background()

	parent := env.folder(t, "u1", "parent", nil)
	src := env.folder(t, "u1", "src", &parent.ID)
	item := env.note(t, "u1", src.ID, "note", "hello")
	sub := env.folder(t, "u1", "sub", &src.ID)

	copied, err := env.copies.CopyFolder(ctx, "u1", src.ID)
	require.NoError(t, err)

	assert.NotEqual(t, src.ID, copied.ID)
	assert.Equal(t, "src (Copy)", copied.Name)
	assert.Nil(t, copied.ParentID, "copy is placed at root level")
	assert.Equal(t, int64(1), copied.TotalItems)
	assert.Equal(t, int64(5), copied.StorageUsed)

	content, err := env.folders.GetFolderContent(ctx, "u1", copied.ID)
	require.NoError(t, err)
	require.Len(t, content.Items, 1)
	assert.Equal(t, "note (Copy)", content.Items[0].Name)
	assert.NotEqual(t, item.ID, content.Items[0].ID)
	assert.False(t, content.Items[0].IsFavorite)
	require.Len(t, content.Folders, 1)
	assert.Equal(t, "sub (Copy)", content.Folders[0].Name)
	assert.NotEqual(t, sub.ID, content.Folders[0].ID)

	subContent, err := env.folders.GetFolderContent(ctx, "u1", content.Folders[0].ID)
	require.NoError(t, err)
	assert.Empty(t, subContent.Items)
	assert.Empty(t, subContent.Folders)

	// оригинал не изменился
	original, err := env.folders.GetFolderContent(ctx, "u1", src.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), original.Folder.TotalItems)
	require.Len(t, original.Items, 1)
	assert.Equal(t, "note", original.Items[0].Name)
	require.Len(t, original.Folders, 1)
	assert.Equal(t, sub.ID, original.Folders[0].ID)
	require.NotNil(t, original.Folder.ParentID)
	assert.Equal(t, parent.ID, *original.Folder.ParentID)

	assert.Equal(t, int64(10), env.usedBytes(t, "u1"))
	env.assertCountersMatch(t, "u1")
	assert.Contains(t, env.recorder.actions(), domain.ActionDuplicated)
}

func TestCopyFolderNameCollisionLoop(t *testing.T) {
	env := newTestEnv(t, 1000)
	ctx := context.Background()

	src := env.folder(t, "u1", "src", nil)

	first, err := env.copies.CopyFolder(ctx, "u1", src.ID)
	require.NoError(t, err)
	second, err := env.copies.CopyFolder(ctx, "u1", src.ID)
	require.NoError(t, err)
	third, err := env.copies.CopyFolder(ctx, "u1", src.ID)
	require.NoError(t, err)

	assert.Equal(t, "src (Copy)", first.Name)
	assert.Equal(t, "src (Copy 2)", second.Name)
	assert.Equal(t, "src (Copy 3)", third.Name)
}

func TestCopyFolderQuota(t *testing.T) {
	env := newTestEnv(t, 10)
	ctx := context.Background()

	src := env.folder(t, "u1", "src", nil)
	sub := env.folder(t, "u1", "sub", &src.ID)
	env.note(t, "u1", src.ID, "a", "123")
	env.note(t, "u1", sub.ID, "b", "123")

	_, err := env.copies.CopyFolder(ctx, "u1", src.ID)
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)

	page, err := env.folders.ListFolders(ctx, "u1", domain.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, int64(6), env.usedBytes(t, "u1"))
}

func TestCopyFolderSkipsDeletedContent(t *testing.T) {
	env := newTestEnv(t, 1000)
	ctx := context.Background()

	src := env.folder(t, "u1", "src", nil)
	gone := env.note(t, "u1", src.ID, "gone", "123")
	env.note(t, "u1", src.ID, "kept", "12")
	sub := env.folder(t, "u1", "sub", &src.ID)
	require.NoError(t, env.items.DeleteItem(ctx, "u1", gone.ID))
	require.NoError(t, env.folders.DeleteFolder(ctx, "u1", sub.ID))

	copied, err := env.copies.CopyFolder(ctx, "u1", src.ID)
	require.NoError(t, err)

	content, err := env.folders.GetFolderContent(ctx, "u1", copied.ID)
	require.NoError(t, err)
	require.Len(t, content.Items, 1)
	assert.Equal(t, "kept (Copy)", content.Items[0].Name)
	assert.Empty(t, content.Folders)
}

func TestCopyFolderMissing(t *testing.T) {
	env := newTestEnv(t, 1000)

	_, err := env.copies.CopyFolder(context.Background(), "u1", "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestCopyItem(t *testing.T) {
	env := newTestEnv(t, 1000)
	ctx := context.Background()

	src := env.folder(t, "u1", "src", nil)
	dst := env.folder(t, "u1", "dst", nil)
	notes, err := env.folders.CreateFolder(ctx, "u1", "notes", domain.FolderTypeNotes, nil)
	require.NoError(t, err)
	item := env.note(t, "u1", src.ID, "todo", "1234")
	require.NoError(t, env.favorites.AddFavorite(ctx, "u1", item.ID))

	first, err := env.copies.CopyItem(ctx, "u1", item.ID, dst.ID)
	require.NoError(t, err)
	assert.Equal(t, "todo (Copy)", first.Name)
	assert.Equal(t, dst.ID, first.FolderID)
	assert.False(t, first.IsFavorite)
	assert.Equal(t, item.Content, first.Content)

	second, err := env.copies.CopyItem(ctx, "u1", item.ID, dst.ID)
	require.NoError(t, err)
	assert.Equal(t, "todo (Copy 2)", second.Name)

	_, err = env.copies.CopyItem(ctx, "u1", item.ID, notes.ID)
	require.NoError(t, err)

	got := env.reloadFolder(t, "u1", dst.ID)
	assert.Equal(t, int64(2), got.TotalItems)
	assert.Equal(t, int64(8), got.StorageUsed)
	assert.Equal(t, int64(16), env.usedBytes(t, "u1"))

	_, err = env.copies.CopyItem(ctx, "u1", item.ID, "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.copies.CopyItem(ctx, "u1", "missing", dst.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)
	_, err = env.copies.CopyItem(ctx, "u2", item.ID, dst.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	env.assertCountersMatch(t, "u1")
}

func TestCopyItemTypeMismatch(t *testing.T) {
	env := newTestEnv(t, 1000)
	ctx := context.Background()

	src := env.folder(t, "u1", "src", nil)
	pics, err := env.folders.CreateFolder(ctx, "u1", "pics", domain.FolderTypeImages, nil)
	require.NoError(t, err)
	item := env.note(t, "u1", src.ID, "todo", "1234")

	_, err = env.copies.CopyItem(ctx, "u1", item.ID, pics.ID)
	require.ErrorIs(t, err, domain.ErrTypeMismatch)
}

func TestCopyEmptyFolderWhenOverLimit(t *testing.T) {
	env := newTestEnv(t, 100)
	ctx := context.Background()

	docs := env.folder(t, "u1", "docs", nil)
	env.note(t, "u1", docs.ID, "n", "0123456789")
	empty := env.folder(t, "u1", "empty", nil)
	require.NoError(t, env.quota.UpdateQuotaLimit(ctx, "u1", 5))

	copied, err := env.copies.CopyFolder(ctx, "u1", empty.ID)
	require.NoError(t, err)
	assert.Equal(t, "empty (Copy)", copied.Name)
	assert.Zero(t, copied.StorageUsed)
	assert.Equal(t, int64(10), env.usedBytes(t, "u1"))

	_, err = env.copies.CopyFolder(ctx, "u1", docs.ID)
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)
}
