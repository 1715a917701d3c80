package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storagedrive/internal/domain"
	"storagedrive/internal/repository/repotest"
)

func TestFolderRepository_CreateDuplicateSibling(t *testing.T) {
	store := repotest.NewStore(t, 0)
	ctx := context.Background()

	root := newFolder("u1", nil, "docs")
	require.NoError(t, store.Folders.Create(ctx, root))

	err := store.Folders.Create(ctx, newFolder("u1", nil, "docs"))
	require.ErrorIs(t, err, domain.ErrDuplicateName)

	// другой владелец и другой уровень не конфликтуют
	require.NoError(t, store.Folders.Create(ctx, newFolder("u2", nil, "docs")))
	require.NoError(t, store.Folders.Create(ctx, newFolder("u1", &root.ID, "docs")))

	exists, err := store.Folders.CheckFolderExists(ctx, "u1", nil, "docs", "")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Folders.CheckFolderExists(ctx, "u1", nil, "docs", root.ID)
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestFolderRepository_GetByIDScopesOwner(t *testing.T) {
	store := repotest.NewStore(t, 0)
	ctx := context.Background()

	folder := newFolder("u1", nil, "docs")
	require.NoError(t, store.Folders.Create(ctx, folder))

	got, err := store.Folders.GetByID(ctx, "u1", folder.ID)
	require.NoError(t, err)
	assert.Equal(t, "docs", got.Name)
	assert.Nil(t, got.ParentID)

	_, err = store.Folders.GetByID(ctx, "u2", folder.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	anyOwner, err := store.Folders.GetAnyOwner(ctx, folder.ID)
	require.NoError(t, err)
	assert.Equal(t, "u1", anyOwner.OwnerID)
}

func TestFolderRepository_SubtreeDeleteAndRestore(t *testing.T) {
	store := repotest.NewStore(t, 0)
	ctx := context.Background()

	a := newFolder("u1", nil, "a")
	require.NoError(t, store.Folders.Create(ctx, a))
	b := newFolder("u1", &a.ID, "b")
	require.NoError(t, store.Folders.Create(ctx, b))
	c := newFolder("u1", &b.ID, "c")
	require.NoError(t, store.Folders.Create(ctx, c))
	other := newFolder("u1", nil, "other")
	require.NoError(t, store.Folders.Create(ctx, other))

	require.NoError(t, store.Items.Create(ctx, newItem("u1", b.ID, "note", 10)))
	require.NoError(t, store.Items.Create(ctx, newItem("u1", c.ID, "note", 5)))
	require.NoError(t, store.Items.Create(ctx, newItem("u1", other.ID, "note", 7)))

	ids, err := store.Folders.SubtreeIDs(ctx, "u1", a.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a.ID, b.ID, c.ID}, ids)

	count, bytes, err := store.Items.SumActiveInFolders(ctx, "u1", ids)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
	assert.Equal(t, int64(15), bytes)

	at := time.Now().UTC()
	require.NoError(t, store.Folders.MarkDeleted(ctx, "u1", ids, "batch-1", at))
	require.NoError(t, store.Items.MarkDeletedInFolders(ctx, "u1", ids, "batch-1", at))

	_, err = store.Folders.GetByID(ctx, "u1", b.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	stats, err := store.Folders.Stats(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalFolders)

	// восстановление b не поднимает удаленного родителя a
	batchIDs, err := store.Folders.BatchSubtree(ctx, "u1", b.ID, "batch-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{b.ID, c.ID}, batchIDs)

	deleted, err := store.Items.SumBatch(ctx, "u1", "batch-1", batchIDs)
	require.NoError(t, err)
	assert.Equal(t, int64(15), deleted)

	require.NoError(t, store.Folders.UpdateFolderParent(ctx, "u1", b.ID, nil))
	require.NoError(t, store.Folders.Restore(ctx, "u1", batchIDs))
	require.NoError(t, store.Items.RestoreBatch(ctx, "u1", "batch-1", batchIDs))

	updated, err := store.Folders.RecalculateCounters(ctx, "u1", batchIDs)
	require.NoError(t, err)
	assert.Equal(t, int64(2), updated)

	_, err = store.Folders.GetByID(ctx, "u1", a.ID)
	require.ErrorIs(t, err, domain.ErrNotFound)

	restored, err := store.Folders.GetByID(ctx, "u1", b.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), restored.TotalItems)
	assert.Equal(t, int64(10), restored.StorageUsed)
}

func TestFolderRepository_ListPaginatesAndFilters(t *testing.T) {
	store := repotest.NewStore(t, 0)
	ctx := context.Background()

	for _, name := range []string{"one", "two", "three"} {
		require.NoError(t, store.Folders.Create(ctx, newFolder("u1", nil, name)))
	}
	images := newFolder("u1", nil, "pics")
	images.Type = domain.FolderTypeImages
	require.NoError(t, store.Folders.Create(ctx, images))

	folders, total, err := store.Folders.List(ctx, "u1", nil, domain.Pagination{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, folders, 2)

	ft := domain.FolderTypeImages
	folders, total, err = store.Folders.List(ctx, "u1", &ft, domain.Pagination{Page: 1, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, folders, 1)
	assert.Equal(t, "pics", folders[0].Name)
}

func TestFolderRepository_AdjustCountersClampsAtZero(t *testing.T) {
	store := repotest.NewStore(t, 0)
	ctx := context.Background()

	folder := newFolder("u1", nil, "docs")
	require.NoError(t, store.Folders.Create(ctx, folder))

	require.NoError(t, store.Folders.AdjustCounters(ctx, folder.ID, 2, 100))
	require.NoError(t, store.Folders.AdjustCounters(ctx, folder.ID, -5, -500))

	got, err := store.Folders.GetByID(ctx, "u1", folder.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.TotalItems)
	assert.Equal(t, int64(0), got.StorageUsed)

	require.ErrorIs(t, store.Folders.AdjustCounters(ctx, "missing", 1, 1), domain.ErrNotFound)
}
