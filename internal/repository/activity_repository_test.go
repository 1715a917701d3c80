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

func TestActivityRepository_ListBetween(t *testing.T) {
	store := repotest.NewStore(t, 0)
	ctx := context.Background()

	day := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	for _, at := range []time.Time{
		day.Add(-time.Second),
		day,
		day.Add(12 * time.Hour),
		day.Add(24 * time.Hour),
	} {
		folderID := "f1"
		require.NoError(t, store.Activities.Create(ctx, &domain.Activity{
			ID:        uuid.NewString(),
			OwnerID:   "u1",
			FolderID:  &folderID,
			Action:    domain.ActionCreated,
			CreatedAt: at,
		}))
	}

	list, err := store.Activities.ListBetween(ctx, "u1", day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].CreatedAt.Equal(day.Add(12*time.Hour)))
	assert.True(t, list[1].CreatedAt.Equal(day))
	assert.Nil(t, list[0].ItemID)

	all, total, err := store.Activities.List(ctx, "u1", domain.Pagination{Page: 2, Limit: 3})
	require.NoError(t, err)
	assert.Equal(t, int64(4), total)
	assert.Len(t, all, 1)
}
