package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storagedrive/internal/domain"
	"storagedrive/internal/repository"
	"storagedrive/internal/repository/repotest"
)

func TestStorageQuota_GetCreatesDefault(t *testing.T) {
	store := repotest.NewStore(t, 1000)
	ctx := context.Background()

	quota, err := store.Quotas.GetQuota(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "u1", quota.OwnerID)
	assert.Equal(t, int64(1000), quota.TotalBytesLimit)
	assert.Equal(t, int64(0), quota.UsedBytes)
}

func TestStorageQuota_ReserveAndRelease(t *testing.T) {
	store := repotest.NewStore(t, 100)
	ctx := context.Background()

	require.NoError(t, store.Quotas.Reserve(ctx, "u1", 60))
	require.NoError(t, store.Quotas.Reserve(ctx, "u1", 40))

	err := store.Quotas.Reserve(ctx, "u1", 1)
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)

	quota, err := store.Quotas.GetQuota(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(100), quota.UsedBytes)

	require.NoError(t, store.Quotas.Release(ctx, "u1", 30))
	require.NoError(t, store.Quotas.Release(ctx, "u1", 500))

	quota, err = store.Quotas.GetQuota(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(0), quota.UsedBytes, "release must not go below zero")
}

func TestStorageQuota_ReserveZeroWhenOverLimit(t *testing.T) {
	store := repotest.NewStore(t, 100)
	ctx := context.Background()

	require.NoError(t, store.Quotas.Reserve(ctx, "u1", 80))
	require.NoError(t, store.Quotas.UpdateQuotaLimit(ctx, "u1", 50))

	require.NoError(t, store.Quotas.Reserve(ctx, "u1", 0))
	require.ErrorIs(t, store.Quotas.Reserve(ctx, "u1", 1), domain.ErrQuotaExceeded)

	quota, err := store.Quotas.GetQuota(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(80), quota.UsedBytes)
}

func TestStorageQuota_ReserveRejectsNegative(t *testing.T) {
	store := repotest.NewStore(t, 100)

	err := store.Quotas.Reserve(context.Background(), "u1", -5)
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestStorageQuota_UpdateLimitAndListOwners(t *testing.T) {
	store := repotest.NewStore(t, 100)
	ctx := context.Background()

	require.NoError(t, store.Quotas.UpdateQuotaLimit(ctx, "u2", 5000))
	_, err := store.Quotas.GetQuota(ctx, "u1")
	require.NoError(t, err)

	quota, err := store.Quotas.GetQuota(ctx, "u2")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), quota.TotalBytesLimit)

	owners, err := store.Quotas.ListOwners(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2"}, owners)
}

func TestStorageQuota_CalculateAndUpdateUsedSpace(t *testing.T) {
	store := repotest.NewStore(t, 10000)
	ctx := context.Background()

	folder := newFolder("u1", nil, "docs")
	require.NoError(t, store.Folders.Create(ctx, folder))
	require.NoError(t, store.Items.Create(ctx, newItem("u1", folder.ID, "a", 100)))
	deleted := newItem("u1", folder.ID, "b", 50)
	require.NoError(t, store.Items.Create(ctx, deleted))
	require.NoError(t, store.Items.SoftDelete(ctx, "u1", deleted.ID, "batch", time.Now().UTC()))
	require.NoError(t, store.Quotas.Reserve(ctx, "u1", 999))

	before, after, err := store.Quotas.CalculateAndUpdateUsedSpace(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(999), before)
	assert.Equal(t, int64(100), after)
}

func newMockQuotaRepo(t *testing.T) (*repository.StorageQuotaRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return repository.NewStorageQuotaRepository(sqlx.NewDb(db, "postgres"), 100), mock
}

func TestStorageQuota_ReserveNoRowsMeansExceeded(t *testing.T) {
	repo, mock := newMockQuotaRepo(t)

	mock.ExpectExec(`(?s)INSERT INTO storage_quotas.*ON CONFLICT \(owner_id\) DO NOTHING`).
		WithArgs("u1", int64(100), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`(?s)UPDATE storage_quotas.*used_bytes \+ \$4 <= total_bytes_limit`).
		WithArgs(int64(10), sqlmock.AnyArg(), "u1", int64(10)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Reserve(context.Background(), "u1", 10)
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestStorageQuota_ReserveWrapsDriverError(t *testing.T) {
	repo, mock := newMockQuotaRepo(t)

	mock.ExpectExec(`INSERT INTO storage_quotas`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE storage_quotas`).WillReturnError(errors.New("db down"))

	err := repo.Reserve(context.Background(), "u1", 10)
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrQuotaExceeded)
	assert.Contains(t, err.Error(), "failed to reserve space: db down")
}
