// Package repotest поднимает изолированную базу SQLite в памяти для тестов.
package repotest

import (
	"context"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storagedrive/internal/repository"
)

// Open возвращает мигрированную базу, закрываемую по окончании теста
func Open(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := repository.Open(context.Background(), repository.DriverSQLite, ":memory:", 1, 0, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, repository.Migrate(db, "", zap.NewNop()))
	return db
}

// NewStore возвращает хранилище поверх новой базы
func NewStore(t *testing.T, defaultQuota int64) *repository.Store {
	t.Helper()
	return repository.NewStore(Open(t), defaultQuota)
}
