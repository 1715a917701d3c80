package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Repositories собирает репозитории, привязанные к одному исполнителю запросов:
// пулу соединений или открытой транзакции.
type Repositories struct {
	Folders    *FolderRepository
	Items      *ItemRepository
	Favorites  *FavoriteRepository
	Activities *ActivityRepository
	Quotas     *StorageQuotaRepository
	Trash      *TrashRepository
}

func newRepositories(db sqlx.ExtContext, defaultQuota int64) *Repositories {
	return &Repositories{
		Folders:    NewFolderRepository(db),
		Items:      NewItemRepository(db),
		Favorites:  NewFavoriteRepository(db),
		Activities: NewActivityRepository(db),
		Quotas:     NewStorageQuotaRepository(db, defaultQuota),
		Trash:      NewTrashRepository(db),
	}
}

type Store struct {
	*Repositories
	db           *sqlx.DB
	defaultQuota int64
}

func NewStore(db *sqlx.DB, defaultQuota int64) *Store {
	return &Store{
		Repositories: newRepositories(db, defaultQuota),
		db:           db,
		defaultQuota: defaultQuota,
	}
}

// InTx выполняет fn в транзакции. Ошибка fn откатывает все изменения.
func (s *Store) InTx(ctx context.Context, fn func(r *Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(newRepositories(tx, s.defaultQuota)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func (s *Store) DB() *sqlx.DB {
	return s.db
}
