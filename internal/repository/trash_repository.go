package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/jmoiron/sqlx"

	"storagedrive/internal/domain"
)

type TrashRepository struct {
	db sqlx.ExtContext
}

func NewTrashRepository(db sqlx.ExtContext) *TrashRepository {
	return &TrashRepository{db: db}
}

// GetTrashItems возвращает содержимое корзины. Папки показываются только
// корнями удаленных поддеревьев, элементы - только удаленные по отдельности.
func (r *TrashRepository) GetTrashItems(ctx context.Context, ownerID string) ([]domain.TrashItem, error) {
	folders := []domain.TrashItem{}
	err := sqlx.SelectContext(ctx, r.db, &folders, r.db.Rebind(`
        SELECT f.id, f.name, 'folder' AS kind, f.type, f.parent_id,
               COALESCE((
                   SELECT SUM(i.file_size) FROM items i
                   WHERE i.delete_batch = f.delete_batch AND i.owner_id = f.owner_id
               ), 0) AS size,
               f.deleted_at
        FROM folders f
        WHERE f.owner_id = ? AND f.is_deleted = TRUE
          AND NOT EXISTS (
              SELECT 1 FROM folders p
              WHERE p.id = f.parent_id AND p.delete_batch = f.delete_batch
          )`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get deleted folders: %w", err)
	}

	items := []domain.TrashItem{}
	err = sqlx.SelectContext(ctx, r.db, &items, r.db.Rebind(`
        SELECT i.id, i.name, 'item' AS kind, i.type, i.folder_id AS parent_id,
               i.file_size AS size, i.deleted_at
        FROM items i
        WHERE i.owner_id = ? AND i.is_deleted = TRUE
          AND NOT EXISTS (
              SELECT 1 FROM folders f
              WHERE f.delete_batch = i.delete_batch AND f.owner_id = i.owner_id
          )`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get deleted items: %w", err)
	}

	result := append(folders, items...)
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].DeletedAt.After(result[j].DeletedAt)
	})

	return result, nil
}
