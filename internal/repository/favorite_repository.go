package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"storagedrive/internal/domain"
)

type FavoriteRepository struct {
	db sqlx.ExtContext
}

func NewFavoriteRepository(db sqlx.ExtContext) *FavoriteRepository {
	return &FavoriteRepository{db: db}
}

func (r *FavoriteRepository) Create(ctx context.Context, fav *domain.Favorite) error {
	query := r.db.Rebind(`
        INSERT INTO favorites (id, owner_id, item_id, created_at)
        VALUES (?, ?, ?, ?)`)

	if _, err := r.db.ExecContext(ctx, query, fav.ID, fav.OwnerID, fav.ItemID, fav.CreatedAt); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyFavorited
		}
		return fmt.Errorf("failed to create favorite: %w", err)
	}
	return nil
}

// Delete удаляет отметку владельца. Возвращает false, если ее не было.
func (r *FavoriteRepository) Delete(ctx context.Context, ownerID, itemID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(`
        DELETE FROM favorites WHERE owner_id = ? AND item_id = ?`), ownerID, itemID)
	if err != nil {
		return false, fmt.Errorf("failed to delete favorite: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return rows > 0, nil
}

func (r *FavoriteRepository) Exists(ctx context.Context, ownerID, itemID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.db, &exists, r.db.Rebind(`
        SELECT EXISTS(SELECT 1 FROM favorites WHERE owner_id = ? AND item_id = ?)`), ownerID, itemID)
	if err != nil {
		return false, fmt.Errorf("failed to check favorite: %w", err)
	}
	return exists, nil
}

// CountByItem считает отметки всех пользователей для элемента
func (r *FavoriteRepository) CountByItem(ctx context.Context, itemID string) (int64, error) {
	var count int64
	err := sqlx.GetContext(ctx, r.db, &count, r.db.Rebind(`
        SELECT COUNT(*) FROM favorites WHERE item_id = ?`), itemID)
	if err != nil {
		return 0, fmt.Errorf("failed to count favorites: %w", err)
	}
	return count, nil
}

// ListItems возвращает живые элементы из избранного владельца, новые отметки первыми
func (r *FavoriteRepository) ListItems(ctx context.Context, ownerID string, p domain.Pagination) ([]domain.Item, int64, error) {
	var total int64
	err := sqlx.GetContext(ctx, r.db, &total, r.db.Rebind(`
        SELECT COUNT(*) FROM favorites f
        INNER JOIN items i ON i.id = f.item_id
        WHERE f.owner_id = ? AND i.is_deleted = FALSE`), ownerID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count favorites: %w", err)
	}

	items := []domain.Item{}
	err = sqlx.SelectContext(ctx, r.db, &items, r.db.Rebind(`
        SELECT `+prefixedItemColumns("i")+`
        FROM favorites f
        INNER JOIN items i ON i.id = f.item_id
        WHERE f.owner_id = ? AND i.is_deleted = FALSE
        ORDER BY f.created_at DESC, f.id
        LIMIT ? OFFSET ?`), ownerID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list favorites: %w", err)
	}

	return items, total, nil
}
