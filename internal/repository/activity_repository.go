package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"storagedrive/internal/domain"
)

const activityColumns = `id, owner_id, folder_id, item_id, action, created_at`

type ActivityRepository struct {
	db sqlx.ExtContext
}

func NewActivityRepository(db sqlx.ExtContext) *ActivityRepository {
	return &ActivityRepository{db: db}
}

func (r *ActivityRepository) Create(ctx context.Context, a *domain.Activity) error {
	query := r.db.Rebind(`
        INSERT INTO activities (` + activityColumns + `)
        VALUES (?, ?, ?, ?, ?, ?)`)

	if _, err := r.db.ExecContext(ctx, query, a.ID, a.OwnerID, a.FolderID, a.ItemID, a.Action, a.CreatedAt); err != nil {
		return fmt.Errorf("failed to create activity: %w", err)
	}
	return nil
}

// ListBetween возвращает записи в полуинтервале [from, to), новые первыми
func (r *ActivityRepository) ListBetween(ctx context.Context, ownerID string, from, to time.Time) ([]domain.Activity, error) {
	activities := []domain.Activity{}
	err := sqlx.SelectContext(ctx, r.db, &activities, r.db.Rebind(`
        SELECT `+activityColumns+` FROM activities
        WHERE owner_id = ? AND created_at >= ? AND created_at < ?
        ORDER BY created_at DESC, id`), ownerID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, nil
}

func (r *ActivityRepository) List(ctx context.Context, ownerID string, p domain.Pagination) ([]domain.Activity, int64, error) {
	var total int64
	err := sqlx.GetContext(ctx, r.db, &total, r.db.Rebind(`
        SELECT COUNT(*) FROM activities WHERE owner_id = ?`), ownerID)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count activities: %w", err)
	}

	activities := []domain.Activity{}
	err = sqlx.SelectContext(ctx, r.db, &activities, r.db.Rebind(`
        SELECT `+activityColumns+` FROM activities
        WHERE owner_id = ?
        ORDER BY created_at DESC, id
        LIMIT ? OFFSET ?`), ownerID, p.Limit, p.Offset())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list activities: %w", err)
	}
	return activities, total, nil
}
