package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"storagedrive/internal/domain"
)

// DefaultQuotaBytes - лимит для новых пользователей, если в конфиге не задан другой
const DefaultQuotaBytes int64 = 5368709120 // 5GB

type StorageQuotaRepository struct {
	db           sqlx.ExtContext
	defaultLimit int64
}

func NewStorageQuotaRepository(db sqlx.ExtContext, defaultLimit int64) *StorageQuotaRepository {
	if defaultLimit <= 0 {
		defaultLimit = DefaultQuotaBytes
	}
	return &StorageQuotaRepository{db: db, defaultLimit: defaultLimit}
}

// ensure создает запись квоты с лимитом по умолчанию, если ее еще нет
func (r *StorageQuotaRepository) ensure(ctx context.Context, ownerID string) error {
	now := time.Now().UTC()
	query := r.db.Rebind(`
        INSERT INTO storage_quotas (owner_id, total_bytes_limit, used_bytes, created_at, updated_at)
        VALUES (?, ?, 0, ?, ?)
        ON CONFLICT (owner_id) DO NOTHING`)

	if _, err := r.db.ExecContext(ctx, query, ownerID, r.defaultLimit, now, now); err != nil {
		return fmt.Errorf("failed to create quota: %w", err)
	}
	return nil
}

func (r *StorageQuotaRepository) GetQuota(ctx context.Context, ownerID string) (*domain.StorageQuota, error) {
	if err := r.ensure(ctx, ownerID); err != nil {
		return nil, err
	}

	var quota domain.StorageQuota
	err := sqlx.GetContext(ctx, r.db, &quota, r.db.Rebind(`
        SELECT owner_id, total_bytes_limit, used_bytes, created_at, updated_at
        FROM storage_quotas WHERE owner_id = ?`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quota: %w", err)
	}

	return &quota, nil
}

// Reserve увеличивает занятое место, только если результат не превысит лимит.
// Проверка и запись выполняются одним запросом.
func (r *StorageQuotaRepository) Reserve(ctx context.Context, ownerID string, deltaBytes int64) error {
	if deltaBytes < 0 {
		return fmt.Errorf("%w: negative reservation", domain.ErrValidation)
	}
	if deltaBytes == 0 {
		return nil
	}
	if err := r.ensure(ctx, ownerID); err != nil {
		return err
	}

	query := r.db.Rebind(`
        UPDATE storage_quotas
        SET used_bytes = used_bytes + ?,
            updated_at = ?
        WHERE owner_id = ? AND used_bytes + ? <= total_bytes_limit`)

	result, err := r.db.ExecContext(ctx, query, deltaBytes, time.Now().UTC(), ownerID, deltaBytes)
	if err != nil {
		return fmt.Errorf("failed to reserve space: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return domain.ErrQuotaExceeded
	}

	return nil
}

// Release уменьшает занятое место, не опускаясь ниже нуля
func (r *StorageQuotaRepository) Release(ctx context.Context, ownerID string, deltaBytes int64) error {
	if err := r.ensure(ctx, ownerID); err != nil {
		return err
	}

	query := r.db.Rebind(`
        UPDATE storage_quotas
        SET used_bytes = CASE WHEN used_bytes - ? < 0 THEN 0 ELSE used_bytes - ? END,
            updated_at = ?
        WHERE owner_id = ?`)

	if _, err := r.db.ExecContext(ctx, query, deltaBytes, deltaBytes, time.Now().UTC(), ownerID); err != nil {
		return fmt.Errorf("failed to release space: %w", err)
	}

	return nil
}

func (r *StorageQuotaRepository) UpdateQuotaLimit(ctx context.Context, ownerID string, newLimit int64) error {
	if err := r.ensure(ctx, ownerID); err != nil {
		return err
	}

	query := r.db.Rebind(`
        UPDATE storage_quotas
        SET total_bytes_limit = ?,
            updated_at = ?
        WHERE owner_id = ?`)

	result, err := r.db.ExecContext(ctx, query, newLimit, time.Now().UTC(), ownerID)
	if err != nil {
		return fmt.Errorf("failed to update quota limit: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}

	if rows == 0 {
		return fmt.Errorf("quota not found for owner: %s", ownerID)
	}

	return nil
}

// CalculateAndUpdateUsedSpace пересчитывает занятое место по живым элементам.
// Возвращает значения до и после пересчета.
func (r *StorageQuotaRepository) CalculateAndUpdateUsedSpace(ctx context.Context, ownerID string) (int64, int64, error) {
	quota, err := r.GetQuota(ctx, ownerID)
	if err != nil {
		return 0, 0, err
	}

	var usedBytes int64
	err = sqlx.GetContext(ctx, r.db, &usedBytes, r.db.Rebind(`
        SELECT COALESCE(SUM(file_size), 0)
        FROM items
        WHERE owner_id = ? AND is_deleted = FALSE`), ownerID)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to calculate used space: %w", err)
	}

	query := r.db.Rebind(`
        UPDATE storage_quotas
        SET used_bytes = ?,
            updated_at = ?
        WHERE owner_id = ?`)

	if _, err := r.db.ExecContext(ctx, query, usedBytes, time.Now().UTC(), ownerID); err != nil {
		return 0, 0, fmt.Errorf("failed to update used space: %w", err)
	}

	return quota.UsedBytes, usedBytes, nil
}

// ListOwners возвращает всех владельцев, у которых есть квота или папки
func (r *StorageQuotaRepository) ListOwners(ctx context.Context) ([]string, error) {
	var owners []string
	err := sqlx.SelectContext(ctx, r.db, &owners, `
        SELECT owner_id FROM storage_quotas
        UNION
        SELECT owner_id FROM folders
        ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list owners: %w", err)
	}
	return owners, nil
}
