package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"storagedrive/internal/domain"
)

const folderColumns = `id, owner_id, parent_id, name, type, total_items, storage_used,
        is_deleted, delete_batch, deleted_at, created_at, updated_at`

// subtreeQuery выбирает живую папку и всех ее живых потомков.
// UNION вместо UNION ALL останавливает обход, даже если в данных есть цикл.
const subtreeQuery = `
        WITH RECURSIVE subtree(id) AS (
            SELECT id FROM folders
            WHERE id = ? AND owner_id = ? AND is_deleted = FALSE

            UNION

            SELECT f.id
            FROM folders f
            INNER JOIN subtree s ON f.parent_id = s.id
            WHERE f.is_deleted = FALSE
        )`

type FolderRepository struct {
	db sqlx.ExtContext
}

func NewFolderRepository(db sqlx.ExtContext) *FolderRepository {
	return &FolderRepository{db: db}
}

func (r *FolderRepository) Create(ctx context.Context, folder *domain.Folder) error {
	query := r.db.Rebind(`
        INSERT INTO folders (id, owner_id, parent_id, name, type, total_items, storage_used,
                             is_deleted, created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, FALSE, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		folder.ID,
		folder.OwnerID,
		folder.ParentID,
		folder.Name,
		folder.Type,
		folder.TotalItems,
		folder.StorageUsed,
		folder.CreatedAt,
		folder.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("folder %q: %w", folder.Name, domain.ErrDuplicateName)
		}
		return fmt.Errorf("failed to create folder: %w", err)
	}

	return nil
}

func (r *FolderRepository) get(ctx context.Context, query string, args ...interface{}) (*domain.Folder, error) {
	var folder domain.Folder
	err := sqlx.GetContext(ctx, r.db, &folder, r.db.Rebind(query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get folder: %w", err)
	}
	return &folder, nil
}

// GetByID возвращает живую папку владельца
func (r *FolderRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Folder, error) {
	return r.get(ctx, `SELECT `+folderColumns+` FROM folders
        WHERE id = ? AND owner_id = ? AND is_deleted = FALSE`, id, ownerID)
}

// GetByIDIncludingDeleted используется путями восстановления
func (r *FolderRepository) GetByIDIncludingDeleted(ctx context.Context, ownerID, id string) (*domain.Folder, error) {
	return r.get(ctx, `SELECT `+folderColumns+` FROM folders
        WHERE id = ? AND owner_id = ?`, id, ownerID)
}

// GetAnyOwner возвращает живую папку без фильтра по владельцу,
// чтобы сервис мог отличить чужую папку от отсутствующей.
func (r *FolderRepository) GetAnyOwner(ctx context.Context, id string) (*domain.Folder, error) {
	return r.get(ctx, `SELECT `+folderColumns+` FROM folders
        WHERE id = ? AND is_deleted = FALSE`, id)
}

// ParentOf возвращает родителя папки независимо от ее состояния
func (r *FolderRepository) ParentOf(ctx context.Context, ownerID, id string) (*string, error) {
	var parentID sql.NullString
	err := sqlx.GetContext(ctx, r.db, &parentID, r.db.Rebind(`
        SELECT parent_id FROM folders WHERE id = ? AND owner_id = ?`), id, ownerID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get parent folder: %w", err)
	}
	if !parentID.Valid {
		return nil, nil
	}
	return &parentID.String, nil
}

// CheckFolderExists проверяет существование папки с таким именем на том же уровне
func (r *FolderRepository) CheckFolderExists(ctx context.Context, ownerID string, parentID *string, name, excludeID string) (bool, error) {
	parent := ""
	if parentID != nil {
		parent = *parentID
	}

	var exists bool
	err := sqlx.GetContext(ctx, r.db, &exists, r.db.Rebind(`
        SELECT EXISTS(
            SELECT 1 FROM folders
            WHERE owner_id = ? AND COALESCE(parent_id, '') = ? AND name = ?
              AND id <> ? AND is_deleted = FALSE
        )`), ownerID, parent, name, excludeID)
	if err != nil {
		return false, fmt.Errorf("failed to check folder existence: %w", err)
	}

	return exists, nil
}

func (r *FolderRepository) exec(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateName
		}
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// UpdateFolderName обновляет имя папки
func (r *FolderRepository) UpdateFolderName(ctx context.Context, ownerID, id, name string) error {
	err := r.exec(ctx, `
        UPDATE folders SET name = ?, updated_at = ?
        WHERE id = ? AND owner_id = ? AND is_deleted = FALSE`,
		name, time.Now().UTC(), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to update folder name: %w", err)
	}
	return nil
}

// UpdateFolderParent переносит папку. nil означает корень.
func (r *FolderRepository) UpdateFolderParent(ctx context.Context, ownerID, id string, parentID *string) error {
	err := r.exec(ctx, `
        UPDATE folders SET parent_id = ?, updated_at = ?
        WHERE id = ? AND owner_id = ?`,
		parentID, time.Now().UTC(), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to update folder parent: %w", err)
	}
	return nil
}

// AdjustCounters сдвигает счетчики папки, не опуская их ниже нуля
func (r *FolderRepository) AdjustCounters(ctx context.Context, id string, deltaItems, deltaBytes int64) error {
	err := r.exec(ctx, `
        UPDATE folders
        SET total_items  = CASE WHEN total_items + ? < 0 THEN 0 ELSE total_items + ? END,
            storage_used = CASE WHEN storage_used + ? < 0 THEN 0 ELSE storage_used + ? END,
            updated_at   = ?
        WHERE id = ?`,
		deltaItems, deltaItems, deltaBytes, deltaBytes, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to adjust folder counters: %w", err)
	}
	return nil
}

// RecalculateCounters пересчитывает счетчики по живым элементам.
// Пустой ids означает все папки владельца.
func (r *FolderRepository) RecalculateCounters(ctx context.Context, ownerID string, ids []string) (int64, error) {
	query := `
        UPDATE folders
        SET total_items = (
                SELECT COUNT(*) FROM items i
                WHERE i.folder_id = folders.id AND i.is_deleted = FALSE
            ),
            storage_used = (
                SELECT COALESCE(SUM(i.file_size), 0) FROM items i
                WHERE i.folder_id = folders.id AND i.is_deleted = FALSE
            ),
            updated_at = ?
        WHERE owner_id = ?`
	args := []interface{}{time.Now().UTC(), ownerID}

	if len(ids) > 0 {
		var err error
		query, args, err = sqlx.In(query+` AND id IN (?)`, append(args, ids)...)
		if err != nil {
			return 0, fmt.Errorf("failed to build recalculate query: %w", err)
		}
	}

	result, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...)
	if err != nil {
		return 0, fmt.Errorf("failed to recalculate folder counters: %w", err)
	}

	return result.RowsAffected()
}

func (r *FolderRepository) List(ctx context.Context, ownerID string, folderType *domain.FolderType, p domain.Pagination) ([]domain.Folder, int64, error) {
	where := `owner_id = ? AND is_deleted = FALSE`
	args := []interface{}{ownerID}
	if folderType != nil {
		where += ` AND type = ?`
		args = append(args, *folderType)
	}

	var total int64
	if err := sqlx.GetContext(ctx, r.db, &total, r.db.Rebind(`SELECT COUNT(*) FROM folders WHERE `+where), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count folders: %w", err)
	}

	folders := []domain.Folder{}
	err := sqlx.SelectContext(ctx, r.db, &folders, r.db.Rebind(`
        SELECT `+folderColumns+` FROM folders
        WHERE `+where+`
        ORDER BY created_at DESC, id
        LIMIT ? OFFSET ?`), append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list folders: %w", err)
	}

	return folders, total, nil
}

// ListChildren возвращает живые подпапки
func (r *FolderRepository) ListChildren(ctx context.Context, ownerID, parentID string) ([]domain.Folder, error) {
	folders := []domain.Folder{}
	err := sqlx.SelectContext(ctx, r.db, &folders, r.db.Rebind(`
        SELECT `+folderColumns+` FROM folders
        WHERE owner_id = ? AND parent_id = ? AND is_deleted = FALSE
        ORDER BY name`), ownerID, parentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list subfolders: %w", err)
	}
	return folders, nil
}

// SubtreeIDs возвращает id живой папки и всех ее живых потомков
func (r *FolderRepository) SubtreeIDs(ctx context.Context, ownerID, rootID string) ([]string, error) {
	var ids []string
	err := sqlx.SelectContext(ctx, r.db, &ids, r.db.Rebind(subtreeQuery+`
        SELECT id FROM subtree`), rootID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subtree: %w", err)
	}
	return ids, nil
}

// Subtree возвращает полные записи живого поддерева
func (r *FolderRepository) Subtree(ctx context.Context, ownerID, rootID string) ([]domain.Folder, error) {
	folders := []domain.Folder{}
	err := sqlx.SelectContext(ctx, r.db, &folders, r.db.Rebind(subtreeQuery+`
        SELECT `+folderColumns+` FROM folders
        WHERE id IN (SELECT id FROM subtree)
        ORDER BY created_at, id`), rootID, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get subtree: %w", err)
	}
	return folders, nil
}

// MarkDeleted помечает папки удаленными одной пачкой и обнуляет их счетчики:
// элементы внутри удаляются той же операцией.
func (r *FolderRepository) MarkDeleted(ctx context.Context, ownerID string, ids []string, batch string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
        UPDATE folders
        SET is_deleted = TRUE, delete_batch = ?, deleted_at = ?,
            total_items = 0, storage_used = 0, updated_at = ?
        WHERE owner_id = ? AND is_deleted = FALSE AND id IN (?)`,
		batch, at, at, ownerID, ids)
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to mark folders as deleted: %w", err)
	}
	return nil
}

// BatchSubtree возвращает удаленную папку и ее потомков, удаленных той же пачкой
func (r *FolderRepository) BatchSubtree(ctx context.Context, ownerID, rootID, batch string) ([]string, error) {
	var ids []string
	err := sqlx.SelectContext(ctx, r.db, &ids, r.db.Rebind(`
        WITH RECURSIVE subtree(id) AS (
            SELECT id FROM folders
            WHERE id = ? AND owner_id = ? AND delete_batch = ? AND is_deleted = TRUE

            UNION

            SELECT f.id
            FROM folders f
            INNER JOIN subtree s ON f.parent_id = s.id
            WHERE f.delete_batch = ? AND f.is_deleted = TRUE
        )
        SELECT id FROM subtree`), rootID, ownerID, batch, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to get deleted subtree: %w", err)
	}
	return ids, nil
}

// Restore снимает пометку удаления с папок
func (r *FolderRepository) Restore(ctx context.Context, ownerID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
        UPDATE folders
        SET is_deleted = FALSE, delete_batch = NULL, deleted_at = NULL, updated_at = ?
        WHERE owner_id = ? AND id IN (?)`,
		time.Now().UTC(), ownerID, ids)
	if err != nil {
		return fmt.Errorf("failed to build restore query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateName
		}
		return fmt.Errorf("failed to restore folders: %w", err)
	}
	return nil
}

func (r *FolderRepository) Stats(ctx context.Context, ownerID string) (*domain.FolderStats, error) {
	var stats domain.FolderStats
	err := sqlx.GetContext(ctx, r.db, &stats, r.db.Rebind(`
        SELECT COUNT(*) AS total_folders,
               COALESCE(SUM(total_items), 0) AS total_items,
               COALESCE(SUM(storage_used), 0) AS total_storage_used
        FROM folders
        WHERE owner_id = ? AND is_deleted = FALSE`), ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get folder stats: %w", err)
	}
	return &stats, nil
}
