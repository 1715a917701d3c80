package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"storagedrive/internal/domain"
)

var itemColumnList = []string{
	"id", "owner_id", "folder_id", "name", "type", "content", "file_url", "file_key",
	"file_size", "mime_type", "thumbnail_url", "is_favorite", "is_deleted", "delete_batch",
	"deleted_at", "created_at", "updated_at",
}

var itemColumns = strings.Join(itemColumnList, ", ")

// prefixedItemColumns нужен для запросов с JOIN
func prefixedItemColumns(alias string) string {
	cols := make([]string, len(itemColumnList))
	for i, c := range itemColumnList {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

type ItemRepository struct {
	db sqlx.ExtContext
}

func NewItemRepository(db sqlx.ExtContext) *ItemRepository {
	return &ItemRepository{db: db}
}

func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	query := r.db.Rebind(`
        INSERT INTO items (id, owner_id, folder_id, name, type, content, file_url, file_key,
                           file_size, mime_type, thumbnail_url, is_favorite, is_deleted,
                           created_at, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, FALSE, ?, ?)`)

	_, err := r.db.ExecContext(ctx, query,
		item.ID,
		item.OwnerID,
		item.FolderID,
		item.Name,
		item.Type,
		item.Content,
		item.FileURL,
		item.FileKey,
		item.FileSize,
		item.MIMEType,
		item.ThumbnailURL,
		item.IsFavorite,
		item.CreatedAt,
		item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("item %q: %w", item.Name, domain.ErrDuplicateName)
		}
		return fmt.Errorf("failed to create item: %w", err)
	}

	return nil
}

func (r *ItemRepository) get(ctx context.Context, query string, args ...interface{}) (*domain.Item, error) {
	var item domain.Item
	err := sqlx.GetContext(ctx, r.db, &item, r.db.Rebind(query), args...)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get item: %w", err)
	}
	return &item, nil
}

// GetByID возвращает живой элемент владельца
func (r *ItemRepository) GetByID(ctx context.Context, ownerID, id string) (*domain.Item, error) {
	return r.get(ctx, `SELECT `+itemColumns+` FROM items
        WHERE id = ? AND owner_id = ? AND is_deleted = FALSE`, id, ownerID)
}

func (r *ItemRepository) GetByIDIncludingDeleted(ctx context.Context, ownerID, id string) (*domain.Item, error) {
	return r.get(ctx, `SELECT `+itemColumns+` FROM items
        WHERE id = ? AND owner_id = ?`, id, ownerID)
}

// GetActive возвращает живой элемент любого владельца (для избранного)
func (r *ItemRepository) GetActive(ctx context.Context, id string) (*domain.Item, error) {
	return r.get(ctx, `SELECT `+itemColumns+` FROM items
        WHERE id = ? AND is_deleted = FALSE`, id)
}

// NameExists проверяет, занято ли имя среди живых элементов папки
func (r *ItemRepository) NameExists(ctx context.Context, ownerID, folderID, name, excludeID string) (bool, error) {
	var exists bool
	err := sqlx.GetContext(ctx, r.db, &exists, r.db.Rebind(`
        SELECT EXISTS(
            SELECT 1 FROM items
            WHERE owner_id = ? AND folder_id = ? AND name = ? AND id <> ? AND is_deleted = FALSE
        )`), ownerID, folderID, name, excludeID)
	if err != nil {
		return false, fmt.Errorf("failed to check item name: %w", err)
	}
	return exists, nil
}

func (r *ItemRepository) exec(ctx context.Context, query string, args ...interface{}) error {
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

func (r *ItemRepository) UpdateName(ctx context.Context, ownerID, id, name string) error {
	err := r.exec(ctx, `
        UPDATE items SET name = ?, updated_at = ?
        WHERE id = ? AND owner_id = ? AND is_deleted = FALSE`,
		name, time.Now().UTC(), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to rename item: %w", err)
	}
	return nil
}

func (r *ItemRepository) UpdateFolder(ctx context.Context, ownerID, id, folderID string) error {
	err := r.exec(ctx, `
        UPDATE items SET folder_id = ?, updated_at = ?
        WHERE id = ? AND owner_id = ? AND is_deleted = FALSE`,
		folderID, time.Now().UTC(), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to move item: %w", err)
	}
	return nil
}

// SoftDelete помечает один элемент удаленным. Уже удаленный не трогается.
func (r *ItemRepository) SoftDelete(ctx context.Context, ownerID, id, batch string, at time.Time) error {
	err := r.exec(ctx, `
        UPDATE items SET is_deleted = TRUE, delete_batch = ?, deleted_at = ?, updated_at = ?
        WHERE id = ? AND owner_id = ? AND is_deleted = FALSE`,
		batch, at, at, id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to delete item: %w", err)
	}
	return nil
}

// Restore возвращает элемент под указанным именем
func (r *ItemRepository) Restore(ctx context.Context, ownerID, id, name string) error {
	err := r.exec(ctx, `
        UPDATE items SET is_deleted = FALSE, delete_batch = NULL, deleted_at = NULL,
                         name = ?, updated_at = ?
        WHERE id = ? AND owner_id = ? AND is_deleted = TRUE`,
		name, time.Now().UTC(), id, ownerID)
	if err != nil {
		return fmt.Errorf("failed to restore item: %w", err)
	}
	return nil
}

func (r *ItemRepository) SetFavorite(ctx context.Context, id string, favorite bool) error {
	err := r.exec(ctx, `UPDATE items SET is_favorite = ?, updated_at = ? WHERE id = ?`,
		favorite, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update favorite flag: %w", err)
	}
	return nil
}

// Search выбирает элементы владельца по фильтру.
// Без явного IsDeleted возвращаются только живые элементы.
func (r *ItemRepository) Search(ctx context.Context, ownerID string, f domain.ItemFilter) ([]domain.Item, int64, error) {
	conds := []string{"owner_id = ?"}
	args := []interface{}{ownerID}

	if f.IsDeleted != nil {
		conds = append(conds, "is_deleted = ?")
		args = append(args, *f.IsDeleted)
	} else {
		conds = append(conds, "is_deleted = FALSE")
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		conds = append(conds, `LOWER(name) LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(strings.ToLower(name))+"%")
	}
	if f.Type != nil {
		conds = append(conds, "type = ?")
		args = append(args, *f.Type)
	}
	if f.FolderID != nil {
		conds = append(conds, "folder_id = ?")
		args = append(args, *f.FolderID)
	}
	if f.IsFavorite != nil {
		conds = append(conds, "is_favorite = ?")
		args = append(args, *f.IsFavorite)
	}

	where := strings.Join(conds, " AND ")
	p := f.Pagination.Normalize()

	var total int64
	if err := sqlx.GetContext(ctx, r.db, &total, r.db.Rebind(`SELECT COUNT(*) FROM items WHERE `+where), args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count items: %w", err)
	}

	items := []domain.Item{}
	err := sqlx.SelectContext(ctx, r.db, &items, r.db.Rebind(`
        SELECT `+itemColumns+` FROM items
        WHERE `+where+`
        ORDER BY created_at DESC, id
        LIMIT ? OFFSET ?`), append(args, p.Limit, p.Offset())...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search items: %w", err)
	}

	return items, total, nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ListInFolders возвращает живые элементы указанных папок
func (r *ItemRepository) ListInFolders(ctx context.Context, ownerID string, folderIDs []string) ([]domain.Item, error) {
	items := []domain.Item{}
	if len(folderIDs) == 0 {
		return items, nil
	}

	query, args, err := sqlx.In(`SELECT `+itemColumns+` FROM items
        WHERE owner_id = ? AND is_deleted = FALSE AND folder_id IN (?)
        ORDER BY created_at, id`, ownerID, folderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to build items query: %w", err)
	}

	if err := sqlx.SelectContext(ctx, r.db, &items, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to list items: %w", err)
	}
	return items, nil
}

// SumActiveInFolders считает живые элементы и их объем в указанных папках
func (r *ItemRepository) SumActiveInFolders(ctx context.Context, ownerID string, folderIDs []string) (int64, int64, error) {
	if len(folderIDs) == 0 {
		return 0, 0, nil
	}

	query, args, err := sqlx.In(`
        SELECT COUNT(*) AS cnt, COALESCE(SUM(file_size), 0) AS bytes
        FROM items
        WHERE owner_id = ? AND is_deleted = FALSE AND folder_id IN (?)`, ownerID, folderIDs)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to build sum query: %w", err)
	}

	var sum struct {
		Count int64 `db:"cnt"`
		Bytes int64 `db:"bytes"`
	}
	if err := sqlx.GetContext(ctx, r.db, &sum, r.db.Rebind(query), args...); err != nil {
		return 0, 0, fmt.Errorf("failed to sum items: %w", err)
	}
	return sum.Count, sum.Bytes, nil
}

// MarkDeletedInFolders удаляет все живые элементы папок одной пачкой
func (r *ItemRepository) MarkDeletedInFolders(ctx context.Context, ownerID string, folderIDs []string, batch string, at time.Time) error {
	if len(folderIDs) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
        UPDATE items SET is_deleted = TRUE, delete_batch = ?, deleted_at = ?, updated_at = ?
        WHERE owner_id = ? AND is_deleted = FALSE AND folder_id IN (?)`,
		batch, at, at, ownerID, folderIDs)
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		return fmt.Errorf("failed to mark items as deleted: %w", err)
	}
	return nil
}

// SumBatch возвращает объем элементов пачки, лежащих в указанных папках
func (r *ItemRepository) SumBatch(ctx context.Context, ownerID, batch string, folderIDs []string) (int64, error) {
	if len(folderIDs) == 0 {
		return 0, nil
	}

	query, args, err := sqlx.In(`
        SELECT COALESCE(SUM(file_size), 0) FROM items
        WHERE owner_id = ? AND delete_batch = ? AND is_deleted = TRUE AND folder_id IN (?)`,
		ownerID, batch, folderIDs)
	if err != nil {
		return 0, fmt.Errorf("failed to build sum query: %w", err)
	}

	var bytes int64
	if err := sqlx.GetContext(ctx, r.db, &bytes, r.db.Rebind(query), args...); err != nil {
		return 0, fmt.Errorf("failed to sum deleted items: %w", err)
	}
	return bytes, nil
}

// RestoreBatch восстанавливает элементы пачки в указанных папках
func (r *ItemRepository) RestoreBatch(ctx context.Context, ownerID, batch string, folderIDs []string) error {
	if len(folderIDs) == 0 {
		return nil
	}

	query, args, err := sqlx.In(`
        UPDATE items SET is_deleted = FALSE, delete_batch = NULL, deleted_at = NULL, updated_at = ?
        WHERE owner_id = ? AND delete_batch = ? AND is_deleted = TRUE AND folder_id IN (?)`,
		time.Now().UTC(), ownerID, batch, folderIDs)
	if err != nil {
		return fmt.Errorf("failed to build restore query: %w", err)
	}

	if _, err := r.db.ExecContext(ctx, r.db.Rebind(query), args...); err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicateName
		}
		return fmt.Errorf("failed to restore items: %w", err)
	}
	return nil
}
