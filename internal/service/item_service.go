package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storagedrive/internal/domain"
	"storagedrive/internal/metrics"
	"storagedrive/internal/repository"
)

const thumbnailMIMEType = "image/jpeg"

type ItemService struct {
	store       *repository.Store
	uploader    Uploader
	thumbnailer Thumbnailer
	activity    ActivityRecorder
	log         *zap.Logger
	now         func() time.Time
}

// NewItemService создает сервис элементов. uploader и thumbnailer могут быть nil:
// без загрузчика создаются только заметки, без thumbnailer превью не строятся.
func NewItemService(
	store *repository.Store,
	uploader Uploader,
	thumbnailer Thumbnailer,
	activity ActivityRecorder,
	log *zap.Logger,
) *ItemService {
	return &ItemService{
		store:       store,
		uploader:    uploader,
		thumbnailer: thumbnailer,
		activity:    activity,
		log:         log.Named("item_service"),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CreateItem создает элемент в папке владельца. Файл загружается до записи
// в базу; если запись не удалась, загруженные объекты удаляются.
func (s *ItemService) CreateItem(ctx context.Context, ownerID string, in domain.CreateItemInput) (*domain.Item, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	name, err := validateName(in.Name)
	if err != nil {
		return nil, err
	}
	if !in.Type.Valid() {
		return nil, fmt.Errorf("%w: item type %q", domain.ErrInvalidType, in.Type)
	}

	var size int64
	if in.Type.RequiresFile() {
		if in.File == nil || len(in.File.Data) == 0 {
			return nil, domain.ErrMissingFile
		}
		size = int64(len(in.File.Data))
	} else {
		if in.Content == nil || *in.Content == "" {
			return nil, domain.ErrMissingContent
		}
		size = int64(len(*in.Content))
	}

	folder, err := s.store.Folders.GetAnyOwner(ctx, in.FolderID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrFolderNotFound
		}
		return nil, err
	}
	if folder.OwnerID != ownerID {
		return nil, domain.ErrForbidden
	}
	if !folder.Type.Accepts(in.Type) {
		return nil, fmt.Errorf("%w: %s item in %s folder", domain.ErrTypeMismatch, in.Type, folder.Type)
	}

	// Проверка до загрузки, чтобы не отправлять файл, который все равно не поместится
	available, err := s.checkSpace(ctx, ownerID, size)
	if err != nil {
		return nil, err
	}
	if !available {
		metrics.QuotaRejections.Inc()
		return nil, domain.ErrQuotaExceeded
	}

	now := s.now()
	item := &domain.Item{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		FolderID:  folder.ID,
		Type:      in.Type,
		FileSize:  size,
		CreatedAt: now,
		UpdatedAt: now,
	}

	var uploaded []string
	if in.Type.RequiresFile() {
		uploaded, err = s.upload(ctx, ownerID, item, in.File)
		if err != nil {
			return nil, err
		}
	} else {
		item.Content = in.Content
	}

	err = s.store.InTx(ctx, func(r *repository.Repositories) error {
		if _, err := r.Folders.GetByID(ctx, ownerID, folder.ID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrFolderNotFound
			}
			return err
		}

		resolved, err := resolveName(ctx, name, numberedName, func(ctx context.Context, candidate string) (bool, error) {
			return r.Items.NameExists(ctx, ownerID, folder.ID, candidate, "")
		})
		if err != nil {
			return err
		}
		item.Name = resolved

		if err := r.Quotas.Reserve(ctx, ownerID, size); err != nil {
			return err
		}
		if err := r.Items.Create(ctx, item); err != nil {
			return err
		}
		return r.Folders.AdjustCounters(ctx, folder.ID, 1, size)
	})
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			metrics.QuotaRejections.Inc()
		}
		s.discard(ctx, uploaded)
		return nil, err
	}

	s.log.Debug("item created",
		zap.String("owner_id", ownerID),
		zap.String("item_id", item.ID),
		zap.String("type", string(item.Type)),
		zap.Int64("size", size))

	s.activity.Record(ownerID, domain.ItemRef(item.FolderID, item.ID), domain.ActionCreated)
	return item, nil
}

func (s *ItemService) checkSpace(ctx context.Context, ownerID string, size int64) (bool, error) {
	quota, err := s.store.Quotas.GetQuota(ctx, ownerID)
	if err != nil {
		return false, err
	}
	return quota.UsedBytes+size <= quota.TotalBytesLimit, nil
}

// upload отправляет файл и, для изображений, превью. Возвращает ключи
// загруженных объектов для отката.
func (s *ItemService) upload(ctx context.Context, ownerID string, item *domain.Item, file *domain.FileUpload) ([]string, error) {
	if s.uploader == nil {
		return nil, fmt.Errorf("%w: object storage is not configured", domain.ErrUploadFailure)
	}

	key := objectKey(ownerID, item.ID, file.Name)
	result, err := s.uploader.Upload(ctx, key, file)
	if err != nil {
		s.log.Error("failed to upload file",
			zap.String("owner_id", ownerID),
			zap.String("key", key),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", domain.ErrUploadFailure, err)
	}

	item.FileURL = &result.URL
	item.FileKey = &result.Key
	if file.MIMEType != "" {
		mimeType := file.MIMEType
		item.MIMEType = &mimeType
	}
	uploaded := []string{result.Key}

	if item.Type != domain.ItemTypeImage || s.thumbnailer == nil {
		return uploaded, nil
	}

	thumb, err := s.thumbnailer.Thumbnail(file.Data)
	if err != nil {
		s.log.Warn("failed to build thumbnail", zap.String("item_id", item.ID), zap.Error(err))
		return uploaded, nil
	}

	thumbResult, err := s.uploader.Upload(ctx, thumbnailKey(key), &domain.FileUpload{
		Name:     "thumbnail.jpg",
		MIMEType: thumbnailMIMEType,
		Size:     int64(len(thumb)),
		Data:     thumb,
	})
	if err != nil {
		s.log.Warn("failed to upload thumbnail", zap.String("item_id", item.ID), zap.Error(err))
		return uploaded, nil
	}

	item.ThumbnailURL = &thumbResult.URL
	return append(uploaded, thumbResult.Key), nil
}

// discard удаляет загруженные объекты после неудачной записи
func (s *ItemService) discard(ctx context.Context, keys []string) {
	ctx = context.WithoutCancel(ctx)
	for _, key := range keys {
		if err := s.uploader.Delete(ctx, key); err != nil {
			s.log.Error("failed to delete orphaned object", zap.String("key", key), zap.Error(err))
		}
	}
}

func objectKey(ownerID, itemID, fileName string) string {
	ext := strings.ToLower(path.Ext(fileName))
	return fmt.Sprintf("%s/%s%s", ownerID, itemID, ext)
}

func thumbnailKey(key string) string {
	return "thumbnails/" + strings.TrimSuffix(key, path.Ext(key)) + ".jpg"
}

func (s *ItemService) GetItem(ctx context.Context, ownerID, itemID string) (*domain.Item, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.store.Items.GetByID(ctx, ownerID, itemID)
}

func (s *ItemService) RenameItem(ctx context.Context, ownerID, itemID, newName string) (*domain.Item, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	newName, err := validateName(newName)
	if err != nil {
		return nil, err
	}

	var item *domain.Item
	err = s.store.InTx(ctx, func(r *repository.Repositories) error {
		current, err := r.Items.GetByID(ctx, ownerID, itemID)
		if err != nil {
			return err
		}

		exists, err := r.Items.NameExists(ctx, ownerID, current.FolderID, newName, itemID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("item %q: %w", newName, domain.ErrDuplicateName)
		}

		if err := r.Items.UpdateName(ctx, ownerID, itemID, newName); err != nil {
			return err
		}

		item, err = r.Items.GetByID(ctx, ownerID, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ownerID, domain.ItemRef(item.FolderID, item.ID), domain.ActionRenamed)
	return item, nil
}

// DeleteItem помечает элемент удаленным и списывает его объем
// со счетчиков папки и владельца
func (s *ItemService) DeleteItem(ctx context.Context, ownerID, itemID string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}

	var item *domain.Item
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		var err error
		item, err = r.Items.GetByIDIncludingDeleted(ctx, ownerID, itemID)
		if err != nil {
			return err
		}
		if item.IsDeleted {
			return fmt.Errorf("item %s: %w", itemID, domain.ErrAlreadyDeleted)
		}

		if err := r.Items.SoftDelete(ctx, ownerID, itemID, uuid.NewString(), s.now()); err != nil {
			return err
		}
		if err := r.Folders.AdjustCounters(ctx, item.FolderID, -1, -item.FileSize); err != nil {
			return err
		}
		return r.Quotas.Release(ctx, ownerID, item.FileSize)
	})
	if err != nil {
		return err
	}

	s.activity.Record(ownerID, domain.ItemRef(item.FolderID, item.ID), domain.ActionDeleted)
	return nil
}

// RestoreItem возвращает удаленный элемент в его папку. Занятое имя
// разрешается суффиксом " (Copy N)".
func (s *ItemService) RestoreItem(ctx context.Context, ownerID, itemID string) (*domain.Item, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	var item *domain.Item
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		deleted, err := r.Items.GetByIDIncludingDeleted(ctx, ownerID, itemID)
		if err != nil {
			return err
		}
		if !deleted.IsDeleted {
			return fmt.Errorf("item %s: %w", itemID, domain.ErrNotDeleted)
		}

		if _, err := r.Folders.GetByID(ctx, ownerID, deleted.FolderID); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("restore parent folder first: %w", domain.ErrFolderNotFound)
			}
			return err
		}

		name, err := resolveName(ctx, deleted.Name, numberedName, func(ctx context.Context, candidate string) (bool, error) {
			return r.Items.NameExists(ctx, ownerID, deleted.FolderID, candidate, itemID)
		})
		if err != nil {
			return err
		}

		if err := r.Quotas.Reserve(ctx, ownerID, deleted.FileSize); err != nil {
			return err
		}
		if err := r.Items.Restore(ctx, ownerID, itemID, name); err != nil {
			return err
		}
		if err := r.Folders.AdjustCounters(ctx, deleted.FolderID, 1, deleted.FileSize); err != nil {
			return err
		}

		item, err = r.Items.GetByID(ctx, ownerID, itemID)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			metrics.QuotaRejections.Inc()
		}
		return nil, err
	}

	s.activity.Record(ownerID, domain.ItemRef(item.FolderID, item.ID), domain.ActionRestored)
	return item, nil
}

// MoveItem переносит элемент в другую папку владельца вместе с его объемом
func (s *ItemService) MoveItem(ctx context.Context, ownerID, itemID, targetFolderID string) (*domain.Item, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	var item *domain.Item
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		current, err := r.Items.GetByID(ctx, ownerID, itemID)
		if err != nil {
			return err
		}
		if current.FolderID == targetFolderID {
			item = current
			return nil
		}

		target, err := r.Folders.GetByID(ctx, ownerID, targetFolderID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("target folder: %w", domain.ErrNotFound)
			}
			return err
		}
		if !target.Type.Accepts(current.Type) {
			return fmt.Errorf("%w: %s item in %s folder", domain.ErrTypeMismatch, current.Type, target.Type)
		}

		exists, err := r.Items.NameExists(ctx, ownerID, targetFolderID, current.Name, itemID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("item %q: %w", current.Name, domain.ErrDuplicateName)
		}

		if err := r.Items.UpdateFolder(ctx, ownerID, itemID, targetFolderID); err != nil {
			return err
		}
		if err := r.Folders.AdjustCounters(ctx, current.FolderID, -1, -current.FileSize); err != nil {
			return err
		}
		if err := r.Folders.AdjustCounters(ctx, targetFolderID, 1, current.FileSize); err != nil {
			return err
		}

		item, err = r.Items.GetByID(ctx, ownerID, itemID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ownerID, domain.ItemRef(item.FolderID, item.ID), domain.ActionMoved)
	return item, nil
}

func (s *ItemService) ListByFolder(ctx context.Context, ownerID, folderID string, p domain.Pagination) (*domain.ItemPage, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if _, err := s.store.Folders.GetByID(ctx, ownerID, folderID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrFolderNotFound
		}
		return nil, err
	}
	return s.Search(ctx, ownerID, domain.ItemFilter{FolderID: &folderID, Pagination: p})
}

func (s *ItemService) ListAll(ctx context.Context, ownerID string, p domain.Pagination) (*domain.ItemPage, error) {
	return s.Search(ctx, ownerID, domain.ItemFilter{Pagination: p})
}

func (s *ItemService) ListByType(ctx context.Context, ownerID string, itemType domain.ItemType, p domain.Pagination) (*domain.ItemPage, error) {
	if !itemType.Valid() {
		return nil, fmt.Errorf("%w: item type %q", domain.ErrInvalidType, itemType)
	}
	return s.Search(ctx, ownerID, domain.ItemFilter{Type: &itemType, Pagination: p})
}

// Search ищет элементы владельца по фильтру
func (s *ItemService) Search(ctx context.Context, ownerID string, filter domain.ItemFilter) (*domain.ItemPage, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if filter.Type != nil && !filter.Type.Valid() {
		return nil, fmt.Errorf("%w: item type %q", domain.ErrInvalidType, *filter.Type)
	}
	filter.Pagination = filter.Pagination.Normalize()

	items, total, err := s.store.Items.Search(ctx, ownerID, filter)
	if err != nil {
		return nil, err
	}

	return &domain.ItemPage{
		Items: items,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}
