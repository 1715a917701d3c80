package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"storagedrive/internal/domain"
	"storagedrive/internal/metrics"
	"storagedrive/internal/repository"
)

// CopyService дублирует элементы и поддеревья папок. Копии файлов
// ссылаются на те же объекты в хранилище.
type CopyService struct {
	store    *repository.Store
	activity ActivityRecorder
	log      *zap.Logger
	now      func() time.Time
}

func NewCopyService(store *repository.Store, activity ActivityRecorder, log *zap.Logger) *CopyService {
	return &CopyService{
		store:    store,
		activity: activity,
		log:      log.Named("copy_service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// CopyItem создает копию элемента в целевой папке с именем "<name> (Copy)"
func (s *CopyService) CopyItem(ctx context.Context, ownerID, itemID, targetFolderID string) (*domain.Item, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	var copied *domain.Item
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		item, err := r.Items.GetByID(ctx, ownerID, itemID)
		if err != nil {
			return err
		}

		target, err := r.Folders.GetByID(ctx, ownerID, targetFolderID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("target folder: %w", domain.ErrNotFound)
			}
			return err
		}
		if !target.Type.Accepts(item.Type) {
			return fmt.Errorf("%w: %s item in %s folder", domain.ErrTypeMismatch, item.Type, target.Type)
		}

		if err := r.Quotas.Reserve(ctx, ownerID, item.FileSize); err != nil {
			return err
		}

		copied, err = s.copyItem(ctx, r, item, target.ID)
		if err != nil {
			return err
		}
		return r.Folders.AdjustCounters(ctx, target.ID, 1, item.FileSize)
	})
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			metrics.QuotaRejections.Inc()
		}
		return nil, err
	}

	s.activity.Record(ownerID, domain.ItemRef(copied.FolderID, copied.ID), domain.ActionCopied)
	return copied, nil
}

func (s *CopyService) copyItem(ctx context.Context, r *repository.Repositories, src *domain.Item, folderID string) (*domain.Item, error) {
	name, err := resolveName(ctx, src.Name, copyName, func(ctx context.Context, candidate string) (bool, error) {
		return r.Items.NameExists(ctx, src.OwnerID, folderID, candidate, "")
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	item := *src
	item.ID = uuid.NewString()
	item.FolderID = folderID
	item.Name = name
	item.IsFavorite = false
	item.IsDeleted = false
	item.DeleteBatch = nil
	item.DeletedAt = nil
	item.CreatedAt = now
	item.UpdatedAt = now

	if err := r.Items.Create(ctx, &item); err != nil {
		return nil, err
	}
	return &item, nil
}

// folderTree - снимок живого поддерева, по которому идет копирование
type folderTree struct {
	children map[string][]domain.Folder
	items    map[string][]domain.Item
	visited  map[string]struct{}
}

// CopyFolder рекурсивно копирует папку со всем содержимым в корень владельца.
// Каждая копия получает суффикс " (Copy)", при конфликте " (Copy 2)" и далее.
func (s *CopyService) CopyFolder(ctx context.Context, ownerID, folderID string) (*domain.Folder, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	var root *domain.Folder
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		src, err := r.Folders.GetByID(ctx, ownerID, folderID)
		if err != nil {
			return err
		}

		folders, err := r.Folders.Subtree(ctx, ownerID, folderID)
		if err != nil {
			return err
		}

		ids := make([]string, 0, len(folders))
		tree := &folderTree{
			children: make(map[string][]domain.Folder),
			items:    make(map[string][]domain.Item),
			visited:  make(map[string]struct{}),
		}
		for _, f := range folders {
			ids = append(ids, f.ID)
			if f.ID != folderID && f.ParentID != nil {
				tree.children[*f.ParentID] = append(tree.children[*f.ParentID], f)
			}
		}

		items, err := r.Items.ListInFolders(ctx, ownerID, ids)
		if err != nil {
			return err
		}
		var total int64
		for _, it := range items {
			tree.items[it.FolderID] = append(tree.items[it.FolderID], it)
			total += it.FileSize
		}

		if err := r.Quotas.Reserve(ctx, ownerID, total); err != nil {
			return err
		}

		root, err = s.copyFolder(ctx, r, tree, src, nil, 0)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			metrics.QuotaRejections.Inc()
		}
		return nil, err
	}

	s.log.Debug("folder duplicated",
		zap.String("owner_id", ownerID),
		zap.String("source_id", folderID),
		zap.String("copy_id", root.ID))

	s.activity.Record(ownerID, domain.FolderRef(root.ID), domain.ActionDuplicated)
	return root, nil
}

// copyFolder копирует src под parentID: сначала прямые элементы, затем подпапки
// в глубину. Повторно встреченная папка пропускается.
func (s *CopyService) copyFolder(
	ctx context.Context,
	r *repository.Repositories,
	tree *folderTree,
	src *domain.Folder,
	parentID *string,
	depth int,
) (*domain.Folder, error) {
	if depth > maxTreeDepth {
		return nil, fmt.Errorf("folder tree is deeper than %d levels", maxTreeDepth)
	}
	tree.visited[src.ID] = struct{}{}

	name, err := resolveName(ctx, src.Name, copyName, func(ctx context.Context, candidate string) (bool, error) {
		return r.Folders.CheckFolderExists(ctx, src.OwnerID, parentID, candidate, "")
	})
	if err != nil {
		return nil, err
	}

	items := tree.items[src.ID]
	var bytes int64
	for _, it := range items {
		bytes += it.FileSize
	}

	now := s.now()
	folder := &domain.Folder{
		ID:          uuid.NewString(),
		OwnerID:     src.OwnerID,
		ParentID:    parentID,
		Name:        name,
		Type:        src.Type,
		TotalItems:  int64(len(items)),
		StorageUsed: bytes,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.Folders.Create(ctx, folder); err != nil {
		return nil, err
	}

	for i := range items {
		if _, err := s.copyItem(ctx, r, &items[i], folder.ID); err != nil {
			return nil, err
		}
	}

	children := tree.children[src.ID]
	for i := range children {
		if _, seen := tree.visited[children[i].ID]; seen {
			continue
		}
		if _, err := s.copyFolder(ctx, r, tree, &children[i], &folder.ID, depth+1); err != nil {
			return nil, err
		}
	}

	return folder, nil
}
