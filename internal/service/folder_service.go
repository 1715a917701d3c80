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

// maxTreeDepth ограничивает обход предков и рекурсивное копирование
const maxTreeDepth = 256

type FolderService struct {
	store    *repository.Store
	activity ActivityRecorder
	log      *zap.Logger
	now      func() time.Time
}

func NewFolderService(store *repository.Store, activity ActivityRecorder, log *zap.Logger) *FolderService {
	return &FolderService{
		store:    store,
		activity: activity,
		log:      log.Named("folder_service"),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *FolderService) CreateFolder(ctx context.Context, ownerID, name string, folderType domain.FolderType, parentID *string) (*domain.Folder, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	name, err := validateName(name)
	if err != nil {
		return nil, err
	}
	if folderType == "" {
		folderType = domain.FolderTypeGeneral
	}
	if !folderType.Valid() {
		return nil, fmt.Errorf("%w: folder type %q", domain.ErrInvalidType, folderType)
	}

	now := s.now()
	folder := &domain.Folder{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ParentID:  parentID,
		Name:      name,
		Type:      folderType,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.store.InTx(ctx, func(r *repository.Repositories) error {
		if parentID != nil {
			if _, err := r.Folders.GetByID(ctx, ownerID, *parentID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("parent folder: %w", domain.ErrFolderNotFound)
				}
				return err
			}
		}

		exists, err := r.Folders.CheckFolderExists(ctx, ownerID, parentID, name, "")
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("folder %q: %w", name, domain.ErrDuplicateName)
		}

		return r.Folders.Create(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ownerID, domain.FolderRef(folder.ID), domain.ActionCreated)
	return folder, nil
}

func (s *FolderService) GetFolder(ctx context.Context, ownerID, folderID string) (*domain.Folder, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.store.Folders.GetByID(ctx, ownerID, folderID)
}

// GetFolderContent возвращает папку вместе с живыми элементами и подпапками
func (s *FolderService) GetFolderContent(ctx context.Context, ownerID, folderID string) (*domain.FolderContent, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	folder, err := s.store.Folders.GetByID(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.Items.ListInFolders(ctx, ownerID, []string{folderID})
	if err != nil {
		return nil, err
	}

	subfolders, err := s.store.Folders.ListChildren(ctx, ownerID, folderID)
	if err != nil {
		return nil, err
	}

	return &domain.FolderContent{
		Folder:  *folder,
		Items:   items,
		Folders: subfolders,
	}, nil
}

// RenameFolder переименовывает папку, проверяя уникальность среди соседей
func (s *FolderService) RenameFolder(ctx context.Context, ownerID, folderID, newName string) (*domain.Folder, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	newName, err := validateName(newName)
	if err != nil {
		return nil, err
	}

	var folder *domain.Folder
	err = s.store.InTx(ctx, func(r *repository.Repositories) error {
		current, err := r.Folders.GetByID(ctx, ownerID, folderID)
		if err != nil {
			return err
		}

		// Проверяем, нет ли папки с таким именем на том же уровне
		exists, err := r.Folders.CheckFolderExists(ctx, ownerID, current.ParentID, newName, folderID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("folder %q: %w", newName, domain.ErrDuplicateName)
		}

		if err := r.Folders.UpdateFolderName(ctx, ownerID, folderID, newName); err != nil {
			return err
		}

		folder, err = r.Folders.GetByID(ctx, ownerID, folderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ownerID, domain.FolderRef(folderID), domain.ActionRenamed)
	return folder, nil
}

// MoveFolder переносит папку под нового родителя (nil - в корень).
// Счетчики папок не меняются: они учитывают только прямые элементы.
func (s *FolderService) MoveFolder(ctx context.Context, ownerID, folderID string, newParentID *string) (*domain.Folder, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	if newParentID != nil && *newParentID == folderID {
		return nil, domain.ErrSelfMove
	}

	var folder *domain.Folder
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		current, err := r.Folders.GetByID(ctx, ownerID, folderID)
		if err != nil {
			return err
		}

		if newParentID != nil {
			if _, err := r.Folders.GetByID(ctx, ownerID, *newParentID); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return fmt.Errorf("target folder: %w", domain.ErrNotFound)
				}
				return err
			}

			if err := checkNotDescendant(ctx, r.Folders, ownerID, folderID, *newParentID); err != nil {
				return err
			}
		}

		exists, err := r.Folders.CheckFolderExists(ctx, ownerID, newParentID, current.Name, folderID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("folder %q: %w", current.Name, domain.ErrDuplicateName)
		}

		if err := r.Folders.UpdateFolderParent(ctx, ownerID, folderID, newParentID); err != nil {
			return err
		}

		folder, err = r.Folders.GetByID(ctx, ownerID, folderID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.activity.Record(ownerID, domain.FolderRef(folderID), domain.ActionMoved)
	return folder, nil
}

// checkNotDescendant поднимается от target к корню. Встреча folderID
// означает цикл. Повтор или обрыв цепочки завершает обход.
func checkNotDescendant(ctx context.Context, folders *repository.FolderRepository, ownerID, folderID, target string) error {
	visited := make(map[string]struct{})
	current := &target

	for depth := 0; current != nil && depth < maxTreeDepth; depth++ {
		if *current == folderID {
			return domain.ErrCyclicMove
		}
		if _, seen := visited[*current]; seen {
			return nil
		}
		visited[*current] = struct{}{}

		parent, err := folders.ParentOf(ctx, ownerID, *current)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			return err
		}
		current = parent
	}

	return nil
}

// DeleteFolder помечает удаленными папку, все ее поддерево и элементы внутри
// одной пачкой и освобождает занятое ими место
func (s *FolderService) DeleteFolder(ctx context.Context, ownerID, folderID string) error {
	if err := requireOwner(ownerID); err != nil {
		return err
	}

	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		folder, err := r.Folders.GetByIDIncludingDeleted(ctx, ownerID, folderID)
		if err != nil {
			return err
		}
		if folder.IsDeleted {
			return fmt.Errorf("folder %s: %w", folderID, domain.ErrAlreadyDeleted)
		}

		ids, err := r.Folders.SubtreeIDs(ctx, ownerID, folderID)
		if err != nil {
			return err
		}

		_, bytes, err := r.Items.SumActiveInFolders(ctx, ownerID, ids)
		if err != nil {
			return err
		}

		batch := uuid.NewString()
		at := s.now()
		if err := r.Items.MarkDeletedInFolders(ctx, ownerID, ids, batch, at); err != nil {
			return err
		}
		if err := r.Folders.MarkDeleted(ctx, ownerID, ids, batch, at); err != nil {
			return err
		}

		return r.Quotas.Release(ctx, ownerID, bytes)
	})
	if err != nil {
		return err
	}

	s.activity.Record(ownerID, domain.FolderRef(folderID), domain.ActionDeleted)
	return nil
}

// RestoreFolder восстанавливает папку и то, что было удалено вместе с ней.
// Если родитель удален или исчез, папка возвращается в корень.
func (s *FolderService) RestoreFolder(ctx context.Context, ownerID, folderID string) (*domain.Folder, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}

	var folder *domain.Folder
	err := s.store.InTx(ctx, func(r *repository.Repositories) error {
		deleted, err := r.Folders.GetByIDIncludingDeleted(ctx, ownerID, folderID)
		if err != nil {
			return err
		}
		if !deleted.IsDeleted {
			return fmt.Errorf("folder %s: %w", folderID, domain.ErrNotDeleted)
		}

		batch := ""
		if deleted.DeleteBatch != nil {
			batch = *deleted.DeleteBatch
		}
		ids, err := r.Folders.BatchSubtree(ctx, ownerID, folderID, batch)
		if err != nil {
			return err
		}
		if len(ids) == 0 {
			ids = []string{folderID}
		}

		parentID := deleted.ParentID
		if parentID != nil {
			if _, err := r.Folders.GetByID(ctx, ownerID, *parentID); err != nil {
				if !errors.Is(err, domain.ErrNotFound) {
					return err
				}
				parentID = nil
				if err := r.Folders.UpdateFolderParent(ctx, ownerID, folderID, nil); err != nil {
					return err
				}
			}
		}

		exists, err := r.Folders.CheckFolderExists(ctx, ownerID, parentID, deleted.Name, folderID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("folder %q: %w", deleted.Name, domain.ErrDuplicateName)
		}

		bytes, err := r.Items.SumBatch(ctx, ownerID, batch, ids)
		if err != nil {
			return err
		}
		if err := r.Quotas.Reserve(ctx, ownerID, bytes); err != nil {
			return err
		}

		if err := r.Folders.Restore(ctx, ownerID, ids); err != nil {
			return err
		}
		if err := r.Items.RestoreBatch(ctx, ownerID, batch, ids); err != nil {
			return err
		}
		if _, err := r.Folders.RecalculateCounters(ctx, ownerID, ids); err != nil {
			return err
		}

		folder, err = r.Folders.GetByID(ctx, ownerID, folderID)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrQuotaExceeded) {
			metrics.QuotaRejections.Inc()
		}
		return nil, err
	}

	s.activity.Record(ownerID, domain.FolderRef(folderID), domain.ActionRestored)
	return folder, nil
}

func (s *FolderService) ListFolders(ctx context.Context, ownerID string, p domain.Pagination) (*domain.FolderPage, error) {
	return s.list(ctx, ownerID, nil, p)
}

func (s *FolderService) ListFoldersByType(ctx context.Context, ownerID string, folderType domain.FolderType, p domain.Pagination) (*domain.FolderPage, error) {
	if !folderType.Valid() {
		return nil, fmt.Errorf("%w: folder type %q", domain.ErrInvalidType, folderType)
	}
	return s.list(ctx, ownerID, &folderType, p)
}

func (s *FolderService) list(ctx context.Context, ownerID string, folderType *domain.FolderType, p domain.Pagination) (*domain.FolderPage, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	p = p.Normalize()

	folders, total, err := s.store.Folders.List(ctx, ownerID, folderType, p)
	if err != nil {
		return nil, err
	}

	return &domain.FolderPage{
		Folders: folders,
		Total:   total,
		Page:    p.Page,
		Limit:   p.Limit,
	}, nil
}

// GetStats суммирует счетчики живых папок
func (s *FolderService) GetStats(ctx context.Context, ownerID string) (*domain.FolderStats, error) {
	if err := requireOwner(ownerID); err != nil {
		return nil, err
	}
	return s.store.Folders.Stats(ctx, ownerID)
}
