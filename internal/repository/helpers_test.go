package repository_test

import (
	"time"

	"github.com/google/uuid"

	"storagedrive/internal/domain"
)

func newFolder(ownerID string, parentID *string, name string) *domain.Folder {
	now := time.Now().UTC()
	return &domain.Folder{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		ParentID:  parentID,
		Name:      name,
		Type:      domain.FolderTypeGeneral,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func newItem(ownerID, folderID, name string, size int64) *domain.Item {
	now := time.Now().UTC()
	content := "text"
	return &domain.Item{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		FolderID:  folderID,
		Name:      name,
		Type:      domain.ItemTypeNote,
		Content:   &content,
		FileSize:  size,
		CreatedAt: now,
		UpdatedAt: now,
	}
}
