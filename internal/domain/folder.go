package domain

import "time"

type FolderType string

const (
	FolderTypeGeneral FolderType = "general"
	FolderTypeNotes   FolderType = "notes"
	FolderTypeImages  FolderType = "images"
	FolderTypePDFs    FolderType = "pdfs"
)

func (t FolderType) Valid() bool {
	switch t {
	case FolderTypeGeneral, FolderTypeNotes, FolderTypeImages, FolderTypePDFs:
		return true
	}
	return false
}

// Accepts сообщает, можно ли положить элемент данного типа в папку.
// Папка general принимает всё, остальные только свой тип.
func (t FolderType) Accepts(it ItemType) bool {
	switch t {
	case FolderTypeGeneral:
		return true
	case FolderTypeNotes:
		return it == ItemTypeNote
	case FolderTypeImages:
		return it == ItemTypeImage
	case FolderTypePDFs:
		return it == ItemTypePDF
	}
	return false
}

type Folder struct {
	ID          string     `json:"id" db:"id"`
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	ParentID    *string    `json:"parent_id,omitempty" db:"parent_id"`
	Name        string     `json:"name" db:"name"`
	Type        FolderType `json:"type" db:"type"`
	TotalItems  int64      `json:"total_items" db:"total_items"`
	StorageUsed int64      `json:"storage_used" db:"storage_used"`
	IsDeleted   bool       `json:"is_deleted" db:"is_deleted"`
	DeleteBatch *string    `json:"-" db:"delete_batch"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
}

type FolderContent struct {
	Folder  Folder   `json:"folder"`
	Items   []Item   `json:"items"`
	Folders []Folder `json:"subfolders"`
}

type FolderPage struct {
	Folders []Folder `json:"folders"`
	Total   int64    `json:"total_folders"`
	Page    int      `json:"page"`
	Limit   int      `json:"limit"`
}

// FolderStats агрегирует счетчики по всем живым папкам владельца
type FolderStats struct {
	TotalFolders     int64 `json:"total_folders" db:"total_folders"`
	TotalItems       int64 `json:"total_items" db:"total_items"`
	TotalStorageUsed int64 `json:"total_storage_used" db:"total_storage_used"`
}
