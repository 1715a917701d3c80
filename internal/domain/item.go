package domain

import "time"

type ItemType string

const (
	ItemTypeNote  ItemType = "note"
	ItemTypeImage ItemType = "image"
	ItemTypePDF   ItemType = "pdf"
)

func (t ItemType) Valid() bool {
	return t == ItemTypeNote || t == ItemTypeImage || t == ItemTypePDF
}

// RequiresFile сообщает, что содержимое элемента хранится в объектном хранилище
func (t ItemType) RequiresFile() bool {
	return t == ItemTypeImage || t == ItemTypePDF
}

type Item struct {
	ID           string     `json:"id" db:"id"`
	OwnerID      string     `json:"owner_id" db:"owner_id"`
	FolderID     string     `json:"folder_id" db:"folder_id"`
	Name         string     `json:"name" db:"name"`
	Type         ItemType   `json:"type" db:"type"`
	Content      *string    `json:"content,omitempty" db:"content"`
	FileURL      *string    `json:"file_url,omitempty" db:"file_url"`
	FileKey      *string    `json:"-" db:"file_key"`
	FileSize     int64      `json:"file_size" db:"file_size"`
	MIMEType     *string    `json:"mime_type,omitempty" db:"mime_type"`
	ThumbnailURL *string    `json:"thumbnail_url,omitempty" db:"thumbnail_url"`
	IsFavorite   bool       `json:"is_favorite" db:"is_favorite"`
	IsDeleted    bool       `json:"is_deleted" db:"is_deleted"`
	DeleteBatch  *string    `json:"-" db:"delete_batch"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// FileUpload описывает загружаемый файл до отправки в хранилище
type FileUpload struct {
	Name     string
	MIMEType string
	Size     int64
	Data     []byte
}

// UploadResult возвращается загрузчиком после успешной отправки
type UploadResult struct {
	URL  string
	Key  string
	Size int64
}

type CreateItemInput struct {
	FolderID string
	Name     string
	Type     ItemType
	Content  *string
	File     *FileUpload
}

// ItemFilter задает условия поиска. Пустые поля не ограничивают выборку,
// IsDeleted по умолчанию означает только живые элементы.
type ItemFilter struct {
	Name       string
	Type       *ItemType
	FolderID   *string
	IsFavorite *bool
	IsDeleted  *bool
	Pagination
}

type ItemPage struct {
	Items []Item `json:"items"`
	Total int64  `json:"total"`
	Page  int    `json:"page"`
	Limit int    `json:"limit"`
}
