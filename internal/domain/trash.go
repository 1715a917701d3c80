package domain

import "time"

const (
	TrashKindFolder = "folder"
	TrashKindItem   = "item"
)

// TrashItem представляет элемент в корзине (может быть элементом или папкой)
type TrashItem struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Kind      string    `json:"kind" db:"kind"`
	Type      string    `json:"type" db:"type"`
	ParentID  *string   `json:"parent_id,omitempty" db:"parent_id"`
	Size      int64     `json:"size" db:"size"`
	DeletedAt time.Time `json:"deleted_at" db:"deleted_at"`
}
