package domain

import "time"

type ActivityAction string

const (
	ActionCreated     ActivityAction = "created"
	ActionUpdated     ActivityAction = "updated"
	ActionDeleted     ActivityAction = "deleted"
	ActionRestored    ActivityAction = "restored"
	ActionRenamed     ActivityAction = "renamed"
	ActionMoved       ActivityAction = "moved"
	ActionCopied      ActivityAction = "copied"
	ActionDuplicated  ActivityAction = "duplicated"
	ActionFavorited   ActivityAction = "favorited"
	ActionUnfavorited ActivityAction = "unfavorited"
)

type Activity struct {
	ID        string         `json:"id" db:"id"`
	OwnerID   string         `json:"owner_id" db:"owner_id"`
	FolderID  *string        `json:"folder_id,omitempty" db:"folder_id"`
	ItemID    *string        `json:"item_id,omitempty" db:"item_id"`
	Action    ActivityAction `json:"action" db:"action"`
	CreatedAt time.Time      `json:"created_at" db:"created_at"`
}

// ActivityRef указывает, к чему относится запись журнала
type ActivityRef struct {
	FolderID *string
	ItemID   *string
}

func FolderRef(id string) ActivityRef {
	return ActivityRef{FolderID: &id}
}

func ItemRef(folderID, itemID string) ActivityRef {
	return ActivityRef{FolderID: &folderID, ItemID: &itemID}
}

type ActivityPage struct {
	Activities []Activity `json:"activities"`
	Total      int64      `json:"total"`
	Page       int        `json:"page"`
	Limit      int        `json:"limit"`
}
