package domain

import "time"

// StorageQuota хранит лимит и занятое место пользователя в байтах
type StorageQuota struct {
	OwnerID         string    `json:"owner_id" db:"owner_id"`
	TotalBytesLimit int64     `json:"total_bytes_limit" db:"total_bytes_limit"`
	UsedBytes       int64     `json:"used_bytes" db:"used_bytes"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" db:"updated_at"`
}

type QuotaInfo struct {
	TotalSpace     int64   `json:"total_space"`
	UsedSpace      int64   `json:"used_space"`
	AvailableSpace int64   `json:"available_space"`
	UsagePercent   float64 `json:"usage_percent"`
}

// ReconcileReport показывает, что изменилось после пересчета счетчиков
type ReconcileReport struct {
	OwnerID         string `json:"owner_id"`
	FoldersUpdated  int64  `json:"folders_updated"`
	UsedBytesBefore int64  `json:"used_bytes_before"`
	UsedBytesAfter  int64  `json:"used_bytes_after"`
}
