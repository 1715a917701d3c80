package domain

import "errors"

var (
	ErrValidation       = errors.New("validation error")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotFound         = errors.New("not found")
	ErrFolderNotFound   = errors.New("folder not found")
	ErrForbidden        = errors.New("access denied")
	ErrDuplicateName    = errors.New("name already exists")
	ErrQuotaExceeded    = errors.New("storage quota exceeded")
	ErrInvalidType      = errors.New("invalid type")
	ErrTypeMismatch     = errors.New("item type does not match folder type")
	ErrSelfMove         = errors.New("cannot move folder into itself")
	ErrCyclicMove       = errors.New("cannot move folder into its own subfolder")
	ErrUploadFailure    = errors.New("upload failed")
	ErrMissingContent   = errors.New("content is required for notes")
	ErrMissingFile      = errors.New("file is required")
	ErrAlreadyDeleted   = errors.New("already deleted")
	ErrNotDeleted       = errors.New("not deleted")
	ErrAlreadyFavorited = errors.New("item already in favorites")
)

// Kind - стабильный код ошибки для клиентов
type Kind string

const (
	KindValidation       Kind = "validation_error"
	KindUnauthorized     Kind = "unauthorized"
	KindNotFound         Kind = "not_found"
	KindFolderNotFound   Kind = "folder_not_found"
	KindForbidden        Kind = "forbidden"
	KindDuplicateName    Kind = "duplicate_name"
	KindQuotaExceeded    Kind = "quota_exceeded"
	KindInvalidType      Kind = "invalid_type"
	KindTypeMismatch     Kind = "type_mismatch"
	KindSelfMove         Kind = "self_move"
	KindCyclicMove       Kind = "cyclic_move"
	KindUploadFailure    Kind = "upload_failure"
	KindMissingContent   Kind = "missing_content"
	KindMissingFile      Kind = "missing_file"
	KindAlreadyDeleted   Kind = "already_deleted"
	KindNotDeleted       Kind = "not_deleted"
	KindAlreadyFavorited Kind = "already_favorited"
	KindInternal         Kind = "internal_error"
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrValidation, KindValidation},
	{ErrUnauthorized, KindUnauthorized},
	{ErrFolderNotFound, KindFolderNotFound},
	{ErrNotFound, KindNotFound},
	{ErrForbidden, KindForbidden},
	{ErrDuplicateName, KindDuplicateName},
	{ErrQuotaExceeded, KindQuotaExceeded},
	{ErrInvalidType, KindInvalidType},
	{ErrTypeMismatch, KindTypeMismatch},
	{ErrSelfMove, KindSelfMove},
	{ErrCyclicMove, KindCyclicMove},
	{ErrUploadFailure, KindUploadFailure},
	{ErrMissingContent, KindMissingContent},
	{ErrMissingFile, KindMissingFile},
	{ErrAlreadyDeleted, KindAlreadyDeleted},
	{ErrNotDeleted, KindNotDeleted},
	{ErrAlreadyFavorited, KindAlreadyFavorited},
}

// KindOf возвращает код первой известной ошибки в цепочке
func KindOf(err error) Kind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}
