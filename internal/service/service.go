package service

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"storagedrive/internal/domain"
)

// Uploader сохраняет содержимое файлов во внешнем объектном хранилище
type Uploader interface {
	Upload(ctx context.Context, key string, file *domain.FileUpload) (*domain.UploadResult, error)
	Delete(ctx context.Context, key string) error
}

// Thumbnailer строит превью изображения
type Thumbnailer interface {
	Thumbnail(data []byte) ([]byte, error)
}

// ActivityRecorder принимает события журнала. Record не блокирует
// и не возвращает ошибок.
type ActivityRecorder interface {
	Record(ownerID string, ref domain.ActivityRef, action domain.ActivityAction)
}

const (
	maxNameLength   = 255
	maxNameAttempts = 1000
)

func requireOwner(ownerID string) error {
	if ownerID == "" {
		return fmt.Errorf("%w: owner id is required", domain.ErrUnauthorized)
	}
	return nil
}

func validateName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", fmt.Errorf("%w: name is required", domain.ErrValidation)
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return "", fmt.Errorf("%w: name is longer than %d characters", domain.ErrValidation, maxNameLength)
	}
	return name, nil
}

// numberedName дает "name", "name (Copy 1)", "name (Copy 2)", ...
func numberedName(name string, n int) string {
	if n == 0 {
		return name
	}
	return fmt.Sprintf("%s (Copy %d)", name, n)
}

// copyName дает "name (Copy)", "name (Copy 2)", "name (Copy 3)", ...
func copyName(name string, n int) string {
	if n == 0 {
		return name + " (Copy)"
	}
	return fmt.Sprintf("%s (Copy %d)", name, n+1)
}

// resolveName перебирает варианты имени, пока taken не вернет false
func resolveName(
	ctx context.Context,
	name string,
	format func(string, int) string,
	taken func(ctx context.Context, candidate string) (bool, error),
) (string, error) {
	for n := 0; n < maxNameAttempts; n++ {
		candidate := format(name, n)
		exists, err := taken(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: no free name for %q", domain.ErrDuplicateName, name)
}
