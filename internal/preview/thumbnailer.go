package preview

import (
	"fmt"

	"github.com/h2non/bimg"
)

const (
	defaultMaxSize = 512 // максимальная сторона превью в пикселях
	jpegQuality    = 85
)

// Thumbnailer строит JPEG-превью изображений через libvips
type Thumbnailer struct {
	maxSize int
}

func NewThumbnailer(maxSize int) *Thumbnailer {
	if maxSize <= 0 {
		maxSize = defaultMaxSize
	}
	return &Thumbnailer{maxSize: maxSize}
}

// Thumbnail уменьшает изображение с сохранением пропорций
func (t *Thumbnailer) Thumbnail(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty image")
	}

	image := bimg.NewImage(data)

	size, err := image.Size()
	if err != nil {
		return nil, fmt.Errorf("failed to get image size: %w", err)
	}

	width, height := calculateNewDimensions(size.Width, size.Height, t.maxSize)

	processed, err := image.Process(bimg.Options{
		Width:   width,
		Height:  height,
		Quality: jpegQuality,
		Type:    bimg.JPEG,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to process image: %w", err)
	}

	return processed, nil
}

// calculateNewDimensions вписывает картинку в квадрат maxSize, не увеличивая маленькие
func calculateNewDimensions(width, height, maxSize int) (newWidth, newHeight int) {
	if width <= 0 || height <= 0 {
		return 0, 0
	}
	if width <= maxSize && height <= maxSize {
		return width, height
	}
	if width > height {
		newWidth = maxSize
		newHeight = max((height*maxSize)/width, 1)
	} else {
		newHeight = maxSize
		newWidth = max((width*maxSize)/height, 1)
	}
	return
}
