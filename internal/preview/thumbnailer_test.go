package preview

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculateNewDimensions(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		wantW, wantH  int
	}{
		{"landscape", 2000, 1000, 512, 256},
		{"portrait", 1000, 4000, 128, 512},
		{"square", 1024, 1024, 512, 512},
		{"small stays", 100, 50, 100, 50},
		{"thin strip", 10000, 1, 512, 1},
		{"invalid", 0, 10, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, h := calculateNewDimensions(tt.width, tt.height, 512)
			assert.Equal(t, tt.wantW, w)
			assert.Equal(t, tt.wantH, h)
		})
	}
}

func TestThumbnailRejectsEmptyInput(t *testing.T) {
	th := NewThumbnailer(0)
	assert.Equal(t, defaultMaxSize, th.maxSize)

	_, err := th.Thumbnail(nil)
	require.Error(t, err)
}
