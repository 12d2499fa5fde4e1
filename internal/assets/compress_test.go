package assets

import (
	"bytes"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompressDownscalesLongestEdge(t *testing.T) {
	tests := []struct {
		name         string
		data         []byte
		wantType     string
		wantW, wantH int
	}{
		{"wide jpeg", jpegBytes(t, 400, 200), "image/jpeg", 100, 50},
		{"tall png", pngBytes(t, 120, 480), "image/png", 25, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, ct, err := Compress(tt.data, 100, 0.8)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, ct)

			cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
			require.NoError(t, err)
			assert.Equal(t, tt.wantW, cfg.Width)
			assert.Equal(t, tt.wantH, cfg.Height)
		})
	}
}

func TestCompressKeepsSmallImageDimensions(t *testing.T) {
	data := jpegBytes(t, 64, 32)
	out, ct, err := Compress(data, 1280, 0.8)
	require.NoError(t, err)
	assert.Equal(t, "image/jpeg", ct)
	assert.LessOrEqual(t, len(out), len(data))

	cfg, _, err := image.DecodeConfig(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 64, cfg.Width)
	assert.Equal(t, 32, cfg.Height)
}

func TestCompressRejectsNonImage(t *testing.T) {
	_, _, err := Compress([]byte("not an image"), 1280, 0.8)
	assert.Error(t, err)
}
