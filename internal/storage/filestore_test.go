package storage

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
)

func testImage() *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 30), G: uint8(y * 30), A: 255})
		}
	}
	return img
}

func TestFileImageStore_SaveAndOpen(t *testing.T) {
	store, err := NewFileImageStore(t.TempDir())
	require.NoError(t, err)

	id := uuid.New()
	path, err := store.SavePNG(id, domain.ImageKindSource, testImage())
	require.NoError(t, err)
	assert.FileExists(t, path)

	r, err := store.Open(id, domain.ImageKindSource)
	require.NoError(t, err)
	defer r.Close()

	decoded, err := png.Decode(r)
	require.NoError(t, err)
	assert.Equal(t, 8, decoded.Bounds().Dx())
	assert.Equal(t, 8, decoded.Bounds().Dy())
}

func TestFileImageStore_KindsDoNotCollide(t *testing.T) {
	store, err := NewFileImageStore(t.TempDir())
	require.NoError(t, err)

	id := uuid.New()
	srcPath, err := store.SavePNG(id, domain.ImageKindSource, testImage())
	require.NoError(t, err)
	ovlPath, err := store.SavePNG(id, domain.ImageKindOverlay, testImage())
	require.NoError(t, err)

	assert.NotEqual(t, srcPath, ovlPath)
}

func TestFileImageStore_OpenMissing(t *testing.T) {
	store, err := NewFileImageStore(t.TempDir())
	require.NoError(t, err)

	_, err = store.Open(uuid.New(), domain.ImageKindOverlay)
	assert.ErrorIs(t, err, domain.ErrImageNotFound)
}

func TestFileImageStore_RemoveIsIdempotent(t *testing.T) {
	store, err := NewFileImageStore(t.TempDir())
	require.NoError(t, err)

	id := uuid.New()
	path, err := store.SavePNG(id, domain.ImageKindSource, testImage())
	require.NoError(t, err)

	require.NoError(t, store.Remove(id))
	assert.NoFileExists(t, path)
	assert.NoError(t, store.Remove(id))
}

func TestFileImageStore_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "scans", "png")
	_, err := NewFileImageStore(dir)
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestFileImageStore_RejectsEmptyDir(t *testing.T) {
	_, err := NewFileImageStore("")
	assert.Error(t, err)
}
