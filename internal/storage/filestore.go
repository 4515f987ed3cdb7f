// Package storage keeps prediction images on the local filesystem. Scans and
// rendered overlays are small PNGs, so a flat directory keyed by prediction ID
// is enough; anything heavier would belong behind the ImageStore port anyway.
package storage

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
)

type FileImageStore struct {
	dir string
}

// NewFileImageStore creates the storage directory if it does not exist yet.
func NewFileImageStore(dir string) (*FileImageStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory is not configured")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create storage directory: %w", err)
	}
	return &FileImageStore{dir: dir}, nil
}

func (s *FileImageStore) path(id uuid.UUID, kind domain.ImageKind) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s_%s.png", id, kind))
}

func (s *FileImageStore) SavePNG(id uuid.UUID, kind domain.ImageKind, img image.Image) (string, error) {
	if img == nil {
		return "", fmt.Errorf("save image %s: nil image", id)
	}
	fname := s.path(id, kind)
	dst, err := os.Create(fname)
	if err != nil {
		return "", fmt.Errorf("save image %s: %w", id, err)
	}
	defer dst.Close()
	if err := png.Encode(dst, img); err != nil {
		os.Remove(fname)
		return "", fmt.Errorf("encode image %s: %w", id, err)
	}
	return fname, nil
}

func (s *FileImageStore) Open(id uuid.UUID, kind domain.ImageKind) (io.ReadCloser, error) {
	f, err := os.Open(s.path(id, kind))
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s %s", domain.ErrImageNotFound, id, kind)
	}
	if err != nil {
		return nil, fmt.Errorf("open image %s: %w", id, err)
	}
	return f, nil
}

// Remove drops every stored image for the prediction. Missing files are not an
// error so the call stays idempotent.
func (s *FileImageStore) Remove(id uuid.UUID) error {
	for _, kind := range []domain.ImageKind{domain.ImageKindSource, domain.ImageKindOverlay} {
		if err := os.Remove(s.path(id, kind)); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove image %s: %w", id, err)
		}
	}
	return nil
}
