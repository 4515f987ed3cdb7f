package domain

import (
	"context"
	"image"
	"io"

	"github.com/google/uuid"
)

type PredictionFilter struct {
	Class      string
	SubjectRef string
	Limit      int
	Offset     int
}

type PredictionRepository interface {
	Save(ctx context.Context, rec *PredictionRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*PredictionRecord, error)
	List(ctx context.Context, filter PredictionFilter) ([]*PredictionRecord, int, error)
	Stats(ctx context.Context) (*Stats, error)
}

type ImageKind string

const (
	ImageKindSource  ImageKind = "source"
	ImageKindOverlay ImageKind = "overlay"
)

// ImageStore persists the source scan and the rendered heatmap overlay for a
// prediction, keyed by the prediction ID.
type ImageStore interface {
	SavePNG(id uuid.UUID, kind ImageKind, img image.Image) (string, error)
	Open(id uuid.UUID, kind ImageKind) (io.ReadCloser, error)
	Remove(id uuid.UUID) error
}
