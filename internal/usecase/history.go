package usecase

import (
	"context"
	"fmt"
	"io"

	"github.com/google/uuid"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
)

// HistoryUseCase reads back stored predictions and their images.
type HistoryUseCase struct {
	repo   domain.PredictionRepository
	images domain.ImageStore
}

func NewHistoryUseCase(repo domain.PredictionRepository, images domain.ImageStore) *HistoryUseCase {
	return &HistoryUseCase{repo: repo, images: images}
}

func (uc *HistoryUseCase) List(ctx context.Context, filter domain.PredictionFilter) ([]*domain.PredictionRecord, int, error) {
	if filter.Class != "" && domain.ClassIndex(filter.Class) < 0 {
		return nil, 0, fmt.Errorf("%w: %q", domain.ErrInvalidClass, filter.Class)
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	if filter.Limit > 100 {
		filter.Limit = 100
	}
	return uc.repo.List(ctx, filter)
}

func (uc *HistoryUseCase) Get(ctx context.Context, id uuid.UUID) (*domain.PredictionRecord, error) {
	return uc.repo.GetByID(ctx, id)
}

func (uc *HistoryUseCase) Stats(ctx context.Context) (*domain.Stats, error) {
	return uc.repo.Stats(ctx)
}

// OpenImage streams a stored PNG for a prediction. The record is checked
// first so an unknown ID reports the prediction as missing, not the file.
func (uc *HistoryUseCase) OpenImage(ctx context.Context, id uuid.UUID, kind domain.ImageKind) (io.ReadCloser, error) {
	rec, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	switch kind {
	case domain.ImageKindSource:
		if rec.ImagePath == "" {
			return nil, fmt.Errorf("%w: %s has no stored image", domain.ErrImageNotFound, id)
		}
	case domain.ImageKindOverlay:
		if rec.OverlayPath == "" {
			return nil, fmt.Errorf("%w: %s has no heatmap overlay", domain.ErrImageNotFound, id)
		}
	default:
		return nil, fmt.Errorf("%w: unknown image kind %q", domain.ErrImageNotFound, kind)
	}
	return uc.images.Open(id, kind)
}
