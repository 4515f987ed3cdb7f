package testutil

import (
	"context"
	"image"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
)

// MockPredictionRepo is a mock of PredictionRepository.
type MockPredictionRepo struct {
	mock.Mock
}

func (m *MockPredictionRepo) Save(ctx context.Context, rec *domain.PredictionRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockPredictionRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.PredictionRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PredictionRecord), args.Error(1)
}

func (m *MockPredictionRepo) List(ctx context.Context, filter domain.PredictionFilter) ([]*domain.PredictionRecord, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]*domain.PredictionRecord), args.Int(1), args.Error(2)
}

func (m *MockPredictionRepo) Stats(ctx context.Context) (*domain.Stats, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Stats), args.Error(1)
}

// MockImageStore is a mock of ImageStore.
type MockImageStore struct {
	mock.Mock
}

func (m *MockImageStore) SavePNG(id uuid.UUID, kind domain.ImageKind, img image.Image) (string, error) {
	args := m.Called(id, kind, img)
	return args.String(0), args.Error(1)
}

func (m *MockImageStore) Open(id uuid.UUID, kind domain.ImageKind) (io.ReadCloser, error) {
	args := m.Called(id, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockImageStore) Remove(id uuid.UUID) error {
	args := m.Called(id)
	return args.Error(0)
}
