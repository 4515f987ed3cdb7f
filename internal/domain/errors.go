package domain

import "errors"

var (
	ErrModelNotFound      = errors.New("model artifact not found at any configured path")
	ErrModelInvalid       = errors.New("model artifact is malformed")
	ErrPreprocessFailed   = errors.New("image preprocessing failed")
	ErrInferenceFailed    = errors.New("model inference failed")
	ErrHeatmapUnavailable = errors.New("class activation heatmap unavailable")
	ErrInvalidImage       = errors.New("file is not a decodable image")
	ErrInvalidClass       = errors.New("unknown tumor class")
	ErrPredictionNotFound = errors.New("prediction not found")
	ErrImageNotFound      = errors.New("stored image not found")
	ErrEmptyBatch         = errors.New("batch contains no images")
)
