package domain

import (
	"time"

	"github.com/google/uuid"
)

// Prediction is the outcome of a single classifier forward pass.
type Prediction struct {
	ClassIndex int                 `json:"class_index"`
	Class      string              `json:"class"`
	Confidence float64             `json:"confidence"`
	Scores     [NumClasses]float64 `json:"scores"`
	Elapsed    time.Duration       `json:"-"`
}

// Level buckets the prediction's confidence score.
func (p *Prediction) Level() ConfidenceLevel {
	return ConfidenceLevelFor(p.Confidence)
}

// ScoresByClass returns the score vector keyed by class label.
func (p *Prediction) ScoresByClass() map[string]float64 {
	out := make(map[string]float64, NumClasses)
	for i, name := range ClassNames {
		out[name] = p.Scores[i]
	}
	return out
}

// PredictionRecord is the persisted form of an analysis run: the prediction
// plus provenance, keyed by an opaque identifier.
type PredictionRecord struct {
	ID               uuid.UUID           `json:"id"`
	CreatedAt        time.Time           `json:"created_at"`
	SubjectRef       string              `json:"subject_ref,omitempty"`
	Notes            string              `json:"notes,omitempty"`
	Class            string              `json:"predicted_class"`
	ClassIndex       int                 `json:"predicted_class_index"`
	Confidence       float64             `json:"confidence"`
	Scores           [NumClasses]float64 `json:"scores"`
	InferenceMillis  float64             `json:"inference_ms"`
	HeatmapAvailable bool                `json:"heatmap_available"`
	ImagePath        string              `json:"image_path,omitempty"`
	OverlayPath      string              `json:"overlay_path,omitempty"`
}

// Heatmap is a coarse class-activation map. Values are row-major
// (Height x Width), rectified and max-normalized into [0,1].
type Heatmap struct {
	Width  int
	Height int
	Values []float32
}

// At returns the value at column x, row y.
func (h *Heatmap) At(x, y int) float32 {
	return h.Values[y*h.Width+x]
}

// Stats summarizes the stored prediction history.
type Stats struct {
	TotalPredictions  int            `json:"total_predictions"`
	PredictionsToday  int            `json:"predictions_today"`
	ClassDistribution map[string]int `json:"class_distribution"`
	AverageConfidence float64        `json:"average_confidence"`
}
