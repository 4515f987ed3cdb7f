package dto

import (
	"github.com/google/uuid"
)

// AnalyzeForm carries the non-file fields of the multipart analysis request.
// Heatmap and Store default to true when the field is absent.
type AnalyzeForm struct {
	Heatmap    *bool  `form:"heatmap"`
	Store      *bool  `form:"store"`
	SubjectRef string `form:"subject_ref" binding:"max=100"`
	Notes      string `form:"notes" binding:"max=2000"`
}

func (f *AnalyzeForm) WantHeatmap() bool {
	return f.Heatmap == nil || *f.Heatmap
}

func (f *AnalyzeForm) WantStore() bool {
	return f.Store == nil || *f.Store
}

type PredictionResponse struct {
	ID               uuid.UUID          `json:"id"`
	CreatedAt        string             `json:"created_at"`
	SubjectRef       string             `json:"subject_ref,omitempty"`
	Notes            string             `json:"notes,omitempty"`
	Class            string             `json:"predicted_class"`
	ClassIndex       int                `json:"predicted_class_index"`
	Confidence       float64            `json:"confidence"`
	ConfidenceLevel  string             `json:"confidence_level"`
	Scores           map[string]float64 `json:"scores"`
	InferenceMillis  float64            `json:"inference_ms"`
	HeatmapAvailable bool               `json:"heatmap_available"`
	ImageURL         string             `json:"image_url,omitempty"`
	OverlayURL       string             `json:"overlay_url,omitempty"`
}

type ListPredictionsResponse struct {
	Items      []PredictionResponse `json:"items"`
	Total      int                  `json:"total"`
	PageSize   int                  `json:"page_size"`
	NextOffset int                  `json:"next_offset"`
}

type BatchEntryResponse struct {
	Filename   string              `json:"filename"`
	Prediction *PredictionResponse `json:"prediction,omitempty"`
	Error      string              `json:"error,omitempty"`
}

type BatchSummaryResponse struct {
	Total             int            `json:"total"`
	Succeeded         int            `json:"succeeded"`
	Failed            int            `json:"failed"`
	ClassDistribution map[string]int `json:"class_distribution"`
	AverageConfidence float64        `json:"average_confidence"`
	ElapsedMillis     float64        `json:"elapsed_ms"`
}

type BatchResponse struct {
	Items   []BatchEntryResponse `json:"items"`
	Summary BatchSummaryResponse `json:"summary"`
}

type HealthResponse struct {
	Status      string `json:"status"`
	Database    string `json:"database"`
	ModelLoaded bool   `json:"model_loaded"`
}
