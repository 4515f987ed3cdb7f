package dto

import (
	"fmt"
	"time"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
	"github.com/kush-rc/brain-tumor-detection/internal/usecase"
)

const timeFormat = time.RFC3339

func ToPredictionResponse(rec *domain.PredictionRecord) PredictionResponse {
	resp := PredictionResponse{
		ID:               rec.ID,
		CreatedAt:        rec.CreatedAt.Format(timeFormat),
		SubjectRef:       rec.SubjectRef,
		Notes:            rec.Notes,
		Class:            rec.Class,
		ClassIndex:       rec.ClassIndex,
		Confidence:       rec.Confidence,
		ConfidenceLevel:  string(domain.ConfidenceLevelFor(rec.Confidence)),
		Scores:           make(map[string]float64, domain.NumClasses),
		InferenceMillis:  rec.InferenceMillis,
		HeatmapAvailable: rec.HeatmapAvailable,
	}
	for i, name := range domain.ClassNames {
		resp.Scores[name] = rec.Scores[i]
	}
	if rec.ImagePath != "" {
		resp.ImageURL = fmt.Sprintf("/api/v1/predictions/%s/image", rec.ID)
	}
	if rec.OverlayPath != "" {
		resp.OverlayURL = fmt.Sprintf("/api/v1/predictions/%s/overlay", rec.ID)
	}
	return resp
}

func ToListPredictionsResponse(records []*domain.PredictionRecord, total, limit, offset int) ListPredictionsResponse {
	items := make([]PredictionResponse, 0, len(records))
	for _, rec := range records {
		items = append(items, ToPredictionResponse(rec))
	}
	return ListPredictionsResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	}
}

func ToBatchResponse(res *usecase.BatchResult) BatchResponse {
	items := make([]BatchEntryResponse, 0, len(res.Entries))
	for _, e := range res.Entries {
		item := BatchEntryResponse{Filename: e.Filename, Error: e.Error}
		if e.Record != nil {
			pr := ToPredictionResponse(e.Record)
			item.Prediction = &pr
		}
		items = append(items, item)
	}
	return BatchResponse{
		Items: items,
		Summary: BatchSummaryResponse{
			Total:             res.Summary.Total,
			Succeeded:         res.Summary.Succeeded,
			Failed:            res.Summary.Failed,
			ClassDistribution: res.Summary.ClassDistribution,
			AverageConfidence: res.Summary.AverageConfidence,
			ElapsedMillis:     res.Summary.ElapsedMillis,
		},
	}
}
