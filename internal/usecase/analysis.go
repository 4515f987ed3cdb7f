package usecase

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorgonia.org/tensor"

	"github.com/kush-rc/brain-tumor-detection/internal/classifier"
	"github.com/kush-rc/brain-tumor-detection/internal/domain"
	"github.com/kush-rc/brain-tumor-detection/internal/explain"
	"github.com/kush-rc/brain-tumor-detection/internal/vision"
)

// AnalyzeOptions controls a single analysis run.
type AnalyzeOptions struct {
	WithHeatmap bool
	Store       bool
	SubjectRef  string
	Notes       string
}

// AnalysisUseCase runs the full pipeline for one scan: decode, preprocess,
// classify, optionally explain, optionally persist.
type AnalysisUseCase struct {
	cls     *classifier.Classifier
	engine  *explain.Engine
	repo    domain.PredictionRepository
	images  domain.ImageStore
	opacity float64
}

func NewAnalysisUseCase(cls *classifier.Classifier, engine *explain.Engine, repo domain.PredictionRepository, images domain.ImageStore, opacity float64) *AnalysisUseCase {
	if opacity <= 0 || opacity > 1 {
		opacity = vision.DefaultOverlayOpacity
	}
	return &AnalysisUseCase{cls: cls, engine: engine, repo: repo, images: images, opacity: opacity}
}

// Analyze classifies one image. The returned record is always fully
// populated; it has been persisted only when opts.Store is set. A failed
// heatmap never fails the call, the record just reports it unavailable.
func (uc *AnalysisUseCase) Analyze(ctx context.Context, r io.Reader, opts AnalyzeOptions) (*domain.PredictionRecord, error) {
	img, _, err := vision.DecodeImage(r)
	if err != nil {
		return nil, err
	}

	w, h, err := uc.cls.InputSize()
	if err != nil {
		return nil, err
	}
	x, err := vision.Preprocess(img, w, h)
	if err != nil {
		return nil, err
	}

	pred, err := uc.cls.Predict(x)
	if err != nil {
		return nil, err
	}

	rec := &domain.PredictionRecord{
		ID:              uuid.New(),
		CreatedAt:       time.Now().UTC(),
		SubjectRef:      opts.SubjectRef,
		Notes:           opts.Notes,
		Class:           pred.Class,
		ClassIndex:      pred.ClassIndex,
		Confidence:      pred.Confidence,
		Scores:          pred.Scores,
		InferenceMillis: float64(pred.Elapsed.Microseconds()) / 1000.0,
	}

	var overlay image.Image
	if opts.WithHeatmap {
		overlay = uc.renderOverlay(ctx, x, pred.ClassIndex, img)
		rec.HeatmapAvailable = overlay != nil
	}

	if opts.Store {
		if err := uc.persist(ctx, rec, img, overlay); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// renderOverlay computes the class activation map and blends it over the
// source image. Any failure is logged and reported as a nil overlay.
func (uc *AnalysisUseCase) renderOverlay(ctx context.Context, x *tensor.Dense, classIdx int, img image.Image) image.Image {
	net, err := uc.cls.Network()
	if err != nil {
		return nil
	}
	hm, err := uc.engine.HeatmapFor(ctx, net, x, classIdx)
	if err != nil {
		log.WithError(err).WithField("class", domain.ClassNames[classIdx]).Warn("heatmap unavailable")
		return nil
	}
	return vision.Overlay(img, hm, uc.opacity)
}

func (uc *AnalysisUseCase) persist(ctx context.Context, rec *domain.PredictionRecord, img, overlay image.Image) error {
	path, err := uc.images.SavePNG(rec.ID, domain.ImageKindSource, img)
	if err != nil {
		return fmt.Errorf("store source image: %w", err)
	}
	rec.ImagePath = path

	if overlay != nil {
		opath, err := uc.images.SavePNG(rec.ID, domain.ImageKindOverlay, overlay)
		if err != nil {
			// Losing the rendered overlay degrades like a failed heatmap.
			log.WithError(err).WithField("id", rec.ID).Warn("overlay image not stored")
			rec.HeatmapAvailable = false
		} else {
			rec.OverlayPath = opath
		}
	}

	if err := uc.repo.Save(ctx, rec); err != nil {
		uc.images.Remove(rec.ID)
		return err
	}
	return nil
}

// BatchItem is one uploaded file in a batch request.
type BatchItem struct {
	Filename string
	Reader   io.Reader
}

// BatchEntry is the per-file outcome: a record or an error, never both.
type BatchEntry struct {
	Filename string                   `json:"filename"`
	Record   *domain.PredictionRecord `json:"record,omitempty"`
	Error    string                   `json:"error,omitempty"`
}

type BatchSummary struct {
	Total             int            `json:"total"`
	Succeeded         int            `json:"succeeded"`
	Failed            int            `json:"failed"`
	ClassDistribution map[string]int `json:"class_distribution"`
	AverageConfidence float64        `json:"average_confidence"`
	ElapsedMillis     float64        `json:"elapsed_ms"`
}

type BatchResult struct {
	Entries []BatchEntry `json:"entries"`
	Summary BatchSummary `json:"summary"`
}

// AnalyzeBatch processes the files sequentially. A bad file becomes an error
// entry and the batch continues; an unusable model aborts the whole batch,
// since every remaining file would fail the same way. Heatmaps are never
// rendered in batch mode.
func (uc *AnalysisUseCase) AnalyzeBatch(ctx context.Context, items []BatchItem, opts AnalyzeOptions) (*BatchResult, error) {
	if len(items) == 0 {
		return nil, domain.ErrEmptyBatch
	}
	opts.WithHeatmap = false

	start := time.Now()
	res := &BatchResult{
		Entries: make([]BatchEntry, 0, len(items)),
		Summary: BatchSummary{Total: len(items), ClassDistribution: make(map[string]int)},
	}

	var confSum float64
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		entry := BatchEntry{Filename: item.Filename}
		rec, err := uc.Analyze(ctx, item.Reader, opts)
		switch {
		case errors.Is(err, domain.ErrModelNotFound) || errors.Is(err, domain.ErrModelInvalid):
			return nil, err
		case err != nil:
			log.WithError(err).WithField("filename", item.Filename).Warn("batch item failed")
			entry.Error = err.Error()
			res.Summary.Failed++
		default:
			entry.Record = rec
			res.Summary.Succeeded++
			res.Summary.ClassDistribution[rec.Class]++
			confSum += rec.Confidence
		}
		res.Entries = append(res.Entries, entry)
	}

	if res.Summary.Succeeded > 0 {
		res.Summary.AverageConfidence = confSum / float64(res.Summary.Succeeded)
	}
	res.Summary.ElapsedMillis = float64(time.Since(start).Microseconds()) / 1000.0
	return res, nil
}
