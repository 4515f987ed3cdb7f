package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/kush-rc/brain-tumor-detection/internal/usecase"
)

type Handler struct {
	analysis  *usecase.AnalysisUseCase
	history   *usecase.HistoryUseCase
	modelInfo *usecase.ModelInfoUseCase
}

func New(analysis *usecase.AnalysisUseCase, history *usecase.HistoryUseCase, modelInfo *usecase.ModelInfoUseCase) *Handler {
	return &Handler{analysis: analysis, history: history, modelInfo: modelInfo}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Predictions
	r.POST("/predictions", h.CreatePrediction)
	r.POST("/predictions/batch", h.CreateBatchPredictions)
	r.GET("/predictions", h.ListPredictions)
	r.GET("/predictions/:id", h.GetPrediction)
	r.GET("/predictions/:id/image", h.GetPredictionImage)
	r.GET("/predictions/:id/overlay", h.GetPredictionOverlay)

	// Introspection
	r.GET("/stats", h.GetStats)
	r.GET("/model", h.GetModelSummary)
	r.GET("/classes", h.GetClasses)
}
