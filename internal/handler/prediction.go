package handler

import (
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/kush-rc/brain-tumor-detection/internal/domain"
	"github.com/kush-rc/brain-tumor-detection/internal/dto"
	"github.com/kush-rc/brain-tumor-detection/internal/usecase"
)

func (h *Handler) CreatePrediction(c *gin.Context) {
	var form dto.AnalyzeForm
	if err := c.ShouldBind(&form); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is not readable"})
		return
	}
	defer f.Close()

	rec, err := h.analysis.Analyze(c.Request.Context(), f, usecase.AnalyzeOptions{
		WithHeatmap: form.WantHeatmap(),
		Store:       form.WantStore(),
		SubjectRef:  form.SubjectRef,
		Notes:       form.Notes,
	})
	if err != nil {
		log.WithError(err).WithField("filename", fh.Filename).Error("analyze failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToPredictionResponse(rec))
}

// failedFile stands in for an upload that could not be opened, so the batch
// reports the open error in that file's slot instead of aborting.
type failedFile struct{ err error }

func (f failedFile) Read([]byte) (int, error) { return 0, f.err }

func (h *Handler) CreateBatchPredictions(c *gin.Context) {
	mf, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	files := mf.File["images"]
	if len(files) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": domain.ErrEmptyBatch.Error()})
		return
	}

	store, _ := strconv.ParseBool(c.PostForm("store"))

	items := make([]usecase.BatchItem, 0, len(files))
	var closers []io.Closer
	defer func() {
		for _, cl := range closers {
			cl.Close()
		}
	}()
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			items = append(items, usecase.BatchItem{Filename: fh.Filename, Reader: failedFile{err: err}})
			continue
		}
		closers = append(closers, f)
		items = append(items, usecase.BatchItem{Filename: fh.Filename, Reader: f})
	}

	res, err := h.analysis.AnalyzeBatch(c.Request.Context(), items, usecase.AnalyzeOptions{
		Store:      store,
		SubjectRef: c.PostForm("subject_ref"),
	})
	if err != nil {
		log.WithError(err).Error("batch analyze failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBatchResponse(res))
}

func (h *Handler) ListPredictions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := domain.PredictionFilter{
		Class:      c.Query("class"),
		SubjectRef: c.Query("subject_ref"),
		Limit:      limit,
		Offset:     offset,
	}

	records, total, err := h.history.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list predictions failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToListPredictionsResponse(records, total, limit, offset))
}

func (h *Handler) GetPrediction(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid prediction id"})
		return
	}

	rec, err := h.history.Get(c.Request.Context(), id)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToPredictionResponse(rec))
}

func (h *Handler) GetPredictionImage(c *gin.Context) {
	h.servePNG(c, domain.ImageKindSource)
}

func (h *Handler) GetPredictionOverlay(c *gin.Context) {
	h.servePNG(c, domain.ImageKindOverlay)
}

func (h *Handler) servePNG(c *gin.Context, kind domain.ImageKind) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid prediction id"})
		return
	}

	r, err := h.history.OpenImage(c.Request.Context(), id, kind)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	defer r.Close()

	c.Header("Content-Type", "image/png")
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, r); err != nil {
		log.WithError(err).WithField("id", id).Error("stream stored image failed")
	}
}
