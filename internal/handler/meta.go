package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) GetStats(c *gin.Context) {
	stats, err := h.history.Stats(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("prediction stats failed")
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (h *Handler) GetModelSummary(c *gin.Context) {
	sum, err := h.modelInfo.Summary()
	if err != nil {
		log.WithError(err).Error("model summary failed")
		mapDomainError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

func (h *Handler) GetClasses(c *gin.Context) {
	c.JSON(http.StatusOK, h.modelInfo.Classes())
}
