package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/rosterhub/syncledger/internal/usecase"
)

// SummaryHandler handles HTTP requests for per-owner sync rollups.
type SummaryHandler struct {
	summary *usecase.Summary
	logger  *zap.Logger
}

// NewSummaryHandler creates a new SummaryHandler.
func NewSummaryHandler(summary *usecase.Summary, logger *zap.Logger) *SummaryHandler {
	return &SummaryHandler{summary: summary, logger: logger}
}

// Summarize handles GET /api/v1/owners/:ownerId/summary
func (h *SummaryHandler) Summarize(c *gin.Context) {
	summary, err := h.summary.Summarize(c.Request.Context(), c.Param("ownerId"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}
