package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rosterhub/syncledger/internal/domain"
	"github.com/rosterhub/syncledger/internal/repository"
	"github.com/rosterhub/syncledger/internal/usecase"
)

// ErrorHandler handles HTTP requests for sync error recording and triage.
type ErrorHandler struct {
	errorLog *usecase.ErrorLog
	logger   *zap.Logger
}

// NewErrorHandler creates a new ErrorHandler.
func NewErrorHandler(errorLog *usecase.ErrorLog, logger *zap.Logger) *ErrorHandler {
	return &ErrorHandler{errorLog: errorLog, logger: logger}
}

// Record handles POST /api/v1/jobs/:id/errors
func (h *ErrorHandler) Record(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	var in usecase.RecordErrorInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}
	in.JobID = id

	syncErr, err := h.errorLog.Record(c.Request.Context(), &in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, syncErr)
}

// List handles GET /api/v1/jobs/:id/errors
func (h *ErrorHandler) List(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	f := repository.ErrorFilter{
		Limit:  intQuery(c, "limit"),
		Offset: intQuery(c, "offset"),
	}
	if raw := c.Query("error_type"); raw != "" {
		et := domain.ErrorType(raw)
		if !et.IsValid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid error_type filter: " + raw})
			return
		}
		f.ErrorType = &et
	}

	errs, err := h.errorLog.ListForJob(c.Request.Context(), id, f)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"errors": errs})
}

// ListUnresolved handles GET /api/v1/jobs/:id/errors/unresolved
func (h *ErrorHandler) ListUnresolved(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	errs, err := h.errorLog.ListUnresolved(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"errors": errs})
}

// Resolve handles POST /api/v1/errors/:id/resolve
func (h *ErrorHandler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid error ID format"})
		return
	}
	var body struct {
		Resolution domain.Resolution `json:"resolution" binding:"required"`
		ResolvedBy string            `json:"resolved_by"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	resolved, err := h.errorLog.Resolve(c.Request.Context(), id, body.Resolution, body.ResolvedBy)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, resolved)
}
