package http

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rosterhub/syncledger/internal/domain"
	"github.com/rosterhub/syncledger/internal/repository"
	"github.com/rosterhub/syncledger/internal/usecase"
)

// JobHandler handles HTTP requests for sync job lifecycle operations.
type JobHandler struct {
	ledger *usecase.JobLedger
	logger *zap.Logger
}

// NewJobHandler creates a new JobHandler.
func NewJobHandler(ledger *usecase.JobLedger, logger *zap.Logger) *JobHandler {
	return &JobHandler{ledger: ledger, logger: logger}
}

// Create handles POST /api/v1/jobs
func (h *JobHandler) Create(c *gin.Context) {
	var in usecase.CreateJobInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	job, err := h.ledger.Create(c.Request.Context(), &in)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, job)
}

// Get handles GET /api/v1/jobs/:id
func (h *JobHandler) Get(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	job, err := h.ledger.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// GetByKey handles GET /api/v1/jobs/by-key/:key
func (h *JobHandler) GetByKey(c *gin.Context) {
	job, err := h.ledger.GetByKey(c.Request.Context(), c.Param("key"))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// List handles GET /api/v1/owners/:ownerId/jobs
func (h *JobHandler) List(c *gin.Context) {
	f := repository.JobFilter{
		Limit:  intQuery(c, "limit"),
		Offset: intQuery(c, "offset"),
	}
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status := domain.JobStatus(s)
			if !status.IsValid() {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status filter: " + s})
				return
			}
			f.Statuses = append(f.Statuses, status)
		}
	}

	jobs, err := h.ledger.List(c.Request.Context(), c.Param("ownerId"), f)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

// Start handles POST /api/v1/jobs/:id/start
func (h *JobHandler) Start(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	job, err := h.ledger.Start(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// UpdateProgress handles PATCH /api/v1/jobs/:id/progress
func (h *JobHandler) UpdateProgress(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	var p domain.ProgressUpdate
	if err := c.ShouldBindJSON(&p); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
		return
	}

	job, err := h.ledger.UpdateProgress(c.Request.Context(), id, p)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Complete handles POST /api/v1/jobs/:id/complete
func (h *JobHandler) Complete(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	var p domain.ProgressUpdate
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&p); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}
	}

	job, err := h.ledger.Complete(c.Request.Context(), id, p)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Fail handles POST /api/v1/jobs/:id/fail
func (h *JobHandler) Fail(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	var body struct {
		Reason string `json:"reason"`
	}
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
			return
		}
	}

	job, err := h.ledger.Fail(c.Request.Context(), id, body.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

// Cancel handles POST /api/v1/jobs/:id/cancel
func (h *JobHandler) Cancel(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}
	job, err := h.ledger.Cancel(c.Request.Context(), id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, job)
}

func parseJobID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID format"})
		return uuid.UUID{}, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string) int {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// respondError maps domain errors to HTTP status codes.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var transitionErr *domain.InvalidTransitionError
	switch {
	case errors.Is(err, domain.ErrJobNotFound), errors.Is(err, domain.ErrErrorNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{
			"error":            transitionErr.Error(),
			"current_status":   transitionErr.From,
			"attempted_status": transitionErr.To,
		})
	case errors.Is(err, domain.ErrInvalidKey),
		errors.Is(err, domain.ErrEmptyOwner),
		errors.Is(err, domain.ErrInvalidSource),
		errors.Is(err, domain.ErrNoEntityTypes),
		errors.Is(err, domain.ErrInvalidEntityType),
		errors.Is(err, domain.ErrInvalidErrorType),
		errors.Is(err, domain.ErrInvalidResolution):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		logger.Error("Request failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}
