package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// HealthHandler handles health check requests.
type HealthHandler struct {
	pool   *pgxpool.Pool
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(pool *pgxpool.Pool, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{pool: pool, logger: logger}
}

// Health handles GET /api/v1/health
func (h *HealthHandler) Health(c *gin.Context) {
	dbStatus := "ok"
	status := http.StatusOK
	if err := h.pool.Ping(c.Request.Context()); err != nil {
		h.logger.Warn("Health check: database unreachable", zap.Error(err))
		dbStatus = "unavailable"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, gin.H{
		"status": dbStatus,
		"services": gin.H{
			"postgres": dbStatus,
		},
	})
}
