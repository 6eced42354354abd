package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/rosterhub/syncledger/internal/usecase"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development; restrict in production
	},
}

// WebSocketHandler streams job status to monitoring clients until the job
// reaches a terminal status.
type WebSocketHandler struct {
	ledger *usecase.JobLedger
	logger *zap.Logger
}

// NewWebSocketHandler creates a new WebSocketHandler.
func NewWebSocketHandler(ledger *usecase.JobLedger, logger *zap.Logger) *WebSocketHandler {
	return &WebSocketHandler{ledger: ledger, logger: logger}
}

// Stream handles GET /api/v1/jobs/:id/stream (WebSocket upgrade)
func (h *WebSocketHandler) Stream(c *gin.Context) {
	id, ok := parseJobID(c)
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("WebSocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	h.logger.Debug("WebSocket connection opened", zap.String("job_id", id.String()))

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for range ticker.C {
		job, err := h.ledger.Get(c.Request.Context(), id)
		if err != nil {
			conn.WriteJSON(gin.H{"error": "Job not found"})
			return
		}

		if err := conn.WriteJSON(job); err != nil {
			h.logger.Debug("WebSocket write failed (client disconnected)", zap.Error(err))
			return
		}

		// Stop streaming once the job reaches a terminal state
		if job.Status.IsTerminal() {
			h.logger.Debug("Job reached terminal state, closing WebSocket", zap.String("job_id", id.String()))
			return
		}
	}
}
