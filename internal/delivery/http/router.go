package http

import (
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rosterhub/syncledger/internal/delivery/http/middleware"
	"github.com/rosterhub/syncledger/internal/usecase"
)

const maxBodyBytes = 1 << 20 // 1 MB; raw_data payloads should stay small

// RouterDeps carries everything the router needs.
type RouterDeps struct {
	Ledger          *usecase.JobLedger
	ErrorLog        *usecase.ErrorLog
	Summary         *usecase.Summary
	Logger          *zap.Logger
	RateLimitPerMin int
	DBPool          *pgxpool.Pool
}

// NewRouter creates and configures the Gin router with all routes and middleware.
func NewRouter(deps *RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(deps.Logger))
	router.Use(middleware.BodySizeLimit(maxBodyBytes))

	// Metrics endpoint (no rate limiting)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	jobHandler := NewJobHandler(deps.Ledger, deps.Logger)
	errorHandler := NewErrorHandler(deps.ErrorLog, deps.Logger)
	summaryHandler := NewSummaryHandler(deps.Summary, deps.Logger)
	healthHandler := NewHealthHandler(deps.DBPool, deps.Logger)
	wsHandler := NewWebSocketHandler(deps.Ledger, deps.Logger)

	v1 := router.Group("/api/v1")
	{
		// Health check (no rate limiting)
		v1.GET("/health", healthHandler.Health)

		limited := v1.Group("")
		if deps.RateLimitPerMin > 0 {
			limited.Use(middleware.RateLimiter(deps.RateLimitPerMin))
		}

		// Jobs
		limited.POST("/jobs", jobHandler.Create)
		limited.GET("/jobs/:id", jobHandler.Get)
		limited.GET("/jobs/by-key/:key", jobHandler.GetByKey)
		limited.POST("/jobs/:id/start", jobHandler.Start)
		limited.PATCH("/jobs/:id/progress", jobHandler.UpdateProgress)
		limited.POST("/jobs/:id/complete", jobHandler.Complete)
		limited.POST("/jobs/:id/fail", jobHandler.Fail)
		limited.POST("/jobs/:id/cancel", jobHandler.Cancel)

		// Errors
		limited.POST("/jobs/:id/errors", errorHandler.Record)
		limited.GET("/jobs/:id/errors", errorHandler.List)
		limited.GET("/jobs/:id/errors/unresolved", errorHandler.ListUnresolved)
		limited.POST("/errors/:id/resolve", errorHandler.Resolve)

		// Owner views
		limited.GET("/owners/:ownerId/jobs", jobHandler.List)
		limited.GET("/owners/:ownerId/summary", summaryHandler.Summarize)

		// WebSocket for real-time status updates
		v1.GET("/jobs/:id/stream", wsHandler.Stream)
	}

	return router
}
