package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/rosterhub/syncledger/internal/config"
	"github.com/rosterhub/syncledger/internal/database"
	handler "github.com/rosterhub/syncledger/internal/delivery/http"
	"github.com/rosterhub/syncledger/internal/logger"
	"github.com/rosterhub/syncledger/internal/publisher"
	"github.com/rosterhub/syncledger/internal/repository"
	"github.com/rosterhub/syncledger/internal/repository/postgres"
	redisrepo "github.com/rosterhub/syncledger/internal/repository/redis"
	"github.com/rosterhub/syncledger/internal/usecase"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting sync ledger server")

	gin.SetMode(cfg.Server.GinMode)

	// Connect to PostgreSQL
	ctx := context.Background()
	dbPool, err := database.NewPool(ctx, cfg.Database.URL)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer dbPool.Close()
	log.Info("Connected to PostgreSQL")

	if cfg.Database.Migrate {
		if err := database.Migrate(cfg.Database.URL); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
		log.Info("Database migrations applied")
	}

	// Optional Redis summary cache
	var summaryCache repository.SummaryCache
	if cfg.Redis.Enabled {
		redisOpts, err := goredis.ParseURL(cfg.Redis.URL)
		if err != nil {
			log.Fatal("Invalid Redis URL", zap.Error(err))
		}
		rdb := goredis.NewClient(redisOpts)
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("Failed to ping Redis", zap.Error(err))
		}
		defer rdb.Close()
		summaryCache = redisrepo.NewSummaryCache(rdb)
		log.Info("Connected to Redis")
	}

	// Optional RabbitMQ job-created publisher
	var pub publisher.Publisher
	if cfg.RabbitMQ.Enabled {
		pub, err = publisher.NewRabbitMQPublisher(cfg.RabbitMQ.URL, log)
		if err != nil {
			log.Fatal("Failed to initialize RabbitMQ publisher", zap.Error(err))
		}
		defer pub.Close()
		log.Info("Connected to RabbitMQ")
	}

	// Initialize repositories
	jobRepo := postgres.NewSyncJobRepository(dbPool)
	errorRepo := postgres.NewSyncErrorRepository(dbPool)

	// Initialize services
	ledger := usecase.NewJobLedger(jobRepo, errorRepo, pub, log)
	errorLog := usecase.NewErrorLog(errorRepo, log)
	summary := usecase.NewSummary(jobRepo, summaryCache, log)

	// Initialize router
	router := handler.NewRouter(&handler.RouterDeps{
		Ledger:          ledger,
		ErrorLog:        errorLog,
		Summary:         summary,
		Logger:          log,
		RateLimitPerMin: cfg.Server.RateLimit,
		DBPool:          dbPool,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Info("Sync ledger server listening", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down sync ledger server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown", zap.Error(err))
	}

	log.Info("Sync ledger server stopped")
}
