package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"resumeBuilder/internal/api/middleware"
	"resumeBuilder/internal/config"
	"resumeBuilder/internal/database"
	"resumeBuilder/internal/document"
	"resumeBuilder/internal/logging"
	"resumeBuilder/internal/metrics"
	"resumeBuilder/internal/pdf"
	"resumeBuilder/internal/storage"
	"resumeBuilder/internal/tasks"
	"resumeBuilder/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger, closer := logging.New(cfg.Log)
	slog.SetDefault(logger)

	err := run(cfg, logger)
	if err != nil {
		logger.Error("worker stopped", slog.Any("error", err))
	}
	_ = closer.Close()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDatabase(cfg.Database)
	if err != nil {
		return fmt.Errorf("init database: %w", err)
	}
	logger.Info("database connection ready for worker")

	storageClient, err := storage.NewClient(ctx, cfg.MinIO)
	if err != nil {
		return fmt.Errorf("init storage client: %w", err)
	}
	logger.Info("storage client ready", slog.String("bucket", cfg.MinIO.Bucket))

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}

	server := asynq.NewServer(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()}, asynq.Config{
		Concurrency: cfg.Worker.Concurrency,
		Logger:      logging.ForAsynq(logger),
	})

	exportHandler := worker.NewExportHandler(
		document.NewService(db, logger),
		storageClient,
		pdf.NewPrinter().Print,
		worker.NewRedisNotifier(redisClient),
		logger,
	)

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMiddleware())
	mux.Handle(tasks.TypeDocumentExportPDF, exportHandler)

	if err := server.Start(mux); err != nil {
		return fmt.Errorf("start asynq server: %w", err)
	}
	logger.Info("worker service started",
		slog.String("redis_addr", cfg.Redis.Addr()),
		slog.Int("concurrency", cfg.Worker.Concurrency),
	)

	metricsServer := newMetricsServer(cfg)
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", slog.Any("error", err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = metricsServer.Shutdown(shutdownCtx)
	server.Shutdown()
	return nil
}

// newMetricsServer 暴露 worker 的 /metrics 与 /health。
func newMetricsServer(cfg *config.Config) *http.Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", middleware.MetricsAuth(cfg.API.MetricsToken), metrics.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Worker.MetricsPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
