package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dandantas/disloc/internal/config"
	"github.com/dandantas/disloc/internal/database"
	"github.com/dandantas/disloc/internal/feed"
	"github.com/dandantas/disloc/internal/lineofsight"
	"github.com/dandantas/disloc/internal/runner"
	"github.com/dandantas/disloc/internal/scheduler"
	"github.com/dandantas/disloc/internal/service"
	"github.com/dandantas/disloc/internal/worker"
	"github.com/dandantas/disloc/internal/workspace"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize logger
	config.InitLogger(cfg)

	slog.Info("Starting disloc service", "version", version)

	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to MongoDB
	db, err := database.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoTimeout)
	if err != nil {
		slog.Error("Failed to connect to MongoDB", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := db.Disconnect(context.Background()); err != nil {
			slog.Error("Failed to disconnect from MongoDB", "error", err)
		}
	}()

	// Create indexes
	if err := database.CreateIndexes(ctx, db); err != nil {
		slog.Error("Failed to create indexes", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	manifestRepo := database.NewManifestRepository(db)
	eventRepo := database.NewEventRepository(db)
	lockRepo := database.NewLockRepository(db)

	if err := os.MkdirAll(cfg.OutputRoot, 0o755); err != nil {
		slog.Error("Failed to create output root", "path", cfg.OutputRoot, "error", err)
		os.Exit(1)
	}

	// Initialize feed client
	feedClient := feed.NewClient(feed.NewHTTPClient(cfg.FeedTimeout))

	// Initialize orchestrator
	orchestrator := service.NewOrchestrator(
		cfg,
		workspace.NewAllocator(cfg.OutputRoot),
		runner.New(cfg.ServiceTimeout),
		lineofsight.NewGridProjector(),
		feedClient,
	)
	orchestrator.SetRecorder(manifestRepo)

	// Initialize worker pool and async runner
	pool := worker.NewWorkerPool(cfg.WorkerPoolSize, cfg.JobQueueSize)
	asyncRunner := service.NewAsyncRunner(orchestrator, pool)
	pool.Start()

	// Initialize feed ingestion and scheduler
	ingestor := service.NewFeedIngestor(cfg, feedClient, eventRepo, asyncRunner)
	sched, err := scheduler.NewScheduler(cfg, ingestor, lockRepo)
	if err != nil {
		slog.Error("Failed to create scheduler", "error", err)
		os.Exit(1)
	}
	sched.Start(ctx)

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	<-sigChan
	slog.Info("Received shutdown signal, initiating graceful shutdown")

	// Create shutdown context with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	// Stop scheduler first (wait for in-flight ingestion)
	slog.Info("Stopping scheduler...")
	sched.Stop(shutdownCtx)

	// Drain queued jobs
	slog.Info("Stopping worker pool...", "queued", pool.GetJobQueueLength())
	pool.Stop()

	slog.Info("Disloc service stopped")
}
