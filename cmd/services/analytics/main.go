package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/statlens/statlens/internal/archive"
	"github.com/statlens/statlens/internal/cache"
	"github.com/statlens/statlens/internal/config"
	"github.com/statlens/statlens/internal/handlers"
	"github.com/statlens/statlens/internal/logging"
	"github.com/statlens/statlens/internal/metrics"
	"github.com/statlens/statlens/internal/queue"
	"github.com/statlens/statlens/internal/router"
	"github.com/statlens/statlens/internal/services"
	"github.com/statlens/statlens/internal/store"
	"github.com/statlens/statlens/internal/utils"
)

var (
	Version   = "dev"     // Injected via ldflags during build
	GitCommit = "unknown" // Injected via ldflags during build
	BuildTime = "unknown" // Injected via ldflags during build
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Setup logger
	logger, err := logging.NewFromConfig(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	logging.SetGlobal(logger)
	handlers.Version = Version
	logger.Info("Analytics service starting...",
		"version", Version, "commit", GitCommit, "build time", BuildTime)

	if err := cfg.EnsureDirectories(); err != nil {
		logger.Fatal("Failed to create directories", "error", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Dataset and result store
	logger.Info("Opening store", "type", cfg.Store.Type)
	st, err := store.New(ctx, cfg.Store)
	if err != nil {
		logger.Fatal("Failed to open store", "error", err)
	}
	defer func() { _ = st.Close() }()

	// Result cache
	logger.Info("Connecting to cache", "type", cfg.Cache.Type)
	resultCache, err := cache.New(ctx, cfg.Cache)
	if err != nil {
		logger.Fatal("Failed to connect to cache", "error", err)
	}
	defer func() { _ = resultCache.Close() }()

	// Connect to Queue (configurable backend)
	logger.Info("Connecting to Queue", "enabled", cfg.Queue.Enabled, "type", cfg.Queue.Type)
	queueClient, err := queue.NewQueue(cfg.Queue)
	if err != nil {
		logger.Fatal("Failed to connect to Queue", "error", err)
	}
	events := queue.NewEvents(queueClient)
	defer func() { _ = events.Close() }()

	// Report archive
	reportArchive, err := archive.New(ctx, cfg.Archive)
	if err != nil {
		logger.Fatal("Failed to open report archive", "error", err)
	}

	registry := metrics.NewRegistry()

	analyticsSvc := services.NewAnalyticsService(logger, services.AnalyticsDeps{
		Datasets:   st,
		Results:    st,
		Cache:      resultCache,
		Events:     events,
		Metrics:    registry,
		Detector:   cfg.Analytics.DetectorConfig(),
		RunTimeout: cfg.Analytics.RunTimeout,
	})
	reportSvc := services.NewReportService(logger, analyticsSvc, reportArchive)

	// Keep cached analytics in step with dataset changes
	if err := services.NewDatasetEventHandler(logger, analyticsSvc).Register(events); err != nil {
		logger.Fatal("Failed to subscribe to dataset events", "error", err)
	}

	app := router.New(logger, router.Services{
		Analytics: analyticsSvc,
		Reports:   reportSvc,
		Metrics:   registry,
	}, *cfg)

	// Start server in goroutine
	go func() {
		addr := cfg.GetServerAddress()
		logger.Info("Server listening", "address", addr)
		if err := app.Listen(addr); err != nil {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), utils.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}
