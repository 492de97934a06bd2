package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/feed-normalizer/app/api"
	"github.com/lysyi3m/feed-normalizer/app/cfg"
	"github.com/lysyi3m/feed-normalizer/app/database"
	"github.com/lysyi3m/feed-normalizer/app/feed"
	"github.com/lysyi3m/feed-normalizer/app/fetch"
	"github.com/lysyi3m/feed-normalizer/app/parsers"
	"github.com/lysyi3m/feed-normalizer/app/sources"
	"github.com/lysyi3m/feed-normalizer/app/tasks"
	"golang.org/x/time/rate"
)

func main() {
	appConfig, err := cfg.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if appConfig == nil {
		// Help was shown
		return
	}

	setupLogging(appConfig.Debug)

	slog.Info("Starting Feed Normalizer", "version", appConfig.Version)

	db, err := database.NewConnection(appConfig.DBPath)
	if err != nil {
		slog.Error("Failed to connect to database", "path", appConfig.DBPath, "error", err)
		os.Exit(1)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		slog.Error("Failed to run migrations", "error", err)
		os.Exit(1)
	}
	slog.Info("Database ready", "path", appConfig.DBPath, "migration_version", version, "dirty", dirty)

	parsersConfig, err := parsers.LoadConfig(appConfig.ParsersConfig)
	if err != nil {
		slog.Error("Failed to load parsers configuration", "path", appConfig.ParsersConfig, "error", err)
		os.Exit(1)
	}

	normalizer := feed.NewNormalizer(feed.WithAttemptTimeout(appConfig.GetAttemptTimeout()))
	normalizer.Register(parsersConfig.Adapters()...)
	for _, adapter := range normalizer.Adapters() {
		slog.Info("Parser registered", "parser", adapter.Name(), "priority", adapter.Priority())
	}

	configCache := sources.NewConfigCache(appConfig.SourcesDir)
	if err := configCache.Run(); err != nil {
		slog.Error("Failed to load source configurations", "dir", appConfig.SourcesDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Source configurations loaded", "dir", appConfig.SourcesDir, "count", configCache.GetConfigCount())

	httpClient := &http.Client{Timeout: appConfig.GetFetchTimeout()}
	fetcher := fetch.NewFetcher(httpClient, appConfig.UserAgent, appConfig.MaxBodySize)

	feedRepo := database.NewFeedRepository(db)

	scheduler := tasks.NewScheduler(configCache, feedRepo, fetcher, normalizer,
		appConfig.GetSchedulerInterval(), appConfig.WorkerCount)
	scheduler.Start()
	slog.Info("Scheduler started", "workers", appConfig.WorkerCount, "interval", appConfig.GetSchedulerInterval())

	if !appConfig.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	handler := api.NewHandler(normalizer, fetcher, configCache, feedRepo, scheduler,
		appConfig.GetCacheTTL(), appConfig.MaxBodySize, appConfig.Version)

	var limiter *rate.Limiter
	if appConfig.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(appConfig.RateLimit), appConfig.RateBurst)
	}
	server := api.NewServer(handler, appConfig.APIAccessKey, limiter)

	httpServer := &http.Server{
		Addr:         ":" + appConfig.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", appConfig.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		slog.Info("Received signal", "signal", sig.String())
	case err := <-serverErrChan:
		slog.Error("Server error", "error", err)
	}

	slog.Info("Shutting down server gracefully")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped")
	}

	scheduler.Stop()
	slog.Info("Scheduler stopped")

	slog.Info("Feed Normalizer shutdown complete")
}

func setupLogging(debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
}
