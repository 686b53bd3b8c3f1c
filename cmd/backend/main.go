// Package main provides the entry point for the MinLink URL shortener service.
package main

import (
	"MinLink-Backend/internal/analytics"
	"MinLink-Backend/internal/cache"
	"MinLink-Backend/internal/config"
	"MinLink-Backend/internal/database"
	httpHandler "MinLink-Backend/internal/handler/http"
	"MinLink-Backend/internal/ratelimit"
	"MinLink-Backend/internal/repository/postgres"
	"MinLink-Backend/internal/service"
	"MinLink-Backend/internal/verifier"
	"MinLink-Backend/pkg/logger"
	"MinLink-Backend/pkg/useragent"
	"context"
	"fmt"
	lg "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()
	log := logger.New(cfg.Env)
	defer func() {
		if err := log.Sync(); err != nil {
			lg.Printf("ERROR: failed to sync zap logger: %v\n", err)
		}
	}()

	log.Info("starting MinLink backend service", zap.String("env", cfg.Env))

	// Initialize database connection
	db, err := database.NewConnection(&cfg.Database, log)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := database.Close(db, log); err != nil {
			log.Error("failed to close database connection", zap.Error(err))
		}
	}()

	// Run database migrations if enabled
	if cfg.Database.AutoMigrate {
		log.Info("running database migrations (auto_migrate: true)")
		if err := database.AutoMigrate(db, log); err != nil {
			log.Fatal("failed to run database migrations", zap.Error(err))
		}
	} else {
		log.Info("skipping database migrations (auto_migrate: false)")
	}

	// Initialize cache: Redis when reachable, in-process fallback otherwise.
	// The service stays up without Redis, just without a shared fast path.
	var keyValueCache cache.Cache
	redisCache, err := cache.NewRedisCache(&cfg.Redis, log)
	if err != nil {
		log.Error("failed to connect to redis, degrading to in-memory cache", zap.Error(err))
		keyValueCache = cache.NewMemoryCache()
	} else {
		keyValueCache = redisCache
	}
	defer func() {
		if err := keyValueCache.Close(); err != nil {
			log.Error("failed to close cache", zap.Error(err))
		}
	}()

	// Initialize User-Agent parser
	uaParser, err := useragent.NewParser("assets/regexes.yaml", log)
	if err != nil {
		log.Warn("failed to initialize User-Agent parser, click enrichment disabled", zap.Error(err))
	}

	// Initialize storage and services
	storage := postgres.New(db, log)
	titleFetcher := service.NewTitleFetcher(log)
	urlShortenerService := service.NewURLShortener(storage, keyValueCache, titleFetcher, &cfg.URLShortener, log)
	limiter := ratelimit.New(keyValueCache, storage, &cfg.RateLimit, log)
	challenge := verifier.NewTurnstile(&cfg.Turnstile, log)

	// Start click analytics workers
	processor := analytics.NewProcessor(storage, urlShortenerService, uaParser, log, analytics.DefaultConfig())
	if err := processor.Start(); err != nil {
		log.Fatal("failed to start analytics processor", zap.Error(err))
	}

	// Create HTTP server
	httpAPIServer := httpHandler.NewServer(
		storage,
		urlShortenerService,
		limiter,
		challenge,
		processor,
		cfg.URLShortener.AdminToken,
		log,
	)

	// Setup routes
	httpMux := httpAPIServer.SetupRoutes()

	addr := fmt.Sprintf(":%d", cfg.HTTPServer.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      httpMux,
		ReadTimeout:  cfg.HTTPServer.ReadTimeout,
		WriteTimeout: cfg.HTTPServer.WriteTimeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	log.Info("starting HTTP server", zap.String("address", addr))

	// Start HTTP server in goroutine
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("HTTP server failed", zap.Error(err))
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down MinLink backend service...")

	// Gracefully stop HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to shutdown HTTP server", zap.Error(err))
	} else {
		log.Info("HTTP server stopped")
	}

	// Drain the click queue after the server stops accepting requests
	if err := processor.Stop(); err != nil {
		log.Error("failed to stop analytics processor", zap.Error(err))
	} else {
		log.Info("analytics processor stopped")
	}
}
