package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.temporal.io/sdk/client"
	"go.uber.org/zap"

	"dev/bravebird/clinic-ui-verify/pkg/api"
	"dev/bravebird/clinic-ui-verify/pkg/config"
	"dev/bravebird/clinic-ui-verify/pkg/database"
	"dev/bravebird/clinic-ui-verify/pkg/logger"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "api: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(cfg.Log)
	defer log.Sync()

	log.Info("Starting Clinic Verification API Server")

	// Initialize database
	var store api.Store
	if cfg.Database.DSN != "" {
		db, err := database.New(cfg.Database.DSN)
		if err != nil {
			log.Warn("Failed to connect to database, running without persistence", zap.Error(err))
		} else {
			defer db.Close()
			if err := db.Migrate(context.Background()); err != nil {
				return fmt.Errorf("failed to migrate database: %w", err)
			}
			store = db
		}
	}

	// Initialize Temporal client
	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger.NewTemporalLogger(log),
	})
	if err != nil {
		return fmt.Errorf("failed to create Temporal client: %w", err)
	}
	defer temporalClient.Close()

	// Create API handlers
	handlers := api.NewHandlers(store, temporalClient, api.Options{
		TaskQueue:     cfg.Temporal.TaskQueue,
		BaseURL:       cfg.Verify.BaseURL,
		ScreenshotDir: cfg.Verify.ScreenshotDir,
		Headless:      cfg.Browser.Headless,
	}, log)

	// Create server
	server := &http.Server{
		Addr:         ":" + cfg.API.Port,
		Handler:      api.NewRouter(handlers, cfg.API.AllowedOrigins),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	serveErr := make(chan error, 1)
	go func() {
		log.Info("API server listening", zap.String("port", cfg.API.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		return fmt.Errorf("server failed: %w", err)
	}

	log.Info("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
