package main

import (
	"fmt"
	"os"

	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.uber.org/zap"

	"dev/bravebird/clinic-ui-verify/pkg/config"
	"dev/bravebird/clinic-ui-verify/pkg/database"
	"dev/bravebird/clinic-ui-verify/pkg/logger"
	"dev/bravebird/clinic-ui-verify/pkg/temporal/activities"
	"dev/bravebird/clinic-ui-verify/pkg/temporal/workflows"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "worker: %v\n", err)
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

	// Create Temporal client
	c, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    logger.NewTemporalLogger(log),
	})
	if err != nil {
		return fmt.Errorf("failed to create Temporal client: %w", err)
	}
	defer c.Close()

	// Results are persisted only when a database is configured
	var recorder activities.Recorder
	if cfg.Database.DSN != "" {
		db, err := database.New(cfg.Database.DSN)
		if err != nil {
			log.Warn("Failed to connect to database, results will not be recorded", zap.Error(err))
		} else {
			defer db.Close()
			recorder = db
		}
	}

	if err := os.MkdirAll(cfg.Verify.ScreenshotDir, 0755); err != nil {
		return fmt.Errorf("failed to create screenshot directory %s: %w", cfg.Verify.ScreenshotDir, err)
	}

	// Create activities
	acts := activities.NewActivities(cfg.Verify, cfg.Browser, recorder, log)

	// Create worker
	w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{
		MaxConcurrentActivityExecutionSize:     5,
		MaxConcurrentWorkflowTaskExecutionSize: 10,
	})

	// Register workflows
	w.RegisterWorkflow(workflows.VerificationWorkflow)

	// Register activities
	w.RegisterActivity(acts)

	log.Info("Starting Temporal worker",
		zap.String("taskQueue", cfg.Temporal.TaskQueue),
		zap.String("temporalHost", cfg.Temporal.HostPort),
		zap.String("baseURL", cfg.Verify.BaseURL),
		zap.Bool("persistence", recorder != nil))

	// Start worker
	if err := w.Run(worker.InterruptCh()); err != nil {
		return fmt.Errorf("worker failed: %w", err)
	}
	return nil
}
