// Package main implements the entry point for the base-api service. A
// single binary serves all four runtime roles (API server, worker,
// scheduler, monitor); environment flags select exactly one role per
// process instance.
package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/seaward/base-api/internal/config"
	"github.com/seaward/base-api/internal/platform/logger"
)

func main() {
	app, err := initializeApp()
	if err != nil {
		// Configuration and wiring failures are fatal before any listener
		// or consumer starts; the orchestrator sees a non-zero exit.
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.run(ctx); err != nil {
		app.logger.Error("application exited with error",
			"role", app.config.Worker.Role(),
			"error", err)
		app.cleanup()
		log.Fatalf("Application failed: %v", err)
	}
}

// initializeApp loads configuration, sets up logging, and builds the
// dependencies shared by every role. Role-specific subsystems are
// constructed later, once the role is known.
func initializeApp() (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	appLogger, err := logger.Setup(cfg.Server)
	if err != nil {
		return nil, fmt.Errorf("failed to set up logger: %w", err)
	}

	role := cfg.Worker.Role()
	appLogger.Info("configuration loaded",
		"role", role,
		"port", cfg.Server.Port,
		"log_level", cfg.Server.LogLevel,
		"queue", cfg.Worker.Queue)

	return newApplication(cfg, appLogger)
}
