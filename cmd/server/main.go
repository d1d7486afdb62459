// Package main is the entry point for the todo API server.
//
// MAIN PACKAGE IN GO:
// main() should stay small. Its job is to:
//  1. Read configuration (internal/config, from env vars)
//  2. Build the logger
//  3. Hand both to internal/server and block until shutdown
//
// Everything else lives in internal/ so it can be tested without a process.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/sakif/todo-tracker/internal/config"
	"github.com/sakif/todo-tracker/internal/server"
)

// startupTimeout bounds opening the database and running migrations.
const startupTimeout = 30 * time.Second

func main() {
	// === 1. READ CONFIGURATION ===
	// JWT_SECRET is required. Generate one with:
	//   JWT_SECRET=$(openssl rand -hex 32)
	cfg, err := config.Load()
	if err != nil {
		// No logger yet: the log settings are part of what failed to load.
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	// === 2. SET UP LOGGING ===
	logger := cfg.NewLogger(os.Stdout)
	slog.SetDefault(logger)
	logger.Info("configuration loaded", slog.Any("config", cfg))

	// === 3. CREATE AND START THE SERVER ===
	ctx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	srv, err := server.New(ctx, cfg, logger)
	cancel()
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start() blocks until the server is shut down (via Ctrl+C or SIGTERM)
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
