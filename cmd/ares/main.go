// Package main provides the entry point for the Ares server.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/do/v2"

	"github.com/aresapp/ares-server/internal/di"
	"github.com/aresapp/ares-server/internal/logger"
)

// shutdownGrace bounds the whole container shutdown, including in-flight
// wizard runs.
const shutdownGrace = 45 * time.Second

func main() {
	// Create DI container
	injector := di.NewContainer()

	// Bootstrap all services
	if err := di.Bootstrap(injector); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to bootstrap server: %v\n", err)
		_ = injector.Shutdown()
		os.Exit(1)
	}

	log := do.MustInvoke[*logger.Logger](injector)

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	// Services are shut down in reverse dependency order: the HTTP server
	// first, the catalog and indexes last.
	if err := injector.ShutdownWithContext(ctx); err != nil {
		log.Error("Shutdown error", "error", err)
	}

	log.Info("Server stopped")
}
