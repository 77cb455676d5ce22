package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/light-bringer/catalog-admin-service/internal/config"
	"github.com/light-bringer/catalog-admin-service/internal/platform/observability"
	"github.com/light-bringer/catalog-admin-service/internal/services"
	transport "github.com/light-bringer/catalog-admin-service/internal/transport/http"
)

const httpShutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Failed to run server: %v", err)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load configuration from the environment and .env
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Build the logger
	logger, err := observability.NewLogger(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("starting catalog admin service",
		zap.String("spanner_database", cfg.Spanner.Database),
		zap.String("bucket", cfg.Storage.Bucket),
		zap.String("topic", cfg.PubSub.Topic),
		zap.String("http_port", cfg.Server.Port),
	)

	// 3. Initialize service dependencies (DI container)
	serviceOpts, err := services.NewServiceOptions(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	defer serviceOpts.Close()

	// 4. Create HTTP server
	httpServer := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      transport.NewRouter(serviceOpts.ProductHandler, logger),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// 5. Start HTTP server in background
	serveErr := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	// 6. Wait for a signal or a server failure
	select {
	case <-ctx.Done():
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
	}

	logger.Info("shutting down gracefully")

	// 7. Stop taking requests, then drain post-commit tasks
	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("HTTP server shutdown error", zap.Error(err))
	}

	tasksCtx, cancelTasks := context.WithTimeout(context.Background(), cfg.Tasks.ShutdownTimeout)
	defer cancelTasks()
	if err := serviceOpts.Shutdown(tasksCtx); err != nil {
		logger.Warn("post-commit tasks did not finish", zap.Error(err))
	}
	return nil
}
