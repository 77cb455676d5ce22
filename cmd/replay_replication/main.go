package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/light-bringer/catalog-admin-service/internal/config"
	"github.com/light-bringer/catalog-admin-service/internal/platform/observability"
	"github.com/light-bringer/catalog-admin-service/internal/services"
)

func main() {
	minAge := flag.Duration("min-age", 5*time.Minute, "Replay pending entries only when older than this")
	limit := flag.Int("limit", 500, "Maximum number of entries to replay")
	flag.Parse()

	if err := run(*minAge, *limit); err != nil {
		log.Fatalf("Replay failed: %v", err)
	}
}

// run republishes failed entries and stale pending entries of the
// replication log.
func run(minAge time.Duration, limit int) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 1. Load configuration
	cfg, err := config.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Server.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	// 2. Wire dependencies
	serviceOpts, err := services.NewServiceOptions(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize service: %w", err)
	}
	defer serviceOpts.Close()

	// 3. Replay
	olderThan := time.Now().UTC().Add(-minAge)
	delivered, failed, err := serviceOpts.Replicator.Replay(ctx, olderThan, limit)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Tasks.ShutdownTimeout)
	defer cancel()
	_ = serviceOpts.Shutdown(shutdownCtx)

	if err != nil {
		return fmt.Errorf("replay interrupted after %d delivered: %w", delivered, err)
	}

	logger.Info("replay finished", zap.Int("delivered", delivered), zap.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("%d entries failed again", failed)
	}
	return nil
}
