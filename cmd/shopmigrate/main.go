// Command shopmigrate applies the PostgreSQL schema and exits.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/matheusmosca/shop-service/internal/config"
	"github.com/matheusmosca/shop-service/internal/logging"
	"github.com/matheusmosca/shop-service/internal/repository/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := postgres.Migrate(ctx, cfg.DatabaseDSN(), cfg.DatabaseAttempts, logger); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
}
