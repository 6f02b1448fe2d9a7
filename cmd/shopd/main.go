package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"

	"github.com/matheusmosca/shop-service/internal/config"
	"github.com/matheusmosca/shop-service/internal/handler"
	"github.com/matheusmosca/shop-service/internal/logging"
	"github.com/matheusmosca/shop-service/internal/repository"
	"github.com/matheusmosca/shop-service/internal/repository/postgres"
	"github.com/matheusmosca/shop-service/internal/repository/sqlite"
	"github.com/matheusmosca/shop-service/internal/telemetry"
	"github.com/matheusmosca/shop-service/internal/usecase"
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

	if err := run(cfg, logger); err != nil {
		logger.Fatal("shop service stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := telemetry.Setup(ctx, telemetry.Config{
		Enabled:     cfg.OTelEnabled,
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTelEndpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTelemetry(context.Background()); err != nil {
			logger.Error("error shutting down telemetry", zap.Error(err))
		}
	}()

	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	metrics, err := usecase.NewMetrics(otel.Meter(cfg.ServiceName))
	if err != nil {
		return err
	}

	gin.SetMode(gin.ReleaseMode)
	router := handler.NewRouter(handler.RouterConfig{
		ServiceName: cfg.ServiceName,
		Users:       usecase.NewUserUseCase(store, logger),
		Orders:      usecase.NewOrderUseCase(store, metrics, logger),
		Carts:       usecase.NewCartUseCase(store, logger),
		Store:       store,
		Tracer:      otel.Tracer(cfg.ServiceName),
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  30 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		logger.Info("shop service listening",
			zap.String("port", cfg.Port),
			zap.String("store", cfg.StoreDriver),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down", zap.Duration("timeout", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http server shutdown: %w", err)
	}
	logger.Info("shop service stopped")
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (repository.Repository, error) {
	if cfg.StoreDriver == config.DriverSQLite {
		logger.Info("opening sqlite store", zap.String("path", cfg.SQLitePath))
		repo, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return repo, nil
	}

	dsn := cfg.DatabaseDSN()
	if cfg.MigrateOnStart {
		if err := postgres.Migrate(ctx, dsn, cfg.DatabaseAttempts, logger); err != nil {
			return nil, err
		}
	}
	repo, err := postgres.Open(ctx, dsn, postgres.PoolConfig{
		MaxConns: cfg.DatabaseMaxConns,
		MinConns: cfg.DatabaseMinConns,
		Attempts: cfg.DatabaseAttempts,
	}, logger)
	if err != nil {
		return nil, err
	}
	return repo, nil
}

