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

	"go.uber.org/zap"

	"github.com/Kseniia567/fraud-detection-ADD/internal/config"
	"github.com/Kseniia567/fraud-detection-ADD/internal/handler"
	"github.com/Kseniia567/fraud-detection-ADD/internal/logger"
	"github.com/Kseniia567/fraud-detection-ADD/internal/repository/postgres"
	"github.com/Kseniia567/fraud-detection-ADD/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	log, err := logger.New(cfg.Service.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer func(log *zap.Logger) {
		err := log.Sync()
		if err != nil {
			log.Error("Failed to sync logger", zap.Error(err))
		}
	}(log)

	log.Info("Starting analytics API",
		zap.String("environment", cfg.Service.Environment),
		zap.String("port", cfg.Service.APIPort))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL client
	pgClient, err := postgres.NewClient(ctx, &cfg.Postgres, log)
	if err != nil {
		log.Fatal("Failed to create PostgreSQL client", zap.Error(err))
	}
	defer func(pgClient *postgres.Client) {
		if err := pgClient.Close(); err != nil {
			log.Error("Failed to close PostgreSQL client", zap.Error(err))
		}
	}(pgClient)

	// Initialize repository
	repo := postgres.NewRepository(pgClient.DB(), log)

	// Initialize analytics service
	analyticsService := service.NewAnalyticsService(repo, log)

	// Initialize handler
	h := handler.NewHandler(analyticsService, log)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Service.APIPort),
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("API server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("API server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down API server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Failed to shut down API server", zap.Error(err))
	}
}
