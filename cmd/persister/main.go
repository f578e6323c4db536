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
	"github.com/Kseniia567/fraud-detection-ADD/internal/consumer"
	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
	"github.com/Kseniia567/fraud-detection-ADD/internal/health"
	"github.com/Kseniia567/fraud-detection-ADD/internal/logger"
	"github.com/Kseniia567/fraud-detection-ADD/internal/metrics"
	"github.com/Kseniia567/fraud-detection-ADD/internal/queue"
	"github.com/Kseniia567/fraud-detection-ADD/internal/queue/rabbitmq"
	"github.com/Kseniia567/fraud-detection-ADD/internal/repository/postgres"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	baseLog, err := logger.New(cfg.Service.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	log := logger.WithStage(baseLog, "persister")

	err = run(cfg, log)
	_ = baseLog.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting persister",
		zap.String("environment", cfg.Service.Environment))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Initialize PostgreSQL client
	pgClient, err := postgres.NewClient(ctx, &cfg.Postgres, log)
	if err != nil {
		log.Error("Failed to create PostgreSQL client", zap.Error(err))
		return err
	}
	defer func() {
		if err := pgClient.Close(); err != nil {
			log.Error("Failed to close PostgreSQL client", zap.Error(err))
		}
	}()

	// Initialize repository
	repo := postgres.NewRepository(pgClient.DB(), log)

	if cfg.Postgres.InitSchema {
		if err := repo.InitSchema(ctx); err != nil {
			log.Error("Failed to initialize schema", zap.Error(err))
			return err
		}
	}

	// Initialize RabbitMQ client
	rmq, err := rabbitmq.NewClient(ctx, cfg.RabbitMQ, log)
	if err != nil {
		log.Error("Failed to create RabbitMQ client", zap.Error(err))
		return err
	}
	defer func() {
		if err := rmq.Close(); err != nil {
			log.Error("Failed to close RabbitMQ client", zap.Error(err))
		}
	}()

	if err := rmq.DeclareTopology(queue.DefaultTopology(cfg.RabbitMQ.DeadLetterExchange)); err != nil {
		log.Error("Failed to declare topology", zap.Error(err))
		return err
	}

	m := metrics.New(nil)

	// Start health check endpoint
	srv := health.NewServer(":"+cfg.Consumer.HealthCheckPort, func(ctx context.Context) error {
		if rmq.IsClosed() {
			return errors.New("broker connection closed")
		}
		return repo.Ping(ctx)
	}, m.Handler(), log)
	go func() {
		log.Info("Health check server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Health check server error", zap.Error(err))
		}
	}()
	defer shutdownServer(srv, log)

	c := consumer.NewPersister(cfg, rmq, rmq, repo, m, log)

	consumerCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// A dropped connection stops the receivers; the supervisor restarts us.
	closed := rmq.NotifyClose()
	go func() {
		select {
		case amqpErr, ok := <-closed:
			if ok && amqpErr != nil {
				log.Error("RabbitMQ connection lost", zap.Error(amqpErr))
			}
			cancel()
		case <-consumerCtx.Done():
		}
	}()

	log.Info("Persister consuming",
		zap.Strings("queues", []string{queue.QueueRawUpload, queue.QueueProcessedUpload}))

	err = c.Start(consumerCtx)
	if err == nil && ctx.Err() == nil && rmq.IsClosed() {
		err = domain.ErrConnectionLost
	}
	if err != nil {
		log.Error("Persister stopped with error", zap.Error(err))
		return err
	}

	log.Info("Shutting down persister gracefully")
	return nil
}

func shutdownServer(srv *http.Server, log *zap.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("Failed to shut down health check server", zap.Error(err))
	}
}
