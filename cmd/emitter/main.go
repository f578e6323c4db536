package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Kseniia567/fraud-detection-ADD/internal/config"
	"github.com/Kseniia567/fraud-detection-ADD/internal/emitter"
	"github.com/Kseniia567/fraud-detection-ADD/internal/logger"
	"github.com/Kseniia567/fraud-detection-ADD/internal/queue"
	"github.com/Kseniia567/fraud-detection-ADD/internal/queue/rabbitmq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// Initialize logger
	baseLog, err := logger.New(cfg.Service.Environment)
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	log := logger.WithStage(baseLog, "emitter")

	err = run(cfg, log)
	_ = baseLog.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("Starting emitter",
		zap.String("environment", cfg.Service.Environment),
		zap.String("source", cfg.Emitter.SourcePath),
		zap.Int("batch_size", cfg.Emitter.BatchSize))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	records, err := emitter.ReadFile(cfg.Emitter.SourcePath)
	if err != nil {
		log.Error("Failed to load dataset", zap.Error(err))
		return err
	}
	log.Info("Dataset loaded", zap.Int("record_count", len(records)))

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

	e := emitter.NewEmitter(rmq, queue.ExchangeName, cfg.Emitter.BatchSize, log)

	published, err := e.Emit(ctx, records)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("Emitter interrupted", zap.Int("batches_published", published))
		} else {
			log.Error("Emitter failed", zap.Int("batches_published", published), zap.Error(err))
		}
		return err
	}

	log.Info("All batches published",
		zap.Int("batches_published", published),
		zap.Int("record_count", len(records)))
	return nil
}
