package consumer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
	"github.com/Kseniia567/fraud-detection-ADD/internal/metrics"
	"github.com/Kseniia567/fraud-detection-ADD/internal/repository"
)

// BatchWriterConfig configures the batch writer
type BatchWriterConfig struct {
	Table        string
	WriteTimeout time.Duration
}

// insertFunc decodes body and writes it to the store. It returns the number
// of rows committed and the number of records in the batch.
type insertFunc func(ctx context.Context, body []byte) (inserted, total int, err error)

// BatchWriter persists each delivered batch in one transaction
type BatchWriter struct {
	insert  insertFunc
	settler *Settler
	config  BatchWriterConfig
	metrics *metrics.Metrics
	log     *zap.Logger
}

// NewRawBatchWriter creates a batch writer for raw_data
func NewRawBatchWriter(repo repository.TransactionRepository, parser BatchParser, settler *Settler, writeTimeout time.Duration, m *metrics.Metrics, log *zap.Logger) *BatchWriter {
	insert := func(ctx context.Context, body []byte) (int, int, error) {
		records, err := parser.ParseRaw(body)
		if err != nil {
			return 0, 0, err
		}
		n, err := repo.InsertRaw(ctx, records)
		return n, len(records), err
	}

	return newBatchWriter(insert, settler, BatchWriterConfig{
		Table:        repository.TableRaw,
		WriteTimeout: writeTimeout,
	}, m, log)
}

// NewProcessedBatchWriter creates a batch writer for processed_transactions
func NewProcessedBatchWriter(repo repository.TransactionRepository, parser BatchParser, settler *Settler, writeTimeout time.Duration, m *metrics.Metrics, log *zap.Logger) *BatchWriter {
	insert := func(ctx context.Context, body []byte) (int, int, error) {
		records, err := parser.ParseCleaned(body)
		if err != nil {
			return 0, 0, err
		}
		n, err := repo.InsertProcessed(ctx, records)
		return n, len(records), err
	}

	return newBatchWriter(insert, settler, BatchWriterConfig{
		Table:        repository.TableProcessed,
		WriteTimeout: writeTimeout,
	}, m, log)
}

func newBatchWriter(insert insertFunc, settler *Settler, config BatchWriterConfig, m *metrics.Metrics, log *zap.Logger) *BatchWriter {
	return &BatchWriter{
		insert:  insert,
		settler: settler,
		config:  config,
		metrics: m,
		log:     log.With(zap.String("table", config.Table)),
	}
}

// Handle writes one batch and acks it on commit. Failed writes are retried
// through the settler; malformed payloads go straight to the dead-letter queue.
func (w *BatchWriter) Handle(ctx context.Context, env *Envelope) error {
	// The write runs to completion or timeout even once shutdown has begun.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), w.config.WriteTimeout)
	defer cancel()

	start := time.Now()
	inserted, total, err := w.insert(writeCtx, env.Body())
	elapsed := time.Since(start)

	if err != nil {
		if errors.Is(err, domain.ErrBatchUnprocessable) {
			w.log.Warn("Failed to parse batch",
				zap.String("message_id", env.MessageID()),
				zap.Error(err))
			w.metrics.BatchConsumed(env.Queue, "unprocessable")
			return w.settler.DeadLetter(ctx, env, ReasonUnprocessable, err)
		}

		w.log.Error("Failed to insert batch",
			zap.String("message_id", env.MessageID()),
			zap.Int("record_count", total),
			zap.Int("attempt", env.Attempt()),
			zap.Error(err))
		w.metrics.BatchConsumed(env.Queue, "failed")
		return w.settler.Retry(ctx, env, fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err))
	}

	w.metrics.ObserveInsert(w.config.Table, elapsed)
	w.metrics.RecordsInserted(w.config.Table, inserted)
	if skipped := total - inserted; skipped > 0 {
		w.metrics.RecordsSkipped(w.config.Table, skipped)
		w.log.Warn("Some records were excluded from the insert",
			zap.Int("inserted", inserted),
			zap.Int("skipped", skipped))
	}
	w.metrics.BatchConsumed(env.Queue, "ok")

	w.log.Info("Successfully inserted batch",
		zap.String("message_id", env.MessageID()),
		zap.Int("count", inserted),
		zap.Duration("duration", elapsed))

	if err := env.Ack(); err != nil {
		return fmt.Errorf("failed to ack batch: %w", err)
	}
	return nil
}
