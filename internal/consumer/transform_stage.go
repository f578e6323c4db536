package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
	"github.com/Kseniia567/fraud-detection-ADD/internal/metrics"
	"github.com/Kseniia567/fraud-detection-ADD/internal/queue"
	"github.com/Kseniia567/fraud-detection-ADD/internal/transform"
)

// TransformStage cleans raw batches and republishes them as clean_data
type TransformStage struct {
	publisher queue.QueuePublisher
	parser    BatchParser
	cleaner   *transform.Cleaner
	settler   *Settler
	exchange  string
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// NewTransformStage creates a new transform stage
func NewTransformStage(publisher queue.QueuePublisher, parser BatchParser, cleaner *transform.Cleaner, settler *Settler, exchange string, m *metrics.Metrics, log *zap.Logger) *TransformStage {
	return &TransformStage{
		publisher: publisher,
		parser:    parser,
		cleaner:   cleaner,
		settler:   settler,
		exchange:  exchange,
		metrics:   m,
		log:       log,
	}
}

// Handle parses, cleans and republishes one batch. Malformed payloads are
// dead-lettered; a failed publish requeues the input.
func (s *TransformStage) Handle(ctx context.Context, env *Envelope) error {
	records, err := s.parser.ParseRaw(env.Body())
	if err != nil {
		s.log.Warn("Failed to parse raw batch",
			zap.String("queue", env.Queue),
			zap.String("message_id", env.MessageID()),
			zap.Error(err))
		s.metrics.BatchConsumed(env.Queue, "unprocessable")
		return s.settler.DeadLetter(ctx, env, ReasonUnprocessable, err)
	}

	cleaned := s.cleaner.Clean(records)
	if len(cleaned) == 0 {
		s.log.Info("Raw batch is empty after cleaning, nothing to publish",
			zap.String("message_id", env.MessageID()))
		s.metrics.BatchConsumed(env.Queue, "empty")
		return env.Ack()
	}

	body, err := json.Marshal(cleaned)
	if err != nil {
		s.metrics.BatchConsumed(env.Queue, "unprocessable")
		return s.settler.DeadLetter(ctx, env, ReasonUnprocessable,
			fmt.Errorf("%w: failed to marshal cleaned batch: %w", domain.ErrBatchUnprocessable, err))
	}

	msg := queue.Message{
		ID:   uuid.NewString(),
		Body: body,
		Headers: map[string]any{
			queue.HeaderBatchSize: len(cleaned),
		},
	}

	// The publish finishes even if shutdown starts mid-batch.
	if err := s.publisher.Publish(context.WithoutCancel(ctx), s.exchange, queue.RoutingKeyClean, msg); err != nil {
		s.log.Error("Failed to publish cleaned batch, requeueing input",
			zap.String("message_id", env.MessageID()),
			zap.Error(err))
		s.metrics.BatchConsumed(env.Queue, "failed")
		if nackErr := env.Requeue(); nackErr != nil {
			return fmt.Errorf("failed to requeue batch: %w", nackErr)
		}
		if errors.Is(err, domain.ErrConnectionLost) {
			return fmt.Errorf("batch requeued: %w", err)
		}
		return nil
	}

	s.metrics.BatchPublished(queue.RoutingKeyClean)
	s.metrics.BatchConsumed(env.Queue, "ok")
	s.log.Info("Published cleaned batch",
		zap.String("input_message_id", env.MessageID()),
		zap.String("message_id", msg.ID),
		zap.Int("input_records", len(records)),
		zap.Int("cleaned_records", len(cleaned)))

	return env.Ack()
}
