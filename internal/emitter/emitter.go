package emitter

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
	"github.com/Kseniia567/fraud-detection-ADD/internal/queue"
)

// Emitter publishes a dataset as raw_data batches
type Emitter struct {
	publisher queue.QueuePublisher
	exchange  string
	batchSize int
	log       *zap.Logger
}

// NewEmitter creates a new emitter
func NewEmitter(publisher queue.QueuePublisher, exchange string, batchSize int, log *zap.Logger) *Emitter {
	return &Emitter{
		publisher: publisher,
		exchange:  exchange,
		batchSize: batchSize,
		log:       log,
	}
}

// Batches splits records into contiguous batches of size; the last batch may
// be shorter. The batches share the backing array of records.
func Batches(records []domain.RawRecord, size int) [][]domain.RawRecord {
	if size < 1 {
		size = 1
	}
	batches := make([][]domain.RawRecord, 0, (len(records)+size-1)/size)
	for start := 0; start < len(records); start += size {
		end := min(start+size, len(records))
		batches = append(batches, records[start:end])
	}
	return batches
}

// Emit publishes every batch in order and returns how many were published.
// Each publish must be confirmed before the next batch is sent; the first
// failure stops the run.
func (e *Emitter) Emit(ctx context.Context, records []domain.RawRecord) (int, error) {
	batches := Batches(records, e.batchSize)
	sent := 0

	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return i, err
		}

		body, err := json.Marshal(batch)
		if err != nil {
			return i, fmt.Errorf("failed to marshal batch %d: %w", i+1, err)
		}

		msg := queue.Message{
			ID:   uuid.NewString(),
			Body: body,
			Headers: map[string]any{
				queue.HeaderBatchSize: len(batch),
			},
		}

		if err := e.publisher.Publish(ctx, e.exchange, queue.RoutingKeyRaw, msg); err != nil {
			return i, fmt.Errorf("failed to publish batch %d: %w", i+1, err)
		}

		sent += len(batch)
		e.log.Info("Batch published",
			zap.Int("batch", i+1),
			zap.Int("total_batches", len(batches)),
			zap.Int("batch_size", len(batch)),
			zap.Int("records_sent", sent),
			zap.Int("total_records", len(records)),
			zap.String("message_id", msg.ID))
	}

	return len(batches), nil
}
