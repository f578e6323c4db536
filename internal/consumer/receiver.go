package consumer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
	"github.com/Kseniia567/fraud-detection-ADD/internal/queue"
)

// Receiver consumes one queue and hands every delivery to a handler, one at
// a time. With prefetch 1 this keeps a single unacknowledged batch in flight.
type Receiver struct {
	consumer queue.QueueConsumer
	queue    string
	handler  Handler
	log      *zap.Logger
}

// NewReceiver creates a new queue receiver
func NewReceiver(consumer queue.QueueConsumer, queueName string, handler Handler, log *zap.Logger) *Receiver {
	return &Receiver{
		consumer: consumer,
		queue:    queueName,
		handler:  handler,
		log:      log.With(zap.String("queue", queueName)),
	}
}

// Start consumes until ctx is done. A delivery stream that closes while ctx
// is still live means the broker connection is gone, and so does a handler
// error wrapping domain.ErrConnectionLost.
func (r *Receiver) Start(ctx context.Context) error {
	deliveries, err := r.consumer.Consume(ctx, r.queue)
	if err != nil {
		return fmt.Errorf("%w: failed to consume %s: %w", domain.ErrConnectionLost, r.queue, err)
	}

	r.log.Info("Receiver started")

	for {
		select {
		case <-ctx.Done():
			r.log.Info("Receiver shutting down")
			return nil
		case d, ok := <-deliveries:
			if !ok {
				if ctx.Err() != nil {
					r.log.Info("Receiver shutting down")
					return nil
				}
				r.log.Error("Delivery channel closed by broker")
				return fmt.Errorf("%w: delivery channel for %s closed", domain.ErrConnectionLost, r.queue)
			}

			if err := r.handler.Handle(ctx, NewEnvelope(r.queue, d)); err != nil {
				r.log.Error("Failed to settle delivery",
					zap.String("message_id", d.MessageId),
					zap.Uint64("delivery_tag", d.DeliveryTag),
					zap.Error(err))
				if errors.Is(err, domain.ErrConnectionLost) {
					return err
				}
			}
		}
	}
}
