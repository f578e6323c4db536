package queue

import (
	"context"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Header keys carried on pipeline messages.
const (
	HeaderAttempt       = "x-attempt"
	HeaderBatchSize     = "x-batch-size"
	HeaderSourceQueue   = "x-source-queue"
	HeaderDeadReason    = "x-dead-letter-reason"
	HeaderDeadError     = "x-dead-letter-error"
	HeaderOriginalRoute = "x-original-routing-key"
)

// DefaultExchange routes straight to the queue named by the routing key.
const DefaultExchange = ""

// Message is a batch on its way to the broker.
type Message struct {
	ID      string
	Body    []byte
	Headers map[string]any
}

// QueuePublisher publishes persistent JSON messages and returns once the
// broker has accepted them.
type QueuePublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, msg Message) error
}

// QueueConsumer opens a delivery stream on a queue with manual acknowledgment.
type QueueConsumer interface {
	Consume(ctx context.Context, queue string) (<-chan amqp.Delivery, error)
}
