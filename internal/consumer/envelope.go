package consumer

import (
	"strconv"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/Kseniia567/fraud-detection-ADD/internal/queue"
)

// Envelope wraps a broker delivery with the queue it was consumed from
type Envelope struct {
	Queue    string
	Delivery amqp.Delivery
}

// NewEnvelope creates a new message envelope
func NewEnvelope(queueName string, d amqp.Delivery) *Envelope {
	return &Envelope{
		Queue:    queueName,
		Delivery: d,
	}
}

// Body returns the raw message payload
func (e *Envelope) Body() []byte {
	return e.Delivery.Body
}

// MessageID returns the publisher assigned message id, if any
func (e *Envelope) MessageID() string {
	return e.Delivery.MessageId
}

// Ack acknowledges successful processing
func (e *Envelope) Ack() error {
	return e.Delivery.Ack(false)
}

// Requeue negatively acknowledges the delivery and asks the broker to
// deliver it again
func (e *Envelope) Requeue() error {
	return e.Delivery.Nack(false, true)
}

// Attempt returns the delivery attempt carried in the x-attempt header.
// Deliveries without a usable header are on their first attempt.
func (e *Envelope) Attempt() int {
	v, ok := e.Delivery.Headers[queue.HeaderAttempt]
	if !ok {
		return 1
	}

	var n int64
	switch val := v.(type) {
	case int:
		n = int64(val)
	case int8:
		n = int64(val)
	case int16:
		n = int64(val)
	case int32:
		n = int64(val)
	case int64:
		n = val
	case uint8:
		n = int64(val)
	case float64:
		n = int64(val)
	case string:
		parsed, err := strconv.ParseInt(val, 10, 64)
		if err != nil {
			return 1
		}
		n = parsed
	default:
		return 1
	}

	if n < 1 {
		return 1
	}
	return int(n)
}

// headers returns a copy of the delivery headers that is safe to modify
func (e *Envelope) headers() map[string]any {
	h := make(map[string]any, len(e.Delivery.Headers)+4)
	for k, v := range e.Delivery.Headers {
		h[k] = v
	}
	return h
}
