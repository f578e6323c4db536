package consumer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
	"github.com/Kseniia567/fraud-detection-ADD/internal/metrics"
	"github.com/Kseniia567/fraud-detection-ADD/internal/queue"
)

// Dead-letter reasons recorded in the x-dead-letter-reason header.
const (
	ReasonUnprocessable      = "unprocessable"
	ReasonAttemptsExhausted  = "attempts_exhausted"
	maxDeadLetterErrorLength = 1024
)

// RetryPolicy bounds redelivery of batches that failed to persist
type RetryPolicy struct {
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
}

// Backoff returns the jittered wait before the attempt after attempt.
func (p RetryPolicy) Backoff(attempt int) time.Duration {
	return fullJitter(p.ceiling(attempt))
}

// ceiling is min(base * 2^(attempt-1), max).
func (p RetryPolicy) ceiling(attempt int) time.Duration {
	if p.BaseBackoff <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}

	raw := float64(p.BaseBackoff) * math.Pow(2, float64(attempt-1))
	if p.MaxBackoff > 0 && raw > float64(p.MaxBackoff) {
		return p.MaxBackoff
	}
	if raw > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(raw)
}

func fullJitter(limit time.Duration) time.Duration {
	if limit <= 0 {
		return 0
	}
	if limit == math.MaxInt64 {
		return time.Duration(rand.Int64N(int64(limit)))
	}
	return time.Duration(rand.Int64N(int64(limit) + 1))
}

// wait blocks for d or until ctx is done. It reports whether the full
// duration elapsed.
func wait(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// Settler moves failed deliveries to a retry or to the dead-letter exchange.
// Every path either hands the batch back to the broker or requeues it, so a
// batch is never dropped.
type Settler struct {
	publisher          queue.QueuePublisher
	deadLetterExchange string
	policy             RetryPolicy
	metrics            *metrics.Metrics
	log                *zap.Logger
}

// NewSettler creates a new settler
func NewSettler(publisher queue.QueuePublisher, deadLetterExchange string, policy RetryPolicy, m *metrics.Metrics, log *zap.Logger) *Settler {
	return &Settler{
		publisher:          publisher,
		deadLetterExchange: deadLetterExchange,
		policy:             policy,
		metrics:            m,
		log:                log,
	}
}

// DeadLetter publishes the original body to the dead-letter exchange and acks.
// When the dead-letter publish fails the delivery is requeued instead.
func (s *Settler) DeadLetter(ctx context.Context, env *Envelope, reason string, cause error) error {
	headers := env.headers()
	headers[queue.HeaderDeadReason] = reason
	headers[queue.HeaderSourceQueue] = env.Queue
	headers[queue.HeaderOriginalRoute] = env.Delivery.RoutingKey
	if cause != nil {
		headers[queue.HeaderDeadError] = truncate(cause.Error(), maxDeadLetterErrorLength)
	}

	msg := queue.Message{
		ID:      env.MessageID(),
		Body:    env.Body(),
		Headers: headers,
	}

	if err := s.publisher.Publish(context.WithoutCancel(ctx), s.deadLetterExchange, env.Queue, msg); err != nil {
		s.log.Error("Failed to dead-letter batch, requeueing",
			zap.String("queue", env.Queue),
			zap.String("message_id", env.MessageID()),
			zap.Error(err))
		return s.requeue(env, err)
	}

	s.metrics.BatchDeadLettered(env.Queue, reason)
	s.log.Warn("Batch dead-lettered",
		zap.String("queue", env.Queue),
		zap.String("message_id", env.MessageID()),
		zap.String("reason", reason),
		zap.Int("attempt", env.Attempt()),
		zap.Error(cause))

	if err := env.Ack(); err != nil {
		return fmt.Errorf("failed to ack dead-lettered batch: %w", err)
	}
	return nil
}

// Retry schedules another attempt for a batch that failed to persist. Once
// the attempts are used up the batch is dead-lettered.
func (s *Settler) Retry(ctx context.Context, env *Envelope, cause error) error {
	attempt := env.Attempt()
	if attempt >= s.policy.MaxAttempts {
		return s.DeadLetter(ctx, env, ReasonAttemptsExhausted, cause)
	}

	delay := s.policy.Backoff(attempt)
	s.log.Warn("Batch failed, retrying after backoff",
		zap.String("queue", env.Queue),
		zap.String("message_id", env.MessageID()),
		zap.Int("attempt", attempt),
		zap.Int("max_attempts", s.policy.MaxAttempts),
		zap.Duration("backoff", delay),
		zap.Error(cause))

	if !wait(ctx, delay) {
		s.log.Info("Shutdown during retry backoff, requeueing batch",
			zap.String("queue", env.Queue),
			zap.String("message_id", env.MessageID()))
		return s.requeue(env, ctx.Err())
	}

	headers := env.headers()
	headers[queue.HeaderAttempt] = attempt + 1

	msg := queue.Message{
		ID:      env.MessageID(),
		Body:    env.Body(),
		Headers: headers,
	}

	if err := s.publisher.Publish(context.WithoutCancel(ctx), queue.DefaultExchange, env.Queue, msg); err != nil {
		s.log.Error("Failed to republish batch for retry, requeueing",
			zap.String("queue", env.Queue),
			zap.String("message_id", env.MessageID()),
			zap.Error(err))
		return s.requeue(env, err)
	}

	s.metrics.BatchRetried(env.Queue)
	if err := env.Ack(); err != nil {
		return fmt.Errorf("failed to ack retried batch: %w", err)
	}
	return nil
}

// requeue hands the delivery back to the broker. A lost connection is still
// returned after the requeue so the receiver stops.
func (s *Settler) requeue(env *Envelope, cause error) error {
	if err := env.Requeue(); err != nil {
		return fmt.Errorf("failed to requeue batch after %v: %w", cause, err)
	}
	if errors.Is(cause, domain.ErrConnectionLost) {
		return fmt.Errorf("batch requeued: %w", cause)
	}
	return nil
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
