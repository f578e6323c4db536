package consumer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
	"github.com/Kseniia567/fraud-detection-ADD/internal/metrics"
	"github.com/Kseniia567/fraud-detection-ADD/internal/queue"
)

const testDeadLetterExchange = "fraud_exchange.dlx"

// MockQueuePublisher is a mock implementation of queue.QueuePublisher
type MockQueuePublisher struct {
	mock.Mock
}

func (m *MockQueuePublisher) Publish(ctx context.Context, exchange, routingKey string, msg queue.Message) error {
	args := m.Called(ctx, exchange, routingKey, msg)
	return args.Error(0)
}

func newTestSettler(pub queue.QueuePublisher, maxAttempts int) *Settler {
	return NewSettler(pub, testDeadLetterExchange, RetryPolicy{MaxAttempts: maxAttempts}, metrics.New(nil), zap.NewNop())
}

func TestRetryPolicy_Ceiling(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseBackoff: time.Second, MaxBackoff: 30 * time.Second}

	assert.Equal(t, time.Second, p.ceiling(1))
	assert.Equal(t, 2*time.Second, p.ceiling(2))
	assert.Equal(t, 4*time.Second, p.ceiling(3))
	assert.Equal(t, 30*time.Second, p.ceiling(10))
	assert.Equal(t, 30*time.Second, p.ceiling(200))
	assert.Equal(t, time.Second, p.ceiling(0))
}

func TestRetryPolicy_BackoffWithinCeiling(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5, BaseBackoff: 10 * time.Millisecond, MaxBackoff: time.Second}

	for i := 0; i < 100; i++ {
		d := p.Backoff(3)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, 40*time.Millisecond)
	}
}

func TestRetryPolicy_ZeroBase(t *testing.T) {
	p := RetryPolicy{MaxAttempts: 5}
	assert.Equal(t, time.Duration(0), p.Backoff(4))
}

func TestWait(t *testing.T) {
	assert.True(t, wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, wait(ctx, time.Hour))
}

func TestSettler_DeadLetter_PublishesAndAcks(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)

	d := newTestDelivery(ack, 11, "msg-1", `{"not":"an array"}`, amqp.Table{"x-custom": "kept"})
	d.RoutingKey = queue.RoutingKeyRaw
	env := NewEnvelope(queue.QueueRawProcess, d)

	pub.On("Publish", mock.Anything, testDeadLetterExchange, queue.QueueRawProcess, mock.MatchedBy(func(msg queue.Message) bool {
		return msg.ID == "msg-1" &&
			string(msg.Body) == `{"not":"an array"}` &&
			msg.Headers[queue.HeaderDeadReason] == ReasonUnprocessable &&
			msg.Headers[queue.HeaderSourceQueue] == queue.QueueRawProcess &&
			msg.Headers[queue.HeaderOriginalRoute] == queue.RoutingKeyRaw &&
			msg.Headers[queue.HeaderDeadError] == "bad payload" &&
			msg.Headers["x-custom"] == "kept"
	})).Return(nil)
	ack.On("Ack", uint64(11), false).Return(nil)

	settler := newTestSettler(pub, 3)
	err := settler.DeadLetter(context.Background(), env, ReasonUnprocessable, errors.New("bad payload"))

	require.NoError(t, err)
	pub.AssertExpectations(t)
	ack.AssertExpectations(t)
}

func TestSettler_DeadLetter_PublishFailureRequeues(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)
	env := NewEnvelope(queue.QueueRawProcess, newTestDelivery(ack, 12, "msg-1", `x`, nil))

	pub.On("Publish", mock.Anything, testDeadLetterExchange, queue.QueueRawProcess, mock.Anything).
		Return(errors.New("broker nacked publish"))
	ack.On("Nack", uint64(12), false, true).Return(nil)

	settler := newTestSettler(pub, 3)
	err := settler.DeadLetter(context.Background(), env, ReasonUnprocessable, errors.New("bad payload"))

	require.NoError(t, err)
	ack.AssertExpectations(t)
	ack.AssertNotCalled(t, "Ack", mock.Anything, mock.Anything)
}

func TestSettler_Retry_RepublishesWithNextAttempt(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)
	env := NewEnvelope(queue.QueueProcessedUpload, newTestDelivery(ack, 21, "msg-1", `[]`, nil))

	pub.On("Publish", mock.Anything, queue.DefaultExchange, queue.QueueProcessedUpload, mock.MatchedBy(func(msg queue.Message) bool {
		return msg.Headers[queue.HeaderAttempt] == 2 && string(msg.Body) == `[]`
	})).Return(nil)
	ack.On("Ack", uint64(21), false).Return(nil)

	settler := newTestSettler(pub, 3)
	err := settler.Retry(context.Background(), env, errors.New("db down"))

	require.NoError(t, err)
	pub.AssertExpectations(t)
	ack.AssertExpectations(t)
}

func TestSettler_Retry_ExhaustedAttemptsDeadLetters(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)
	env := NewEnvelope(queue.QueueProcessedUpload,
		newTestDelivery(ack, 22, "msg-1", `[]`, amqp.Table{queue.HeaderAttempt: int32(3)}))

	pub.On("Publish", mock.Anything, testDeadLetterExchange, queue.QueueProcessedUpload, mock.MatchedBy(func(msg queue.Message) bool {
		return msg.Headers[queue.HeaderDeadReason] == ReasonAttemptsExhausted
	})).Return(nil)
	ack.On("Ack", uint64(22), false).Return(nil)

	settler := newTestSettler(pub, 3)
	err := settler.Retry(context.Background(), env, errors.New("db down"))

	require.NoError(t, err)
	pub.AssertExpectations(t)
	pub.AssertNotCalled(t, "Publish", mock.Anything, queue.DefaultExchange, mock.Anything, mock.Anything)
	ack.AssertExpectations(t)
}

func TestSettler_Retry_ShutdownDuringBackoffRequeues(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)
	env := NewEnvelope(queue.QueueRawUpload, newTestDelivery(ack, 23, "msg-1", `[]`, nil))

	ack.On("Nack", uint64(23), false, true).Return(nil)

	settler := NewSettler(pub, testDeadLetterExchange,
		RetryPolicy{MaxAttempts: 3, BaseBackoff: time.Hour, MaxBackoff: time.Hour},
		metrics.New(nil), zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := settler.Retry(ctx, env, errors.New("db down"))

	require.NoError(t, err)
	ack.AssertExpectations(t)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestSettler_Retry_RepublishFailureRequeues(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)
	env := NewEnvelope(queue.QueueRawUpload, newTestDelivery(ack, 24, "msg-1", `[]`, nil))

	pub.On("Publish", mock.Anything, queue.DefaultExchange, queue.QueueRawUpload, mock.Anything).
		Return(errors.New("connection closed"))
	ack.On("Nack", uint64(24), false, true).Return(nil)

	settler := newTestSettler(pub, 3)
	err := settler.Retry(context.Background(), env, errors.New("db down"))

	require.NoError(t, err)
	ack.AssertExpectations(t)
	ack.AssertNotCalled(t, "Ack", mock.Anything, mock.Anything)
}

func TestSettler_RequeueFailureIsReported(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)
	env := NewEnvelope(queue.QueueRawUpload, newTestDelivery(ack, 25, "msg-1", `[]`, nil))

	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("connection closed"))
	ack.On("Nack", uint64(25), false, true).Return(amqp.ErrClosed)

	settler := newTestSettler(pub, 3)
	err := settler.DeadLetter(context.Background(), env, ReasonUnprocessable, nil)

	assert.ErrorIs(t, err, amqp.ErrClosed)
}

func TestSettler_DeadLetter_LostConnectionIsReturnedAfterRequeue(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)
	env := NewEnvelope(queue.QueueRawUpload, newTestDelivery(ack, 26, "msg-1", `x`, nil))

	pub.On("Publish", mock.Anything, testDeadLetterExchange, queue.QueueRawUpload, mock.Anything).
		Return(fmt.Errorf("%w: publishing channel closed", domain.ErrConnectionLost))
	ack.On("Nack", uint64(26), false, true).Return(nil)

	settler := newTestSettler(pub, 3)
	err := settler.DeadLetter(context.Background(), env, ReasonUnprocessable, errors.New("bad payload"))

	assert.ErrorIs(t, err, domain.ErrConnectionLost)
	ack.AssertExpectations(t)
	ack.AssertNotCalled(t, "Ack", mock.Anything, mock.Anything)
}

func TestSettler_Retry_LostConnectionIsReturnedAfterRequeue(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)
	env := NewEnvelope(queue.QueueProcessedUpload, newTestDelivery(ack, 27, "msg-1", `[]`, nil))

	pub.On("Publish", mock.Anything, queue.DefaultExchange, queue.QueueProcessedUpload, mock.Anything).
		Return(fmt.Errorf("%w: publishing channel closed", domain.ErrConnectionLost))
	ack.On("Nack", uint64(27), false, true).Return(nil)

	settler := newTestSettler(pub, 3)
	err := settler.Retry(context.Background(), env, errors.New("db down"))

	assert.ErrorIs(t, err, domain.ErrConnectionLost)
	ack.AssertExpectations(t)
}

func TestTruncate_KeepsWholeRunes(t *testing.T) {
	s := strings.Repeat("a", 9) + "é"

	got := truncate(s, 10)

	assert.Equal(t, strings.Repeat("a", 9), got)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, s, truncate(s, 11))
	assert.Equal(t, "abc", truncate("abcdef", 3))
}

func TestSettler_DeadLetter_ErrorHeaderIsValidUTF8(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)
	env := NewEnvelope(queue.QueueRawProcess, newTestDelivery(ack, 28, "msg-1", `x`, nil))

	cause := errors.New(strings.Repeat("a", maxDeadLetterErrorLength-1) + "ü trailing")

	pub.On("Publish", mock.Anything, testDeadLetterExchange, queue.QueueRawProcess, mock.MatchedBy(func(msg queue.Message) bool {
		h, ok := msg.Headers[queue.HeaderDeadError].(string)
		return ok && utf8.ValidString(h) && len(h) <= maxDeadLetterErrorLength
	})).Return(nil)
	ack.On("Ack", uint64(28), false).Return(nil)

	settler := newTestSettler(pub, 3)
	require.NoError(t, settler.DeadLetter(context.Background(), env, ReasonUnprocessable, cause))

	pub.AssertExpectations(t)
	ack.AssertExpectations(t)
}
