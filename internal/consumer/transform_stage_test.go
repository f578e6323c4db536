package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Kseniia567/fraud-detection-ADD/internal/domain"
	"github.com/Kseniia567/fraud-detection-ADD/internal/metrics"
	"github.com/Kseniia567/fraud-detection-ADD/internal/queue"
	"github.com/Kseniia567/fraud-detection-ADD/internal/transform"
)

func newTestTransformStage(pub *MockQueuePublisher) *TransformStage {
	m := metrics.New(nil)
	settler := NewSettler(pub, testDeadLetterExchange, RetryPolicy{MaxAttempts: 3}, m, zap.NewNop())
	return NewTransformStage(pub, NewJSONBatchParser(), transform.NewCleaner(nil), settler, queue.ExchangeName, m, zap.NewNop())
}

func rawRecordJSON(transNum, txTime string) map[string]any {
	return map[string]any{
		"Unnamed: 0":            0,
		"trans_date_trans_time": txTime,
		"cc_num":                2703186189652095,
		"merchant":              "fraud_Rippin, Kub and Mann",
		"category":              "misc_net",
		"amt":                   4.97,
		"first":                 "Jennifer",
		"last":                  "Banks",
		"gender":                "F",
		"street":                "561 Perry Cove",
		"city":                  "Moravian Falls",
		"state":                 "NC",
		"zip":                   28654,
		"lat":                   36.0788,
		"long":                  -81.1781,
		"city_pop":              3495,
		"job":                   "Psychologist, counselling",
		"dob":                   "1988-03-09",
		"trans_num":             transNum,
		"unix_time":             1325376018,
		"merch_lat":             36.011293,
		"merch_long":            -82.048315,
		"is_fraud":              0,
	}
}

func TestTransformStage_Handle_OneBadDateBatchIsPublishedAndAcked(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)

	body, err := json.Marshal([]map[string]any{
		rawRecordJSON("a", "2019-01-05 22:13:45"),
		rawRecordJSON("b", "not a date"),
		rawRecordJSON("c", "2019-01-07 08:00:00"),
	})
	require.NoError(t, err)

	var published queue.Message
	pub.On("Publish", mock.Anything, queue.ExchangeName, queue.RoutingKeyClean, mock.AnythingOfType("queue.Message")).
		Run(func(args mock.Arguments) {
			published = args.Get(3).(queue.Message)
		}).
		Return(nil)
	ack.On("Ack", uint64(1), false).Return(nil)

	stage := newTestTransformStage(pub)
	env := NewEnvelope(queue.QueueRawProcess, newTestDelivery(ack, 1, "raw-1", string(body), nil))

	require.NoError(t, stage.Handle(context.Background(), env))

	pub.AssertExpectations(t)
	ack.AssertExpectations(t)

	assert.NotEmpty(t, published.ID)
	assert.Equal(t, 3, published.Headers[queue.HeaderBatchSize])

	cleaned, err := NewJSONBatchParser().ParseCleaned(published.Body)
	require.NoError(t, err)
	require.Len(t, cleaned, 3)

	assert.Equal(t, domain.NewText("2019-01-05 22:13:45"), cleaned[0].TransDateTransTime)
	assert.Equal(t, domain.NewInt(5), cleaned[0].DayOfWeek)
	assert.Equal(t, domain.NewBool(true), cleaned[0].IsWeekend)
	assert.Equal(t, domain.NewInt(30), cleaned[0].AgeAtTransaction)
	assert.Equal(t, "Healthcare", cleaned[0].JobCategory)

	assert.False(t, cleaned[1].TransDateTransTime.Valid)
	assert.False(t, cleaned[1].Hour.Valid)
	assert.False(t, cleaned[1].AgeAtTransaction.Valid)
	assert.False(t, cleaned[1].IsWeekend.Valid)

	assert.Equal(t, domain.NewInt(0), cleaned[2].DayOfWeek)
	assert.Equal(t, domain.NewInt(8), cleaned[2].Hour)
}

func TestTransformStage_Handle_PublishedBatchHasNoPII(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)

	body, err := json.Marshal([]map[string]any{rawRecordJSON("a", "2019-01-05 22:13:45")})
	require.NoError(t, err)

	var published queue.Message
	pub.On("Publish", mock.Anything, queue.ExchangeName, queue.RoutingKeyClean, mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.Get(3).(queue.Message)
		}).
		Return(nil)
	ack.On("Ack", uint64(1), false).Return(nil)

	stage := newTestTransformStage(pub)
	require.NoError(t, stage.Handle(context.Background(),
		NewEnvelope(queue.QueueRawProcess, newTestDelivery(ack, 1, "raw-1", string(body), nil))))

	var objects []map[string]any
	require.NoError(t, json.Unmarshal(published.Body, &objects))
	require.Len(t, objects, 1)

	for _, col := range domain.PIIColumns {
		assert.NotContains(t, objects[0], col)
	}
	for _, col := range domain.DerivedColumns {
		assert.Contains(t, objects[0], col)
	}
	assert.NotContains(t, objects[0], "Unnamed: 0")
}

func TestTransformStage_Handle_DuplicatesRemoved(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)

	rec := rawRecordJSON("a", "2019-01-05 22:13:45")
	body, err := json.Marshal([]map[string]any{rec, rec, rawRecordJSON("b", "2019-01-05 22:13:45")})
	require.NoError(t, err)

	pub.On("Publish", mock.Anything, queue.ExchangeName, queue.RoutingKeyClean, mock.MatchedBy(func(msg queue.Message) bool {
		return msg.Headers[queue.HeaderBatchSize] == 2
	})).Return(nil)
	ack.On("Ack", uint64(1), false).Return(nil)

	stage := newTestTransformStage(pub)
	require.NoError(t, stage.Handle(context.Background(),
		NewEnvelope(queue.QueueRawProcess, newTestDelivery(ack, 1, "raw-1", string(body), nil))))

	pub.AssertExpectations(t)
}

func TestTransformStage_Handle_MalformedBatchIsDeadLettered(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)

	pub.On("Publish", mock.Anything, testDeadLetterExchange, queue.QueueRawProcess, mock.MatchedBy(func(msg queue.Message) bool {
		return string(msg.Body) == `{invalid json}` && msg.Headers[queue.HeaderDeadReason] == ReasonUnprocessable
	})).Return(nil)
	ack.On("Ack", uint64(9), false).Return(nil)

	stage := newTestTransformStage(pub)
	env := NewEnvelope(queue.QueueRawProcess, newTestDelivery(ack, 9, "raw-9", `{invalid json}`, nil))

	require.NoError(t, stage.Handle(context.Background(), env))

	pub.AssertExpectations(t)
	pub.AssertNotCalled(t, "Publish", mock.Anything, queue.ExchangeName, queue.RoutingKeyClean, mock.Anything)
	ack.AssertExpectations(t)
	ack.AssertNotCalled(t, "Nack", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransformStage_Handle_EmptyBatchAckedWithoutPublish(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)
	ack.On("Ack", uint64(2), false).Return(nil)

	stage := newTestTransformStage(pub)
	env := NewEnvelope(queue.QueueRawProcess, newTestDelivery(ack, 2, "raw-2", `[]`, nil))

	require.NoError(t, stage.Handle(context.Background(), env))

	ack.AssertExpectations(t)
	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestTransformStage_Handle_PublishFailureRequeues(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)

	body, err := json.Marshal([]map[string]any{rawRecordJSON("a", "2019-01-05 22:13:45")})
	require.NoError(t, err)

	pub.On("Publish", mock.Anything, queue.ExchangeName, queue.RoutingKeyClean, mock.Anything).
		Return(errors.New("publish not confirmed"))
	ack.On("Nack", uint64(3), false, true).Return(nil)

	stage := newTestTransformStage(pub)
	env := NewEnvelope(queue.QueueRawProcess, newTestDelivery(ack, 3, "raw-3", string(body), nil))

	require.NoError(t, stage.Handle(context.Background(), env))

	ack.AssertExpectations(t)
	ack.AssertNotCalled(t, "Ack", mock.Anything, mock.Anything)
}

func TestTransformStage_Handle_LostConnectionIsReturnedAfterRequeue(t *testing.T) {
	pub := new(MockQueuePublisher)
	ack := new(MockAcknowledger)

	body, err := json.Marshal([]map[string]any{rawRecordJSON("a", "2019-01-05 22:13:45")})
	require.NoError(t, err)

	pub.On("Publish", mock.Anything, queue.ExchangeName, queue.RoutingKeyClean, mock.Anything).
		Return(fmt.Errorf("%w: failed to publish message: channel/connection is not open", domain.ErrConnectionLost))
	ack.On("Nack", uint64(4), false, true).Return(nil)

	stage := newTestTransformStage(pub)
	env := NewEnvelope(queue.QueueRawProcess, newTestDelivery(ack, 4, "raw-4", string(body), nil))

	err = stage.Handle(context.Background(), env)

	assert.ErrorIs(t, err, domain.ErrConnectionLost)
	ack.AssertExpectations(t)
	ack.AssertNotCalled(t, "Ack", mock.Anything, mock.Anything)
}
