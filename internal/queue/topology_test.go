package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultTopology_Names(t *testing.T) {
	top := DefaultTopology("fraud_exchange.dlx")

	assert.Equal(t, "fraud_exchange", top.Exchange)
	assert.Equal(t, "fraud_exchange.dlx", top.DeadLetterExchange)
	assert.Equal(t, []string{"raw_data_process", "raw_data_upload", "processed_data_upload"}, top.Queues())
}

func TestTopology_RawFansOutToBothConsumers(t *testing.T) {
	top := DefaultTopology("")

	assert.ElementsMatch(t, []string{QueueRawProcess, QueueRawUpload}, top.route(RoutingKeyRaw))
	assert.Equal(t, []string{QueueProcessedUpload}, top.route(RoutingKeyClean))
}

func TestTopology_RouteIsExactAndCaseSensitive(t *testing.T) {
	top := DefaultTopology("")

	assert.Empty(t, top.route("RAW_DATA"))
	assert.Empty(t, top.route("raw_data.*"))
	assert.Empty(t, top.route("raw"))
	assert.Empty(t, top.route(""))
}

func TestTopology_QueuesDeduplicated(t *testing.T) {
	top := Topology{Bindings: []Binding{
		{Queue: "a", RoutingKey: "x"},
		{Queue: "a", RoutingKey: "y"},
		{Queue: "b", RoutingKey: "x"},
	}}

	assert.Equal(t, []string{"a", "b"}, top.Queues())
	assert.Equal(t, []string{"a", "b"}, top.route("x"))
}

func TestDeadLetterQueue(t *testing.T) {
	assert.Equal(t, "raw_data_upload.dead", DeadLetterQueue(QueueRawUpload))
}
