package queue

const (
	ExchangeName = "fraud_exchange"

	RoutingKeyRaw   = "raw_data"
	RoutingKeyClean = "clean_data"

	QueueRawProcess      = "raw_data_process"
	QueueRawUpload       = "raw_data_upload"
	QueueProcessedUpload = "processed_data_upload"

	deadLetterSuffix = ".dead"
)

// Binding routes messages with RoutingKey from the exchange into Queue.
type Binding struct {
	Queue      string
	RoutingKey string
}

// Topology describes the direct exchange, its durable queues and the
// dead-letter side channel. Declaring it is idempotent.
type Topology struct {
	Exchange           string
	DeadLetterExchange string
	Bindings           []Binding
}

// DefaultTopology is the pipeline layout: raw_data fans out to the
// transformer and the raw sink, clean_data feeds the processed sink.
func DefaultTopology(deadLetterExchange string) Topology {
	return Topology{
		Exchange:           ExchangeName,
		DeadLetterExchange: deadLetterExchange,
		Bindings: []Binding{
			{Queue: QueueRawProcess, RoutingKey: RoutingKeyRaw},
			{Queue: QueueRawUpload, RoutingKey: RoutingKeyRaw},
			{Queue: QueueProcessedUpload, RoutingKey: RoutingKeyClean},
		},
	}
}

// Queues lists each bound queue once, in declaration order.
func (t Topology) Queues() []string {
	seen := make(map[string]bool, len(t.Bindings))
	var queues []string
	for _, b := range t.Bindings {
		if !seen[b.Queue] {
			seen[b.Queue] = true
			queues = append(queues, b.Queue)
		}
	}
	return queues
}

// route returns the queues a message published with routingKey reaches.
// Matching is exact and case-sensitive.
func (t Topology) route(routingKey string) []string {
	var queues []string
	for _, b := range t.Bindings {
		if b.RoutingKey == routingKey {
			queues = append(queues, b.Queue)
		}
	}
	return queues
}

// DeadLetterQueue names the queue holding poison messages from queue.
func DeadLetterQueue(queue string) string {
	return queue + deadLetterSuffix
}
