package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the pipeline's Prometheus collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	batchesConsumed     *prometheus.CounterVec
	batchesPublished    *prometheus.CounterVec
	batchesRetried      *prometheus.CounterVec
	batchesDeadLettered *prometheus.CounterVec
	recordsInserted     *prometheus.CounterVec
	recordsSkipped      *prometheus.CounterVec
	insertDuration      *prometheus.HistogramVec
}

// New registers the collectors with reg. A nil reg uses a private registry.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		gatherer: reg,
		batchesConsumed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fraud_pipeline_batches_consumed_total",
			Help: "Batches delivered to a consumer, by queue and outcome",
		}, []string{"queue", "outcome"}),
		batchesPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fraud_pipeline_batches_published_total",
			Help: "Batches accepted by the broker, by routing key",
		}, []string{"routing_key"}),
		batchesRetried: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fraud_pipeline_batches_retried_total",
			Help: "Batches scheduled for another delivery attempt",
		}, []string{"queue"}),
		batchesDeadLettered: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fraud_pipeline_batches_dead_lettered_total",
			Help: "Batches moved to the dead-letter exchange",
		}, []string{"queue", "reason"}),
		recordsInserted: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fraud_pipeline_records_inserted_total",
			Help: "Rows committed to the store, by table",
		}, []string{"table"}),
		recordsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "fraud_pipeline_records_skipped_total",
			Help: "Records excluded from an insert because they could not be mapped",
		}, []string{"table"}),
		insertDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fraud_pipeline_batch_insert_duration_seconds",
			Help:    "Time taken to insert one batch",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		}, []string{"table"}),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func (m *Metrics) BatchConsumed(queue, outcome string) {
	m.batchesConsumed.WithLabelValues(queue, outcome).Inc()
}

func (m *Metrics) BatchPublished(routingKey string) {
	m.batchesPublished.WithLabelValues(routingKey).Inc()
}

func (m *Metrics) BatchRetried(queue string) {
	m.batchesRetried.WithLabelValues(queue).Inc()
}

func (m *Metrics) BatchDeadLettered(queue, reason string) {
	m.batchesDeadLettered.WithLabelValues(queue, reason).Inc()
}

func (m *Metrics) RecordsInserted(table string, n int) {
	m.recordsInserted.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) RecordsSkipped(table string, n int) {
	m.recordsSkipped.WithLabelValues(table).Add(float64(n))
}

func (m *Metrics) ObserveInsert(table string, d time.Duration) {
	m.insertDuration.WithLabelValues(table).Observe(d.Seconds())
}
