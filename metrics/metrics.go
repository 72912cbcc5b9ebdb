// Package metrics is the Prometheus metrics registry (spec §10.4),
// adapting the promauto HistogramVec/CounterVec/GaugeVec + Record* method
// pattern from tracing.Metrics to the pipeline-relevant series named in
// SPEC_FULL §10.4: queue depth, dequeue/enqueue counts, job duration, retry/
// dead-letter counters, worker heartbeat gauge, event-bus publish/drop
// counters, and gateway call latency/fallback counters. New registers the
// series on a caller-supplied prometheus.Registerer, so the caller chooses
// the registry (the CLI passes prometheus.DefaultRegisterer).
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus series docpipe records.
type Metrics struct {
	QueueDepth      *prometheus.GaugeVec
	EnqueueTotal    *prometheus.CounterVec
	DequeueTotal    *prometheus.CounterVec
	JobDuration     *prometheus.HistogramVec
	RetryTotal      *prometheus.CounterVec
	DeadLetterTotal prometheus.Counter
	StaleRecovered  prometheus.Counter
	WorkerHeartbeat *prometheus.GaugeVec

	EventPublishTotal *prometheus.CounterVec
	EventDropTotal    *prometheus.CounterVec

	GatewayCallLatency *prometheus.HistogramVec
	GatewayFallback    *prometheus.CounterVec
}

// New registers every series under namespace against reg.
func New(reg prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = "docpipe"
	}

	m := &Metrics{
		QueueDepth: newGaugeVec(reg, namespace, "queue_depth", "Number of ids in a queue partition.", []string{"partition"}),
		EnqueueTotal: newCounterVec(reg, namespace, "queue_enqueue_total", "Total Queue.Enqueue calls.", []string{"result"}),
		DequeueTotal: newCounterVec(reg, namespace, "queue_dequeue_total", "Total ids dequeued.", []string{"worker_id"}),
		JobDuration: newHistogramVec(reg, namespace, "job_duration_seconds", "Processor.Process wall-clock duration.",
			[]float64{.1, .5, 1, 5, 10, 30, 60, 120, 300}, []string{"kind", "outcome"}),
		RetryTotal:      newCounterVec(reg, namespace, "queue_retry_total", "Total retries recorded by MarkFailed.", []string{"kind"}),
		DeadLetterTotal: newCounter(reg, namespace, "queue_dead_letter_total", "Total ids moved to the dead-letter partition."),
		StaleRecovered:  newCounter(reg, namespace, "queue_stale_recovered_total", "Total ids recovered by RecoverStale."),
		WorkerHeartbeat: newGaugeVec(reg, namespace, "worker_heartbeat_timestamp_seconds", "Unix time of a worker's last heartbeat.", []string{"worker_id"}),

		EventPublishTotal: newCounterVec(reg, namespace, "event_publish_total", "Total Event Bus publishes.", []string{"topic"}),
		EventDropTotal:    newCounterVec(reg, namespace, "event_subscriber_drop_total", "Total subscribers dropped for backpressure.", []string{"topic"}),

		GatewayCallLatency: newHistogramVec(reg, namespace, "gateway_call_duration_seconds", "Model Gateway call latency.",
			[]float64{.1, .25, .5, 1, 2.5, 5, 10, 20, 30}, []string{"provider", "tool"}),
		GatewayFallback: newCounterVec(reg, namespace, "gateway_fallback_total", "Total tool calls that used a degraded fallback.", []string{"tool"}),
	}
	return m
}

func newGaugeVec(reg prometheus.Registerer, ns, name, help string, labels []string) *prometheus.GaugeVec {
	v := prometheus.NewGaugeVec(prometheus.GaugeOpts{Namespace: ns, Name: name, Help: help}, labels)
	reg.MustRegister(v)
	return v
}

func newCounterVec(reg prometheus.Registerer, ns, name, help string, labels []string) *prometheus.CounterVec {
	v := prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: ns, Name: name, Help: help}, labels)
	reg.MustRegister(v)
	return v
}

func newCounter(reg prometheus.Registerer, ns, name, help string) prometheus.Counter {
	c := prometheus.NewCounter(prometheus.CounterOpts{Namespace: ns, Name: name, Help: help})
	reg.MustRegister(c)
	return c
}

func newHistogramVec(reg prometheus.Registerer, ns, name, help string, buckets []float64, labels []string) *prometheus.HistogramVec {
	v := prometheus.NewHistogramVec(prometheus.HistogramOpts{Namespace: ns, Name: name, Help: help, Buckets: buckets}, labels)
	reg.MustRegister(v)
	return v
}

// RecordEnqueue records the outcome of a Queue.Enqueue call.
func (m *Metrics) RecordEnqueue(result string) {
	m.EnqueueTotal.WithLabelValues(result).Inc()
}

// RecordDequeue records one id dequeued by workerID.
func (m *Metrics) RecordDequeue(workerID string) {
	m.DequeueTotal.WithLabelValues(workerID).Inc()
}

// RecordJob records one Processor.Process call's duration and outcome.
func (m *Metrics) RecordJob(kind, outcome string, d time.Duration) {
	m.JobDuration.WithLabelValues(kind, outcome).Observe(d.Seconds())
}

// RecordRetry records one MarkFailed(retry=true) call.
func (m *Metrics) RecordRetry(kind string) {
	m.RetryTotal.WithLabelValues(kind).Inc()
}

// RecordDeadLetter records one id moved to the dead-letter partition.
func (m *Metrics) RecordDeadLetter() { m.DeadLetterTotal.Inc() }

// RecordStaleRecovered records RecoverStale's returned count.
func (m *Metrics) RecordStaleRecovered(n int) {
	for i := 0; i < n; i++ {
		m.StaleRecovered.Inc()
	}
}

// RecordHeartbeat sets workerID's last-heartbeat gauge to now.
func (m *Metrics) RecordHeartbeat(workerID string, at time.Time) {
	m.WorkerHeartbeat.WithLabelValues(workerID).Set(float64(at.Unix()))
}

// RecordEventPublish records one Event Bus publish for topic.
func (m *Metrics) RecordEventPublish(topic string) {
	m.EventPublishTotal.WithLabelValues(topic).Inc()
}

// RecordEventDrop records one subscriber dropped for backpressure on topic.
func (m *Metrics) RecordEventDrop(topic string) {
	m.EventDropTotal.WithLabelValues(topic).Inc()
}

// RecordGatewayCall records one Model Gateway call's latency.
func (m *Metrics) RecordGatewayCall(provider, tool string, d time.Duration) {
	m.GatewayCallLatency.WithLabelValues(provider, tool).Observe(d.Seconds())
}

// RecordGatewayFallback records one tool call that used its degraded
// fallback instead of a live model response.
func (m *Metrics) RecordGatewayFallback(tool string) {
	m.GatewayFallback.WithLabelValues(tool).Inc()
}
