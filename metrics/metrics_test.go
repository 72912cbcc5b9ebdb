package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docpipe/docpipe/metrics"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	m := &dto.Metric{}
	require.NoError(t, (<-ch).Write(m))
	if m.Counter != nil {
		return m.Counter.GetValue()
	}
	return m.Gauge.GetValue()
}

func TestNewRegistersDistinctSeriesUnderNamespace(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "docpipe_test")
	require.NotNil(t, m)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	var found bool
	for _, f := range families {
		if f.GetName() == "docpipe_test_queue_depth" {
			found = true
		}
	}
	assert.True(t, found, "queue depth series should be registered under the namespace")
}

func TestRecordMethodsUpdateUnderlyingSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "docpipe_test")

	m.RecordEnqueue("ok")
	m.RecordEnqueue("ok")
	assert.Equal(t, float64(2), counterValue(t, m.EnqueueTotal.WithLabelValues("ok")))

	m.RecordDeadLetter()
	assert.Equal(t, float64(1), counterValue(t, m.DeadLetterTotal))

	m.RecordHeartbeat("worker-1", time.Unix(1700000000, 0))
	assert.Equal(t, float64(1700000000), counterValue(t, m.WorkerHeartbeat.WithLabelValues("worker-1")))

	m.RecordStaleRecovered(3)
	assert.Equal(t, float64(3), counterValue(t, m.StaleRecovered))

	m.RecordGatewayFallback("summarize")
	assert.Equal(t, float64(1), counterValue(t, m.GatewayFallback.WithLabelValues("summarize")))
}

func TestRecordJobObservesHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg, "docpipe_test")

	m.RecordJob("pdf", "completed", 2*time.Second)

	ch := make(chan prometheus.Metric, 1)
	m.JobDuration.WithLabelValues("pdf", "completed").Collect(ch)
	out := &dto.Metric{}
	require.NoError(t, (<-ch).Write(out))
	assert.Equal(t, uint64(1), out.Histogram.GetSampleCount())
}
