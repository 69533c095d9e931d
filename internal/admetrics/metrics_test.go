package admetrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsNeverPanics(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.RecordHandshake("ok", 0.1)
		m.AddBytesSent(1024)
		m.RecordPush("ok", 1.5)
		m.RecordInstall("failed")
		m.StreamOpened()
		m.StreamClosed()
	})
}

func TestRecordHandshakeIncrementsCounterAndHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RecordHandshake("ok", 0.25)
	m.RecordHandshake("ok", 0.50)
	m.RecordHandshake("rejected", 0.10)

	assert.Equal(t, float64(2), counterValue(t, m.HandshakesTotal, "ok"))
	assert.Equal(t, float64(1), counterValue(t, m.HandshakesTotal, "rejected"))
}

func TestStreamGaugeTracksOpenAndClose(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.StreamOpened()
	m.StreamOpened()
	m.StreamClosed()

	assert.Equal(t, float64(1), gaugeValue(t, m.StreamsOpen))
}

func TestAddBytesSentAccumulates(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.AddBytesSent(100)
	m.AddBytesSent(50)

	var metric io_prometheus_client.Metric
	require.NoError(t, m.BytesSentTotal.Write(&metric))
	assert.Equal(t, float64(150), metric.GetCounter().GetValue())
}

func counterValue(t *testing.T, cv *prometheus.CounterVec, label string) float64 {
	t.Helper()
	counter, err := cv.GetMetricWithLabelValues(label)
	require.NoError(t, err)
	var metric io_prometheus_client.Metric
	require.NoError(t, counter.Write(&metric))
	return metric.GetCounter().GetValue()
}

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var metric io_prometheus_client.Metric
	require.NoError(t, g.Write(&metric))
	return metric.GetGauge().GetValue()
}
