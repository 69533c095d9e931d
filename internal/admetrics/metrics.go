// Package admetrics tracks Prometheus metrics for adbpush's transfer and
// install workflow. Every method is nil-safe: a nil *Metrics is always a
// legal receiver, so callers that run with metrics disabled never need to
// guard each call site.
package admetrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics tracks adbpush-specific Prometheus metrics, all under the
// adbpush_ prefix.
type Metrics struct {
	HandshakesTotal   *prometheus.CounterVec
	HandshakeDuration prometheus.Histogram

	BytesSentTotal prometheus.Counter
	PushDuration   prometheus.Histogram
	PushesTotal    *prometheus.CounterVec

	InstallsTotal *prometheus.CounterVec

	StreamsOpen prometheus.Gauge
}

// NewMetrics creates and registers adbpush's metrics against reg. Panics
// on registration failure, expected only during initialization.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HandshakesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adbpush_handshakes_total",
				Help: "Total CNXN/AUTH handshakes by outcome",
			},
			[]string{"outcome"}, // "ok", "rejected"
		),
		HandshakeDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "adbpush_handshake_duration_seconds",
				Help:    "Handshake duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		BytesSentTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "adbpush_bytes_sent_total",
				Help: "Total payload bytes written in SYNC DATA chunks",
			},
		),
		PushDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "adbpush_push_duration_seconds",
				Help:    "Push workflow duration in seconds, covering upload, install and cleanup",
				Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
			},
		),
		PushesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adbpush_pushes_total",
				Help: "Total push workflows by outcome",
			},
			[]string{"outcome"}, // "ok", "failed"
		),
		InstallsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "adbpush_installs_total",
				Help: "Total install workflows by outcome, a failed upload counting as failed",
			},
			[]string{"outcome"}, // "ok", "failed"
		),
		StreamsOpen: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "adbpush_streams_open",
				Help: "Number of currently open adb streams",
			},
		),
	}

	reg.MustRegister(
		m.HandshakesTotal,
		m.HandshakeDuration,
		m.BytesSentTotal,
		m.PushDuration,
		m.PushesTotal,
		m.InstallsTotal,
		m.StreamsOpen,
	)

	return m
}

// RecordHandshake records a completed handshake attempt.
func (m *Metrics) RecordHandshake(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.HandshakesTotal.WithLabelValues(outcome).Inc()
	m.HandshakeDuration.Observe(durationSeconds)
}

// AddBytesSent accumulates bytes written during a push.
func (m *Metrics) AddBytesSent(n int64) {
	if m == nil {
		return
	}
	m.BytesSentTotal.Add(float64(n))
}

// RecordPush records the outcome and duration of one push workflow.
func (m *Metrics) RecordPush(outcome string, durationSeconds float64) {
	if m == nil {
		return
	}
	m.PushesTotal.WithLabelValues(outcome).Inc()
	m.PushDuration.Observe(durationSeconds)
}

// RecordInstall records the outcome of one install workflow.
func (m *Metrics) RecordInstall(outcome string) {
	if m == nil {
		return
	}
	m.InstallsTotal.WithLabelValues(outcome).Inc()
}

// StreamOpened increments the open-stream gauge.
func (m *Metrics) StreamOpened() {
	if m == nil {
		return
	}
	m.StreamsOpen.Inc()
}

// StreamClosed decrements the open-stream gauge.
func (m *Metrics) StreamClosed() {
	if m == nil {
		return
	}
	m.StreamsOpen.Dec()
}
