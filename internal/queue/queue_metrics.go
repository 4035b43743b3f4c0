package queue

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus metrics for queue builds. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	BuildsTotal   *prometheus.CounterVec
	BuildDuration prometheus.Histogram
	QueueSize     prometheus.Gauge
	ItemsScored   *prometheus.CounterVec
}

// NewMetrics registers and returns queue metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		BuildsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_queue_builds_total",
			Help: "Queue builds by outcome.",
		}, []string{"outcome"}),
		BuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "sift_queue_build_duration_seconds",
			Help:    "Time to assemble the ranked queue.",
			Buckets: prometheus.DefBuckets,
		}),
		QueueSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "sift_queue_size",
			Help: "Items in the most recently built queue.",
		}),
		ItemsScored: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sift_queue_items_scored_total",
			Help: "Source records scored, by source type.",
		}, []string{"source"}),
	}

	reg.MustRegister(
		m.BuildsTotal,
		m.BuildDuration,
		m.QueueSize,
		m.ItemsScored,
	)

	return m
}

// IncBuild records one build outcome.
func (m *Metrics) IncBuild(outcome string) {
	if m == nil {
		return
	}
	m.BuildsTotal.WithLabelValues(outcome).Inc()
}

// ObserveBuild records the duration and resulting size of a successful build.
func (m *Metrics) ObserveBuild(dur time.Duration, size int) {
	if m == nil {
		return
	}
	m.BuildDuration.Observe(dur.Seconds())
	m.QueueSize.Set(float64(size))
}

// IncScored records one scored record.
func (m *Metrics) IncScored(sourceType string) {
	if m == nil {
		return
	}
	m.ItemsScored.WithLabelValues(sourceType).Inc()
}
