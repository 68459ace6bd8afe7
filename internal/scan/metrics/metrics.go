package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the scan resolution pipeline.
type Metrics struct {
	// Scan verdicts by reason code
	ScanOutcome *prometheus.CounterVec

	// Resolutions by winning content source
	ResolutionSource *prometheus.CounterVec

	// Full resolution latency, validity gate included
	ResolutionLatency prometheus.Histogram

	// Analytics events dropped because the buffer was full
	AnalyticsDropped prometheus.Counter
}

// New creates a Metrics instance with all scan pipeline metrics registered.
func New() *Metrics {
	return &Metrics{
		ScanOutcome: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "qrflow_scans_total",
			Help: "Total scan attempts by verdict reason",
		}, []string{"reason"}),

		ResolutionSource: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "qrflow_resolutions_total",
			Help: "Total resolved scans by content source",
		}, []string{"source"}),

		ResolutionLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "qrflow_resolution_duration_seconds",
			Help:    "Duration of full scan resolution including the validity gate",
			Buckets: []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		AnalyticsDropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "qrflow_analytics_dropped_total",
			Help: "Analytics events dropped due to a full buffer",
		}),
	}
}

// IncrementScan records a scan verdict.
func (m *Metrics) IncrementScan(reason string) {
	if m != nil {
		m.ScanOutcome.WithLabelValues(reason).Inc()
	}
}

// IncrementResolution records which source produced the content.
func (m *Metrics) IncrementResolution(source string) {
	if m != nil {
		m.ResolutionSource.WithLabelValues(source).Inc()
	}
}

// ObserveResolutionLatency records the total resolution duration.
func (m *Metrics) ObserveResolutionLatency(d time.Duration) {
	if m != nil {
		m.ResolutionLatency.Observe(d.Seconds())
	}
}

// IncrementAnalyticsDropped records a dropped analytics event.
func (m *Metrics) IncrementAnalyticsDropped() {
	if m != nil {
		m.AnalyticsDropped.Inc()
	}
}
