package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "sensor_idw"

// Metrics holds the Prometheus collectors for the interpolation engine and the
// measurement ingest pipeline.
type Metrics struct {
	// Interpolation metrics.
	InterpolationRequests *prometheus.CounterVec   // labels: outcome={ok,bad_input,cost_rejected,failed}
	StageDuration         *prometheus.HistogramVec // labels: stage
	KnownPoints           prometheus.Histogram
	SkippedPoints         prometheus.Counter
	CellsEstimated        prometheus.Counter
	FeaturesEmitted       prometheus.Counter

	// Ingest metrics.
	MeasurementsConsumed    prometheus.Counter
	MeasurementsStored      prometheus.Counter
	IngestErrors            prometheus.Counter
	IngestRunning           prometheus.Gauge
	BatchSize               prometheus.Histogram
	BatchProcessingDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(
		m.InterpolationRequests,
		m.StageDuration,
		m.KnownPoints,
		m.SkippedPoints,
		m.CellsEstimated,
		m.FeaturesEmitted,
		m.MeasurementsConsumed,
		m.MeasurementsStored,
		m.IngestErrors,
		m.IngestRunning,
		m.BatchSize,
		m.BatchProcessingDuration,
	)
	return m
}

// NewMetricsForTesting creates unregistered Metrics to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		InterpolationRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interpolation_requests_total",
			Help:      "IDW interpolation requests by outcome.",
		}, []string{"outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interpolation_stage_duration_seconds",
			Help:      "Duration of each interpolation pipeline stage.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}, []string{"stage"}),
		KnownPoints: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "interpolation_known_points",
			Help:      "Distinct known points per interpolation after aggregation.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 9),
		}),
		SkippedPoints: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interpolation_skipped_points_total",
			Help:      "Measurement points dropped for non-finite values or coordinates.",
		}),
		CellsEstimated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interpolation_cells_estimated_total",
			Help:      "Grid cells passed through the IDW estimator.",
		}),
		FeaturesEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "interpolation_features_emitted_total",
			Help:      "Features written to FeatureCollection responses.",
		}),
		MeasurementsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_messages_consumed_total",
			Help:      "Total measurement messages read from ingest sources.",
		}),
		MeasurementsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_measurements_stored_total",
			Help:      "Total measurements written to the store.",
		}),
		IngestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ingest_errors_total",
			Help:      "Total measurement messages rejected during parsing.",
		}),
		IngestRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "ingest_running",
			Help:      "1 when the ingest pipeline is active, 0 when shut down.",
		}),
		BatchSize: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_batch_size",
			Help:      "Number of messages per ingest batch.",
			Buckets:   []float64{1, 5, 10, 20, 30, 40, 50, 75, 100},
		}),
		BatchProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "ingest_batch_processing_duration_seconds",
			Help:      "Duration of a complete extract-parse-store cycle.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10},
		}),
	}
}
