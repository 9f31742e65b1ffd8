package harness

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "treebench"

// Outcome label values for DatasetsTotal.
const (
	OutcomeEvaluated = "evaluated"
	OutcomeSkipped   = "skipped"
	OutcomeFailed    = "failed"
)

// Metrics holds the Prometheus collectors of one run.
type Metrics struct {
	// PredictSeconds measures the timed cross-validated prediction.
	// Labels: backend
	PredictSeconds *prometheus.HistogramVec

	// FMeasure records the last weighted F-measure per backend.
	// Labels: backend
	FMeasure *prometheus.GaugeVec

	// DatasetsTotal counts datasets by outcome.
	// Labels: outcome (evaluated, skipped, failed)
	DatasetsTotal *prometheus.CounterVec

	// ErrorsTotal counts errors by taxonomy type.
	// Labels: error_type
	ErrorsTotal *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// Registering twice on the same registry panics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		PredictSeconds: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "predict_seconds",
				Help:      "Cross-validated prediction time per backend in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 16),
			},
			[]string{"backend"},
		),
		FMeasure: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Name:      "f_measure",
				Help:      "Weighted F-measure of the last evaluated dataset per backend",
			},
			[]string{"backend"},
		),
		DatasetsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "datasets_total",
				Help:      "Datasets processed by outcome",
			},
			[]string{"outcome"},
		),
		ErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "errors_total",
				Help:      "Errors by type",
			},
			[]string{"error_type"},
		),
	}
}
