package httpapi

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus instrumentation for the analysis service.
type Metrics struct {
	registry *prometheus.Registry

	AnalysesTotal     prometheus.Counter
	ReplicatesTotal   *prometheus.CounterVec
	AnalysisDuration  prometheus.Histogram
	RequestsThrottled prometheus.Counter
}

// NewMetrics creates and registers the service metrics on a private
// registry, keeping test instances independent.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		AnalysesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "growthrate_analyses_total",
			Help: "Total number of analysis requests processed",
		}),

		ReplicatesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "growthrate_replicates_total",
			Help: "Total number of replicates analyzed by outcome",
		}, []string{"outcome"}),

		AnalysisDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "growthrate_analysis_duration_seconds",
			Help:    "Wall time of one analysis request",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}),

		RequestsThrottled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "growthrate_requests_throttled_total",
			Help: "Total number of requests rejected by the rate limiter",
		}),
	}

	m.registry.MustRegister(
		m.AnalysesTotal,
		m.ReplicatesTotal,
		m.AnalysisDuration,
		m.RequestsThrottled,
	)
	return m
}

// ObserveOutcomes counts replicate outcomes from one analysis batch.
func (m *Metrics) ObserveOutcomes(ok, noPhase, failed int) {
	m.ReplicatesTotal.WithLabelValues("ok").Add(float64(ok))
	m.ReplicatesTotal.WithLabelValues("no_phase").Add(float64(noPhase))
	m.ReplicatesTotal.WithLabelValues("error").Add(float64(failed))
}
