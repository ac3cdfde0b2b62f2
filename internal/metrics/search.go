package metrics

import "github.com/prometheus/client_golang/prometheus"

// Search-run and provider Prometheus metrics.
var (
	ProviderRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadscout",
			Name:      "provider_requests_total",
			Help:      "Total number of place-search provider requests",
		},
		[]string{"endpoint", "status"},
	)

	ProviderRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "leadscout",
			Name:      "provider_request_duration_seconds",
			Help:      "Place-search provider request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint"},
	)

	LeadsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadscout",
			Name:      "leads_processed_total",
			Help:      "Raw results processed, by extraction outcome",
		},
		[]string{"outcome"}, // "accepted" / "rejected"
	)

	RunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "leadscout",
			Name:      "runs_total",
			Help:      "Search runs by terminal status",
		},
		[]string{"status"},
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "leadscout",
			Name:      "run_duration_seconds",
			Help:      "End-to-end search run duration in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
	)
)

// RegisterSearchMetrics registers run/provider metrics explicitly (no init()).
func RegisterSearchMetrics() {
	prometheus.MustRegister(
		ProviderRequestsTotal,
		ProviderRequestDuration,
		LeadsProcessedTotal,
		RunsTotal,
		RunDuration,
	)
}
