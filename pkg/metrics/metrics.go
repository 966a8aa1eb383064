package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	tracker = "tracker"

	// Reconcile metrics
	reconcileUpdatesTotal   = "reconcile_updates_total"
	reconcilePassesTotal    = "reconcile_passes_total"
	extractionFetchDuration = "extraction_fetch_duration_milliseconds"

	// Labels
	outcomeLabel = "outcome"
	resultLabel  = "result"
)

const (
	UpdateOutcomeApplied  = "applied"
	UpdateOutcomeStale    = "stale"
	UpdateOutcomeNotFound = "not_found"
	UpdateOutcomeFailed   = "failed"

	PassResultOK       = "ok"
	PassResultDegraded = "degraded"
	PassResultFailed   = "failed"
)

/**
* Metrics definition
**/
var reconcileUpdatesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: tracker,
		Name:      reconcileUpdatesTotal,
		Help:      "number of job status merges partitioned by outcome",
	},
	[]string{outcomeLabel},
)

var reconcilePassesTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: tracker,
		Name:      reconcilePassesTotal,
		Help:      "number of reconciliation passes partitioned by result",
	},
	[]string{resultLabel},
)

var extractionFetchDurationMetric = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Subsystem: tracker,
		Name:      extractionFetchDuration,
		Help:      "time spent fetching job statuses from the extraction service",
		Buckets:   []float64{50, 100, 250, 500, 1000, 2500, 5000, 10000},
	},
)

func IncreaseReconcileUpdatesMetric(outcome string) {
	reconcileUpdatesTotalMetric.With(prometheus.Labels{outcomeLabel: outcome}).Inc()
}

func IncreaseReconcilePassesMetric(result string) {
	reconcilePassesTotalMetric.With(prometheus.Labels{resultLabel: result}).Inc()
}

func ObserveExtractionFetchDuration(d time.Duration) {
	extractionFetchDurationMetric.Observe(float64(d.Milliseconds()))
}

// NewPrometheusMetricsHandler serves every collector of the default registry.
func NewPrometheusMetricsHandler() http.Handler {
	return promhttp.Handler()
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(reconcileUpdatesTotalMetric)
	prometheus.MustRegister(reconcilePassesTotalMetric)
	prometheus.MustRegister(extractionFetchDurationMetric)
	prometheus.MustRegister(totalActivePrincipalsPerWeekMetric)
}
