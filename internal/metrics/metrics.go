// Package metrics registers the engine's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// PreviewsTotal counts computed sale previews.
	PreviewsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scullery",
		Subsystem: "sales",
		Name:      "previews_total",
		Help:      "Number of sale batch previews computed.",
	})

	// AppliesTotal counts apply attempts by outcome: applied, failed, stale.
	AppliesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scullery",
		Subsystem: "sales",
		Name:      "applies_total",
		Help:      "Number of sale batch applies by outcome.",
	}, []string{"result"})

	// DeductionsWritten counts ingredient deductions committed to stock.
	DeductionsWritten = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "scullery",
		Subsystem: "sales",
		Name:      "deductions_written_total",
		Help:      "Number of ingredient deductions committed.",
	})

	// ApplyDuration observes end-to-end apply latency in seconds.
	ApplyDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "scullery",
		Subsystem: "sales",
		Name:      "apply_duration_seconds",
		Help:      "Latency of successful sale batch applies.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Handler exposes the default registry for the /metrics route.
func Handler() http.Handler {
	return promhttp.Handler()
}
