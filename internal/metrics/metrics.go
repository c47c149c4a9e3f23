// Package metrics registers the Prometheus collectors served at /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics bundles the game's collectors.
type Metrics struct {
	RequestsTotal      *prometheus.CounterVec
	OpenConnections    prometheus.Gauge
	PersistenceSeconds *prometheus.HistogramVec
}

// New registers collectors on the given registerer (pass
// prometheus.DefaultRegisterer in production).
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		RequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "dueler",
			Name:      "requests_total",
			Help:      "Handled protocol requests by type and outcome.",
		}, []string{"type", "outcome"}),
		OpenConnections: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "dueler",
			Name:      "open_connections",
			Help:      "Currently open webview connections.",
		}),
		PersistenceSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "dueler",
			Name:      "persistence_seconds",
			Help:      "Latency of persistence operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
}
