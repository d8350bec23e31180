// Package metrics holds Prometheus instruments that are used across the
// service.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ConfigLoadsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "superset_config_loads_total",
			Help: "Cumulative number of configuration snapshots published.",
		})

	ConfigLoadErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "superset_config_load_errors_total",
			Help: "Cumulative number of failed configuration loads.",
		})

	ConfigMissingVars = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "superset_config_missing_vars",
			Help: "Number of required variables unset in the current snapshot.",
		})

	ProbeUp = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "superset_probe_up",
			Help: "1 when the last connectivity probe of a target succeeded.",
		}, []string{"target"})

	ProbeDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "superset_probe_duration_seconds",
			Help:    "Latency of connectivity probes.",
			Buckets: prometheus.DefBuckets,
		}, []string{"target"})

	SecretFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "superset_secret_fetch_total",
			Help: "Vault secret lookups by result (hit, miss, error).",
		}, []string{"result"})
)

func init() {
	prometheus.MustRegister(
		ConfigLoadsTotal,
		ConfigLoadErrorsTotal,
		ConfigMissingVars,
		ProbeUp,
		ProbeDuration,
		SecretFetchTotal,
	)
}
