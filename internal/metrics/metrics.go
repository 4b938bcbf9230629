// Package metrics holds the Prometheus collectors exported at /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Lookup outcomes.
const (
	OutcomeOK              = "ok"
	OutcomeInvalidAddress  = "invalid_address"
	OutcomeNotFound        = "not_found"
	OutcomeDatabaseFault   = "database_fault"
	OutcomeUnavailable     = "unavailable"
	ReloadResultSuccess    = "success"
	ReloadResultOpenFailed = "open_failed"
	ReloadResultRejected   = "rejected"
)

var (
	LookupsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipcountry_lookups_total",
		Help: "Total number of country lookups by transport and outcome",
	}, []string{"transport", "outcome"})
	ReloadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ipcountry_reloads_total",
		Help: "Total number of database reload cycles by result",
	}, []string{"result"})
	ReloadDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "ipcountry_reload_duration_seconds",
		Help:    "Time spent opening a database file during reload",
		Buckets: prometheus.DefBuckets,
	})
	LastReloadTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ipcountry_last_reload_timestamp_seconds",
		Help: "Unix time of the last successful database install",
	})
	DatabaseBuildTimestamp = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ipcountry_database_build_timestamp_seconds",
		Help: "Build time of the currently installed database",
	})
)

func init() {
	prometheus.MustRegister(LookupsTotal)
	prometheus.MustRegister(ReloadsTotal)
	prometheus.MustRegister(ReloadDurationSeconds)
	prometheus.MustRegister(LastReloadTimestamp)
	prometheus.MustRegister(DatabaseBuildTimestamp)
}

// Handler serves the default registry.
func Handler() http.Handler { return promhttp.Handler() }
