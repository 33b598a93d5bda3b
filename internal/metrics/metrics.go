// Package metrics holds the prometheus collectors of the query pipeline.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	statementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlquery_statements_total",
			Help: "Total number of executed statements by kind and outcome.",
		},
		[]string{"kind", "outcome"},
	)
	statementLatencyMs = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nlquery_statement_latency_ms",
			Help:    "Statement execution latency in milliseconds.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		},
		[]string{"kind"},
	)
	synthesisTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nlquery_synthesis_total",
			Help: "Total number of model calls by provider and outcome.",
		},
		[]string{"provider", "outcome"},
	)
	introspectionFailuresTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "nlquery_introspection_failures_total",
			Help: "Total number of failed DESCRIBE calls.",
		},
	)
)

func init() {
	prometheus.MustRegister(
		statementsTotal,
		statementLatencyMs,
		synthesisTotal,
		introspectionFailuresTotal,
	)
}

// ObserveStatement records one executed statement
func ObserveStatement(kind, outcome string, elapsed time.Duration) {
	statementsTotal.WithLabelValues(kind, outcome).Inc()
	statementLatencyMs.WithLabelValues(kind).Observe(float64(elapsed.Microseconds()) / 1000)
}

// ObserveSynthesis records one model call
func ObserveSynthesis(provider string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	synthesisTotal.WithLabelValues(provider, outcome).Inc()
}

func ObserveIntrospectionFailure() {
	introspectionFailuresTotal.Inc()
}

// Handler exposes the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
