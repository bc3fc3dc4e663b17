package storage

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Exporter publishes pipeline progress as Prometheus metrics for the
// duration of a batch run. Metrics live on a private registry so
// constructing more than one exporter in a process is safe.
type Exporter struct {
	registry *prometheus.Registry

	runDuration *prometheus.GaugeVec
	runOutcomes *prometheus.CounterVec
	rowsParsed  *prometheus.CounterVec
	rowsSkipped *prometheus.CounterVec
}

// NewExporter creates and registers the pipeline metrics.
func NewExporter() *Exporter {
	e := &Exporter{
		registry: prometheus.NewRegistry(),
		runDuration: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "cc_bench_run_duration_seconds",
				Help: "Wall-clock duration of the last simulator run",
			},
			[]string{"configuration"},
		),
		runOutcomes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cc_bench_runs_total",
				Help: "Simulator runs by outcome",
			},
			[]string{"configuration", "outcome"},
		),
		rowsParsed: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cc_bench_rows_parsed_total",
				Help: "Result rows parsed per artifact kind",
			},
			[]string{"configuration", "artifact"},
		),
		rowsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "cc_bench_rows_skipped_total",
				Help: "Malformed result rows skipped per artifact kind",
			},
			[]string{"configuration", "artifact"},
		),
	}

	e.registry.MustRegister(
		e.runDuration,
		e.runOutcomes,
		e.rowsParsed,
		e.rowsSkipped,
	)

	return e
}

// Handler serves the exporter's registry.
func (e *Exporter) Handler() http.Handler {
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}

// StartServer serves /metrics on addr; blocks until the listener fails.
func (e *Exporter) StartServer(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", e.Handler())
	return http.ListenAndServe(addr, mux)
}

// RecordRun records the outcome and duration of one simulator run.
func (e *Exporter) RecordRun(configuration, outcome string, seconds float64) {
	e.runDuration.WithLabelValues(configuration).Set(seconds)
	e.runOutcomes.WithLabelValues(configuration, outcome).Inc()
}

// RecordParse records how many rows of one artifact parsed and how many
// were skipped.
func (e *Exporter) RecordParse(configuration, artifact string, parsed, skipped int) {
	e.rowsParsed.WithLabelValues(configuration, artifact).Add(float64(parsed))
	e.rowsSkipped.WithLabelValues(configuration, artifact).Add(float64(skipped))
}
