// Package observability holds the Prometheus metrics recorded by each
// popgrid run and exports them for the node-exporter textfile collector.
package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

// Metrics holds the counters and gauges for a single command run.
type Metrics struct {
	registry *prometheus.Registry

	CellsWritten    *prometheus.CounterVec // labels: output={condensed,cmap,mmap}
	PingsProcessed  *prometheus.CounterVec // labels: outcome={accepted,daytime,moving,out_of_area,malformed}
	TractsProcessed *prometheus.CounterVec // labels: outcome={merged,rasterized,skipped}
	RunDuration     *prometheus.GaugeVec   // labels: command
	LastSuccess     *prometheus.GaugeVec   // labels: command
}

// NewMetrics creates the metrics on a fresh registry so that repeated runs in
// one process (tests) never collide with the default registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		CellsWritten: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "popgrid",
			Name:      "cells_written_total",
			Help:      "Grid cells written, by output artifact.",
		}, []string{"output"}),
		PingsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "popgrid",
			Name:      "pings_processed_total",
			Help:      "Mobile ping records read, by filter outcome.",
		}, []string{"outcome"}),
		TractsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "popgrid",
			Name:      "tracts_processed_total",
			Help:      "Census tract records read by the rasterizer, by outcome.",
		}, []string{"outcome"}),
		RunDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "popgrid",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of the last run of a command.",
		}, []string{"command"}),
		LastSuccess: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "popgrid",
			Name:      "last_success_timestamp_seconds",
			Help:      "Unix time of the last successful run of a command.",
		}, []string{"command"}),
	}

	m.registry.MustRegister(
		m.CellsWritten,
		m.PingsProcessed,
		m.TractsProcessed,
		m.RunDuration,
		m.LastSuccess,
	)
	return m
}

// Registry exposes the underlying registry as a gatherer.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveRun records the duration of a command and, when it succeeded, its
// completion time.
func (m *Metrics) ObserveRun(command string, started, finished time.Time, ok bool) {
	m.RunDuration.WithLabelValues(command).Set(finished.Sub(started).Seconds())
	if ok {
		m.LastSuccess.WithLabelValues(command).Set(float64(finished.Unix()))
	}
}

// WriteTextfile writes all metrics to path in the text exposition format.
// An empty path is a no-op.
func (m *Metrics) WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return eris.Wrapf(err, "observability: write textfile %s", path)
	}
	return nil
}
