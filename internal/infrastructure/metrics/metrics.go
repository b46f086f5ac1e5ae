// Package metrics owns the Prometheus registry and the application's collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups every collector exposed on /metrics. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	ImportRecords   *prometheus.CounterVec
	ImportRuns      *prometheus.CounterVec
	BackupRuns      *prometheus.CounterVec
}

// New creates a registry with the Go runtime collectors and the application metrics
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		ImportRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memoria_import_records_total",
				Help: "Browser records newly stored by the import pipeline",
			},
			[]string{"source", "kind"},
		),
		ImportRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memoria_import_runs_total",
				Help: "Import pipeline runs by result",
			},
			[]string{"result"},
		),
		BackupRuns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "memoria_backup_runs_total",
				Help: "Backup cycles by result",
			},
			[]string{"result"},
		),
	}

	m.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.ImportRecords,
		m.ImportRuns,
		m.BackupRuns,
	)

	return m
}

// RecordImported counts newly stored records of one source and kind
func (m *Metrics) RecordImported(source, kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.ImportRecords.WithLabelValues(source, kind).Add(float64(n))
}

// ImportRun counts a pipeline run by result: success, partial, failed or cancelled
func (m *Metrics) ImportRun(result string) {
	if m == nil {
		return
	}
	m.ImportRuns.WithLabelValues(result).Inc()
}

// BackupRun counts a backup cycle with result "success" or the failed stage
func (m *Metrics) BackupRun(result string) {
	if m == nil {
		return
	}
	m.BackupRuns.WithLabelValues(result).Inc()
}
