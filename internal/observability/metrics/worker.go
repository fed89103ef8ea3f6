package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type WorkerMetrics struct {
	registry *prometheus.Registry

	importTotal    *prometheus.CounterVec
	importDuration *prometheus.HistogramVec
	importInFlight prometheus.Gauge
	importedGrants *prometheus.CounterVec
}

func NewWorkerMetrics(service string) *WorkerMetrics {
	registry := prometheus.NewRegistry()

	importTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "import_batches_total",
			Help:      "Total processed import batches by status.",
		},
		[]string{"service", "status"},
	)
	importDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "import_duration_seconds",
			Help:      "Import batch processing duration in seconds by status.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
		[]string{"service", "status"},
	)
	importInFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "import_in_flight",
			Help:      "Number of in-flight import batches.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	importedGrants := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "worker",
			Name:      "imported_grants_total",
			Help:      "Total grants tagged and stored by the worker.",
		},
		[]string{"service"},
	)

	registry.MustRegister(importTotal, importDuration, importInFlight, importedGrants)

	return &WorkerMetrics{
		registry:       registry,
		importTotal:    importTotal,
		importDuration: importDuration,
		importInFlight: importInFlight,
		importedGrants: importedGrants,
	}
}

func (m *WorkerMetrics) Registerer() prometheus.Registerer {
	return m.registry
}

func (m *WorkerMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *WorkerMetrics) StartImport() {
	m.importInFlight.Inc()
}

func (m *WorkerMetrics) FinishImport(service string, grants int, duration time.Duration, err error) {
	m.importInFlight.Dec()

	status := "success"
	if err != nil {
		status = "error"
	}

	m.importTotal.WithLabelValues(service, status).Inc()
	m.importDuration.WithLabelValues(service, status).Observe(duration.Seconds())
	if err == nil && grants > 0 {
		m.importedGrants.WithLabelValues(service).Add(float64(grants))
	}
}
