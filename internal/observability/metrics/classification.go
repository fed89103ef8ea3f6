package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ClassificationMetrics observes LLM tagging calls. It satisfies openaicompat.Recorder.
type ClassificationMetrics struct {
	service string

	callsTotal   *prometheus.CounterVec
	callDuration *prometheus.HistogramVec
	tagsPerGrant *prometheus.HistogramVec
}

func NewClassificationMetrics(service string, registerer prometheus.Registerer) *ClassificationMetrics {
	callsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "calls_total",
			Help:      "Total classification calls by outcome.",
		},
		[]string{"service", "outcome"},
	)
	callDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "call_duration_seconds",
			Help:      "Classification call duration in seconds.",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"service", "outcome"},
	)
	tagsPerGrant := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "classifier",
			Name:      "tags_per_grant",
			Help:      "Distribution of accepted tags per classified grant.",
			Buckets:   []float64{0, 1, 2, 3, 4, 5, 8},
		},
		[]string{"service"},
	)

	if registerer != nil {
		registerer.MustRegister(callsTotal, callDuration, tagsPerGrant)
	}

	return &ClassificationMetrics{
		service:      service,
		callsTotal:   callsTotal,
		callDuration: callDuration,
		tagsPerGrant: tagsPerGrant,
	}
}

func (m *ClassificationMetrics) RecordClassification(outcome string, tagCount int, duration time.Duration) {
	if outcome == "" {
		outcome = "unknown"
	}
	m.callsTotal.WithLabelValues(m.service, outcome).Inc()
	m.callDuration.WithLabelValues(m.service, outcome).Observe(duration.Seconds())
	m.tagsPerGrant.WithLabelValues(m.service).Observe(float64(tagCount))
}
