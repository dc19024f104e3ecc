package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kirillkom/docprep/internal/core/domain"
)

// PipelineMetrics records per-document extraction outcomes.
type PipelineMetrics struct {
	service  string
	registry *prometheus.Registry

	documentsTotal   *prometheus.CounterVec
	documentDuration *prometheus.HistogramVec
	inFlight         prometheus.Gauge
	ocrPagesTotal    *prometheus.CounterVec
	breakerState     *prometheus.GaugeVec
}

func NewPipelineMetrics(service string) *PipelineMetrics {
	registry := prometheus.NewRegistry()

	documentsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docprep",
			Subsystem: "pipeline",
			Name:      "documents_total",
			Help:      "Total processed documents by outcome.",
		},
		[]string{"service", "outcome"},
	)
	documentDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "docprep",
			Subsystem: "pipeline",
			Name:      "document_duration_seconds",
			Help:      "Per-document pipeline duration in seconds by outcome.",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"service", "outcome"},
	)
	inFlight := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "docprep",
			Subsystem: "pipeline",
			Name:      "documents_in_flight",
			Help:      "Number of document pipelines currently running.",
			ConstLabels: prometheus.Labels{
				"service": service,
			},
		},
	)
	ocrPagesTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "docprep",
			Subsystem: "pipeline",
			Name:      "ocr_pages_total",
			Help:      "Total OCR page attempts by status.",
		},
		[]string{"service", "status"},
	)

	breakerState := prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "docprep",
			Subsystem: "pipeline",
			Name:      "breaker_state",
			Help:      "Circuit breaker state by operation: 0 closed, 1 half-open, 2 open.",
		},
		[]string{"service", "operation"},
	)

	registry.MustRegister(documentsTotal, documentDuration, inFlight, ocrPagesTotal, breakerState)

	return &PipelineMetrics{
		service:          service,
		registry:         registry,
		documentsTotal:   documentsTotal,
		documentDuration: documentDuration,
		inFlight:         inFlight,
		ocrPagesTotal:    ocrPagesTotal,
		breakerState:     breakerState,
	}
}

func (m *PipelineMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the private registry so other collectors can share one /metrics endpoint.
func (m *PipelineMetrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *PipelineMetrics) StartDocument() {
	m.inFlight.Inc()
}

func (m *PipelineMetrics) FinishDocument(outcome domain.Outcome, duration time.Duration) {
	m.inFlight.Dec()

	label := string(outcome)
	if label == "" {
		label = "unknown"
	}
	m.documentsTotal.WithLabelValues(m.service, label).Inc()
	m.documentDuration.WithLabelValues(m.service, label).Observe(duration.Seconds())
}

func (m *PipelineMetrics) ObserveOCRPages(ok, failed int) {
	if ok > 0 {
		m.ocrPagesTotal.WithLabelValues(m.service, "ok").Add(float64(ok))
	}
	if failed > 0 {
		m.ocrPagesTotal.WithLabelValues(m.service, "failed").Add(float64(failed))
	}
}

// ObserveBreakerState matches resilience.Config.OnStateChange.
func (m *PipelineMetrics) ObserveBreakerState(operation, _, to string) {
	value := 0.0
	switch to {
	case "half-open":
		value = 1
	case "open":
		value = 2
	}
	m.breakerState.WithLabelValues(m.service, operation).Set(value)
}
