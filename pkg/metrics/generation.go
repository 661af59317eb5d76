package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// GenerationMetrics records document pipeline outcomes.
type GenerationMetrics struct {
	batchDuration *prometheus.HistogramVec
	documents     *prometheus.CounterVec
	bootstrap     *prometheus.CounterVec
}

// NewGenerationMetrics registers the pipeline metrics on the provided registerer.
func NewGenerationMetrics(reg prometheus.Registerer) *GenerationMetrics {
	if reg == nil {
		return &GenerationMetrics{}
	}
	batchDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "document_batch_duration_seconds",
		Help:    "Duration of warranty document batches in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	documents := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "documents_rendered_total",
		Help: "Rendered documents by type and outcome.",
	}, []string{"document_type", "outcome"})
	bootstrap := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "render_engine_bootstrap_total",
		Help: "Rendering engine bootstrap attempts by result.",
	}, []string{"result"})
	reg.MustRegister(batchDuration, documents, bootstrap)
	return &GenerationMetrics{
		batchDuration: batchDuration,
		documents:     documents,
		bootstrap:     bootstrap,
	}
}

// ObserveBatch records the duration of one generation request.
func (g *GenerationMetrics) ObserveBatch(outcome string, duration time.Duration) {
	if g == nil || g.batchDuration == nil {
		return
	}
	g.batchDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncDocument counts one rendered (or failed) document.
func (g *GenerationMetrics) IncDocument(documentType, outcome string) {
	if g == nil || g.documents == nil {
		return
	}
	g.documents.WithLabelValues(normalizeLabel(documentType), normalizeLabel(outcome)).Inc()
}

// IncBootstrap counts one engine bootstrap attempt.
func (g *GenerationMetrics) IncBootstrap(result string) {
	if g == nil || g.bootstrap == nil {
		return
	}
	g.bootstrap.WithLabelValues(normalizeLabel(result)).Inc()
}
