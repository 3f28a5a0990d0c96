package llmorch

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// MetricsRecorder abstracts metrics recording so the orchestrator can be
// tested without a live Prometheus registry.
type MetricsRecorder interface {
	RecordRequestDuration(d time.Duration)
	RecordOutcome(outcome string) // enriched|structure_rejected|llm_error
	RecordClaimBatchSize(n int)
}

// PrometheusMetrics implements MetricsRecorder using Prometheus metrics.
type PrometheusMetrics struct {
	requestDuration prometheus.Histogram
	outcomes        *prometheus.CounterVec
	claimBatchSize  prometheus.Histogram
}

var (
	prometheusMetricsInstance *PrometheusMetrics
	prometheusMetricsOnce     sync.Once
)

func getOrCreateHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	h := prometheus.NewHistogram(opts)
	if err := prometheus.Register(h); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(prometheus.Histogram)
		}
		return promauto.NewHistogram(opts)
	}
	return h
}

func getOrCreateCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
		return promauto.NewCounterVec(opts, labels)
	}
	return c
}

// NewPrometheusMetrics creates (or returns the existing singleton)
// Prometheus-based metrics recorder for the orchestrator.
func NewPrometheusMetrics() *PrometheusMetrics {
	prometheusMetricsOnce.Do(func() {
		prometheusMetricsInstance = &PrometheusMetrics{
			requestDuration: getOrCreateHistogram(prometheus.HistogramOpts{
				Name:    "llmorch_request_duration_seconds",
				Help:    "Time taken to complete one enrichment request to the LLM provider",
				Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
			}),
			outcomes: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "llmorch_article_outcomes_total",
				Help: "Count of article enrichment attempts by outcome",
			}, []string{"outcome"}),
			claimBatchSize: getOrCreateHistogram(prometheus.HistogramOpts{
				Name:    "llmorch_claim_batch_size",
				Help:    "Distribution of claim batch sizes returned per claim call",
				Buckets: []float64{0, 1, 2, 5, 10, 20, 50, 100},
			}),
		}
	})
	return prometheusMetricsInstance
}

func (p *PrometheusMetrics) RecordRequestDuration(d time.Duration) {
	p.requestDuration.Observe(d.Seconds())
}

func (p *PrometheusMetrics) RecordOutcome(outcome string) {
	p.outcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusMetrics) RecordClaimBatchSize(n int) {
	p.claimBatchSize.Observe(float64(n))
}
