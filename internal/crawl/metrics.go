package crawl

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsRecorder abstracts metrics recording so the crawler can be tested
// without a live Prometheus registry.
type MetricsRecorder interface {
	RecordFeedOutcome(outcome string) // ok|network|parse|timeout
	RecordCandidateOutcome(outcome string) // accepted|too_short|too_long|video|transcript|filler|banned_word|duplicate_url|capacity_exceeded|no_image
}

// PrometheusMetrics implements MetricsRecorder using Prometheus counters.
type PrometheusMetrics struct {
	feedOutcomes      *prometheus.CounterVec
	candidateOutcomes *prometheus.CounterVec
}

var (
	prometheusMetricsInstance *PrometheusMetrics
	prometheusMetricsOnce     sync.Once
)

func getOrCreateCounterVec(opts prometheus.CounterOpts, labels []string) *prometheus.CounterVec {
	c := prometheus.NewCounterVec(opts, labels)
	if err := prometheus.Register(c); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			return are.ExistingCollector.(*prometheus.CounterVec)
		}
	}
	return c
}

// NewPrometheusMetrics creates (or returns the existing singleton)
// Prometheus-based metrics recorder for the crawler.
func NewPrometheusMetrics() *PrometheusMetrics {
	prometheusMetricsOnce.Do(func() {
		prometheusMetricsInstance = &PrometheusMetrics{
			feedOutcomes: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "crawl_feed_outcomes_total",
				Help: "Count of feed fetch attempts by outcome",
			}, []string{"outcome"}),
			candidateOutcomes: getOrCreateCounterVec(prometheus.CounterOpts{
				Name: "crawl_candidate_outcomes_total",
				Help: "Count of candidate articles by accept/reject outcome",
			}, []string{"outcome"}),
		}
	})
	return prometheusMetricsInstance
}

func (p *PrometheusMetrics) RecordFeedOutcome(outcome string) {
	p.feedOutcomes.WithLabelValues(outcome).Inc()
}

func (p *PrometheusMetrics) RecordCandidateOutcome(outcome string) {
	p.candidateOutcomes.WithLabelValues(outcome).Inc()
}
