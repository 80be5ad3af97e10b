// Package obsmetrics exposes the pipeline's Prometheus metrics
// (client_golang, already in the teacher's go.mod for its own health/ready
// probes). Grounded in the promauto constructor and label-vector pattern
// used by agentflow's internal/metrics.Collector (NewCounterVec /
// NewHistogramVec per concern, one *_total counter and one *_duration_seconds
// histogram per stage), narrowed here to the evaluation pipeline's own
// stages: per-analyzer run outcome and duration, and whole-request outcome
// and duration.
package obsmetrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Collector holds every metric the pipeline records. Construct one per
// process with NewCollector and pass it to the orchestrator (pipeline.New),
// which records the analyzer and request metrics.
type Collector struct {
	analyzerRunsTotal   *prometheus.CounterVec
	analyzerDuration    *prometheus.HistogramVec
	requestsTotal       *prometheus.CounterVec
	requestDuration     prometheus.Histogram
	finalScoreHistogram prometheus.Histogram
}

// NewCollector registers every metric under namespace (e.g.
// "speechgrader") against the default Prometheus registry.
func NewCollector(namespace string) *Collector {
	return &Collector{
		analyzerRunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "analyzer_runs_total",
				Help:      "Total number of analyzer runs by outcome status",
			},
			[]string{"analyzer_id", "status"},
		),
		analyzerDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "analyzer_duration_seconds",
				Help:      "Analyzer wall-clock duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"analyzer_id"},
		),
		requestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "requests_total",
				Help:      "Total number of evaluation requests by outcome",
			},
			[]string{"status"},
		),
		requestDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "request_duration_seconds",
				Help:      "End-to-end evaluation request duration in seconds",
				Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120, 300},
			},
		),
		finalScoreHistogram: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "final_score",
				Help:      "Distribution of final aggregate scores (0-100)",
				Buckets:   []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
			},
		),
	}
}

// RecordAnalyzer records one analyzer's outcome and duration.
func (c *Collector) RecordAnalyzer(analyzerID, status string, d time.Duration) {
	c.analyzerRunsTotal.WithLabelValues(analyzerID, status).Inc()
	c.analyzerDuration.WithLabelValues(analyzerID).Observe(d.Seconds())
}

// RecordRequest records one evaluation request's outcome, duration and, on
// success, its final score.
func (c *Collector) RecordRequest(status string, d time.Duration, finalScore float64, ok bool) {
	c.requestsTotal.WithLabelValues(status).Inc()
	c.requestDuration.Observe(d.Seconds())
	if ok {
		c.finalScoreHistogram.Observe(finalScore)
	}
}
