package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks pipeline activity for the /metrics endpoint.
type Metrics struct {
	runsTotal      *prometheus.CounterVec
	runDuration    prometheus.Histogram
	tokensUsed     prometheus.Counter
	itemsRetrieved prometheus.Histogram
}

// NewMetrics registers pipeline metrics on the given registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "convoscope",
			Name:      "pipeline_runs_total",
			Help:      "Pipeline invocations by outcome.",
		}, []string{"outcome"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "convoscope",
			Name:      "pipeline_run_duration_seconds",
			Help:      "Wall-clock duration of pipeline runs.",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
		tokensUsed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "convoscope",
			Name:      "llm_tokens_used_total",
			Help:      "Total LLM tokens consumed by synthesis.",
		}),
		itemsRetrieved: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "convoscope",
			Name:      "pipeline_items_retrieved",
			Help:      "Items handed to synthesis per run.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
	}
}

func (m *Metrics) observeRun(outcome string, seconds float64) {
	m.runsTotal.WithLabelValues(outcome).Inc()
	m.runDuration.Observe(seconds)
}
