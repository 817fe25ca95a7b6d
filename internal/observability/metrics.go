package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"
)

// Metrics definitions
var (
	ParsingDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rubyscope_parsing_seconds",
		Help:    "Time spent parsing a source file.",
		Buckets: prometheus.DefBuckets,
	})

	AnalysisDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "rubyscope_analysis_seconds",
		Help:    "Time spent walking a syntax tree into the definition graph.",
		Buckets: prometheus.DefBuckets,
	})

	DefinitionsBuilt = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "rubyscope_definitions_built_total",
		Help: "Total number of definitions created, by kind.",
	}, []string{"kind"})

	ConstantsAutoloaded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rubyscope_constants_autoloaded_total",
		Help: "Total number of constants materialized from the definition database.",
	})

	LookupMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "rubyscope_lookup_misses_total",
		Help: "Total number of lookups and constant resolutions that found nothing.",
	})
)

// CounterValue snapshots a counter's current value for run summaries.
func CounterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}
