package wikifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	extractCalls = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikifier_extract_calls_total",
		Help: "Annotation service calls issued.",
	})
	extractFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikifier_extract_failures_total",
		Help: "Annotation service calls that failed or returned no annotations.",
	})
	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "wikifier_cache_hits_total",
		Help: "Extractions served from the redis cache.",
	})
)
