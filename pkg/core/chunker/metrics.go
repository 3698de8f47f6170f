package chunker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	scanDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "intrinseco_chunker_scan_duration_seconds",
		Help:    "Duration of a single category scan",
		Buckets: prometheus.DefBuckets,
	}, []string{"language", "category"})

	scanHits = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "intrinseco_chunker_scan_hits",
		Help:    "Distinct indicators found in the best window",
		Buckets: prometheus.LinearBuckets(0, 2, 11),
	}, []string{"language", "category"})

	passesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intrinseco_chunker_passes_total",
		Help: "Language passes run by the dispatcher",
	}, []string{"language", "status"})

	fallbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intrinseco_chunker_fallbacks_total",
		Help: "GetChunks calls that fell back to the secondary dictionary",
	})
)
