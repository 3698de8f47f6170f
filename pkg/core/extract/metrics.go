package extract

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intrinseco_extract_statements_total",
		Help: "Statement extractions by category and outcome.",
	}, []string{"category", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "intrinseco_extract_duration_seconds",
		Help:    "Time spent on the cleaner and submitter prompts of one statement.",
		Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
	}, []string{"category"})
)
