package media

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	indexRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gallery_index_runs_total",
		Help: "Category index runs by result.",
	}, []string{"result"})

	indexedFilesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gallery_indexed_files_total",
		Help: "Media files discovered by index runs.",
	})

	indexDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "gallery_index_duration_seconds",
		Help:    "Duration of category index runs in seconds.",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	})
)
