package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	compressionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "image_compressor_compression_duration_seconds",
		Help:    "Duration of a single compression request in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"format", "status"})

	compressionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_compressor_compressions_total",
		Help: "Total number of compression requests processed",
	}, []string{"format", "status"})

	outputBytesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "image_compressor_output_bytes_total",
		Help: "Bytes written by successful compressions",
	}, []string{"format"})
)
