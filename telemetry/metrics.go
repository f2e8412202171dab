package telemetry

import (
	"sync"
	"time"
)

// Histogram bucket definitions
var (
	// CodecBuckets for single in-memory codec operations
	CodecBuckets = []float64{0.000001, 0.000005, 0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01}

	// SizeBuckets for output sizes in bytes
	SizeBuckets = []float64{8, 32, 128, 512, 2048, 8192, 32768, 131072, 524288}
)

// Codec Metrics
var (
	// CodecOpsTotal counts codec operations by op and result (success, failed)
	CodecOpsTotal CounterVec = discardCounters{}

	// CodecDurationSeconds measures codec operation latency by op
	CodecDurationSeconds HistogramVec = discardHistograms{}

	// CodecOutputBytes measures output size by op
	CodecOutputBytes HistogramVec = discardHistograms{}

	// CharsetCacheEntries tracks resolved encodings held by the default resolver
	CharsetCacheEntries Gauge = NoopStat{}
)

// Surface Metrics
var (
	// BatchFramesTotal counts processed batch frames by result
	BatchFramesTotal CounterVec = discardCounters{}

	// BatchStreamsActive tracks batch streams currently being processed
	BatchStreamsActive Gauge = NoopStat{}

	// AdminRequestsTotal counts admin HTTP requests by route and status class
	AdminRequestsTotal CounterVec = discardCounters{}
)

var initOnce sync.Once

// InitMetrics initializes all Prometheus metrics.
// Must be called after InitializeTelemetry().
func InitMetrics() {
	initOnce.Do(func() {
		CodecOpsTotal = NewCounterVec(
			"codec_ops_total",
			"Codec operations by op and result",
			[]string{"op", "result"},
		)
		CodecDurationSeconds = NewHistogramVec(
			"codec_duration_seconds",
			"Codec operation duration in seconds",
			[]string{"op"},
			CodecBuckets,
		)
		CodecOutputBytes = NewHistogramVec(
			"codec_output_bytes",
			"Codec output size in bytes",
			[]string{"op"},
			SizeBuckets,
		)
		CharsetCacheEntries = NewGauge(
			"charset_cache_entries",
			"Resolved character encodings held in the cache",
		)

		BatchFramesTotal = NewCounterVec(
			"batch_frames_total",
			"Batch frames by result",
			[]string{"result"},
		)
		BatchStreamsActive = NewGauge(
			"batch_streams_active",
			"Batch streams currently being processed",
		)
		AdminRequestsTotal = NewCounterVec(
			"admin_requests_total",
			"Admin HTTP requests by route and status",
			[]string{"route", "status"},
		)
	})
}

// RecordOp records one codec operation that started at start and produced
// size bytes of output.
func RecordOp(op string, start time.Time, size int, err error) {
	result := "success"
	if err != nil {
		result = "failed"
	}
	CodecOpsTotal.With(op, result).Inc()
	CodecDurationSeconds.With(op).Observe(time.Since(start).Seconds())
	if err == nil {
		CodecOutputBytes.With(op).Observe(float64(size))
	}
}
