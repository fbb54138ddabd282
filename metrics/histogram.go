package metrics

import "sync/atomic"

// Nanosecond-denominated duration constants, spelled out locally so callers
// building bucket boundaries don't need to import time for a handful of
// multiplications.
const (
	Microsecond = int64(1000)
	Millisecond = 1000 * Microsecond
	Second      = 1000 * Millisecond
)

// ExponentialBuckets returns count upper bounds starting at start and
// growing by factor each step, e.g. ExponentialBuckets(10µs, 10, 7) gives
// 10µs, 100µs, 1ms, ..., 10s — the spread spec §6 names for
// interest_processing_time.
func ExponentialBuckets(start int64, factor int64, count int) []int64 {
	bounds := make([]int64, count)
	v := start
	for i := range bounds {
		bounds[i] = v
		v *= factor
	}
	return bounds
}

// Histogram is a fixed-bucket-boundary counter, safe for concurrent
// Observe calls from many forwarder goroutines. There is no metrics client
// library anywhere in the retrieval pack to ground an alternative on (see
// DESIGN.md), so bucket counts are plain atomic counters.
type Histogram struct {
	bounds  []int64
	buckets []atomic.Uint64
	count   atomic.Uint64
	sum     atomic.Int64
}

// NewHistogram builds a histogram with the given (ascending) bucket upper
// bounds, plus an implicit +Inf overflow bucket.
func NewHistogram(bounds []int64) Histogram {
	return Histogram{
		bounds:  bounds,
		buckets: make([]atomic.Uint64, len(bounds)+1),
	}
}

// Observe records one sample, in nanoseconds.
func (h *Histogram) Observe(v int64) {
	h.count.Add(1)
	h.sum.Add(v)
	for i, b := range h.bounds {
		if v <= b {
			h.buckets[i].Add(1)
			return
		}
	}
	h.buckets[len(h.buckets)-1].Add(1)
}

// HistogramSnapshot is a point-in-time read of a Histogram.
type HistogramSnapshot struct {
	Bounds       []int64
	BucketCounts []uint64
	Count        uint64
	Sum          int64
}

// Snapshot reads every bucket count plus the overall count/sum.
func (h *Histogram) Snapshot() HistogramSnapshot {
	counts := make([]uint64, len(h.buckets))
	for i := range h.buckets {
		counts[i] = h.buckets[i].Load()
	}
	return HistogramSnapshot{
		Bounds:       h.bounds,
		BucketCounts: counts,
		Count:        h.count.Load(),
		Sum:          h.sum.Load(),
	}
}
