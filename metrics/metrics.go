// Package metrics holds the counters and histogram named in spec §6. It is
// deliberately transport-free: best-effort metrics collection is assumed,
// but scrape/push wiring is left to a caller (spec §1 Non-goals). Snapshot
// gives callers (the mgmt HTTP surface, tests) a consistent point-in-time
// read without taking any table lock.
package metrics

import (
	"sync/atomic"
)

// Counters is every named counter from spec §6, plus the three gauges
// (cs_size, pit_size, fib_size) that are sampled rather than accumulated.
type Counters struct {
	PacketsTotal          atomic.Uint64
	InterestsReceived     atomic.Uint64
	InterestsSent         atomic.Uint64
	InterestsSatisfied    atomic.Uint64
	InterestsTimedOut     atomic.Uint64
	InterestsDuplicate    atomic.Uint64
	InterestsForwarded    atomic.Uint64
	InterestsDroppedOther atomic.Uint64
	DataReceived          atomic.Uint64
	DataSent              atomic.Uint64
	CsHits                atomic.Uint64
	CsMisses              atomic.Uint64
	CsInserts             atomic.Uint64
	CsEvictions           atomic.Uint64
	PitInserts            atomic.Uint64
	PitMatches            atomic.Uint64
	PitExpirations        atomic.Uint64
	FibHits               atomic.Uint64
	FibLookups            atomic.Uint64
	BytesReceived         atomic.Uint64
	BytesSent             atomic.Uint64

	processingTime Histogram
}

// NewCounters builds a Counters with the processing-time histogram buckets
// described in spec §6: exponential, 10µs through 10s.
func NewCounters() *Counters {
	return &Counters{
		processingTime: NewHistogram(ExponentialBuckets(10*Microsecond, 10, 7)),
	}
}

// ObserveProcessingTime records one forwarder-cycle duration, in nanoseconds,
// into the interest_processing_time histogram.
func (c *Counters) ObserveProcessingTime(nanos int64) {
	c.processingTime.Observe(nanos)
}

// Snapshot is a point-in-time, gauge-augmented read of every counter. size*
// fields must be supplied by the caller (the tables own their own sizes;
// metrics never reaches into a table to avoid a cross-package lock order).
type Snapshot struct {
	PacketsTotal          uint64
	InterestsReceived     uint64
	InterestsSent         uint64
	InterestsSatisfied    uint64
	InterestsTimedOut     uint64
	InterestsDuplicate    uint64
	InterestsForwarded    uint64
	InterestsDroppedOther uint64
	DataReceived          uint64
	DataSent              uint64
	CsHits                uint64
	CsMisses              uint64
	CsInserts             uint64
	CsEvictions           uint64
	CsSize                uint64
	PitInserts            uint64
	PitMatches            uint64
	PitExpirations        uint64
	PitSize               uint64
	FibHits               uint64
	FibLookups            uint64
	FibSize               uint64
	BytesReceived         uint64
	BytesSent             uint64
	ProcessingTime        HistogramSnapshot
}

// Snapshot reads every counter plus the supplied gauge values.
func (c *Counters) Snapshot(csSize, pitSize, fibSize uint64) Snapshot {
	return Snapshot{
		PacketsTotal:          c.PacketsTotal.Load(),
		InterestsReceived:     c.InterestsReceived.Load(),
		InterestsSent:         c.InterestsSent.Load(),
		InterestsSatisfied:    c.InterestsSatisfied.Load(),
		InterestsTimedOut:     c.InterestsTimedOut.Load(),
		InterestsDuplicate:    c.InterestsDuplicate.Load(),
		InterestsForwarded:    c.InterestsForwarded.Load(),
		InterestsDroppedOther: c.InterestsDroppedOther.Load(),
		DataReceived:          c.DataReceived.Load(),
		DataSent:              c.DataSent.Load(),
		CsHits:                c.CsHits.Load(),
		CsMisses:              c.CsMisses.Load(),
		CsInserts:             c.CsInserts.Load(),
		CsEvictions:           c.CsEvictions.Load(),
		CsSize:                csSize,
		PitInserts:            c.PitInserts.Load(),
		PitMatches:            c.PitMatches.Load(),
		PitExpirations:        c.PitExpirations.Load(),
		PitSize:               pitSize,
		FibHits:               c.FibHits.Load(),
		FibLookups:            c.FibLookups.Load(),
		FibSize:               fibSize,
		BytesReceived:         c.BytesReceived.Load(),
		BytesSent:             c.BytesSent.Load(),
		ProcessingTime:        c.processingTime.Snapshot(),
	}
}
