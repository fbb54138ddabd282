// Package clock provides the single monotonic millisecond clock shared by
// the forwarder, tables, and management API, so that CS/PIT timestamps
// written by one component remain comparable to "now" read by another
// (spec §9: "monotonic instant ... reserved for CS/PIT expiry", distinct
// from the wall-clock source used only to seed Interest nonces).
package clock

import "time"

// Clock produces monotonically non-decreasing milliseconds since an
// arbitrary start point, for use as CS/PIT created_at_ms/now_ms values.
type Clock struct {
	start time.Time
}

// New builds a Clock anchored to the current time.
func New() *Clock {
	return &Clock{start: time.Now()}
}

// NowMs returns milliseconds elapsed since the clock was constructed.
func (c *Clock) NowMs() uint64 {
	return uint64(time.Since(c.start).Milliseconds())
}
