// Package mgmt implements the Management API (spec §6): table-level
// contracts (fib.add/remove/lookup, cs.stats, pit.insert/get/remove)
// exposed first as a plain Go API, then (expanded scope) as a local-only
// HTTP control surface. Grounded in *style* on fw/mgmt/cs.go's verb
// dispatch and counters-aggregation shape — not in data model, since that
// file manages CS state over NFD's own NDN management protocol
// (mgmt_2022.ControlArgs carried inside Interest names under
// /localhost/cs), a protocol this core does not implement (see
// DESIGN.md). The HTTP surface here plays the same "verb → handler,
// decode control args, return a status struct" role, just over HTTP
// instead of NDN Interests.
package mgmt

import (
	"github.com/ndnswitch/core/clock"
	"github.com/ndnswitch/core/metrics"
	"github.com/ndnswitch/core/ndnerr"
	"github.com/ndnswitch/core/pkt"
	"github.com/ndnswitch/core/table"
)

// logModule implements corelog.Module for this package's log lines.
type logModule string

func (m logModule) String() string { return string(m) }

const logMgmt logModule = "mgmt"

// API is the in-process management surface described in spec §6. It
// never touches a face or the forwarder's decision logic — only tables.
type API struct {
	Cs  *table.CsTable
	Pit *table.PitTable
	Fib *table.FibTable

	// Clk is shared with the Forwarder so a pit.get issued through this
	// API compares against the same "now" that wrote the record (spec §9).
	Clk *clock.Clock

	// Metrics is the same Counters instance the Forwarder and session
	// transport write into, so MetricsSnapshot() can read a live snapshot
	// of the full spec §6 metrics surface rather than just the CS/PIT/FIB
	// counters above.
	Metrics *metrics.Counters
}

// NewAPI builds a management API over the given tables, sharing clk with
// the Forwarder driving the same tables.
func NewAPI(cs *table.CsTable, pit *table.PitTable, fib *table.FibTable, clk *clock.Clock, m *metrics.Counters) *API {
	if clk == nil {
		clk = clock.New()
	}
	return &API{Cs: cs, Pit: pit, Fib: fib, Clk: clk, Metrics: m}
}

// MetricsSnapshot returns a point-in-time read of every spec §6 counter, gauge-
// augmented with the tables' own current sizes (spec §6 "/metrics").
func (a *API) MetricsSnapshot() metrics.Snapshot {
	return a.Metrics.Snapshot(a.Cs.Counters().Size, a.Pit.Counters().Size, a.Fib.Counters().Size)
}

// FibAdd registers prefix → faceId at the given cost (spec §6 "fib.add").
func (a *API) FibAdd(prefix pkt.Name, faceId uint16, cost uint8) error {
	key := table.FibKey{PrefixHash: prefix.Hash(), PrefixLen: len(prefix)}
	return a.Fib.Add(key, faceId, cost)
}

// FibRemove removes prefix's route, if any (spec §6 "fib.remove";
// idempotent — NotFound is tolerated by never being returned here).
func (a *API) FibRemove(prefix pkt.Name) {
	key := table.FibKey{PrefixHash: prefix.Hash(), PrefixLen: len(prefix)}
	a.Fib.Remove(key)
}

// FibEntry is the value half of a fib.lookup result.
type FibEntry struct {
	NextHopFaceId uint16
	Cost          uint8
}

// FibLookup performs the longest-prefix-match probe (spec §6 "fib.lookup").
func (a *API) FibLookup(name pkt.Name) (FibEntry, error) {
	hop, ok := a.Fib.Lookup(name)
	if !ok {
		return FibEntry{}, ndnerr.ErrNotFound{Key: "fib:" + name.String()}
	}
	return FibEntry{NextHopFaceId: hop.Nexthop, Cost: hop.Cost}, nil
}

// CsStatsResult is the "cs.stats()" return value (spec §6): hits,
// inserts, capacity, and an approximate (not exact, per spec §9's note on
// constrained map iteration) current size.
type CsStatsResult struct {
	Hits            uint64
	Inserts         uint64
	Capacity        int
	ApproximateSize uint64
}

// CsStats reports the current Content Store statistics.
func (a *API) CsStats() CsStatsResult {
	c := a.Cs.Counters()
	return CsStatsResult{
		Hits:            c.Hits,
		Inserts:         c.Inserts,
		Capacity:        a.Cs.Capacity(),
		ApproximateSize: c.Size,
	}
}

// PitInsert inserts a PIT record (spec §6 "pit.insert", honouring the
// uniqueness invariant — the caller is still responsible for the
// forwarder's duplicate-check-before-insert ordering; this call alone
// will not overwrite an existing entry, matching table.PitTable.Insert).
func (a *API) PitInsert(name pkt.Name, nonce uint32, rec table.PitRecord) {
	key := table.PitKey{NameHash: name.Hash(), NameLen: len(name), Nonce: nonce}
	a.Pit.Insert(key, rec)
}

// PitGet reports the live PIT record for (name, nonce), if any.
func (a *API) PitGet(name pkt.Name, nonce uint32, nowMs uint64) (table.PitRecord, error) {
	key := table.PitKey{NameHash: name.Hash(), NameLen: len(name), Nonce: nonce}
	rec, ok := a.Pit.Get(key, nowMs)
	if !ok {
		return table.PitRecord{}, ndnerr.ErrNotFound{Key: "pit:" + name.String()}
	}
	return rec, nil
}

// PitRemove deletes the PIT record for (name, nonce), if present.
func (a *API) PitRemove(name pkt.Name, nonce uint32) {
	key := table.PitKey{NameHash: name.Hash(), NameLen: len(name), Nonce: nonce}
	a.Pit.Remove(key)
}
