// Package table implements the three canonical NDN tables — Content
// Store, Pending Interest Table, and Forwarding Information Base — plus
// the payload store backing CS content bytes (spec §3, §4.2).
//
// Struct and getter naming (baseCsEntry, basePitEntry, FibNextHopEntry) follows
// the convention fixed by the teacher's own fw/table/*_test.go, generalized
// here from the teacher's per-face-aggregating PIT model to the simpler
// per-nonce model spec.md requires (see DESIGN.md).
package table

import (
	"container/list"
	"sync"
	"sync/atomic"

	"github.com/ndnswitch/core/metrics"
)

// CsKey identifies a Content Store slot (spec §3).
type CsKey struct {
	NameHash uint32
	NameLen  int
}

// CsRecord is the CS value (spec §3). The actual content bytes are not
// stored here; they live in a PayloadStore addressed by ContentHash.
type CsRecord struct {
	ContentHash  uint64
	CreatedAtMs  uint64
	ContentSize  uint32
	TtlMs        uint32
}

// baseCsEntry is the CS table's internal slot: the record plus its
// position in the LRU access list.
type baseCsEntry struct {
	key    CsKey
	record CsRecord
	elem   *list.Element
}

// Index returns the entry's name hash, matching the teacher's
// baseCsEntry.Index() getter convention.
func (e *baseCsEntry) Index() uint32 {
	return e.key.NameHash
}

// CsCounters mirrors the subset of the §6 metrics surface a CS instance
// can report about itself: cs_hits, cs_misses, cs_inserts, cs_evictions,
// cs_size.
type CsCounters struct {
	Hits      uint64
	Misses    uint64
	Inserts   uint64
	Evictions uint64
	Size      uint64
}

// CsTable is the bounded, approximate-LRU Content Store (spec §3, §4.2).
const DefaultCsCapacity = 4096

type CsTable struct {
	mu       sync.Mutex
	capacity int
	entries  map[CsKey]*baseCsEntry
	lru      *list.List // front = most recently used

	hits      atomic.Uint64
	misses    atomic.Uint64
	inserts   atomic.Uint64
	evictions atomic.Uint64

	// metrics, if set, is bumped alongside this table's own counters above
	// so the spec §6 cs_evictions counter reflects the same LRU evictions
	// CsStats() reports (see SetMetrics).
	metrics *metrics.Counters
}

// SetMetrics wires m so every LRU eviction this table performs also bumps
// m.CsEvictions, bridging this table's own counters into the shared
// metrics surface the management API's /metrics endpoint reads.
func (cs *CsTable) SetMetrics(m *metrics.Counters) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.metrics = m
}

// NewCsTable constructs a CS with the given capacity (0 means
// DefaultCsCapacity).
func NewCsTable(capacity int) *CsTable {
	if capacity <= 0 {
		capacity = DefaultCsCapacity
	}
	return &CsTable{
		capacity: capacity,
		entries:  make(map[CsKey]*baseCsEntry, capacity),
		lru:      list.New(),
	}
}

// Get looks up (name_hash, name_len). A record found but expired is
// treated as absent and purged (spec §4.2's lazy-expiry-on-read rule).
// must_be_fresh needs no separate check here: spec §4.3 defines it as
// "the CS record's ttl_ms is the maximum serve age from its own
// ingestion time", which is exactly the expiry test below, so a fresh
// record and a non-expired record are the same thing in this model.
func (cs *CsTable) Get(key CsKey, nowMs uint64) (CsRecord, bool) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	e, ok := cs.entries[key]
	if !ok {
		cs.misses.Add(1)
		return CsRecord{}, false
	}

	age := nowMs - e.record.CreatedAtMs
	if age > uint64(e.record.TtlMs) {
		// expired: lazily purge on read
		cs.removeLocked(key)
		cs.misses.Add(1)
		return CsRecord{}, false
	}

	cs.lru.MoveToFront(e.elem)
	cs.hits.Add(1)
	return e.record, true
}

// Insert admits a Data record into the CS, evicting the least-recently-used
// entry if the table is at capacity and the key is new. Bumps cs_inserts.
func (cs *CsTable) Insert(key CsKey, rec CsRecord) {
	cs.mu.Lock()
	defer cs.mu.Unlock()

	if e, ok := cs.entries[key]; ok {
		e.record = rec
		cs.lru.MoveToFront(e.elem)
		cs.inserts.Add(1)
		return
	}

	if len(cs.entries) >= cs.capacity {
		cs.evictOldestLocked()
	}

	e := &baseCsEntry{key: key, record: rec}
	e.elem = cs.lru.PushFront(key)
	cs.entries[key] = e
	cs.inserts.Add(1)
}

// Remove deletes the entry for key, if present.
func (cs *CsTable) Remove(key CsKey) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	cs.removeLocked(key)
}

func (cs *CsTable) removeLocked(key CsKey) {
	if e, ok := cs.entries[key]; ok {
		cs.lru.Remove(e.elem)
		delete(cs.entries, key)
	}
}

// evictOldestLocked evicts the least-recently-used entry. Called with
// cs.mu held and len(cs.entries) >= cs.capacity.
func (cs *CsTable) evictOldestLocked() {
	back := cs.lru.Back()
	if back == nil {
		return
	}
	key := back.Value.(CsKey)
	cs.lru.Remove(back)
	delete(cs.entries, key)
	cs.evictions.Add(1)
	if cs.metrics != nil {
		cs.metrics.CsEvictions.Add(1)
	}
}

// Capacity returns the table's configured capacity.
func (cs *CsTable) Capacity() int {
	return cs.capacity
}

// Counters returns a snapshot of this CS instance's counters.
func (cs *CsTable) Counters() CsCounters {
	cs.mu.Lock()
	size := uint64(len(cs.entries))
	cs.mu.Unlock()
	return CsCounters{
		Hits:      cs.hits.Load(),
		Misses:    cs.misses.Load(),
		Inserts:   cs.inserts.Load(),
		Evictions: cs.evictions.Load(),
		Size:      size,
	}
}
