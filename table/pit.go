package table

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ndnswitch/core/metrics"
	"github.com/ndnswitch/core/table/internal/pq"
)

// PitNameKey groups PIT entries that share a name_hash/name_len, which is
// how a Data packet (with no nonce) must enumerate all waiting Interests
// on arrival (spec §4.3 "On Data arrival").
type PitNameKey struct {
	NameHash uint32
	NameLen  int
}

// PitKey identifies a single pending Interest (spec §3). PIT uniqueness is
// scoped to this full key, not just the name: two distinct nonces for the
// same name are two distinct PIT entries, unlike the teacher's own
// per-face-aggregating PIT (see DESIGN.md for why that model isn't reused
// here — spec.md's explicit key includes the nonce).
type PitKey struct {
	NameHash uint32
	NameLen  int
	Nonce    uint32
}

// PitRecord is the PIT value (spec §3). This is the first of the two
// competing layouts the original sources shipped (spec §9 Open Question),
// chosen because it carries the lifetime needed for expiry.
type PitRecord struct {
	IngressFaceId      uint16
	CreatedAtMs        uint64
	LifetimeMs         uint32
	NameComponentCount uint8
}

// basePitEntry is the PIT table's internal slot.
type basePitEntry struct {
	key    PitKey
	record PitRecord
	elem   *list.Element
}

// PitCounters mirrors pit_inserts, pit_matches, pit_expirations, pit_size.
type PitCounters struct {
	Inserts     uint64
	Matches     uint64
	Expirations uint64
	Size        uint64
}

// DefaultPitCapacity is the PIT's bounded capacity (spec §3).
const DefaultPitCapacity = 2048

// PitTable is the bounded, LRU-evicted, lifetime-expiring Pending
// Interest Table (spec §3, §4.2).
type PitTable struct {
	mu       sync.Mutex
	capacity int
	entries  map[PitKey]*basePitEntry
	byName   map[PitNameKey]map[uint32]*basePitEntry // secondary index for Data-side fan-out
	lru      *list.List

	// expiry orders every live key by created_at_ms+lifetime_ms so
	// StartSweeper can pop expired entries in O(log n) instead of scanning
	// the whole table (spec §4.2 expanded "LRU bookkeeping"). Entries
	// removed via Remove/MatchData/eviction are left in the heap and
	// skipped as stale when popped, rather than removed in place.
	expiry pq.Queue[PitKey, uint64]

	// nowFunc is the sweeper's time source. Defaults to a locally-anchored
	// monotonic clock; callers that also drive PIT lifetime math from a
	// shared clock.Clock (e.g. cmd/ndnswitchd) must call SetNowFunc with
	// that same clock's NowMs, or the sweeper's idea of "now" drifts from
	// the epoch CreatedAtMs values were stamped against.
	nowFunc func() uint64

	inserts     atomic.Uint64
	matches     atomic.Uint64
	expirations atomic.Uint64

	// metrics, if set, is bumped alongside p.expirations above so the
	// spec §6 pit_expirations counter reflects both lazy
	// expiry-on-read (Get/MatchData) and the background sweeper (see
	// SetMetrics).
	metrics *metrics.Counters
}

// SetMetrics wires m so every PIT expiry this table performs (whether
// found lazily on read or by the background sweeper) also bumps
// m.PitExpirations.
func (p *PitTable) SetMetrics(m *metrics.Counters) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.metrics = m
}

// NewPitTable constructs a PIT with the given capacity (0 means
// DefaultPitCapacity).
func NewPitTable(capacity int) *PitTable {
	if capacity <= 0 {
		capacity = DefaultPitCapacity
	}
	start := time.Now()
	return &PitTable{
		capacity: capacity,
		entries:  make(map[PitKey]*basePitEntry, capacity),
		byName:   make(map[PitNameKey]map[uint32]*basePitEntry),
		lru:      list.New(),
		expiry:   pq.New[PitKey, uint64](),
		nowFunc:  func() uint64 { return uint64(time.Since(start).Milliseconds()) },
	}
}

// SetNowFunc overrides the sweeper's time source. Callers whose
// CreatedAtMs values are stamped from a shared clock (rather than this
// table's own locally-anchored default) must call this with that same
// clock's NowMs before starting the sweeper, so expiry comparisons share
// one epoch.
func (p *PitTable) SetNowFunc(f func() uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.nowFunc = f
}

// isExpiredLocked reports logical expiry: now - created_at_ms > lifetime_ms.
func isExpiredLocked(rec PitRecord, nowMs uint64) bool {
	return nowMs-rec.CreatedAtMs > uint64(rec.LifetimeMs)
}

// bumpExpiredLocked records one PIT expiry against both this table's own
// counters and (if wired) the shared metrics surface.
func (p *PitTable) bumpExpiredLocked() {
	p.expirations.Add(1)
	if p.metrics != nil {
		p.metrics.PitExpirations.Add(1)
	}
}

// Get reports whether a live (non-expired) PIT entry exists for key. A
// found-but-expired record is purged on read, same as the CS (spec §4.2).
func (p *PitTable) Get(key PitKey, nowMs uint64) (PitRecord, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[key]
	if !ok {
		return PitRecord{}, false
	}
	if isExpiredLocked(e.record, nowMs) {
		p.removeLocked(key)
		p.bumpExpiredLocked()
		return PitRecord{}, false
	}
	return e.record, true
}

// Insert adds a new PIT entry. The caller (the forwarder) is responsible
// for the duplicate check (spec §4.3 step 3) before calling Insert;
// Insert itself only enforces uniqueness defensively and evicts the LRU
// victim under capacity pressure.
func (p *PitTable) Insert(key PitKey, rec PitRecord) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if _, ok := p.entries[key]; ok {
		return // already present: forwarder should have rejected as duplicate
	}

	if len(p.entries) >= p.capacity {
		p.evictOldestLocked()
	}

	e := &basePitEntry{key: key, record: rec}
	e.elem = p.lru.PushFront(key)
	p.entries[key] = e

	nk := PitNameKey{NameHash: key.NameHash, NameLen: key.NameLen}
	if p.byName[nk] == nil {
		p.byName[nk] = make(map[uint32]*basePitEntry)
	}
	p.byName[nk][key.Nonce] = e

	p.expiry.Push(key, rec.CreatedAtMs+uint64(rec.LifetimeMs))
	p.inserts.Add(1)
}

// Remove deletes the entry for key, if present.
func (p *PitTable) Remove(key PitKey) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.removeLocked(key)
}

func (p *PitTable) removeLocked(key PitKey) {
	e, ok := p.entries[key]
	if !ok {
		return
	}
	p.lru.Remove(e.elem)
	delete(p.entries, key)

	nk := PitNameKey{NameHash: key.NameHash, NameLen: key.NameLen}
	if byNonce, ok := p.byName[nk]; ok {
		delete(byNonce, key.Nonce)
		if len(byNonce) == 0 {
			delete(p.byName, nk)
		}
	}
}

func (p *PitTable) evictOldestLocked() {
	back := p.lru.Back()
	if back == nil {
		return
	}
	key := back.Value.(PitKey)
	p.lru.Remove(back)
	delete(p.entries, key)

	nk := PitNameKey{NameHash: key.NameHash, NameLen: key.NameLen}
	if byNonce, ok := p.byName[nk]; ok {
		delete(byNonce, key.Nonce)
		if len(byNonce) == 0 {
			delete(p.byName, nk)
		}
	}
}

// MatchData enumerates and removes every live PIT record sharing
// (name_hash, name_len), regardless of nonce (spec §4.3 "On Data
// arrival"). Returns the matched records (caller forwards Data to each
// record's ingress face) and bumps pit_matches by the match count.
func (p *PitTable) MatchData(nk PitNameKey, nowMs uint64) []PitRecord {
	p.mu.Lock()
	defer p.mu.Unlock()

	byNonce, ok := p.byName[nk]
	if !ok || len(byNonce) == 0 {
		return nil
	}

	out := make([]PitRecord, 0, len(byNonce))
	for nonce, e := range byNonce {
		key := PitKey{NameHash: nk.NameHash, NameLen: nk.NameLen, Nonce: nonce}
		if isExpiredLocked(e.record, nowMs) {
			p.removeLocked(key)
			p.bumpExpiredLocked()
			continue
		}
		out = append(out, e.record)
		p.removeLocked(key)
	}

	if len(out) > 0 {
		p.matches.Add(uint64(len(out)))
	}
	return out
}

// StartSweeper runs a background goroutine that pops expired entries off
// the expiry heap every interval, until ctx is cancelled (spec §4.2
// expanded "LRU bookkeeping": "the sweep goroutine is off by default... and
// can be started via table.PitTable.StartSweeper(ctx, interval)"). Off by
// default: lazy expiry-on-read (Get/MatchData) is sufficient correctness-
// wise: the sweeper only reclaims memory for entries nothing ever reads
// again before their lifetime elapses.
func (p *PitTable) StartSweeper(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.sweepExpired()
			}
		}
	}()
}

// sweepExpired pops every heap entry whose deadline has passed, discarding
// stale entries (already removed via Remove/MatchData/eviction) and
// purging the rest exactly like a lazy expiry-on-read would.
func (p *PitTable) sweepExpired() {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := p.nowFunc()
	for p.expiry.Len() > 0 && p.expiry.PeekPriority() <= now {
		key := p.expiry.Pop()
		e, ok := p.entries[key]
		if !ok {
			continue // stale: already removed by Remove/MatchData/eviction
		}
		if !isExpiredLocked(e.record, now) {
			continue // stale priority from a key reused after removal+reinsert
		}
		p.removeLocked(key)
		p.bumpExpiredLocked()
	}
}

// Counters returns a snapshot of this PIT instance's counters.
func (p *PitTable) Counters() PitCounters {
	p.mu.Lock()
	size := uint64(len(p.entries))
	p.mu.Unlock()
	return PitCounters{
		Inserts:     p.inserts.Load(),
		Matches:     p.matches.Load(),
		Expirations: p.expirations.Load(),
		Size:        size,
	}
}
