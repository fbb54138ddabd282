package table

import (
	"sync"
	"sync/atomic"

	"github.com/ndnswitch/core/ndnerr"
	"github.com/ndnswitch/core/pkt"
)

// FibKey identifies a FIB route by the hash and length of the prefix it
// was registered under (spec §3). Two routes can never tie on length
// because the key includes it, so the operator's most recent insertion
// for a given key always wins (spec §4.2).
type FibKey struct {
	PrefixHash uint32
	PrefixLen  int
}

// FibNextHopEntry is the FIB value (spec §3), named to match the
// teacher's fw/table/fib-strategy_test.go getters.
type FibNextHopEntry struct {
	Nexthop uint16 // next_hop_face_id
	Cost    uint8
}

// FibCounters mirrors fib_hits, fib_lookups, fib_size.
type FibCounters struct {
	Hits    uint64
	Lookups uint64
	Size    uint64
}

// DefaultFibCapacity is the FIB's bounded capacity (spec §3). Unlike
// CS/PIT there is no implicit eviction: entries are operator-managed.
const DefaultFibCapacity = 1024

// FibTable is the longest-prefix-match routing table (spec §3, §4.2).
type FibTable struct {
	mu       sync.RWMutex
	capacity int
	entries  map[FibKey]FibNextHopEntry

	hits    atomic.Uint64
	lookups atomic.Uint64
}

// NewFibTable constructs a FIB with the given capacity (0 means
// DefaultFibCapacity).
func NewFibTable(capacity int) *FibTable {
	if capacity <= 0 {
		capacity = DefaultFibCapacity
	}
	return &FibTable{
		capacity: capacity,
		entries:  make(map[FibKey]FibNextHopEntry, capacity),
	}
}

// Add registers a route. Returns ErrCapacityExceeded if the table is full
// and key is new (spec §6 fib.add).
func (f *FibTable) Add(key FibKey, faceId uint16, cost uint8) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, exists := f.entries[key]; !exists && len(f.entries) >= f.capacity {
		return ndnerr.ErrCapacityExceeded{Table: "fib"}
	}
	f.entries[key] = FibNextHopEntry{Nexthop: faceId, Cost: cost}
	return nil
}

// Remove deletes the route for key. Idempotent: removing a missing key is
// not an error at this layer (spec §6 fib.remove tolerates NotFound).
func (f *FibTable) Remove(key FibKey) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.entries, key)
}

// get performs a single exact-match probe. Exposed at package level for
// tests; production code should use Lookup.
func (f *FibTable) get(key FibKey) (FibNextHopEntry, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	v, ok := f.entries[key]
	return v, ok
}

// Lookup performs the longest-prefix-match probe described in spec §4.2:
// given a Name of length k, probe (hash(N[0..k]), k), (hash(N[0..k-1]),
// k-1), ..., (hash([]), 0) in that order and return the first hit. The
// FIB itself never walks a trie; it only computes the candidate hashes
// (which it must, since the table stores exact matches only) and asks
// for an exact match at each one.
func (f *FibTable) Lookup(name pkt.Name) (FibNextHopEntry, bool) {
	f.lookups.Add(1)
	for k := len(name); k >= 0; k-- {
		key := FibKey{PrefixHash: name.PrefixHash(k), PrefixLen: k}
		if v, ok := f.get(key); ok {
			f.hits.Add(1)
			return v, true
		}
	}
	return FibNextHopEntry{}, false
}

// Counters returns a snapshot of this FIB instance's counters.
func (f *FibTable) Counters() FibCounters {
	f.mu.RLock()
	size := uint64(len(f.entries))
	f.mu.RUnlock()
	return FibCounters{
		Hits:    f.hits.Load(),
		Lookups: f.lookups.Load(),
		Size:    size,
	}
}
