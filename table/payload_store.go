package table

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// ContentHash addresses a Data's payload bytes in the PayloadStore. This
// is deliberately a different hash than the wire-visible FNV-1a name hash
// (pkt.Name.Hash): it indexes payload bytes, never crosses the kernel
// boundary, and has no compatibility requirement with a kernel peer, so
// xxhash — the fast general-purpose hash the teacher reaches for whenever
// it isn't the wire-format name hash (std/encoding/component.go's
// Component.Hash) — is the natural fit (spec §5, §3 "content_hash").
func ContentHash(content []byte) uint64 {
	return xxhash.Sum64(content)
}

// PayloadStore is the reference-counted byte store backing CS content, as
// described in spec §5: "CS stores only content metadata in the map; the
// actual bytes live in a separate reference-counted store addressed by
// content_hash."
type PayloadStore interface {
	// Put stores data under contentHash, incrementing its reference count
	// if already present instead of duplicating storage.
	Put(contentHash uint64, data []byte)
	// Get returns the bytes for contentHash, if still retained.
	Get(contentHash uint64) ([]byte, bool)
	// Release drops one reference; the bytes are freed once the count
	// reaches zero.
	Release(contentHash uint64)
}

type memoryPayloadEntry struct {
	data []byte
	refs int
}

// MemoryPayloadStore is the default in-process PayloadStore.
type MemoryPayloadStore struct {
	mu      sync.Mutex
	entries map[uint64]*memoryPayloadEntry
}

// NewMemoryPayloadStore constructs an empty in-memory payload store.
func NewMemoryPayloadStore() *MemoryPayloadStore {
	return &MemoryPayloadStore{
		entries: make(map[uint64]*memoryPayloadEntry),
	}
}

func (s *MemoryPayloadStore) Put(contentHash uint64, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[contentHash]; ok {
		e.refs++
		return
	}
	s.entries[contentHash] = &memoryPayloadEntry{data: data, refs: 1}
}

func (s *MemoryPayloadStore) Get(contentHash uint64) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[contentHash]
	if !ok {
		return nil, false
	}
	return e.data, true
}

func (s *MemoryPayloadStore) Release(contentHash uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[contentHash]
	if !ok {
		return
	}
	e.refs--
	if e.refs <= 0 {
		delete(s.entries, contentHash)
	}
}
