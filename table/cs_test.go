package table

import (
	"testing"

	"github.com/ndnswitch/core/metrics"
	"github.com/stretchr/testify/assert"
)

func TestCsGetMissOnEmptyTable(t *testing.T) {
	cs := NewCsTable(4)
	_, ok := cs.Get(CsKey{NameHash: 1, NameLen: 1}, 0)
	assert.False(t, ok)
	assert.Equal(t, uint64(1), cs.Counters().Misses)
}

func TestCsHitWithinTtl(t *testing.T) {
	cs := NewCsTable(4)
	key := CsKey{NameHash: 42, NameLen: 2}
	cs.Insert(key, CsRecord{ContentHash: 1, CreatedAtMs: 1000, ContentSize: 5, TtlMs: 60000})

	rec, ok := cs.Get(key, 1500)
	assert.True(t, ok)
	assert.Equal(t, uint64(1), rec.ContentHash)
	assert.Equal(t, uint64(1), cs.Counters().Hits)
}

func TestCsLazyExpiryOnRead(t *testing.T) {
	cs := NewCsTable(4)
	key := CsKey{NameHash: 42, NameLen: 2}
	cs.Insert(key, CsRecord{ContentHash: 1, CreatedAtMs: 1000, TtlMs: 500})

	_, ok := cs.Get(key, 2000) // age 1000 > ttl 500
	assert.False(t, ok)
	assert.Equal(t, uint64(0), cs.Counters().Size)
}

func TestCsLruEvictsOldestOnCapacityPressure(t *testing.T) {
	cs := NewCsTable(2)
	k1 := CsKey{NameHash: 1, NameLen: 1}
	k2 := CsKey{NameHash: 2, NameLen: 1}
	k3 := CsKey{NameHash: 3, NameLen: 1}

	cs.Insert(k1, CsRecord{TtlMs: 60000, CreatedAtMs: 0})
	cs.Insert(k2, CsRecord{TtlMs: 60000, CreatedAtMs: 0})
	// touch k1 so it becomes most-recently-used, leaving k2 as the LRU victim
	cs.Get(k1, 0)
	cs.Insert(k3, CsRecord{TtlMs: 60000, CreatedAtMs: 0})

	_, ok1 := cs.Get(k1, 0)
	_, ok2 := cs.Get(k2, 0)
	_, ok3 := cs.Get(k3, 0)
	assert.True(t, ok1)
	assert.False(t, ok2)
	assert.True(t, ok3)
	assert.Equal(t, uint64(1), cs.Counters().Evictions)
}

func TestCsEvictionBumpsSharedMetrics(t *testing.T) {
	cs := NewCsTable(1)
	m := metrics.NewCounters()
	cs.SetMetrics(m)

	cs.Insert(CsKey{NameHash: 1, NameLen: 1}, CsRecord{TtlMs: 60000})
	cs.Insert(CsKey{NameHash: 2, NameLen: 1}, CsRecord{TtlMs: 60000})

	assert.Equal(t, uint64(1), m.CsEvictions.Load())
}

func TestContentHashStableForEqualBytes(t *testing.T) {
	a := ContentHash([]byte("hello"))
	b := ContentHash([]byte("hello"))
	assert.Equal(t, a, b)
}

func TestMemoryPayloadStoreRefcounting(t *testing.T) {
	s := NewMemoryPayloadStore()
	h := ContentHash([]byte("hello"))
	s.Put(h, []byte("hello"))
	s.Put(h, []byte("hello")) // second reference

	s.Release(h)
	_, ok := s.Get(h)
	assert.True(t, ok, "still referenced once")

	s.Release(h)
	_, ok = s.Get(h)
	assert.False(t, ok, "released last reference")
}
