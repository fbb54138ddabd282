package pkt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNameFromStrDiscardsEmptySegments(t *testing.T) {
	n, err := NameFromStr("//a//b/")
	require.NoError(t, err)
	assert.Equal(t, "/a/b", n.String())
}

func TestNameIsPrefixOf(t *testing.T) {
	a, _ := NameFromStr("/a")
	ab, _ := NameFromStr("/a/b")
	assert.True(t, a.IsPrefixOf(ab))
	assert.False(t, ab.IsPrefixOf(a))
	assert.True(t, a.IsPrefixOf(a))
}

func TestNameHashStableAcrossEqualNames(t *testing.T) {
	a, _ := NameFromStr("/x/y")
	b, _ := NameFromStr("/x/y")
	assert.Equal(t, a.Hash(), b.Hash())
}

func TestNamePrefixHashMatchesTruncatedName(t *testing.T) {
	full, _ := NameFromStr("/a/b/c")
	prefix, _ := NameFromStr("/a/b")
	assert.Equal(t, prefix.Hash(), full.PrefixHash(2))
}

func TestInterestRoundTrip(t *testing.T) {
	name, _ := NameFromStr("/a/b")
	it := NewInterest(name)
	it.CanBePrefix = true
	it.MustBeFresh = true

	wire := it.Encode()
	got, err := DecodeInterest(wire)
	require.NoError(t, err)

	assert.True(t, got.Name.Equal(it.Name))
	assert.Equal(t, it.Nonce, got.Nonce)
	assert.Equal(t, it.LifetimeMs, got.LifetimeMs)
	assert.Equal(t, it.CanBePrefix, got.CanBePrefix)
	assert.Equal(t, it.MustBeFresh, got.MustBeFresh)
	require.NotNil(t, got.HopLimit)
	assert.Equal(t, *it.HopLimit, *got.HopLimit)

	// re-encoding the decoded Interest must reproduce the same wire bytes
	assert.Equal(t, wire, got.Encode())
}

func TestInterestWithoutHopLimit(t *testing.T) {
	name, _ := NameFromStr("/a")
	it := &Interest{Name: name, Nonce: 7, LifetimeMs: 4000}
	wire := it.Encode()
	got, err := DecodeInterest(wire)
	require.NoError(t, err)
	assert.Nil(t, got.HopLimit)
}

func TestDataRoundTrip(t *testing.T) {
	name, _ := NameFromStr("/a/b")
	d := &Data{
		Name:      name,
		Content:   []byte("hello"),
		TtlMs:     60000,
		CreatedAt: time.Now(),
	}
	wire := d.Encode()
	got, err := DecodeData(wire)
	require.NoError(t, err)

	assert.True(t, got.Name.Equal(d.Name))
	assert.Equal(t, d.Content, got.Content)
	assert.Equal(t, d.TtlMs, got.TtlMs)
	// CreatedAt is never transmitted
	assert.NotEqual(t, d.CreatedAt, got.CreatedAt)
}

func TestDataFragmentedLargeContentRoundTrip(t *testing.T) {
	name, _ := NameFromStr("/big")
	content := make([]byte, 9500)
	for i := range content {
		content[i] = byte(i % 251)
	}
	d := &Data{Name: name, Content: content, TtlMs: 1000, CreatedAt: time.Now()}
	wire := d.Encode()
	got, err := DecodeData(wire)
	require.NoError(t, err)
	assert.Equal(t, content, got.Content)
}

func TestDecodeMalformedTruncatedLengthNeverPanics(t *testing.T) {
	_, err := DecodeInterest([]byte{TypeInterest, 253, 0x01})
	assert.Error(t, err)
}

func TestDecodeRejectsReservedLengthMarker(t *testing.T) {
	_, err := DecodeInterest([]byte{TypeInterest, 255})
	assert.Error(t, err)
}

func TestDecodeRejectsLengthExceedingBuffer(t *testing.T) {
	_, err := DecodeInterest([]byte{TypeInterest, 100, 1, 2, 3})
	assert.Error(t, err)
}

func TestDecodeUnknownTLVInsideInterestIsSkipped(t *testing.T) {
	name, _ := NameFromStr("/a")
	it := &Interest{Name: name, Nonce: 1, LifetimeMs: 4000}
	inner := make([]byte, 0)
	inner = it.Name.EncodeInto(inner)
	// unknown field (type 0xEE) inserted before the rest
	inner = append(inner, 0xEE)
	inner = encodeLength(inner, 3)
	inner = append(inner, 9, 9, 9)
	inner = append(inner, TypeNonce)
	inner = encodeLength(inner, 4)
	inner = append(inner, 0, 0, 0, 1)
	inner = append(inner, TypeInterestLifetime)
	inner = encodeLength(inner, 4)
	inner = append(inner, 0, 0, 0x0f, 0xa0)

	buf := make([]byte, 0)
	buf = append(buf, TypeInterest)
	buf = encodeLength(buf, len(inner))
	buf = append(buf, inner...)

	got, err := DecodeInterest(buf)
	require.NoError(t, err)
	assert.True(t, got.Name.Equal(name))
	assert.Equal(t, uint32(1), got.Nonce)
	assert.Equal(t, uint32(4000), got.LifetimeMs)
}
