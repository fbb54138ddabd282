package classifier

import (
	"testing"

	"github.com/ndnswitch/core/pkt"
	"github.com/ndnswitch/core/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyMatchesFullDecode(t *testing.T) {
	name, err := pkt.NameFromStr("/a/b/c")
	require.NoError(t, err)
	interest := pkt.NewInterest(name)
	interest.Nonce = 0xDEADBEEF

	wire := interest.Encode()

	res, err := Classify(wire)
	require.NoError(t, err)
	assert.Equal(t, name.Hash(), res.NameHash)
	assert.Equal(t, len(name), res.NameLen)
	assert.Equal(t, interest.Nonce, res.Nonce)
}

func TestClassifyRejectsTruncatedInput(t *testing.T) {
	_, err := Classify([]byte{0x05})
	assert.Error(t, err)
}

func TestClassifyRejectsWrongOuterType(t *testing.T) {
	_, err := Classify([]byte{0x06, 0x00})
	assert.Error(t, err)
}

func TestFastPathDuplicateCheckDetectsExistingPit(t *testing.T) {
	name, _ := pkt.NameFromStr("/dup")
	interest := pkt.NewInterest(name)
	interest.Nonce = 7
	wire := interest.Encode()

	pit := table.NewPitTable(4)
	dup, err := FastPathDuplicateCheck(pit, wire, 0)
	require.NoError(t, err)
	assert.False(t, dup, "no PIT entry yet")

	pit.Insert(table.PitKey{NameHash: name.Hash(), NameLen: len(name), Nonce: 7},
		table.PitRecord{IngressFaceId: 1, CreatedAtMs: 0, LifetimeMs: 4000})

	dup, err = FastPathDuplicateCheck(pit, wire, 0)
	require.NoError(t, err)
	assert.True(t, dup)
}
