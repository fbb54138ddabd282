package pkt

import (
	"encoding/binary"
	"math/rand"
	"time"

	"github.com/ndnswitch/core/ndnerr"
)

// Default values per spec §3.
const (
	DefaultInterestLifetimeMs uint32 = 4000
	DefaultHopLimit           uint8  = 32
)

// Interest is the pull-style request identifying a desired Name (spec §3).
type Interest struct {
	Name        Name
	Nonce       uint32
	LifetimeMs  uint32
	HopLimit    *uint8 // nil means absent on the wire
	CanBePrefix bool
	MustBeFresh bool
}

// NewInterest builds an Interest with spec defaults and a time-derived
// pseudo-random nonce (spec §3: "Nonce is initialized to a time-derived
// pseudo-random value; used to distinguish replays").
func NewInterest(name Name) *Interest {
	hl := DefaultHopLimit
	return &Interest{
		Name:       name,
		Nonce:      randNonce(),
		LifetimeMs: DefaultInterestLifetimeMs,
		HopLimit:   &hl,
	}
}

// randNonce seeds a nonce from wall-clock time, per spec §9's instruction
// that wall-clock time is reserved for nonce seeding only (never for
// CS/PIT expiry, which must use a monotonic clock).
func randNonce() uint32 {
	src := rand.New(rand.NewSource(time.Now().UnixNano()))
	return src.Uint32()
}

// EncodingLength returns the number of bytes Encode will produce.
func (i *Interest) EncodingLength() int {
	inner := i.Name.EncodingLength()
	inner += 1 + lengthSize(2) + 2    // Selectors
	inner += 1 + lengthSize(4) + 4    // Nonce
	inner += 1 + lengthSize(4) + 4    // Lifetime
	if i.HopLimit != nil {
		inner += 1 + lengthSize(1) + 1 // HopLimit
	}
	return 1 + lengthSize(inner) + inner
}

// Encode serializes the Interest to its TLV wire representation: an outer
// INTEREST TLV wrapping Name, Selectors, Nonce, Lifetime, and an optional
// HopLimit, in that order (spec §4.1).
func (i *Interest) Encode() []byte {
	inner := make([]byte, 0, i.EncodingLength())
	inner = i.Name.EncodeInto(inner)

	inner = append(inner, TypeSelectors)
	inner = encodeLength(inner, 2)
	inner = append(inner, boolByte(i.CanBePrefix), boolByte(i.MustBeFresh))

	inner = append(inner, TypeNonce)
	inner = encodeLength(inner, 4)
	inner = binary.BigEndian.AppendUint32(inner, i.Nonce)

	inner = append(inner, TypeInterestLifetime)
	inner = encodeLength(inner, 4)
	inner = binary.BigEndian.AppendUint32(inner, i.LifetimeMs)

	if i.HopLimit != nil {
		inner = append(inner, TypeHopLimit)
		inner = encodeLength(inner, 1)
		inner = append(inner, *i.HopLimit)
	}

	buf := make([]byte, 0, 1+lengthSize(len(inner))+len(inner))
	buf = append(buf, TypeInterest)
	buf = encodeLength(buf, len(inner))
	buf = append(buf, inner...)
	return buf
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}

// DecodeInterest parses an Interest from its TLV wire representation.
// Every length field is range-checked before consumption; malformed input
// returns ndnerr.ErrMalformedPacket and never panics (spec §4.1). Unknown
// TLVs inside the Interest are silently skipped for forward compatibility.
func DecodeInterest(buf []byte) (*Interest, error) {
	r := newReader(buf)
	typ, val, err := r.readTLV()
	if err != nil {
		return nil, err
	}
	if typ != TypeInterest {
		return nil, ndnerr.ErrMalformedPacket{Reason: "expected INTEREST TLV"}
	}

	inner := newReader(val)
	it := &Interest{LifetimeMs: DefaultInterestLifetimeMs}
	haveName := false

	for !inner.atEnd() {
		ftyp, fval, err := inner.readTLV()
		if err != nil {
			return nil, err
		}
		switch ftyp {
		case TypeName:
			name, err := decodeNameValue(fval)
			if err != nil {
				return nil, err
			}
			it.Name = name
			haveName = true
		case TypeSelectors:
			if len(fval) < 2 {
				return nil, ndnerr.ErrMalformedPacket{Reason: "selectors field too short"}
			}
			it.CanBePrefix = fval[0] != 0
			it.MustBeFresh = fval[1] != 0
		case TypeNonce:
			if len(fval) != 4 {
				return nil, ndnerr.ErrMalformedPacket{Reason: "nonce field must be 4 bytes"}
			}
			it.Nonce = binary.BigEndian.Uint32(fval)
		case TypeInterestLifetime:
			if len(fval) != 4 {
				return nil, ndnerr.ErrMalformedPacket{Reason: "lifetime field must be 4 bytes"}
			}
			it.LifetimeMs = binary.BigEndian.Uint32(fval)
		case TypeHopLimit:
			if len(fval) != 1 {
				return nil, ndnerr.ErrMalformedPacket{Reason: "hop limit field must be 1 byte"}
			}
			hl := fval[0]
			it.HopLimit = &hl
		default:
			// unrecognized TLV: skip for forward compatibility
		}
	}

	if !haveName {
		return nil, ndnerr.ErrMalformedPacket{Reason: "interest missing required Name"}
	}
	return it, nil
}
