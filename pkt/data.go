package pkt

import (
	"encoding/binary"
	"time"

	"github.com/ndnswitch/core/ndnerr"
)

// Data is the response packet carrying bytes for a Name (spec §3).
// CreatedAt is local and never transmitted; expiry is
// now - CreatedAt > TtlMs.
type Data struct {
	Name      Name
	Content   []byte
	TtlMs     uint32
	CreatedAt time.Time // monotonic instant, local only
}

// Expired reports whether the Data has aged past its TTL as of now.
func (d *Data) Expired(now time.Time) bool {
	return now.Sub(d.CreatedAt) > time.Duration(d.TtlMs)*time.Millisecond
}

// EncodingLength returns the number of bytes Encode will produce.
func (d *Data) EncodingLength() int {
	inner := d.Name.EncodingLength()
	inner += 1 + lengthSize(len(d.Content)) + len(d.Content)
	inner += 1 + lengthSize(4) + 4 // freshness/ttl
	return 1 + lengthSize(inner) + inner
}

// Encode serializes the Data to its TLV wire representation: an outer
// DATA TLV wrapping Name then Content (spec §4.1), plus a ttl_ms hint
// TLV (TypeFreshness) so the ttl_ms field round-trips through encode/decode
// as required by the codec's testable properties (spec §8). CreatedAt is
// never transmitted.
func (d *Data) Encode() []byte {
	inner := make([]byte, 0, d.EncodingLength())
	inner = d.Name.EncodeInto(inner)

	inner = append(inner, TypeContent)
	inner = encodeLength(inner, len(d.Content))
	inner = append(inner, d.Content...)

	inner = append(inner, TypeFreshness)
	inner = encodeLength(inner, 4)
	inner = binary.BigEndian.AppendUint32(inner, d.TtlMs)

	buf := make([]byte, 0, 1+lengthSize(len(inner))+len(inner))
	buf = append(buf, TypeData)
	buf = encodeLength(buf, len(inner))
	buf = append(buf, inner...)
	return buf
}

// DecodeData parses a Data packet from its TLV wire representation.
// CreatedAt is set to the current monotonic time at decode, since it is
// never carried on the wire. Unknown TLVs are silently skipped.
func DecodeData(buf []byte) (*Data, error) {
	r := newReader(buf)
	typ, val, err := r.readTLV()
	if err != nil {
		return nil, err
	}
	if typ != TypeData {
		return nil, ndnerr.ErrMalformedPacket{Reason: "expected DATA TLV"}
	}

	inner := newReader(val)
	d := &Data{CreatedAt: time.Now()}
	haveName := false
	haveContent := false

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
			d.Name = name
			haveName = true
		case TypeContent:
			d.Content = fval
			haveContent = true
		case TypeFreshness:
			if len(fval) != 4 {
				return nil, ndnerr.ErrMalformedPacket{Reason: "freshness field must be 4 bytes"}
			}
			d.TtlMs = binary.BigEndian.Uint32(fval)
		default:
			// unrecognized TLV (e.g. a Signature block): skip
		}
	}

	if !haveName || !haveContent {
		return nil, ndnerr.ErrMalformedPacket{Reason: "data missing required Name or Content"}
	}
	return d, nil
}
