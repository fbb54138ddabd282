// Package classifier implements the fast-path packet classifier (spec
// §1, §4.3 footnote, §9): given a raw UDP payload carrying an Interest, it
// extracts (name_hash, nonce) without running the full TLV decoder, so a
// PIT duplicate check can happen before paying for a complete pkt.Interest
// allocation. The same extraction is meant to be mirrored by a kernel-side
// peer (spec §1 "a kernel classifier that shares the same table layouts
// is assumed as a peer"), so the hash algorithm here must exactly match
// pkt.Name.Hash.
package classifier

import (
	"encoding/binary"

	"github.com/ndnswitch/core/ndnerr"
	"github.com/ndnswitch/core/table"
)

// Wire type/length-prefix bytes, duplicated from pkt rather than imported:
// the whole point of this package is to avoid paying for pkt's full
// component-slice-allocating decode on the fast path.
const (
	typeInterest byte = 0x05
	typeName     byte = 0x07
	typeComponent byte = 0x08
	typeNonce    byte = 0x0A

	fnvOffset32 uint32 = 2166136261
	fnvPrime32  uint32 = 16777619
)

// Result is the minimal fast-path extraction from an Interest's wire bytes.
type Result struct {
	NameHash uint32
	NameLen  int
	Nonce    uint32
}

// readLength mirrors pkt's size-prefix scheme (§4.1): <253 one byte; 253
// then 2-byte BE; 254 then 4-byte BE; 255 reserved.
func readLength(buf []byte, pos int) (length int, next int, ok bool) {
	if pos >= len(buf) {
		return 0, 0, false
	}
	b := buf[pos]
	switch {
	case b < 253:
		return int(b), pos + 1, true
	case b == 253:
		if pos+3 > len(buf) {
			return 0, 0, false
		}
		return int(binary.BigEndian.Uint16(buf[pos+1 : pos+3])), pos + 3, true
	case b == 254:
		if pos+5 > len(buf) {
			return 0, 0, false
		}
		return int(binary.BigEndian.Uint32(buf[pos+1 : pos+5])), pos + 5, true
	default: // 255 reserved
		return 0, 0, false
	}
}

// Classify extracts (name_hash, name_len, nonce) from buf, an encoded
// Interest (spec §4.1: outer INTEREST TLV wrapping Name, Selectors, Nonce,
// Lifetime, optional HopLimit — in that fixed order). It walks only the
// Name and Nonce fields, hashing component bytes as it goes without
// materializing pkt.Name/pkt.Component values, and stops as soon as both
// are found. This is NOT the kernel's own implementation, only the
// userspace mirror of its hash computation.
//
// Rejected design (spec §9 Open Question): a kernel classifier could
// instead read a fixed 4-byte offset of the Name's first component as a
// cheap pseudo-hash. That placeholder is explicitly not used here, since
// it would silently diverge from pkt.Name.Hash's full FNV-1a for any name
// whose distinguishing bytes fall outside that fixed offset (e.g. two
// interests sharing a long common first component) — userspace and a real
// kernel peer must compute the identical hash for the shared tables to
// agree, so the fast path has to walk every component byte exactly like
// Name.Hash does, not take a shortcut.
func Classify(buf []byte) (Result, error) {
	pos := 0
	typ, end, ok := readTLVHeader(buf, pos)
	if !ok || typ != typeInterest {
		return Result{}, ndnerr.ErrMalformedPacket{Reason: "classifier: expected INTEREST TLV"}
	}
	inner := buf[end.valueStart:end.valueEnd]

	var (
		haveName, haveNonce bool
		res                 Result
	)
	ipos := 0
	for ipos < len(inner) && !(haveName && haveNonce) {
		ftyp, fend, ok := readTLVHeader(inner, ipos)
		if !ok {
			return Result{}, ndnerr.ErrMalformedPacket{Reason: "classifier: truncated field"}
		}
		switch ftyp {
		case typeName:
			hash, nameLen, err := hashNameValue(inner[fend.valueStart:fend.valueEnd])
			if err != nil {
				return Result{}, err
			}
			res.NameHash = hash
			res.NameLen = nameLen
			haveName = true
		case typeNonce:
			if fend.valueEnd-fend.valueStart != 4 {
				return Result{}, ndnerr.ErrMalformedPacket{Reason: "classifier: nonce must be 4 bytes"}
			}
			res.Nonce = binary.BigEndian.Uint32(inner[fend.valueStart:fend.valueEnd])
			haveNonce = true
		}
		ipos = fend.valueEnd
	}

	if !haveName {
		return Result{}, ndnerr.ErrMalformedPacket{Reason: "classifier: interest missing Name"}
	}
	return res, nil
}

type tlvSpan struct {
	valueStart int
	valueEnd   int
}

// readTLVHeader reads one type byte plus length prefix starting at pos and
// returns the field's type and the span of its value within buf.
func readTLVHeader(buf []byte, pos int) (typ byte, span tlvSpan, ok bool) {
	if pos >= len(buf) {
		return 0, tlvSpan{}, false
	}
	typ = buf[pos]
	length, next, ok := readLength(buf, pos+1)
	if !ok || next+length > len(buf) {
		return 0, tlvSpan{}, false
	}
	return typ, tlvSpan{valueStart: next, valueEnd: next + length}, true
}

// hashNameValue hashes every COMPONENT TLV's bytes within val (the value
// portion of a NAME TLV) using the same FNV-1a-no-separator algorithm as
// pkt.Name.Hash, returning the hash and the component count.
func hashNameValue(val []byte) (hash uint32, nameLen int, err error) {
	h := fnvOffset32
	pos := 0
	for pos < len(val) {
		typ, span, ok := readTLVHeader(val, pos)
		if !ok {
			return 0, 0, ndnerr.ErrMalformedPacket{Reason: "classifier: truncated component"}
		}
		if typ == typeComponent {
			for _, b := range val[span.valueStart:span.valueEnd] {
				h ^= uint32(b)
				h *= fnvPrime32
			}
			nameLen++
		}
		pos = span.valueEnd
	}
	return h, nameLen, nil
}

// FastPathDuplicateCheck performs the classifier's one useful table
// interaction (spec §1: "the classifier feeds keys to the tables"): given
// a raw Interest payload and the live PIT, it reports whether an entry
// already exists for the extracted (name_hash, name_len, nonce) — letting
// a UDP face reject an obvious duplicate before the full forwarder
// pipeline ever allocates a pkt.Interest.
func FastPathDuplicateCheck(pit *table.PitTable, buf []byte, nowMs uint64) (isDuplicate bool, err error) {
	res, err := Classify(buf)
	if err != nil {
		return false, err
	}
	key := table.PitKey{NameHash: res.NameHash, NameLen: res.NameLen, Nonce: res.Nonce}
	_, found := pit.Get(key, nowMs)
	return found, nil
}
