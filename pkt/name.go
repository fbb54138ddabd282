package pkt

import (
	"strings"

	"github.com/ndnswitch/core/ndnerr"
)

// Component is a single opaque byte component of a Name. Per spec §3 each
// component is at most 255 bytes.
type Component struct {
	Val []byte
}

// Equal reports whether two components carry the same bytes.
func (c Component) Equal(o Component) bool {
	if len(c.Val) != len(o.Val) {
		return false
	}
	for i := range c.Val {
		if c.Val[i] != o.Val[i] {
			return false
		}
	}
	return true
}

// EncodingLength returns the number of bytes EncodeInto will write.
func (c Component) EncodingLength() int {
	return 1 + lengthSize(len(c.Val)) + len(c.Val)
}

// EncodeInto appends the component's TLV encoding to buf and returns the
// extended slice.
func (c Component) EncodeInto(buf []byte) []byte {
	buf = append(buf, TypeComponent)
	buf = encodeLength(buf, len(c.Val))
	buf = append(buf, c.Val...)
	return buf
}

// Name is an ordered sequence of opaque byte components (spec §3). The
// canonical textual form is "/c1/c2/.../cn"; empty segments from a leading
// or doubled '/' are discarded.
type Name []Component

// NameFromStr parses the canonical textual form of a Name. No component
// escaping is performed: each '/'-separated segment is taken verbatim as
// the component's raw bytes.
func NameFromStr(s string) (Name, error) {
	parts := strings.Split(s, "/")
	name := make(Name, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue // leading or doubled '/' produces an empty segment
		}
		if len(p) > maxComponentLen {
			return nil, ndnerr.ErrMalformedPacket{Reason: "name component exceeds 255 bytes"}
		}
		name = append(name, Component{Val: []byte(p)})
	}
	if len(name) > maxNameComponents {
		return nil, ndnerr.ErrMalformedPacket{Reason: "name exceeds 16 components"}
	}
	return name, nil
}

// String renders the canonical textual form of the Name.
func (n Name) String() string {
	if len(n) == 0 {
		return "/"
	}
	sb := strings.Builder{}
	for _, c := range n {
		sb.WriteByte('/')
		sb.Write(c.Val)
	}
	return sb.String()
}

// Equal reports componentwise equality.
func (n Name) Equal(o Name) bool {
	if len(n) != len(o) {
		return false
	}
	for i := range n {
		if !n[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// IsPrefixOf reports whether n is a prefix of o: len(n) <= len(o) and every
// component of n matches the corresponding component of o (spec §3).
func (n Name) IsPrefixOf(o Name) bool {
	if len(n) > len(o) {
		return false
	}
	for i := range n {
		if !n[i].Equal(o[i]) {
			return false
		}
	}
	return true
}

// Clone returns a Name sharing no backing storage with n.
func (n Name) Clone() Name {
	out := make(Name, len(n))
	for i, c := range n {
		out[i] = Component{Val: append([]byte(nil), c.Val...)}
	}
	return out
}

// EncodingLength returns the number of bytes the Name TLV will occupy.
func (n Name) EncodingLength() int {
	inner := 0
	for _, c := range n {
		inner += c.EncodingLength()
	}
	return 1 + lengthSize(inner) + inner
}

// EncodeInto appends the Name's TLV encoding (outer NAME TLV wrapping one
// COMPONENT TLV per component) to buf.
func (n Name) EncodeInto(buf []byte) []byte {
	inner := 0
	for _, c := range n {
		inner += c.EncodingLength()
	}
	buf = append(buf, TypeName)
	buf = encodeLength(buf, inner)
	for _, c := range n {
		buf = c.EncodeInto(buf)
	}
	return buf
}

// decodeNameValue decodes a sequence of COMPONENT TLVs out of val (the
// value portion of an already-consumed outer NAME TLV).
func decodeNameValue(val []byte) (Name, error) {
	r := newReader(val)
	name := make(Name, 0, 8)
	for !r.atEnd() {
		typ, cval, err := r.readTLV()
		if err != nil {
			return nil, err
		}
		if typ != TypeComponent {
			continue // unknown fields inside Name are skipped, e.g. future conventions
		}
		if len(cval) > maxComponentLen {
			return nil, ndnerr.ErrMalformedPacket{Reason: "name component exceeds 255 bytes"}
		}
		name = append(name, Component{Val: cval})
	}
	if len(name) > maxNameComponents {
		return nil, ndnerr.ErrMalformedPacket{Reason: "name exceeds 16 components"}
	}
	return name, nil
}

// fnv1a32 offset basis and prime, per spec §3.
const (
	fnvOffset32 uint32 = 2166136261
	fnvPrime32  uint32 = 16777619
)

// Hash returns the 32-bit FNV-1a hash over the concatenated component
// bytes of n (no separator, since component boundaries are already fixed
// by the TLV framing — spec §3). The kernel-side classifier must compute
// an identical hash so the shared tables align; see classifier package.
func (n Name) Hash() uint32 {
	h := fnvOffset32
	for _, c := range n {
		for _, b := range c.Val {
			h ^= uint32(b)
			h *= fnvPrime32
		}
	}
	return h
}

// PrefixHash returns the FNV-1a hash of the first k components of n. Used
// by the FIB's longest-prefix-match probe (spec §4.2), which must be able
// to compute the hash of every prefix of a name, not just the full name.
func (n Name) PrefixHash(k int) uint32 {
	h := fnvOffset32
	for _, c := range n[:k] {
		for _, b := range c.Val {
			h ^= uint32(b)
			h *= fnvPrime32
		}
	}
	return h
}
