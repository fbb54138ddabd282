package fw

import (
	"github.com/ndnswitch/core/ndnerr"
	"github.com/ndnswitch/core/pkt"
)

// FaceId matches the wire-shared u16 face identifier (spec §3).
type FaceId = uint16

// Kind classifies the outcome of one forwarder state-machine step (spec §4.3).
type Kind int

const (
	// KindSatisfiedByCs means a CS hit answered an Interest directly.
	KindSatisfiedByCs Kind = iota
	// KindForward means a packet should be sent out a next-hop face.
	KindForward
	// KindDropped means the packet was locally discarded; Reason explains why.
	KindDropped
)

// Decision is the forwarder's verdict for a single inbound packet, or (for
// Data arrival) one of possibly several verdicts — see Forwarder.OnData.
type Decision struct {
	Kind Kind

	// Valid when Kind == KindSatisfiedByCs or KindForward and the outbound
	// packet is Data.
	Data *pkt.Data
	// Valid when Kind == KindForward and the outbound packet is an Interest.
	Interest *pkt.Interest
	// Valid when Kind == KindSatisfiedByCs or KindForward: the face to emit
	// the outbound packet on.
	OutFaceId FaceId
	// Valid when Kind == KindDropped.
	Reason ndnerr.Dropped
}
