package face

import (
	"fmt"
	"net"

	"github.com/ndnswitch/core/classifier"
	"github.com/ndnswitch/core/clock"
	"github.com/ndnswitch/core/corelog"
	"github.com/ndnswitch/core/table"
)

// maxUdpPacketSize bounds a single read per spec's IPv6 UDP carriage
// (generous enough for a fragmented-content Interest/Data still well
// under the session transport's own 1000-byte chunking hint, since the
// UDP path carries a whole packet per datagram, not chunks).
const maxUdpPacketSize = 65507

// UDPTransport is the fast-path face kind (spec §1, §3): NDN Interest and
// Data packets carried directly inside UDP/IPv6 datagrams, one packet per
// datagram, with no session-transport framing. Adapted from
// fw/face/unicast-udp-transport.go's connected-socket send/receive shape.
type UDPTransport struct {
	conn *net.UDPConn
	peer *net.UDPAddr
}

// NewUDPTransport wraps a UDP socket already connected (or about to be
// used with WriteToUDP) to a specific peer address.
func NewUDPTransport(conn *net.UDPConn, peer *net.UDPAddr) *UDPTransport {
	return &UDPTransport{conn: conn, peer: peer}
}

func (t *UDPTransport) String() string {
	return fmt.Sprintf("udp-transport(peer=%s)", t.peer)
}

// Send writes packet as a single UDP datagram to the peer.
func (t *UDPTransport) Send(packet []byte) error {
	_, err := t.conn.WriteToUDP(packet, t.peer)
	return err
}

// Close is a no-op for a single peer's logical transport: the listening
// socket itself is owned and closed by whoever passed it to ListenUDP /
// ListenUDPFastPath, not by an individual face, since one UDP socket serves
// every peer.
func (t *UDPTransport) Close() error {
	return nil
}

// ListenUDP runs the fast-path UDP receive loop: one face per distinct
// peer address is registered on first sight, and every subsequent
// datagram from that address is delivered as a raw packet event. Blocks
// until conn is closed or a fatal read error occurs.
func ListenUDP(conn *net.UDPConn, registry *Registry) error {
	return ListenUDPFastPath(conn, registry, nil, nil)
}

// ListenUDPFastPath is ListenUDP with the classifier's cheap (name_hash,
// nonce) pre-check wired in ahead of the full forwarder pipeline (spec §1
// "a kernel classifier ... is assumed as a peer"; §4.3 footnote): a
// datagram that parses as an Interest already duplicated in pit is dropped
// right here, before a pkt.Interest is ever allocated. pit/clk may be nil
// to disable the pre-check (plain ListenUDP behavior); Data datagrams and
// malformed Interests always fall through to the ordinary dispatch path,
// since the classifier only ever short-circuits a confirmed duplicate.
func ListenUDPFastPath(conn *net.UDPConn, registry *Registry, pit *table.PitTable, clk *clock.Clock) error {
	peers := make(map[string]Id)
	buf := make([]byte, maxUdpPacketSize)

	for {
		n, addr, err := conn.ReadFromUDP(buf)
		if err != nil {
			return err
		}

		key := addr.String()
		id, ok := peers[key]
		if !ok {
			id = registry.Register(NewUDPTransport(conn, addr))
			peers[key] = id
			corelog.Info(logFace, "udp face discovered", "face_id", id, "peer", key)
		}

		if pit != nil && n > 0 && buf[0] == wireTypeInterest {
			if dup, err := classifier.FastPathDuplicateCheck(pit, buf[:n], clk.NowMs()); err == nil && dup {
				corelog.Debug(logFace, "duplicate interest dropped at fast path", "face_id", id)
				continue
			}
		}

		packet := make([]byte, n)
		copy(packet, buf[:n])
		registry.Deliver(id, EventInterestReceived, packet)
	}
}
