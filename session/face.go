package session

import (
	"context"
	"fmt"
	"io"
	"net"
	"sync/atomic"

	"github.com/quic-go/quic-go"

	"github.com/ndnswitch/core/corelog"
	"github.com/ndnswitch/core/face"
	"github.com/ndnswitch/core/metrics"
	"github.com/ndnswitch/core/ndnerr"
	"github.com/ndnswitch/core/pkt"
)

// logModule implements corelog.Module for this package's log lines.
type logModule string

func (m logModule) String() string { return string(m) }

const logSession logModule = "session"

// quicStream is the common substream shape both a native QUIC stream and a
// WebTransport stream satisfy: enough to write one outbound packet and
// close the send side, or read one inbound packet to EOF.
type quicStream interface {
	io.Reader
	io.Writer
	Close() error
}

// quicSession is the common session shape sessionFace drives, satisfied by
// a *quic.Conn (native session transport) and a *webtransport.Session
// (session/webtransport.go's browser-facing front-end), via the
// quicConnAdapter/wtConnAdapter wrappers — both front-ends share this one
// per-packet substream framing/reassembly implementation (spec §4.4
// expanded "WebTransport peering": "only the listener accept loop
// differs").
type quicSession interface {
	OpenStreamSync(ctx context.Context) (quicStream, error)
	AcceptStream(ctx context.Context) (quicStream, error)
	RemoteAddr() net.Addr
	CloseWithError(code uint64, reason string) error
}

// quicConnAdapter adapts *quic.Conn to quicSession.
type quicConnAdapter struct{ c *quic.Conn }

func (a quicConnAdapter) OpenStreamSync(ctx context.Context) (quicStream, error) {
	return a.c.OpenStreamSync(ctx)
}

func (a quicConnAdapter) AcceptStream(ctx context.Context) (quicStream, error) {
	return a.c.AcceptStream(ctx)
}

func (a quicConnAdapter) RemoteAddr() net.Addr { return a.c.RemoteAddr() }

func (a quicConnAdapter) CloseWithError(code uint64, reason string) error {
	return a.c.CloseWithError(quic.ApplicationErrorCode(code), reason)
}

// sessionFace is one session (native QUIC or WebTransport) between two NDN
// nodes, registered into a face.Registry as an ordinary face.Transport
// (spec §4.5 weak reference discipline: the registry is the sole strong
// owner; this type and the waiterTable only ever resolve back to it
// through face ids). It implements the per-packet substream framing
// described in spec §4.4: one fresh bidirectional stream per outbound
// packet, closed-send-side termination, reassembly by concatenation on
// read.
type sessionFace struct {
	sess    quicSession
	metrics *metrics.Counters
	waiters *waiterTable
	closed  atomic.Bool
}

func newSessionFace(sess quicSession, m *metrics.Counters, w *waiterTable) *sessionFace {
	return &sessionFace{sess: sess, metrics: m, waiters: w}
}

func (f *sessionFace) String() string {
	return fmt.Sprintf("session-face(remote=%s)", f.sess.RemoteAddr())
}

// Send opens a new bidirectional stream, writes packet chunked into
// maxChunkSize-sized writes (a transmission hint only per spec §4.4), then
// closes the send side so the peer's reader observes end-of-frame.
func (f *sessionFace) Send(packet []byte) error {
	if f.closed.Load() {
		return ndnerr.ErrNetwork{Msg: "face closed"}
	}

	stream, err := f.sess.OpenStreamSync(context.Background())
	if err != nil {
		return ndnerr.ErrNetwork{Msg: "open stream", Err: err}
	}

	for off := 0; off < len(packet); off += maxChunkSize {
		end := min(off+maxChunkSize, len(packet))
		if _, err := stream.Write(packet[off:end]); err != nil {
			stream.Close()
			return ndnerr.ErrNetwork{Msg: "write stream", Err: err}
		}
	}
	if err := stream.Close(); err != nil {
		return ndnerr.ErrNetwork{Msg: "close stream", Err: err}
	}

	if f.metrics != nil {
		f.metrics.BytesSent.Add(uint64(len(packet)))
	}
	return nil
}

// Close tears down the underlying QUIC connection. Idempotent.
func (f *sessionFace) Close() error {
	if !f.closed.CompareAndSwap(false, true) {
		return nil
	}
	return f.sess.CloseWithError(0, "")
}

// acceptLoop runs for the lifetime of the connection, accepting one
// substream per inbound packet, reassembling, decoding, and dispatching
// each (spec §4.4). reg.Deliver surfaces the raw packet to the forwarder's
// event stream regardless of waiter correlation, per spec §4.4's "a late
// Data for a removed waiter is silently dropped by the session (the
// forwarder may still admit it to CS via the ordinary Data path)".
func (f *sessionFace) acceptLoop(id face.Id, reg *face.Registry) {
	for {
		stream, err := f.sess.AcceptStream(context.Background())
		if err != nil {
			// Connection closed or errored: surface as a face close.
			f.Close()
			reg.Close(id)
			return
		}
		go f.handleStream(id, reg, stream)
	}
}

// handleStream reassembles one substream into a complete packet by
// concatenating every chunk read before the peer closes its send side
// (spec §4.4). A malformed frame closes the substream but does not tear
// down the session.
func (f *sessionFace) handleStream(id face.Id, reg *face.Registry, stream quicStream) {
	raw, err := io.ReadAll(stream)
	if err != nil {
		corelog.Warn(logSession, "substream read failed", "face_id", id, "err", err)
		stream.Close()
		return
	}
	if len(raw) == 0 {
		return
	}

	if f.metrics != nil {
		f.metrics.BytesReceived.Add(uint64(len(raw)))
	}

	switch raw[0] {
	case pkt.TypeData:
		data, err := pkt.DecodeData(raw)
		if err != nil {
			corelog.Warn(logSession, "malformed Data frame", "face_id", id, "err", err)
			stream.Close()
			return
		}
		f.waiters.fulfil(data)
		reg.Deliver(id, face.EventDataReceived, raw)
	case pkt.TypeInterest:
		if _, err := pkt.DecodeInterest(raw); err != nil {
			corelog.Warn(logSession, "malformed Interest frame", "face_id", id, "err", err)
			stream.Close()
			return
		}
		reg.Deliver(id, face.EventInterestReceived, raw)
	default:
		corelog.Warn(logSession, "unknown frame type", "face_id", id, "type", raw[0])
		stream.Close()
	}
}
