package session

import (
	"context"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/quic-go/quic-go"

	"github.com/ndnswitch/core/corelog"
	"github.com/ndnswitch/core/face"
	"github.com/ndnswitch/core/metrics"
	"github.com/ndnswitch/core/ndnerr"
	"github.com/ndnswitch/core/pkt"
)

// Transport is the session transport described in spec §4.4: it dials
// (Client/Dual) and/or listens (Server/Dual) for QUIC connections carrying
// NDN packets, registering one face per connection into the shared
// face.Registry. The forwarder and face registry never see a *Transport
// directly — only the face ids it registers (spec §9 weak references).
type Transport struct {
	cfg      Config
	registry *face.Registry
	metrics  *metrics.Counters
	waiters  *waiterTable

	mu       sync.Mutex
	listener *quic.Listener
	closed   atomic.Bool
}

// NewTransport validates cfg against its Mode and builds a Transport bound
// to registry (for face registration/events) and m (for
// bytes_sent/bytes_received/interests_sent/interests_timed_out). Use
// DefaultConfig() as a starting point rather than a bare Config{} literal.
func NewTransport(cfg Config, registry *face.Registry, m *metrics.Counters) (*Transport, error) {
	applyDefaults(&cfg)

	needsServer := cfg.Mode == ModeServer || cfg.Mode == ModeDual
	if needsServer && (cfg.ServerOptions.ListenAddr == "" || cfg.ServerOptions.CertPath == "" || cfg.ServerOptions.KeyPath == "") {
		return nil, ndnerr.ErrConfig{Msg: "session: server mode requires ListenAddr, CertPath, and KeyPath"}
	}

	return &Transport{
		cfg:      cfg,
		registry: registry,
		metrics:  m,
		waiters:  newWaiterTable(),
	}, nil
}

// Face is the caller-facing handle to one registered session connection:
// it can send raw packets (implicitly, via ExpressInterest) and correlate
// Data responses to outbound Interests. Obtained from Transport.Connect;
// connections accepted by Serve are registered in the face.Registry only,
// and no Face handle is returned for them.
type Face struct {
	Id face.Id

	t    *Transport
	sess *sessionFace
}

// Connect dials addr (Client/Dual mode only) and returns a Face once the
// QUIC/TLS handshake (including ALPN negotiation) completes (spec §4.4
// "A transport in Client/Dual mode exposes connect(addr) → face").
func (t *Transport) Connect(ctx context.Context, addr string) (*Face, error) {
	if t.cfg.Mode != ModeClient && t.cfg.Mode != ModeDual {
		return nil, ndnerr.ErrConfig{Msg: "session: Connect requires Client or Dual mode"}
	}

	tlsConf, err := clientTLSConfig(t.cfg.ClientOptions)
	if err != nil {
		return nil, err
	}
	quicConf := &quic.Config{
		MaxIdleTimeout:  t.cfg.ClientOptions.idleTimeout(),
		KeepAlivePeriod: t.cfg.ClientOptions.keepAlive(),
	}

	conn, err := quic.DialAddr(ctx, addr, tlsConf, quicConf)
	if err != nil {
		return nil, ndnerr.ErrNetwork{Msg: "connect to " + addr, Err: err}
	}

	return t.adopt(conn), nil
}

// Listen binds the Server/Dual-mode QUIC listener and returns its bound
// address, without yet accepting connections. Split out from Serve so
// callers (and tests) that need the ephemeral port chosen by ":0" can read
// it before the accept loop starts.
func (t *Transport) Listen() (net.Addr, error) {
	if t.cfg.Mode != ModeServer && t.cfg.Mode != ModeDual {
		return nil, ndnerr.ErrConfig{Msg: "session: Listen requires Server or Dual mode"}
	}

	tlsConf, err := serverTLSConfig(t.cfg.ServerOptions)
	if err != nil {
		return nil, err
	}
	quicConf := &quic.Config{
		MaxIdleTimeout:  t.cfg.ServerOptions.idleTimeout(),
		KeepAlivePeriod: t.cfg.ServerOptions.keepAlive(),
	}

	ln, err := quic.ListenAddr(t.cfg.ServerOptions.ListenAddr, tlsConf, quicConf)
	if err != nil {
		return nil, ndnerr.ErrNetwork{Msg: "listen on " + t.cfg.ServerOptions.ListenAddr, Err: err}
	}

	t.mu.Lock()
	t.listener = ln
	t.mu.Unlock()
	return ln.Addr(), nil
}

// Serve runs the Server/Dual-mode accept loop until ctx is cancelled or
// Close is called, calling Listen first if it has not already run. Each
// inbound QUIC connection becomes one registered face (spec §4.4 "The
// server accept loop produces one face per inbound connection").
func (t *Transport) Serve(ctx context.Context) error {
	t.mu.Lock()
	ln := t.listener
	t.mu.Unlock()
	if ln == nil {
		if _, err := t.Listen(); err != nil {
			return err
		}
		t.mu.Lock()
		ln = t.listener
		t.mu.Unlock()
	}

	for {
		conn, err := ln.Accept(ctx)
		if err != nil {
			if t.closed.Load() {
				return nil
			}
			return ndnerr.ErrNetwork{Msg: "accept", Err: err}
		}
		t.adopt(conn)
	}
}

// adopt registers a new QUIC connection (inbound or outbound) as a face and
// starts its accept loop.
func (t *Transport) adopt(conn *quic.Conn) *Face {
	sf := newSessionFace(quicConnAdapter{conn}, t.metrics, t.waiters)
	id := t.registry.Register(sf)
	go sf.acceptLoop(id, t.registry)
	corelog.Info(logSession, "session face established", "face_id", id, "remote", conn.RemoteAddr().String())
	return &Face{Id: id, t: t, sess: sf}
}

// ExpressInterest sends interest on this face and blocks until a matching
// Data arrives, timeout elapses, ctx is cancelled, or the face closes
// (spec §4.4, §8 scenario 4). A zero timeout selects the transport's
// configured InterestTimeoutMs default (4000ms absent other config).
func (f *Face) ExpressInterest(ctx context.Context, interest *pkt.Interest, timeout time.Duration) (*pkt.Data, error) {
	if timeout <= 0 {
		timeout = time.Duration(f.t.cfg.InterestTimeoutMs) * time.Millisecond
	}

	key := interest.Name.String()
	ch := f.t.waiters.register(key)

	if err := f.sess.Send(interest.Encode()); err != nil {
		f.t.waiters.cancel(key, ch)
		return nil, err
	}
	if f.t.metrics != nil {
		f.t.metrics.InterestsSent.Add(1)
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return res.data, nil
	case <-timer.C:
		f.t.waiters.cancel(key, ch)
		if f.t.metrics != nil {
			f.t.metrics.InterestsTimedOut.Add(1)
		}
		return nil, ndnerr.ErrTimeout{Name: key}
	case <-ctx.Done():
		f.t.waiters.cancel(key, ch)
		return nil, ctx.Err()
	}
}

// Close closes this face's underlying connection. Idempotent.
func (f *Face) Close() error {
	err := f.sess.Close()
	f.t.registry.Close(f.Id)
	return err
}

// Close tears down the transport: the listener (if any), every face in the
// shared face.Registry (Registry.CloseAll, which also closes faces that
// other front-ends registered there), and notifies every outstanding waiter with
// NetworkError("closed") (spec §4.4 "close() on the transport closes every
// face ... notifying every pending waiter with NetworkError(\"closed\")").
// Idempotent.
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}

	t.mu.Lock()
	ln := t.listener
	t.mu.Unlock()
	if ln != nil {
		_ = ln.Close()
	}

	t.registry.CloseAll()
	t.waiters.closeAll(ndnerr.ErrNetwork{Msg: "closed"})
	return nil
}
