package session

import (
	"context"
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
	"github.com/quic-go/webtransport-go"

	"github.com/ndnswitch/core/corelog"
	"github.com/ndnswitch/core/face"
	"github.com/ndnswitch/core/metrics"
	"github.com/ndnswitch/core/ndnerr"
)

// wtConnAdapter adapts *webtransport.Session to quicSession, so the exact
// same sessionFace/acceptLoop/handleStream framing code the native QUIC
// Transport uses also drives a browser-facing WebTransport session (spec
// §4.4 expanded "WebTransport peering": "only the listener accept loop
// differs").
type wtConnAdapter struct{ s *webtransport.Session }

func (a wtConnAdapter) OpenStreamSync(ctx context.Context) (quicStream, error) {
	return a.s.OpenStreamSync(ctx)
}

func (a wtConnAdapter) AcceptStream(ctx context.Context) (quicStream, error) {
	return a.s.AcceptStream(ctx)
}

func (a wtConnAdapter) RemoteAddr() net.Addr { return a.s.RemoteAddr() }

func (a wtConnAdapter) CloseWithError(code uint64, reason string) error {
	return a.s.CloseWithError(webtransport.SessionErrorCode(code), reason)
}

// WebTransportOptions configures the browser-facing session front-end (spec
// §6 expanded).
type WebTransportOptions struct {
	ListenAddr string
	CertPath   string
	KeyPath    string
	// Path is the HTTP path the WebTransport endpoint answers on;
	// defaults to "/ndn".
	Path string
}

// WebTransportListener is the additional, optional session front-end
// described in spec §4.4 expanded: it accepts HTTP/3 WebTransport sessions
// instead of native QUIC connections, but hands every accepted session to
// the same sessionFace framing/reassembly used by Transport, registering
// faces into the same face.Registry a native QUIC Transport shares.
type WebTransportListener struct {
	registry *face.Registry
	metrics  *metrics.Counters
	waiters  *waiterTable

	mux    *http.ServeMux
	server *webtransport.Server
}

// NewWebTransportListener builds a listener bound to registry. Faces
// accepted here correlate express_interest requests against their own
// waiter table, scoped to WebTransport-originated sessions only — a
// browser-facing face answering requests from this forwarder's peers is an
// unusual enough case that sharing one global waiter table with the native
// QUIC Transport would only add cross-front-end coupling no scenario here
// exercises.
func NewWebTransportListener(opts WebTransportOptions, registry *face.Registry, m *metrics.Counters) (*WebTransportListener, error) {
	if opts.ListenAddr == "" || opts.CertPath == "" || opts.KeyPath == "" {
		return nil, ndnerr.ErrConfig{Msg: "session: WebTransport listener requires ListenAddr, CertPath, and KeyPath"}
	}
	path := opts.Path
	if path == "" {
		path = "/ndn"
	}

	cert, err := tls.LoadX509KeyPair(opts.CertPath, opts.KeyPath)
	if err != nil {
		return nil, ndnerr.ErrConfig{Msg: "load cert: " + err.Error()}
	}

	l := &WebTransportListener{
		registry: registry,
		metrics:  m,
		waiters:  newWaiterTable(),
		mux:      http.NewServeMux(),
	}
	l.server = &webtransport.Server{
		H3: http3.Server{
			Addr: opts.ListenAddr,
			TLSConfig: &tls.Config{
				Certificates: []tls.Certificate{cert},
				MinVersion:   tls.VersionTLS12,
				NextProtos:   []string{ALPN},
			},
			QUICConfig: &quic.Config{
				MaxIdleTimeout:  DefaultIdleTimeoutMs * time.Millisecond,
				KeepAlivePeriod: DefaultKeepAliveMs * time.Millisecond,
			},
			Handler: l.mux,
		},
		CheckOrigin: func(r *http.Request) bool { return true },
	}
	l.mux.HandleFunc(path, l.handler)
	return l, nil
}

func (l *WebTransportListener) handler(w http.ResponseWriter, r *http.Request) {
	sess, err := l.server.Upgrade(w, r)
	if err != nil {
		corelog.Warn(logSession, "webtransport upgrade failed", "err", err)
		return
	}

	sf := newSessionFace(wtConnAdapter{sess}, l.metrics, l.waiters)
	id := l.registry.Register(sf)
	go sf.acceptLoop(id, l.registry)
	corelog.Info(logSession, "webtransport face established", "face_id", id)
}

// Serve blocks, running the HTTP/3 server until ctx is cancelled or Close
// is called.
func (l *WebTransportListener) Serve(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		_ = l.Close()
	}()

	err := l.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Close shuts the HTTP/3 server down, closing every WebTransport session it
// has accepted.
func (l *WebTransportListener) Close() error {
	return l.server.Close()
}
