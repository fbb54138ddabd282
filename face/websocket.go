package face

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/ndnswitch/core/corelog"
)

// maxWebSocketPacketSize bounds a single inbound message; one binary
// WebSocket message already carries exactly one NDN packet, so there is no
// reassembly to do (unlike the Unix-stream face kind).
const maxWebSocketPacketSize = 65535

// WebSocketTransport is the browser-reachable face kind described in spec
// §4.5 expanded "Additional face kinds", adapted from
// fw/face/web-socket-transport.go: one registered face per upgraded
// connection, one binary message per packet.
type WebSocketTransport struct {
	conn *websocket.Conn
}

func (t *WebSocketTransport) String() string {
	return fmt.Sprintf("websocket-transport(remote=%s)", t.conn.RemoteAddr())
}

// Send writes packet as a single binary WebSocket message.
func (t *WebSocketTransport) Send(packet []byte) error {
	return t.conn.WriteMessage(websocket.BinaryMessage, packet)
}

// Close closes the underlying WebSocket connection. Idempotent from the
// registry's point of view: a second call only re-observes gorilla's own
// already-closed error, which the caller discards.
func (t *WebSocketTransport) Close() error {
	return t.conn.Close()
}

// WebSocketListenerOptions configures ListenWebSocket (spec §4.5 expanded).
type WebSocketListenerOptions struct {
	ListenAddr string
	TLSEnabled bool
	CertPath   string
	KeyPath    string
}

// ListenWebSocket runs an HTTP(S) server that upgrades every inbound
// request at "/ndn" to a WebSocket connection, registers it as a face, and
// runs a receive loop for it until the socket closes. Blocks until ctx is
// cancelled or a fatal listen error occurs, adapted from
// fw/face/web-socket-listener.go's upgrade-then-run-link-service shape.
func ListenWebSocket(ctx context.Context, opts WebSocketListenerOptions, registry *Registry) error {
	upgrader := websocket.Upgrader{
		WriteBufferPool: &sync.Pool{},
		CheckOrigin:     func(r *http.Request) bool { return true },
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/ndn", func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			corelog.Warn(logFace, "websocket upgrade failed", "err", err)
			return
		}
		t := &WebSocketTransport{conn: conn}
		id := registry.Register(t)
		corelog.Info(logFace, "websocket face established", "face_id", id, "remote", conn.RemoteAddr().String())
		go runWebSocketReceive(id, registry, t)
	})

	server := &http.Server{Addr: opts.ListenAddr, Handler: mux}
	go func() {
		<-ctx.Done()
		_ = server.Shutdown(context.Background())
	}()

	var err error
	if opts.TLSEnabled {
		server.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
		err = server.ListenAndServeTLS(opts.CertPath, opts.KeyPath)
	} else {
		err = server.ListenAndServe()
	}
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// runWebSocketReceive reads one binary message per NDN packet until the
// connection errors or closes, delivering each to the registry.
func runWebSocketReceive(id Id, registry *Registry, t *WebSocketTransport) {
	defer registry.Close(id)

	for {
		mt, message, err := t.conn.ReadMessage()
		if err != nil {
			return
		}
		if mt != websocket.BinaryMessage {
			corelog.Warn(logFace, "websocket ignored non-binary message", "face_id", id)
			continue
		}
		if len(message) > maxWebSocketPacketSize {
			corelog.Warn(logFace, "websocket message exceeds max packet size", "face_id", id)
			continue
		}
		registry.Deliver(id, EventInterestReceived, message)
	}
}
