// Command ndnswitchd runs the NDN forwarder core (spec §1-§6) as a single
// process: it loads configuration, builds the CS/PIT/FIB tables and the
// forwarder state machine, starts the UDP fast-path listener and the QUIC
// session transport, and dispatches inbound packets between them. Grounded
// on fw/cmd/cmd.go and fw/cmd/yanfd/main.go's "load config, build core,
// block on signal" shape.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ndnswitch/core/clock"
	"github.com/ndnswitch/core/corecfg"
	"github.com/ndnswitch/core/corelog"
	"github.com/ndnswitch/core/face"
	"github.com/ndnswitch/core/fw"
	"github.com/ndnswitch/core/metrics"
	"github.com/ndnswitch/core/mgmt"
	"github.com/ndnswitch/core/ndnerr"
	"github.com/ndnswitch/core/pkt"
	"github.com/ndnswitch/core/session"
	ndnlog "github.com/ndnswitch/core/std/log"
	"github.com/ndnswitch/core/table"
)

type logModule string

func (m logModule) String() string { return string(m) }

const logMain logModule = "main"

var configPath string

// rootCmd is the single entry point; flags mirror the teacher's cobra
// setup (fw/cmd/cmd.go) but against corecfg.Config instead of yanfd's
// config package.
var rootCmd = &cobra.Command{
	Use:   "ndnswitchd",
	Short: "NDN forwarder core: CS/PIT/FIB, forwarder, session transport, face registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(configPath)
	},
}

func main() {
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "", "path to YAML config file (defaults used if omitted)")
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	cfg, err := corecfg.Load(configPath)
	if err != nil {
		return err
	}

	if lvl, err := ndnlog.ParseLevel(strings.ToUpper(cfg.LogLevel)); err == nil {
		corelog.SetLevel(lvl)
	}

	clk := clock.New()
	m := metrics.NewCounters()

	cs := table.NewCsTable(cfg.Tables.CsCapacity)
	cs.SetMetrics(m)
	pit := table.NewPitTable(cfg.Tables.PitCapacity)
	pit.SetMetrics(m)
	pit.SetNowFunc(clk.NowMs)
	fib := table.NewFibTable(cfg.Tables.FibCapacity)
	payload := table.NewMemoryPayloadStore()

	forwarder := fw.NewForwarder(cs, pit, fib, payload, m, clk)
	registry := face.NewRegistry(cfg.EventBufferSize)
	api := mgmt.NewAPI(cs, pit, fib, clk, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go dispatchEvents(ctx, forwarder, registry, m)

	if cfg.PitSweepIntervalMs > 0 {
		pit.StartSweeper(ctx, time.Duration(cfg.PitSweepIntervalMs)*time.Millisecond)
		corelog.Info(logMain, "pit sweeper started", "interval_ms", cfg.PitSweepIntervalMs)
	}

	if cfg.UDPListenAddr != "" {
		conn, err := listenUDP(cfg.UDPListenAddr)
		if err != nil {
			return err
		}
		defer conn.Close()
		go func() {
			if err := face.ListenUDPFastPath(conn, registry, pit, clk); err != nil {
				corelog.Warn(logMain, "udp listener stopped", "err", err)
			}
		}()
		corelog.Info(logMain, "udp fast-path listening", "addr", cfg.UDPListenAddr)
	}

	sessCfg, err := cfg.SessionConfig()
	if err != nil {
		return err
	}
	sessTr, err := session.NewTransport(sessCfg, registry, m)
	if err != nil {
		return err
	}
	defer sessTr.Close()
	if sessCfg.Mode == session.ModeServer || sessCfg.Mode == session.ModeDual {
		go func() {
			if err := sessTr.Serve(ctx); err != nil {
				corelog.Warn(logMain, "session transport stopped", "err", err)
			}
		}()
		corelog.Info(logMain, "session transport listening", "addr", cfg.SessionServerOptions.ListenAddr)
	}

	if cfg.WebTransport.ListenAddr != "" {
		wtOpts := session.WebTransportOptions{
			ListenAddr: cfg.WebTransport.ListenAddr,
			CertPath:   cfg.WebTransport.CertPath,
			KeyPath:    cfg.WebTransport.KeyPath,
			Path:       cfg.WebTransport.Path,
		}
		wtListener, err := session.NewWebTransportListener(wtOpts, registry, m)
		if err != nil {
			return err
		}
		go func() {
			if err := wtListener.Serve(ctx); err != nil {
				corelog.Warn(logMain, "webtransport listener stopped", "err", err)
			}
		}()
		corelog.Info(logMain, "webtransport listening", "addr", cfg.WebTransport.ListenAddr)
	}

	if cfg.WebSocket.ListenAddr != "" {
		wsOpts := face.WebSocketListenerOptions{
			ListenAddr: cfg.WebSocket.ListenAddr,
			TLSEnabled: cfg.WebSocket.TLSEnabled,
			CertPath:   cfg.WebSocket.CertPath,
			KeyPath:    cfg.WebSocket.KeyPath,
		}
		go func() {
			if err := face.ListenWebSocket(ctx, wsOpts, registry); err != nil {
				corelog.Warn(logMain, "websocket listener stopped", "err", err)
			}
		}()
		corelog.Info(logMain, "websocket listening", "addr", cfg.WebSocket.ListenAddr)
	}

	if cfg.Unix.SocketPath != "" {
		go func() {
			if err := face.ListenUnix(cfg.Unix.SocketPath, registry); err != nil {
				corelog.Warn(logMain, "unix listener stopped", "err", err)
			}
		}()
		corelog.Info(logMain, "unix socket listening", "path", cfg.Unix.SocketPath)
	}

	if cfg.MgmtHTTPAddr != "" {
		mux := http.NewServeMux()
		mgmt.NewHandler(api).Register(mux)
		srv := &http.Server{Addr: cfg.MgmtHTTPAddr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				corelog.Warn(logMain, "mgmt http server stopped", "err", err)
			}
		}()
		defer srv.Close()
		corelog.Info(logMain, "management http surface listening", "addr", cfg.MgmtHTTPAddr)
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	corelog.Info(logMain, "shutting down")
	return nil
}

// dispatchEvents drains the face registry's event stream and drives the
// forwarder state machine, re-encoding each resulting Decision and handing
// it back to the registry for delivery (spec §2's inbound data-flow:
// "face produces a packet buffer → codec parses → forwarder dispatches →
// tables mutated → zero or more outbound packets handed back to face
// registry → faces serialize via codec").
func dispatchEvents(ctx context.Context, f *fw.Forwarder, reg *face.Registry, m *metrics.Counters) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-reg.Events():
			if !ok {
				return
			}
			switch ev.Kind {
			case face.EventInterestReceived:
				interest, err := pkt.DecodeInterest(ev.RawPacket)
				if err != nil {
					corelog.Warn(logMain, "malformed interest dropped", "face_id", ev.FaceId, "err", err)
					continue
				}
				applyDecision(reg, m, f.OnInterest(interest, ev.FaceId))
			case face.EventDataReceived:
				data, err := pkt.DecodeData(ev.RawPacket)
				if err != nil {
					corelog.Warn(logMain, "malformed data dropped", "face_id", ev.FaceId, "err", err)
					continue
				}
				for _, dec := range f.OnData(data, ev.FaceId) {
					applyDecision(reg, m, dec)
				}
			case face.EventClosed, face.EventError:
				reg.Poll()
			}
		}
	}
}

func applyDecision(reg *face.Registry, m *metrics.Counters, dec fw.Decision) {
	switch dec.Kind {
	case fw.KindSatisfiedByCs, fw.KindForward:
		var payload []byte
		switch {
		case dec.Data != nil:
			payload = dec.Data.Encode()
		case dec.Interest != nil:
			payload = dec.Interest.Encode()
		}
		if payload != nil {
			if err := reg.Send(dec.OutFaceId, payload); err != nil {
				corelog.Warn(logMain, "send failed", "face_id", dec.OutFaceId, "err", err)
				return
			}
			if dec.Data != nil {
				m.DataSent.Add(1)
			}
		}
	case fw.KindDropped:
		corelog.Debug(logMain, "packet dropped", "reason", string(dec.Reason))
	}
}

// listenUDP is separated out so its net.ListenUDP/ResolveUDPAddr error
// paths are ConfigErrors (spec §7), same as any other bad startup option.
func listenUDP(addr string) (*net.UDPConn, error) {
	a, err := net.ResolveUDPAddr("udp", addr)
	if err != nil {
		return nil, ndnerr.ErrConfig{Msg: fmt.Sprintf("resolve udp addr %s: %v", addr, err)}
	}
	conn, err := net.ListenUDP("udp", a)
	if err != nil {
		return nil, ndnerr.ErrConfig{Msg: fmt.Sprintf("listen udp %s: %v", addr, err)}
	}
	return conn, nil
}
