// Package session implements the session transport: a reliable bidirectional
// peer session that carries opaque NDN packets between two forwarder nodes,
// over either native QUIC (Transport) or WebTransport/HTTP/3
// (WebTransportListener). Both open a fresh framed substream per outbound
// packet, reassemble inbound chunks into complete packets, and correlate
// Data responses back to express_interest waiters by name; sessionFace
// implements that framing once against the quicSession/quicStream
// interfaces, and quicConnAdapter/wtConnAdapter each satisfy quicSession for
// their respective transport.
//
// Grounded on fw/face/http3-listener.go and fw/face/http3-transport.go for
// the quic-go TLS/ALPN/QUIC-config shape, generalized from a datagram-only
// WebTransport session (unreliable HTTP/3 datagrams) to a stream-per-packet
// design on both transports, since reliable per-packet framing and
// request/response correlation need an ordered stream, not a datagram.
package session

import "time"

// Mode selects which role(s) a Transport plays (spec §4.4).
type Mode int

const (
	ModeClient Mode = iota
	ModeServer
	ModeDual
)

// ALPN is the fixed protocol identifier negotiated on every QUIC connection
// (spec §4.4). A peer that does not negotiate it is rejected.
const ALPN = "ndn1"

// DefaultPort is the default UDP listen port for the session transport.
const DefaultPort = 6367

// Default timing and sizing constants (spec §4.4).
const (
	DefaultIdleTimeoutMs    = 30_000
	DefaultKeepAliveMs      = 5_000
	DefaultInterestTimeoutMs = 4_000
	DefaultEventBufferSize  = 1024
	// maxChunkSize bounds each write during outbound framing. This is a
	// transmission hint only: the receiver reassembles by concatenating
	// everything read before the send side closes, regardless of how the
	// sender chunked it (spec §4.4).
	maxChunkSize = 1000
)

// ServerOptions configures the Server/Dual-mode listening side.
type ServerOptions struct {
	ListenAddr     string `yaml:"listen_addr"` // host:port; empty host binds all interfaces
	CertPath       string `yaml:"cert_path"`
	KeyPath        string `yaml:"key_path"`
	IdleTimeoutMs  int    `yaml:"idle_timeout_ms"`
	KeepAliveMs    int    `yaml:"keep_alive_ms"`
	MaxConnections int    `yaml:"max_connections"`
}

// ClientOptions configures the Client/Dual-mode dialing side.
type ClientOptions struct {
	CaCertPath        string `yaml:"ca_cert_path"` // empty uses the system trust store
	IdleTimeoutMs     int    `yaml:"idle_timeout_ms"`
	KeepAliveMs       int    `yaml:"keep_alive_ms"`
	VerifyCertificate bool   `yaml:"verify_certificate"` // false only for test-only skip-verify mode
}

// Config is the transport's full configuration (spec §6 "Configuration
// options (transport)"). Any timeout, event buffer size or interest timeout
// left at its zero value takes the documented default via
// DefaultConfig/applyDefaults; ClientOptions.VerifyCertificate is the
// exception (see DefaultConfig).
type Config struct {
	Mode              Mode
	ServerOptions     ServerOptions
	ClientOptions     ClientOptions
	EventBufferSize   int
	InterestTimeoutMs int
}

// DefaultConfig returns a Client-mode configuration with every documented
// default filled in, including VerifyCertificate: true (spec §4.4 "Default
// client configuration verifies server certificates against the system
// trust store"). Callers building a Server or Dual transport still need to
// supply ServerOptions.ListenAddr/CertPath/KeyPath. Go cannot distinguish an
// unset bool from an explicit false in a struct literal, so NewTransport
// does not attempt to default VerifyCertificate itself: start from
// DefaultConfig and flip it to false only for the test-only skip-verify
// mode, rather than building a bare Config{} literal.
func DefaultConfig() Config {
	cfg := Config{Mode: ModeClient}
	applyDefaults(&cfg)
	cfg.ClientOptions.VerifyCertificate = true
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.ServerOptions.IdleTimeoutMs == 0 {
		cfg.ServerOptions.IdleTimeoutMs = DefaultIdleTimeoutMs
	}
	if cfg.ServerOptions.KeepAliveMs == 0 {
		cfg.ServerOptions.KeepAliveMs = DefaultKeepAliveMs
	}
	if cfg.ClientOptions.IdleTimeoutMs == 0 {
		cfg.ClientOptions.IdleTimeoutMs = DefaultIdleTimeoutMs
	}
	if cfg.ClientOptions.KeepAliveMs == 0 {
		cfg.ClientOptions.KeepAliveMs = DefaultKeepAliveMs
	}
	if cfg.EventBufferSize <= 0 {
		cfg.EventBufferSize = DefaultEventBufferSize
	}
	if cfg.InterestTimeoutMs <= 0 {
		cfg.InterestTimeoutMs = DefaultInterestTimeoutMs
	}
}

func (o ServerOptions) idleTimeout() time.Duration {
	return time.Duration(o.IdleTimeoutMs) * time.Millisecond
}

func (o ServerOptions) keepAlive() time.Duration {
	return time.Duration(o.KeepAliveMs) * time.Millisecond
}

func (o ClientOptions) idleTimeout() time.Duration {
	return time.Duration(o.IdleTimeoutMs) * time.Millisecond
}

func (o ClientOptions) keepAlive() time.Duration {
	return time.Duration(o.KeepAliveMs) * time.Millisecond
}
