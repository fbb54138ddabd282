package session

import (
	"crypto/tls"
	"crypto/x509"
	"os"

	"github.com/ndnswitch/core/ndnerr"
)

// serverTLSConfig builds the listener's TLS config: a loaded certificate
// pair and the fixed ALPN identifier, so the quic-go handshake rejects any
// peer that doesn't negotiate "ndn1" (spec §4.4).
func serverTLSConfig(opts ServerOptions) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(opts.CertPath, opts.KeyPath)
	if err != nil {
		return nil, ndnerr.ErrConfig{Msg: "session: load TLS cert/key: " + err.Error()}
	}
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPN},
		MinVersion:   tls.VersionTLS12,
	}, nil
}

// clientTLSConfig builds the dialer's TLS config. By default it verifies
// the peer certificate against the system trust store (or CaCertPath, if
// supplied); VerifyCertificate: false selects the test-only skip-verify
// mode (spec §4.4).
func clientTLSConfig(opts ClientOptions) (*tls.Config, error) {
	cfg := &tls.Config{
		NextProtos:         []string{ALPN},
		MinVersion:         tls.VersionTLS12,
		InsecureSkipVerify: !opts.VerifyCertificate,
	}

	if opts.CaCertPath != "" {
		pem, err := os.ReadFile(opts.CaCertPath)
		if err != nil {
			return nil, ndnerr.ErrConfig{Msg: "session: read CA cert: " + err.Error()}
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, ndnerr.ErrConfig{Msg: "session: no certificates found in " + opts.CaCertPath}
		}
		cfg.RootCAs = pool
	}

	return cfg, nil
}
