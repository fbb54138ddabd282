package session

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ndnswitch/core/face"
	"github.com/ndnswitch/core/metrics"
	"github.com/ndnswitch/core/ndnerr"
	"github.com/ndnswitch/core/pkt"
)

// genSelfSignedCert writes an ephemeral ECDSA cert/key pair to dir, valid
// for localhost/127.0.0.1, and returns the cert/key file paths. Tests pair
// it with ClientOptions.VerifyCertificate: false since the cert is not
// rooted in any trust store.
func genSelfSignedCert(t *testing.T, dir string) (certPath, keyPath string) {
	t.Helper()

	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "localhost"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     []string{"localhost"},
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &priv.PublicKey, priv)
	require.NoError(t, err)

	certPath = filepath.Join(dir, "cert.pem")
	keyPath = filepath.Join(dir, "key.pem")

	certOut, err := os.Create(certPath)
	require.NoError(t, err)
	require.NoError(t, pem.Encode(certOut, &pem.Block{Type: "CERTIFICATE", Bytes: der}))
	require.NoError(t, certOut.Close())

	keyBytes, err := x509.MarshalECPrivateKey(priv)
	require.NoError(t, err)
	keyOut, err := os.Create(keyPath)
	require.NoError(t, err)
	require.NoError(t, pem.Encode(keyOut, &pem.Block{Type: "EC PRIVATE KEY", Bytes: keyBytes}))
	require.NoError(t, keyOut.Close())

	return certPath, keyPath
}

func newServerTransport(t *testing.T) (*Transport, *face.Registry, net.Addr) {
	t.Helper()
	certPath, keyPath := genSelfSignedCert(t, t.TempDir())

	cfg := DefaultConfig()
	cfg.Mode = ModeServer
	cfg.ServerOptions = ServerOptions{
		ListenAddr: "127.0.0.1:0",
		CertPath:   certPath,
		KeyPath:    keyPath,
	}

	reg := face.NewRegistry(0)
	tr, err := NewTransport(cfg, reg, metrics.NewCounters())
	require.NoError(t, err)

	addr, err := tr.Listen()
	require.NoError(t, err)

	go tr.Serve(context.Background())
	return tr, reg, addr
}

func newClientTransport(t *testing.T) (*Transport, *face.Registry) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.ClientOptions.VerifyCertificate = false // self-signed test cert

	reg := face.NewRegistry(0)
	tr, err := NewTransport(cfg, reg, metrics.NewCounters())
	require.NoError(t, err)
	return tr, reg
}

// TestFragmentedDataRoundTrip exercises spec §8 scenario 5: a 9500-byte
// Data round-trips through the session transport intact, chunked by the
// sender's maxChunkSize hint and reassembled by the receiver regardless.
func TestFragmentedDataRoundTrip(t *testing.T) {
	srvTr, srvReg, addr := newServerTransport(t)
	defer srvTr.Close()

	content := make([]byte, 9500)
	for i := range content {
		content[i] = byte(i % 251)
	}

	// Server-side responder: on any inbound Interest, answer with Data
	// carrying the full content under the same name.
	go func() {
		for ev := range srvReg.Events() {
			if ev.Kind != face.EventInterestReceived {
				continue
			}
			interest, err := pkt.DecodeInterest(ev.RawPacket)
			if err != nil {
				continue
			}
			data := &pkt.Data{Name: interest.Name, Content: content, TtlMs: 60000, CreatedAt: time.Now()}
			_ = srvReg.Send(ev.FaceId, data.Encode())
		}
	}()

	cliTr, _ := newClientTransport(t)
	defer cliTr.Close()

	f, err := cliTr.Connect(context.Background(), fmt.Sprintf("127.0.0.1:%d", addr.(*net.UDPAddr).Port))
	require.NoError(t, err)

	name, err := pkt.NameFromStr("/big")
	require.NoError(t, err)
	interest := pkt.NewInterest(name)

	got, err := f.ExpressInterest(context.Background(), interest, 2*time.Second)
	require.NoError(t, err)
	require.Equal(t, content, got.Content)
}

// TestExpressInterestTimeout exercises spec §8 scenario 4: an Interest with
// no responder times out within the configured window and cleans up its
// waiter.
func TestExpressInterestTimeout(t *testing.T) {
	srvTr, _, addr := newServerTransport(t)
	defer srvTr.Close()

	cliTr, _ := newClientTransport(t)
	defer cliTr.Close()

	f, err := cliTr.Connect(context.Background(), fmt.Sprintf("127.0.0.1:%d", addr.(*net.UDPAddr).Port))
	require.NoError(t, err)

	name, err := pkt.NameFromStr("/missing")
	require.NoError(t, err)
	interest := pkt.NewInterest(name)

	start := time.Now()
	_, err = f.ExpressInterest(context.Background(), interest, 200*time.Millisecond)
	elapsed := time.Since(start)

	require.ErrorAs(t, err, &ndnerr.ErrTimeout{})
	require.GreaterOrEqual(t, elapsed, 200*time.Millisecond)
	require.Less(t, elapsed, 2*time.Second)

	// The waiter must be gone afterward.
	require.Empty(t, cliTr.waiters.byName[name.String()])
}

// TestTransportCloseNotifiesWaiters exercises spec §4.4 "close() ...
// notifying every pending waiter with NetworkError(\"closed\")".
func TestTransportCloseNotifiesWaiters(t *testing.T) {
	cliTr, _ := newClientTransport(t)

	ch := cliTr.waiters.register("/never-arrives")
	require.NoError(t, cliTr.Close())

	res := <-ch
	require.Error(t, res.err)
}
