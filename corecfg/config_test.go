package corecfg

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndnswitch/core/ndnerr"
	"github.com/ndnswitch/core/session"
)

func TestLoadEmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesOnlyGivenKeys(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ndnswitchd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: debug
tables:
  cs_capacity: 10
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 10, cfg.Tables.CsCapacity)
	// Untouched keys keep their defaults.
	assert.Equal(t, Default().Tables.PitCapacity, cfg.Tables.PitCapacity)
	assert.Equal(t, Default().UDPListenAddr, cfg.UDPListenAddr)
}

func TestLoadUnknownFileReturnsConfigError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.IsType(t, ndnerr.ErrConfig{}, err)
}

func TestSessionConfigResolvesMode(t *testing.T) {
	cfg := Default()
	cfg.SessionMode = "server"
	sc, err := cfg.SessionConfig()
	require.NoError(t, err)
	assert.Equal(t, session.ModeServer, sc.Mode)
}

func TestSessionConfigRejectsUnknownMode(t *testing.T) {
	cfg := Default()
	cfg.SessionMode = "bogus"
	_, err := cfg.SessionConfig()
	require.Error(t, err)
}

// VerifyCertificate must default to true when the YAML key is absent, even
// though the zero value of the underlying bool is false.
func TestSessionConfigDefaultsVerifyCertificateTrue(t *testing.T) {
	cfg := Default()
	sc, err := cfg.SessionConfig()
	require.NoError(t, err)
	assert.True(t, sc.ClientOptions.VerifyCertificate)
}

func TestLoadVerifyCertificateExplicitFalse(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ndnswitchd.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
session_client:
  verify_certificate: false
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	sc, err := cfg.SessionConfig()
	require.NoError(t, err)
	assert.False(t, sc.ClientOptions.VerifyCertificate)
}
