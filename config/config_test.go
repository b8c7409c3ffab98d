package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"clearhold/crypto"
)

func testBech32(t *testing.T, fill byte) string {
	t.Helper()
	var raw [20]byte
	for i := range raw {
		raw[i] = fill
	}
	return crypto.EncodeAddress(raw)
}

func TestLoadCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "127.0.0.1:8645", cfg.RPCAddress)
	require.Equal(t, "clearhold-local", cfg.NetworkName)
	require.Equal(t, "info", cfg.LogLevel)
	require.Equal(t, uint32(1), cfg.SignatureThreshold)

	// The default file was written and loads back.
	_, err = os.Stat(path)
	require.NoError(t, err)
	again, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, cfg, again)
}

func TestLoadValidatesAddresses(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`Owner = "not-an-address"`), 0o600))
	_, err := Load(path)
	require.Error(t, err)

	require.NoError(t, os.WriteFile(path, []byte(`Owner = "`+testBech32(t, 0x01)+`"`), 0o600))
	cfg, err := Load(path)
	require.NoError(t, err)
	require.NotEmpty(t, cfg.Owner)
}

func TestLoadRejectsThresholdAboveSigners(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `SignatureThreshold = 3
GenesisSigners = ["` + testBech32(t, 0x01) + `", "` + testBech32(t, 0x02) + `"]
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	_, err := Load(path)
	require.Error(t, err)
}

func TestDecodedAddress(t *testing.T) {
	zero, err := DecodedAddress("")
	require.NoError(t, err)
	require.Equal(t, [20]byte{}, zero)

	encoded := testBech32(t, 0x07)
	decoded, err := DecodedAddress(encoded)
	require.NoError(t, err)
	require.Equal(t, encoded, crypto.EncodeAddress(decoded))

	_, err = DecodedAddress("garbage")
	require.Error(t, err)
}
