package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/safe4337/pkg/safe"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "chain_id: 84532\n"))
	require.NoError(t, err)

	assert.Equal(t, uint64(84532), cfg.ChainID)
	assert.Equal(t, safe.DefaultConfig(), cfg.Safe)
	assert.Equal(t, uint64(86400), cfg.Recovery.RecoveryCooldown)
	assert.Equal(t, time.Second, cfg.Poll.Interval)
	assert.Equal(t, 30*time.Second, cfg.Poll.Timeout)
}

func TestLoadFileOverrides(t *testing.T) {
	body := `
chain_id: 84532
rpc_url: https://sepolia.base.org
bundler_url: https://bundler.example/84532
safe:
  safeMultiSendAddress: "0x1111111111111111111111111111111111111111"
poll:
  timeout: 2s
`
	cfg, err := LoadFile(writeConfig(t, body))
	require.NoError(t, err)
	assert.Equal(t, "0x1111111111111111111111111111111111111111", cfg.Safe.SafeMultiSendAddress)
	assert.Equal(t, safe.DefaultConfig().Safe4337ModuleAddress, cfg.Safe.Safe4337ModuleAddress)
	assert.Equal(t, 2*time.Second, cfg.Poll.Timeout)
	assert.NoError(t, cfg.RequireEndpoints())
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("SAFE4337_BUNDLER_URL", "https://env.example")
	cfg, err := LoadFile(writeConfig(t, "chain_id: 1\n"))
	require.NoError(t, err)
	assert.Equal(t, "https://env.example", cfg.BundlerURL)
}

func TestLoadFileRejectsBadAddress(t *testing.T) {
	_, err := LoadFile(writeConfig(t, "safe:\n  safeMultiSendAddress: \"0x12\"\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "safeMultiSendAddress")
}

func TestRequireEndpoints(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "debug: true\n"))
	require.NoError(t, err)
	err = cfg.RequireEndpoints()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chain_id, rpc_url, bundler_url")
}
