package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetworkConstants(t *testing.T) {
	assert.Equal(t, "base-sepolia", string(NetworkBaseSepolia))
	assert.Equal(t, NetworkBaseSepolia, SupportedNetworks[84532].Code)
}

func TestIsChainSupported(t *testing.T) {
	testCases := []struct {
		name     string
		chainID  uint64
		expected bool
	}{
		{"Base Sepolia", 84532, true},
		{"Ethereum", 1, true},
		{"Gnosis", 100, true},

		// Unsupported
		{"Unknown", 424242, false},
		{"Zero", 0, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, IsChainSupported(tc.chainID))
		})
	}
}

func TestParseNetwork(t *testing.T) {
	n, err := ParseNetwork("Base-Sepolia")
	require.NoError(t, err)
	assert.Equal(t, uint64(84532), n.ChainID)
	assert.True(t, n.Testnet)

	n, err = ParseNetwork("84532")
	require.NoError(t, err)
	assert.Equal(t, NetworkBaseSepolia, n.Code)

	n, err = ParseNetwork("424242")
	require.NoError(t, err)
	assert.Equal(t, uint64(424242), n.ChainID)

	_, err = ParseNetwork("0")
	assert.Error(t, err)
	_, err = ParseNetwork("atlantis")
	assert.Error(t, err)
}
