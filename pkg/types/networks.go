package types

import (
	"fmt"
	"strconv"
	"strings"
)

// NetworkCode is a short human name for a supported EVM chain.
type NetworkCode string

const (
	// Ethereum
	NetworkETH        NetworkCode = "ethereum"
	NetworkETHSepolia NetworkCode = "sepolia"

	// Base
	NetworkBase        NetworkCode = "base"
	NetworkBaseSepolia NetworkCode = "base-sepolia"

	// Optimism
	NetworkOptimism        NetworkCode = "optimism"
	NetworkOptimismSepolia NetworkCode = "optimism-sepolia"

	// Arbitrum
	NetworkArbitrum        NetworkCode = "arbitrum"
	NetworkArbitrumSepolia NetworkCode = "arbitrum-sepolia"

	// Polygon
	NetworkPolygon     NetworkCode = "polygon"
	NetworkPolygonAmoy NetworkCode = "polygon-amoy"

	// Gnosis
	NetworkGnosis NetworkCode = "gnosis"

	// Lux
	NetworkLUX        NetworkCode = "lux"
	NetworkLUXTestnet NetworkCode = "lux-testnet"
)

// Network describes a chain the account core has been exercised against.
type Network struct {
	Code    NetworkCode
	ChainID uint64
	Testnet bool
}

// SupportedNetworks indexes known networks by chain id.
var SupportedNetworks = map[uint64]Network{
	1:        {NetworkETH, 1, false},
	11155111: {NetworkETHSepolia, 11155111, true},
	8453:     {NetworkBase, 8453, false},
	84532:    {NetworkBaseSepolia, 84532, true},
	10:       {NetworkOptimism, 10, false},
	11155420: {NetworkOptimismSepolia, 11155420, true},
	42161:    {NetworkArbitrum, 42161, false},
	421614:   {NetworkArbitrumSepolia, 421614, true},
	137:      {NetworkPolygon, 137, false},
	80002:    {NetworkPolygonAmoy, 80002, true},
	100:      {NetworkGnosis, 100, false},
	96369:    {NetworkLUX, 96369, false},
	96368:    {NetworkLUXTestnet, 96368, true},
}

// IsChainSupported reports whether chainID is a known network.
func IsChainSupported(chainID uint64) bool {
	_, ok := SupportedNetworks[chainID]
	return ok
}

// ParseNetwork resolves a network code ("base-sepolia") or a decimal chain id.
// Unknown numeric ids are accepted as-is so custom chains keep working.
func ParseNetwork(s string) (Network, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return Network{}, fmt.Errorf("empty network")
	}
	if id, err := strconv.ParseUint(s, 10, 64); err == nil {
		if id == 0 {
			return Network{}, fmt.Errorf("chain id must be positive")
		}
		if n, ok := SupportedNetworks[id]; ok {
			return n, nil
		}
		return Network{Code: NetworkCode(s), ChainID: id}, nil
	}
	for _, n := range SupportedNetworks {
		if string(n.Code) == s {
			return n, nil
		}
	}
	return Network{}, fmt.Errorf("unknown network %q", s)
}
