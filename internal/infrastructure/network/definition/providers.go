package networkdefinition

import (
	"batch_payout/internal/domain/entity"
	"batch_payout/internal/infrastructure/configloader"
)

// Predefined network definitions
var ( //nolint:gochecknoglobals // Global for definitions
	Base = entity.NetworkConfig{
		ChainID:         8453,
		Name:            "Base",
		Identifier:      "base",
		NativeSymbol:    "ETH",
		RPCURL:          "https://mainnet.base.org",
		FallbackRPCURLs: []string{"https://base-rpc.publicnode.com"},
		ExplorerURL:     "https://basescan.org",
		Mainnet:         true,
	}
	BaseSepolia = entity.NetworkConfig{
		ChainID:         84532,
		Name:            "Base Sepolia",
		Identifier:      "base-sepolia",
		NativeSymbol:    "ETH",
		RPCURL:          "https://sepolia.base.org",
		FallbackRPCURLs: []string{"https://base-sepolia-rpc.publicnode.com"},
		ExplorerURL:     "https://sepolia.basescan.org",
		Mainnet:         false,
	}
)

// All returns every network the service knows about.
func All() []entity.NetworkConfig {
	return []entity.NetworkConfig{Base, BaseSepolia}
}

// Select returns the network the process serves. A configured node URL replaces the
// public primary endpoint, which is then kept as a fallback.
func Select(cfg configloader.NetworkConfig) entity.NetworkConfig {
	network := BaseSepolia
	nodeURL := cfg.TestnetRPCURL
	if cfg.UseMainnet {
		network = Base
		nodeURL = cfg.MainnetRPCURL
	}

	fallbacks := append([]string(nil), network.FallbackRPCURLs...)
	if nodeURL != "" && nodeURL != network.RPCURL {
		fallbacks = append([]string{network.RPCURL}, fallbacks...)
		network.RPCURL = nodeURL
	}
	network.FallbackRPCURLs = fallbacks
	return network
}
