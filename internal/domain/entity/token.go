package entity

// TokenSpec holds the on-chain details of a transferable token on one network.
// ContractAddress is empty for the chain's native asset.
type TokenSpec struct {
	Symbol          string `json:"symbol" yaml:"symbol"`
	ContractAddress string `json:"contractAddress,omitempty" yaml:"contractAddress,omitempty"`
	Decimals        uint8  `json:"decimals" yaml:"decimals"`
	Native          bool   `json:"native" yaml:"native"`
}

// TokenInfo is the on-disk shape of a token override entry.
type TokenInfo struct {
	ChainID  uint64 `json:"chainId"`
	Address  string `json:"address"`
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	// Decimals is required; nil means the key was absent.
	Decimals *uint8 `json:"decimals"`
}
