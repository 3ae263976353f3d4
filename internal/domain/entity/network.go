package entity

// NetworkConfig holds the configuration of the blockchain network the process serves.
// It is selected once at start-up and never mutated afterwards.
type NetworkConfig struct {
	ChainID         uint64   `json:"chainId" yaml:"chainId"`
	Name            string   `json:"name" yaml:"name"`
	Identifier      string   `json:"identifier" yaml:"identifier"` // wallet service network id, e.g. "base-sepolia"
	NativeSymbol    string   `json:"nativeSymbol" yaml:"nativeSymbol"`
	RPCURL          string   `json:"-" yaml:"rpcUrl"`
	FallbackRPCURLs []string `json:"-" yaml:"fallbackRpcUrls"`
	ExplorerURL     string   `json:"explorerUrl" yaml:"explorerUrl"`
	Mainnet         bool     `json:"mainnet" yaml:"mainnet"`
}

// TransactionURL returns the block explorer link for a transaction hash.
func (n NetworkConfig) TransactionURL(hash string) string {
	if n.ExplorerURL == "" {
		return ""
	}
	return n.ExplorerURL + "/tx/" + hash
}
