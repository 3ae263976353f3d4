package port

import (
	"context"
	"math/big"

	"batch_payout/internal/domain/entity"
)

// ChainClient defines the read side of the blockchain the service talks to.
type ChainClient interface {
	// GetNativeBalance fetches the native currency balance (e.g., ETH) for a wallet.
	GetNativeBalance(ctx context.Context, walletAddress string) (*big.Int, error)

	// GetTokenBalance fetches the ERC-20 balance of a wallet.
	GetTokenBalance(ctx context.Context, tokenAddress string, walletAddress string) (*big.Int, error)

	// WaitForTransactionReceipt blocks until the transaction is mined or ctx is done.
	WaitForTransactionReceipt(ctx context.Context, txHash string) (*entity.Receipt, error)

	// Network returns the network this client is connected to.
	Network() entity.NetworkConfig
}

// ChainClientProvider hands out connected chain clients.
type ChainClientProvider interface {
	GetClient(network entity.NetworkConfig) (ChainClient, error)
	// Close releases every client handed out so far.
	Close()
}
