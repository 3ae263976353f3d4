package client

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"batch_payout/internal/app/port"
	"batch_payout/internal/domain/entity"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"golang.org/x/time/rate"
)

const defaultReceiptPollInterval = time.Second

// EVMClient implements the port.ChainClient interface for EVM-compatible chains.
type EVMClient struct {
	ethClient           *ethclient.Client
	network             entity.NetworkConfig
	rpcCallTimeout      time.Duration
	receiptPollInterval time.Duration
	limiter             *rate.Limiter
	logger              port.Logger
}

// ERC20 ABI minimal part for balanceOf
const erc20BalanceOfABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"payable":false,"stateMutability":"view","type":"function"}]`

var (
	parsedERC20ABI  abi.ABI
	parsedERC20Once sync.Once
)

func initParsedERC20ABI() {
	parsedERC20Once.Do(func() {
		var err error
		parsedERC20ABI, err = abi.JSON(strings.NewReader(erc20BalanceOfABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 ABI: %v", err))
		}
	})
}

// Options tune an EVMClient.
type Options struct {
	ConnectionTimeout   time.Duration
	RPCCallTimeout      time.Duration
	ReceiptPollInterval time.Duration
	RateLimit           rate.Limit
	Burst               int
	// Logger receives transient receipt lookup failures; nil discards them.
	Logger port.Logger
}

// NewEVMClient dials the network's primary RPC endpoint, falling back to the configured
// alternates, and verifies that the endpoint serves the expected chain.
func NewEVMClient(network entity.NetworkConfig, opts Options) (*EVMClient, error) {
	initParsedERC20ABI()
	rpcURLs := append([]string{network.RPCURL}, network.FallbackRPCURLs...)
	var lastErr error

	for _, rpcURL := range rpcURLs {
		if rpcURL == "" {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), opts.ConnectionTimeout)
		ec, err := ethclient.DialContext(ctx, rpcURL)
		if err != nil {
			cancel()
			lastErr = fmt.Errorf("failed to connect to RPC %s: %w", rpcURL, err)
			continue
		}

		chainID, err := ec.ChainID(ctx)
		cancel()
		if err != nil {
			ec.Close()
			lastErr = fmt.Errorf("failed to verify chainID for %s: %w", rpcURL, err)
			continue
		}
		if chainID.Uint64() != network.ChainID {
			ec.Close()
			lastErr = fmt.Errorf("chainID mismatch for %s: expected %d, got %d", rpcURL, network.ChainID, chainID.Uint64())
			continue
		}
		return newEVMClient(ec, network, opts), nil
	}

	if lastErr == nil {
		lastErr = errors.New("no RPC endpoints configured")
	}
	return nil, fmt.Errorf("all RPC connection attempts failed for network %s: %w", network.Name, lastErr)
}

func newEVMClient(ec *ethclient.Client, network entity.NetworkConfig, opts Options) *EVMClient {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(opts.RateLimit, max(opts.Burst, 1))
	}
	pollInterval := opts.ReceiptPollInterval
	if pollInterval <= 0 {
		pollInterval = defaultReceiptPollInterval
	}
	return &EVMClient{
		ethClient:           ec,
		network:             network,
		rpcCallTimeout:      opts.RPCCallTimeout,
		receiptPollInterval: pollInterval,
		limiter:             limiter,
		logger:              opts.Logger,
	}
}

func (c *EVMClient) callContext(ctx context.Context) (context.Context, context.CancelFunc, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, nil, err
	}
	if c.rpcCallTimeout <= 0 {
		ctx, cancel := context.WithCancel(ctx)
		return ctx, cancel, nil
	}
	ctx, cancel := context.WithTimeout(ctx, c.rpcCallTimeout)
	return ctx, cancel, nil
}

// GetNativeBalance fetches the latest native balance of walletAddress.
func (c *EVMClient) GetNativeBalance(ctx context.Context, walletAddress string) (*big.Int, error) {
	callCtx, cancel, err := c.callContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	balance, err := c.ethClient.BalanceAt(callCtx, common.HexToAddress(walletAddress), nil)
	if err != nil {
		return nil, fmt.Errorf("eth_getBalance for %s failed: %w", walletAddress, err)
	}
	return balance, nil
}

// GetTokenBalance fetches the ERC-20 balanceOf(walletAddress) on tokenAddress.
func (c *EVMClient) GetTokenBalance(ctx context.Context, tokenAddress string, walletAddress string) (*big.Int, error) {
	callData, err := parsedERC20ABI.Pack("balanceOf", common.HexToAddress(walletAddress))
	if err != nil {
		return nil, fmt.Errorf("failed to pack balanceOf call: %w", err)
	}

	callCtx, cancel, err := c.callContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()

	token := common.HexToAddress(tokenAddress)
	result, err := c.ethClient.CallContract(callCtx, ethereum.CallMsg{To: &token, Data: callData}, nil)
	if err != nil {
		return nil, fmt.Errorf("balanceOf(%s) on %s failed: %w", walletAddress, tokenAddress, err)
	}
	if len(result) == 0 {
		return big.NewInt(0), nil
	}

	unpacked, err := parsedERC20ABI.Unpack("balanceOf", result)
	if err != nil {
		return nil, fmt.Errorf("failed to unpack balanceOf result for %s: %w", tokenAddress, err)
	}
	if len(unpacked) == 0 {
		return nil, fmt.Errorf("balanceOf unpack returned no data for %s", tokenAddress)
	}
	balance, ok := unpacked[0].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("unexpected balanceOf result type %T for %s", unpacked[0], tokenAddress)
	}
	return balance, nil
}

// WaitForTransactionReceipt polls for the receipt of txHash until it is mined or ctx ends.
// A mined but reverted transaction is returned with Success=false and no error. Lookup errors
// are retried on the next tick; only the end of ctx stops the wait.
func (c *EVMClient) WaitForTransactionReceipt(ctx context.Context, txHash string) (*entity.Receipt, error) {
	if !strings.HasPrefix(txHash, "0x") || len(txHash) != 66 {
		return nil, fmt.Errorf("invalid transaction hash %q", txHash)
	}
	hash := common.HexToHash(txHash)

	ticker := time.NewTicker(c.receiptPollInterval)
	defer ticker.Stop()

	var lastErr error
	for {
		receipt, err := c.fetchReceipt(ctx, hash)
		if err == nil {
			return toEntityReceipt(receipt), nil
		}
		if !errors.Is(err, ethereum.NotFound) && ctx.Err() == nil {
			lastErr = err
			if c.logger != nil {
				c.logger.Warn("Receipt lookup failed, retrying", "network", c.network.Name, "tx_hash", txHash, "error", err)
			}
		}

		select {
		case <-ctx.Done():
			if lastErr != nil {
				return nil, fmt.Errorf("waiting for receipt of %s: %w (last lookup error: %v)", txHash, ctx.Err(), lastErr)
			}
			return nil, fmt.Errorf("waiting for receipt of %s: %w", txHash, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *EVMClient) fetchReceipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	callCtx, cancel, err := c.callContext(ctx)
	if err != nil {
		return nil, err
	}
	defer cancel()
	return c.ethClient.TransactionReceipt(callCtx, hash)
}

func toEntityReceipt(r *types.Receipt) *entity.Receipt {
	out := &entity.Receipt{
		TransactionHash: r.TxHash.Hex(),
		Success:         r.Status == types.ReceiptStatusSuccessful,
		GasUsed:         r.GasUsed,
	}
	if r.BlockNumber != nil {
		out.BlockNumber = r.BlockNumber.Uint64()
	}
	return out
}

// Network returns the network definition for this client.
func (c *EVMClient) Network() entity.NetworkConfig {
	return c.network
}

// Close releases the underlying RPC connection.
func (c *EVMClient) Close() {
	if c.ethClient != nil {
		c.ethClient.Close()
	}
}

var _ port.ChainClient = (*EVMClient)(nil)
