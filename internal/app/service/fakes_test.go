package service

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"testing"
	"time"

	"batch_payout/internal/app/port"
	"batch_payout/internal/app/provider"
	"batch_payout/internal/domain/entity"
	networkdefinition "batch_payout/internal/infrastructure/network/definition"
	"batch_payout/internal/pkg/logger"

	"github.com/stretchr/testify/require"
)

const (
	spenderAddress = "0x09350F89e2D7B6e96bA730783c2d76137B045FEF"
	senderAddress  = "0x1111111111111111111111111111111111111111"
	recipientA     = "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"
	recipientB     = "0xbBbBBBBbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbB"
	recipientC     = "0xCcCCccccCCCCcCCCCCCcCcCccCcCCCcCcccccccC"
)

var (
	testNetwork = networkdefinition.BaseSepolia
	testSender  = entity.Account{Name: "user-1", Address: senderAddress}
)

func newRegistry(t *testing.T) port.TokenRegistry {
	t.Helper()
	registry, err := provider.NewTokenRegistry(networkdefinition.All(), nil, logger.NewSlogAdapter())
	require.NoError(t, err)
	return registry
}

func sequentialKeys() port.IdempotencyKeyFunc {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("key-%d", n)
	}
}

type fakeChainClient struct {
	network    entity.NetworkConfig
	native     *big.Int
	tokens     map[string]*big.Int // lower-cased contract -> balance
	balanceErr error
	reverted   map[string]bool
	waitErr    error
	blockWait  bool
	// waitDelay delays every receipt; onReceipt runs before a successful receipt is returned.
	waitDelay time.Duration
	onReceipt func(f *fakeChainClient, txHash string)

	mu     sync.Mutex
	waited []string
}

func newFakeChainClient() *fakeChainClient {
	return &fakeChainClient{
		network:  testNetwork,
		native:   new(big.Int),
		tokens:   map[string]*big.Int{},
		reverted: map[string]bool{},
	}
}

func (f *fakeChainClient) GetNativeBalance(context.Context, string) (*big.Int, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return new(big.Int).Set(f.native), nil
}

func (f *fakeChainClient) GetTokenBalance(_ context.Context, tokenAddress string, _ string) (*big.Int, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	if balance, ok := f.tokens[strings.ToLower(tokenAddress)]; ok {
		return new(big.Int).Set(balance), nil
	}
	return new(big.Int), nil
}

func (f *fakeChainClient) WaitForTransactionReceipt(ctx context.Context, txHash string) (*entity.Receipt, error) {
	f.mu.Lock()
	f.waited = append(f.waited, txHash)
	f.mu.Unlock()

	if f.blockWait {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.waitDelay > 0 {
		select {
		case <-time.After(f.waitDelay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.waitErr != nil {
		return nil, f.waitErr
	}
	success := !f.reverted[txHash]
	if success && f.onReceipt != nil {
		f.mu.Lock()
		f.onReceipt(f, txHash)
		f.mu.Unlock()
	}
	return &entity.Receipt{TransactionHash: txHash, Success: success, BlockNumber: 100}, nil
}

func (f *fakeChainClient) Network() entity.NetworkConfig {
	return f.network
}

type submission struct {
	account entity.Account
	tx      entity.TransactionSpec
	network string
	key     string
}

type fakeWallet struct {
	mu          sync.Mutex
	submissions []submission
	failAt      int // 1-based submission that fails; 0 never
}

func (f *fakeWallet) GetAccount(_ context.Context, name string) (entity.Account, error) {
	return entity.Account{Name: name, Address: senderAddress}, nil
}

func (f *fakeWallet) SendTransaction(_ context.Context, account entity.Account, tx entity.TransactionSpec, network string, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submissions = append(f.submissions, submission{account: account, tx: tx, network: network, key: key})
	if f.failAt == len(f.submissions) {
		return "", errors.New("wallet service unavailable")
	}
	return fmt.Sprintf("0x%064x", len(f.submissions)), nil
}

func (f *fakeWallet) Submissions() []submission {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]submission(nil), f.submissions...)
}

// cancellingWallet cancels the caller's context as soon as a submission is acknowledged,
// as a client disconnecting mid-request would.
type cancellingWallet struct {
	*fakeWallet
	cancel context.CancelFunc
}

func (w cancellingWallet) SendTransaction(ctx context.Context, account entity.Account, tx entity.TransactionSpec, network string, key string) (string, error) {
	hash, err := w.fakeWallet.SendTransaction(ctx, account, tx, network, key)
	w.cancel()
	return hash, err
}
