package service

import (
	"context"
	"math/big"
	"testing"
	"time"

	"batch_payout/internal/domain/entity"
	"batch_payout/internal/pkg/logger"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newExecutor(t *testing.T, wallet *fakeWallet, client *fakeChainClient, perTx int) *ExecutorServiceImpl {
	t.Helper()
	return NewExecutorService(newRegistry(t), wallet, client, sequentialKeys(), ExecutorConfig{
		SpenderAddress:     spenderAddress,
		MaxRecipientsPerTx: perTx,
		Timeout:            time.Second,
	}, nil, logger.NewSlogAdapter())
}

func decodeBatch(t *testing.T, method string, data []byte) []any {
	t.Helper()
	initContractABIs()
	m := parsedBatchPayoutABI.Methods[method]
	require.Equal(t, m.ID, data[:4])
	args, err := m.Inputs.Unpack(data[4:])
	require.NoError(t, err)
	return args
}

func bigs(values ...int64) []*big.Int {
	out := make([]*big.Int, len(values))
	for i, v := range values {
		out[i] = big.NewInt(v)
	}
	return out
}

func TestExecutorService_Native(t *testing.T) {
	wallet := &fakeWallet{}
	client := newFakeChainClient()
	svc := newExecutor(t, wallet, client, 0)

	result, err := svc.Execute(context.Background(), testSender, "eth",
		[]string{recipientA, recipientB}, bigs(1_000, 2_000), big.NewInt(3_000))
	require.NoError(t, err)

	subs := wallet.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, spenderAddress, subs[0].tx.To)
	assert.Equal(t, int64(3_000), subs[0].tx.Value.Int64())

	args := decodeBatch(t, methodAirdropETH, subs[0].tx.Data)
	assert.Equal(t, []common.Address{common.HexToAddress(recipientA), common.HexToAddress(recipientB)}, args[0])
	assert.Equal(t, bigs(1_000, 2_000), args[1])

	assert.True(t, result.Success)
	assert.Equal(t, "eth", result.Token)
	assert.Equal(t, "base-sepolia", result.Network)
	assert.Equal(t, result.TransactionHashes, client.waited)
	require.Len(t, result.Batches, 1)
	assert.Equal(t, 2, result.Batches[0].Recipients)
	assert.Equal(t, "https://sepolia.basescan.org/tx/"+result.TransactionHashes[0], result.ExplorerURLs[0])
}

func TestExecutorService_ERC20(t *testing.T) {
	wallet := &fakeWallet{}
	svc := newExecutor(t, wallet, newFakeChainClient(), 0)

	result, err := svc.Execute(context.Background(), testSender, "usdc",
		[]string{recipientA}, bigs(10_000_000), big.NewInt(10_000_000))
	require.NoError(t, err)
	assert.Equal(t, "10", result.TotalAmount)

	subs := wallet.Submissions()
	require.Len(t, subs, 1)
	assert.Equal(t, int64(0), subs[0].tx.Value.Int64())

	args := decodeBatch(t, methodAirdropERC20, subs[0].tx.Data)
	assert.Equal(t, common.HexToAddress(usdcSepolia), args[0])
	assert.Equal(t, []common.Address{common.HexToAddress(recipientA)}, args[1])
	assert.Equal(t, bigs(10_000_000), args[2])
	assert.Equal(t, big.NewInt(10_000_000), args[3])
}

func TestExecutorService_Chunks(t *testing.T) {
	wallet := &fakeWallet{}
	svc := newExecutor(t, wallet, newFakeChainClient(), 2)

	addresses := []string{recipientA, recipientB, recipientC, recipientA, recipientB}
	result, err := svc.Execute(context.Background(), testSender, "usdc", addresses, bigs(1, 2, 3, 4, 5), big.NewInt(15))
	require.NoError(t, err)

	subs := wallet.Submissions()
	require.Len(t, subs, 3)
	assert.Len(t, result.TransactionHashes, 3)

	keys := map[string]bool{}
	var totals []int64
	for _, sub := range subs {
		keys[sub.key] = true
		args := decodeBatch(t, methodAirdropERC20, sub.tx.Data)
		totals = append(totals, args[3].(*big.Int).Int64())
	}
	assert.Len(t, keys, 3)
	assert.Equal(t, []int64{3, 7, 5}, totals)
	assert.Equal(t, []int{2, 2, 1}, []int{result.Batches[0].Recipients, result.Batches[1].Recipients, result.Batches[2].Recipients})
}

func TestExecutorService_RevalidatesInputs(t *testing.T) {
	tests := []struct {
		name      string
		token     string
		addresses []string
		amounts   []*big.Int
		total     *big.Int
	}{
		{"no recipients", "eth", nil, nil, big.NewInt(0)},
		{"length mismatch", "eth", []string{recipientA, recipientB}, bigs(1), big.NewInt(1)},
		{"sum mismatch", "eth", []string{recipientA, recipientB}, bigs(1, 2), big.NewInt(4)},
		{"zero amount", "eth", []string{recipientA}, bigs(0), big.NewInt(0)},
		{"nil total", "eth", []string{recipientA}, bigs(1), nil},
		{"invalid address", "eth", []string{"0xAAA"}, bigs(1), big.NewInt(1)},
		{"unknown token", "doge", []string{recipientA}, bigs(1), big.NewInt(1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wallet := &fakeWallet{}
			svc := newExecutor(t, wallet, newFakeChainClient(), 0)

			_, err := svc.Execute(context.Background(), testSender, tt.token, tt.addresses, tt.amounts, tt.total)
			require.ErrorIs(t, err, entity.ErrExecutionFailed)
			assert.False(t, entity.IsClientError(err))
			assert.Empty(t, wallet.Submissions())
		})
	}
}

func TestExecutorService_ReportsLandedBatches(t *testing.T) {
	client := newFakeChainClient()
	client.reverted["0x0000000000000000000000000000000000000000000000000000000000000002"] = true
	svc := newExecutor(t, &fakeWallet{}, client, 1)

	_, err := svc.Execute(context.Background(), testSender, "eth",
		[]string{recipientA, recipientB, recipientC}, bigs(1, 1, 1), big.NewInt(3))
	require.ErrorIs(t, err, entity.ErrExecutionFailed)
	assert.Contains(t, err.Error(), "reverted")
	assert.Contains(t, err.Error(), "already confirmed: 0x0000000000000000000000000000000000000000000000000000000000000001")
	assert.Len(t, client.waited, 2)
}

func TestExecutorService_SubmissionFailure(t *testing.T) {
	client := newFakeChainClient()
	svc := newExecutor(t, &fakeWallet{failAt: 1}, client, 0)

	_, err := svc.Execute(context.Background(), testSender, "eth", []string{recipientA}, bigs(1), big.NewInt(1))
	require.ErrorIs(t, err, entity.ErrExecutionFailed)
	assert.Contains(t, err.Error(), "wallet service unavailable")
	assert.Empty(t, client.waited)
}

func TestExecutorService_AwaitsReceiptAfterCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wallet := &fakeWallet{}
	client := newFakeChainClient()
	client.waitDelay = 30 * time.Millisecond
	svc := NewExecutorService(newRegistry(t), cancellingWallet{fakeWallet: wallet, cancel: cancel}, client,
		sequentialKeys(), ExecutorConfig{SpenderAddress: spenderAddress, Timeout: time.Second}, nil, logger.NewSlogAdapter())

	result, err := svc.Execute(ctx, testSender, "eth", []string{recipientA}, bigs(1), big.NewInt(1))
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Len(t, result.TransactionHashes, 1)
	require.ErrorIs(t, ctx.Err(), context.Canceled)
}

func TestExecutorService_StopsSubmittingAfterCallerCancels(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wallet := &fakeWallet{}
	client := newFakeChainClient()
	svc := NewExecutorService(newRegistry(t), cancellingWallet{fakeWallet: wallet, cancel: cancel}, client,
		sequentialKeys(), ExecutorConfig{SpenderAddress: spenderAddress, MaxRecipientsPerTx: 1, Timeout: time.Second},
		nil, logger.NewSlogAdapter())

	_, err := svc.Execute(ctx, testSender, "eth", []string{recipientA, recipientB}, bigs(1, 1), big.NewInt(2))
	require.ErrorIs(t, err, entity.ErrExecutionFailed)
	require.ErrorIs(t, err, context.Canceled)
	assert.Contains(t, err.Error(), "already confirmed: 0x0000000000000000000000000000000000000000000000000000000000000001")
	assert.Len(t, wallet.Submissions(), 1)
	assert.Len(t, client.waited, 1)
}
