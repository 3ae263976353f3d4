package service

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"batch_payout/internal/app/port"
	"batch_payout/internal/app/provider"
	"batch_payout/internal/domain/entity"
	"batch_payout/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	calls []string
}

func (r *recorder) record(call string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call)
}

func (r *recorder) Calls() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.calls...)
}

type stubAccounts struct {
	err error
}

func (s stubAccounts) GetAccount(_ context.Context, identity string) (entity.Account, error) {
	if s.err != nil {
		return entity.Account{}, s.err
	}
	return entity.Account{Name: identity, Address: senderAddress}, nil
}

type stubOracle struct {
	rec     *recorder
	balance string
	err     error
}

func (s *stubOracle) GetBalance(_ context.Context, _ string, symbol string) (string, error) {
	s.rec.record("balance:" + symbol)
	return s.balance, s.err
}

type stubAuthorizer struct {
	rec     *recorder
	spender string
	amount  *big.Int
	err     error
}

func (s *stubAuthorizer) Approve(_ context.Context, _ entity.Account, spender string, _ string, amount *big.Int) (string, error) {
	s.rec.record("approve")
	s.spender = spender
	s.amount = new(big.Int).Set(amount)
	if s.err != nil {
		return "", s.err
	}
	return "0xapproval", nil
}

type stubExecutor struct {
	rec     *recorder
	amounts []*big.Int
	total   *big.Int
	err     error
}

func (s *stubExecutor) Execute(_ context.Context, _ entity.Account, symbol string, _ []string, amounts []*big.Int, total *big.Int) (entity.TransferResult, error) {
	s.rec.record("execute")
	s.amounts = amounts
	s.total = total
	if s.err != nil {
		return entity.TransferResult{}, s.err
	}
	return entity.TransferResult{Success: true, Token: symbol, TransactionHashes: []string{"0xpayout"}}, nil
}

type harness struct {
	rec        *recorder
	oracle     *stubOracle
	authorizer *stubAuthorizer
	executor   *stubExecutor
	svc        *TransferServiceImpl
}

func newHarness(t *testing.T, balance string) *harness {
	t.Helper()
	rec := &recorder{}
	h := &harness{
		rec:        rec,
		oracle:     &stubOracle{rec: rec, balance: balance},
		authorizer: &stubAuthorizer{rec: rec},
		executor:   &stubExecutor{rec: rec},
	}
	h.svc = NewTransferService(NewPlanner(newRegistry(t), testNetwork, 0), stubAccounts{},
		h.oracle, h.authorizer, h.executor,
		TransferConfig{SpenderAddress: spenderAddress, SerializePerAccount: true},
		nil, logger.NewSlogAdapter())
	return h
}

func usdcRequest(amounts ...string) entity.TransferRequest {
	addresses := []string{recipientA, recipientB, recipientC}
	req := entity.TransferRequest{Token: "usdc"}
	for i, amount := range amounts {
		req.Recipients = append(req.Recipients, entity.Recipient{Address: addresses[i%len(addresses)], Amount: amount})
	}
	return req
}

func TestTransfer_ERC20ApprovesThenExecutes(t *testing.T) {
	h := newHarness(t, "20")

	result, err := h.svc.Transfer(context.Background(), "user-1", usdcRequest("10"))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "0xapproval", result.ApprovalTransactionHash)
	assert.Equal(t, []string{"balance:usdc", "approve", "execute"}, h.rec.Calls())
	assert.Equal(t, spenderAddress, h.authorizer.spender)
	assert.Equal(t, int64(10_000_000), h.authorizer.amount.Int64())
	assert.Equal(t, int64(10_000_000), h.executor.total.Int64())
}

func TestTransfer_ApprovesExactSum(t *testing.T) {
	h := newHarness(t, "1000")

	_, err := h.svc.Transfer(context.Background(), "user-1", usdcRequest("1.5", "2.25", "0.000001"))
	require.NoError(t, err)

	assert.Equal(t, "3750001", h.authorizer.amount.String())
	assert.Zero(t, h.authorizer.amount.Cmp(h.executor.total))

	sum := new(big.Int)
	for _, amount := range h.executor.amounts {
		sum.Add(sum, amount)
	}
	assert.Zero(t, sum.Cmp(h.executor.total))
}

func TestTransfer_NativeSkipsApproval(t *testing.T) {
	h := newHarness(t, "1")

	req := entity.TransferRequest{Token: "eth", Recipients: []entity.Recipient{{Address: recipientA, Amount: "0.5"}}}
	result, err := h.svc.Transfer(context.Background(), "user-1", req)
	require.NoError(t, err)

	assert.Equal(t, []string{"balance:eth", "execute"}, h.rec.Calls())
	assert.Empty(t, result.ApprovalTransactionHash)
}

func TestTransfer_InsufficientBalance(t *testing.T) {
	h := newHarness(t, "20")

	_, err := h.svc.Transfer(context.Background(), "user-1", usdcRequest("50"))
	require.ErrorIs(t, err, entity.ErrInsufficientBalance)
	assert.False(t, entity.IsClientError(err))
	assert.Contains(t, err.Error(), "Required: 50 usdc")
	assert.Contains(t, err.Error(), "short by 30 usdc")
	assert.Equal(t, []string{"balance:usdc"}, h.rec.Calls())
}

func TestTransfer_StopsAtFirstFailure(t *testing.T) {
	t.Run("validation", func(t *testing.T) {
		h := newHarness(t, "20")
		_, err := h.svc.Transfer(context.Background(), "user-1", entity.TransferRequest{Token: "usdc", Recipients: []entity.Recipient{}})
		require.ErrorIs(t, err, entity.ErrValidation)
		assert.Equal(t, "At least one recipient is required", err.Error())
		assert.Empty(t, h.rec.Calls())
	})

	t.Run("account resolution", func(t *testing.T) {
		h := newHarness(t, "20")
		h.svc.accounts = stubAccounts{err: entity.NewFlowError(entity.ErrAccountResolution, "no account", nil)}
		_, err := h.svc.Transfer(context.Background(), "user-1", usdcRequest("1"))
		require.ErrorIs(t, err, entity.ErrAccountResolution)
		assert.Empty(t, h.rec.Calls())
	})

	t.Run("balance query", func(t *testing.T) {
		h := newHarness(t, "")
		h.oracle.err = entity.NewFlowError(entity.ErrBalanceQuery, "Failed to fetch usdc balance", errors.New("rpc"))
		_, err := h.svc.Transfer(context.Background(), "user-1", usdcRequest("1"))
		require.ErrorIs(t, err, entity.ErrBalanceQuery)
		assert.Equal(t, []string{"balance:usdc"}, h.rec.Calls())
	})

	t.Run("approval", func(t *testing.T) {
		h := newHarness(t, "20")
		h.authorizer.err = entity.NewFlowError(entity.ErrApprovalFailed, "Approval transaction 0x1 reverted", nil)
		_, err := h.svc.Transfer(context.Background(), "user-1", usdcRequest("1"))
		require.ErrorIs(t, err, entity.ErrApprovalFailed)
		assert.Equal(t, []string{"balance:usdc", "approve"}, h.rec.Calls())
	})

	t.Run("execution", func(t *testing.T) {
		h := newHarness(t, "20")
		h.executor.err = entity.NewFlowError(entity.ErrExecutionFailed, "Batch transfer failed", nil)
		_, err := h.svc.Transfer(context.Background(), "user-1", usdcRequest("1"))
		require.ErrorIs(t, err, entity.ErrExecutionFailed)
		assert.Equal(t, []string{"balance:usdc", "approve", "execute"}, h.rec.Calls())
	})
}

func TestTransfer_UsesDistinctIdempotencyKeys(t *testing.T) {
	registry := newRegistry(t)
	wallet := &fakeWallet{}
	client := newFakeChainClient()
	usdc, err := registry.Resolve(testNetwork.Identifier, "usdc")
	require.NoError(t, err)
	client.tokens[strings.ToLower(usdc.ContractAddress)] = big.NewInt(20_000_000)

	svc := NewTransferService(
		NewPlanner(registry, testNetwork, 0),
		provider.NewAccountProvider(wallet, time.Minute, time.Minute, logger.NewSlogAdapter()),
		NewBalanceService(registry, client, logger.NewSlogAdapter()),
		NewAllowanceService(wallet, client, uuid.NewString, time.Second, nil, logger.NewSlogAdapter()),
		NewExecutorService(registry, wallet, client, uuid.NewString, ExecutorConfig{SpenderAddress: spenderAddress}, nil, logger.NewSlogAdapter()),
		TransferConfig{SpenderAddress: spenderAddress, SerializePerAccount: true},
		nil, logger.NewSlogAdapter())

	result, err := svc.Transfer(context.Background(), "user-1", usdcRequest("10"))
	require.NoError(t, err)
	assert.True(t, result.Success)

	subs := wallet.Submissions()
	require.Len(t, subs, 2)
	assert.Equal(t, usdc.ContractAddress, subs[0].tx.To)
	assert.Equal(t, spenderAddress, subs[1].tx.To)
	assert.NotEmpty(t, subs[0].key)
	assert.NotEqual(t, subs[0].key, subs[1].key)
	assert.Equal(t, result.ApprovalTransactionHash, client.waited[0])
	assert.Equal(t, result.TransactionHashes, client.waited[1:])
}

type blockingOracle struct {
	active, maxActive atomic.Int32
}

func (b *blockingOracle) GetBalance(context.Context, string, string) (string, error) {
	n := b.active.Add(1)
	defer b.active.Add(-1)
	for {
		m := b.maxActive.Load()
		if n <= m || b.maxActive.CompareAndSwap(m, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return "1000", nil
}

func TestTransfer_SerializesPerAccount(t *testing.T) {
	oracle := &blockingOracle{}
	rec := &recorder{}
	svc := NewTransferService(NewPlanner(newRegistry(t), testNetwork, 0), stubAccounts{},
		oracle, &stubAuthorizer{rec: rec}, &stubExecutor{rec: rec},
		TransferConfig{SpenderAddress: spenderAddress, SerializePerAccount: true},
		nil, logger.NewSlogAdapter())

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Transfer(context.Background(), "user-1", usdcRequest("1"))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), oracle.maxActive.Load())
	assert.Len(t, rec.Calls(), 10)
}

var _ port.BalanceOracle = (*blockingOracle)(nil)

func TestTransfer_CancelledRequestKeepsAccountLockedUntilPayoutLands(t *testing.T) {
	registry := newRegistry(t)
	wallet := &fakeWallet{}
	client := newFakeChainClient()
	client.native = big.NewInt(1_000_000_000_000_000_000)
	client.waitDelay = 50 * time.Millisecond
	payout := big.NewInt(600_000_000_000_000_000)
	client.onReceipt = func(f *fakeChainClient, _ string) {
		f.native.Sub(f.native, payout)
	}

	svc := NewTransferService(
		NewPlanner(registry, testNetwork, 0),
		provider.NewAccountProvider(wallet, time.Minute, time.Minute, logger.NewSlogAdapter()),
		NewBalanceService(registry, client, logger.NewSlogAdapter()),
		NewAllowanceService(wallet, client, uuid.NewString, time.Second, nil, logger.NewSlogAdapter()),
		NewExecutorService(registry, wallet, client, uuid.NewString, ExecutorConfig{SpenderAddress: spenderAddress, Timeout: time.Second}, nil, logger.NewSlogAdapter()),
		TransferConfig{SpenderAddress: spenderAddress, SerializePerAccount: true},
		nil, logger.NewSlogAdapter())

	req := entity.TransferRequest{Token: "eth", Recipients: []entity.Recipient{{Address: recipientA, Amount: "0.6"}}}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	type outcome struct {
		result entity.TransferResult
		err    error
	}
	first := make(chan outcome, 1)
	go func() {
		result, err := svc.Transfer(ctx, "user-1", req)
		first <- outcome{result: result, err: err}
	}()

	require.Eventually(t, func() bool { return len(wallet.Submissions()) == 1 }, time.Second, time.Millisecond)
	cancel()

	_, err := svc.Transfer(context.Background(), "user-1", req)
	require.ErrorIs(t, err, entity.ErrInsufficientBalance)

	got := <-first
	require.NoError(t, got.err)
	assert.True(t, got.result.Success)
	assert.Len(t, wallet.Submissions(), 1)
}
