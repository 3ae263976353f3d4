package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"batch_payout/internal/app/port"
	"batch_payout/internal/domain/entity"
	"batch_payout/internal/pkg/metrics"
	"batch_payout/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultExecutionTimeout bounds the wait for each batch payout receipt.
const DefaultExecutionTimeout = 3 * time.Minute

// ExecutorConfig tunes an ExecutorServiceImpl.
type ExecutorConfig struct {
	// SpenderAddress is the batch payout contract.
	SpenderAddress string
	// MaxRecipientsPerTx caps the recipients of one transaction; <= 0 sends everything at once.
	MaxRecipientsPerTx int
	Timeout            time.Duration
}

// ExecutorServiceImpl implements port.TransferExecutor through the batch payout contract.
type ExecutorServiceImpl struct {
	registry port.TokenRegistry
	wallet   port.WalletService
	client   port.ChainClient
	newKey   port.IdempotencyKeyFunc
	cfg      ExecutorConfig
	metrics  *metrics.Metrics
	logger   port.Logger
}

// NewExecutorService creates a new ExecutorServiceImpl.
func NewExecutorService(
	registry port.TokenRegistry,
	wallet port.WalletService,
	client port.ChainClient,
	newKey port.IdempotencyKeyFunc,
	cfg ExecutorConfig,
	m *metrics.Metrics,
	logger port.Logger,
) *ExecutorServiceImpl {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultExecutionTimeout
	}
	return &ExecutorServiceImpl{
		registry: registry,
		wallet:   wallet,
		client:   client,
		newKey:   newKey,
		cfg:      cfg,
		metrics:  m,
		logger:   logger,
	}
}

// Execute pays amounts[i] of tokenSymbol to addresses[i]. Each chunk of recipients lands in
// one transaction or not at all; the call returns after every receipt has been checked.
func (s *ExecutorServiceImpl) Execute(
	ctx context.Context,
	sender entity.Account,
	tokenSymbol string,
	addresses []string,
	amounts []*big.Int,
	total *big.Int,
) (entity.TransferResult, error) {
	network := s.client.Network()
	spec, err := s.registry.Resolve(network.Identifier, tokenSymbol)
	if err != nil {
		s.logger.Error("Executor received unknown token", "token", tokenSymbol, "error", err)
		return entity.TransferResult{}, executionFailed(fmt.Sprintf("Unsupported token: %s", tokenSymbol), nil)
	}
	if err := s.validate(addresses, amounts, total); err != nil {
		s.logger.Error("Rejected transfer inputs", "token", spec.Symbol, "error", err)
		return entity.TransferResult{}, err
	}

	addressChunks := utils.Chunk(addresses, s.cfg.MaxRecipientsPerTx)
	amountChunks := utils.Chunk(amounts, s.cfg.MaxRecipientsPerTx)

	result := entity.TransferResult{
		Token:             spec.Symbol,
		Network:           network.Identifier,
		TotalAmount:       utils.FormatUnits(total, spec.Decimals),
		TransactionHashes: make([]string, 0, len(addressChunks)),
		ExplorerURLs:      make([]string, 0, len(addressChunks)),
		Batches:           make([]entity.BatchOutcome, 0, len(addressChunks)),
	}

	for i := range addressChunks {
		outcome, err := s.executeChunk(ctx, sender, spec, network, addressChunks[i], amountChunks[i])
		if err != nil {
			s.logger.Error("Batch payout failed",
				"batch", i+1, "batches", len(addressChunks),
				"landed", result.TransactionHashes, "error", err)
			message := fmt.Sprintf("Batch transfer failed: %v", err)
			if len(result.TransactionHashes) > 0 {
				message += fmt.Sprintf(" (already confirmed: %s)", strings.Join(result.TransactionHashes, ", "))
			}
			return entity.TransferResult{}, executionFailed(message, err)
		}
		result.TransactionHashes = append(result.TransactionHashes, outcome.TransactionHash)
		if outcome.ExplorerURL != "" {
			result.ExplorerURLs = append(result.ExplorerURLs, outcome.ExplorerURL)
		}
		result.Batches = append(result.Batches, outcome)
	}

	result.Success = true
	s.logger.Info("Batch payout completed",
		"token", spec.Symbol, "recipients", len(addresses),
		"total", result.TotalAmount, "transactions", result.TransactionHashes)
	return result, nil
}

func (s *ExecutorServiceImpl) validate(addresses []string, amounts []*big.Int, total *big.Int) error {
	if len(addresses) == 0 {
		return executionFailed("No recipients to pay", nil)
	}
	if len(addresses) != len(amounts) {
		return executionFailed(fmt.Sprintf("Recipient count %d does not match amount count %d", len(addresses), len(amounts)), nil)
	}
	for i, address := range addresses {
		if !utils.IsEVMAddress(address) {
			return executionFailed(fmt.Sprintf("Invalid recipient address at position %d: %s", i+1, address), nil)
		}
	}
	for i, amount := range amounts {
		if amount == nil || amount.Sign() <= 0 {
			return executionFailed(fmt.Sprintf("Amount at position %d must be greater than zero", i+1), nil)
		}
	}
	if total == nil || utils.SumBigInts(amounts).Cmp(total) != 0 {
		return executionFailed("Sum of amounts does not match the transfer total", nil)
	}
	return nil
}

func (s *ExecutorServiceImpl) executeChunk(
	ctx context.Context,
	sender entity.Account,
	spec entity.TokenSpec,
	network entity.NetworkConfig,
	addresses []string,
	amounts []*big.Int,
) (entity.BatchOutcome, error) {
	chunkTotal := utils.SumBigInts(amounts)
	tx, err := s.buildTransaction(spec, addresses, amounts, chunkTotal)
	if err != nil {
		return entity.BatchOutcome{}, err
	}

	key := s.newKey()
	s.logger.Info("Submitting batch payout",
		"sender", sender.Address, "token", spec.Symbol,
		"recipients", len(addresses), "amount", chunkTotal.String(), "idempotency_key", key)

	if err := ctx.Err(); err != nil {
		return entity.BatchOutcome{}, fmt.Errorf("not submitted: %w", err)
	}
	hash, err := s.wallet.SendTransaction(ctx, sender, tx, network.Identifier, key)
	if err != nil {
		s.metrics.ObserveSubmission("execute", "error")
		return entity.BatchOutcome{}, fmt.Errorf("submit: %w", err)
	}

	// The payout is in flight once acknowledged; its receipt is awaited even if the caller goes away.
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.Timeout)
	defer cancel()
	receipt, err := s.client.WaitForTransactionReceipt(waitCtx, hash)
	if err != nil {
		s.metrics.ObserveSubmission("execute", "unconfirmed")
		return entity.BatchOutcome{}, fmt.Errorf("transaction %s was not confirmed: %w", hash, err)
	}
	if !receipt.Success {
		s.metrics.ObserveSubmission("execute", "reverted")
		return entity.BatchOutcome{}, fmt.Errorf("transaction %s reverted", hash)
	}
	s.metrics.ObserveSubmission("execute", "confirmed")

	return entity.BatchOutcome{
		TransactionHash: hash,
		ExplorerURL:     network.TransactionURL(hash),
		Recipients:      len(addresses),
		Amount:          utils.FormatUnits(chunkTotal, spec.Decimals),
		BlockNumber:     receipt.BlockNumber,
		Success:         true,
	}, nil
}

func (s *ExecutorServiceImpl) buildTransaction(spec entity.TokenSpec, addresses []string, amounts []*big.Int, chunkTotal *big.Int) (entity.TransactionSpec, error) {
	initContractABIs()
	recipients := make([]common.Address, len(addresses))
	for i, address := range addresses {
		recipients[i] = common.HexToAddress(address)
	}

	if spec.Native {
		data, err := parsedBatchPayoutABI.Pack(methodAirdropETH, recipients, amounts)
		if err != nil {
			return entity.TransactionSpec{}, fmt.Errorf("encode %s: %w", methodAirdropETH, err)
		}
		return entity.TransactionSpec{To: s.cfg.SpenderAddress, Data: data, Value: new(big.Int).Set(chunkTotal)}, nil
	}

	data, err := parsedBatchPayoutABI.Pack(methodAirdropERC20, common.HexToAddress(spec.ContractAddress), recipients, amounts, chunkTotal)
	if err != nil {
		return entity.TransactionSpec{}, fmt.Errorf("encode %s: %w", methodAirdropERC20, err)
	}
	return entity.TransactionSpec{To: s.cfg.SpenderAddress, Data: data, Value: new(big.Int)}, nil
}

func executionFailed(message string, cause error) error {
	return entity.NewFlowError(entity.ErrExecutionFailed, message, cause)
}

var _ port.TransferExecutor = (*ExecutorServiceImpl)(nil)
