package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"batch_payout/internal/app/port"
	"batch_payout/internal/domain/entity"
	"batch_payout/internal/pkg/metrics"
	"batch_payout/internal/pkg/utils"

	"github.com/ethereum/go-ethereum/common"
)

// DefaultApprovalTimeout bounds the wait for an approval receipt.
const DefaultApprovalTimeout = 2 * time.Minute

// AllowanceServiceImpl implements port.AllowanceAuthorizer. It always approves the exact
// amount requested.
type AllowanceServiceImpl struct {
	wallet  port.WalletService
	client  port.ChainClient
	newKey  port.IdempotencyKeyFunc
	timeout time.Duration
	metrics *metrics.Metrics
	logger  port.Logger
}

// NewAllowanceService creates a new AllowanceServiceImpl. A non-positive timeout selects
// DefaultApprovalTimeout.
func NewAllowanceService(
	wallet port.WalletService,
	client port.ChainClient,
	newKey port.IdempotencyKeyFunc,
	timeout time.Duration,
	m *metrics.Metrics,
	logger port.Logger,
) *AllowanceServiceImpl {
	if timeout <= 0 {
		timeout = DefaultApprovalTimeout
	}
	return &AllowanceServiceImpl{
		wallet:  wallet,
		client:  client,
		newKey:  newKey,
		timeout: timeout,
		metrics: m,
		logger:  logger,
	}
}

// Approve submits approve(spender, amount) on tokenContract from owner and blocks until it is mined.
func (s *AllowanceServiceImpl) Approve(ctx context.Context, owner entity.Account, spenderAddress string, tokenContract string, amount *big.Int) (string, error) {
	if amount == nil || amount.Sign() <= 0 {
		return "", approvalFailed("Approval amount must be greater than zero", nil)
	}
	if !utils.IsEVMAddress(spenderAddress) {
		return "", approvalFailed(fmt.Sprintf("Invalid spender address: %s", spenderAddress), nil)
	}
	if !utils.IsEVMAddress(tokenContract) {
		return "", approvalFailed(fmt.Sprintf("Invalid token contract address: %s", tokenContract), nil)
	}

	initContractABIs()
	data, err := parsedApproveABI.Pack(methodApprove, common.HexToAddress(spenderAddress), amount)
	if err != nil {
		return "", approvalFailed("Failed to encode approval", err)
	}

	network := s.client.Network()
	key := s.newKey()
	s.logger.Info("Submitting approval",
		"owner", owner.Address, "spender", spenderAddress, "token", tokenContract,
		"amount", amount.String(), "idempotency_key", key)

	if err := ctx.Err(); err != nil {
		return "", approvalFailed("Approval was not submitted: request cancelled", err)
	}
	hash, err := s.wallet.SendTransaction(ctx, owner, entity.TransactionSpec{
		To:    tokenContract,
		Data:  data,
		Value: new(big.Int),
	}, network.Identifier, key)
	if err != nil {
		s.metrics.ObserveSubmission("approve", "error")
		return "", approvalFailed(fmt.Sprintf("Failed to submit approval: %v", err), err)
	}

	// Detached from ctx: a submitted approval is awaited even if the caller goes away.
	waitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()
	receipt, err := s.client.WaitForTransactionReceipt(waitCtx, hash)
	if err != nil {
		s.metrics.ObserveSubmission("approve", "unconfirmed")
		s.logger.Error("Approval was not confirmed", "tx_hash", hash, "timeout", s.timeout, "error", err)
		return "", approvalFailed(fmt.Sprintf("Approval transaction %s was not confirmed: %v", hash, err), err)
	}
	if !receipt.Success {
		s.metrics.ObserveSubmission("approve", "reverted")
		s.logger.Error("Approval transaction reverted", "tx_hash", hash, "block", receipt.BlockNumber)
		return "", approvalFailed(fmt.Sprintf("Approval transaction %s reverted", hash), nil)
	}

	s.metrics.ObserveSubmission("approve", "confirmed")
	s.logger.Info("Approval confirmed", "tx_hash", hash, "block", receipt.BlockNumber, "explorer_url", network.TransactionURL(hash))
	return hash, nil
}

func approvalFailed(message string, cause error) error {
	return entity.NewFlowError(entity.ErrApprovalFailed, message, cause)
}

var _ port.AllowanceAuthorizer = (*AllowanceServiceImpl)(nil)
