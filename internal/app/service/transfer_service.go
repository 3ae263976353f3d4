package service

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"batch_payout/internal/app/port"
	"batch_payout/internal/domain/entity"
	"batch_payout/internal/pkg/keylock"
	"batch_payout/internal/pkg/metrics"
	"batch_payout/internal/pkg/utils"

	"github.com/google/uuid"
)

// TransferConfig holds the orchestration settings.
type TransferConfig struct {
	// SpenderAddress is the batch payout contract that is granted allowances.
	SpenderAddress string
	// SerializePerAccount runs at most one transfer per custodial account at a time.
	SerializePerAccount bool
}

// TransferServiceImpl implements port.TransferService.
//
// A transfer moves through Validating, CheckingBalance, Approving (ERC-20 only) and Executing,
// ending in Completed or Failed. Every stage runs once; the first error ends the run.
type TransferServiceImpl struct {
	planner    *Planner
	accounts   port.AccountProvider
	balances   port.BalanceOracle
	authorizer port.AllowanceAuthorizer
	executor   port.TransferExecutor
	cfg        TransferConfig
	locks      *keylock.KeyLock
	metrics    *metrics.Metrics
	logger     port.Logger
}

// NewTransferService creates a new TransferServiceImpl.
func NewTransferService(
	planner *Planner,
	accounts port.AccountProvider,
	balances port.BalanceOracle,
	authorizer port.AllowanceAuthorizer,
	executor port.TransferExecutor,
	cfg TransferConfig,
	m *metrics.Metrics,
	logger port.Logger,
) *TransferServiceImpl {
	s := &TransferServiceImpl{
		planner:    planner,
		accounts:   accounts,
		balances:   balances,
		authorizer: authorizer,
		executor:   executor,
		cfg:        cfg,
		metrics:    m,
		logger:     logger,
	}
	if cfg.SerializePerAccount {
		s.locks = keylock.New()
	}
	return s
}

type transferRun struct {
	id      string
	token   string
	stage   entity.TransferStage
	entered time.Time
}

// Transfer runs a batch transfer on behalf of identity.
func (s *TransferServiceImpl) Transfer(ctx context.Context, identity string, req entity.TransferRequest) (entity.TransferResult, error) {
	run := &transferRun{
		id:      uuid.NewString(),
		stage:   entity.StageValidating,
		entered: time.Now(),
	}
	s.logger.Info("Transfer started", "transfer_id", run.id, "identity", identity,
		"token", req.Token, "recipients", len(req.Recipients))

	plan, err := s.planner.Plan(req)
	if err != nil {
		return entity.TransferResult{}, s.fail(run, err)
	}
	run.token = plan.Token.Symbol

	account, err := s.accounts.GetAccount(ctx, identity)
	if err != nil {
		return entity.TransferResult{}, s.fail(run, err)
	}

	if s.locks != nil {
		unlock, err := s.locks.Lock(ctx, strings.ToLower(account.Address))
		if err != nil {
			return entity.TransferResult{}, s.fail(run, fmt.Errorf("waiting for a running transfer of %s: %w", account.Address, err))
		}
		defer unlock()
	}

	s.advance(run, entity.StageCheckingBalance)
	if err := s.checkBalance(ctx, account, plan); err != nil {
		return entity.TransferResult{}, s.fail(run, err)
	}

	var approvalHash string
	if !plan.Token.Native {
		s.advance(run, entity.StageApproving)
		approvalHash, err = s.authorizer.Approve(ctx, account, s.cfg.SpenderAddress, plan.Token.ContractAddress, plan.Total)
		if err != nil {
			return entity.TransferResult{}, s.fail(run, err)
		}
	}

	s.advance(run, entity.StageExecuting)
	result, err := s.executor.Execute(ctx, account, plan.Token.Symbol, plan.Addresses, plan.Amounts, plan.Total)
	if err != nil {
		return entity.TransferResult{}, s.fail(run, err)
	}
	result.ApprovalTransactionHash = approvalHash

	s.advance(run, entity.StageCompleted)
	s.metrics.ObserveTransfer(run.token, entity.StageCompleted.String())
	s.logger.Info("Transfer completed", "transfer_id", run.id, "account", account.Address,
		"token", run.token, "total", result.TotalAmount, "transactions", result.TransactionHashes)
	return result, nil
}

func (s *TransferServiceImpl) checkBalance(ctx context.Context, account entity.Account, plan entity.TransferPlan) error {
	symbol := plan.Token.Symbol
	balance, err := s.balances.GetBalance(ctx, account.Address, symbol)
	if err != nil {
		return err
	}
	available, err := utils.ParseBalance(balance, plan.Token.Decimals)
	if err != nil {
		return entity.NewFlowError(entity.ErrBalanceQuery, fmt.Sprintf("Failed to read %s balance", symbol), err)
	}

	if plan.Total.Cmp(available) > 0 {
		required := utils.FormatUnits(plan.Total, plan.Token.Decimals)
		shortfall := utils.FormatUnits(new(big.Int).Sub(plan.Total, available), plan.Token.Decimals)
		return entity.NewFlowError(entity.ErrInsufficientBalance, fmt.Sprintf(
			"Insufficient %s balance for transfer. Required: %s %s, available: %s %s, short by %s %s",
			symbol, required, symbol, balance, symbol, shortfall, symbol), nil)
	}
	return nil
}

func (s *TransferServiceImpl) advance(run *transferRun, next entity.TransferStage) {
	now := time.Now()
	s.metrics.ObserveStage(run.stage.String(), now.Sub(run.entered))
	s.logger.Debug("Transfer stage transition", "transfer_id", run.id, "from", run.stage.String(), "to", next.String())
	run.stage = next
	run.entered = now
}

func (s *TransferServiceImpl) fail(run *transferRun, err error) error {
	failedAt := run.stage
	s.advance(run, entity.StageFailed)
	token := run.token
	if token == "" {
		token = "unknown"
	}
	s.metrics.ObserveTransfer(token, entity.StageFailed.String())

	if entity.IsClientError(err) {
		s.logger.Warn("Transfer rejected", "transfer_id", run.id, "stage", failedAt.String(), "error", err)
	} else {
		s.logger.Error("Transfer failed", "transfer_id", run.id, "stage", failedAt.String(), "error", err)
	}
	return err
}

var _ port.TransferService = (*TransferServiceImpl)(nil)
