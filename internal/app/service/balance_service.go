package service

import (
	"context"
	"fmt"
	"math/big"

	"batch_payout/internal/app/port"
	"batch_payout/internal/domain/entity"
	"batch_payout/internal/pkg/utils"
)

// BalanceServiceImpl implements port.BalanceOracle on top of the chain client.
type BalanceServiceImpl struct {
	registry port.TokenRegistry
	client   port.ChainClient
	logger   port.Logger
}

// NewBalanceService creates a new BalanceServiceImpl.
func NewBalanceService(registry port.TokenRegistry, client port.ChainClient, logger port.Logger) *BalanceServiceImpl {
	return &BalanceServiceImpl{registry: registry, client: client, logger: logger}
}

// GetBalance returns the balance of ownerAddress in human units of tokenSymbol.
func (s *BalanceServiceImpl) GetBalance(ctx context.Context, ownerAddress string, tokenSymbol string) (string, error) {
	spec, err := s.registry.Resolve(s.client.Network().Identifier, tokenSymbol)
	if err != nil {
		return "", err
	}

	raw, err := s.balanceOf(ctx, spec, ownerAddress)
	if err != nil {
		s.logger.Error("Failed to query balance", "owner", ownerAddress, "token", spec.Symbol, "error", err)
		return "", entity.NewFlowError(entity.ErrBalanceQuery,
			fmt.Sprintf("Failed to fetch %s balance", spec.Symbol), err)
	}

	balance := utils.FormatUnits(raw, spec.Decimals)
	s.logger.Debug("Balance fetched", "owner", ownerAddress, "token", spec.Symbol, "balance", balance)
	return balance, nil
}

// GetAccountBalance is GetBalance shaped for API responses.
func (s *BalanceServiceImpl) GetAccountBalance(ctx context.Context, account entity.Account, tokenSymbol string) (entity.AccountBalance, error) {
	balance, err := s.GetBalance(ctx, account.Address, tokenSymbol)
	if err != nil {
		return entity.AccountBalance{}, err
	}
	return entity.AccountBalance{
		Address: account.Address,
		Token:   utils.NormalizeSymbol(tokenSymbol),
		Balance: balance,
	}, nil
}

func (s *BalanceServiceImpl) balanceOf(ctx context.Context, spec entity.TokenSpec, owner string) (*big.Int, error) {
	if !utils.IsEVMAddress(owner) {
		return nil, fmt.Errorf("invalid owner address %q", owner)
	}
	if spec.Native {
		return s.client.GetNativeBalance(ctx, owner)
	}
	return s.client.GetTokenBalance(ctx, spec.ContractAddress, owner)
}

var _ port.BalanceOracle = (*BalanceServiceImpl)(nil)
