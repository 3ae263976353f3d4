package port

import (
	"context"
	"math/big"

	"batch_payout/internal/domain/entity"
)

// BalanceOracle reports the confirmed balance of an address at query time.
type BalanceOracle interface {
	GetBalance(ctx context.Context, ownerAddress string, tokenSymbol string) (string, error)
}

// AllowanceAuthorizer grants a spender contract an allowance and waits for it to be mined.
type AllowanceAuthorizer interface {
	Approve(ctx context.Context, owner entity.Account, spenderAddress string, tokenContract string, amount *big.Int) (string, error)
}

// TransferExecutor submits batch-payout transactions.
type TransferExecutor interface {
	Execute(ctx context.Context, sender entity.Account, tokenSymbol string, addresses []string, amounts []*big.Int, total *big.Int) (entity.TransferResult, error)
}

// TransferService orchestrates a complete batch transfer for an authenticated identity.
type TransferService interface {
	Transfer(ctx context.Context, identity string, req entity.TransferRequest) (entity.TransferResult, error)
}

// IdempotencyKeyFunc returns a fresh idempotency key on every call.
type IdempotencyKeyFunc func() string
