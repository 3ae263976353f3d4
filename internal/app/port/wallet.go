package port

import (
	"context"

	"batch_payout/internal/domain/entity"
)

// WalletService is the custodial wallet / transaction API that owns the signing keys.
type WalletService interface {
	// GetAccount returns the custodial account registered under the given name.
	GetAccount(ctx context.Context, name string) (entity.Account, error)

	// SendTransaction signs and broadcasts tx from account on network. Submissions sharing an
	// idempotency key are executed at most once.
	SendTransaction(ctx context.Context, account entity.Account, tx entity.TransactionSpec, network string, idempotencyKey string) (string, error)
}

// AccountProvider resolves an authenticated identity to its custodial account.
type AccountProvider interface {
	GetAccount(ctx context.Context, identity string) (entity.Account, error)
}
