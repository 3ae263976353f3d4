package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"batch_payout/internal/app/port"
	"batch_payout/internal/domain/entity"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"
)

type accountProviderImpl struct {
	wallet port.WalletService
	cache  *cache.Cache
	group  singleflight.Group
	logger port.Logger
}

// NewAccountProvider creates an AccountProvider that resolves identities through the wallet
// service. Resolved accounts are cached for ttl; concurrent lookups of one identity share a call.
func NewAccountProvider(wallet port.WalletService, ttl, cleanupInterval time.Duration, logger port.Logger) port.AccountProvider {
	return &accountProviderImpl{
		wallet: wallet,
		cache:  cache.New(ttl, cleanupInterval),
		logger: logger,
	}
}

// GetAccount implements port.AccountProvider.
func (p *accountProviderImpl) GetAccount(ctx context.Context, identity string) (entity.Account, error) {
	identity = strings.TrimSpace(identity)
	if identity == "" {
		return entity.Account{}, entity.NewFlowError(entity.ErrAccountResolution, "Unauthorized", errors.New("empty identity"))
	}

	if cached, found := p.cache.Get(identity); found {
		p.logger.Debug("Account cache hit", "identity", identity)
		return cached.(entity.Account), nil
	}

	// The shared lookup outlives any single caller; each caller stops waiting on its own ctx.
	lookup := p.group.DoChan(identity, func() (any, error) {
		account, err := p.wallet.GetAccount(context.WithoutCancel(ctx), identity)
		if err != nil {
			return nil, err
		}
		p.cache.SetDefault(identity, account)
		return account, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return entity.Account{}, entity.NewFlowError(entity.ErrAccountResolution,
			fmt.Sprintf("Failed to resolve account: %v", ctx.Err()), ctx.Err())
	case res = <-lookup:
	}
	if res.Err != nil {
		p.logger.Error("Failed to resolve custodial account", "identity", identity, "error", res.Err)
		return entity.Account{}, entity.NewFlowError(entity.ErrAccountResolution,
			fmt.Sprintf("Failed to resolve account: %v", res.Err), res.Err)
	}

	account := res.Val.(entity.Account)
	p.logger.Debug("Account resolved", "identity", identity, "address", account.Address, "shared", res.Shared)
	return account, nil
}
