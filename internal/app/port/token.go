package port

import "batch_payout/internal/domain/entity"

// TokenRegistry maps token symbols to their on-chain specs per network.
type TokenRegistry interface {
	// Resolve returns the spec of symbol on the given network or an entity.ErrUnknownToken error.
	Resolve(networkIdentifier, symbol string) (entity.TokenSpec, error)

	// List returns the tokens known on a network, ordered by symbol.
	List(networkIdentifier string) []entity.TokenSpec
}
