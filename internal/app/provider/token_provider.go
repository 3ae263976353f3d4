package provider

import (
	"fmt"
	"sort"

	"batch_payout/internal/app/port"
	"batch_payout/internal/domain/entity"
	networkdefinition "batch_payout/internal/infrastructure/network/definition"
	"batch_payout/internal/pkg/utils"
)

// TokenOverrideLoader supplies additional or replacement token specs for a network.
type TokenOverrideLoader interface {
	LoadOverrides(network entity.NetworkConfig) ([]entity.TokenSpec, error)
}

type tokenRegistryImpl struct {
	// network identifier -> lower-cased symbol -> spec; never mutated after construction
	tokens map[string]map[string]entity.TokenSpec
	logger port.Logger
}

// NewTokenRegistry builds the registry from the built-in tables of networks, applying
// overrides from loader when it is non-nil.
func NewTokenRegistry(networks []entity.NetworkConfig, loader TokenOverrideLoader, logger port.Logger) (port.TokenRegistry, error) {
	r := &tokenRegistryImpl{
		tokens: make(map[string]map[string]entity.TokenSpec, len(networks)),
		logger: logger,
	}

	for _, network := range networks {
		table := make(map[string]entity.TokenSpec)
		for _, spec := range networkdefinition.Tokens(network.Identifier) {
			table[spec.Symbol] = spec
		}

		if loader != nil {
			overrides, err := loader.LoadOverrides(network)
			if err != nil {
				logger.Error("Failed to load token overrides", "network", network.Identifier, "error", err)
				return nil, fmt.Errorf("token overrides for %s: %w", network.Identifier, err)
			}
			for _, spec := range overrides {
				if builtin, ok := table[spec.Symbol]; ok {
					if err := checkOverride(builtin, spec); err != nil {
						logger.Error("Rejected token override", "network", network.Identifier, "symbol", spec.Symbol, "error", err)
						return nil, fmt.Errorf("token overrides for %s: %w", network.Identifier, err)
					}
				}
				table[spec.Symbol] = spec
			}
		}

		r.tokens[network.Identifier] = table
		logger.Debug("Token registry initialised for network", "network", network.Identifier, "tokens", len(table))
	}
	return r, nil
}

// checkOverride rejects overrides that would change how a built-in token is paid out.
// Only the contract address may be replaced.
func checkOverride(builtin, override entity.TokenSpec) error {
	if builtin.Native != override.Native {
		return fmt.Errorf("override of %s changes native flag from %t to %t", builtin.Symbol, builtin.Native, override.Native)
	}
	if builtin.Decimals != override.Decimals {
		return fmt.Errorf("override of %s changes decimals from %d to %d", builtin.Symbol, builtin.Decimals, override.Decimals)
	}
	return nil
}

// Resolve implements port.TokenRegistry.
func (r *tokenRegistryImpl) Resolve(networkIdentifier, symbol string) (entity.TokenSpec, error) {
	normalized := utils.NormalizeSymbol(symbol)
	if spec, ok := r.tokens[networkIdentifier][normalized]; ok {
		return spec, nil
	}
	return entity.TokenSpec{}, entity.NewFlowError(entity.ErrUnknownToken,
		fmt.Sprintf("Unsupported token: %s", symbol), nil)
}

// List implements port.TokenRegistry.
func (r *tokenRegistryImpl) List(networkIdentifier string) []entity.TokenSpec {
	table := r.tokens[networkIdentifier]
	specs := make([]entity.TokenSpec, 0, len(table))
	for _, spec := range table {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Symbol < specs[j].Symbol })
	return specs
}
