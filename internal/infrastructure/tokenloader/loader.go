package tokenloader

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"batch_payout/internal/domain/entity"
	networkdefinition "batch_payout/internal/infrastructure/network/definition"
	"batch_payout/internal/pkg/utils"
)

// TokenFileLoader reads per-network token override files named <network identifier>.json.
type TokenFileLoader struct {
	tokenDirPath string
	loggerInfo   func(msg string, args ...any)
	loggerWarn   func(msg string, args ...any)
}

// NewTokenLoader creates a new TokenFileLoader. An empty directory disables overrides.
func NewTokenLoader(tokenDirPath string, loggerInfo func(msg string, args ...any), loggerWarn func(msg string, args ...any)) *TokenFileLoader {
	return &TokenFileLoader{
		tokenDirPath: tokenDirPath,
		loggerInfo:   loggerInfo,
		loggerWarn:   loggerWarn,
	}
}

// LoadOverrides returns the token specs declared for network. A missing directory or file yields
// no overrides. An unreadable or malformed file is an error, as is an entry without decimals or a
// non-native entry without a contract address. Entries with a mismatched chain id or an invalid
// contract address are skipped.
func (l *TokenFileLoader) LoadOverrides(network entity.NetworkConfig) ([]entity.TokenSpec, error) {
	if l.tokenDirPath == "" {
		return nil, nil
	}

	filePath := filepath.Join(l.tokenDirPath, network.Identifier+".json")
	data, err := os.ReadFile(filePath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.info("No token override file for network", "network_identifier", network.Identifier, "path", filePath)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read token file %s: %w", filePath, err)
	}

	var tokensInFile []entity.TokenInfo
	if err := json.Unmarshal(data, &tokensInFile); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tokens from %s: %w", filePath, err)
	}

	specs := make([]entity.TokenSpec, 0, len(tokensInFile))
	for _, token := range tokensInFile {
		symbol := utils.NormalizeSymbol(token.Symbol)
		if symbol == "" {
			l.warn("Token without symbol in file, skipping token.", "file", filePath, "token_address", token.Address)
			continue
		}
		if token.ChainID != 0 && token.ChainID != network.ChainID {
			l.warn("Token has mismatched ChainID in file, skipping token.",
				"file", filePath, "token_symbol", token.Symbol, "token_address", token.Address,
				"token_chain_id", token.ChainID,
				"expected_network_identifier", network.Identifier,
				"expected_chain_id", network.ChainID)
			continue
		}
		if token.Decimals == nil {
			return nil, fmt.Errorf("token %s in %s has no decimals", symbol, filePath)
		}
		if token.Address == "" {
			if symbol != networkdefinition.NativeTokenSymbol {
				return nil, fmt.Errorf("token %s in %s has no contract address; only %s may omit it",
					symbol, filePath, networkdefinition.NativeTokenSymbol)
			}
			specs = append(specs, entity.TokenSpec{Symbol: symbol, Decimals: *token.Decimals, Native: true})
			continue
		}
		if !utils.IsEVMAddress(token.Address) {
			l.warn("Token has invalid contract address in file, skipping token.",
				"file", filePath, "token_symbol", token.Symbol, "token_address", token.Address)
			continue
		}
		specs = append(specs, entity.TokenSpec{Symbol: symbol, ContractAddress: token.Address, Decimals: *token.Decimals})
	}

	l.info("Loaded token overrides for network from file",
		"network_identifier", network.Identifier,
		"file", filePath,
		"count", len(specs))
	return specs, nil
}

func (l *TokenFileLoader) info(msg string, args ...any) {
	if l.loggerInfo != nil {
		l.loggerInfo(msg, args...)
	}
}

func (l *TokenFileLoader) warn(msg string, args ...any) {
	if l.loggerWarn != nil {
		l.loggerWarn(msg, args...)
	}
}
