package utils

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

var evmAddressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// IsEVMAddress reports whether s is a 0x-prefixed, 40 hex digit address.
func IsEVMAddress(s string) bool {
	return evmAddressPattern.MatchString(s) && common.IsHexAddress(s)
}

// NormalizeSymbol lower-cases and trims a token symbol.
func NormalizeSymbol(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}
