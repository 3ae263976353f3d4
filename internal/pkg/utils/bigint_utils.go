package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseUnits converts a human-readable decimal amount into integer base units.
// Example: amount="1.5", decimals=6 => 1500000
// The amount must be strictly positive and carry no more fractional digits than decimals.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	trimmed := strings.TrimSpace(amount)
	if trimmed == "" {
		return nil, fmt.Errorf("amount is empty")
	}
	if strings.ContainsAny(trimmed, "eE") {
		return nil, fmt.Errorf("amount %q must be a plain decimal number", amount)
	}

	value, err := decimal.NewFromString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("amount %q is not a valid decimal number", amount)
	}
	if !value.IsPositive() {
		return nil, fmt.Errorf("amount %q must be greater than zero", amount)
	}

	scaled := value.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", amount, decimals)
	}
	return scaled.BigInt(), nil
}

// ParseBalance converts a non-negative decimal balance into base units, dropping any
// precision beyond decimals.
func ParseBalance(balance string, decimals uint8) (*big.Int, error) {
	value, err := decimal.NewFromString(strings.TrimSpace(balance))
	if err != nil {
		return nil, fmt.Errorf("balance %q is not a valid decimal number", balance)
	}
	if value.IsNegative() {
		return nil, fmt.Errorf("balance %q is negative", balance)
	}
	return value.Shift(int32(decimals)).BigInt(), nil
}

// FormatUnits converts base units back to a human-readable decimal string,
// trimming trailing zeros. Example: amount=1234500000000000000, decimals=18 => "1.2345"
func FormatUnits(amount *big.Int, decimals uint8) string {
	if amount == nil {
		return "0"
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).String()
}

// SumBigInts returns the sum of values; nil entries count as zero.
func SumBigInts(values []*big.Int) *big.Int {
	total := new(big.Int)
	for _, v := range values {
		if v != nil {
			total.Add(total, v)
		}
	}
	return total
}
