package networkdefinition

import "batch_payout/internal/domain/entity"

// NativeTokenSymbol is the registry symbol of the chain's native asset on every supported network.
const NativeTokenSymbol = "eth"

var builtinTokens = map[string][]entity.TokenSpec{ //nolint:gochecknoglobals // Read-only table
	Base.Identifier: {
		{Symbol: NativeTokenSymbol, Decimals: 18, Native: true},
		{Symbol: "usdc", ContractAddress: "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", Decimals: 6},
		{Symbol: "eurc", ContractAddress: "0x60a3E35Cc302bFA44Cb288Bc5a4F316Fdb1adb42", Decimals: 6},
	},
	BaseSepolia.Identifier: {
		{Symbol: NativeTokenSymbol, Decimals: 18, Native: true},
		{Symbol: "usdc", ContractAddress: "0x036CbD53842c5426634e7929541eC2318f3dCF7e", Decimals: 6},
		{Symbol: "eurc", ContractAddress: "0x808456652fdb597867f38412077A9182bf77359F", Decimals: 6},
	},
}

// Tokens returns a copy of the built-in token table of a network.
func Tokens(networkIdentifier string) []entity.TokenSpec {
	return append([]entity.TokenSpec(nil), builtinTokens[networkIdentifier]...)
}
