package service

import (
	"fmt"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

// ERC20 ABI minimal part for approve
const erc20ApproveABI = `[{"constant":false,"inputs":[{"name":"_spender","type":"address"},{"name":"_value","type":"uint256"}],"name":"approve","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"nonpayable","type":"function"}]`

// Batch payout contract (GasliteDrop).
const batchPayoutABI = `[
{"inputs":[{"name":"_token","type":"address"},{"name":"_addresses","type":"address[]"},{"name":"_amounts","type":"uint256[]"},{"name":"_totalAmount","type":"uint256"}],"name":"airdropERC20","outputs":[],"stateMutability":"payable","type":"function"},
{"inputs":[{"name":"_addresses","type":"address[]"},{"name":"_amounts","type":"uint256[]"}],"name":"airdropETH","outputs":[],"stateMutability":"payable","type":"function"}
]`

const (
	methodApprove      = "approve"
	methodAirdropERC20 = "airdropERC20"
	methodAirdropETH   = "airdropETH"
)

var (
	parsedApproveABI     abi.ABI
	parsedBatchPayoutABI abi.ABI
	parseABIOnce         sync.Once
)

func initContractABIs() {
	parseABIOnce.Do(func() {
		var err error
		parsedApproveABI, err = abi.JSON(strings.NewReader(erc20ApproveABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse ERC20 approve ABI: %v", err))
		}
		parsedBatchPayoutABI, err = abi.JSON(strings.NewReader(batchPayoutABI))
		if err != nil {
			panic(fmt.Sprintf("failed to parse batch payout ABI: %v", err))
		}
	})
}
