package entity

import "math/big"

// ZeroAddress represents the Ethereum zero address.
const ZeroAddress = "0x0000000000000000000000000000000000000000"

// TransactionSpec describes a contract call to be signed and broadcast by the wallet service.
type TransactionSpec struct {
	To    string
	Data  []byte
	Value *big.Int
}

// Receipt is the chain-reported outcome of a mined transaction.
type Receipt struct {
	TransactionHash string
	Success         bool
	BlockNumber     uint64
	GasUsed         uint64
}
