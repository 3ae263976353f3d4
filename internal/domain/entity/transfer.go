package entity

import "math/big"

// Recipient is a single payout row as submitted by the user.
type Recipient struct {
	Address string `json:"address"`
	Amount  string `json:"amount"`
}

// TransferRequest is the body of a batch transfer request.
type TransferRequest struct {
	Recipients []Recipient `json:"recipients"`
	Token      string      `json:"token"`
}

// TransferPlan is the validated, base-unit form of a TransferRequest.
// It lives only for the duration of one request.
type TransferPlan struct {
	Token     TokenSpec
	Addresses []string
	Amounts   []*big.Int
	Total     *big.Int
}

// BatchOutcome describes one submitted batch-payout transaction.
type BatchOutcome struct {
	TransactionHash string `json:"transactionHash"`
	ExplorerURL     string `json:"explorerUrl,omitempty"`
	Recipients      int    `json:"recipients"`
	Amount          string `json:"amount"`
	BlockNumber     uint64 `json:"blockNumber"`
	Success         bool   `json:"success"`
}

// TransferResult is returned to the caller once a batch transfer finished.
type TransferResult struct {
	Success                 bool           `json:"success"`
	Token                   string         `json:"token"`
	Network                 string         `json:"network"`
	TotalAmount             string         `json:"totalAmount"`
	TransactionHashes       []string       `json:"transactionHashes"`
	ApprovalTransactionHash string         `json:"approvalTransactionHash,omitempty"`
	ExplorerURLs            []string       `json:"explorerUrls,omitempty"`
	Batches                 []BatchOutcome `json:"batches"`
}

// TransferStage is a state of the transfer orchestration state machine.
type TransferStage int

const (
	StageValidating TransferStage = iota
	StageCheckingBalance
	StageApproving
	StageExecuting
	StageCompleted
	StageFailed
)

func (s TransferStage) String() string {
	switch s {
	case StageValidating:
		return "validating"
	case StageCheckingBalance:
		return "checking_balance"
	case StageApproving:
		return "approving"
	case StageExecuting:
		return "executing"
	case StageCompleted:
		return "completed"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Terminal reports whether no further transition can leave the stage.
func (s TransferStage) Terminal() bool {
	return s == StageCompleted || s == StageFailed
}
