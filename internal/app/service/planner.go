package service

import (
	"fmt"
	"math/big"
	"strings"

	"batch_payout/internal/app/port"
	"batch_payout/internal/domain/entity"
	"batch_payout/internal/pkg/utils"
)

// DefaultMaxRecipients caps the recipients of one transfer request.
const DefaultMaxRecipients = 100

// Planner turns a TransferRequest into a TransferPlan in base units. It never touches the chain.
type Planner struct {
	registry      port.TokenRegistry
	network       entity.NetworkConfig
	maxRecipients int
}

// NewPlanner creates a Planner for network. maxRecipients <= 0 selects DefaultMaxRecipients.
func NewPlanner(registry port.TokenRegistry, network entity.NetworkConfig, maxRecipients int) *Planner {
	if maxRecipients <= 0 {
		maxRecipients = DefaultMaxRecipients
	}
	return &Planner{registry: registry, network: network, maxRecipients: maxRecipients}
}

// Plan validates req, resolves the token decimals and converts every amount to base units.
func (p *Planner) Plan(req entity.TransferRequest) (entity.TransferPlan, error) {
	if req.Recipients == nil || strings.TrimSpace(req.Token) == "" {
		return entity.TransferPlan{}, validationFailed("Missing required fields")
	}
	if len(req.Recipients) == 0 {
		return entity.TransferPlan{}, validationFailed("At least one recipient is required")
	}
	if len(req.Recipients) > p.maxRecipients {
		return entity.TransferPlan{}, validationFailed(fmt.Sprintf("Maximum of %d recipients allowed", p.maxRecipients))
	}

	spec, err := p.registry.Resolve(p.network.Identifier, req.Token)
	if err != nil {
		return entity.TransferPlan{}, err
	}

	plan := entity.TransferPlan{
		Token:     spec,
		Addresses: make([]string, len(req.Recipients)),
		Amounts:   make([]*big.Int, len(req.Recipients)),
		Total:     new(big.Int),
	}
	for i, recipient := range req.Recipients {
		address := strings.TrimSpace(recipient.Address)
		if !utils.IsEVMAddress(address) {
			return entity.TransferPlan{}, validationFailed(fmt.Sprintf("Invalid Ethereum address format in row %d: %s", i+1, recipient.Address))
		}
		amount, err := utils.ParseUnits(recipient.Amount, spec.Decimals)
		if err != nil {
			return entity.TransferPlan{}, entity.NewFlowError(entity.ErrValidation,
				fmt.Sprintf("Invalid amount in row %d: %v", i+1, err), err)
		}
		plan.Addresses[i] = address
		plan.Amounts[i] = amount
		plan.Total.Add(plan.Total, amount)
	}
	return plan, nil
}

// Network returns the network plans are made for.
func (p *Planner) Network() entity.NetworkConfig {
	return p.network
}

func validationFailed(message string) error {
	return entity.NewFlowError(entity.ErrValidation, message, nil)
}
