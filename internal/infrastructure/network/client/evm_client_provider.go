package client

import (
	"fmt"
	"sync"
	"time"

	"batch_payout/internal/app/port"
	"batch_payout/internal/domain/entity"
	"batch_payout/internal/infrastructure/configloader"

	"golang.org/x/time/rate"
)

// evmClientProvider implements the port.ChainClientProvider interface.
type evmClientProvider struct {
	clients map[uint64]port.ChainClient
	mu      sync.Mutex
	logger  port.Logger
	opts    Options
	dial    func(entity.NetworkConfig, Options) (port.ChainClient, error)
}

// NewEVMClientProvider creates a new EVMClientProvider.
func NewEVMClientProvider(cfg *configloader.Config, logger port.Logger) port.ChainClientProvider {
	return &evmClientProvider{
		clients: make(map[uint64]port.ChainClient),
		logger:  logger,
		opts: Options{
			ConnectionTimeout:   time.Duration(cfg.Performance.RPCConnectionTimeoutSeconds) * time.Second,
			RPCCallTimeout:      time.Duration(cfg.Performance.RPCCallTimeoutSeconds) * time.Second,
			ReceiptPollInterval: time.Duration(cfg.Transfer.ReceiptPollIntervalMillis) * time.Millisecond,
			RateLimit:           rate.Limit(cfg.Performance.RPCRateLimit),
			Burst:               cfg.Performance.RPCBurstLimit,
			Logger:              logger,
		},
		dial: func(n entity.NetworkConfig, o Options) (port.ChainClient, error) {
			return NewEVMClient(n, o)
		},
	}
}

// GetClient retrieves a chain client for the given network.
// It caches clients to avoid reconnecting repeatedly.
func (p *evmClientProvider) GetClient(network entity.NetworkConfig) (port.ChainClient, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if client, exists := p.clients[network.ChainID]; exists {
		return client, nil
	}

	p.logger.Info("Creating new EVM client", "network", network.Name, "rpc_primary", network.RPCURL)
	newClient, err := p.dial(network, p.opts)
	if err != nil {
		p.logger.Error("Failed to create EVM client", "network", network.Name, "error", err)
		return nil, fmt.Errorf("failed to create EVM client for %s: %w", network.Name, err)
	}

	p.clients[network.ChainID] = newClient
	p.logger.Info("Successfully created and cached new EVM client", "network", network.Name)
	return newClient, nil
}

// Close closes all cached clients.
func (p *evmClientProvider) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for chainID, client := range p.clients {
		if closer, ok := client.(interface{ Close() }); ok {
			closer.Close()
		}
		delete(p.clients, chainID)
	}
}
