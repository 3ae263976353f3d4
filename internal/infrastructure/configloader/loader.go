package configloader

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"batch_payout/internal/pkg/utils"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds server-specific configurations.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
	// AllowedOrigins restricts CORS; empty means any origin.
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

// LoggingConfig holds logging-specific configurations.
type LoggingConfig struct {
	Level       string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
	Development bool   `yaml:"development"`
}

// NetworkConfig selects between Base mainnet and Base Sepolia.
type NetworkConfig struct {
	UseMainnet    bool   `yaml:"useMainnet"`
	MainnetRPCURL string `yaml:"mainnetRpcUrl"`
	TestnetRPCURL string `yaml:"testnetRpcUrl"`
}

// WalletServiceConfig holds the custodial wallet API settings.
type WalletServiceConfig struct {
	BaseURL              string  `yaml:"baseURL"`
	APIKey               string  `yaml:"apiKey"`
	RequestTimeoutMillis int64   `yaml:"requestTimeoutMillis"`
	RateLimit            float64 `yaml:"rateLimit"` // requests per second
	BurstLimit           int     `yaml:"burstLimit"`
}

// TransferConfig holds the batch transfer flow settings.
type TransferConfig struct {
	// SpenderAddress is the batch payout contract that receives allowances and pays recipients.
	SpenderAddress            string `yaml:"spenderAddress"`
	MaxRecipients             int    `yaml:"maxRecipients"`
	MaxRecipientsPerTx        int    `yaml:"maxRecipientsPerTx"`
	ApprovalTimeoutSeconds    int    `yaml:"approvalTimeoutSeconds"`
	ExecutionTimeoutSeconds   int    `yaml:"executionTimeoutSeconds"`
	ReceiptPollIntervalMillis int64  `yaml:"receiptPollIntervalMillis"`
	SerializePerAccount       *bool  `yaml:"serializePerAccount"`
}

// PerformanceConfig holds RPC related limits.
type PerformanceConfig struct {
	RPCCallTimeoutSeconds       int     `yaml:"rpc_call_timeout_seconds"`
	RPCConnectionTimeoutSeconds int     `yaml:"rpc_connection_timeout_seconds"`
	RPCRateLimit                float64 `yaml:"rpc_rate_limit"`
	RPCBurstLimit               int     `yaml:"rpc_burst_limit"`
}

// CacheConfig holds configuration for caching.
type CacheConfig struct {
	AccountTTLMinutes      int `yaml:"accountTTLMinutes"`
	CleanupIntervalMinutes int `yaml:"cleanupIntervalMinutes"`
}

// SessionConfig configures how the authenticated identity is read from requests.
type SessionConfig struct {
	Header string `yaml:"header"`
}

// TokensConfig points at optional token override files.
type TokensConfig struct {
	Directory string `yaml:"directory"`
}

// SwaggerConfig holds configuration for Swagger UI.
type SwaggerConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Path     string `yaml:"path"`
	SpecFile string `yaml:"specFile"`
}

// MetricsConfig toggles the Prometheus endpoint.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Config is the top-level configuration structure.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Logging       LoggingConfig       `yaml:"logging"`
	Network       NetworkConfig       `yaml:"network"`
	WalletService WalletServiceConfig `yaml:"walletService"`
	Transfer      TransferConfig      `yaml:"transfer"`
	Performance   PerformanceConfig   `yaml:"performance"`
	Cache         CacheConfig         `yaml:"cache"`
	Session       SessionConfig       `yaml:"session"`
	Tokens        TokensConfig        `yaml:"tokens"`
	Swagger       SwaggerConfig       `yaml:"swagger"`
	Metrics       MetricsConfig       `yaml:"metrics"`
}

// SerializePerAccount reports whether transfers of one account must run one at a time.
func (c *Config) SerializePerAccount() bool {
	return c.Transfer.SerializePerAccount == nil || *c.Transfer.SerializePerAccount
}

// Load reads the YAML configuration file from the given path, applies environment
// overrides and defaults, and validates the result. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg, err := read(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logrus.Infof("Configuration loaded (mainnet=%t, port=%s)", cfg.Network.UseMainnet, cfg.Server.Port)
	return cfg, nil
}

// LoadOffline is Load without validation, for commands that never reach the
// wallet service or submit transactions.
func LoadOffline(path string) (*Config, error) {
	return read(path)
}

func read(path string) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logrus.Warnf("Config file %s not found, using environment and defaults", path)
	case err != nil:
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, os.LookupEnv); err != nil {
		return nil, err
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("USE_MAINNET"); ok {
		useMainnet, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid USE_MAINNET value %q: %w", v, err)
		}
		cfg.Network.UseMainnet = useMainnet
	}
	if v, ok := get("BASE_NODE_URL"); ok {
		cfg.Network.MainnetRPCURL = v
	}
	if v, ok := get("BASE_SEPOLIA_NODE_URL"); ok {
		cfg.Network.TestnetRPCURL = v
	}
	if v, ok := get("GASLITE_DROP_ADDRESS"); ok {
		cfg.Transfer.SpenderAddress = v
	}
	if v, ok := get("WALLET_API_URL"); ok {
		cfg.WalletService.BaseURL = v
	}
	if v, ok := get("WALLET_API_KEY"); ok {
		cfg.WalletService.APIKey = v
	}
	if v, ok := get("SERVER_PORT"); ok {
		cfg.Server.Port = v
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.Logging.Level = v
	}
	return nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == "" {
		cfg.Server.Port = "8080"
	}
	if cfg.Server.ReadTimeout <= 0 {
		cfg.Server.ReadTimeout = 15
	}
	if cfg.Server.WriteTimeout <= 0 {
		// covers approval and execution receipt waits
		cfg.Server.WriteTimeout = 600
	}
	if cfg.Server.IdleTimeout <= 0 {
		cfg.Server.IdleTimeout = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	if cfg.WalletService.RequestTimeoutMillis <= 0 {
		cfg.WalletService.RequestTimeoutMillis = 30000
	}
	if cfg.WalletService.RateLimit <= 0 {
		cfg.WalletService.RateLimit = 5
	}
	if cfg.WalletService.BurstLimit <= 0 {
		cfg.WalletService.BurstLimit = 5
	}

	if cfg.Transfer.MaxRecipients <= 0 {
		cfg.Transfer.MaxRecipients = 100
	}
	if cfg.Transfer.MaxRecipientsPerTx <= 0 {
		cfg.Transfer.MaxRecipientsPerTx = cfg.Transfer.MaxRecipients
	}
	if cfg.Transfer.ApprovalTimeoutSeconds <= 0 {
		cfg.Transfer.ApprovalTimeoutSeconds = 120
	}
	if cfg.Transfer.ExecutionTimeoutSeconds <= 0 {
		cfg.Transfer.ExecutionTimeoutSeconds = 180
	}
	if cfg.Transfer.ReceiptPollIntervalMillis <= 0 {
		cfg.Transfer.ReceiptPollIntervalMillis = 1000
	}

	if cfg.Performance.RPCCallTimeoutSeconds <= 0 {
		cfg.Performance.RPCCallTimeoutSeconds = 10
	}
	if cfg.Performance.RPCConnectionTimeoutSeconds <= 0 {
		cfg.Performance.RPCConnectionTimeoutSeconds = 10
	}
	if cfg.Performance.RPCRateLimit <= 0 {
		cfg.Performance.RPCRateLimit = 20
	}
	if cfg.Performance.RPCBurstLimit <= 0 {
		cfg.Performance.RPCBurstLimit = 10
	}

	if cfg.Cache.AccountTTLMinutes <= 0 {
		cfg.Cache.AccountTTLMinutes = 30
	}
	if cfg.Cache.CleanupIntervalMinutes <= 0 {
		cfg.Cache.CleanupIntervalMinutes = 60
	}
	if cfg.Session.Header == "" {
		cfg.Session.Header = "X-User-Id"
	}
	if cfg.Swagger.Path == "" {
		cfg.Swagger.Path = "/swagger"
	}
	if cfg.Swagger.SpecFile == "" {
		cfg.Swagger.SpecFile = "./docs/swagger.yaml"
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = "/metrics"
	}
}

// Validate checks settings that have no sensible default.
func (c *Config) Validate() error {
	var problems []string

	if c.Transfer.MaxRecipientsPerTx > c.Transfer.MaxRecipients {
		logrus.Warnf("transfer.maxRecipientsPerTx (%d) exceeds maxRecipients (%d), clamping",
			c.Transfer.MaxRecipientsPerTx, c.Transfer.MaxRecipients)
		c.Transfer.MaxRecipientsPerTx = c.Transfer.MaxRecipients
	}
	if c.Transfer.SpenderAddress == "" {
		problems = append(problems, "transfer.spenderAddress (GASLITE_DROP_ADDRESS) is required")
	} else if !utils.IsEVMAddress(c.Transfer.SpenderAddress) {
		problems = append(problems, fmt.Sprintf("transfer.spenderAddress %q is not a valid address", c.Transfer.SpenderAddress))
	}
	if c.WalletService.BaseURL == "" {
		problems = append(problems, "walletService.baseURL (WALLET_API_URL) is required")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
