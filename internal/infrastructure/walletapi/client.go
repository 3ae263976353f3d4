package walletapi

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/url"
	"strings"
	"time"

	"batch_payout/internal/app/port"
	"batch_payout/internal/domain/entity"
	"batch_payout/internal/infrastructure/configloader"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	jsoniter "github.com/json-iterator/go"
	"github.com/valyala/fasthttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// IdempotencyHeader carries the caller supplied idempotency key on mutating requests.
const IdempotencyHeader = "X-Idempotency-Key"

// ErrAccountNotFound is returned when no custodial account exists under a name.
var ErrAccountNotFound = errors.New("wallet account not found")

type accountResponse struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

type sendTransactionRequest struct {
	Transaction string `json:"transaction"`
	Network     string `json:"network"`
}

type sendTransactionResponse struct {
	TransactionHash string `json:"transactionHash"`
}

type errorResponse struct {
	ErrorType    string `json:"errorType"`
	ErrorMessage string `json:"errorMessage"`
}

// Client talks to the custodial wallet / transaction API.
type Client struct {
	client   *fasthttp.Client
	baseURL  string
	apiKey   string
	timeout  time.Duration
	limiter  *rate.Limiter
	chainIDs map[string]uint64 // network identifier -> chain id
	logger   *zap.Logger
}

// NewClient creates a wallet service client. networks lists every network the
// service may be asked to submit to.
func NewClient(cfg configloader.WalletServiceConfig, networks []entity.NetworkConfig, logger *zap.Logger) *Client {
	chainIDs := make(map[string]uint64, len(networks))
	for _, n := range networks {
		chainIDs[n.Identifier] = n.ChainID
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.BurstLimit, 1))
	}
	return &Client{
		client:   &fasthttp.Client{Name: "batch-payout"},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:   cfg.APIKey,
		timeout:  time.Duration(cfg.RequestTimeoutMillis) * time.Millisecond,
		limiter:  limiter,
		chainIDs: chainIDs,
		logger:   logger.Named("WalletServiceClient"),
	}
}

// GetAccount implements port.WalletService.
func (c *Client) GetAccount(ctx context.Context, name string) (entity.Account, error) {
	if strings.TrimSpace(name) == "" {
		return entity.Account{}, errors.New("account name cannot be empty")
	}

	requestURL := fmt.Sprintf("%s/evm/accounts/by-name/%s", c.baseURL, url.PathEscape(name))
	var out accountResponse
	status, err := c.do(ctx, fasthttp.MethodGet, requestURL, nil, "", &out)
	if err != nil {
		if status == fasthttp.StatusNotFound {
			return entity.Account{}, fmt.Errorf("%w: %s", ErrAccountNotFound, name)
		}
		return entity.Account{}, err
	}
	if !common.IsHexAddress(out.Address) {
		return entity.Account{}, fmt.Errorf("wallet service returned invalid address %q for account %s", out.Address, name)
	}
	if out.Name == "" {
		out.Name = name
	}
	return entity.Account{Name: out.Name, Address: out.Address}, nil
}

// SendTransaction implements port.WalletService. The transaction is sent as an unsigned
// EIP-1559 envelope; the wallet service fills in nonce and fees, signs and broadcasts it.
func (c *Client) SendTransaction(ctx context.Context, account entity.Account, tx entity.TransactionSpec, network string, idempotencyKey string) (string, error) {
	if idempotencyKey == "" {
		return "", errors.New("idempotency key is required")
	}
	chainID, ok := c.chainIDs[network]
	if !ok {
		return "", fmt.Errorf("unsupported network %q", network)
	}
	serialized, err := EncodeUnsignedTransaction(chainID, tx)
	if err != nil {
		return "", err
	}

	body, err := json.Marshal(sendTransactionRequest{Transaction: serialized, Network: network})
	if err != nil {
		return "", fmt.Errorf("failed to marshal send transaction request: %w", err)
	}

	requestURL := fmt.Sprintf("%s/evm/accounts/%s/send/transaction", c.baseURL, account.Address)
	var out sendTransactionResponse
	if _, err := c.do(ctx, fasthttp.MethodPost, requestURL, body, idempotencyKey, &out); err != nil {
		return "", err
	}
	if out.TransactionHash == "" {
		return "", errors.New("wallet service returned an empty transaction hash")
	}

	c.logger.Info("Transaction submitted",
		zap.String("account", account.Address),
		zap.String("to", tx.To),
		zap.String("network", network),
		zap.String("txHash", out.TransactionHash),
		zap.String("idempotencyKey", idempotencyKey))
	return out.TransactionHash, nil
}

// EncodeUnsignedTransaction serializes tx as a 0x-prefixed typed EIP-1559 envelope.
func EncodeUnsignedTransaction(chainID uint64, tx entity.TransactionSpec) (string, error) {
	if !common.IsHexAddress(tx.To) {
		return "", fmt.Errorf("invalid transaction recipient %q", tx.To)
	}
	to := common.HexToAddress(tx.To)
	value := new(big.Int)
	if tx.Value != nil {
		value.Set(tx.Value)
	}

	raw, err := types.NewTx(&types.DynamicFeeTx{
		ChainID:   new(big.Int).SetUint64(chainID),
		GasTipCap: new(big.Int),
		GasFeeCap: new(big.Int),
		To:        &to,
		Value:     value,
		Data:      tx.Data,
	}).MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to encode transaction: %w", err)
	}
	return hexutil.Encode(raw), nil
}

func (c *Client) do(ctx context.Context, method, requestURL string, body []byte, idempotencyKey string, out any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("wallet service rate limiter: %w", err)
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	req.SetRequestURI(requestURL)
	req.Header.SetMethod(method)
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if idempotencyKey != "" {
		req.Header.Set(IdempotencyHeader, idempotencyKey)
	}
	if body != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(body)
	}

	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	c.logger.Debug("Requesting wallet service", zap.String("method", method), zap.String("url", requestURL))

	if deadline, ok := ctx.Deadline(); ok {
		if err := c.client.DoDeadline(req, resp, deadline); err != nil {
			c.logger.Error("Failed to execute request to wallet service", zap.String("url", requestURL), zap.Error(err))
			return 0, fmt.Errorf("failed to execute request to %s: %w", requestURL, err)
		}
	} else {
		if err := c.client.DoTimeout(req, resp, c.timeout); err != nil {
			c.logger.Error("Failed to execute request to wallet service (with default timeout)", zap.String("url", requestURL), zap.Error(err))
			return 0, fmt.Errorf("failed to execute request to %s with default timeout: %w", requestURL, err)
		}
	}

	status := resp.StatusCode()
	rawBody := resp.Body()
	if status < 200 || status >= 300 {
		c.logger.Error("Wallet service request failed",
			zap.String("url", requestURL),
			zap.Int("statusCode", status),
			zap.ByteString("responseBody", rawBody))
		var apiErr errorResponse
		if err := json.Unmarshal(rawBody, &apiErr); err == nil && apiErr.ErrorMessage != "" {
			return status, fmt.Errorf("wallet service request failed with status %d: %s", status, apiErr.ErrorMessage)
		}
		return status, fmt.Errorf("wallet service request failed with status %d: %s", status, truncate(string(rawBody), 256))
	}

	if out != nil {
		if err := json.Unmarshal(rawBody, out); err != nil {
			return status, fmt.Errorf("failed to unmarshal wallet service response from %s: %w", requestURL, err)
		}
	}
	return status, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

var _ port.WalletService = (*Client)(nil)
