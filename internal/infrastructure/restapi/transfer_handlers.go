package restapi

import (
	"context"
	"errors"
	"io"
	"net/http"

	"batch_payout/internal/app/port"
	"batch_payout/internal/domain/entity"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	maxCSVUploadBytes    = 1 << 20
	maxTransferBodyBytes = 1 << 20
)

// BalanceReader reports the balance of a custodial account.
type BalanceReader interface {
	GetAccountBalance(ctx context.Context, account entity.Account, tokenSymbol string) (entity.AccountBalance, error)
}

// RecipientParser turns an uploaded recipient list into transfer recipients.
type RecipientParser interface {
	ParseRecipients(r io.Reader) ([]entity.Recipient, error)
}

// TransferResponse is the body of a successful transfer.
type TransferResponse struct {
	Recipients []entity.Recipient    `json:"recipients"`
	Result     entity.TransferResult `json:"result"`
}

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
}

// AccountResponse describes the caller's custodial account.
type AccountResponse struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Network string `json:"network"`
}

// RecipientsResponse carries recipients parsed from an upload.
type RecipientsResponse struct {
	Recipients []entity.Recipient `json:"recipients"`
}

// TransferHandler serves the account and transfer endpoints.
type TransferHandler struct {
	transfers  port.TransferService
	accounts   port.AccountProvider
	balances   BalanceReader
	recipients RecipientParser
	registry   port.TokenRegistry
	network    entity.NetworkConfig
	logger     *zap.Logger
}

// NewTransferHandler creates a new TransferHandler.
func NewTransferHandler(
	transfers port.TransferService,
	accounts port.AccountProvider,
	balances BalanceReader,
	recipients RecipientParser,
	registry port.TokenRegistry,
	network entity.NetworkConfig,
	logger *zap.Logger,
) *TransferHandler {
	return &TransferHandler{
		transfers:  transfers,
		accounts:   accounts,
		balances:   balances,
		recipients: recipients,
		registry:   registry,
		network:    network,
		logger:     logger.Named("TransferHandler"),
	}
}

// Transfer godoc
// @Summary Batch transfer ETH or an ERC-20 token to many recipients
// @Accept json
// @Produce json
// @Param request body entity.TransferRequest true "Recipients and token"
// @Success 200 {object} TransferResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /account/transfer [post]
func (h *TransferHandler) Transfer(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxTransferBodyBytes)

	var req entity.TransferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("Transfer request body too large", zap.Int64("limit", tooLarge.Limit))
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Request body too large"})
			return
		}
		h.logger.Warn("Malformed transfer request", zap.Error(err))
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid request body"})
		return
	}

	result, err := h.transfers.Transfer(c.Request.Context(), identity(c), req)
	if err != nil {
		h.respondError(c, err, "Failed to process transfer")
		return
	}
	c.JSON(http.StatusOK, TransferResponse{Recipients: req.Recipients, Result: result})
}

// GetAccount godoc
// @Summary Custodial account of the caller
// @Produce json
// @Success 200 {object} AccountResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /account [get]
func (h *TransferHandler) GetAccount(c *gin.Context) {
	account, err := h.accounts.GetAccount(c.Request.Context(), identity(c))
	if err != nil {
		h.respondError(c, err, "Failed to fetch account")
		return
	}
	c.JSON(http.StatusOK, AccountResponse{Name: account.Name, Address: account.Address, Network: h.network.Identifier})
}

// GetBalance godoc
// @Summary Balance of the caller's custodial account
// @Produce json
// @Param token query string false "Token symbol" default(eth)
// @Success 200 {object} entity.AccountBalance
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Failure 500 {object} ErrorResponse
// @Router /account/balance [get]
func (h *TransferHandler) GetBalance(c *gin.Context) {
	token := c.DefaultQuery("token", "eth")
	account, err := h.accounts.GetAccount(c.Request.Context(), identity(c))
	if err != nil {
		h.respondError(c, err, "Failed to fetch account")
		return
	}
	balance, err := h.balances.GetAccountBalance(c.Request.Context(), account, token)
	if err != nil {
		h.respondError(c, err, "Failed to fetch balance")
		return
	}
	c.JSON(http.StatusOK, balance)
}

// ParseRecipients godoc
// @Summary Parse an "address,amount" CSV upload into recipients
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Success 200 {object} RecipientsResponse
// @Failure 400 {object} ErrorResponse
// @Failure 401 {object} ErrorResponse
// @Router /account/recipients/csv [post]
func (h *TransferHandler) ParseRecipients(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "A CSV file is required in the \"file\" field"})
		return
	}
	if fileHeader.Size > maxCSVUploadBytes {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "CSV file is too large"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.respondError(c, err, "Failed to read CSV file")
		return
	}
	defer file.Close()

	recipients, err := h.recipients.ParseRecipients(io.LimitReader(file, maxCSVUploadBytes))
	if err != nil {
		h.respondError(c, err, "Failed to parse CSV file")
		return
	}
	c.JSON(http.StatusOK, RecipientsResponse{Recipients: recipients})
}

// ListTokens godoc
// @Summary Tokens transferable on the active network
// @Produce json
// @Success 200 {array} entity.TokenSpec
// @Router /tokens [get]
func (h *TransferHandler) ListTokens(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.List(h.network.Identifier))
}

// GetNetwork godoc
// @Summary Network the service transfers on
// @Produce json
// @Success 200 {object} entity.NetworkConfig
// @Router /network [get]
func (h *TransferHandler) GetNetwork(c *gin.Context) {
	c.JSON(http.StatusOK, h.network)
}

func (h *TransferHandler) respondError(c *gin.Context, err error, fallback string) {
	status := http.StatusInternalServerError
	if entity.IsClientError(err) {
		status = http.StatusBadRequest
	}

	message := err.Error()
	if message == "" {
		message = fallback
	}
	if status == http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.String("identity", identity(c)), zap.Error(err))
	}
	c.JSON(status, ErrorResponse{Error: message})
}
