package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// LedgerHandler handles the balance-mutating endpoints. Private keys are
// hashed here so the engine only ever sees the hash.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
	walletSvc ports.WalletService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService, walletSvc ports.WalletService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc, walletSvc: walletSvc}
}

// Deposit handles POST /api/v1/wallets/:address/deposits.
func (h *LedgerHandler) Deposit(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}
	var req dto.DepositRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.ledgerSvc.Deposit(c.Request.Context(), ports.DepositRequest{
		Address:    address,
		CurrencyID: req.CurrencyID,
		Amount:     dto.ParseAmount(req.Amount),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToDepositResponse(result))
}

// Withdraw handles POST /api/v1/wallets/:address/withdrawals.
func (h *LedgerHandler) Withdraw(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}
	var req dto.WithdrawalRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.ledgerSvc.Withdraw(c.Request.Context(), ports.WithdrawalRequest{
		Address:    address,
		CurrencyID: req.CurrencyID,
		Amount:     dto.ParseAmount(req.Amount),
		SecretHash: h.walletSvc.HashSecret(req.PrivateKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToWithdrawalResponse(result))
}

// Convert handles POST /api/v1/wallets/:address/conversions.
func (h *LedgerHandler) Convert(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}
	var req dto.ConversionRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.ledgerSvc.Convert(c.Request.Context(), ports.ConversionRequest{
		Address:          address,
		SourceCurrencyID: req.SourceCurrencyID,
		DestCurrencyID:   req.DestCurrencyID,
		Amount:           dto.ParseAmount(req.Amount),
		SecretHash:       h.walletSvc.HashSecret(req.PrivateKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToConversionResultResponse(result))
}

// Transfer handles POST /api/v1/wallets/:address/transfers.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}
	var req dto.TransferRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		SourceAddress: address,
		DestAddress:   dto.NormalizeAddress(req.DestAddress),
		CurrencyID:    req.CurrencyID,
		Amount:        dto.ParseAmount(req.Amount),
		SecretHash:    h.walletSvc.HashSecret(req.PrivateKey),
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToTransferResultResponse(result))
}
