package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// WalletHandler handles wallet state and read-side endpoints.
type WalletHandler struct {
	walletSvc ports.WalletService
}

// NewWalletHandler creates a new WalletHandler.
func NewWalletHandler(walletSvc ports.WalletService) *WalletHandler {
	return &WalletHandler{walletSvc: walletSvc}
}

// Create handles POST /api/v1/wallets.
func (h *WalletHandler) Create(c *gin.Context) {
	created, err := h.walletSvc.Create(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.ToCreatedWalletResponse(created))
}

// List handles GET /api/v1/wallets.
func (h *WalletHandler) List(c *gin.Context) {
	wallets, err := h.walletSvc.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, dto.ToWalletResponses(wallets), len(wallets))
}

// Get handles GET /api/v1/wallets/:address.
func (h *WalletHandler) Get(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}
	w, err := h.walletSvc.Get(c.Request.Context(), address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToWalletResponse(w))
}

// Block handles DELETE /api/v1/wallets/:address. Admin only.
func (h *WalletHandler) Block(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}
	w, err := h.walletSvc.Block(c.Request.Context(), address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToWalletResponse(w))
}

// ListBalances handles GET /api/v1/wallets/:address/balances.
func (h *WalletHandler) ListBalances(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}
	balances, err := h.walletSvc.ListBalances(c.Request.Context(), address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, dto.ToBalanceResponses(balances), len(balances))
}

// GetBalance handles GET /api/v1/wallets/:address/balances/:currency_id.
func (h *WalletHandler) GetBalance(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}
	currencyID, ok := idParam(c, "currency_id")
	if !ok {
		return
	}
	b, err := h.walletSvc.GetBalance(c.Request.Context(), address, currencyID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToBalanceResponse(b))
}

// ListMovements handles GET /api/v1/wallets/:address/movements.
func (h *WalletHandler) ListMovements(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}
	movements, err := h.walletSvc.ListMovements(c.Request.Context(), address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, dto.ToMovementResponses(movements), len(movements))
}

// ListConversions handles GET /api/v1/wallets/:address/conversions.
func (h *WalletHandler) ListConversions(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}
	conversions, err := h.walletSvc.ListConversions(c.Request.Context(), address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, dto.ToConversionResponses(conversions), len(conversions))
}

// ListTransfers handles GET /api/v1/wallets/:address/transfers.
func (h *WalletHandler) ListTransfers(c *gin.Context) {
	address, ok := addressParam(c, "address")
	if !ok {
		return
	}
	transfers, err := h.walletSvc.ListTransfers(c.Request.Context(), address)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, dto.ToTransferResponses(transfers), len(transfers))
}

// GetTransfer handles GET /api/v1/transfers/:id.
func (h *WalletHandler) GetTransfer(c *gin.Context) {
	id, ok := idParam(c, "id")
	if !ok {
		return
	}
	t, err := h.walletSvc.GetTransfer(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToTransferResponse(t))
}
