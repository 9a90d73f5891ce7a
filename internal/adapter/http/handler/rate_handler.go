package handler

import (
	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
)

// RateHandler serves the currency catalog and spot quotes.
type RateHandler struct {
	rateSvc ports.RateService
}

func NewRateHandler(rateSvc ports.RateService) *RateHandler {
	return &RateHandler{rateSvc: rateSvc}
}

// ListCurrencies handles GET /api/v1/currencies.
func (h *RateHandler) ListCurrencies(c *gin.Context) {
	currencies, err := h.rateSvc.ListCurrencies(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, dto.ToCurrencyResponses(currencies), len(currencies))
}

// Quote handles GET /api/v1/quotes/:base/:target.
func (h *RateHandler) Quote(c *gin.Context) {
	q, err := h.rateSvc.Quote(c.Request.Context(), c.Param("base"), c.Param("target"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.ToQuoteResponse(q))
}
