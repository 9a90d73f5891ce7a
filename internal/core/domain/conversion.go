package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Conversion is an append-only record of a same-wallet currency exchange.
type Conversion struct {
	ID               int64           `json:"id"`
	Address          string          `json:"address"`
	SourceCurrencyID int64           `json:"source_currency_id"`
	DestCurrencyID   int64           `json:"dest_currency_id"`
	SourceAmount     decimal.Decimal `json:"source_amount"`
	DestAmount       decimal.Decimal `json:"dest_amount"`
	FeePercent       decimal.Decimal `json:"fee_percent"`
	Rate             decimal.Decimal `json:"rate"`
	OccurredAt       time.Time       `json:"occurred_at"`
}
