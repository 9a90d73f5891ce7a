package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transfer is an append-only record of a move between two wallets.
// The fee is retained by the system, never credited to the destination.
type Transfer struct {
	ID            int64           `json:"id"`
	SourceAddress string          `json:"source_address"`
	DestAddress   string          `json:"dest_address"`
	CurrencyID    int64           `json:"currency_id"`
	Amount        decimal.Decimal `json:"amount"`
	Fee           decimal.Decimal `json:"fee"`
	OccurredAt    time.Time       `json:"occurred_at"`
}
