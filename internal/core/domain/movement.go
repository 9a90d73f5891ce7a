package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementKind distinguishes deposits from withdrawals.
type MovementKind string

const (
	MovementKindDeposit    MovementKind = "DEPOSIT"
	MovementKindWithdrawal MovementKind = "WITHDRAWAL"
)

// Movement is an append-only deposit or withdrawal record.
type Movement struct {
	ID           int64           `json:"id"`
	Address      string          `json:"address"`
	CurrencyID   int64           `json:"currency_id"`
	Kind         MovementKind    `json:"kind"`
	Amount       decimal.Decimal `json:"amount"` // gross
	Fee          decimal.Decimal `json:"fee"`
	ConversionID *int64          `json:"conversion_id,omitempty"` // set on the two legs of a conversion
	OccurredAt   time.Time       `json:"occurred_at"`
}
